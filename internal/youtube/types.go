// YouTube-Synch - mirrors YouTube channels onto the Joystream network
// Copyright 2026 Joystream contributors
// SPDX-License-Identifier: GPL-3.0-or-later
// https://github.com/WRadoslaw/youtube-synch

package youtube

import "strconv"

// int64String reads the numeric-as-string counters the Data API emits.
type int64String string

func (n int64String) Int64() int64 {
	v, _ := strconv.ParseInt(string(n), 10, 64)
	return v
}

type thumbnails struct {
	High struct {
		URL string `json:"url"`
	} `json:"high"`
}

type channelListResponse struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title                string     `json:"title"`
			Description          string     `json:"description"`
			PublishedAt          string     `json:"publishedAt"`
			DefaultLanguage      string     `json:"defaultLanguage"`
			LiveBroadcastContent string     `json:"liveBroadcastContent"`
			Thumbnails           thumbnails `json:"thumbnails"`
		} `json:"snippet"`
		ContentDetails struct {
			RelatedPlaylists struct {
				Uploads string `json:"uploads"`
			} `json:"relatedPlaylists"`
		} `json:"contentDetails"`
		Statistics struct {
			SubscriberCount int64String `json:"subscriberCount"`
			VideoCount      int64String `json:"videoCount"`
		} `json:"statistics"`
	} `json:"items"`
}

type playlistItemsResponse struct {
	NextPageToken string `json:"nextPageToken"`
	Items         []struct {
		ContentDetails struct {
			VideoID string `json:"videoId"`
		} `json:"contentDetails"`
	} `json:"items"`
}

type videoListResponse struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title                string     `json:"title"`
			Description          string     `json:"description"`
			PublishedAt          string     `json:"publishedAt"`
			LiveBroadcastContent string     `json:"liveBroadcastContent"`
			Thumbnails           thumbnails `json:"thumbnails"`
		} `json:"snippet"`
		ContentDetails struct {
			Duration string `json:"duration"`
		} `json:"contentDetails"`
		Status struct {
			UploadStatus  string `json:"uploadStatus"`
			PrivacyStatus string `json:"privacyStatus"`
			License       string `json:"license"`
		} `json:"status"`
		Statistics struct {
			ViewCount int64String `json:"viewCount"`
		} `json:"statistics"`
	} `json:"items"`
}
