// YouTube-Synch - mirrors YouTube channels onto the Joystream network
// Copyright 2026 Joystream contributors
// SPDX-License-Identifier: GPL-3.0-or-later
// https://github.com/WRadoslaw/youtube-synch

package model

import "time"

// VideoState is the lifecycle state of a tracked video.
//
// States advance monotonically along the edges in videoTransitions.
// UploadSucceeded and VideoUnavailable are terminal.
type VideoState string

const (
	// VideoStateNew is the initial state assigned by the metadata poller.
	VideoStateNew VideoState = "New"

	// VideoStateCreationFailed marks a failed on-chain createVideo attempt.
	// The video re-enters the download/creation path on the next cycle.
	VideoStateCreationFailed VideoState = "VideoCreationFailed"

	// VideoStateCreated means the on-chain video record exists and the
	// asset bytes are pending upload to the storage fleet.
	VideoStateCreated VideoState = "VideoCreated"

	// VideoStateUploadFailed marks a failed asset upload. The video
	// re-enters the uploader on the next cycle.
	VideoStateUploadFailed VideoState = "UploadFailed"

	// VideoStateUploadSucceeded is the terminal success state.
	VideoStateUploadSucceeded VideoState = "UploadSucceeded"

	// VideoStateUnavailable is the terminal sink for videos that are gone
	// upstream or can never be downloaded.
	VideoStateUnavailable VideoState = "VideoUnavailable"
)

// videoTransitions enumerates the allowed state-machine edges.
// Same-state rewrites are always allowed (retries refresh UpdatedAt).
var videoTransitions = map[VideoState][]VideoState{
	VideoStateNew:             {VideoStateCreated, VideoStateCreationFailed, VideoStateUnavailable},
	VideoStateCreationFailed:  {VideoStateCreated, VideoStateUnavailable},
	VideoStateCreated:         {VideoStateUploadSucceeded, VideoStateUploadFailed},
	VideoStateUploadFailed:    {VideoStateUploadSucceeded},
	VideoStateUploadSucceeded: {},
	VideoStateUnavailable:     {},
}

// CanTransition reports whether moving from s to next is a legal edge.
func (s VideoState) CanTransition(next VideoState) bool {
	if s == next {
		return true
	}
	for _, allowed := range videoTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether the state has no outgoing edges.
func (s VideoState) Terminal() bool {
	return len(videoTransitions[s]) == 0
}

// OnChain reports whether an on-chain video record exists in this state.
// This is the invariant behind JoystreamVideo being set: the field is
// populated iff the state is VideoCreated, UploadFailed or UploadSucceeded.
func (s VideoState) OnChain() bool {
	switch s {
	case VideoStateCreated, VideoStateUploadFailed, VideoStateUploadSucceeded:
		return true
	}
	return false
}

// AllVideoStates lists every state, for metrics initialization and tests.
func AllVideoStates() []VideoState {
	return []VideoState{
		VideoStateNew,
		VideoStateCreationFailed,
		VideoStateCreated,
		VideoStateUploadFailed,
		VideoStateUploadSucceeded,
		VideoStateUnavailable,
	}
}

// JoystreamVideo is the on-chain record reference, populated once the
// createVideo extrinsic finalizes. AssetIDs is ordered [media, thumbnail].
type JoystreamVideo struct {
	ID       string   `json:"id"`
	AssetIDs []string `json:"assetIds"`
}

// Video mirrors one upstream YouTube video and its sync lifecycle.
// Keyed by (ChannelID, ID).
type Video struct {
	ID        string `json:"id"`
	ChannelID string `json:"channelId"`

	// Upstream metadata, refreshed by the poller without regressing State.
	Title                string    `json:"title"`
	Description          string    `json:"description"`
	Duration             int64     `json:"duration"`
	ThumbnailURL         string    `json:"thumbnailUrl"`
	PublishedAt          time.Time `json:"publishedAt"`
	UploadStatus         string    `json:"uploadStatus"`
	PrivacyStatus        string    `json:"privacyStatus"`
	LiveBroadcastContent string    `json:"liveBroadcastContent"`
	License              string    `json:"license"`
	Container            string    `json:"container"`
	ViewCount            int64     `json:"viewCount"`

	// Platform mapping, denormalized from the channel.
	JoystreamChannelID string `json:"joystreamChannelId"`
	Category           string `json:"category"`
	Language           string `json:"language"`

	State          VideoState      `json:"state"`
	JoystreamVideo *JoystreamVideo `json:"joystreamVideo,omitempty"`

	// MediaSize is the staged byte size recorded by the downloader.
	MediaSize int64 `json:"mediaSize"`

	// Retries counts transient failures since the last successful step.
	Retries int `json:"retries"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Downloadable reports whether a video in state New passes the sync filter:
// public, fully processed and not a live broadcast.
func (v *Video) Downloadable() bool {
	return v.PrivacyStatus == "public" &&
		v.UploadStatus == "processed" &&
		v.LiveBroadcastContent == "none"
}

// HistoricalFor reports whether the video predates the channel's enrollment.
// Only historical videos count against historicalVideoSyncedSize.
func (v *Video) HistoricalFor(ch *Channel) bool {
	return v.PublishedAt.Before(ch.CreatedAt)
}
