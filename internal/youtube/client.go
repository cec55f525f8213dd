// YouTube-Synch - mirrors YouTube channels onto the Joystream network
// Copyright 2026 Joystream contributors
// SPDX-License-Identifier: GPL-3.0-or-later
// https://github.com/WRadoslaw/youtube-synch

// Package youtube is the metadata API client consumed by the poller.
// Every call costs daily quota; callers reserve units with the quota
// accountant before touching the API.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/WRadoslaw/youtube-synch/internal/config"
	"github.com/WRadoslaw/youtube-synch/internal/model"
)

// ErrUnauthorized indicates the channel's OAuth grant no longer works.
// The poller reacts by suspending the channel, not the process.
var ErrUnauthorized = errors.New("youtube: unauthorized")

const (
	defaultAPIBaseURL = "https://www.googleapis.com/youtube/v3"
	defaultTokenURL   = "https://oauth2.googleapis.com/token"
)

// ChannelInfo is the upstream channel snapshot.
type ChannelInfo struct {
	ID                string
	Title             string
	Description       string
	ThumbnailURL      string
	UploadsPlaylistID string
	SubscriberCount   int64
	VideoCount        int64
	PublishedAt       time.Time
	Language          string
}

// PlaylistVideo is one entry of a channel's uploads playlist, enriched with
// the per-video status fields the sync filter needs.
type PlaylistVideo struct {
	ID                   string
	Title                string
	Description          string
	ThumbnailURL         string
	PublishedAt          time.Time
	Duration             int64
	UploadStatus         string
	PrivacyStatus        string
	LiveBroadcastContent string
	License              string
	ViewCount            int64
}

// Client lists channels and uploads on behalf of an enrolled creator.
type Client interface {
	Channel(ctx context.Context, ch *model.Channel) (*ChannelInfo, error)
	UploadsPlaylistVideos(ctx context.Context, ch *model.Channel) ([]*PlaylistVideo, error)
}

// HTTPClient is the production implementation against the Data API v3.
type HTTPClient struct {
	http      *http.Client
	baseURL   string
	tokenURL  string
	clientID  string
	clientSec string
	pageSize  int
	limiter   *rate.Limiter
}

// NewHTTPClient builds the API client from config. The base URL override is
// for tests against httptest servers.
func NewHTTPClient(cfg config.YoutubeConfig) *HTTPClient {
	base := cfg.APIBaseURL
	if base == "" {
		base = defaultAPIBaseURL
	}
	return &HTTPClient{
		http:      &http.Client{Timeout: 30 * time.Second},
		baseURL:   strings.TrimRight(base, "/"),
		tokenURL:  defaultTokenURL,
		clientID:  cfg.ClientID,
		clientSec: cfg.ClientSecret,
		pageSize:  cfg.MaxResultsPerPage,
		// The Data API tolerates short bursts; steady state stays polite.
		limiter: rate.NewLimiter(rate.Limit(5), 10),
	}
}

// SetTokenURL overrides the OAuth token endpoint (tests only).
func (c *HTTPClient) SetTokenURL(u string) { c.tokenURL = u }

// Channel fetches the channel record owned by the grant, including the
// uploads playlist id and statistics.
func (c *HTTPClient) Channel(ctx context.Context, ch *model.Channel) (*ChannelInfo, error) {
	q := url.Values{
		"part": {"snippet,contentDetails,statistics"},
		"id":   {ch.ID},
	}
	var resp channelListResponse
	if err := c.get(ctx, ch, "/channels", q, &resp); err != nil {
		return nil, err
	}
	if len(resp.Items) == 0 {
		return nil, model.NewError(model.ErrChannelNotFound, ch.ID)
	}
	item := resp.Items[0]
	published, _ := time.Parse(time.RFC3339, item.Snippet.PublishedAt)
	return &ChannelInfo{
		ID:                item.ID,
		Title:             item.Snippet.Title,
		Description:       item.Snippet.Description,
		ThumbnailURL:      item.Snippet.Thumbnails.High.URL,
		UploadsPlaylistID: item.ContentDetails.RelatedPlaylists.Uploads,
		SubscriberCount:   item.Statistics.SubscriberCount.Int64(),
		VideoCount:        item.Statistics.VideoCount.Int64(),
		PublishedAt:       published,
		Language:          item.Snippet.DefaultLanguage,
	}, nil
}

// UploadsPlaylistVideos walks the uploads playlist with cursor pagination
// and enriches each page with videos.list status/details.
func (c *HTTPClient) UploadsPlaylistVideos(ctx context.Context, ch *model.Channel) ([]*PlaylistVideo, error) {
	var out []*PlaylistVideo
	pageToken := ""
	for {
		q := url.Values{
			"part":       {"snippet,contentDetails"},
			"playlistId": {ch.UploadsPlaylistID},
			"maxResults": {strconv.Itoa(c.pageSize)},
		}
		if pageToken != "" {
			q.Set("pageToken", pageToken)
		}
		var page playlistItemsResponse
		if err := c.get(ctx, ch, "/playlistItems", q, &page); err != nil {
			return nil, err
		}

		ids := make([]string, 0, len(page.Items))
		for _, it := range page.Items {
			ids = append(ids, it.ContentDetails.VideoID)
		}
		videos, err := c.videosByID(ctx, ch, ids)
		if err != nil {
			return nil, err
		}
		out = append(out, videos...)

		if page.NextPageToken == "" {
			return out, nil
		}
		pageToken = page.NextPageToken
	}
}

func (c *HTTPClient) videosByID(ctx context.Context, ch *model.Channel, ids []string) ([]*PlaylistVideo, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	q := url.Values{
		"part": {"snippet,contentDetails,status,statistics"},
		"id":   {strings.Join(ids, ",")},
	}
	var resp videoListResponse
	if err := c.get(ctx, ch, "/videos", q, &resp); err != nil {
		return nil, err
	}
	out := make([]*PlaylistVideo, 0, len(resp.Items))
	for _, it := range resp.Items {
		published, _ := time.Parse(time.RFC3339, it.Snippet.PublishedAt)
		out = append(out, &PlaylistVideo{
			ID:                   it.ID,
			Title:                it.Snippet.Title,
			Description:          it.Snippet.Description,
			ThumbnailURL:         it.Snippet.Thumbnails.High.URL,
			PublishedAt:          published,
			Duration:             parseISODuration(it.ContentDetails.Duration),
			UploadStatus:         it.Status.UploadStatus,
			PrivacyStatus:        it.Status.PrivacyStatus,
			LiveBroadcastContent: it.Snippet.LiveBroadcastContent,
			License:              it.Status.License,
			ViewCount:            it.Statistics.ViewCount.Int64(),
		})
	}
	return out, nil
}

func (c *HTTPClient) get(ctx context.Context, ch *model.Channel, path string, q url.Values, out any) error {
	return c.doGet(ctx, ch, path, q, out, false)
}

func (c *HTTPClient) doGet(ctx context.Context, ch *model.Channel, path string, q url.Values, out any, retried bool) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+ch.AccessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return model.WrapError(model.ErrNotConnected, "youtube api", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		// One refresh attempt; a second 401 or a failed refresh means the
		// grant is dead.
		if retried {
			return fmt.Errorf("%w: token rejected after refresh", ErrUnauthorized)
		}
		if refreshErr := c.refreshToken(ctx, ch); refreshErr != nil {
			return fmt.Errorf("%w: %v", ErrUnauthorized, refreshErr)
		}
		return c.doGet(ctx, ch, path, q, out, true)
	}
	if resp.StatusCode >= 400 {
		return c.mapAPIError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// mapAPIError converts Data API error envelopes into domain kinds.
func (c *HTTPClient) mapAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	var envelope struct {
		Error struct {
			Message string `json:"message"`
			Errors  []struct {
				Reason string `json:"reason"`
			} `json:"errors"`
		} `json:"error"`
	}
	_ = json.Unmarshal(body, &envelope)

	for _, e := range envelope.Error.Errors {
		switch e.Reason {
		case "quotaExceeded", "dailyLimitExceeded", "rateLimitExceeded":
			return model.NewError(model.ErrQuotaLimitExceeded, envelope.Error.Message)
		case "channelNotFound", "playlistNotFound":
			return model.NewError(model.ErrChannelNotFound, envelope.Error.Message)
		case "videoNotFound":
			return model.NewError(model.ErrVideoNotFound, envelope.Error.Message)
		case "authError", "forbidden":
			return fmt.Errorf("%w: %s", ErrUnauthorized, envelope.Error.Message)
		}
	}
	return model.NewError(model.ErrUnknown, fmt.Sprintf("youtube api status %d: %s", resp.StatusCode, envelope.Error.Message))
}

func (c *HTTPClient) refreshToken(ctx context.Context, ch *model.Channel) error {
	form := url.Values{
		"client_id":     {c.clientID},
		"client_secret": {c.clientSec},
		"refresh_token": {ch.RefreshToken},
		"grant_type":    {"refresh_token"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return model.WrapError(model.ErrNotConnected, "oauth token refresh", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("token refresh status %d", resp.StatusCode)
	}
	var token struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return err
	}
	ch.AccessToken = token.AccessToken
	return nil
}

// parseISODuration reads the subset of ISO-8601 durations the Data API
// emits (P#DT#H#M#S, days appearing past 24 hours) into seconds.
func parseISODuration(s string) int64 {
	s = strings.TrimPrefix(s, "P")
	var total, cur int64
	inTime := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			cur = cur*10 + int64(r-'0')
		case r == 'T':
			inTime = true
		case r == 'D':
			total += cur * 86400
			cur = 0
		case r == 'H':
			total += cur * 3600
			cur = 0
		case r == 'M':
			// M before the T designator would be calendar months; the API
			// never emits them for video durations.
			if inTime {
				total += cur * 60
			}
			cur = 0
		case r == 'S':
			total += cur
			cur = 0
		}
	}
	return total
}
