// YouTube-Synch - mirrors YouTube channels onto the Joystream network
// Copyright 2026 Joystream contributors
// SPDX-License-Identifier: GPL-3.0-or-later
// https://github.com/WRadoslaw/youtube-synch

package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WRadoslaw/youtube-synch/internal/config"
	"github.com/WRadoslaw/youtube-synch/internal/model"
)

func newTestClient(t *testing.T, handler http.Handler) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHTTPClient(config.YoutubeConfig{
		ClientID:          "cid",
		ClientSecret:      "secret",
		APIBaseURL:        srv.URL,
		MaxResultsPerPage: 2,
	})
}

func apiError(reason, message string) string {
	return fmt.Sprintf(`{"error":{"message":%q,"errors":[{"reason":%q}]}}`, message, reason)
}

func TestChannelFetch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/channels", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "chanA", r.URL.Query().Get("id"))
		fmt.Fprint(w, `{"items":[{
			"id":"chanA",
			"snippet":{"title":"Creator","publishedAt":"2020-05-01T10:00:00Z","defaultLanguage":"en"},
			"contentDetails":{"relatedPlaylists":{"uploads":"UUchanA"}},
			"statistics":{"subscriberCount":"1200","videoCount":"34"}
		}]}`)
	})
	c := newTestClient(t, mux)

	info, err := c.Channel(context.Background(), &model.Channel{ID: "chanA", AccessToken: "tok"})
	require.NoError(t, err)
	assert.Equal(t, "Creator", info.Title)
	assert.Equal(t, "UUchanA", info.UploadsPlaylistID)
	assert.Equal(t, int64(1200), info.SubscriberCount)
	assert.Equal(t, "en", info.Language)
}

func TestChannelNotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/channels", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"items":[]}`)
	})
	c := newTestClient(t, mux)

	_, err := c.Channel(context.Background(), &model.Channel{ID: "gone", AccessToken: "tok"})
	assert.True(t, model.IsKind(err, model.ErrChannelNotFound))
}

func TestQuotaExceededMapsToQuotaKind(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/channels", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, apiError("quotaExceeded", "daily quota exhausted"))
	})
	c := newTestClient(t, mux)

	_, err := c.Channel(context.Background(), &model.Channel{ID: "chanA", AccessToken: "tok"})
	assert.True(t, model.IsKind(err, model.ErrQuotaLimitExceeded), "got %v", err)
}

func TestAuthErrorMapsToUnauthorized(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/channels", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, apiError("authError", "invalid grant"))
	})
	c := newTestClient(t, mux)

	_, err := c.Channel(context.Background(), &model.Channel{ID: "chanA", AccessToken: "tok"})
	assert.True(t, errors.Is(err, ErrUnauthorized), "got %v", err)
}

func TestExpiredTokenRefreshedOnce(t *testing.T) {
	var refreshed bool
	mux := http.NewServeMux()
	mux.HandleFunc("/channels", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `{"items":[{"id":"chanA","snippet":{"title":"Creator"},"contentDetails":{"relatedPlaylists":{"uploads":"UUchanA"}}}]}`)
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.Form.Get("grant_type"))
		assert.Equal(t, "rt", r.Form.Get("refresh_token"))
		refreshed = true
		fmt.Fprint(w, `{"access_token":"fresh"}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	c := NewHTTPClient(config.YoutubeConfig{
		ClientID: "cid", ClientSecret: "secret",
		APIBaseURL: srv.URL, MaxResultsPerPage: 2,
	})
	c.SetTokenURL(srv.URL + "/token")

	ch := &model.Channel{ID: "chanA", AccessToken: "stale", RefreshToken: "rt"}
	info, err := c.Channel(context.Background(), ch)
	require.NoError(t, err)
	assert.True(t, refreshed)
	assert.Equal(t, "Creator", info.Title)
	// The refreshed token sticks on the channel for subsequent calls.
	assert.Equal(t, "fresh", ch.AccessToken)
}

func TestPersistent401StopsAfterOneRefresh(t *testing.T) {
	var apiCalls, tokenCalls int
	mux := http.NewServeMux()
	mux.HandleFunc("/channels", func(w http.ResponseWriter, r *http.Request) {
		apiCalls++
		w.WriteHeader(http.StatusUnauthorized)
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		tokenCalls++
		fmt.Fprint(w, `{"access_token":"fresh"}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	c := NewHTTPClient(config.YoutubeConfig{
		ClientID: "cid", ClientSecret: "secret",
		APIBaseURL: srv.URL, MaxResultsPerPage: 2,
	})
	c.SetTokenURL(srv.URL + "/token")

	// The API keeps rejecting the token even though refreshes succeed; the
	// second 401 ends the attempt instead of refreshing again.
	_, err := c.Channel(context.Background(), &model.Channel{ID: "chanA", AccessToken: "stale", RefreshToken: "rt"})
	assert.True(t, errors.Is(err, ErrUnauthorized), "got %v", err)
	assert.Equal(t, 2, apiCalls)
	assert.Equal(t, 1, tokenCalls)
}

func TestFailedRefreshIsUnauthorized(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/channels", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	c := NewHTTPClient(config.YoutubeConfig{
		ClientID: "cid", ClientSecret: "secret",
		APIBaseURL: srv.URL, MaxResultsPerPage: 2,
	})
	c.SetTokenURL(srv.URL + "/token")

	_, err := c.Channel(context.Background(), &model.Channel{ID: "chanA", AccessToken: "stale", RefreshToken: "rt"})
	assert.True(t, errors.Is(err, ErrUnauthorized), "got %v", err)
}

func TestUploadsPlaylistPagination(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/playlistItems", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "UUchanA", r.URL.Query().Get("playlistId"))
		assert.Equal(t, "2", r.URL.Query().Get("maxResults"))
		if r.URL.Query().Get("pageToken") == "" {
			fmt.Fprint(w, `{"nextPageToken":"p2","items":[
				{"contentDetails":{"videoId":"v1"}},
				{"contentDetails":{"videoId":"v2"}}
			]}`)
			return
		}
		fmt.Fprint(w, `{"items":[{"contentDetails":{"videoId":"v3"}}]}`)
	})
	mux.HandleFunc("/videos", func(w http.ResponseWriter, r *http.Request) {
		ids := r.URL.Query().Get("id")
		if ids == "v1,v2" {
			fmt.Fprint(w, `{"items":[
				{"id":"v1","snippet":{"title":"one","publishedAt":"2026-01-01T00:00:00Z"},
				 "contentDetails":{"duration":"PT1H2M3S"},
				 "status":{"uploadStatus":"processed","privacyStatus":"public","license":"youtube"},
				 "statistics":{"viewCount":"10"}},
				{"id":"v2","snippet":{"title":"two"},
				 "contentDetails":{"duration":"PT45S"},
				 "status":{"uploadStatus":"processed","privacyStatus":"unlisted"}}
			]}`)
			return
		}
		fmt.Fprint(w, `{"items":[{"id":"v3","snippet":{"title":"three"},"contentDetails":{"duration":"PT2M"},"status":{"uploadStatus":"processed","privacyStatus":"public"}}]}`)
	})
	c := newTestClient(t, mux)

	vids, err := c.UploadsPlaylistVideos(context.Background(), &model.Channel{
		ID: "chanA", UploadsPlaylistID: "UUchanA", AccessToken: "tok",
	})
	require.NoError(t, err)
	require.Len(t, vids, 3)
	assert.Equal(t, "v1", vids[0].ID)
	assert.Equal(t, int64(3723), vids[0].Duration)
	assert.Equal(t, int64(10), vids[0].ViewCount)
	assert.Equal(t, "unlisted", vids[1].PrivacyStatus)
	assert.Equal(t, "v3", vids[2].ID)
}

func TestParseISODuration(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"PT15S", 15},
		{"PT4M", 240},
		{"PT1H2M3S", 3723},
		{"PT2H", 7200},
		{"P1DT2H", 93600},
		{"P2D", 172800},
		{"P1DT1H30M", 91800},
		{"", 0},
	}
	for _, tt := range tests {
		if got := parseISODuration(tt.in); got != tt.want {
			t.Errorf("parseISODuration(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
