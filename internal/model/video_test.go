// YouTube-Synch - mirrors YouTube channels onto the Joystream network
// Copyright 2026 Joystream contributors
// SPDX-License-Identifier: GPL-3.0-or-later
// https://github.com/WRadoslaw/youtube-synch

package model

import (
	"testing"
	"time"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to VideoState
		want     bool
	}{
		{VideoStateNew, VideoStateCreated, true},
		{VideoStateNew, VideoStateCreationFailed, true},
		{VideoStateNew, VideoStateUnavailable, true},
		{VideoStateNew, VideoStateUploadSucceeded, false},
		{VideoStateNew, VideoStateUploadFailed, false},
		{VideoStateCreationFailed, VideoStateCreated, true},
		{VideoStateCreationFailed, VideoStateUnavailable, true},
		{VideoStateCreationFailed, VideoStateUploadFailed, false},
		{VideoStateCreated, VideoStateUploadSucceeded, true},
		{VideoStateCreated, VideoStateUploadFailed, true},
		{VideoStateCreated, VideoStateUnavailable, false},
		{VideoStateCreated, VideoStateNew, false},
		{VideoStateUploadFailed, VideoStateUploadSucceeded, true},
		{VideoStateUploadFailed, VideoStateUnavailable, false},
		{VideoStateUploadSucceeded, VideoStateNew, false},
		{VideoStateUnavailable, VideoStateNew, false},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransition(tt.to); got != tt.want {
			t.Errorf("CanTransition(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestCanTransitionSameState(t *testing.T) {
	for _, s := range AllVideoStates() {
		if !s.CanTransition(s) {
			t.Errorf("same-state rewrite %s should be allowed", s)
		}
	}
}

func TestTerminalStates(t *testing.T) {
	for _, s := range AllVideoStates() {
		terminal := s == VideoStateUploadSucceeded || s == VideoStateUnavailable
		if s.Terminal() != terminal {
			t.Errorf("Terminal(%s) = %v, want %v", s, s.Terminal(), terminal)
		}
	}
}

func TestOnChainMatchesJoystreamVideoInvariant(t *testing.T) {
	// The JoystreamVideo reference exists exactly in the on-chain states.
	want := map[VideoState]bool{
		VideoStateNew:             false,
		VideoStateCreationFailed:  false,
		VideoStateCreated:         true,
		VideoStateUploadFailed:    true,
		VideoStateUploadSucceeded: true,
		VideoStateUnavailable:     false,
	}
	for s, onChain := range want {
		if s.OnChain() != onChain {
			t.Errorf("OnChain(%s) = %v, want %v", s, s.OnChain(), onChain)
		}
	}
}

func TestDownloadable(t *testing.T) {
	v := Video{PrivacyStatus: "public", UploadStatus: "processed", LiveBroadcastContent: "none"}
	if !v.Downloadable() {
		t.Fatal("public processed non-live video must be downloadable")
	}
	for _, mutate := range []func(*Video){
		func(v *Video) { v.PrivacyStatus = "private" },
		func(v *Video) { v.UploadStatus = "uploaded" },
		func(v *Video) { v.LiveBroadcastContent = "live" },
	} {
		cp := v
		mutate(&cp)
		if cp.Downloadable() {
			t.Errorf("video %+v must not be downloadable", cp)
		}
	}
}

func TestHistoricalFor(t *testing.T) {
	enrolled := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	ch := &Channel{CreatedAt: enrolled}

	older := &Video{PublishedAt: enrolled.Add(-time.Hour)}
	newer := &Video{PublishedAt: enrolled.Add(time.Hour)}
	if !older.HistoricalFor(ch) {
		t.Error("video published before enrollment must be historical")
	}
	if newer.HistoricalFor(ch) {
		t.Error("video published after enrollment must not be historical")
	}
}
