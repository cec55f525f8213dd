// YouTube-Synch - mirrors YouTube channels onto the Joystream network
// Copyright 2026 Joystream contributors
// SPDX-License-Identifier: GPL-3.0-or-later
// https://github.com/WRadoslaw/youtube-synch

package model

import (
	"testing"
	"time"
)

func TestSyncableIsStrictConjunction(t *testing.T) {
	base := Channel{
		ShouldBeIngested:       true,
		AllowOperatorIngestion: true,
		YppStatus:              VerifiedStatus("Bronze"),
	}
	if !base.Syncable() {
		t.Fatal("verified channel with both flags must be syncable")
	}

	tests := []struct {
		name   string
		mutate func(*Channel)
	}{
		{"creator opted out of ingestion", func(c *Channel) { c.ShouldBeIngested = false }},
		{"operator disabled ingestion", func(c *Channel) { c.AllowOperatorIngestion = false }},
		{"unverified", func(c *Channel) { c.YppStatus = YppUnverified }},
		{"suspended", func(c *Channel) { c.YppStatus = SuspendedStatus("Legal") }},
		{"opted out", func(c *Channel) { c.YppStatus = YppOptedOut }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch := base
			tt.mutate(&ch)
			if ch.Syncable() {
				t.Error("channel must not be syncable")
			}
		})
	}
}

func TestYppStatusPrefixes(t *testing.T) {
	if !VerifiedStatus("Gold").Verified() {
		t.Error("Verified::Gold must report Verified")
	}
	if !SuspendedStatus("AuthFailed").Suspended() {
		t.Error("Suspended::AuthFailed must report Suspended")
	}
	if YppUnverified.Verified() || YppUnverified.Suspended() {
		t.Error("Unverified carries no prefix")
	}
}

func TestVerifyActionTimestampReplayGuard(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	ch := Channel{LastActedAt: now}

	// Equal timestamp is a replay and must be rejected.
	if err := ch.VerifyActionTimestamp(now); !IsKind(err, ErrStaleAction) {
		t.Fatalf("equal timestamp: got %v, want StaleAction", err)
	}
	if err := ch.VerifyActionTimestamp(now.Add(-time.Second)); !IsKind(err, ErrStaleAction) {
		t.Fatalf("older timestamp: got %v, want StaleAction", err)
	}
	if err := ch.VerifyActionTimestamp(now.Add(time.Second)); err != nil {
		t.Fatalf("newer timestamp: got %v, want nil", err)
	}
}

func TestErrorKindHelpers(t *testing.T) {
	err := WrapError(ErrQuotaLimitExceeded, "sync pool", nil)
	if !IsKind(err, ErrQuotaLimitExceeded) {
		t.Error("IsKind must match the wrapped kind")
	}
	if KindOf(err) != ErrQuotaLimitExceeded {
		t.Error("KindOf must extract the kind")
	}
	if ErrQuotaLimitExceeded.Retriable() {
		t.Error("quota exhaustion is not retriable within the day")
	}
	for _, k := range []ErrorKind{ErrNotConnected, ErrApiNotConnected, ErrSignCancelled, ErrOutdatedState} {
		if !k.Retriable() {
			t.Errorf("%s must be retriable", k)
		}
	}
}
