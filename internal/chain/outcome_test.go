// YouTube-Synch - mirrors YouTube channels onto the Joystream network
// Copyright 2026 Joystream contributors
// SPDX-License-Identifier: GPL-3.0-or-later
// https://github.com/WRadoslaw/youtube-synch

package chain

import (
	"testing"

	"github.com/WRadoslaw/youtube-synch/internal/model"
)

func TestClassifyDispatchError(t *testing.T) {
	tests := []struct {
		msg  string
		want model.ErrorKind
	}{
		{"Module(storage.VoucherSizeLimitExceeded)", model.ErrVoucherLimit},
		{"VoucherSizeLimitExceeded", model.ErrVoucherLimit},
		{"Module(content.ActorNotAuthorized)", model.ErrFailed},
		{"BadOrigin", model.ErrFailed},
		{"", model.ErrFailed},
	}
	for _, tt := range tests {
		if got := classifyDispatchError(tt.msg); got != tt.want {
			t.Errorf("classifyDispatchError(%q) = %v, want %v", tt.msg, got, tt.want)
		}
	}
}

func TestFindEvent(t *testing.T) {
	f := Finalized{
		BlockHash: "0xabc",
		Events: []Event{
			{Section: "balances", Method: "Withdraw", Values: []string{"acc", "10"}},
			{Section: "content", Method: "VideoCreated", Values: []string{"actor", "7", "42"}},
			{Section: "storage", Method: "DataObjectsUploaded", Values: []string{"900", "901"}},
			{Section: "content", Method: "VideoCreated", Values: []string{"actor", "7", "99"}},
		},
	}

	ev, ok := f.FindEvent("content", "VideoCreated")
	if !ok {
		t.Fatal("VideoCreated must be found")
	}
	// The first match wins when the block carries duplicates.
	if ev.Values[2] != "42" {
		t.Errorf("Values[2] = %q, want 42", ev.Values[2])
	}

	if _, ok := f.FindEvent("content", "VideoDeleted"); ok {
		t.Error("absent method must not match")
	}
	if _, ok := f.FindEvent("members", "VideoCreated"); ok {
		t.Error("section and method must both match")
	}
}

func TestOutcomeVariantsAreDistinct(t *testing.T) {
	outcomes := []TxOutcome{
		Finalized{BlockHash: "0x1"},
		Failed{Kind: model.ErrFailed, Msg: "dispatch error"},
		Rejected{Reason: "invalid"},
	}

	var finalized, failed, rejected int
	for _, o := range outcomes {
		switch o.(type) {
		case Finalized:
			finalized++
		case Failed:
			failed++
		case Rejected:
			rejected++
		}
	}
	if finalized != 1 || failed != 1 || rejected != 1 {
		t.Fatalf("type switch must discriminate all variants: %d/%d/%d", finalized, failed, rejected)
	}
}
