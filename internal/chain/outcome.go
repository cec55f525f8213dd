// YouTube-Synch - mirrors YouTube channels onto the Joystream network
// Copyright 2026 Joystream contributors
// SPDX-License-Identifier: GPL-3.0-or-later
// https://github.com/WRadoslaw/youtube-synch

// Package chain submits createVideo extrinsics to the Joystream node and
// reports their fate as a sum-typed outcome. Transaction building, signing
// and event decoding are external collaborators consumed through interfaces;
// this package owns the transport, the per-signer serialization and the
// outcome classification.
package chain

import (
	"strings"

	"github.com/WRadoslaw/youtube-synch/internal/model"
)

// Event is one decoded runtime event attached to a finalized extrinsic.
type Event struct {
	Section string
	Method  string
	// Values are the event's positional fields, stringified by the decoder.
	Values []string
}

// TxOutcome is the fate of a submitted extrinsic. Exactly one of the three
// concrete variants is returned; callers switch on the type.
type TxOutcome interface {
	txOutcome()
}

// Finalized means the extrinsic landed in a finalized block. Events carries
// every runtime event attributed to it.
type Finalized struct {
	BlockHash string
	Events    []Event
}

// Failed means the extrinsic executed and the runtime reported
// ExtrinsicFailed. Kind distinguishes the voucher-limit case from generic
// dispatch failures.
type Failed struct {
	Kind model.ErrorKind
	Msg  string
}

// Rejected means the node refused the submission (or signing was refused)
// before execution; the attempt is retryable with no state change.
type Rejected struct {
	Reason string
}

func (Finalized) txOutcome() {}
func (Failed) txOutcome()    {}
func (Rejected) txOutcome()  {}

// FindEvent returns the first event matching section.method.
func (f Finalized) FindEvent(section, method string) (*Event, bool) {
	for i := range f.Events {
		if f.Events[i].Section == section && f.Events[i].Method == method {
			return &f.Events[i], true
		}
	}
	return nil, false
}

// classifyDispatchError maps a runtime dispatch error message to the failure
// kind. VoucherSizeLimitExceeded halts the channel rather than the video.
func classifyDispatchError(msg string) model.ErrorKind {
	if strings.Contains(msg, "VoucherSizeLimitExceeded") {
		return model.ErrVoucherLimit
	}
	return model.ErrFailed
}
