// YouTube-Synch - mirrors YouTube channels onto the Joystream network
// Copyright 2026 Joystream contributors
// SPDX-License-Identifier: GPL-3.0-or-later
// https://github.com/WRadoslaw/youtube-synch

package model

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a domain error. Kinds, not Go types, drive the
// propagation policy: retriable kinds are swallowed with backoff, terminal
// per-video kinds park the video, terminal per-channel kinds suspend the
// channel, quota kinds abort the cycle.
type ErrorKind string

const (
	// YouTube metadata API.
	ErrChannelNotFound          ErrorKind = "ChannelNotFound"
	ErrVideoNotFound            ErrorKind = "VideoNotFound"
	ErrChannelAlreadyRegistered ErrorKind = "ChannelAlreadyRegistered"
	ErrChannelStatusSuspended   ErrorKind = "ChannelStatusSuspended"
	ErrCriteriaSubscribers      ErrorKind = "ChannelCriteriaUnmetSubscribers"
	ErrCriteriaVideos           ErrorKind = "ChannelCriteriaUnmetVideos"
	ErrCriteriaCreationDate     ErrorKind = "ChannelCriteriaUnmetCreationDate"
	ErrQuotaLimitExceeded       ErrorKind = "QuotaLimitExceeded"

	// Blockchain.
	ErrApiNotConnected      ErrorKind = "ApiNotConnected"
	ErrAppNotFound          ErrorKind = "AppNotFound"
	ErrUnknown              ErrorKind = "Unknown"
	ErrFailed               ErrorKind = "Failed"
	ErrSignCancelled        ErrorKind = "SignCancelled"
	ErrMissingRequiredEvent ErrorKind = "MissingRequiredEvent"
	ErrCollaboratorNotFound ErrorKind = "CollaboratorNotFound"
	ErrVoucherLimit         ErrorKind = "VoucherLimit"

	// Storage fleet.
	ErrNoActiveStorageProvider ErrorKind = "NoActiveStorageProvider"

	// Indexer / state store transport.
	ErrNotConnected  ErrorKind = "NotConnected"
	ErrOutdatedState ErrorKind = "OutdatedState"

	// Replay guard.
	ErrStaleAction ErrorKind = "StaleAction"
)

// Error is a kinded domain error. It wraps an optional cause for errors.Is
// chains while keeping the kind comparable.
type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	case e.Msg != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds a kinded error with a message.
func NewError(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// WrapError builds a kinded error around a cause.
func WrapError(kind ErrorKind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf extracts the kind from err, or ErrUnknown when err carries none.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ErrUnknown
}

// IsKind reports whether err (or anything it wraps) carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind == kind
	}
	return false
}

// Retriable reports whether the kind is transient: the caller backs off and
// retries without touching persisted state.
func (k ErrorKind) Retriable() bool {
	switch k {
	case ErrNotConnected, ErrApiNotConnected, ErrSignCancelled, ErrOutdatedState:
		return true
	}
	return false
}
