// YouTube-Synch - mirrors YouTube channels onto the Joystream network
// Copyright 2026 Joystream contributors
// SPDX-License-Identifier: GPL-3.0-or-later
// https://github.com/WRadoslaw/youtube-synch

package model

import (
	"strings"
	"time"
)

// YppStatus is the channel's participation status in the creator program.
// Verified and Suspended carry a tier/reason suffix after "::".
type YppStatus string

const (
	YppUnverified YppStatus = "Unverified"
	YppOptedOut   YppStatus = "OptedOut"

	yppVerifiedPrefix  = "Verified::"
	yppSuspendedPrefix = "Suspended::"
)

// Verified reports whether the status carries the Verified:: prefix.
func (s YppStatus) Verified() bool {
	return strings.HasPrefix(string(s), yppVerifiedPrefix)
}

// Suspended reports whether the status carries the Suspended:: prefix.
func (s YppStatus) Suspended() bool {
	return strings.HasPrefix(string(s), yppSuspendedPrefix)
}

// VerifiedStatus builds a Verified status with the given tier,
// e.g. VerifiedStatus("Bronze") == "Verified::Bronze".
func VerifiedStatus(tier string) YppStatus {
	return YppStatus(yppVerifiedPrefix + tier)
}

// SuspendedStatus builds a Suspended status with the given reason,
// e.g. SuspendedStatus("AuthFailed") == "Suspended::AuthFailed".
func SuspendedStatus(reason string) YppStatus {
	return YppStatus(yppSuspendedPrefix + reason)
}

// Channel is an enrolled YouTube channel and its platform mapping.
// Keyed by (UserID, ID); secondary lookups exist by JoystreamChannelID
// and by ReferrerChannelID.
type Channel struct {
	ID     string `json:"id"`
	UserID string `json:"userId"`

	Title        string `json:"title"`
	Description  string `json:"description"`
	ThumbnailURL string `json:"thumbnailUrl"`

	// OAuth material granted during onboarding.
	AccessToken       string `json:"accessToken"`
	RefreshToken      string `json:"refreshToken"`
	UploadsPlaylistID string `json:"uploadsPlaylistId"`

	JoystreamChannelID string `json:"joystreamChannelId"`
	ReferrerChannelID  string `json:"referrerChannelId,omitempty"`
	Language           string `json:"language"`
	VideoCategory      string `json:"videoCategory"`

	// Policy flags. A channel is a sync candidate only when both ingestion
	// flags are set and YppStatus is Verified.
	ShouldBeIngested        bool `json:"shouldBeIngested"`
	AllowOperatorIngestion  bool `json:"allowOperatorIngestion"`
	PerformUnauthorizedSync bool `json:"performUnauthorizedSync"`

	YppStatus YppStatus `json:"yppStatus"`

	// HistoricalVideoSyncedSize accumulates bytes of successfully uploaded
	// videos that predate enrollment.
	HistoricalVideoSyncedSize int64 `json:"historicalVideoSyncedSize"`

	// LastActedAt is a monotonic per-owner action timestamp; creator
	// actions are only accepted with a strictly newer timestamp.
	LastActedAt time.Time `json:"lastActedAt"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Syncable reports whether the channel is a sync candidate: both ingestion
// flags set and a Verified participation status.
func (c *Channel) Syncable() bool {
	return c.ShouldBeIngested && c.AllowOperatorIngestion && c.YppStatus.Verified()
}

// VerifyActionTimestamp is the replay guard for creator actions: an action
// is accepted iff its embedded timestamp strictly exceeds LastActedAt.
func (c *Channel) VerifyActionTimestamp(ts time.Time) error {
	if !ts.After(c.LastActedAt) {
		return NewError(ErrStaleAction, "action timestamp does not exceed lastActedAt")
	}
	return nil
}

// WhitelistEntry admits a channel handle during onboarding.
type WhitelistEntry struct {
	Handle    string    `json:"handle"`
	CreatedAt time.Time `json:"createdAt"`
}
