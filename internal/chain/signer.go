// YouTube-Synch - mirrors YouTube channels onto the Joystream network
// Copyright 2026 Joystream contributors
// SPDX-License-Identifier: GPL-3.0-or-later
// https://github.com/WRadoslaw/youtube-synch

package chain

import "sync"

// CreateVideoParams carries everything the extrinsic builder needs to create
// one on-chain video with its two data objects, ordered [media, thumbnail].
type CreateVideoParams struct {
	JoystreamChannelID string
	CollaboratorID     string

	Title       string
	Description string
	Category    string
	Language    string
	Duration    int64
	PublishedAt string

	MediaPath     string
	MediaSize     int64
	ThumbnailPath string
	ThumbnailSize int64
}

// ExtrinsicBuilder builds and signs the createVideo extrinsic for the given
// collaborator account. Implementations live outside the sync core; a signing
// refusal surfaces as an error and is treated as SignCancelled.
type ExtrinsicBuilder interface {
	BuildCreateVideo(account string, nonce uint64, p CreateVideoParams) (*SignedExtrinsic, error)
}

// EventDecoder decodes the runtime events attributed to an extrinsic inside
// a finalized block.
type EventDecoder interface {
	DecodeEvents(blockHash string, extrinsicHash string) ([]Event, error)
}

// signerLocks serializes extrinsic submission per collaborator account. The
// node assigns nonces sequentially per account, so two in-flight extrinsics
// from the same signer would race; across accounts there is no ordering.
type signerLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newSignerLocks() *signerLocks {
	return &signerLocks{locks: make(map[string]*sync.Mutex)}
}

func (s *signerLocks) forAccount(account string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[account]
	if !ok {
		l = &sync.Mutex{}
		s.locks[account] = l
	}
	return l
}
