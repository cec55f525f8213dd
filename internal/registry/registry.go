// YouTube-Synch - mirrors YouTube channels onto the Joystream network
// Copyright 2026 Joystream contributors
// SPDX-License-Identifier: GPL-3.0-or-later
// https://github.com/WRadoslaw/youtube-synch

// Package registry projects the channel table into the set of channels the
// sync pipeline is allowed to touch, in a fair order.
package registry

import (
	"context"
	"sort"
	"sync"

	"github.com/WRadoslaw/youtube-synch/internal/model"
	"github.com/WRadoslaw/youtube-synch/internal/store"
)

// View enumerates sync candidates. Eligibility is the conjunction of both
// ingestion flags with a Verified participation status; Suspended and
// OptedOut channels never appear. Ordering is lastActedAt ascending, with a
// round-robin cursor so the same channel does not head every cycle.
type View struct {
	store *store.Store

	mu     sync.Mutex
	cursor int
}

func New(st *store.Store) *View {
	return &View{store: st}
}

// SyncableChannels returns the eligible channels for one sync cycle. Each
// call advances the rotation cursor.
func (v *View) SyncableChannels(ctx context.Context) ([]*model.Channel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	all, err := v.store.ListChannels()
	if err != nil {
		return nil, err
	}

	eligible := make([]*model.Channel, 0, len(all))
	for _, ch := range all {
		if ch.Syncable() {
			eligible = append(eligible, ch)
		}
	}
	sort.Slice(eligible, func(i, j int) bool {
		if !eligible[i].LastActedAt.Equal(eligible[j].LastActedAt) {
			return eligible[i].LastActedAt.Before(eligible[j].LastActedAt)
		}
		return eligible[i].ID < eligible[j].ID
	})

	if len(eligible) == 0 {
		return eligible, nil
	}

	v.mu.Lock()
	offset := v.cursor % len(eligible)
	v.cursor++
	v.mu.Unlock()

	rotated := make([]*model.Channel, 0, len(eligible))
	rotated = append(rotated, eligible[offset:]...)
	rotated = append(rotated, eligible[:offset]...)
	return rotated, nil
}
