// YouTube-Synch - mirrors YouTube channels onto the Joystream network
// Copyright 2026 Joystream contributors
// SPDX-License-Identifier: GPL-3.0-or-later
// https://github.com/WRadoslaw/youtube-synch

package registry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/WRadoslaw/youtube-synch/internal/model"
	"github.com/WRadoslaw/youtube-synch/internal/store"
)

func seedChannel(t *testing.T, st *store.Store, id string, status model.YppStatus, lastActed time.Time) {
	t.Helper()
	require.NoError(t, st.PutChannel(&model.Channel{
		ID:                     id,
		UserID:                 "user-" + id,
		ShouldBeIngested:       true,
		AllowOperatorIngestion: true,
		YppStatus:              status,
		LastActedAt:            lastActed,
	}))
}

func TestSyncableChannelsExcludesIneligible(t *testing.T) {
	st, err := store.Open(t.TempDir())
	require.NoError(t, err)
	defer st.Close()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	seedChannel(t, st, "ok", model.VerifiedStatus("Bronze"), base)
	seedChannel(t, st, "suspended", model.SuspendedStatus("Legal"), base)
	seedChannel(t, st, "opted-out", model.YppOptedOut, base)
	seedChannel(t, st, "unverified", model.YppUnverified, base)

	// Flags off despite verification.
	require.NoError(t, st.PutChannel(&model.Channel{
		ID: "no-ingest", UserID: "u", YppStatus: model.VerifiedStatus("Gold"),
		ShouldBeIngested: false, AllowOperatorIngestion: true,
	}))

	v := New(st)
	got, err := v.SyncableChannels(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "ok", got[0].ID)
}

func TestSyncableChannelsOrderAndRotation(t *testing.T) {
	st, err := store.Open(t.TempDir())
	require.NoError(t, err)
	defer st.Close()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	seedChannel(t, st, "c", model.VerifiedStatus("Bronze"), base.Add(3*time.Hour))
	seedChannel(t, st, "a", model.VerifiedStatus("Bronze"), base.Add(time.Hour))
	seedChannel(t, st, "b", model.VerifiedStatus("Bronze"), base.Add(2*time.Hour))

	v := New(st)

	first, err := v.SyncableChannels(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, ids(first))

	// The next cycle rotates the head.
	second, err := v.SyncableChannels(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"b", "c", "a"}, ids(second))

	third, err := v.SyncableChannels(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"c", "a", "b"}, ids(third))
}

func ids(chans []*model.Channel) []string {
	out := make([]string, len(chans))
	for i, c := range chans {
		out[i] = c.ID
	}
	return out
}
