// YouTube-Synch - mirrors YouTube channels onto the Joystream network
// Copyright 2026 Joystream contributors
// SPDX-License-Identifier: GPL-3.0-or-later
// https://github.com/WRadoslaw/youtube-synch

package syncer

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/require"

	"github.com/WRadoslaw/youtube-synch/internal/model"
	"github.com/WRadoslaw/youtube-synch/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func seedSyncableChannel(t *testing.T, st *store.Store, id string) *model.Channel {
	t.Helper()
	ch := &model.Channel{
		ID:                     id,
		UserID:                 "user-" + id,
		JoystreamChannelID:     "77",
		VideoCategory:          "science",
		Language:               "en",
		ShouldBeIngested:       true,
		AllowOperatorIngestion: true,
		YppStatus:              model.VerifiedStatus("Bronze"),
	}
	require.NoError(t, st.PutChannel(ch))
	stored, err := st.GetChannelByID(id)
	require.NoError(t, err)
	return stored
}

// stageAssets fakes a completed download: media and thumbnail files under
// assetsDir/<videoID>/.
func stageAssets(t *testing.T, assetsDir, videoID, media string) {
	t.Helper()
	dir := filepath.Join(assetsDir, videoID)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, videoID+".mp4"), []byte(media), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, videoID+".jpg"), []byte("thumb"), 0o600))
}

// receiveKey reads one message off a stage topic and acks it.
func receiveKey(t *testing.T, msgs <-chan *message.Message) (channelID, videoID string) {
	t.Helper()
	select {
	case msg := <-msgs:
		msg.Ack()
		channelID, videoID, err := splitVideoKey(msg.Payload)
		require.NoError(t, err)
		return channelID, videoID
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a queue message")
		return "", ""
	}
}

func assertNoMessage(t *testing.T, msgs <-chan *message.Message) {
	t.Helper()
	select {
	case msg := <-msgs:
		t.Fatalf("unexpected message %q", msg.Payload)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestVideoKeyRoundTrip(t *testing.T) {
	ch, vid, err := splitVideoKey([]byte(videoKey("chanA", "vid1")))
	require.NoError(t, err)
	require.Equal(t, "chanA", ch)
	require.Equal(t, "vid1", vid)

	for _, bad := range []string{"", "chanA", "chanA/", "/vid1"} {
		_, _, err := splitVideoKey([]byte(bad))
		require.Error(t, err, "payload %q", bad)
	}
}
