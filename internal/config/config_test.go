// YouTube-Synch - mirrors YouTube channels onto the Joystream network
// Copyright 2026 Joystream contributors
// SPDX-License-Identifier: GPL-3.0-or-later
// https://github.com/WRadoslaw/youtube-synch

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvKeyRoundTrip(t *testing.T) {
	// For every recognized dotted path, decoding the derived env name
	// yields the original path.
	paths := []string{
		"env",
		"joystream.appId",
		"joystream.channelCollaborator.memberId",
		"endpoints.queryNode",
		"endpoints.joystreamNodeWs",
		"directories.assets",
		"limits.dailyApiQuota.sync",
		"limits.maxConcurrentDownloads",
		"limits.pendingUploadBatch",
		"limits.storage",
		"intervals.youtubePolling",
		"intervals.checkStorageNodeResponseTimes",
		"youtube.clientId",
		"youtube.operatorKey",
		"creatorOnboardingRequirements.minimumSubscribersCount",
		"httpApi.port",
		"logging.level",
	}
	for _, p := range paths {
		encoded := EncodeEnvKey(p)
		decoded := DecodeEnvKey(encoded)
		assert.Equal(t, p, decoded, "round trip of %s via %s", p, encoded)
	}
}

func TestEncodeEnvKeyExamples(t *testing.T) {
	assert.Equal(t, "YT_SYNCH__INTERVALS__YOUTUBE_POLLING", EncodeEnvKey("intervals.youtubePolling"))
	assert.Equal(t, "YT_SYNCH__LIMITS__DAILY_API_QUOTA__SYNC", EncodeEnvKey("limits.dailyApiQuota.sync"))
}

func TestDecodeEnvKeyIgnoresForeignVariables(t *testing.T) {
	assert.Equal(t, "", DecodeEnvKey("PATH"))
	assert.Equal(t, "", DecodeEnvKey("HOME"))
}

func writeTestConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	doc := `
joystream:
  appId: test-app
  channelCollaborator:
    memberId: "123"
    account: 5Collab
endpoints:
  queryNode: http://qn.test/graphql
  joystreamNodeWs: ws://node.test:9944
  signer: http://signer.test:3100
directories:
  assets: /tmp/assets
  state: /tmp/state
youtube:
  clientId: cid
  clientSecret: secret
  operatorKey: op-key
env: dev
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))
	return path
}

func TestLoadLayersFileOverDefaults(t *testing.T) {
	cfg, err := Load(writeTestConfig(t))
	require.NoError(t, err)

	assert.Equal(t, "test-app", cfg.Joystream.AppID)
	assert.Equal(t, "5Collab", cfg.Joystream.ChannelCollaborator.Account)
	// Defaults fill what the file omits.
	assert.Equal(t, 9500, cfg.Limits.DailyApiQuota.Sync)
	assert.Equal(t, 60, cfg.Intervals.YoutubePolling)
	assert.Equal(t, 30*time.Second, cfg.Limits.ShutdownGrace)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	t.Setenv("YT_SYNCH__INTERVALS__YOUTUBE_POLLING", "15")
	t.Setenv("YT_SYNCH__LIMITS__DAILY_API_QUOTA__SYNC", "100")

	cfg, err := Load(writeTestConfig(t))
	require.NoError(t, err)
	assert.Equal(t, 15, cfg.Intervals.YoutubePolling)
	assert.Equal(t, 100, cfg.Limits.DailyApiQuota.Sync)
}

func TestLoadUnsetSentinelRemovesKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	doc := `
joystream:
  channelCollaborator:
    memberId: "123"
    account: 5Collab
youtube:
  clientId: cid
  clientSecret: secret
  operatorKey: op-key
  apiBaseUrl: http://mock-api.test
env: dev
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))
	t.Setenv("YT_SYNCH__YOUTUBE__API_BASE_URL", "off")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "", cfg.Youtube.APIBaseURL)
}

func TestLoadFailsFastWithoutOperatorKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	doc := `
joystream:
  channelCollaborator:
    memberId: "123"
    account: 5Collab
youtube:
  clientId: cid
  clientSecret: secret
env: dev
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OperatorKey")
}

func TestParseByteSize(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"512", 512, false},
		{"10K", 10 << 10, false},
		{"512M", 512 << 20, false},
		{"500G", 500 << 30, false},
		{"2T", 2 << 40, false},
		{"2t", 2 << 40, false},
		{"", 0, true},
		{"G", 0, true},
		{"10X", 0, true},
	}
	for _, tt := range tests {
		got, err := parseByteSize(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "parseByteSize(%q)", tt.in)
			continue
		}
		require.NoError(t, err, "parseByteSize(%q)", tt.in)
		assert.Equal(t, tt.want, got, "parseByteSize(%q)", tt.in)
	}
}
