// YouTube-Synch - mirrors YouTube channels onto the Joystream network
// Copyright 2026 Joystream contributors
// SPDX-License-Identifier: GPL-3.0-or-later
// https://github.com/WRadoslaw/youtube-synch

package config

import (
	"strings"
	"unicode"
)

// EnvPrefix is prepended to every derived environment variable name.
const EnvPrefix = "YT_SYNCH__"

// EncodeEnvKey derives the environment variable name for a dotted config
// path: each segment is converted to screaming snake case, segments join
// with "__" and the result carries the EnvPrefix.
//
//	intervals.youtubePolling -> YT_SYNCH__INTERVALS__YOUTUBE_POLLING
//	youtube.apiBaseUrl       -> YT_SYNCH__YOUTUBE__API_BASE_URL
func EncodeEnvKey(path string) string {
	segments := strings.Split(path, ".")
	for i, seg := range segments {
		segments[i] = camelToScreamingSnake(seg)
	}
	return EnvPrefix + strings.Join(segments, "__")
}

// DecodeEnvKey is the inverse of EncodeEnvKey. It returns the dotted config
// path, or "" for names that do not carry the prefix (so unrelated process
// environment never pollutes the config).
func DecodeEnvKey(name string) string {
	if !strings.HasPrefix(name, EnvPrefix) {
		return ""
	}
	segments := strings.Split(strings.TrimPrefix(name, EnvPrefix), "__")
	for i, seg := range segments {
		segments[i] = screamingSnakeToCamel(seg)
	}
	return strings.Join(segments, ".")
}

func camelToScreamingSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) && i > 0 {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

func screamingSnakeToCamel(s string) string {
	words := strings.Split(strings.ToLower(s), "_")
	for i := 1; i < len(words); i++ {
		if words[i] == "" {
			continue
		}
		words[i] = strings.ToUpper(words[i][:1]) + words[i][1:]
	}
	return strings.Join(words, "")
}
