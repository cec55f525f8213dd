// YouTube-Synch - mirrors YouTube channels onto the Joystream network
// Copyright 2026 Joystream contributors
// SPDX-License-Identifier: GPL-3.0-or-later
// https://github.com/WRadoslaw/youtube-synch

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar overrides the config file location when the --configPath
// flag is not given.
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultConfigPath is the fallback config file location.
const DefaultConfigPath = "./config.yml"

// unsetValues remove a key when given as an env override.
var unsetValues = map[string]struct{}{
	"off":       {},
	"null":      {},
	"undefined": {},
}

// Load reads the configuration with layered precedence:
// defaults, then the config file, then YT_SYNCH__* environment overrides.
// flagPath is the --configPath value ("" when not given); file resolution
// falls back to $CONFIG_PATH and then ./config.yml.
func Load(flagPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := resolveConfigPath(flagPath); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", DecodeEnvKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	normalizeOverrides(k)

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolveConfigPath applies the path precedence: flag, CONFIG_PATH env,
// ./config.yml. An empty result means "defaults plus env only", which is
// valid as long as validation passes.
func resolveConfigPath(flagPath string) string {
	if flagPath != "" {
		return flagPath
	}
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		return envPath
	}
	if _, err := os.Stat(DefaultConfigPath); err == nil {
		return DefaultConfigPath
	}
	return ""
}

// normalizeOverrides post-processes env-sourced values: the sentinel strings
// off/null/undefined unset the key, and JSON-looking strings are decoded so
// arrays and polymorphic options can be provided as JSON.
func normalizeOverrides(k *koanf.Koanf) {
	for path, val := range k.All() {
		s, ok := val.(string)
		if !ok {
			continue
		}
		if _, unset := unsetValues[strings.ToLower(s)]; unset {
			k.Delete(path)
			continue
		}
		trimmed := strings.TrimSpace(s)
		if strings.HasPrefix(trimmed, "[") || strings.HasPrefix(trimmed, "{") {
			var decoded any
			if err := json.Unmarshal([]byte(trimmed), &decoded); err == nil {
				_ = k.Set(path, decoded)
			}
		}
	}
}
