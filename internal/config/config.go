// YouTube-Synch - mirrors YouTube channels onto the Joystream network
// Copyright 2026 Joystream contributors
// SPDX-License-Identifier: GPL-3.0-or-later
// https://github.com/WRadoslaw/youtube-synch

// Package config loads the daemon configuration from YAML with environment
// overrides. Precedence: env > file > built-in defaults. Every scalar is
// overridable through a variable derived from its dotted path (see env.go).
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the root document. Top-level keys match the deployed schema.
type Config struct {
	Joystream                     JoystreamConfig        `koanf:"joystream"`
	Endpoints                     EndpointsConfig        `koanf:"endpoints"`
	Directories                   DirectoriesConfig      `koanf:"directories"`
	Limits                        LimitsConfig           `koanf:"limits"`
	Intervals                     IntervalsConfig        `koanf:"intervals"`
	Youtube                       YoutubeConfig          `koanf:"youtube"`
	Env                           string                 `koanf:"env" validate:"oneof=dev prod local"`
	CreatorOnboardingRequirements OnboardingRequirements `koanf:"creatorOnboardingRequirements"`
	HTTPApi                       HTTPApiConfig          `koanf:"httpApi"`
	Logging                       LoggingConfig          `koanf:"logging"`
}

// JoystreamConfig identifies the on-chain actors the engine signs for.
type JoystreamConfig struct {
	ChannelCollaborator CollaboratorConfig `koanf:"channelCollaborator"`
	AppID               string             `koanf:"appId"`
}

// CollaboratorConfig is the key holder acting on creators' channels.
type CollaboratorConfig struct {
	MemberID string `koanf:"memberId" validate:"required"`
	Account  string `koanf:"account" validate:"required"`
}

// EndpointsConfig lists the external systems the engine talks to. Signer is
// the signing sidecar holding the collaborator keys.
type EndpointsConfig struct {
	QueryNode       string `koanf:"queryNode" validate:"required,url"`
	JoystreamNodeWs string `koanf:"joystreamNodeWs" validate:"required"`
	Signer          string `koanf:"signer" validate:"required,url"`
}

// DirectoriesConfig holds local filesystem locations.
type DirectoriesConfig struct {
	Assets string `koanf:"assets" validate:"required"`
	State  string `koanf:"state" validate:"required"`
}

// QuotaPools are the daily YouTube API quota caps.
type QuotaPools struct {
	Sync   int `koanf:"sync" validate:"gte=0"`
	Signup int `koanf:"signup" validate:"gte=0"`
}

// LimitsConfig bounds concurrency and resource consumption.
type LimitsConfig struct {
	DailyApiQuota          QuotaPools    `koanf:"dailyApiQuota"`
	MaxConcurrentDownloads int           `koanf:"maxConcurrentDownloads" validate:"gte=1"`
	MaxConcurrentUploads   int           `koanf:"maxConcurrentUploads" validate:"gte=1"`
	MaxConcurrentPolls     int           `koanf:"maxConcurrentPolls" validate:"gte=1"`
	PendingUploadBatch     int           `koanf:"pendingUploadBatch" validate:"gte=1"`
	Storage                string        `koanf:"storage" validate:"required"`
	ShutdownGrace          time.Duration `koanf:"shutdownGrace"`
}

// StorageBytes parses the human-readable storage budget ("500G", "10T").
func (l LimitsConfig) StorageBytes() (int64, error) {
	return parseByteSize(l.Storage)
}

// IntervalsConfig holds the orchestrator schedules.
type IntervalsConfig struct {
	// YoutubePolling is the metadata poll cycle period in minutes.
	YoutubePolling int `koanf:"youtubePolling" validate:"gte=1"`
	// CheckStorageNodeResponseTimes is the probe period in seconds.
	CheckStorageNodeResponseTimes int `koanf:"checkStorageNodeResponseTimes" validate:"gte=1"`
}

// YoutubeConfig configures the metadata API client. OperatorKey authorizes
// operator actions; it is read from here, never from the ambient process
// environment, and loading fails fast when it is absent.
type YoutubeConfig struct {
	ClientID          string `koanf:"clientId" validate:"required"`
	ClientSecret      string `koanf:"clientSecret" validate:"required"`
	OperatorKey       string `koanf:"operatorKey" validate:"required"`
	APIBaseURL        string `koanf:"apiBaseUrl"`
	MaxResultsPerPage int    `koanf:"maxResultsPerPage" validate:"gte=1,lte=50"`
}

// OnboardingRequirements gate creator enrollment (consumed by the
// onboarding surface; carried here because it is part of the schema).
type OnboardingRequirements struct {
	MinimumSubscribersCount int `koanf:"minimumSubscribersCount"`
	MinimumVideosCount      int `koanf:"minimumVideosCount"`
	MinimumChannelAgeHours  int `koanf:"minimumChannelAgeHours"`
}

// HTTPApiConfig configures the ops listener.
type HTTPApiConfig struct {
	Port int `koanf:"port" validate:"gte=1,lte=65535"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

// Validate checks the loaded document.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}
	if _, err := c.Limits.StorageBytes(); err != nil {
		return fmt.Errorf("config validation: limits.storage: %w", err)
	}
	return nil
}

func defaultConfig() *Config {
	return &Config{
		Endpoints: EndpointsConfig{
			QueryNode:       "http://localhost:8081/graphql",
			JoystreamNodeWs: "ws://localhost:9944",
			Signer:          "http://localhost:3100",
		},
		Directories: DirectoriesConfig{
			Assets: "./assets",
			State:  "./state",
		},
		Limits: LimitsConfig{
			DailyApiQuota:          QuotaPools{Sync: 9500, Signup: 500},
			MaxConcurrentDownloads: 10,
			MaxConcurrentUploads:   10,
			MaxConcurrentPolls:     1,
			PendingUploadBatch:     100,
			Storage:                "500G",
			ShutdownGrace:          30 * time.Second,
		},
		Intervals: IntervalsConfig{
			YoutubePolling:                60,
			CheckStorageNodeResponseTimes: 300,
		},
		Youtube: YoutubeConfig{
			MaxResultsPerPage: 50,
		},
		Env: "prod",
		HTTPApi: HTTPApiConfig{
			Port: 3001,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// parseByteSize reads sizes like "512M", "500G", "2T" or a plain byte count.
func parseByteSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty size")
	}
	mult := int64(1)
	switch unit := s[len(s)-1]; unit {
	case 'K', 'k':
		mult = 1 << 10
	case 'M', 'm':
		mult = 1 << 20
	case 'G', 'g':
		mult = 1 << 30
	case 'T', 't':
		mult = 1 << 40
	default:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid size %q", s)
		}
		return n, nil
	}
	n, err := strconv.ParseInt(s[:len(s)-1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q", s)
	}
	return n * mult, nil
}
