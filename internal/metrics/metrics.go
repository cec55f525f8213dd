// YouTube-Synch - mirrors YouTube channels onto the Joystream network
// Copyright 2026 Joystream contributors
// SPDX-License-Identifier: GPL-3.0-or-later
// https://github.com/WRadoslaw/youtube-synch

// Package metrics defines the Prometheus collectors exposed on the ops
// listener. All collectors are registered with the default registry at init
// via promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// VideosByState tracks the number of tracked videos per lifecycle state.
	VideosByState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ytsynch_videos_by_state",
		Help: "Number of tracked videos per lifecycle state",
	}, []string{"state"})

	// SyncCycles counts completed metadata poll cycles by outcome.
	SyncCycles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ytsynch_sync_cycles_total",
		Help: "Metadata poll cycles by outcome (completed, quota_exhausted, error)",
	}, []string{"outcome"})

	// SyncCycleDuration observes wall time of a full metadata poll cycle.
	SyncCycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ytsynch_sync_cycle_duration_seconds",
		Help:    "Duration of a full metadata poll cycle",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})

	// ChannelsPolled counts per-channel poll attempts by result.
	ChannelsPolled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ytsynch_channels_polled_total",
		Help: "Per-channel poll attempts by result (ok, auth_failed, error)",
	}, []string{"result"})

	// QuotaCap is the configured daily cap per quota pool.
	QuotaCap = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ytsynch_quota_cap",
		Help: "Configured daily cap per quota pool",
	}, []string{"pool"})

	// QuotaUsed is today's consumption per quota pool.
	QuotaUsed = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ytsynch_quota_used",
		Help: "Units consumed today per quota pool",
	}, []string{"pool"})

	// DownloadedBytes counts media bytes staged into the asset directory.
	DownloadedBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ytsynch_downloaded_bytes_total",
		Help: "Media bytes staged into the local asset directory",
	})

	// Downloads counts download attempts by result.
	Downloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ytsynch_downloads_total",
		Help: "Video download attempts by result (ok, unavailable, transient)",
	}, []string{"result"})

	// ExtrinsicOutcomes counts createVideo submissions by outcome kind.
	ExtrinsicOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ytsynch_extrinsic_outcomes_total",
		Help: "createVideo extrinsic submissions by outcome kind",
	}, []string{"outcome"})

	// UploadedBytes counts asset bytes accepted by storage nodes.
	UploadedBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ytsynch_uploaded_bytes_total",
		Help: "Asset bytes accepted by the storage fleet",
	})

	// Uploads counts per-video upload attempts by result.
	Uploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ytsynch_uploads_total",
		Help: "Per-video upload attempts by result (ok, failed)",
	}, []string{"result"})

	// StorageFailovers counts bucket failovers during asset upload.
	StorageFailovers = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ytsynch_storage_failovers_total",
		Help: "Bucket failovers during asset upload",
	})

	// StorageProbeLatency is the measured response time per storage bucket.
	StorageProbeLatency = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ytsynch_storage_probe_latency_seconds",
		Help: "Measured response time per storage bucket endpoint",
	}, []string{"bucket"})

	// CircuitBreakerState mirrors the YouTube client breaker state
	// (0 closed, 1 half-open, 2 open).
	CircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ytsynch_circuit_breaker_state",
		Help: "Circuit breaker state (0 closed, 1 half-open, 2 open)",
	}, []string{"name"})

	// CircuitBreakerRequests counts requests through each breaker by result.
	CircuitBreakerRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ytsynch_circuit_breaker_requests_total",
		Help: "Requests through each circuit breaker by result",
	}, []string{"name", "result"})
)
