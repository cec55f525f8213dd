// YouTube-Synch - mirrors YouTube channels onto the Joystream network
// Copyright 2026 Joystream contributors
// SPDX-License-Identifier: GPL-3.0-or-later
// https://github.com/WRadoslaw/youtube-synch

// Package syncer hosts the synchronization pipeline: metadata poller,
// download workers, on-chain creator, uploader and the orchestrator that
// schedules them. Stages communicate through bounded queues that carry only
// video primary keys; every stage re-reads the authoritative record before
// acting on a message.
package syncer

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/WRadoslaw/youtube-synch/internal/logging"
	"github.com/WRadoslaw/youtube-synch/internal/metrics"
	"github.com/WRadoslaw/youtube-synch/internal/model"
	"github.com/WRadoslaw/youtube-synch/internal/quota"
	"github.com/WRadoslaw/youtube-synch/internal/storagenode"
	"github.com/WRadoslaw/youtube-synch/internal/store"
)

// Manager is the orchestrator: it owns the schedules, seeds retry work from
// the state index, and coordinates graceful drain on shutdown.
type Manager struct {
	store      *store.Store
	quota      *quota.Accountant
	poller     *Poller
	downloader *Downloader
	creator    *Creator
	uploader   *Uploader
	queues     *Queues
	nodes      *storagenode.Client
	latencies  *storagenode.Latencies

	pollEvery     time.Duration
	probeEvery    time.Duration
	shutdownGrace time.Duration
}

// ManagerDeps collects the orchestrator's collaborators.
type ManagerDeps struct {
	Store      *store.Store
	Quota      *quota.Accountant
	Poller     *Poller
	Downloader *Downloader
	Creator    *Creator
	Uploader   *Uploader
	Queues     *Queues
	Nodes      *storagenode.Client
	Latencies  *storagenode.Latencies

	PollEvery     time.Duration
	ProbeEvery    time.Duration
	ShutdownGrace time.Duration
}

func NewManager(d ManagerDeps) *Manager {
	return &Manager{
		store:         d.Store,
		quota:         d.Quota,
		poller:        d.Poller,
		downloader:    d.Downloader,
		creator:       d.Creator,
		uploader:      d.Uploader,
		queues:        d.Queues,
		nodes:         d.Nodes,
		latencies:     d.Latencies,
		pollEvery:     d.PollEvery,
		probeEvery:    d.ProbeEvery,
		shutdownGrace: d.ShutdownGrace,
	}
}

// Run starts the pipeline and blocks until ctx is cancelled and the drain
// completes (or the grace period expires).
func (m *Manager) Run(ctx context.Context) error {
	log := logging.With().Str("component", "orchestrator").Logger()

	if err := m.downloader.RescanDiskUsage(); err != nil {
		log.Warn().Err(err).Msg("disk usage rescan failed")
	}

	// Stages run on their own context so they can finish in-flight work
	// after ctx is cancelled; the drain below closes the queues, which ends
	// their consume loops.
	stageCtx, stopStages := context.WithCancel(context.Background())
	defer stopStages()

	// The in-process pub/sub drops messages published with no subscriber, so
	// every stage subscription must be open before the first cycle publishes.
	downloads, err := m.queues.Subscribe(stageCtx, TopicDownload)
	if err != nil {
		return err
	}
	creates, err := m.queues.Subscribe(stageCtx, TopicCreate)
	if err != nil {
		return err
	}
	uploads, err := m.queues.Subscribe(stageCtx, TopicUpload)
	if err != nil {
		return err
	}

	g, _ := errgroup.WithContext(stageCtx)
	g.Go(func() error { return m.downloader.Run(stageCtx, downloads) })
	g.Go(func() error { return m.creator.Run(stageCtx, creates) })
	g.Go(func() error { return m.uploader.Run(stageCtx, uploads) })

	pollTicker := time.NewTicker(m.pollEvery)
	defer pollTicker.Stop()
	probeTicker := time.NewTicker(m.probeEvery)
	defer probeTicker.Stop()
	midnight := time.NewTimer(untilNextUTCMidnight(time.Now()))
	defer midnight.Stop()

	m.runCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			return m.drain(g, log)
		case <-pollTicker.C:
			m.runCycle(ctx)
		case <-probeTicker.C:
			m.probeStorageNodes(ctx)
		case <-midnight.C:
			m.quota.Reset()
			log.Info().Msg("daily quota pools reset")
			midnight.Reset(untilNextUTCMidnight(time.Now()))
		}
	}
}

// runCycle executes one orchestration round: refresh the registry-driven
// halts, poll metadata, then reseed every stage from the state index so work
// dropped by full queues or a previous crash is rediscovered.
func (m *Manager) runCycle(ctx context.Context) {
	m.creator.ClearHalts()

	if err := m.poller.RunCycle(ctx); err != nil {
		if model.IsKind(err, model.ErrQuotaLimitExceeded) {
			// The cycle aborts but retry seeding below needs no quota.
			logging.Warn().Msg("poll cycle skipped on exhausted quota")
		} else {
			logging.Err(err).Msg("poll cycle failed")
		}
	}
	if err := m.downloader.EnqueueUnsynced(ctx); err != nil {
		logging.Err(err).Msg("unsynced reseed failed")
	}
	if err := m.uploader.EnqueuePending(ctx); err != nil {
		logging.Err(err).Msg("pending upload reseed failed")
	}
	m.refreshStateGauges()
}

func (m *Manager) probeStorageNodes(ctx context.Context) {
	for _, endpoint := range m.latencies.Known() {
		if ctx.Err() != nil {
			return
		}
		if _, err := m.nodes.ProbeResponseTime(ctx, endpoint, m.latencies); err != nil {
			logging.Debug().Err(err).Str("endpoint", endpoint).Msg("storage node probe failed")
		}
	}
}

func (m *Manager) refreshStateGauges() {
	for _, state := range model.AllVideoStates() {
		n, err := m.store.CountVideosInState(state)
		if err != nil {
			return
		}
		metrics.VideosByState.WithLabelValues(string(state)).Set(float64(n))
	}
}

// drain stops admissions and waits for in-flight work, bounded by the grace
// period. Closing the queues ends every stage's consume loop once its
// current messages are handled; state already written stays safe either way.
func (m *Manager) drain(g *errgroup.Group, log zerolog.Logger) error {
	log.Info().Dur("grace", m.shutdownGrace).Msg("draining pipeline")

	if err := m.queues.Close(); err != nil {
		log.Warn().Err(err).Msg("queue close failed")
	}

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	select {
	case err := <-done:
		log.Info().Msg("pipeline drained")
		return err
	case <-time.After(m.shutdownGrace):
		log.Warn().Msg("drain grace expired, abandoning in-flight work")
		return nil
	}
}

func untilNextUTCMidnight(now time.Time) time.Duration {
	next := now.UTC().Truncate(24 * time.Hour).Add(24 * time.Hour)
	return next.Sub(now.UTC())
}
