// YouTube-Synch - mirrors YouTube channels onto the Joystream network
// Copyright 2026 Joystream contributors
// SPDX-License-Identifier: GPL-3.0-or-later
// https://github.com/WRadoslaw/youtube-synch

// Command synchd runs the synchronization daemon: it polls enrolled YouTube
// channels, stages media locally, creates on-chain video records and uploads
// the assets to the Joystream storage fleet.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/WRadoslaw/youtube-synch/internal/chain"
	"github.com/WRadoslaw/youtube-synch/internal/config"
	"github.com/WRadoslaw/youtube-synch/internal/indexer"
	"github.com/WRadoslaw/youtube-synch/internal/logging"
	"github.com/WRadoslaw/youtube-synch/internal/ops"
	"github.com/WRadoslaw/youtube-synch/internal/quota"
	"github.com/WRadoslaw/youtube-synch/internal/registry"
	"github.com/WRadoslaw/youtube-synch/internal/storagenode"
	"github.com/WRadoslaw/youtube-synch/internal/store"
	"github.com/WRadoslaw/youtube-synch/internal/supervisor"
	"github.com/WRadoslaw/youtube-synch/internal/syncer"
	"github.com/WRadoslaw/youtube-synch/internal/youtube"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "synchd:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("configPath", "", "path to the config file (overrides CONFIG_PATH)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	logging.Info().Str("env", cfg.Env).Msg("starting youtube-synch daemon")

	st, err := store.Open(cfg.Directories.State)
	if err != nil {
		return fmt.Errorf("open state store: %w", err)
	}
	defer st.Close()

	budget, err := cfg.Limits.StorageBytes()
	if err != nil {
		return err
	}

	// External clients.
	yt := youtube.NewBreakerClient(youtube.NewHTTPClient(cfg.Youtube))
	qn := indexer.NewClient(cfg.Endpoints.QueryNode)
	signer := chain.NewSidecarSigner(cfg.Endpoints.Signer)
	runtime := chain.NewClient(cfg.Endpoints.JoystreamNodeWs, cfg.Joystream.ChannelCollaborator.Account, signer, signer)
	defer runtime.Close()
	nodes := storagenode.NewClient()
	latencies := storagenode.NewLatencies()

	// Pipeline.
	qa := quota.New(map[string]int{
		quota.PoolSync:   cfg.Limits.DailyApiQuota.Sync,
		quota.PoolSignup: cfg.Limits.DailyApiQuota.Signup,
	})
	reg := registry.New(st)
	queues := syncer.NewQueues(1024)
	ledger := syncer.NewDiskLedger(budget)
	downloader := syncer.NewDownloader(st, syncer.NewYtdlpFetcher(), queues, cfg.Directories.Assets, ledger, cfg.Limits.MaxConcurrentDownloads)
	creator := syncer.NewCreator(st, runtime, queues, cfg.Joystream.ChannelCollaborator.MemberID, cfg.Directories.Assets)
	uploader := syncer.NewUploader(st, qn, nodes, latencies, queues, cfg.Directories.Assets,
		cfg.Limits.PendingUploadBatch, cfg.Limits.MaxConcurrentUploads, downloader.CleanupAssets)
	poller := syncer.NewPoller(st, reg, qa, yt, queues, cfg.Limits.MaxConcurrentPolls)

	manager := syncer.NewManager(syncer.ManagerDeps{
		Store:         st,
		Quota:         qa,
		Poller:        poller,
		Downloader:    downloader,
		Creator:       creator,
		Uploader:      uploader,
		Queues:        queues,
		Nodes:         nodes,
		Latencies:     latencies,
		PollEvery:     time.Duration(cfg.Intervals.YoutubePolling) * time.Minute,
		ProbeEvery:    time.Duration(cfg.Intervals.CheckStorageNodeResponseTimes) * time.Second,
		ShutdownGrace: cfg.Limits.ShutdownGrace,
	})

	// Supervision tree: the pipeline and the ops listener restart
	// independently of each other.
	tree := supervisor.NewTree(slog.Default(), supervisor.DefaultTreeConfig())
	tree.AddPipelineService(supervisor.RunFunc{Name: "sync-manager", Run: manager.Run})
	tree.AddOpsService(supervisor.RunFunc{Name: "ops-listener", Run: ops.NewServer(cfg.HTTPApi.Port, func(ctx context.Context) error {
		_, err := qn.HeadBlock(ctx)
		return err
	}).Run})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = tree.Serve(ctx)
	if report, rerr := tree.UnstoppedServiceReport(); rerr == nil && len(report) > 0 {
		for _, s := range report {
			logging.Warn().Str("service", fmt.Sprint(s.Service)).Msg("service did not stop in time")
		}
	}
	if err != nil && ctx.Err() == nil {
		return err
	}
	logging.Info().Msg("daemon stopped")
	return nil
}
