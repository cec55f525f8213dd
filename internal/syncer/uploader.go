// YouTube-Synch - mirrors YouTube channels onto the Joystream network
// Copyright 2026 Joystream contributors
// SPDX-License-Identifier: GPL-3.0-or-later
// https://github.com/WRadoslaw/youtube-synch

package syncer

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/WRadoslaw/youtube-synch/internal/indexer"
	"github.com/WRadoslaw/youtube-synch/internal/logging"
	"github.com/WRadoslaw/youtube-synch/internal/metrics"
	"github.com/WRadoslaw/youtube-synch/internal/model"
	"github.com/WRadoslaw/youtube-synch/internal/storagenode"
	"github.com/WRadoslaw/youtube-synch/internal/store"
)

// BagLookup resolves a bag's candidate storage buckets. Satisfied by the
// indexer client; faked in tests.
type BagLookup interface {
	StorageBucketsForBag(ctx context.Context, bagID string) ([]indexer.StorageBucket, error)
}

// AssetUploader streams one asset to a storage node. Satisfied by the
// storagenode client.
type AssetUploader interface {
	UploadFile(ctx context.Context, endpoint, bagID, dataObjectID, path string) error
}

// Uploader drains the upload topic and pushes staged assets to the storage
// fleet, failing over across ranked buckets.
type Uploader struct {
	store     *store.Store
	bags      BagLookup
	nodes     AssetUploader
	latencies *storagenode.Latencies
	queues    *Queues
	assetsDir string
	batch     int
	sem       *semaphore.Weighted

	// cleanup releases a video's staged bytes after a successful upload.
	cleanup func(videoID string, size int64)
}

func NewUploader(st *store.Store, bags BagLookup, nodes AssetUploader, lat *storagenode.Latencies, q *Queues, assetsDir string, batch, parallelism int, cleanup func(string, int64)) *Uploader {
	if parallelism < 1 {
		parallelism = 1
	}
	if batch < 1 {
		batch = 1
	}
	if cleanup == nil {
		cleanup = func(string, int64) {}
	}
	return &Uploader{
		store:     st,
		bags:      bags,
		nodes:     nodes,
		latencies: lat,
		queues:    q,
		assetsDir: assetsDir,
		batch:     batch,
		sem:       semaphore.NewWeighted(int64(parallelism)),
		cleanup:   cleanup,
	}
}

// Run consumes an already-open upload subscription until it closes.
func (u *Uploader) Run(ctx context.Context, msgs <-chan *message.Message) error {
	var wg sync.WaitGroup
	for msg := range msgs {
		channelID, videoID, err := splitVideoKey(msg.Payload)
		if err != nil {
			logging.Error().Err(err).Msg("dropping malformed upload message")
			msg.Ack()
			continue
		}
		if err := u.sem.Acquire(ctx, 1); err != nil {
			msg.Ack()
			break
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer u.sem.Release(1)
			u.handle(ctx, channelID, videoID)
			msg.Ack()
		}()
	}
	wg.Wait()
	return nil
}

// EnqueuePending republishes videos owing an upload: UploadFailed first,
// then VideoCreated, updatedAt order within each bucket, capped by the
// configured batch.
func (u *Uploader) EnqueuePending(ctx context.Context) error {
	failed, err := u.store.ListVideosInState(model.VideoStateUploadFailed, u.batch, true)
	if err != nil {
		return err
	}
	remaining := u.batch - len(failed)
	var created []*model.Video
	if remaining > 0 {
		created, err = u.store.ListVideosInState(model.VideoStateCreated, remaining, true)
		if err != nil {
			return err
		}
	}
	for _, v := range append(failed, created...) {
		if err := u.queues.Publish(TopicUpload, v.ChannelID, v.ID); err != nil {
			return err
		}
	}
	return nil
}

func (u *Uploader) handle(ctx context.Context, channelID, videoID string) {
	log := logging.With().Str("component", "uploader").Str("channelId", channelID).Str("videoId", videoID).Logger()

	v, err := u.store.GetVideo(channelID, videoID)
	if err != nil {
		log.Warn().Err(err).Msg("video lookup failed")
		return
	}
	if v.State != model.VideoStateCreated && v.State != model.VideoStateUploadFailed {
		return
	}
	if v.JoystreamVideo == nil || len(v.JoystreamVideo.AssetIDs) < 2 {
		log.Error().Msg("video pending upload without on-chain asset ids")
		return
	}

	ch, err := u.store.GetChannelByID(channelID)
	if err != nil {
		log.Warn().Err(err).Msg("channel lookup failed")
		return
	}
	if ch.YppStatus.Suspended() || ch.YppStatus == model.YppOptedOut {
		return
	}

	assets, err := locateAssets(filepath.Join(u.assetsDir, videoID), videoID)
	if err != nil {
		log.Warn().Err(err).Msg("assets not staged, deferring upload")
		return
	}

	bagID := fmt.Sprintf("dynamic:channel:%s", v.JoystreamChannelID)
	buckets, err := u.bags.StorageBucketsForBag(ctx, bagID)
	if err != nil {
		log.Warn().Err(err).Msg("bucket resolution failed, will retry")
		return
	}
	ranked := storagenode.Rank(buckets, u.latencies)
	if len(ranked) == 0 {
		log.Warn().Str("bag", bagID).Msg("no candidate storage buckets")
		u.markUploadFailed(v, log)
		return
	}
	for _, b := range ranked {
		u.latencies.Touch(b.Endpoint)
	}

	mediaID, thumbID := v.JoystreamVideo.AssetIDs[0], v.JoystreamVideo.AssetIDs[1]
	if err := u.uploadWithFailover(ctx, ranked, bagID, mediaID, assets.MediaPath, thumbID, assets.ThumbnailPath, log); err != nil {
		metrics.Uploads.WithLabelValues("failed").Inc()
		log.Warn().Err(err).Msg("all candidate buckets exhausted")
		u.markUploadFailed(v, log)
		return
	}

	updated, err := u.store.UpdateVideo(channelID, videoID, func(v *model.Video) error {
		v.State = model.VideoStateUploadSucceeded
		v.MediaSize = assets.MediaSize
		v.Retries = 0
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("UploadSucceeded state write failed")
		return
	}
	metrics.Uploads.WithLabelValues("ok").Inc()
	metrics.UploadedBytes.Add(float64(assets.MediaSize))
	log.Info().Int64("bytes", assets.MediaSize).Msg("assets uploaded")

	if updated.HistoricalFor(ch) {
		if _, err := u.store.UpdateChannel(ch.UserID, ch.ID, func(c *model.Channel) error {
			c.HistoricalVideoSyncedSize += assets.MediaSize
			return nil
		}); err != nil {
			log.Error().Err(err).Msg("historicalVideoSyncedSize update failed")
		}
	}

	u.cleanup(videoID, assets.MediaSize)
}

// uploadWithFailover pushes media then thumbnail to one bucket, moving to
// the next candidate when either asset is refused. A bucket must take both
// assets; mixing buckets within one video is not attempted.
func (u *Uploader) uploadWithFailover(ctx context.Context, ranked []indexer.StorageBucket, bagID, mediaID, mediaPath, thumbID, thumbPath string, log zerolog.Logger) error {
	var lastErr error
	for i, b := range ranked {
		if i > 0 {
			metrics.StorageFailovers.Inc()
		}
		if err := u.nodes.UploadFile(ctx, b.Endpoint, bagID, mediaID, mediaPath); err != nil {
			log.Warn().Err(err).Str("bucket", b.ID).Msg("media upload failed, failing over")
			lastErr = err
			continue
		}
		if thumbPath != "" {
			if err := u.nodes.UploadFile(ctx, b.Endpoint, bagID, thumbID, thumbPath); err != nil {
				log.Warn().Err(err).Str("bucket", b.ID).Msg("thumbnail upload failed, failing over")
				lastErr = err
				continue
			}
		}
		return nil
	}
	if lastErr == nil {
		lastErr = model.NewError(model.ErrNoActiveStorageProvider, "no bucket accepted the assets")
	}
	return model.WrapError(model.ErrNoActiveStorageProvider, "upload failover exhausted", lastErr)
}

func (u *Uploader) markUploadFailed(v *model.Video, log zerolog.Logger) {
	if _, err := u.store.UpdateVideo(v.ChannelID, v.ID, func(v *model.Video) error {
		v.State = model.VideoStateUploadFailed
		v.Retries++
		return nil
	}); err != nil {
		log.Error().Err(err).Msg("UploadFailed state write failed")
	}
}
