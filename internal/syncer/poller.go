// YouTube-Synch - mirrors YouTube channels onto the Joystream network
// Copyright 2026 Joystream contributors
// SPDX-License-Identifier: GPL-3.0-or-later
// https://github.com/WRadoslaw/youtube-synch

package syncer

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/WRadoslaw/youtube-synch/internal/logging"
	"github.com/WRadoslaw/youtube-synch/internal/metrics"
	"github.com/WRadoslaw/youtube-synch/internal/model"
	"github.com/WRadoslaw/youtube-synch/internal/quota"
	"github.com/WRadoslaw/youtube-synch/internal/registry"
	"github.com/WRadoslaw/youtube-synch/internal/store"
	"github.com/WRadoslaw/youtube-synch/internal/youtube"
)

// errCycleAborted stops the poll fan-out once the sync pool is exhausted.
var errCycleAborted = errors.New("poll cycle aborted")

// Poller reconciles each eligible channel's uploads playlist into the store
// and feeds freshly discovered videos to the download stage.
type Poller struct {
	store    *store.Store
	registry *registry.View
	quota    *quota.Accountant
	yt       youtube.Client
	queues   *Queues
	fanout   int
}

func NewPoller(st *store.Store, reg *registry.View, qa *quota.Accountant, yt youtube.Client, q *Queues, fanout int) *Poller {
	if fanout < 1 {
		fanout = 1
	}
	return &Poller{store: st, registry: reg, quota: qa, yt: yt, queues: q, fanout: fanout}
}

// RunCycle polls every syncable channel once. Quota exhaustion aborts the
// remainder of the cycle and surfaces QuotaLimitExceeded; a per-channel auth
// failure suspends that channel and the cycle continues.
func (p *Poller) RunCycle(ctx context.Context) error {
	start := time.Now()
	channels, err := p.registry.SyncableChannels(ctx)
	if err != nil {
		metrics.SyncCycles.WithLabelValues("error").Inc()
		return err
	}

	log := logging.With().Str("component", "poller").Logger()
	log.Info().Int("channels", len(channels)).Msg("metadata poll cycle started")

	var quotaHit atomic.Bool
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.fanout)
	for _, ch := range channels {
		if gctx.Err() != nil {
			break
		}
		// One unit of the sync pool per channel, reserved before the fetch.
		if !p.quota.Reserve(quota.PoolSync, 1) {
			quotaHit.Store(true)
			break
		}
		ch := ch
		g.Go(func() error {
			if err := p.pollChannel(gctx, ch); err != nil {
				if model.IsKind(err, model.ErrQuotaLimitExceeded) {
					quotaHit.Store(true)
					return errCycleAborted
				}
				log.Warn().Err(err).Str("channelId", ch.ID).Msg("channel poll failed")
			}
			return nil
		})
	}
	err = g.Wait()
	metrics.SyncCycleDuration.Observe(time.Since(start).Seconds())

	if quotaHit.Load() {
		metrics.SyncCycles.WithLabelValues("quota_exhausted").Inc()
		log.Warn().Msg("sync quota exhausted, cycle aborted")
		return model.NewError(model.ErrQuotaLimitExceeded, "sync pool exhausted")
	}
	if err != nil && !errors.Is(err, errCycleAborted) {
		metrics.SyncCycles.WithLabelValues("error").Inc()
		return err
	}
	metrics.SyncCycles.WithLabelValues("completed").Inc()
	log.Info().Dur("took", time.Since(start)).Msg("metadata poll cycle finished")
	return nil
}

func (p *Poller) pollChannel(ctx context.Context, ch *model.Channel) error {
	upstream, err := p.yt.UploadsPlaylistVideos(ctx, ch)
	if err != nil {
		if errors.Is(err, youtube.ErrUnauthorized) {
			p.suspendChannel(ch, "AuthFailed")
			metrics.ChannelsPolled.WithLabelValues("auth_failed").Inc()
			return nil
		}
		metrics.ChannelsPolled.WithLabelValues("error").Inc()
		return err
	}

	seen := make(map[string]bool, len(upstream))
	for _, uv := range upstream {
		seen[uv.ID] = true
		if err := p.reconcileVideo(ch, uv); err != nil {
			return err
		}
	}
	if err := p.reconcileRemoved(ch, seen); err != nil {
		return err
	}
	metrics.ChannelsPolled.WithLabelValues("ok").Inc()
	return nil
}

// reconcileVideo inserts unseen uploads in state New and refreshes mutable
// metadata on tracked ones without regressing state.
func (p *Poller) reconcileVideo(ch *model.Channel, uv *youtube.PlaylistVideo) error {
	existing, err := p.store.GetVideo(ch.ID, uv.ID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		v := &model.Video{
			ID:                   uv.ID,
			ChannelID:            ch.ID,
			Title:                uv.Title,
			Description:          uv.Description,
			Duration:             uv.Duration,
			ThumbnailURL:         uv.ThumbnailURL,
			PublishedAt:          uv.PublishedAt,
			UploadStatus:         uv.UploadStatus,
			PrivacyStatus:        uv.PrivacyStatus,
			LiveBroadcastContent: uv.LiveBroadcastContent,
			License:              uv.License,
			ViewCount:            uv.ViewCount,
			JoystreamChannelID:   ch.JoystreamChannelID,
			Category:             ch.VideoCategory,
			Language:             ch.Language,
			State:                model.VideoStateNew,
		}
		if err := p.store.PutVideo(v); err != nil {
			return err
		}
		if v.Downloadable() {
			return p.queues.Publish(TopicDownload, ch.ID, v.ID)
		}
		return nil

	case err != nil:
		return err
	}

	_, err = p.store.UpdateVideo(ch.ID, uv.ID, func(v *model.Video) error {
		v.Title = uv.Title
		v.PrivacyStatus = uv.PrivacyStatus
		v.UploadStatus = uv.UploadStatus
		v.LiveBroadcastContent = uv.LiveBroadcastContent
		v.ViewCount = uv.ViewCount
		if unavailableUpstream(uv) && canPark(v.State) {
			v.State = model.VideoStateUnavailable
		}
		return nil
	})
	if err != nil {
		return err
	}
	// A previously unprocessed video may have become downloadable.
	if existing.State == model.VideoStateNew && uv.PrivacyStatus == "public" &&
		uv.UploadStatus == "processed" && uv.LiveBroadcastContent == "none" {
		return p.queues.Publish(TopicDownload, ch.ID, uv.ID)
	}
	return nil
}

// reconcileRemoved parks tracked videos that vanished from the uploads
// playlist. Videos that already exist on chain keep their state: the
// on-chain record is the point of no return.
func (p *Poller) reconcileRemoved(ch *model.Channel, seen map[string]bool) error {
	tracked, err := p.store.VideosByChannel(ch.ID)
	if err != nil {
		return err
	}
	for _, v := range tracked {
		if seen[v.ID] || !canPark(v.State) {
			continue
		}
		_, err := p.store.UpdateVideo(ch.ID, v.ID, func(v *model.Video) error {
			if canPark(v.State) {
				v.State = model.VideoStateUnavailable
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// canPark reports whether a video may still move to VideoUnavailable:
// only before an on-chain record exists.
func canPark(s model.VideoState) bool {
	return s == model.VideoStateNew || s == model.VideoStateCreationFailed
}

// unavailableUpstream reports whether the upstream status makes the video
// permanently unsyncable.
func unavailableUpstream(uv *youtube.PlaylistVideo) bool {
	switch uv.PrivacyStatus {
	case "private":
		return true
	}
	switch uv.UploadStatus {
	case "deleted", "rejected", "failed":
		return true
	}
	return false
}

func (p *Poller) suspendChannel(ch *model.Channel, reason string) {
	_, err := p.store.UpdateChannel(ch.UserID, ch.ID, func(c *model.Channel) error {
		c.YppStatus = model.SuspendedStatus(reason)
		return nil
	})
	if err != nil {
		logging.Error().Err(err).Str("channelId", ch.ID).Msg("failed to suspend channel")
		return
	}
	logging.Warn().Str("channelId", ch.ID).Str("reason", reason).Msg("channel suspended")
}
