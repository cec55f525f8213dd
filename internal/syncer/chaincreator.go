// YouTube-Synch - mirrors YouTube channels onto the Joystream network
// Copyright 2026 Joystream contributors
// SPDX-License-Identifier: GPL-3.0-or-later
// https://github.com/WRadoslaw/youtube-synch

package syncer

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"

	"github.com/WRadoslaw/youtube-synch/internal/chain"
	"github.com/WRadoslaw/youtube-synch/internal/logging"
	"github.com/WRadoslaw/youtube-synch/internal/metrics"
	"github.com/WRadoslaw/youtube-synch/internal/model"
	"github.com/WRadoslaw/youtube-synch/internal/store"
)

// Creator drains the create topic and issues createVideo extrinsics. The
// runtime client serializes per collaborator account underneath; this stage
// owns outcome handling and the resulting state transitions. A state is only
// written after the node's acknowledgement, so a crash between submit and
// write is resolved by the duplicate check on the next attempt.
type Creator struct {
	store          *store.Store
	runtime        chain.Runtime
	queues         *Queues
	collaboratorID string
	assetsDir      string

	// halted channels hit VoucherSizeLimitExceeded; cleared when the next
	// poll cycle refreshes the registry view.
	mu     sync.Mutex
	halted map[string]bool
}

func NewCreator(st *store.Store, rt chain.Runtime, q *Queues, collaboratorID, assetsDir string) *Creator {
	return &Creator{
		store:          st,
		runtime:        rt,
		queues:         q,
		collaboratorID: collaboratorID,
		assetsDir:      assetsDir,
		halted:         make(map[string]bool),
	}
}

// Run consumes an already-open create subscription until it closes.
func (c *Creator) Run(ctx context.Context, msgs <-chan *message.Message) error {
	for msg := range msgs {
		channelID, videoID, err := splitVideoKey(msg.Payload)
		if err != nil {
			logging.Error().Err(err).Msg("dropping malformed create message")
			msg.Ack()
			continue
		}
		c.handle(ctx, channelID, videoID)
		msg.Ack()
	}
	return nil
}

// ClearHalts re-admits voucher-limited channels. Called when the registry
// view refreshes at the top of each poll cycle.
func (c *Creator) ClearHalts() {
	c.mu.Lock()
	c.halted = make(map[string]bool)
	c.mu.Unlock()
}

func (c *Creator) isHalted(channelID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.halted[channelID]
}

func (c *Creator) halt(channelID string) {
	c.mu.Lock()
	c.halted[channelID] = true
	c.mu.Unlock()
}

func (c *Creator) handle(ctx context.Context, channelID, videoID string) {
	log := logging.With().Str("component", "chain-creator").Str("channelId", channelID).Str("videoId", videoID).Logger()

	if c.isHalted(channelID) {
		return
	}

	v, err := c.store.GetVideo(channelID, videoID)
	if err != nil {
		log.Warn().Err(err).Msg("video lookup failed")
		return
	}
	// Duplicate guard: an on-chain record may already exist from a crashed
	// run; one upstream video maps to at most one on-chain video.
	if v.State != model.VideoStateNew && v.State != model.VideoStateCreationFailed {
		return
	}
	if v.JoystreamVideo != nil {
		return
	}

	ch, err := c.store.GetChannelByID(channelID)
	if err != nil {
		log.Warn().Err(err).Msg("channel lookup failed")
		return
	}
	// Suspension is terminal for the pipeline; the unauthorized-sync flag
	// never overrides it.
	if ch.YppStatus.Suspended() || ch.YppStatus == model.YppOptedOut {
		return
	}
	if !ch.Syncable() && !ch.PerformUnauthorizedSync {
		return
	}

	assets, err := locateAssets(c.assetDir(videoID), videoID)
	if err != nil {
		log.Warn().Err(err).Msg("assets not staged, skipping create")
		return
	}

	thumbSize := int64(0)
	if assets.ThumbnailPath != "" {
		if info, err := os.Stat(assets.ThumbnailPath); err == nil {
			thumbSize = info.Size()
		}
	}

	outcome, err := c.runtime.CreateVideo(ctx, chain.CreateVideoParams{
		JoystreamChannelID: ch.JoystreamChannelID,
		CollaboratorID:     c.collaboratorID,
		Title:              v.Title,
		Description:        v.Description,
		Category:           v.Category,
		Language:           v.Language,
		Duration:           v.Duration,
		PublishedAt:        v.PublishedAt.Format(time.RFC3339),
		MediaPath:          assets.MediaPath,
		MediaSize:          assets.MediaSize,
		ThumbnailPath:      assets.ThumbnailPath,
		ThumbnailSize:      thumbSize,
	})
	if err != nil {
		// SignCancelled and ApiNotConnected land here: retryable, state
		// untouched, the next cycle re-enqueues the video.
		metrics.ExtrinsicOutcomes.WithLabelValues(string(model.KindOf(err))).Inc()
		log.Warn().Err(err).Msg("createVideo submission failed, will retry")
		return
	}

	switch o := outcome.(type) {
	case chain.Finalized:
		c.handleFinalized(v, o, log)
	case chain.Failed:
		metrics.ExtrinsicOutcomes.WithLabelValues(string(o.Kind)).Inc()
		if o.Kind == model.ErrVoucherLimit {
			c.halt(channelID)
			log.Warn().Str("msg", o.Msg).Msg("voucher size limit hit, channel halted until next cycle")
			return
		}
		log.Warn().Str("msg", o.Msg).Msg("createVideo dispatch failed")
		c.markCreationFailed(v, log)
	case chain.Rejected:
		metrics.ExtrinsicOutcomes.WithLabelValues("rejected").Inc()
		log.Warn().Str("reason", o.Reason).Msg("createVideo rejected, will retry")
	}
}

// handleFinalized extracts the on-chain ids from the finalized events. A
// finalized block without the VideoCreated event is MissingRequiredEvent:
// fatal for the attempt, the video re-enters the creation path.
func (c *Creator) handleFinalized(v *model.Video, fin chain.Finalized, log zerolog.Logger) {
	created, ok := fin.FindEvent("content", "VideoCreated")
	if !ok || len(created.Values) < 3 {
		metrics.ExtrinsicOutcomes.WithLabelValues(string(model.ErrMissingRequiredEvent)).Inc()
		log.Warn().Str("block", fin.BlockHash).Msg("finalized without VideoCreated event")
		c.markCreationFailed(v, log)
		return
	}
	uploaded, ok := fin.FindEvent("storage", "DataObjectsUploaded")
	if !ok || len(uploaded.Values) < 2 {
		metrics.ExtrinsicOutcomes.WithLabelValues(string(model.ErrMissingRequiredEvent)).Inc()
		log.Warn().Str("block", fin.BlockHash).Msg("finalized without DataObjectsUploaded event")
		c.markCreationFailed(v, log)
		return
	}

	onChainID := created.Values[2]
	assetIDs := []string{uploaded.Values[0], uploaded.Values[1]}

	_, err := c.store.UpdateVideo(v.ChannelID, v.ID, func(v *model.Video) error {
		v.State = model.VideoStateCreated
		v.JoystreamVideo = &model.JoystreamVideo{ID: onChainID, AssetIDs: assetIDs}
		v.Retries = 0
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("VideoCreated state write failed")
		return
	}
	metrics.ExtrinsicOutcomes.WithLabelValues("finalized").Inc()
	log.Info().Str("onChainVideoId", onChainID).Msg("on-chain video created")

	if err := c.queues.Publish(TopicUpload, v.ChannelID, v.ID); err != nil {
		log.Error().Err(err).Msg("upload publish failed")
	}
}

func (c *Creator) markCreationFailed(v *model.Video, log zerolog.Logger) {
	if _, err := c.store.UpdateVideo(v.ChannelID, v.ID, func(v *model.Video) error {
		v.State = model.VideoStateCreationFailed
		v.Retries++
		return nil
	}); err != nil {
		log.Error().Err(err).Msg("VideoCreationFailed state write failed")
	}
}

func (c *Creator) assetDir(videoID string) string {
	return filepath.Join(c.assetsDir, videoID)
}
