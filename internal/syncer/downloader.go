// YouTube-Synch - mirrors YouTube channels onto the Joystream network
// Copyright 2026 Joystream contributors
// SPDX-License-Identifier: GPL-3.0-or-later
// https://github.com/WRadoslaw/youtube-synch

package syncer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/cenkalti/backoff/v4"
	"github.com/lrstanley/go-ytdlp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/WRadoslaw/youtube-synch/internal/logging"
	"github.com/WRadoslaw/youtube-synch/internal/metrics"
	"github.com/WRadoslaw/youtube-synch/internal/model"
	"github.com/WRadoslaw/youtube-synch/internal/store"
)

// ErrMediaGone is the terminal download failure: the video cannot be fetched
// now or ever (removed, private, region-blocked for the service account).
var ErrMediaGone = errors.New("media gone upstream")

// FetchResult locates the staged assets of one video.
type FetchResult struct {
	MediaPath     string
	ThumbnailPath string
	MediaSize     int64
}

// MediaFetcher stages a video's media and thumbnail into destDir.
type MediaFetcher interface {
	Fetch(ctx context.Context, videoID, destDir string) (*FetchResult, error)
}

// YtdlpFetcher shells out to yt-dlp. The binary must be installed on the
// host; the daemon verifies that at startup.
type YtdlpFetcher struct{}

func NewYtdlpFetcher() *YtdlpFetcher { return &YtdlpFetcher{} }

func (f *YtdlpFetcher) Fetch(ctx context.Context, videoID, destDir string) (*FetchResult, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, err
	}

	dl := ytdlp.New().
		FormatSort("res:1080").
		NoPlaylist().
		WriteThumbnail().
		ConvertThumbnails("jpg").
		Output(filepath.Join(destDir, "%(id)s.%(ext)s"))

	_, err := dl.Run(ctx, "https://www.youtube.com/watch?v="+videoID)
	if err != nil {
		if terminalFetchError(err) {
			return nil, fmt.Errorf("%w: %v", ErrMediaGone, err)
		}
		return nil, err
	}
	return locateAssets(destDir, videoID)
}

// terminalFetchError matches yt-dlp failures no retry can fix.
func terminalFetchError(err error) bool {
	msg := err.Error()
	for _, marker := range []string{
		"Video unavailable",
		"Private video",
		"This video has been removed",
		"HTTP Error 403",
		"HTTP Error 404",
		"account associated with this video has been terminated",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// locateAssets resolves the media and thumbnail files yt-dlp produced.
func locateAssets(dir, videoID string) (*FetchResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	res := &FetchResult{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), videoID+".") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if strings.HasSuffix(e.Name(), ".jpg") {
			res.ThumbnailPath = path
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, err
		}
		res.MediaPath = path
		res.MediaSize = info.Size()
	}
	if res.MediaPath == "" {
		return nil, fmt.Errorf("no media file for %s in %s", videoID, dir)
	}
	return res, nil
}

// DiskLedger tracks staged bytes against the configured storage budget.
// One critical section guards the counter; admission is a soft check since
// a video's size is unknown before the download finishes.
type DiskLedger struct {
	mu     sync.Mutex
	used   int64
	budget int64
}

func NewDiskLedger(budget int64) *DiskLedger {
	return &DiskLedger{budget: budget}
}

// Admit reports whether another download may start.
func (d *DiskLedger) Admit() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.used < d.budget
}

func (d *DiskLedger) Add(n int64) {
	d.mu.Lock()
	d.used += n
	d.mu.Unlock()
}

func (d *DiskLedger) Release(n int64) {
	d.mu.Lock()
	d.used -= n
	if d.used < 0 {
		d.used = 0
	}
	d.mu.Unlock()
}

// Downloader drains the download topic and stages media bytes locally.
// It never advances the lifecycle state by itself; staging is a side effect
// the later stages depend on.
type Downloader struct {
	store     *store.Store
	fetcher   MediaFetcher
	queues    *Queues
	assetsDir string
	ledger    *DiskLedger
	sem       *semaphore.Weighted

	mu           sync.Mutex
	channelLocks map[string]*sync.Mutex
}

func NewDownloader(st *store.Store, f MediaFetcher, q *Queues, assetsDir string, ledger *DiskLedger, parallelism int) *Downloader {
	if parallelism < 1 {
		parallelism = 1
	}
	return &Downloader{
		store:        st,
		fetcher:      f,
		queues:       q,
		assetsDir:    assetsDir,
		ledger:       ledger,
		sem:          semaphore.NewWeighted(int64(parallelism)),
		channelLocks: make(map[string]*sync.Mutex),
	}
}

// Run consumes an already-open download subscription until it closes. The
// orchestrator subscribes before publishing anything, since the in-process
// pub/sub drops messages with no subscriber.
func (d *Downloader) Run(ctx context.Context, msgs <-chan *message.Message) error {
	var wg sync.WaitGroup
	for msg := range msgs {
		channelID, videoID, err := splitVideoKey(msg.Payload)
		if err != nil {
			logging.Error().Err(err).Msg("dropping malformed download message")
			msg.Ack()
			continue
		}
		if err := d.sem.Acquire(ctx, 1); err != nil {
			msg.Ack()
			break
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer d.sem.Release(1)
			d.handle(ctx, channelID, videoID)
			msg.Ack()
		}()
	}
	wg.Wait()
	return nil
}

// EnqueueUnsynced republishes every video still owing work, in priority
// order: downloadable New by updatedAt ascending, then VideoCreationFailed,
// then UploadFailed. The orchestrator calls this each poll cycle so work
// lost to a crash or a full queue is rediscovered from the state index.
func (d *Downloader) EnqueueUnsynced(ctx context.Context) error {
	fresh, err := d.store.ListVideosInState(model.VideoStateNew, 0, true)
	if err != nil {
		return err
	}
	retryCreate, err := d.store.ListVideosInState(model.VideoStateCreationFailed, 0, true)
	if err != nil {
		return err
	}
	retryUpload, err := d.store.ListVideosInState(model.VideoStateUploadFailed, 0, true)
	if err != nil {
		return err
	}

	for _, v := range fresh {
		if !v.Downloadable() {
			continue
		}
		if err := d.queues.Publish(TopicDownload, v.ChannelID, v.ID); err != nil {
			return err
		}
	}
	for _, v := range append(retryCreate, retryUpload...) {
		if err := d.queues.Publish(TopicDownload, v.ChannelID, v.ID); err != nil {
			return err
		}
	}
	return nil
}

func (d *Downloader) handle(ctx context.Context, channelID, videoID string) {
	log := logging.With().Str("component", "downloader").Str("channelId", channelID).Str("videoId", videoID).Logger()

	v, err := d.store.GetVideo(channelID, videoID)
	if err != nil {
		log.Warn().Err(err).Msg("video lookup failed")
		return
	}
	switch v.State {
	case model.VideoStateNew:
		if !v.Downloadable() {
			return
		}
	case model.VideoStateCreationFailed, model.VideoStateUploadFailed:
	default:
		// Already past this stage or parked.
		return
	}

	ch, err := d.store.GetChannelByID(channelID)
	if err != nil {
		log.Warn().Err(err).Msg("channel lookup failed")
		return
	}
	if ch.YppStatus.Suspended() || ch.YppStatus == model.YppOptedOut {
		return
	}
	if !ch.Syncable() && !ch.PerformUnauthorizedSync {
		return
	}

	if !d.ledger.Admit() {
		log.Warn().Msg("storage budget exhausted, download deferred")
		return
	}

	// One download per channel at a time keeps per-channel ordering.
	lock := d.channelLock(channelID)
	lock.Lock()
	defer lock.Unlock()

	dir := d.assetDir(videoID)
	if res, err := locateAssets(dir, videoID); err == nil && res.MediaSize > 0 {
		// Bytes survived a previous run; skip the fetch.
		d.advance(v, res, log)
		return
	}

	var res *FetchResult
	fetch := func() error {
		var ferr error
		res, ferr = d.fetcher.Fetch(ctx, videoID, dir)
		if errors.Is(ferr, ErrMediaGone) {
			return backoff.Permanent(ferr)
		}
		return ferr
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2), ctx)
	if err := backoff.Retry(fetch, policy); err != nil {
		if errors.Is(err, ErrMediaGone) {
			d.park(v, log)
			return
		}
		metrics.Downloads.WithLabelValues("transient").Inc()
		log.Warn().Err(err).Msg("download failed, will retry next cycle")
		if _, uerr := d.store.UpdateVideo(channelID, videoID, func(v *model.Video) error {
			v.Retries++
			return nil
		}); uerr != nil {
			log.Error().Err(uerr).Msg("retry counter update failed")
		}
		return
	}

	d.ledger.Add(res.MediaSize)
	metrics.DownloadedBytes.Add(float64(res.MediaSize))
	metrics.Downloads.WithLabelValues("ok").Inc()
	d.advance(v, res, log)
}

// advance records the staged size and hands the video to the next stage.
func (d *Downloader) advance(v *model.Video, res *FetchResult, log zerolog.Logger) {
	updated, err := d.store.UpdateVideo(v.ChannelID, v.ID, func(v *model.Video) error {
		v.MediaSize = res.MediaSize
		v.Retries = 0
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("media size update failed")
		return
	}

	next := TopicCreate
	if updated.State == model.VideoStateUploadFailed {
		// On-chain record already exists; bytes were restaged for upload.
		next = TopicUpload
	}
	if err := d.queues.Publish(next, v.ChannelID, v.ID); err != nil {
		log.Error().Err(err).Str("topic", next).Msg("publish failed")
	}
}

func (d *Downloader) park(v *model.Video, log zerolog.Logger) {
	metrics.Downloads.WithLabelValues("unavailable").Inc()
	if !canPark(v.State) {
		// UploadFailed videos are on chain; the record must not regress.
		log.Warn().Msg("media gone for on-chain video, leaving state for retry")
		return
	}
	if _, err := d.store.UpdateVideo(v.ChannelID, v.ID, func(v *model.Video) error {
		if canPark(v.State) {
			v.State = model.VideoStateUnavailable
		}
		return nil
	}); err != nil {
		log.Error().Err(err).Msg("park failed")
		return
	}
	log.Info().Msg("video parked as unavailable")
}

func (d *Downloader) channelLock(channelID string) *sync.Mutex {
	d.mu.Lock()
	defer d.mu.Unlock()
	l, ok := d.channelLocks[channelID]
	if !ok {
		l = &sync.Mutex{}
		d.channelLocks[channelID] = l
	}
	return l
}

func (d *Downloader) assetDir(videoID string) string {
	return filepath.Join(d.assetsDir, videoID)
}

// CleanupAssets removes a video's staged files after a successful upload and
// releases the disk budget.
func (d *Downloader) CleanupAssets(videoID string, size int64) {
	if err := os.RemoveAll(d.assetDir(videoID)); err != nil {
		logging.Warn().Err(err).Str("videoId", videoID).Msg("asset cleanup failed")
		return
	}
	d.ledger.Release(size)
}

// RescanDiskUsage walks the asset directory and resets the ledger to what is
// actually on disk. Called once at startup.
func (d *Downloader) RescanDiskUsage() error {
	var total int64
	err := filepath.WalkDir(d.assetsDir, func(path string, entry os.DirEntry, err error) error {
		if err != nil || entry.IsDir() {
			return err
		}
		info, err := entry.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	d.ledger.mu.Lock()
	d.ledger.used = total
	d.ledger.mu.Unlock()
	return nil
}

