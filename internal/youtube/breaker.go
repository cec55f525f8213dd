// YouTube-Synch - mirrors YouTube channels onto the Joystream network
// Copyright 2026 Joystream contributors
// SPDX-License-Identifier: GPL-3.0-or-later
// https://github.com/WRadoslaw/youtube-synch

package youtube

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/WRadoslaw/youtube-synch/internal/logging"
	"github.com/WRadoslaw/youtube-synch/internal/metrics"
	"github.com/WRadoslaw/youtube-synch/internal/model"
)

// BreakerClient wraps a Client with a circuit breaker so a degraded Data API
// cannot stall every poll cycle. Quota errors do not count as failures: the
// quota accountant, not the breaker, handles exhaustion.
type BreakerClient struct {
	inner Client
	cb    *gobreaker.CircuitBreaker[any]
	name  string
}

// NewBreakerClient wraps inner with production breaker settings: opens at a
// 60% failure rate over at least 10 requests, probes again after 2 minutes.
func NewBreakerClient(inner Client) *BreakerClient {
	name := "youtube-api"
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		IsSuccessful: func(err error) bool {
			// Quota exhaustion is an accounting signal, not API health.
			return err == nil || model.IsKind(err, model.ErrQuotaLimitExceeded)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("breaker", name).
				Str("from", stateString(from)).
				Str("to", stateString(to)).
				Msg("circuit breaker state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateFloat(to))
		},
	})
	return &BreakerClient{inner: inner, cb: cb, name: name}
}

func (b *BreakerClient) Channel(ctx context.Context, ch *model.Channel) (*ChannelInfo, error) {
	res, err := b.execute(func() (any, error) {
		return b.inner.Channel(ctx, ch)
	})
	if err != nil {
		return nil, err
	}
	return res.(*ChannelInfo), nil
}

func (b *BreakerClient) UploadsPlaylistVideos(ctx context.Context, ch *model.Channel) ([]*PlaylistVideo, error) {
	res, err := b.execute(func() (any, error) {
		return b.inner.UploadsPlaylistVideos(ctx, ch)
	})
	if err != nil {
		return nil, err
	}
	return res.([]*PlaylistVideo), nil
}

func (b *BreakerClient) execute(fn func() (any, error)) (any, error) {
	res, err := b.cb.Execute(fn)
	switch {
	case err == nil:
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()
	case errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "rejected").Inc()
		return nil, model.WrapError(model.ErrNotConnected, "youtube api circuit open", err)
	default:
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "failure").Inc()
	}
	return res, err
}

func stateFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	}
	return -1
}

func stateString(s gobreaker.State) string {
	switch s {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	}
	return "unknown"
}
