// YouTube-Synch - mirrors YouTube channels onto the Joystream network
// Copyright 2026 Joystream contributors
// SPDX-License-Identifier: GPL-3.0-or-later
// https://github.com/WRadoslaw/youtube-synch

// Package quota tracks daily consumption of the YouTube API quota,
// partitioned into named pools. Reservations are non-refundable; the pools
// reset at UTC midnight.
package quota

import (
	"sync"
	"time"

	"github.com/WRadoslaw/youtube-synch/internal/metrics"
)

// Pool names used by the sync engine. The signup pool is reserved by the
// onboarding surface and only observed here for exclusion from sync.
const (
	PoolSync   = "sync"
	PoolSignup = "signup"
)

// Default daily caps.
const (
	DefaultSyncCap   = 9500
	DefaultSignupCap = 500
)

type pool struct {
	mu   sync.Mutex
	cap  int
	used int
	day  time.Time // UTC date the counters belong to
}

// Accountant partitions the daily API quota into named pools.
type Accountant struct {
	pools map[string]*pool

	// now is swapped in tests to cross midnight deterministically.
	now func() time.Time
}

// New builds an accountant with the given per-pool caps.
func New(caps map[string]int) *Accountant {
	a := &Accountant{pools: make(map[string]*pool, len(caps)), now: time.Now}
	for name, c := range caps {
		a.pools[name] = &pool{cap: c}
		metrics.QuotaCap.WithLabelValues(name).Set(float64(c))
		metrics.QuotaUsed.WithLabelValues(name).Set(0)
	}
	return a
}

// NewWithDefaults builds an accountant with the standard sync/signup caps.
func NewWithDefaults() *Accountant {
	return New(map[string]int{
		PoolSync:   DefaultSyncCap,
		PoolSignup: DefaultSignupCap,
	})
}

// Reserve attempts to consume n units from the named pool. It returns false
// when the reservation would exceed the daily cap or the pool is unknown.
// Reservations are never refunded.
func (a *Accountant) Reserve(name string, n int) bool {
	p, ok := a.pools[name]
	if !ok {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	p.rollover(a.now())
	if p.used+n > p.cap {
		return false
	}
	p.used += n
	metrics.QuotaUsed.WithLabelValues(name).Set(float64(p.used))
	return true
}

// Used reports the units consumed from the named pool today.
func (a *Accountant) Used(name string) int {
	p, ok := a.pools[name]
	if !ok {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rollover(a.now())
	return p.used
}

// Reset clears every pool. The orchestrator calls this on its UTC-midnight
// tick; the lazy rollover inside Reserve covers missed ticks.
func (a *Accountant) Reset() {
	day := utcDay(a.now())
	for name, p := range a.pools {
		p.mu.Lock()
		p.used = 0
		p.day = day
		p.mu.Unlock()
		metrics.QuotaUsed.WithLabelValues(name).Set(0)
	}
}

// rollover zeroes the counter when the UTC date has advanced.
// Callers hold p.mu.
func (p *pool) rollover(now time.Time) {
	day := utcDay(now)
	if !p.day.Equal(day) {
		p.used = 0
		p.day = day
	}
}

func utcDay(t time.Time) time.Time {
	return t.UTC().Truncate(24 * time.Hour)
}
