// YouTube-Synch - mirrors YouTube channels onto the Joystream network
// Copyright 2026 Joystream contributors
// SPDX-License-Identifier: GPL-3.0-or-later
// https://github.com/WRadoslaw/youtube-synch

package quota

import (
	"sync"
	"testing"
	"time"
)

func TestReserveRespectsCap(t *testing.T) {
	a := New(map[string]int{PoolSync: 3})

	for i := 0; i < 3; i++ {
		if !a.Reserve(PoolSync, 1) {
			t.Fatalf("reservation %d within cap must succeed", i)
		}
	}
	if a.Reserve(PoolSync, 1) {
		t.Fatal("reservation beyond cap must fail")
	}
	if a.Used(PoolSync) != 3 {
		t.Fatalf("used = %d, want 3", a.Used(PoolSync))
	}
}

func TestReserveRejectsOversizedAndUnknown(t *testing.T) {
	a := New(map[string]int{PoolSync: 5})

	if a.Reserve(PoolSync, 6) {
		t.Fatal("single reservation larger than cap must fail")
	}
	if a.Reserve("nope", 1) {
		t.Fatal("unknown pool must fail")
	}
	// Failed reservations consume nothing.
	if a.Used(PoolSync) != 0 {
		t.Fatalf("used = %d, want 0", a.Used(PoolSync))
	}
}

func TestLazyMidnightRollover(t *testing.T) {
	a := New(map[string]int{PoolSync: 2})
	now := time.Date(2026, 3, 1, 23, 59, 0, 0, time.UTC)
	a.now = func() time.Time { return now }

	if !a.Reserve(PoolSync, 2) {
		t.Fatal("reservation within cap must succeed")
	}
	if a.Reserve(PoolSync, 1) {
		t.Fatal("pool is exhausted for the day")
	}

	// Crossing UTC midnight resets the counter on the next reserve.
	now = now.Add(2 * time.Minute)
	if !a.Reserve(PoolSync, 1) {
		t.Fatal("reservation after rollover must succeed")
	}
	if a.Used(PoolSync) != 1 {
		t.Fatalf("used = %d, want 1 after rollover", a.Used(PoolSync))
	}
}

func TestReset(t *testing.T) {
	a := NewWithDefaults()
	if !a.Reserve(PoolSignup, 100) {
		t.Fatal("signup reservation must succeed")
	}
	a.Reset()
	if a.Used(PoolSignup) != 0 {
		t.Fatal("reset must clear every pool")
	}
}

func TestDailySumNeverExceedsCap(t *testing.T) {
	const cap = 100
	a := New(map[string]int{PoolSync: cap})

	var wg sync.WaitGroup
	granted := make([]int, 8)
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				if a.Reserve(PoolSync, 1) {
					granted[w]++
				}
			}
		}(w)
	}
	wg.Wait()

	total := 0
	for _, g := range granted {
		total += g
	}
	if total != cap {
		t.Fatalf("granted %d reservations, want exactly %d", total, cap)
	}
}
