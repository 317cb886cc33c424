// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package command_test

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/holomush/coresystem/internal/command"
	"github.com/holomush/coresystem/internal/core"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestRateLimiter_BurstThenRefill(t *testing.T) {
	defer goleak.VerifyNone(t)

	clock := &fakeClock{now: time.Unix(1000, 0)}
	rl := command.NewRateLimiter(command.RateLimiterConfig{BurstCapacity: 3, SustainedRate: 2, Now: clock.Now})
	defer rl.Close()
	actor := core.NewActorID()

	for range 3 {
		allowed, _ := rl.Allow(actor)
		assert.True(t, allowed)
	}
	allowed, cooldownMs := rl.Allow(actor)
	assert.False(t, allowed)
	assert.Equal(t, int64(500), cooldownMs)

	clock.Advance(500 * time.Millisecond)
	allowed, _ = rl.Allow(actor)
	assert.True(t, allowed)
}

func TestRateLimiter_RefillCapsAtBurst(t *testing.T) {
	defer goleak.VerifyNone(t)

	clock := &fakeClock{now: time.Unix(1000, 0)}
	rl := command.NewRateLimiter(command.RateLimiterConfig{BurstCapacity: 2, SustainedRate: 1, Now: clock.Now})
	defer rl.Close()
	actor := core.NewActorID()

	rl.Allow(actor)
	clock.Advance(time.Hour)
	allowed := 0
	for range 5 {
		if ok, _ := rl.Allow(actor); ok {
			allowed++
		}
	}
	assert.Equal(t, 2, allowed)
}

func TestRateLimiter_CleanupAndForget(t *testing.T) {
	defer goleak.VerifyNone(t)

	clock := &fakeClock{now: time.Unix(1000, 0)}
	reg := prometheus.NewRegistry()
	rl := command.NewRateLimiter(command.RateLimiterConfig{Now: clock.Now, Registerer: reg})
	defer rl.Close()

	stale, fresh, gone := core.NewActorID(), core.NewActorID(), core.NewActorID()
	rl.Allow(stale)
	rl.Allow(gone)
	clock.Advance(2 * time.Hour)
	rl.Allow(fresh)

	rl.Forget(gone)
	rl.Cleanup(time.Hour)
	assert.Equal(t, 1, rl.Len())

	families, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, families, 1)
	assert.Equal(t, "coresystem_ratelimiter_actors", families[0].GetName())
	assert.Equal(t, 1.0, families[0].GetMetric()[0].GetGauge().GetValue())
}

func TestRateLimiter_CloseTwice(t *testing.T) {
	defer goleak.VerifyNone(t)

	rl := command.NewRateLimiter(command.RateLimiterConfig{})
	rl.Close()
	assert.NotPanics(t, rl.Close)
}
