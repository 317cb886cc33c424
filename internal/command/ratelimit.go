// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package command

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/holomush/coresystem/internal/core"
)

// Rate limiter defaults.
const (
	DefaultBurstCapacity   = 10
	DefaultSustainedRate   = 2.0
	MinSustainedRate       = 0.1
	DefaultCleanupInterval = 5 * time.Minute
	DefaultBucketMaxAge    = time.Hour

	// CapabilityRateLimitBypass exempts an actor from rate limiting.
	CapabilityRateLimitBypass = "ratelimit:bypass"
)

// RateLimiterConfig configures the rate limiter. Zero values take defaults.
type RateLimiterConfig struct {
	BurstCapacity   int
	SustainedRate   float64 // tokens per second
	CleanupInterval time.Duration
	BucketMaxAge    time.Duration
	Registerer      prometheus.Registerer
	Now             func() time.Time
}

type bucket struct {
	tokens    float64
	lastCheck time.Time
}

// RateLimiter is a per-actor token bucket. It runs a background goroutine
// that drops idle buckets; Close stops it.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[core.ActorID]*bucket
	burst   float64
	rate    float64
	maxAge  time.Duration
	now     func() time.Time
	gauge   prometheus.Gauge

	stop chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// NewRateLimiter creates a rate limiter and starts its cleanup loop.
func NewRateLimiter(cfg RateLimiterConfig) *RateLimiter {
	if cfg.BurstCapacity <= 0 {
		cfg.BurstCapacity = DefaultBurstCapacity
	}
	if cfg.SustainedRate <= 0 {
		cfg.SustainedRate = DefaultSustainedRate
	}
	cfg.SustainedRate = max(cfg.SustainedRate, MinSustainedRate)
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = DefaultCleanupInterval
	}
	if cfg.BucketMaxAge <= 0 {
		cfg.BucketMaxAge = DefaultBucketMaxAge
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	rl := &RateLimiter{
		buckets: make(map[core.ActorID]*bucket),
		burst:   float64(cfg.BurstCapacity),
		rate:    cfg.SustainedRate,
		maxAge:  cfg.BucketMaxAge,
		now:     cfg.Now,
		stop:    make(chan struct{}),
	}
	if cfg.Registerer != nil {
		rl.gauge = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "coresystem_ratelimiter_actors",
			Help: "Actors with a live rate limit bucket",
		})
		cfg.Registerer.MustRegister(rl.gauge)
	}

	rl.wg.Add(1)
	go rl.cleanupLoop(cfg.CleanupInterval)
	return rl
}

// Allow consumes one token for actor. When no token is available it returns
// false and the milliseconds until the next one.
func (rl *RateLimiter) Allow(actor core.ActorID) (allowed bool, cooldownMs int64) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, ok := rl.buckets[actor]
	if !ok {
		b = &bucket{tokens: rl.burst, lastCheck: now}
		rl.buckets[actor] = b
	}

	b.tokens = min(rl.burst, b.tokens+now.Sub(b.lastCheck).Seconds()*rl.rate)
	b.lastCheck = now

	if b.tokens >= 1 {
		b.tokens--
		return true, 0
	}
	return false, int64((1 - b.tokens) / rl.rate * 1000)
}

// Len returns the number of tracked actors.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}

// Forget drops actor's bucket, e.g. when they leave.
func (rl *RateLimiter) Forget(actor core.ActorID) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.buckets, actor)
}

// Cleanup removes buckets idle for longer than maxAge.
func (rl *RateLimiter) Cleanup(maxAge time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	threshold := rl.now().Add(-maxAge)
	for id, b := range rl.buckets {
		if b.lastCheck.Before(threshold) {
			delete(rl.buckets, id)
		}
	}
	if rl.gauge != nil {
		rl.gauge.Set(float64(len(rl.buckets)))
	}
}

func (rl *RateLimiter) cleanupLoop(interval time.Duration) {
	defer rl.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.Cleanup(rl.maxAge)
		}
	}
}

// Close stops the cleanup goroutine and waits for it. Safe to call twice.
func (rl *RateLimiter) Close() {
	rl.once.Do(func() { close(rl.stop) })
	rl.wg.Wait()
}
