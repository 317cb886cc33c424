// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package cooldown tracks per-actor, per-key expiry times for the lifetime
// of the process.
package cooldown

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/holomush/coresystem/internal/core"
)

// Keys used by the lifecycle commands.
const (
	KeyClaim    = "claim"
	KeyFeed     = "feed"
	KeyEnergize = "energize"
	KeyRestore  = "restore"
)

// DefaultPruneInterval is how often expired entries are dropped.
const DefaultPruneInterval = time.Minute

// Config configures a Registry.
type Config struct {
	// PruneInterval defaults to DefaultPruneInterval when zero.
	PruneInterval time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

// Registry is an expiring cooldown ledger keyed by actor and key.
// It is safe for concurrent use. Close stops the pruning goroutine.
type Registry struct {
	mu      sync.Mutex
	entries map[core.ActorID]map[string]time.Time
	now     func() time.Time

	stopChan chan struct{}
	wg       sync.WaitGroup
	once     sync.Once

	gauge prometheus.Gauge
}

// New creates a registry and starts its pruning loop.
func New(cfg Config) *Registry {
	return newRegistry(cfg, nil)
}

// NewWithRegistry is New plus a gauge of tracked entries registered on reg.
func NewWithRegistry(cfg Config, reg prometheus.Registerer) *Registry {
	return newRegistry(cfg, reg)
}

func newRegistry(cfg Config, reg prometheus.Registerer) *Registry {
	interval := cfg.PruneInterval
	if interval <= 0 {
		interval = DefaultPruneInterval
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	r := &Registry{
		entries:  make(map[core.ActorID]map[string]time.Time),
		now:      now,
		stopChan: make(chan struct{}),
	}
	if reg != nil {
		r.gauge = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "coresystem_cooldown_entries",
			Help: "Current number of tracked cooldown entries",
		})
		reg.MustRegister(r.gauge)
	}
	r.wg.Add(1)
	go r.pruneLoop(interval)
	return r
}

// IsOnCooldown reports whether key is still cooling down for actor.
func (r *Registry) IsOnCooldown(actor core.ActorID, key string) bool {
	return r.Remaining(actor, key) > 0
}

// Remaining returns the time left on key for actor, or zero.
func (r *Registry) Remaining(actor core.ActorID, key string) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	expiry, ok := r.entries[actor][key]
	if !ok {
		return 0
	}
	if left := expiry.Sub(r.now()); left > 0 {
		return left
	}
	return 0
}

// Check returns an ON_COOLDOWN error while key is cooling down for actor.
func (r *Registry) Check(actor core.ActorID, key string) error {
	if left := r.Remaining(actor, key); left > 0 {
		return core.ErrCooldown(actor, key, left)
	}
	return nil
}

// Set starts a cooldown of d. Non-positive durations are ignored.
func (r *Registry) Set(actor core.ActorID, key string, d time.Duration) {
	if d <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	keys, ok := r.entries[actor]
	if !ok {
		keys = make(map[string]time.Time)
		r.entries[actor] = keys
	}
	keys[key] = r.now().Add(d)
	r.updateGauge()
}

// ClearKey drops key for every actor.
func (r *Registry) ClearKey(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for actor, keys := range r.entries {
		delete(keys, key)
		if len(keys) == 0 {
			delete(r.entries, actor)
		}
	}
	r.updateGauge()
}

// Clear drops every cooldown of actor.
func (r *Registry) Clear(actor core.ActorID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, actor)
	r.updateGauge()
}

// Len returns the number of tracked entries, expired or not.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.countLocked()
}

// Prune drops expired entries.
func (r *Registry) Prune() {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	for actor, keys := range r.entries {
		for key, expiry := range keys {
			if !expiry.After(now) {
				delete(keys, key)
			}
		}
		if len(keys) == 0 {
			delete(r.entries, actor)
		}
	}
	r.updateGauge()
}

func (r *Registry) countLocked() int {
	n := 0
	for _, keys := range r.entries {
		n += len(keys)
	}
	return n
}

func (r *Registry) updateGauge() {
	if r.gauge != nil {
		r.gauge.Set(float64(r.countLocked()))
	}
}

func (r *Registry) pruneLoop(interval time.Duration) {
	defer r.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-r.stopChan:
			return
		case <-ticker.C:
			r.Prune()
		}
	}
}

// Close stops the pruning goroutine. It is safe to call more than once.
func (r *Registry) Close() {
	r.once.Do(func() { close(r.stopChan) })
	r.wg.Wait()
}

// CheckSkill returns an ON_COOLDOWN error while the record's persisted
// cooldown for skillID has not expired.
func CheckSkill(rec *core.Record, skillID string, now time.Time) error {
	if left := rec.SkillCooldownRemaining(skillID, now); left > 0 {
		return core.ErrCooldown(rec.ActorID, skillID, left)
	}
	return nil
}
