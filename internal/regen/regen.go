// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package regen runs passive energy regeneration for present actors on a
// fixed interval.
package regen

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"

	"github.com/holomush/coresystem/internal/core"
	"github.com/holomush/coresystem/internal/definitions"
	"github.com/holomush/coresystem/internal/modifier"
	"github.com/holomush/coresystem/internal/store"
	"github.com/holomush/coresystem/pkg/errutil"
)

var (
	ticksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "coresystem_regen_ticks_total",
		Help: "Passive regeneration ticks run",
	})
	tickDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "coresystem_regen_tick_duration_seconds",
		Help:    "Time spent regenerating energy per tick",
		Buckets: prometheus.DefBuckets,
	})
)

// RegisterMetrics registers regen metrics with reg.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(ticksTotal, tickDuration)
}

// CatalogSource supplies the active definitions.
type CatalogSource interface {
	Current() *definitions.Catalog
}

// Roster lists the actors currently present.
type Roster interface {
	Present() []core.ActorID
}

// Scheduler regenerates energy every RegenInterval. The interval is read
// from the catalog each tick, so a reload takes effect on the next one.
type Scheduler struct {
	store    *store.Store
	catalogs CatalogSource
	roster   Roster

	stopChan chan struct{}
	wg       sync.WaitGroup
	start    sync.Once
	stop     sync.Once
}

// New creates a stopped scheduler.
func New(s *store.Store, catalogs CatalogSource, roster Roster) (*Scheduler, error) {
	if s == nil || catalogs == nil || roster == nil {
		return nil, oops.In("regen").Errorf("store, catalogs and roster are required")
	}
	if catalogs.Current().RegenInterval() <= 0 {
		return nil, oops.In("regen").Errorf("regeneration interval must be positive")
	}
	return &Scheduler{
		store:    s,
		catalogs: catalogs,
		roster:   roster,
		stopChan: make(chan struct{}),
	}, nil
}

// Start launches the ticker loop. Later calls do nothing.
func (s *Scheduler) Start(ctx context.Context) {
	s.start.Do(func() {
		s.wg.Add(1)
		go s.loop(ctx)
	})
}

// Stop ends the loop and waits for an in-flight tick to finish.
func (s *Scheduler) Stop() {
	s.stop.Do(func() { close(s.stopChan) })
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()
	interval := s.catalogs.Current().RegenInterval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(ctx)
			if next := s.catalogs.Current().RegenInterval(); next > 0 && next != interval {
				interval = next
				ticker.Reset(interval)
			}
		}
	}
}

// Tick regenerates every present actor once and returns how many records
// changed.
func (s *Scheduler) Tick(ctx context.Context) int {
	started := time.Now()
	defer func() {
		ticksTotal.Inc()
		tickDuration.Observe(time.Since(started).Seconds())
	}()

	cat := s.catalogs.Current()
	cfg := cat.Tunables.Regen
	if !cfg.Enabled {
		return 0
	}
	changed := 0
	for _, id := range s.roster.Present() {
		if ctx.Err() != nil {
			return changed
		}
		updated := false
		_, err := s.store.Update(ctx, id, func(r *core.Record) error {
			if !r.Active || r.Energy >= r.MaxEnergy {
				return store.ErrUnchanged
			}
			amount := cfg.Amount + modifier.DeriveFor(r, cat).RegenBonus
			if amount <= 0 {
				return store.ErrUnchanged
			}
			r.AddEnergy(amount)
			updated = true
			return nil
		})
		if err != nil {
			errutil.LogErrorContext(ctx, slog.Default(), "energy regeneration failed",
				oops.With("actor_id", id.String()).Wrap(err))
			continue
		}
		if updated {
			changed++
		}
	}
	return changed
}
