// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package lifecycle_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/holomush/coresystem/internal/cooldown"
	"github.com/holomush/coresystem/internal/core"
	"github.com/holomush/coresystem/internal/definitions"
	"github.com/holomush/coresystem/internal/definitions/definitionstest"
	"github.com/holomush/coresystem/internal/hooks"
	"github.com/holomush/coresystem/internal/lifecycle"
	"github.com/holomush/coresystem/internal/presence"
	"github.com/holomush/coresystem/internal/protection"
	"github.com/holomush/coresystem/internal/store"
	"github.com/holomush/coresystem/internal/world"
)

const seedMaterial = "HEART_OF_THE_SEA"

type recorder struct {
	mu     sync.Mutex
	events []core.Event
}

func (r *recorder) Publish(_ context.Context, ev core.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) ofType(typ core.EventType) []core.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []core.Event
	for _, ev := range r.events {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

type env struct {
	engine     *lifecycle.Engine
	holder     *definitions.Holder
	adapter    *store.MemoryAdapter
	store      *store.Store
	protection *protection.Cuboid
	presence   *presence.Tracker
	cooldowns  *cooldown.Registry
	hooks      *hooks.Hooks
	host       *world.Memory
	events     *recorder
}

func newEnv(t *testing.T, docs definitionstest.Docs) *env {
	t.Helper()
	return newEnvOver(t, definitionstest.Holder(t, docs), store.NewMemoryAdapter())
}

// newEnvOver builds an engine with fresh in-memory state over an existing
// catalog holder and persistence adapter, as after a process restart.
func newEnvOver(t *testing.T, holder *definitions.Holder, adapter *store.MemoryAdapter) *env {
	t.Helper()
	e := &env{
		holder:     holder,
		adapter:    adapter,
		protection: protection.NewCuboid(holder.Current().Tunables.ProtectionRadius),
		presence:   presence.NewTracker(),
		cooldowns:  cooldown.New(cooldown.Config{}),
		hooks:      hooks.New(),
		host:       world.NewMemory(),
		events:     &recorder{},
	}
	t.Cleanup(e.cooldowns.Close)
	e.store = store.New(e.adapter, holder)

	engine, err := lifecycle.New(lifecycle.Deps{
		Store:      e.store,
		Catalogs:   holder,
		Protection: e.protection,
		Presence:   e.presence,
		Cooldowns:  e.cooldowns,
		Hooks:      e.hooks,
		Inventory:  e.host,
		Economy:    e.host,
		World:      e.host,
		Notifier:   e.events,
	})
	require.NoError(t, err)
	e.engine = engine
	return e
}

var origin = core.Location{World: "world", X: 100.5, Y: 64, Z: -20.2}

// placed returns an actor with an active Core at origin.
func (e *env) placed(t *testing.T) core.ActorID {
	t.Helper()
	return e.placedAt(t, origin)
}

func (e *env) placedAt(t *testing.T, loc core.Location) core.ActorID {
	t.Helper()
	actor := core.NewActorID()
	e.giveSeed(actor)
	_, err := e.engine.Place(context.Background(), actor, loc)
	require.NoError(t, err)
	return actor
}

func (e *env) giveSeed(actor core.ActorID) {
	_ = e.host.Give(context.Background(), actor, seedMaterial, 1)
	e.host.Hold(actor, seedMaterial)
}

func (e *env) record(t *testing.T, actor core.ActorID) *core.Record {
	t.Helper()
	r, err := e.store.Get(context.Background(), actor)
	require.NoError(t, err)
	return r
}

func decode[T any](t *testing.T, ev core.Event) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(ev.Payload, &v))
	return v
}
