// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package lifecycletest wires a complete in-memory Core engine for tests of
// the packages built on top of it.
package lifecycletest

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/holomush/coresystem/internal/cooldown"
	"github.com/holomush/coresystem/internal/core"
	"github.com/holomush/coresystem/internal/definitions/definitionstest"
	"github.com/holomush/coresystem/internal/hooks"
	"github.com/holomush/coresystem/internal/lifecycle"
	"github.com/holomush/coresystem/internal/presence"
	"github.com/holomush/coresystem/internal/protection"
	"github.com/holomush/coresystem/internal/skill"
	"github.com/holomush/coresystem/internal/store"
	"github.com/holomush/coresystem/internal/world"
)

// Origin is a placeable location in the default world.
var Origin = core.Location{World: "world", X: 100.5, Y: 64, Z: -20.2}

// Events records published events.
type Events struct {
	mu     sync.Mutex
	events []core.Event
}

// Publish records ev.
func (r *Events) Publish(_ context.Context, ev core.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// OfType returns the recorded events of typ in publish order.
func (r *Events) OfType(typ core.EventType) []core.Event {
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

// Env is an engine over memory backends.
type Env struct {
	Engine     *lifecycle.Engine
	Skills     *skill.Activator
	Store      *store.Store
	Protection *protection.Cuboid
	Presence   *presence.Tracker
	Cooldowns  *cooldown.Registry
	Hooks      *hooks.Hooks
	Host       *world.Memory
	Events     *Events
}

// New builds an Env over the built-in definitions with docs overriding
// individual documents.
func New(t testing.TB, docs definitionstest.Docs) *Env {
	t.Helper()
	holder := definitionstest.Holder(t, docs)
	e := &Env{
		Protection: protection.NewCuboid(holder.Current().Tunables.ProtectionRadius),
		Presence:   presence.NewTracker(),
		Cooldowns:  cooldown.New(cooldown.Config{}),
		Hooks:      hooks.New(),
		Host:       world.NewMemory(),
		Events:     &Events{},
	}
	t.Cleanup(e.Cooldowns.Close)
	e.Store = store.New(store.NewMemoryAdapter(), holder)

	engine, err := lifecycle.New(lifecycle.Deps{
		Store:      e.Store,
		Catalogs:   holder,
		Protection: e.Protection,
		Presence:   e.Presence,
		Cooldowns:  e.Cooldowns,
		Hooks:      e.Hooks,
		Inventory:  e.Host,
		Economy:    e.Host,
		World:      e.Host,
		Notifier:   e.Events,
	})
	require.NoError(t, err)
	e.Engine = engine

	skills, err := skill.New(skill.Config{Store: e.Store, Catalogs: holder, Hooks: e.Hooks, Notifier: e.Events})
	require.NoError(t, err)
	e.Skills = skills
	return e
}

// GiveSeed puts a Core seed in actor's hand.
func (e *Env) GiveSeed(actor core.ActorID) {
	seed := e.Engine.Catalog().Tunables.Seed.Material
	_ = e.Host.Give(context.Background(), actor, seed, 1)
	e.Host.Hold(actor, seed)
}

// Join adds a named actor to the roster with an active Core at loc.
func (e *Env) Join(t testing.TB, name string, loc core.Location) core.ActorID {
	t.Helper()
	ctx := context.Background()
	actor := core.NewActorID()
	e.Host.SetName(actor, name)
	_, err := e.Engine.Join(ctx, actor, name)
	require.NoError(t, err)
	e.GiveSeed(actor)
	_, err = e.Engine.Place(ctx, actor, loc)
	require.NoError(t, err)
	return actor
}

// Record returns actor's current record.
func (e *Env) Record(t testing.TB, actor core.ActorID) *core.Record {
	t.Helper()
	r, err := e.Store.Get(context.Background(), actor)
	require.NoError(t, err)
	return r
}
