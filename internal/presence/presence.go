// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package presence defines the world-visible marker of a placed Core and an
// in-memory implementation that records what the renderer has been told.
package presence

import (
	"context"
	"slices"
	"sync"

	"github.com/holomush/coresystem/internal/core"
	"github.com/holomush/coresystem/internal/definitions"
)

// Appearance selects how a Core is drawn.
type Appearance struct {
	Tier      string
	VisualID  string
	ModelData int
	Level     int
}

// AppearanceFor maps a level onto its evolution tier.
func AppearanceFor(c *definitions.Catalog, level int) Appearance {
	tier := c.TierFor(level)
	return Appearance{Tier: tier.Name, VisualID: tier.VisualID, ModelData: tier.ModelData, Level: level}
}

// Presence renders Cores in the world. Every method is idempotent.
type Presence interface {
	Spawn(ctx context.Context, owner core.ActorID, loc core.Location, a Appearance) error
	UpdateAppearance(ctx context.Context, owner core.ActorID, a Appearance) error
	Remove(ctx context.Context, owner core.ActorID) error
	EnsureExists(ctx context.Context, owner core.ActorID, loc core.Location, a Appearance) error
}

// Lister is a Presence that can enumerate what it currently shows.
type Lister interface {
	Presence
	List(ctx context.Context) ([]Visual, error)
}

// Visual is one rendered Core.
type Visual struct {
	Owner      core.ActorID
	Location   core.Location
	Appearance Appearance
}

// Tracker is an in-memory Lister. It is safe for concurrent use.
type Tracker struct {
	mu      sync.RWMutex
	visuals map[core.ActorID]Visual
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{visuals: make(map[core.ActorID]Visual)}
}

// Spawn implements Presence. An existing visual is replaced.
func (t *Tracker) Spawn(_ context.Context, owner core.ActorID, loc core.Location, a Appearance) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.visuals[owner] = Visual{Owner: owner, Location: loc.Block(), Appearance: a}
	return nil
}

// UpdateAppearance implements Presence. Unknown owners are ignored.
func (t *Tracker) UpdateAppearance(_ context.Context, owner core.ActorID, a Appearance) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if v, ok := t.visuals[owner]; ok {
		v.Appearance = a
		t.visuals[owner] = v
	}
	return nil
}

// Remove implements Presence.
func (t *Tracker) Remove(_ context.Context, owner core.ActorID) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.visuals, owner)
	return nil
}

// EnsureExists implements Presence: it spawns only when no visual exists
// at loc.
func (t *Tracker) EnsureExists(ctx context.Context, owner core.ActorID, loc core.Location, a Appearance) error {
	t.mu.RLock()
	v, ok := t.visuals[owner]
	t.mu.RUnlock()
	if ok && v.Location.SameBlock(loc) {
		return nil
	}
	return t.Spawn(ctx, owner, loc, a)
}

// Get returns the visual for owner.
func (t *Tracker) Get(owner core.ActorID) (Visual, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.visuals[owner]
	return v, ok
}

// List implements Lister.
func (t *Tracker) List(_ context.Context) ([]Visual, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Visual, 0, len(t.visuals))
	for _, v := range t.visuals {
		out = append(out, v)
	}
	slices.SortFunc(out, func(a, b Visual) int { return a.Owner.Compare(b.Owner) })
	return out, nil
}
