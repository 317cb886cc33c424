// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package lifecycle

import (
	"context"
	"slices"

	"github.com/holomush/coresystem/internal/core"
	"github.com/holomush/coresystem/internal/modifier"
	"github.com/holomush/coresystem/internal/presence"
	"github.com/holomush/coresystem/internal/progression"
)

// Status is a read-only view of a Core.
type Status struct {
	Actor        core.ActorID
	State        core.State
	Level        int
	MaxLevel     int
	TotalXP      float64
	Progress     float64
	Required     float64
	Health       float64
	MaxHealth    float64
	Energy       float64
	MaxEnergy    float64
	XPMultiplier float64
	RegenBonus   float64
	Archetype    string
	Skills       []string
	Appearance   presence.Appearance
	Location     *core.Location
	RebirthCount int
	Tutorial     bool
}

// MutationEntry is one owned mutation. Known is false when the id is no
// longer in the catalog.
type MutationEntry struct {
	ID    string
	Name  string
	Known bool
}

// History lists an actor's rebirths and mutations.
type History struct {
	RebirthCount int
	Mutations    []MutationEntry
	XPBySource   core.XPCounters
}

// Status returns the actor's current Core view.
func (e *Engine) Status(ctx context.Context, actor core.ActorID) (Status, error) {
	r, err := e.store.Get(ctx, actor)
	if err != nil {
		return Status{}, err
	}
	cat := e.Catalog()
	stats := modifier.DeriveFor(r, cat)
	var loc *core.Location
	if r.Location != nil {
		l := *r.Location
		loc = &l
	}
	return Status{
		Actor:        actor,
		State:        r.State(),
		Level:        r.Level,
		MaxLevel:     cat.MaxLevel(),
		TotalXP:      r.TotalXP,
		Progress:     progression.Progress(r.Level, r.TotalXP),
		Required:     progression.RequiredXP(r.Level),
		Health:       r.Health,
		MaxHealth:    r.MaxHealth,
		Energy:       r.Energy,
		MaxEnergy:    r.MaxEnergy,
		XPMultiplier: stats.XPMultiplier,
		RegenBonus:   stats.RegenBonus,
		Archetype:    r.ArchetypeID,
		Skills:       slices.Clone(r.UnlockedSkills),
		Appearance:   e.appearance(r.Level),
		Location:     loc,
		RebirthCount: r.RebirthCount,
		Tutorial:     r.TutorialCompleted,
	}, nil
}

// History returns the actor's rebirth count and mutation list.
func (e *Engine) History(ctx context.Context, actor core.ActorID) (History, error) {
	r, err := e.store.Get(ctx, actor)
	if err != nil {
		return History{}, err
	}
	cat := e.Catalog()
	h := History{RebirthCount: r.RebirthCount, XPBySource: r.XPBySource}
	for _, id := range r.ActiveMutations {
		entry := MutationEntry{ID: id, Name: id}
		if m, ok := cat.Mutation(id); ok {
			entry.Known = true
			if m.Name != "" {
				entry.Name = m.Name
			}
		}
		h.Mutations = append(h.Mutations, entry)
	}
	return h, nil
}
