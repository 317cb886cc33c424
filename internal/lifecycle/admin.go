// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package lifecycle

import (
	"context"
	"log/slog"
	"math"
	"strings"

	"github.com/holomush/coresystem/internal/cooldown"
	"github.com/holomush/coresystem/internal/core"
	"github.com/holomush/coresystem/internal/presence"
	"github.com/holomush/coresystem/internal/progression"
	"github.com/holomush/coresystem/internal/protection"
)

// SetHealth sets current health, clamped to [0, max].
func (e *Engine) SetHealth(ctx context.Context, actor core.ActorID, health float64) (rec *core.Record, err error) {
	ctx, span := e.start(ctx, "set_health", actor)
	defer func() { finish(span, "set_health", err) }()

	if health < 0 || math.IsNaN(health) {
		return nil, core.ErrValidation(core.CodeInvalidAmount, "health", "health cannot be negative")
	}
	return e.store.Update(ctx, actor, func(r *core.Record) error {
		if err := requireActive(r); err != nil {
			return err
		}
		r.SetHealth(health)
		return nil
	})
}

// SetEnergy sets current energy, clamped to [0, max].
func (e *Engine) SetEnergy(ctx context.Context, actor core.ActorID, energy float64) (rec *core.Record, err error) {
	ctx, span := e.start(ctx, "set_energy", actor)
	defer func() { finish(span, "set_energy", err) }()

	if energy < 0 || math.IsNaN(energy) {
		return nil, core.ErrValidation(core.CodeInvalidAmount, "energy", "energy cannot be negative")
	}
	return e.store.Update(ctx, actor, func(r *core.Record) error {
		r.SetEnergy(energy)
		return nil
	})
}

// SetLevel jumps to level with the XP total at its threshold.
func (e *Engine) SetLevel(ctx context.Context, actor core.ActorID, level int) (rec *core.Record, err error) {
	ctx, span := e.start(ctx, "set_level", actor)
	defer func() { finish(span, "set_level", err) }()

	cat := e.Catalog()
	if level < 1 || level > cat.MaxLevel() {
		return nil, core.ErrValidation(core.CodeInvalidLevel, "level", "level must be between 1 and the maximum level")
	}
	var old int
	rec, err = e.store.Update(ctx, actor, func(r *core.Record) error {
		old = r.Level
		r.Level = level
		r.TotalXP = progression.TotalXPForLevel(level)
		unlockSkills(r, cat)
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.levelChanged(ctx, rec, old)
	return rec, nil
}

// SetXP sets total XP and recomputes the level, which may go down.
func (e *Engine) SetXP(ctx context.Context, actor core.ActorID, xp float64) (rec *core.Record, err error) {
	ctx, span := e.start(ctx, "set_xp", actor)
	defer func() { finish(span, "set_xp", err) }()

	if xp < 0 || math.IsNaN(xp) || math.IsInf(xp, 0) {
		return nil, core.ErrValidation(core.CodeInvalidXP, "xp", "XP cannot be negative")
	}
	cat := e.Catalog()
	var old int
	rec, err = e.store.Update(ctx, actor, func(r *core.Record) error {
		old = r.Level
		r.TotalXP = xp
		r.Level = progression.LevelForXP(xp, cat.MaxLevel())
		unlockSkills(r, cat)
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.levelChanged(ctx, rec, old)
	return rec, nil
}

// Archetype ids that clear the current archetype.
var clearArchetype = []string{"NONE", "NULL"}

// SetArchetype replaces the archetype and resets its skills. NONE or NULL
// clears it.
func (e *Engine) SetArchetype(ctx context.Context, actor core.ActorID, id string) (rec *core.Record, err error) {
	ctx, span := e.start(ctx, "set_archetype", actor)
	defer func() { finish(span, "set_archetype", err) }()

	cat := e.Catalog()
	clearing := false
	for _, c := range clearArchetype {
		if strings.EqualFold(id, c) {
			clearing = true
		}
	}
	archID := ""
	if !clearing {
		arch, ok := cat.Archetype(id)
		if !ok {
			return nil, core.ErrUnknownDefinition(core.CodeUnknownArchetype, id)
		}
		archID = arch.ID
	}
	return e.store.Update(ctx, actor, func(r *core.Record) error {
		r.ArchetypeID = archID
		r.UnlockedSkills = []string{}
		unlockSkills(r, cat)
		return nil
	})
}

func (e *Engine) levelChanged(ctx context.Context, rec *core.Record, old int) {
	if rec.Level == old {
		return
	}
	slog.InfoContext(ctx, "core level set", "actor_id", rec.ActorID.String(), "old_level", old, "new_level", rec.Level)
	if rec.Active {
		presenceFailed(ctx, "set level", rec.ActorID, e.presence.UpdateAppearance(ctx, rec.ActorID, e.appearance(rec.Level)))
	}
}

// Reload swaps in freshly loaded definitions, applies the new region
// radius, resets energize cooldowns and runs Reconcile. A failed load
// keeps the current catalog.
func (e *Engine) Reload(ctx context.Context) (err error) {
	ctx, span := tracer.Start(ctx, "lifecycle.reload")
	defer func() { finish(span, "reload", err) }()

	cat, err := e.catalogs.Reload()
	if err != nil {
		return err
	}
	e.protection.SetRadius(cat.Tunables.ProtectionRadius)
	e.cooldowns.ClearKey(cooldown.KeyEnergize)
	if _, err := e.Reconcile(ctx); err != nil {
		return err
	}
	e.notify(ctx, core.StreamAnnouncements, core.EventTypeReloaded, core.SystemActor, core.ActorID{}, nil)
	slog.InfoContext(ctx, "definitions reloaded", "archetypes", len(cat.Archetypes()), "mutations", len(cat.Mutations()))
	return nil
}

// Reconcile brings in-memory state in line with stored records: regions
// of a memory-only protection backend are recreated for active Cores, and
// when presence can list what it shows, orphaned visuals are removed and
// missing ones respawned. Records are read without caching them.
func (e *Engine) Reconcile(ctx context.Context) (presence.ReconcileResult, error) {
	ids, err := e.store.All(ctx)
	if err != nil {
		return presence.ReconcileResult{}, err
	}
	records := make([]*core.Record, 0, len(ids))
	for _, id := range ids {
		r, err := e.store.Peek(ctx, id)
		if err != nil {
			return presence.ReconcileResult{}, err
		}
		records = append(records, r)
	}
	e.restoreRegions(ctx, records)

	lister, ok := e.presence.(presence.Lister)
	if !ok {
		return presence.ReconcileResult{}, nil
	}
	return presence.Reconcile(ctx, lister, records, func(r *core.Record) presence.Appearance {
		return e.appearance(r.Level)
	})
}

func (e *Engine) restoreRegions(ctx context.Context, records []*core.Record) {
	restorer, ok := e.protection.(protection.Restorer)
	if !ok {
		return
	}
	restored := 0
	for _, r := range records {
		if r.Active && r.Location != nil && restorer.Restore(r.ActorID, *r.Location) {
			restored++
		}
	}
	if restored > 0 {
		slog.InfoContext(ctx, "protection regions restored", "count", restored)
	}
}
