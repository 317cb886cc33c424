// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package lifecycle

import (
	"context"
	"log/slog"

	"github.com/holomush/coresystem/internal/cooldown"
	"github.com/holomush/coresystem/internal/core"
	"github.com/holomush/coresystem/internal/definitions"
	"github.com/holomush/coresystem/internal/world"
	"github.com/holomush/coresystem/pkg/errutil"
)

// Feed sacrifices one held item for XP.
func (e *Engine) Feed(ctx context.Context, actor core.ActorID) (res XPResult, err error) {
	ctx, span := e.start(ctx, "feed", actor)
	defer func() { finish(span, "feed", err) }()

	cat := e.Catalog()
	r, err := e.store.Get(ctx, actor)
	if err != nil {
		return XPResult{}, err
	}
	if err := requireActive(r); err != nil {
		return XPResult{}, err
	}
	if r.Level >= cat.MaxLevel() {
		return XPResult{}, core.ErrPrecondition(core.CodeMaxLevel, actor, "your Core is already at the maximum level")
	}
	if err := e.cooldowns.Check(actor, cooldown.KeyFeed); err != nil {
		return XPResult{}, err
	}
	held, err := e.heldItem(ctx, actor)
	if err != nil {
		return XPResult{}, err
	}
	xp := cat.FeedXP(held.Material)
	if xp <= 0 {
		return XPResult{}, core.ErrPrecondition(core.CodeItemNotAccepted, actor, "your Core will not accept %s", held.Material)
	}
	if err := e.inventory.Consume(ctx, actor, held.Material, 1); err != nil {
		return XPResult{}, backendErr(core.CodeInventoryFailed, "consume item", err)
	}
	res, err = e.GrantXP(ctx, actor, xp, core.ReasonCoreFeed)
	if err != nil {
		if gerr := e.inventory.Give(ctx, actor, held.Material, 1); gerr != nil {
			errutil.LogErrorContext(ctx, slog.Default(), "feed refund failed", gerr)
		}
		return XPResult{}, err
	}
	e.cooldowns.Set(actor, cooldown.KeyFeed, definitions.Cooldown(cat.Tunables.Cooldowns.Feed))
	return res, nil
}

// Energize converts one held energy item into Core energy.
func (e *Engine) Energize(ctx context.Context, actor core.ActorID) (rec *core.Record, err error) {
	ctx, span := e.start(ctx, "energize", actor)
	defer func() { finish(span, "energize", err) }()

	cat := e.Catalog()
	rec, err = e.store.Update(ctx, actor, func(r *core.Record) error {
		if err := requireActive(r); err != nil {
			return err
		}
		if r.Energy >= r.MaxEnergy {
			return core.ErrPrecondition(core.CodeEnergyFull, actor, "your Core is already fully charged")
		}
		if err := e.cooldowns.Check(actor, cooldown.KeyEnergize); err != nil {
			return err
		}
		held, err := e.heldItem(ctx, actor)
		if err != nil {
			return err
		}
		energy := cat.EnergyFor(held.Material)
		if energy <= 0 {
			return core.ErrPrecondition(core.CodeItemNotAccepted, actor, "%s holds no energy", held.Material)
		}
		if err := e.inventory.Consume(ctx, actor, held.Material, 1); err != nil {
			return backendErr(core.CodeInventoryFailed, "consume item", err)
		}
		r.AddEnergy(energy)
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.cooldowns.Set(actor, cooldown.KeyEnergize, definitions.Cooldown(cat.Tunables.Cooldowns.Energize))
	return rec, nil
}

func (e *Engine) heldItem(ctx context.Context, actor core.ActorID) (world.Item, error) {
	held, ok, err := e.inventory.Held(ctx, actor)
	if err != nil {
		return world.Item{}, backendErr(core.CodeInventoryFailed, "held item", err)
	}
	if !ok || held.Amount < 1 {
		return world.Item{}, core.ErrPrecondition(core.CodeNothingHeld, actor, "you are not holding anything")
	}
	return held, nil
}
