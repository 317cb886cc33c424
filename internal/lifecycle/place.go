// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package lifecycle

import (
	"context"
	"log/slog"
	"strings"

	"github.com/holomush/coresystem/internal/cooldown"
	"github.com/holomush/coresystem/internal/core"
	"github.com/holomush/coresystem/internal/definitions"
	"github.com/holomush/coresystem/internal/modifier"
	"github.com/holomush/coresystem/pkg/errutil"
)

// Claim hands the actor a Core seed.
func (e *Engine) Claim(ctx context.Context, actor core.ActorID) (err error) {
	ctx, span := e.start(ctx, "claim", actor)
	defer func() { finish(span, "claim", err) }()

	seed := e.Catalog().Tunables.Seed
	r, err := e.store.Get(ctx, actor)
	if err != nil {
		return err
	}
	if r.Active {
		return core.ErrPrecondition(core.CodeAlreadyActive, actor, "you already have an active Core")
	}
	has, err := e.inventory.Has(ctx, actor, seed.Material, 1)
	if err != nil {
		return backendErr(core.CodeInventoryFailed, "check seed", err)
	}
	if has {
		return core.ErrPrecondition(core.CodeAlreadyHasSeed, actor, "you already carry a %s", seed.Name)
	}
	if err := e.cooldowns.Check(actor, cooldown.KeyClaim); err != nil {
		return err
	}
	if err := e.inventory.Give(ctx, actor, seed.Material, 1); err != nil {
		return backendErr(core.CodeInventoryFailed, "give seed", err)
	}
	e.cooldowns.Set(actor, cooldown.KeyClaim, definitions.Cooldown(e.Catalog().Tunables.Cooldowns.Claim))
	return nil
}

// Place activates the actor's Core at loc using a held seed. When the
// target block is obstructed the block above is tried instead.
func (e *Engine) Place(ctx context.Context, actor core.ActorID, loc core.Location) (rec *core.Record, err error) {
	ctx, span := e.start(ctx, "place", actor)
	defer func() { finish(span, "place", err) }()

	cat := e.Catalog()
	var target core.Location
	rec, err = e.store.Update(ctx, actor, func(r *core.Record) error {
		if r.Active {
			return core.ErrPrecondition(core.CodeAlreadyActive, actor, "you already have an active Core")
		}
		if err := e.requireSeed(ctx, actor, cat.Tunables.Seed); err != nil {
			return err
		}
		var err error
		if target, err = e.placementTarget(ctx, actor, loc); err != nil {
			return err
		}
		if err := e.protection.Register(ctx, actor, target, e.roster.Online(actor)); err != nil {
			return backendErr(core.CodeProtectionFailed, "register region", err)
		}
		if err := e.inventory.Consume(ctx, actor, cat.Tunables.Seed.Material, 1); err != nil {
			e.rollbackRegion(ctx, actor, target.World)
			return backendErr(core.CodeInventoryFailed, "consume seed", err)
		}

		r.Active = true
		r.Location = &target
		r.Backup = nil
		r.Level = 1
		r.TotalXP = 0
		modifier.Refill(r, modifier.DeriveFor(r, cat))
		unlockSkills(r, cat)
		return nil
	})
	if err != nil {
		return nil, err
	}

	presenceFailed(ctx, "place", actor, e.presence.Spawn(ctx, actor, target, e.appearance(rec.Level)))
	e.notify(ctx, core.ActorStream(actor), core.EventTypePlaced, playerActor(actor), actor, target)
	slog.InfoContext(ctx, "core placed", "actor_id", actor.String(), "world", target.World,
		"x", target.BlockX(), "y", target.BlockY(), "z", target.BlockZ())
	return rec, nil
}

func (e *Engine) requireSeed(ctx context.Context, actor core.ActorID, seed definitions.SeedItem) error {
	held, ok, err := e.inventory.Held(ctx, actor)
	if err != nil {
		return backendErr(core.CodeInventoryFailed, "held item", err)
	}
	if !ok || !strings.EqualFold(held.Material, seed.Material) || held.Amount < 1 {
		return core.ErrPrecondition(core.CodeNoSeed, actor, "you must hold a %s", seed.Name)
	}
	return nil
}

// placementTarget picks loc's block or, when that is obstructed, the block
// above, and rejects protected targets.
func (e *Engine) placementTarget(ctx context.Context, actor core.ActorID, loc core.Location) (core.Location, error) {
	target := loc.Block()
	obstructed, err := e.world.Obstructed(ctx, target)
	if err != nil {
		return core.Location{}, backendErr(core.CodeWorldFailed, "check obstruction", err)
	}
	if obstructed {
		target = loc.Above()
		if obstructed, err = e.world.Obstructed(ctx, target); err != nil {
			return core.Location{}, backendErr(core.CodeWorldFailed, "check obstruction", err)
		}
		if obstructed {
			return core.Location{}, core.ErrPrecondition(core.CodeLocationObstructed, actor, "there is no room to place a Core here")
		}
	}
	protected, err := e.protection.IsProtected(ctx, target)
	if err != nil {
		return core.Location{}, backendErr(core.CodeProtectionFailed, "check protection", err)
	}
	if protected {
		return core.Location{}, core.ErrPrecondition(core.CodeLocationProtected, actor, "this location is protected")
	}
	return target, nil
}

// rollbackRegion removes a region registered by an operation that later
// failed.
func (e *Engine) rollbackRegion(ctx context.Context, actor core.ActorID, world string) {
	if err := e.protection.Unregister(ctx, actor, world); err != nil {
		errutil.LogErrorContext(ctx, slog.Default(), "protection rollback failed", err)
	}
}

func playerActor(id core.ActorID) core.Actor {
	return core.Actor{Kind: core.ActorPlayer, ID: id.String()}
}
