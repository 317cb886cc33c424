// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package lifecycle

import (
	"context"
	"log/slog"

	"github.com/holomush/coresystem/internal/cooldown"
	"github.com/holomush/coresystem/internal/core"
	"github.com/holomush/coresystem/internal/definitions"
	"github.com/holomush/coresystem/internal/modifier"
	"github.com/holomush/coresystem/pkg/errutil"
)

// Restore brings a destroyed Core back at loc from its backup, paying the
// configured item and currency costs. When loc is nil the Core's last
// location is used.
func (e *Engine) Restore(ctx context.Context, actor core.ActorID, loc *core.Location) (rec *core.Record, err error) {
	ctx, span := e.start(ctx, "restore", actor)
	defer func() { finish(span, "restore", err) }()

	cat := e.Catalog()
	cfg := cat.Tunables.Restoration
	var target core.Location
	rec, err = e.store.Update(ctx, actor, func(r *core.Record) error {
		if r.Active {
			return core.ErrPrecondition(core.CodeAlreadyActive, actor, "your Core is already active")
		}
		if r.Backup == nil {
			return core.ErrPrecondition(core.CodeNoBackup, actor, "there is no destroyed Core to restore")
		}
		if !cfg.Enabled {
			return core.ErrPrecondition(core.CodeRestorationDisabled, actor, "Core restoration is disabled")
		}
		if err := e.cooldowns.Check(actor, cooldown.KeyRestore); err != nil {
			return err
		}
		switch {
		case loc != nil:
			target = loc.Block()
		case r.Location != nil:
			target = r.Location.Block()
		default:
			return core.ErrValidation(core.CodeInvalidInput, "location", "a location is required")
		}
		if err := e.checkRestoreTarget(ctx, actor, target); err != nil {
			return err
		}
		if err := e.checkRestoreCosts(ctx, actor, cat.RestorationCosts, cfg.EconomyCost); err != nil {
			return err
		}
		if err := e.protection.Register(ctx, actor, target, e.roster.Online(actor)); err != nil {
			return backendErr(core.CodeProtectionFailed, "register region", err)
		}
		if err := e.payRestoreCosts(ctx, actor, cat.RestorationCosts, cfg.EconomyCost); err != nil {
			e.rollbackRegion(ctx, actor, target.World)
			return err
		}

		r.RestoreSnapshot()
		modifier.Apply(r, modifier.DeriveFor(r, cat))
		r.SetHealth(r.MaxHealth)
		r.Active = true
		r.Location = &target
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.cooldowns.Set(actor, cooldown.KeyRestore, definitions.Cooldown(cfg.CooldownSeconds))
	presenceFailed(ctx, "restore", actor, e.presence.Spawn(ctx, actor, target, e.appearance(rec.Level)))
	e.notify(ctx, core.ActorStream(actor), core.EventTypeRestored, playerActor(actor), actor, target)
	slog.InfoContext(ctx, "core restored", "actor_id", actor.String(), "level", rec.Level)
	return rec, nil
}

func (e *Engine) checkRestoreTarget(ctx context.Context, actor core.ActorID, target core.Location) error {
	ok, err := e.protection.CanModify(ctx, actor, target)
	if err != nil {
		return backendErr(core.CodeProtectionFailed, "check protection", err)
	}
	if !ok {
		return core.ErrPrecondition(core.CodeLocationProtected, actor, "this location is protected")
	}
	return nil
}

func (e *Engine) checkRestoreCosts(ctx context.Context, actor core.ActorID, items []definitions.ItemCost, currency float64) error {
	for _, cost := range items {
		ok, err := e.inventory.Has(ctx, actor, cost.Material, cost.Amount)
		if err != nil {
			return backendErr(core.CodeInventoryFailed, "check items", err)
		}
		if !ok {
			return core.ErrPrecondition(core.CodeMissingItems, actor, "you need %d %s", cost.Amount, cost.Material)
		}
	}
	if currency <= 0 || e.economy == nil {
		return nil
	}
	balance, err := e.economy.Balance(ctx, actor)
	if err != nil {
		return backendErr(core.CodeEconomyFailed, "balance", err)
	}
	if balance < currency {
		return core.ErrPrecondition(core.CodeInsufficientFunds, actor, "restoration costs %.2f", currency)
	}
	return nil
}

// payRestoreCosts consumes items then withdraws currency. Items already
// taken are handed back when a later step fails.
func (e *Engine) payRestoreCosts(ctx context.Context, actor core.ActorID, items []definitions.ItemCost, currency float64) error {
	var taken []definitions.ItemCost
	refund := func() {
		for _, c := range taken {
			if err := e.inventory.Give(ctx, actor, c.Material, c.Amount); err != nil {
				errutil.LogErrorContext(ctx, slog.Default(), "restoration refund failed", err)
			}
		}
	}
	for _, cost := range items {
		if err := e.inventory.Consume(ctx, actor, cost.Material, cost.Amount); err != nil {
			refund()
			return backendErr(core.CodeInventoryFailed, "consume items", err)
		}
		taken = append(taken, cost)
	}
	if currency <= 0 || e.economy == nil {
		return nil
	}
	if err := e.economy.Withdraw(ctx, actor, currency); err != nil {
		refund()
		return backendErr(core.CodeEconomyFailed, "withdraw", err)
	}
	return nil
}
