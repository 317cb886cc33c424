// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package lifecycle

import (
	"context"
	"log/slog"
	"math"
	"strings"

	"github.com/holomush/coresystem/internal/core"
)

// DamageResult reports the outcome of a damage report.
type DamageResult struct {
	Record    *core.Record
	Applied   bool
	Destroyed bool
}

// Damage lowers the Core's health by amount. Reaching zero destroys it.
func (e *Engine) Damage(ctx context.Context, actor core.ActorID, amount float64) (rec *core.Record, err error) {
	ctx, span := e.start(ctx, "damage", actor)
	defer func() { finish(span, "damage", err) }()

	res, err := e.applyDamage(ctx, actor, amount)
	if err != nil {
		return nil, err
	}
	return res.Record, nil
}

// ReportDamage applies a hit from the world after the vulnerability check.
// A hit the Core is not vulnerable to leaves it untouched and reports
// Applied=false. Owners can never damage their own Core.
func (e *Engine) ReportDamage(ctx context.Context, owner core.ActorID, amount float64, src DamageSource) (res DamageResult, err error) {
	ctx, span := e.start(ctx, "report_damage", owner)
	defer func() { finish(span, "report_damage", err) }()

	if src.Attacker != nil && *src.Attacker == owner {
		return DamageResult{}, core.ErrPrecondition(core.CodeSelfDamage, owner, "you cannot damage your own Core")
	}
	r, err := e.store.Get(ctx, owner)
	if err != nil {
		return DamageResult{}, err
	}
	if err := requireActive(r); err != nil {
		return DamageResult{}, err
	}
	if !Vulnerable(e.Catalog().Tunables.Vulnerability, src) {
		slog.DebugContext(ctx, "core not vulnerable", "actor_id", owner.String(),
			"cause", src.Cause, "damager", src.DamagerType)
		return DamageResult{Record: r}, nil
	}
	return e.applyDamage(ctx, owner, amount)
}

func (e *Engine) applyDamage(ctx context.Context, actor core.ActorID, amount float64) (DamageResult, error) {
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return DamageResult{}, core.ErrValidation(core.CodeInvalidAmount, "amount", "damage must be a positive number")
	}
	var res DamageResult
	rec, err := e.store.Update(ctx, actor, func(r *core.Record) error {
		if err := requireActive(r); err != nil {
			return err
		}
		r.TakeDamage(amount)
		if r.Health > 0 {
			return nil
		}
		res.Destroyed = true
		return e.destroyRecord(ctx, r)
	})
	if err != nil {
		return DamageResult{}, err
	}
	res.Record = rec
	res.Applied = true
	if res.Destroyed {
		e.afterDestroy(ctx, rec)
	}
	return res, nil
}

// Destroy destroys an active Core outright, whether or not its owner is
// present.
func (e *Engine) Destroy(ctx context.Context, actor core.ActorID) (rec *core.Record, err error) {
	ctx, span := e.start(ctx, "destroy", actor)
	defer func() { finish(span, "destroy", err) }()

	rec, err = e.store.Update(ctx, actor, func(r *core.Record) error {
		if err := requireActive(r); err != nil {
			return err
		}
		return e.destroyRecord(ctx, r)
	})
	if err != nil {
		return nil, err
	}
	e.afterDestroy(ctx, rec)
	return rec, nil
}

// destroyRecord backs up r, removes its region and deactivates it. The last
// location is kept.
func (e *Engine) destroyRecord(ctx context.Context, r *core.Record) error {
	world := ""
	if r.Location != nil {
		world = r.Location.World
	}
	if err := e.protection.Unregister(ctx, r.ActorID, world); err != nil {
		return backendErr(core.CodeProtectionFailed, "unregister region", err)
	}
	snap := r.TakeSnapshot()
	r.Backup = &snap
	r.Active = false
	r.Health = 0
	return nil
}

func (e *Engine) afterDestroy(ctx context.Context, rec *core.Record) {
	actor := rec.ActorID
	presenceFailed(ctx, "destroy", actor, e.presence.Remove(ctx, actor))
	slog.InfoContext(ctx, "core destroyed", "actor_id", actor.String(), "level", rec.Backup.Level)

	t := e.Catalog().Tunables
	if t.AnnounceDestroy && t.DestroyMessage != "" {
		msg := strings.ReplaceAll(t.DestroyMessage, "{player}", e.displayName(ctx, actor))
		e.notify(ctx, core.StreamAnnouncements, core.EventTypeDestroyed, core.SystemActor, actor, core.MessagePayload{Message: msg})
		return
	}
	e.notify(ctx, core.ActorStream(actor), core.EventTypeDestroyed, core.SystemActor, actor, core.MessagePayload{})
}
