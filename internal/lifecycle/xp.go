// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package lifecycle

import (
	"context"
	"log/slog"
	"math"
	"strings"

	"github.com/holomush/coresystem/internal/core"
	"github.com/holomush/coresystem/internal/definitions"
	"github.com/holomush/coresystem/internal/hooks"
	"github.com/holomush/coresystem/internal/modifier"
	"github.com/holomush/coresystem/internal/progression"
	"github.com/holomush/coresystem/internal/store"
)

// XPResult reports a committed XP grant.
type XPResult struct {
	Record   *core.Record
	Granted  float64
	OldLevel int
	NewLevel int
	Unlocked []string
}

// LeveledUp reports whether the grant crossed at least one level.
func (r XPResult) LeveledUp() bool {
	return r.NewLevel > r.OldLevel
}

// GrantXP adds amount, scaled by the Core's XP multiplier and passed
// through the XP validators, and levels up as far as the total allows.
// A grant that ends up non-positive changes nothing.
func (e *Engine) GrantXP(ctx context.Context, actor core.ActorID, amount float64, reason string) (res XPResult, err error) {
	ctx, span := e.start(ctx, "grant_xp", actor)
	defer func() { finish(span, "grant_xp", err) }()

	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return XPResult{}, core.ErrValidation(core.CodeInvalidXP, "amount", "XP must be a finite number")
	}
	cat := e.Catalog()
	rec, err := e.store.Update(ctx, actor, func(r *core.Record) error {
		if err := requireActive(r); err != nil {
			return err
		}
		if r.Level >= cat.MaxLevel() {
			return core.ErrPrecondition(core.CodeMaxLevel, actor, "your Core is already at the maximum level")
		}
		if amount <= 0 {
			return store.ErrUnchanged
		}
		stats := modifier.DeriveFor(r, cat)
		grant := &hooks.XPGrant{
			Actor:  actor,
			Amount: math.Max(0, amount*stats.XPMultiplier),
			Reason: reason,
			Level:  r.Level,
		}
		if err := e.hooks.RunXPGrant(ctx, grant); err != nil {
			return err
		}
		if grant.Amount <= 0 || math.IsNaN(grant.Amount) {
			return store.ErrUnchanged
		}

		res.OldLevel = r.Level
		res.Granted = grant.Amount
		r.AddXP(grant.Amount, reason)
		r.Level = progression.LevelUp(r.Level, r.TotalXP, cat.MaxLevel())
		res.NewLevel = r.Level
		res.Unlocked = unlockSkills(r, cat)
		return nil
	})
	if err != nil {
		return XPResult{}, err
	}
	res.Record = rec
	if res.Granted == 0 {
		res.OldLevel, res.NewLevel = rec.Level, rec.Level
		return res, nil
	}
	e.afterXP(ctx, actor, reason, res)
	return res, nil
}

func (e *Engine) afterXP(ctx context.Context, actor core.ActorID, reason string, res XPResult) {
	xpGrantedTotal.WithLabelValues(reasonLabel(reason)).Add(res.Granted)
	e.notify(ctx, core.ActorStream(actor), core.EventTypeXPGained, core.SystemActor, actor,
		core.XPPayload{Amount: res.Granted, Reason: reason, Total: res.Record.TotalXP})
	if !res.LeveledUp() {
		return
	}
	levelUpsTotal.Add(float64(res.NewLevel - res.OldLevel))
	e.notify(ctx, core.ActorStream(actor), core.EventTypeLevelUp, core.SystemActor, actor,
		core.LevelUpPayload{OldLevel: res.OldLevel, NewLevel: res.NewLevel})
	presenceFailed(ctx, "level up", actor, e.presence.UpdateAppearance(ctx, actor, e.appearance(res.NewLevel)))
	slog.InfoContext(ctx, "core leveled up", "actor_id", actor.String(),
		"old_level", res.OldLevel, "new_level", res.NewLevel)
}

// reasonLabel bounds the metric label set: per-creature mob reasons
// collapse to MOB_KILL.
func reasonLabel(reason string) string {
	if strings.HasPrefix(reason, core.ReasonMobKill) {
		return core.ReasonMobKill
	}
	switch reason {
	case core.ReasonPlayerKill, core.ReasonCoreFeed, core.ReasonAdmin:
		return reason
	}
	return "OTHER"
}

// MobKillReason is the grant reason for killing creature.
func MobKillReason(creature string) string {
	return core.ReasonMobKill + "_" + strings.ToUpper(creature)
}

// RewardMobKill grants the XP listed for creature, falling back to the
// DEFAULT entry.
func (e *Engine) RewardMobKill(ctx context.Context, killer core.ActorID, creature string) (XPResult, error) {
	return e.GrantXP(ctx, killer, e.Catalog().MobKillXP(creature), MobKillReason(creature))
}

// RewardPlayerKill grants the player-kill XP. Killing yourself earns
// nothing.
func (e *Engine) RewardPlayerKill(ctx context.Context, killer, victim core.ActorID) (XPResult, error) {
	if killer == victim {
		return XPResult{}, core.ErrPrecondition(core.CodeSelfDamage, killer, "no XP for killing yourself")
	}
	return e.GrantXP(ctx, killer, e.Catalog().Experience.PlayerKill, core.ReasonPlayerKill)
}

// unlockSkills unlocks every skill of r's archetype whose level and
// prerequisites are met, repeating until nothing changes. It returns the
// newly unlocked ids in unlock order.
func unlockSkills(r *core.Record, cat *definitions.Catalog) []string {
	if r.ArchetypeID == "" {
		return nil
	}
	arch, ok := cat.Archetype(r.ArchetypeID)
	if !ok {
		return nil
	}
	var unlocked []string
	for changed := true; changed; {
		changed = false
		for _, s := range arch.SkillsInOrder() {
			if r.HasSkill(s.ID) || r.Level < s.RequiredLevel || !prerequisitesMet(r, s) {
				continue
			}
			r.UnlockSkill(s.ID)
			unlocked = append(unlocked, s.ID)
			changed = true
		}
	}
	return unlocked
}

func prerequisitesMet(r *core.Record, s *definitions.Skill) bool {
	for _, p := range s.Prerequisites {
		if !r.HasSkill(p) {
			return false
		}
	}
	return true
}
