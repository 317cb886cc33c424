// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package lifecycle

import (
	"context"
	"log/slog"

	"github.com/holomush/coresystem/internal/core"
	"github.com/holomush/coresystem/internal/definitions"
	"github.com/holomush/coresystem/internal/modifier"
)

// RebirthResult reports a committed rebirth.
type RebirthResult struct {
	Record   *core.Record
	Mutation *definitions.Mutation
	OldCount int
}

// Rebirth trades a max-level Core's level, XP and skills for the next
// unowned mutation in catalog order.
func (e *Engine) Rebirth(ctx context.Context, actor core.ActorID) (res RebirthResult, err error) {
	ctx, span := e.start(ctx, "rebirth", actor)
	defer func() { finish(span, "rebirth", err) }()

	cat := e.Catalog()
	rec, err := e.store.Update(ctx, actor, func(r *core.Record) error {
		if err := requireActive(r); err != nil {
			return err
		}
		if r.Level < cat.MaxLevel() {
			return core.ErrPrecondition(core.CodeNotMaxLevel, actor, "your Core must reach level %d to be reborn", cat.MaxLevel())
		}
		m, ok := cat.NextMutation(r.ActiveMutations)
		if !ok {
			return core.ErrPrecondition(core.CodeNoMutationsLeft, actor, "you have collected every mutation")
		}

		res.Mutation = m
		res.OldCount = r.RebirthCount
		r.AddMutation(m.ID)
		r.Level = 1
		r.TotalXP = 0
		modifier.Refill(r, modifier.DeriveFor(r, cat))
		r.UnlockedSkills = []string{}
		unlockSkills(r, cat)
		r.RebirthCount++
		return nil
	})
	if err != nil {
		return RebirthResult{}, err
	}
	res.Record = rec

	presenceFailed(ctx, "rebirth", actor, e.presence.UpdateAppearance(ctx, actor, e.appearance(rec.Level)))
	e.notify(ctx, core.StreamAnnouncements, core.EventTypeRebirth, playerActor(actor), actor,
		core.RebirthPayload{OldCount: res.OldCount, NewCount: rec.RebirthCount, MutationID: res.Mutation.ID})
	slog.InfoContext(ctx, "core reborn", "actor_id", actor.String(),
		"rebirth_count", rec.RebirthCount, "mutation_id", res.Mutation.ID)
	return res, nil
}
