// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package lifecycle

import (
	"context"

	"github.com/holomush/coresystem/internal/core"
)

// ChooseArchetype commits an active Core to an archetype and unlocks the
// skills its level already qualifies for. The choice is permanent.
func (e *Engine) ChooseArchetype(ctx context.Context, actor core.ActorID, id string) (unlocked []string, err error) {
	ctx, span := e.start(ctx, "choose_archetype", actor)
	defer func() { finish(span, "choose_archetype", err) }()

	cat := e.Catalog()
	_, err = e.store.Update(ctx, actor, func(r *core.Record) error {
		if err := requireActive(r); err != nil {
			return err
		}
		if r.ArchetypeID != "" {
			return core.ErrPrecondition(core.CodeArchetypeChosen, actor, "you have already chosen the %s archetype", r.ArchetypeID)
		}
		arch, ok := cat.Archetype(id)
		if !ok {
			return core.ErrUnknownDefinition(core.CodeUnknownArchetype, id)
		}
		r.ArchetypeID = arch.ID
		unlocked = unlockSkills(r, cat)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return unlocked, nil
}
