// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package lifecycle

import (
	"context"
	"log/slog"

	"github.com/holomush/coresystem/internal/core"
	"github.com/holomush/coresystem/internal/modifier"
	"github.com/holomush/coresystem/internal/protection"
	"github.com/holomush/coresystem/internal/store"
	"github.com/holomush/coresystem/pkg/errutil"
)

// Join marks actor present, loads their record, re-derives stats against
// the current catalog, creates any deferred protection region and makes
// sure an active Core is rendered.
func (e *Engine) Join(ctx context.Context, actor core.ActorID, name string) (rec *core.Record, err error) {
	ctx, span := e.start(ctx, "join", actor)
	defer func() { finish(span, "join", err) }()

	e.roster.Add(actor, name)
	cat := e.Catalog()
	rec, err = e.store.Update(ctx, actor, func(r *core.Record) error {
		before := r.Clone()
		modifier.Apply(r, modifier.DeriveFor(r, cat))
		unlockSkills(r, cat)
		if r.MaxHealth == before.MaxHealth && r.MaxEnergy == before.MaxEnergy &&
			r.Health == before.Health && r.Energy == before.Energy &&
			len(r.UnlockedSkills) == len(before.UnlockedSkills) {
			return store.ErrUnchanged
		}
		return nil
	})
	if err != nil {
		e.roster.Remove(actor)
		return nil, err
	}
	if !rec.Active || rec.Location == nil {
		return rec, nil
	}
	if restorer, ok := e.protection.(protection.Restorer); ok {
		restorer.Restore(actor, *rec.Location)
	}
	if err := e.protection.Resume(ctx, actor); err != nil {
		errutil.LogErrorContext(ctx, slog.Default(), "resume protection failed", err)
	}
	presenceFailed(ctx, "join", actor, e.presence.EnsureExists(ctx, actor, *rec.Location, e.appearance(rec.Level)))
	return rec, nil
}

// Leave marks actor absent, saves their record and drops it from the
// cache.
func (e *Engine) Leave(ctx context.Context, actor core.ActorID) (err error) {
	ctx, span := e.start(ctx, "leave", actor)
	defer func() { finish(span, "leave", err) }()

	e.roster.Remove(actor)
	return e.store.Evict(ctx, actor)
}

// CompleteTutorial records that the actor finished the tutorial.
func (e *Engine) CompleteTutorial(ctx context.Context, actor core.ActorID) (err error) {
	ctx, span := e.start(ctx, "complete_tutorial", actor)
	defer func() { finish(span, "complete_tutorial", err) }()

	_, err = e.store.Update(ctx, actor, func(r *core.Record) error {
		if r.TutorialCompleted {
			return store.ErrUnchanged
		}
		r.TutorialCompleted = true
		return nil
	})
	return err
}
