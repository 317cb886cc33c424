// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package presence

import (
	"context"
	"log/slog"

	"github.com/samber/oops"

	"github.com/holomush/coresystem/internal/core"
)

// ReconcileResult counts the repairs Reconcile made.
type ReconcileResult struct {
	Removed int
	Spawned int
}

// Reconcile brings p in line with records: visuals without an active
// record at the same block are removed, and active records without a
// visual are spawned.
func Reconcile(ctx context.Context, p Lister, records []*core.Record, appearance func(*core.Record) Appearance) (ReconcileResult, error) {
	var res ReconcileResult
	visuals, err := p.List(ctx)
	if err != nil {
		return res, oops.With("operation", "list presence").Wrap(err)
	}

	active := make(map[core.ActorID]*core.Record, len(records))
	for _, r := range records {
		if r.Active && r.Location != nil {
			active[r.ActorID] = r
		}
	}

	shown := make(map[core.ActorID]bool, len(visuals))
	for _, v := range visuals {
		r, ok := active[v.Owner]
		if ok && r.Location.SameBlock(v.Location) {
			shown[v.Owner] = true
			continue
		}
		if err := p.Remove(ctx, v.Owner); err != nil {
			return res, oops.With("operation", "remove orphan").With("actor_id", v.Owner.String()).Wrap(err)
		}
		slog.InfoContext(ctx, "removed orphaned core visual", "actor_id", v.Owner.String())
		res.Removed++
	}

	for id, r := range active {
		if shown[id] {
			continue
		}
		if err := p.Spawn(ctx, id, *r.Location, appearance(r)); err != nil {
			return res, oops.With("operation", "respawn").With("actor_id", id.String()).Wrap(err)
		}
		slog.InfoContext(ctx, "respawned missing core visual", "actor_id", id.String())
		res.Spawned++
	}
	return res, nil
}
