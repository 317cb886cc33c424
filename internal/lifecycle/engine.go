// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package lifecycle orchestrates the Core state machine: placement, damage,
// destruction, restoration, rebirth and XP grants, plus the recovered
// claim/feed/energize actions and the administrative setters.
//
// Every operation checks its preconditions and calls external
// collaborators inside store.Store.Update before touching the record, so a
// failed operation leaves no partial state.
package lifecycle

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/holomush/coresystem/internal/cooldown"
	"github.com/holomush/coresystem/internal/core"
	"github.com/holomush/coresystem/internal/definitions"
	"github.com/holomush/coresystem/internal/hooks"
	"github.com/holomush/coresystem/internal/presence"
	"github.com/holomush/coresystem/internal/protection"
	"github.com/holomush/coresystem/internal/store"
	"github.com/holomush/coresystem/internal/world"
	"github.com/holomush/coresystem/pkg/errutil"
)

var tracer = otel.Tracer("coresystem/lifecycle")

// Notifier receives events for committed changes.
type Notifier interface {
	Publish(ctx context.Context, ev core.Event)
}

// Deps are the collaborators of an Engine. Economy, Notifier, Hooks and
// Roster are optional.
type Deps struct {
	Store      *store.Store
	Catalogs   *definitions.Holder
	Protection protection.Protection
	Presence   presence.Presence
	Cooldowns  *cooldown.Registry
	Hooks      *hooks.Hooks
	Inventory  world.Inventory
	Economy    world.Economy
	World      world.World
	Notifier   Notifier
	Roster     *Roster
	Now        func() time.Time
}

// Engine is the lifecycle orchestrator. It is safe for concurrent use.
type Engine struct {
	store      *store.Store
	catalogs   *definitions.Holder
	protection protection.Protection
	presence   presence.Presence
	cooldowns  *cooldown.Registry
	hooks      *hooks.Hooks
	inventory  world.Inventory
	economy    world.Economy
	world      world.World
	notifier   Notifier
	roster     *Roster
	now        func() time.Time
}

// New validates deps and builds an Engine.
func New(d Deps) (*Engine, error) {
	required := map[string]bool{
		"store":      d.Store == nil,
		"catalogs":   d.Catalogs == nil,
		"protection": d.Protection == nil,
		"presence":   d.Presence == nil,
		"cooldowns":  d.Cooldowns == nil,
		"inventory":  d.Inventory == nil,
		"world":      d.World == nil,
	}
	for name, missing := range required {
		if missing {
			return nil, oops.In("lifecycle").With("dependency", name).Errorf("%s is required", name)
		}
	}
	e := &Engine{
		store:      d.Store,
		catalogs:   d.Catalogs,
		protection: d.Protection,
		presence:   d.Presence,
		cooldowns:  d.Cooldowns,
		hooks:      d.Hooks,
		inventory:  d.Inventory,
		economy:    d.Economy,
		world:      d.World,
		notifier:   d.Notifier,
		roster:     d.Roster,
		now:        d.Now,
	}
	if e.roster == nil {
		e.roster = NewRoster()
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e, nil
}

// Roster returns the set of present actors.
func (e *Engine) Roster() *Roster {
	return e.roster
}

// Store returns the record store.
func (e *Engine) Store() *store.Store {
	return e.store
}

// Catalog returns the active definitions.
func (e *Engine) Catalog() *definitions.Catalog {
	return e.catalogs.Current()
}

// start opens a span for operation op on actor.
func (e *Engine) start(ctx context.Context, op string, actor core.ActorID) (context.Context, trace.Span) {
	return tracer.Start(ctx, "lifecycle."+op,
		trace.WithAttributes(
			attribute.String("lifecycle.operation", op),
			attribute.String("actor.id", actor.String()),
		),
	)
}

// finish records the outcome of an operation on its span and metrics.
func finish(span trace.Span, op string, err error) {
	recordOperation(op, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if code := core.CodeOf(err); code != "" {
			span.SetAttributes(attribute.String("error.code", code))
		}
	}
	span.End()
}

// displayName returns the actor's name, falling back to the id.
func (e *Engine) displayName(ctx context.Context, actor core.ActorID) string {
	if name, ok := e.roster.Name(actor); ok && name != "" {
		return name
	}
	name, err := e.world.DisplayName(ctx, actor)
	if err != nil || name == "" {
		return actor.String()
	}
	return name
}

// notify publishes an event. Encoding failures are logged.
func (e *Engine) notify(ctx context.Context, stream string, typ core.EventType, actor core.Actor, subject core.ActorID, payload any) {
	if e.notifier == nil {
		return
	}
	ev, err := core.NewEvent(stream, typ, actor, subject, payload)
	if err != nil {
		errutil.LogErrorContext(ctx, slog.Default(), "build event", err)
		return
	}
	e.notifier.Publish(ctx, ev)
}

func (e *Engine) appearance(level int) presence.Appearance {
	return presence.AppearanceFor(e.Catalog(), level)
}

// presenceFailed logs a presence error. Presence is self-healing and never
// fails an operation that already committed.
func presenceFailed(ctx context.Context, op string, actor core.ActorID, err error) {
	if err == nil {
		return
	}
	errutil.LogWarnContext(ctx, slog.Default(), "presence update failed",
		oops.With("operation", op).With("actor_id", actor.String()).Wrap(err))
}

// requireActive fails with CORE_NOT_ACTIVE unless r is active.
func requireActive(r *core.Record) error {
	if !r.Active {
		return core.ErrPrecondition(core.CodeNotActive, r.ActorID, "you do not have an active Core")
	}
	return nil
}

func backendErr(code, op string, err error) error {
	if err == nil {
		return nil
	}
	if core.CodeOf(err) != "" {
		return err
	}
	return core.ErrBackend(code, op, err)
}
