// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package skill activates archetype skills: it gates the activation,
// charges energy, starts the persisted cooldown and dispatches the effect
// to a handler registered for its kind.
package skill

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/holomush/coresystem/internal/cooldown"
	"github.com/holomush/coresystem/internal/core"
	"github.com/holomush/coresystem/internal/definitions"
	"github.com/holomush/coresystem/internal/hooks"
	"github.com/holomush/coresystem/internal/store"
	"github.com/holomush/coresystem/pkg/errutil"
)

var tracer = otel.Tracer("coresystem/skill")

var activationsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "coresystem_skill_activations_total",
		Help: "Skill activations by effect kind and outcome",
	},
	[]string{"kind", "status"},
)

// RegisterMetrics registers skill metrics with reg.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(activationsTotal)
}

// Handler applies a skill's effect in the world after the activation has
// been committed.
type Handler func(ctx context.Context, actor core.ActorID, s *definitions.Skill) error

// CatalogSource supplies the active definitions.
type CatalogSource interface {
	Current() *definitions.Catalog
}

// Notifier receives skill events.
type Notifier interface {
	Publish(ctx context.Context, ev core.Event)
}

// Config wires an Activator. Hooks, Notifier and Now are optional.
type Config struct {
	Store    *store.Store
	Catalogs CatalogSource
	Hooks    *hooks.Hooks
	Notifier Notifier
	Now      func() time.Time
}

// Activator runs skill activations. It is safe for concurrent use.
type Activator struct {
	store    *store.Store
	catalogs CatalogSource
	hooks    *hooks.Hooks
	notifier Notifier
	now      func() time.Time

	mu       sync.RWMutex
	handlers map[string]Handler
}

// New creates an Activator with no effect handlers.
func New(cfg Config) (*Activator, error) {
	if cfg.Store == nil || cfg.Catalogs == nil {
		return nil, oops.In("skill").Errorf("store and catalogs are required")
	}
	a := &Activator{
		store:    cfg.Store,
		catalogs: cfg.Catalogs,
		hooks:    cfg.Hooks,
		notifier: cfg.Notifier,
		now:      cfg.Now,
		handlers: make(map[string]Handler),
	}
	if a.now == nil {
		a.now = time.Now
	}
	return a, nil
}

// Handle registers h for effect kind, replacing any previous handler.
func (a *Activator) Handle(kind string, h Handler) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.handlers[definitions.NormalizeKind(kind)] = h
}

func (a *Activator) handler(kind string) (Handler, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	h, ok := a.handlers[definitions.NormalizeKind(kind)]
	return h, ok
}

// Result reports a committed activation.
type Result struct {
	Record *core.Record
	Skill  *definitions.Skill
}

// Activate uses skillID for actor. The checks run in order: active Core,
// known skill, skill in the actor's archetype, unlocked, off cooldown,
// enough energy, validators. Nothing is charged unless every check passes.
func (a *Activator) Activate(ctx context.Context, actor core.ActorID, skillID string) (res Result, err error) {
	ctx, span := tracer.Start(ctx, "skill.activate",
		trace.WithAttributes(
			attribute.String("actor.id", actor.String()),
			attribute.String("skill.id", skillID),
		),
	)
	kind := "unknown"
	defer func() {
		status := "ok"
		if err != nil {
			status = string(core.KindOf(err))
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		activationsTotal.WithLabelValues(kind, status).Inc()
		span.End()
	}()

	cat := a.catalogs.Current()
	rec, err := a.store.Update(ctx, actor, func(r *core.Record) error {
		if !r.Active {
			return core.ErrPrecondition(core.CodeNotActive, actor, "you do not have an active Core")
		}
		s, ok := cat.Skill(skillID)
		if !ok {
			return core.ErrUnknownDefinition(core.CodeUnknownSkill, skillID)
		}
		kind = effectKind(s)
		if r.ArchetypeID == "" || s.ArchetypeID != r.ArchetypeID {
			return core.ErrPrecondition(core.CodeSkillNotInArchetype, actor, "%s is not part of your archetype", skillID)
		}
		if !r.HasSkill(s.ID) {
			return core.ErrPrecondition(core.CodeSkillLocked, actor, "you have not unlocked %s", skillID)
		}
		now := a.now()
		if err := cooldown.CheckSkill(r, s.ID, now); err != nil {
			return err
		}
		if !r.ConsumeEnergy(s.EnergyCost) {
			return core.ErrPrecondition(core.CodeInsufficientEnergy, actor, "%s needs %.0f energy", skillID, s.EnergyCost)
		}
		use := &hooks.SkillUse{Actor: actor, SkillID: s.ID, ArchetypeID: s.ArchetypeID, EnergyCost: s.EnergyCost}
		if err := a.hooks.RunSkillUse(ctx, use); err != nil {
			return err
		}
		r.SetSkillCooldown(s.ID, s.Cooldown, now)
		res.Skill = s
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	res.Record = rec
	a.dispatch(ctx, actor, res.Skill)
	return res, nil
}

func (a *Activator) dispatch(ctx context.Context, actor core.ActorID, s *definitions.Skill) {
	kind := effectKind(s)
	if h, ok := a.handler(kind); ok {
		if err := h(ctx, actor, s); err != nil {
			errutil.LogErrorContext(ctx, slog.Default(), "skill effect failed",
				oops.With("skill_id", s.ID).With("effect_kind", kind).Wrap(err))
		}
	} else {
		slog.WarnContext(ctx, "no handler for skill effect", "skill_id", s.ID, "effect_kind", kind)
	}
	if a.notifier == nil {
		return
	}
	ev, err := core.NewEvent(core.ActorStream(actor), core.EventTypeSkillUsed,
		core.Actor{Kind: core.ActorPlayer, ID: actor.String()}, actor,
		core.SkillPayload{SkillID: s.ID, EffectKind: kind})
	if err != nil {
		errutil.LogErrorContext(ctx, slog.Default(), "build event", err)
		return
	}
	a.notifier.Publish(ctx, ev)
}

func effectKind(s *definitions.Skill) string {
	if s.Effect == nil {
		return definitions.KindNone
	}
	return s.Effect.Kind()
}
