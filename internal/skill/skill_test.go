// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package skill_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/coresystem/internal/core"
	"github.com/holomush/coresystem/internal/definitions"
	"github.com/holomush/coresystem/internal/definitions/definitionstest"
	"github.com/holomush/coresystem/internal/hooks"
	"github.com/holomush/coresystem/internal/skill"
	"github.com/holomush/coresystem/internal/store"
	"github.com/holomush/coresystem/pkg/errutil"
)

type events struct {
	mu   sync.Mutex
	seen []core.Event
}

func (e *events) Publish(_ context.Context, ev core.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seen = append(e.seen, ev)
}

type fixture struct {
	activator *skill.Activator
	store     *store.Store
	hooks     *hooks.Hooks
	events    *events
	now       time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	holder := definitionstest.Holder(t, nil)
	f := &fixture{
		store:  store.New(store.NewMemoryAdapter(), holder),
		hooks:  hooks.New(),
		events: &events{},
		now:    time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	a, err := skill.New(skill.Config{
		Store:    f.store,
		Catalogs: holder,
		Hooks:    f.hooks,
		Notifier: f.events,
		Now:      func() time.Time { return f.now },
	})
	require.NoError(t, err)
	f.activator = a
	return f
}

// guardian returns an active GUARDIAN with stone_skin unlocked.
func (f *fixture) guardian(t *testing.T, energy float64) core.ActorID {
	t.Helper()
	actor := core.NewActorID()
	_, err := f.store.Update(context.Background(), actor, func(r *core.Record) error {
		r.Active = true
		r.Location = &core.Location{World: "world"}
		r.ArchetypeID = "GUARDIAN"
		r.UnlockSkill("stone_skin")
		r.SetEnergy(energy)
		return nil
	})
	require.NoError(t, err)
	return actor
}

func TestActivate_ChargesEnergyAndStartsCooldown(t *testing.T) {
	f := newFixture(t)
	actor := f.guardian(t, 100)
	var applied []string
	f.activator.Handle(definitions.KindPotionEffect, func(_ context.Context, _ core.ActorID, s *definitions.Skill) error {
		applied = append(applied, s.ID)
		return nil
	})

	res, err := f.activator.Activate(context.Background(), actor, "stone_skin")
	require.NoError(t, err)

	assert.Equal(t, 80.0, res.Record.Energy)
	assert.Equal(t, time.Minute, res.Record.SkillCooldownRemaining("stone_skin", f.now))
	assert.Equal(t, []string{"stone_skin"}, applied)
	require.Len(t, f.events.seen, 1)
	assert.Equal(t, core.EventTypeSkillUsed, f.events.seen[0].Type)

	_, err = f.activator.Activate(context.Background(), actor, "stone_skin")
	errutil.AssertErrorCode(t, err, core.CodeOnCooldown)

	f.now = f.now.Add(61 * time.Second)
	_, err = f.activator.Activate(context.Background(), actor, "stone_skin")
	require.NoError(t, err)
}

func TestActivate_GateOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.activator.Activate(ctx, core.NewActorID(), "stone_skin")
	errutil.AssertErrorCode(t, err, core.CodeNotActive)

	actor := f.guardian(t, 100)
	_, err = f.activator.Activate(ctx, actor, "fireball")
	errutil.AssertErrorCode(t, err, core.CodeUnknownSkill)

	_, err = f.activator.Activate(ctx, actor, "dash")
	errutil.AssertErrorCode(t, err, core.CodeSkillNotInArchetype)

	_, err = f.activator.Activate(ctx, actor, "bulwark")
	errutil.AssertErrorCode(t, err, core.CodeSkillLocked)

	poor := f.guardian(t, 5)
	_, err = f.activator.Activate(ctx, poor, "stone_skin")
	errutil.AssertErrorCode(t, err, core.CodeInsufficientEnergy)
}

func TestActivate_RejectionRefunds(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	actor := f.guardian(t, 100)
	f.hooks.SkillUse.Register("arena", func(_ context.Context, u *hooks.SkillUse) error {
		return hooks.Reject("no skills in the arena")
	})

	_, err := f.activator.Activate(ctx, actor, "stone_skin")
	errutil.AssertErrorCode(t, err, core.CodeHookRejected)

	r, err := f.store.Get(ctx, actor)
	require.NoError(t, err)
	assert.Equal(t, 100.0, r.Energy)
	assert.Zero(t, r.SkillCooldownRemaining("stone_skin", f.now))
	assert.Empty(t, f.events.seen)
}

func TestActivate_HandlerFailureDoesNotUndo(t *testing.T) {
	f := newFixture(t)
	actor := f.guardian(t, 100)
	f.activator.Handle("POTION_EFFECT", func(context.Context, core.ActorID, *definitions.Skill) error {
		return errors.New("entity gone")
	})

	res, err := f.activator.Activate(context.Background(), actor, "stone_skin")
	require.NoError(t, err)
	assert.Equal(t, 80.0, res.Record.Energy)
}

func TestNew_RequiresStore(t *testing.T) {
	_, err := skill.New(skill.Config{})
	assert.Error(t, err)
}
