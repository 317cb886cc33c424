// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package lifecycle_test

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/coresystem/internal/core"
	"github.com/holomush/coresystem/internal/definitions"
	"github.com/holomush/coresystem/internal/hooks"
	"github.com/holomush/coresystem/internal/lifecycle"
	"github.com/holomush/coresystem/internal/presence"
	"github.com/holomush/coresystem/internal/store"
	"github.com/holomush/coresystem/pkg/errutil"
)

func TestClaim(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	actor := core.NewActorID()

	require.NoError(t, e.engine.Claim(ctx, actor))
	assert.Equal(t, 1, e.host.Count(actor, seedMaterial))

	errutil.AssertErrorCode(t, e.engine.Claim(ctx, actor), core.CodeAlreadyHasSeed)

	require.NoError(t, e.host.Consume(ctx, actor, seedMaterial, 1))
	errutil.AssertErrorCode(t, e.engine.Claim(ctx, actor), core.CodeOnCooldown)

	errutil.AssertErrorCode(t, e.engine.Claim(ctx, e.placed(t)), core.CodeAlreadyActive)
}

func TestFeed(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	actor := e.placed(t)

	_, err := e.engine.Feed(ctx, actor)
	errutil.AssertErrorCode(t, err, core.CodeNothingHeld)

	require.NoError(t, e.host.Give(ctx, actor, "DIAMOND", 2))
	e.host.Hold(actor, "DIAMOND")

	res, err := e.engine.Feed(ctx, actor)
	require.NoError(t, err)
	assert.Equal(t, 50.0, res.Granted)
	assert.Equal(t, 50.0, res.Record.XPBySource.Feed)
	assert.Equal(t, 1, e.host.Count(actor, "DIAMOND"))

	_, err = e.engine.Feed(ctx, actor)
	errutil.AssertErrorCode(t, err, core.CodeOnCooldown)
	assert.Equal(t, 1, e.host.Count(actor, "DIAMOND"))
}

func TestFeed_RefundsWhenGrantRejected(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	actor := e.placed(t)
	require.NoError(t, e.host.Give(ctx, actor, "EMERALD", 1))
	e.host.Hold(actor, "EMERALD")
	e.hooks.XPGrant.Register("closed", func(context.Context, *hooks.XPGrant) error {
		return hooks.Reject("feeding closed")
	})

	_, err := e.engine.Feed(ctx, actor)
	errutil.AssertErrorCode(t, err, core.CodeHookRejected)
	assert.Equal(t, 1, e.host.Count(actor, "EMERALD"))
}

func TestEnergize(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	actor := e.placed(t)

	_, err := e.engine.Energize(ctx, actor)
	errutil.AssertErrorCode(t, err, core.CodeEnergyFull)

	_, err = e.engine.SetEnergy(ctx, actor, 50)
	require.NoError(t, err)

	require.NoError(t, e.host.Give(ctx, actor, "DIRT", 1))
	e.host.Hold(actor, "DIRT")
	_, err = e.engine.Energize(ctx, actor)
	errutil.AssertErrorCode(t, err, core.CodeItemNotAccepted)

	require.NoError(t, e.host.Give(ctx, actor, "REDSTONE", 3))
	e.host.Hold(actor, "REDSTONE")
	rec, err := e.engine.Energize(ctx, actor)
	require.NoError(t, err)
	assert.Equal(t, 55.0, rec.Energy)
	assert.Equal(t, 2, e.host.Count(actor, "REDSTONE"))

	_, err = e.engine.Energize(ctx, actor)
	errutil.AssertErrorCode(t, err, core.CodeOnCooldown)

	require.NoError(t, e.engine.Reload(ctx))
	rec, err = e.engine.Energize(ctx, actor)
	require.NoError(t, err, "reload clears energize cooldowns")
	assert.Equal(t, 60.0, rec.Energy)
}

func TestChooseArchetype(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()

	_, err := e.engine.ChooseArchetype(ctx, core.NewActorID(), "guardian")
	errutil.AssertErrorCode(t, err, core.CodeNotActive)

	actor := e.placed(t)
	_, err = e.engine.ChooseArchetype(ctx, actor, "necromancer")
	errutil.AssertErrorCode(t, err, core.CodeUnknownArchetype)

	unlocked, err := e.engine.ChooseArchetype(ctx, actor, "striker")
	require.NoError(t, err)
	assert.Equal(t, []string{"dash"}, unlocked)
	assert.Equal(t, "STRIKER", e.record(t, actor).ArchetypeID)

	_, err = e.engine.ChooseArchetype(ctx, actor, "guardian")
	errutil.AssertErrorCode(t, err, core.CodeArchetypeChosen)
}

func TestAdminSetters(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	actor := e.placed(t)

	rec, err := e.engine.SetHealth(ctx, actor, 500)
	require.NoError(t, err)
	assert.Equal(t, 100.0, rec.Health, "clamped to max")

	_, err = e.engine.SetHealth(ctx, actor, -5)
	errutil.AssertErrorCode(t, err, core.CodeInvalidAmount)

	_, err = e.engine.SetLevel(ctx, actor, 0)
	errutil.AssertErrorCode(t, err, core.CodeInvalidLevel)
	_, err = e.engine.SetLevel(ctx, actor, 21)
	errutil.AssertErrorCode(t, err, core.CodeInvalidLevel)

	rec, err = e.engine.SetLevel(ctx, actor, 10)
	require.NoError(t, err)
	assert.Equal(t, 4500.0, rec.TotalXP)
	visual, _ := e.presence.Get(actor)
	assert.Equal(t, "BLOOM", visual.Appearance.VisualID)

	rec, err = e.engine.SetXP(ctx, actor, 250)
	require.NoError(t, err)
	assert.Equal(t, 2, rec.Level, "level recomputed downwards")

	_, err = e.engine.SetXP(ctx, actor, -1)
	errutil.AssertErrorCode(t, err, core.CodeInvalidXP)

	rec, err = e.engine.SetArchetype(ctx, actor, "guardian")
	require.NoError(t, err)
	assert.Equal(t, []string{"stone_skin"}, rec.UnlockedSkills)

	rec, err = e.engine.SetArchetype(ctx, actor, "none")
	require.NoError(t, err)
	assert.Empty(t, rec.ArchetypeID)
	assert.Empty(t, rec.UnlockedSkills)

	_, err = e.engine.SetArchetype(ctx, actor, "wizard")
	errutil.AssertErrorCode(t, err, core.CodeUnknownArchetype)
}

func TestJoinLeave(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	actor := e.placed(t)
	require.NoError(t, e.presence.Remove(ctx, actor))

	rec, err := e.engine.Join(ctx, actor, "Bob")
	require.NoError(t, err)
	assert.True(t, rec.Active)
	assert.True(t, e.engine.Roster().Online(actor))
	_, shown := e.presence.Get(actor)
	assert.True(t, shown, "join respawns a missing visual")

	require.NoError(t, e.engine.Leave(ctx, actor))
	assert.False(t, e.engine.Roster().Online(actor))
	assert.NotContains(t, e.store.Cached(), actor)

	again, err := e.store.Get(ctx, actor)
	require.NoError(t, err)
	assert.True(t, again.Active, "record survives eviction")
}

func TestReconcile(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	actor := e.placed(t)
	orphan := core.NewActorID()
	require.NoError(t, e.presence.Spawn(ctx, orphan, origin, presence.Appearance{}))
	require.NoError(t, e.presence.Remove(ctx, actor))

	res, err := e.engine.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, presence.ReconcileResult{Removed: 1, Spawned: 1}, res)
	_, shown := e.presence.Get(actor)
	assert.True(t, shown)
	_, shown = e.presence.Get(orphan)
	assert.False(t, shown)
}

func TestReconcile_DoesNotCacheOfflineRecords(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	actor := core.NewActorID()
	_, err := e.engine.Join(ctx, actor, "Alex")
	require.NoError(t, err)
	e.giveSeed(actor)
	_, err = e.engine.Place(ctx, actor, origin)
	require.NoError(t, err)
	require.NoError(t, e.engine.Leave(ctx, actor))
	require.Empty(t, e.store.Cached())

	_, err = e.engine.Reconcile(ctx)
	require.NoError(t, err)
	assert.Empty(t, e.store.Cached())
	_, shown := e.presence.Get(actor)
	assert.True(t, shown)
}

func TestRestart_RestoresBuiltinRegions(t *testing.T) {
	ctx := context.Background()
	first := newEnv(t, nil)
	owner := first.placed(t)
	require.NoError(t, first.store.Flush(ctx))

	e := newEnvOver(t, first.holder, first.adapter)
	stranger := core.NewActorID()
	protected, err := e.protection.IsProtected(ctx, origin)
	require.NoError(t, err)
	require.False(t, protected, "fresh backend starts empty")

	_, err = e.engine.Reconcile(ctx)
	require.NoError(t, err)

	protected, err = e.protection.IsProtected(ctx, origin)
	require.NoError(t, err)
	assert.True(t, protected)
	ok, err := e.protection.CanModify(ctx, stranger, origin)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = e.protection.CanModify(ctx, owner, origin)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, e.store.Cached())

	e.giveSeed(stranger)
	_, err = e.engine.Place(ctx, stranger, origin.Above())
	errutil.AssertErrorCode(t, err, core.CodeLocationProtected)
}

func TestJoin_RestoresBuiltinRegion(t *testing.T) {
	ctx := context.Background()
	first := newEnv(t, nil)
	owner := first.placed(t)
	require.NoError(t, first.store.Flush(ctx))

	e := newEnvOver(t, first.holder, first.adapter)
	_, err := e.engine.Join(ctx, owner, "Alex")
	require.NoError(t, err)

	ok, err := e.protection.CanModify(ctx, core.NewActorID(), origin)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReload_RebuildsRegionRadius(t *testing.T) {
	ctx := context.Background()
	fsys := fstest.MapFS{"core.yaml": {Data: []byte("version: \"1.0\"\ndefault-protection-radius: 2\n")}}
	holder, err := definitions.NewHolder(definitions.NewLoader(), fsys)
	require.NoError(t, err)
	e := newEnvOver(t, holder, store.NewMemoryAdapter())
	e.placed(t)
	edge := origin.Block()
	edge.X += 4

	protected, err := e.protection.IsProtected(ctx, edge)
	require.NoError(t, err)
	require.False(t, protected)

	fsys["core.yaml"] = &fstest.MapFile{Data: []byte("version: \"1.0\"\ndefault-protection-radius: 6\n")}
	require.NoError(t, e.engine.Reload(ctx))

	regions := e.protection.Regions()
	require.Len(t, regions, 1)
	assert.Equal(t, 6, regions[0].Radius)
	protected, err = e.protection.IsProtected(ctx, edge)
	require.NoError(t, err)
	assert.True(t, protected)
}

func TestStatusAndHistory(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	actor := e.placed(t)
	_, err := e.engine.GrantXP(ctx, actor, 150, core.ReasonAdmin)
	require.NoError(t, err)
	_, err = e.store.Update(ctx, actor, func(r *core.Record) error {
		r.AddMutation("VITALITY")
		r.AddMutation("RETIRED")
		return nil
	})
	require.NoError(t, err)

	st, err := e.engine.Status(ctx, actor)
	require.NoError(t, err)
	assert.Equal(t, core.StateActive, st.State)
	assert.Equal(t, 2, st.Level)
	assert.Equal(t, 50.0, st.Progress)
	assert.Equal(t, 200.0, st.Required)
	assert.Equal(t, "SEEDLING", st.Appearance.VisualID)

	h, err := e.engine.History(ctx, actor)
	require.NoError(t, err)
	assert.Equal(t, []lifecycle.MutationEntry{
		{ID: "VITALITY", Name: "Vitality", Known: true},
		{ID: "RETIRED", Name: "RETIRED", Known: false},
	}, h.Mutations)

	require.NoError(t, e.engine.CompleteTutorial(ctx, actor))
	st, err = e.engine.Status(ctx, actor)
	require.NoError(t, err)
	assert.True(t, st.Tutorial)
}

func TestKillRewards(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	killer := e.placed(t)

	res, err := e.engine.RewardMobKill(ctx, killer, "zombie")
	require.NoError(t, err)
	assert.Equal(t, 5.0, res.Granted)

	res, err = e.engine.RewardMobKill(ctx, killer, "axolotl")
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.Granted, "DEFAULT fallback")

	res, err = e.engine.RewardPlayerKill(ctx, killer, core.NewActorID())
	require.NoError(t, err)
	assert.Equal(t, 50.0, res.Granted)
	assert.Equal(t, 6.0, res.Record.XPBySource.MobKills)
	assert.Equal(t, 50.0, res.Record.XPBySource.PlayerKills)

	_, err = e.engine.RewardPlayerKill(ctx, killer, killer)
	errutil.AssertErrorCode(t, err, core.CodeSelfDamage)
}
