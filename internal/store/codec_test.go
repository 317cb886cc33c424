// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package store_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/coresystem/internal/core"
	"github.com/holomush/coresystem/internal/store"
)

var testDefaults = core.Defaults{MaxHealth: 100, MaxEnergy: 100}

func fullRecord(now time.Time) *core.Record {
	r := core.NewRecord(core.NewActorID(), testDefaults)
	r.Active = true
	r.Location = &core.Location{World: "world", X: 12.5, Y: 70, Z: -4, Yaw: 90}
	r.Level = 7
	r.TotalXP = 2150
	r.SetMaxHealth(120)
	r.SetHealth(80)
	r.SetMaxEnergy(125)
	r.SetEnergy(60)
	r.ArchetypeID = "GUARDIAN"
	r.UnlockSkill("stone_skin")
	r.UnlockSkill("bulwark")
	r.AddMutation("VITALITY")
	r.AddMutation("RESERVOIR")
	r.RebirthCount = 2
	r.XPBySource = core.XPCounters{MobKills: 1500, PlayerKills: 600, Feed: 50}
	r.TutorialCompleted = true
	r.SkillCooldowns["bulwark"] = now.Add(30 * time.Second).Truncate(time.Millisecond)
	r.SkillCooldowns["stone_skin"] = now.Add(-time.Second)
	return r
}

func TestCodec_RoundTripPrunesExpiredCooldowns(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	r := fullRecord(now)

	doc := store.Encode(r, now)
	assert.Equal(t, store.DocumentVersion, doc.Version)
	assert.NotContains(t, doc.SkillCooldowns, "stone_skin")

	got := store.Decode(r.ActorID, doc, testDefaults, 20, now)

	want := r.Clone()
	delete(want.SkillCooldowns, "stone_skin")
	assert.Equal(t, want.Level, got.Level)
	assert.Equal(t, want.TotalXP, got.TotalXP)
	assert.Equal(t, want.Health, got.Health)
	assert.Equal(t, want.MaxHealth, got.MaxHealth)
	assert.Equal(t, want.Energy, got.Energy)
	assert.Equal(t, want.MaxEnergy, got.MaxEnergy)
	assert.Equal(t, want.Location, got.Location)
	assert.Equal(t, want.UnlockedSkills, got.UnlockedSkills)
	assert.Equal(t, want.ActiveMutations, got.ActiveMutations)
	assert.Equal(t, want.XPBySource, got.XPBySource)
	assert.Equal(t, want.RebirthCount, got.RebirthCount)
	assert.True(t, got.TutorialCompleted)
	require.Contains(t, got.SkillCooldowns, "bulwark")
	assert.True(t, want.SkillCooldowns["bulwark"].Equal(got.SkillCooldowns["bulwark"]))
}

func TestCodec_DestroyedRecordKeepsBackup(t *testing.T) {
	now := time.Now()
	r := fullRecord(now)
	snap := r.TakeSnapshot()
	r.Backup = &snap
	r.Active = false
	r.Health = 0

	got := store.Decode(r.ActorID, store.Encode(r, now), testDefaults, 20, now)
	require.NotNil(t, got.Backup)
	assert.Equal(t, core.StateDestroyed, got.State())
	assert.Equal(t, 7, got.Backup.Level)
	assert.Equal(t, []string{"VITALITY", "RESERVOIR"}, got.Backup.ActiveMutations)
}

func TestDecode_AbsentFieldsUseDefaults(t *testing.T) {
	id := core.NewActorID()
	got := store.Decode(id, store.Document{Level: 1}, testDefaults, 20, time.Now())

	assert.Equal(t, 100.0, got.MaxHealth)
	assert.Equal(t, 100.0, got.Health)
	assert.Equal(t, 100.0, got.MaxEnergy)
	assert.Equal(t, 100.0, got.Energy)
	assert.Equal(t, core.StateInactive, got.State())
}

func TestDecode_RepairsMalformedValues(t *testing.T) {
	ptr := func(v float64) *float64 { return &v }
	tests := []struct {
		name  string
		doc   store.Document
		check func(t *testing.T, r *core.Record)
	}{
		{
			name: "level below one",
			doc:  store.Document{Level: 0},
			check: func(t *testing.T, r *core.Record) {
				assert.Equal(t, 1, r.Level)
			},
		},
		{
			name: "level above max",
			doc:  store.Document{Level: 99},
			check: func(t *testing.T, r *core.Record) {
				assert.Equal(t, 20, r.Level)
			},
		},
		{
			name: "negative xp",
			doc:  store.Document{Level: 1, XP: -40},
			check: func(t *testing.T, r *core.Record) {
				assert.Zero(t, r.TotalXP)
			},
		},
		{
			name: "health above max",
			doc:  store.Document{Level: 1, Health: ptr(500), MaxHealth: ptr(150)},
			check: func(t *testing.T, r *core.Record) {
				assert.Equal(t, 150.0, r.Health)
			},
		},
		{
			name: "max health below one",
			doc:  store.Document{Level: 1, MaxHealth: ptr(-3)},
			check: func(t *testing.T, r *core.Record) {
				assert.Equal(t, 1.0, r.MaxHealth)
			},
		},
		{
			name: "negative energy",
			doc:  store.Document{Level: 1, Energy: ptr(-10)},
			check: func(t *testing.T, r *core.Record) {
				assert.Zero(t, r.Energy)
			},
		},
		{
			name: "active without location",
			doc:  store.Document{Level: 1, Active: true},
			check: func(t *testing.T, r *core.Record) {
				assert.False(t, r.Active)
			},
		},
		{
			name: "unresolvable world",
			doc:  store.Document{Level: 1, Active: true, Location: &core.Location{X: math.NaN()}},
			check: func(t *testing.T, r *core.Record) {
				assert.False(t, r.Active)
				assert.Nil(t, r.Location)
			},
		},
		{
			name: "duplicate mutations",
			doc:  store.Document{Level: 1, ActiveMutations: []string{"VITALITY", "VITALITY", "INSIGHT"}},
			check: func(t *testing.T, r *core.Record) {
				assert.Equal(t, []string{"VITALITY", "INSIGHT"}, r.ActiveMutations)
			},
		},
		{
			name: "active core with backup",
			doc: store.Document{
				Level:    1,
				Active:   true,
				Location: &core.Location{World: "world"},
				Backup:   &core.Snapshot{Level: 5},
			},
			check: func(t *testing.T, r *core.Record) {
				assert.True(t, r.Active)
				assert.Nil(t, r.Backup)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := store.Decode(core.NewActorID(), tt.doc, testDefaults, 20, time.Now())
			tt.check(t, r)
			assert.LessOrEqual(t, r.Health, r.MaxHealth)
			assert.LessOrEqual(t, r.Energy, r.MaxEnergy)
		})
	}
}
