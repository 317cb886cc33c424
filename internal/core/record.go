// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package core defines the per-actor Core record, its snapshot, and the
// error codes shared by every component that mutates it.
package core

import (
	"math"
	"slices"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// ActorID identifies the actor owning a Core.
type ActorID = ulid.ULID

// XP grant reasons recognised by the per-source counters.
const (
	ReasonMobKill    = "MOB_KILL"
	ReasonPlayerKill = "PLAYER_KILL"
	ReasonCoreFeed   = "CORE_FEED"
	ReasonAdmin      = "ADMIN"
)

// Location is a point in a named world.
type Location struct {
	World string  `json:"world" yaml:"world"`
	X     float64 `json:"x" yaml:"x"`
	Y     float64 `json:"y" yaml:"y"`
	Z     float64 `json:"z" yaml:"z"`
	Yaw   float32 `json:"yaw" yaml:"yaw"`
	Pitch float32 `json:"pitch" yaml:"pitch"`
}

// BlockX returns the integer block coordinate on the X axis.
func (l Location) BlockX() int { return int(math.Floor(l.X)) }

// BlockY returns the integer block coordinate on the Y axis.
func (l Location) BlockY() int { return int(math.Floor(l.Y)) }

// BlockZ returns the integer block coordinate on the Z axis.
func (l Location) BlockZ() int { return int(math.Floor(l.Z)) }

// Block returns the location snapped to its block origin, without rotation.
func (l Location) Block() Location {
	return Location{
		World: l.World,
		X:     float64(l.BlockX()),
		Y:     float64(l.BlockY()),
		Z:     float64(l.BlockZ()),
	}
}

// Above returns the block location one unit higher.
func (l Location) Above() Location {
	b := l.Block()
	b.Y++
	return b
}

// SameBlock reports whether both locations fall in the same block of the same world.
func (l Location) SameBlock(o Location) bool {
	return l.World == o.World && l.BlockX() == o.BlockX() &&
		l.BlockY() == o.BlockY() && l.BlockZ() == o.BlockZ()
}

// XPCounters tracks lifetime XP by source.
type XPCounters struct {
	MobKills    float64 `json:"mob_kills" yaml:"mob-kills"`
	PlayerKills float64 `json:"player_kills" yaml:"player-kills"`
	Feed        float64 `json:"feed" yaml:"feed"`
}

// Snapshot is the stat backup taken when a Core is destroyed.
type Snapshot struct {
	Level             int        `json:"level" yaml:"level"`
	TotalXP           float64    `json:"xp" yaml:"xp"`
	MaxHealth         float64    `json:"max_health" yaml:"maxHealth"`
	Energy            float64    `json:"energy" yaml:"energy"`
	MaxEnergy         float64    `json:"max_energy" yaml:"maxEnergy"`
	ArchetypeID       string     `json:"archetype,omitempty" yaml:"archetype,omitempty"`
	UnlockedSkills    []string   `json:"unlocked_skills" yaml:"unlocked_skills"`
	ActiveMutations   []string   `json:"active_mutations" yaml:"active_mutations"`
	RebirthCount      int        `json:"rebirth_count" yaml:"rebirthCount"`
	XPBySource        XPCounters `json:"xp_stats" yaml:"xp-stats"`
	TutorialCompleted bool       `json:"tutorial_completed" yaml:"tutorialCompleted"`
}

// Defaults are the base stats applied to new and freshly placed Cores.
type Defaults struct {
	MaxHealth float64
	MaxEnergy float64
}

// Record is the persistent Core state of one actor.
//
// Records are owned by store.Store; callers mutate them only inside
// Store.Update, which hands out a private clone.
type Record struct {
	ActorID           ActorID
	Active            bool
	Location          *Location
	Level             int
	TotalXP           float64
	Energy            float64
	MaxEnergy         float64
	Health            float64
	MaxHealth         float64
	ArchetypeID       string
	UnlockedSkills    []string
	ActiveMutations   []string
	Backup            *Snapshot
	RebirthCount      int
	XPBySource        XPCounters
	SkillCooldowns    map[string]time.Time
	TutorialCompleted bool
}

// NewRecord returns the record an actor has before ever placing a Core.
func NewRecord(id ActorID, d Defaults) *Record {
	r := &Record{
		ActorID:         id,
		Level:           1,
		UnlockedSkills:  []string{},
		ActiveMutations: []string{},
		SkillCooldowns:  make(map[string]time.Time),
	}
	r.SetMaxHealth(d.MaxHealth)
	r.SetMaxEnergy(d.MaxEnergy)
	r.Health = r.MaxHealth
	r.Energy = r.MaxEnergy
	return r
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	if r.Location != nil {
		loc := *r.Location
		c.Location = &loc
	}
	c.UnlockedSkills = slices.Clone(r.UnlockedSkills)
	c.ActiveMutations = slices.Clone(r.ActiveMutations)
	if r.Backup != nil {
		b := r.Backup.clone()
		c.Backup = &b
	}
	c.SkillCooldowns = make(map[string]time.Time, len(r.SkillCooldowns))
	for k, v := range r.SkillCooldowns {
		c.SkillCooldowns[k] = v
	}
	return &c
}

func (s Snapshot) clone() Snapshot {
	s.UnlockedSkills = slices.Clone(s.UnlockedSkills)
	s.ActiveMutations = slices.Clone(s.ActiveMutations)
	return s
}

// State reports the lifecycle state derived from the record.
func (r *Record) State() State {
	switch {
	case r.Active:
		return StateActive
	case r.Backup != nil:
		return StateDestroyed
	default:
		return StateInactive
	}
}

// SetMaxHealth sets the maximum health, floored at 1, clamping current health.
func (r *Record) SetMaxHealth(v float64) {
	r.MaxHealth = math.Max(1, v)
	r.SetHealth(r.Health)
}

// SetMaxEnergy sets the maximum energy, floored at 0, clamping current energy.
func (r *Record) SetMaxEnergy(v float64) {
	r.MaxEnergy = math.Max(0, v)
	r.SetEnergy(r.Energy)
}

// SetHealth sets current health clamped to [0, MaxHealth].
func (r *Record) SetHealth(v float64) {
	r.Health = clamp(v, 0, r.MaxHealth)
}

// SetEnergy sets current energy clamped to [0, MaxEnergy].
func (r *Record) SetEnergy(v float64) {
	r.Energy = clamp(v, 0, r.MaxEnergy)
}

// AddEnergy adds energy, clamped at MaxEnergy.
func (r *Record) AddEnergy(amount float64) {
	r.SetEnergy(r.Energy + amount)
}

// ConsumeEnergy deducts amount when enough energy is available.
func (r *Record) ConsumeEnergy(amount float64) bool {
	if r.Energy < amount {
		return false
	}
	r.SetEnergy(r.Energy - amount)
	return true
}

// TakeDamage lowers health, floored at 0.
func (r *Record) TakeDamage(amount float64) {
	r.SetHealth(r.Health - amount)
}

// AddXP adds XP and credits the per-source counter matching reason.
func (r *Record) AddXP(amount float64, reason string) {
	r.TotalXP += amount
	switch {
	case strings.HasPrefix(reason, ReasonMobKill):
		r.XPBySource.MobKills += amount
	case reason == ReasonPlayerKill:
		r.XPBySource.PlayerKills += amount
	case reason == ReasonCoreFeed:
		r.XPBySource.Feed += amount
	}
}

// HasSkill reports whether skillID is unlocked.
func (r *Record) HasSkill(skillID string) bool {
	return slices.Contains(r.UnlockedSkills, skillID)
}

// UnlockSkill adds skillID if not already present.
func (r *Record) UnlockSkill(skillID string) bool {
	if r.HasSkill(skillID) {
		return false
	}
	r.UnlockedSkills = append(r.UnlockedSkills, skillID)
	return true
}

// HasMutation reports whether mutationID has been awarded.
func (r *Record) HasMutation(mutationID string) bool {
	return slices.Contains(r.ActiveMutations, mutationID)
}

// AddMutation appends mutationID in award order; duplicates are ignored.
func (r *Record) AddMutation(mutationID string) bool {
	if r.HasMutation(mutationID) {
		return false
	}
	r.ActiveMutations = append(r.ActiveMutations, mutationID)
	return true
}

// SkillCooldownRemaining returns how long skillID stays on cooldown at now.
func (r *Record) SkillCooldownRemaining(skillID string, now time.Time) time.Duration {
	expiry, ok := r.SkillCooldowns[skillID]
	if !ok || !expiry.After(now) {
		return 0
	}
	return expiry.Sub(now)
}

// SetSkillCooldown starts a cooldown for skillID. Non-positive durations are ignored.
func (r *Record) SetSkillCooldown(skillID string, d time.Duration, now time.Time) {
	if d <= 0 {
		return
	}
	if r.SkillCooldowns == nil {
		r.SkillCooldowns = make(map[string]time.Time)
	}
	r.SkillCooldowns[skillID] = now.Add(d)
}

// PruneCooldowns drops skill cooldowns that expired before now.
func (r *Record) PruneCooldowns(now time.Time) {
	for id, expiry := range r.SkillCooldowns {
		if expiry.Before(now) {
			delete(r.SkillCooldowns, id)
		}
	}
}

// TakeSnapshot captures the stats preserved across destruction.
func (r *Record) TakeSnapshot() Snapshot {
	return Snapshot{
		Level:             r.Level,
		TotalXP:           r.TotalXP,
		MaxHealth:         r.MaxHealth,
		Energy:            r.Energy,
		MaxEnergy:         r.MaxEnergy,
		ArchetypeID:       r.ArchetypeID,
		UnlockedSkills:    slices.Clone(r.UnlockedSkills),
		ActiveMutations:   slices.Clone(r.ActiveMutations),
		RebirthCount:      r.RebirthCount,
		XPBySource:        r.XPBySource,
		TutorialCompleted: r.TutorialCompleted,
	}.clone()
}

// RestoreSnapshot copies the backed-up stats into the record, clears skill
// cooldowns and the backup, and refills health.
func (r *Record) RestoreSnapshot() bool {
	if r.Backup == nil {
		return false
	}
	b := r.Backup.clone()
	r.Level = max(1, b.Level)
	r.TotalXP = math.Max(0, b.TotalXP)
	r.MaxHealth = math.Max(1, b.MaxHealth)
	r.MaxEnergy = math.Max(0, b.MaxEnergy)
	r.SetEnergy(b.Energy)
	r.ArchetypeID = b.ArchetypeID
	r.UnlockedSkills = b.UnlockedSkills
	if r.UnlockedSkills == nil {
		r.UnlockedSkills = []string{}
	}
	// Mutations awarded since the backup was taken are kept.
	for _, id := range b.ActiveMutations {
		r.AddMutation(id)
	}
	r.RebirthCount = max(r.RebirthCount, b.RebirthCount)
	r.XPBySource = b.XPBySource
	r.TutorialCompleted = r.TutorialCompleted || b.TutorialCompleted
	r.SkillCooldowns = make(map[string]time.Time)
	r.Health = r.MaxHealth
	r.Backup = nil
	return true
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
