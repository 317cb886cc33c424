// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package store

import (
	"log/slog"
	"math"
	"slices"
	"time"

	"github.com/holomush/coresystem/internal/core"
)

// DocumentVersion is the current persisted document layout.
const DocumentVersion = 1

// Document is the persisted form of a core.Record. Numeric stats are
// pointers so an absent field can be told apart from zero and replaced by
// its default.
type Document struct {
	Version           int              `json:"schema_version" yaml:"schema-version"`
	ActorID           string           `json:"actor_id" yaml:"uuid"`
	Active            bool             `json:"active" yaml:"hasActiveCore"`
	Location          *core.Location   `json:"location,omitempty" yaml:"coreLocation,omitempty"`
	Level             int              `json:"level" yaml:"level"`
	XP                float64          `json:"xp" yaml:"xp"`
	Energy            *float64         `json:"energy,omitempty" yaml:"energy,omitempty"`
	MaxEnergy         *float64         `json:"max_energy,omitempty" yaml:"maxEnergy,omitempty"`
	Health            *float64         `json:"health,omitempty" yaml:"health,omitempty"`
	MaxHealth         *float64         `json:"max_health,omitempty" yaml:"maxHealth,omitempty"`
	Archetype         string           `json:"archetype,omitempty" yaml:"archetype,omitempty"`
	UnlockedSkills    []string         `json:"unlocked_skills" yaml:"unlockedSkills"`
	ActiveMutations   []string         `json:"active_mutations" yaml:"activeMutations"`
	Backup            *core.Snapshot   `json:"backup,omitempty" yaml:"backupStats,omitempty"`
	RebirthCount      int              `json:"rebirth_count" yaml:"rebirthCount"`
	XPStats           core.XPCounters  `json:"xp_stats" yaml:"xp-stats"`
	SkillCooldowns    map[string]int64 `json:"skill_cooldowns,omitempty" yaml:"skillCooldowns,omitempty"`
	TutorialCompleted bool             `json:"tutorial_completed" yaml:"tutorialCompleted"`
}

// Encode converts r to its persisted form. Skill cooldowns that expired
// before now are dropped.
func Encode(r *core.Record, now time.Time) Document {
	d := Document{
		Version:           DocumentVersion,
		ActorID:           r.ActorID.String(),
		Active:            r.Active,
		Level:             r.Level,
		XP:                r.TotalXP,
		Energy:            ptr(r.Energy),
		MaxEnergy:         ptr(r.MaxEnergy),
		Health:            ptr(r.Health),
		MaxHealth:         ptr(r.MaxHealth),
		Archetype:         r.ArchetypeID,
		UnlockedSkills:    slices.Clone(r.UnlockedSkills),
		ActiveMutations:   slices.Clone(r.ActiveMutations),
		RebirthCount:      r.RebirthCount,
		XPStats:           r.XPBySource,
		TutorialCompleted: r.TutorialCompleted,
	}
	if r.Location != nil {
		loc := *r.Location
		d.Location = &loc
	}
	if r.Backup != nil {
		b := *r.Backup
		b.UnlockedSkills = slices.Clone(b.UnlockedSkills)
		b.ActiveMutations = slices.Clone(b.ActiveMutations)
		d.Backup = &b
	}
	for id, expiry := range r.SkillCooldowns {
		if !expiry.After(now) {
			continue
		}
		if d.SkillCooldowns == nil {
			d.SkillCooldowns = make(map[string]int64)
		}
		d.SkillCooldowns[id] = expiry.UnixMilli()
	}
	if d.UnlockedSkills == nil {
		d.UnlockedSkills = []string{}
	}
	if d.ActiveMutations == nil {
		d.ActiveMutations = []string{}
	}
	return d
}

func ptr(v float64) *float64 { return &v }

// Decode rebuilds a record from d. Malformed values are repaired to safe
// defaults and logged as integrity warnings rather than failing the load.
func Decode(id core.ActorID, d Document, defaults core.Defaults, maxLevel int, now time.Time) *core.Record {
	w := integrity{actor: id}
	r := core.NewRecord(id, defaults)

	if d.ActorID != "" && d.ActorID != id.String() {
		w.warn("actor_id", "document belongs to another actor", d.ActorID)
	}

	r.Active = d.Active
	if d.Location != nil {
		if d.Location.World == "" || !finite(d.Location.X, d.Location.Y, d.Location.Z) {
			w.warn("location", "unresolvable world reference, dropping location", d.Location.World)
			if r.Active {
				w.warn("active", "active core without a location, marking inactive", true)
				r.Active = false
			}
		} else {
			loc := *d.Location
			r.Location = &loc
		}
	} else if r.Active {
		w.warn("active", "active core without a location, marking inactive", true)
		r.Active = false
	}

	r.Level = d.Level
	if r.Level < 1 {
		w.warn("level", "level below 1", d.Level)
		r.Level = 1
	}
	if maxLevel > 0 && r.Level > maxLevel {
		w.warn("level", "level above max", d.Level)
		r.Level = maxLevel
	}
	r.TotalXP = d.XP
	if r.TotalXP < 0 || !finite(r.TotalXP) {
		w.warn("xp", "negative or non-finite xp", d.XP)
		r.TotalXP = 0
	}

	if d.MaxHealth != nil {
		if *d.MaxHealth < 1 || !finite(*d.MaxHealth) {
			w.warn("max_health", "max health below 1", *d.MaxHealth)
		}
		r.SetMaxHealth(*d.MaxHealth)
	}
	if d.MaxEnergy != nil {
		if *d.MaxEnergy < 0 || !finite(*d.MaxEnergy) {
			w.warn("max_energy", "negative max energy", *d.MaxEnergy)
		}
		r.SetMaxEnergy(*d.MaxEnergy)
	}
	r.Health = r.MaxHealth
	if d.Health != nil {
		if *d.Health < 0 || *d.Health > r.MaxHealth {
			w.warn("health", "health out of range, clamping", *d.Health)
		}
		r.SetHealth(*d.Health)
	}
	r.Energy = r.MaxEnergy
	if d.Energy != nil {
		if *d.Energy < 0 || *d.Energy > r.MaxEnergy {
			w.warn("energy", "energy out of range, clamping", *d.Energy)
		}
		r.SetEnergy(*d.Energy)
	}

	r.ArchetypeID = d.Archetype
	for _, s := range d.UnlockedSkills {
		r.UnlockSkill(s)
	}
	for _, m := range d.ActiveMutations {
		if !r.AddMutation(m) {
			w.warn("active_mutations", "duplicate mutation dropped", m)
		}
	}
	if d.Backup != nil {
		b := *d.Backup
		b.UnlockedSkills = slices.Clone(b.UnlockedSkills)
		b.ActiveMutations = slices.Clone(b.ActiveMutations)
		r.Backup = &b
		if r.Active {
			w.warn("backup", "active core carries a backup, dropping backup", true)
			r.Backup = nil
		}
	}
	r.RebirthCount = max(0, d.RebirthCount)
	r.XPBySource = d.XPStats
	r.TutorialCompleted = d.TutorialCompleted
	for skill, ms := range d.SkillCooldowns {
		expiry := time.UnixMilli(ms)
		if expiry.After(now) {
			r.SkillCooldowns[skill] = expiry
		}
	}
	return r
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

type integrity struct {
	actor core.ActorID
}

func (i integrity) warn(field, msg string, value any) {
	slog.Warn("core record integrity warning",
		"actor_id", i.actor.String(),
		"field", field,
		"value", value,
		"detail", msg)
}
