// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package definitions loads the static catalogs a Core depends on:
// archetypes and their skill trees, mutations, evolution tiers, the XP table,
// and numeric tunables. A loaded Catalog is immutable; reload builds a new
// one and swaps it in atomically through a Holder.
package definitions

import (
	"slices"
	"strings"
	"time"

	"github.com/holomush/coresystem/internal/core"
)

// Error codes for definition loading.
const (
	CodeInvalidExpression  = "INVALID_EXPRESSION"
	CodeDocumentInvalid    = core.CodeDefinitionsInvalid
	CodeVersionUnsupported = "DEFINITIONS_VERSION_UNSUPPORTED"
)

// DefaultMobKey is the fallback entry of the mob kill and feed XP tables.
const DefaultMobKey = "DEFAULT"

// Skill is one node of an archetype's skill tree.
type Skill struct {
	ID            string
	ArchetypeID   string
	Name          string
	Description   []string
	RequiredLevel int
	EnergyCost    float64
	Cooldown      time.Duration
	Prerequisites []string
	Effect        Effect
}

// Archetype is a skill-tree category an actor commits to.
type Archetype struct {
	ID          string
	Name        string
	Description string
	Icon        string
	Skills      map[string]*Skill
	skillOrder  []string
}

// SkillsInOrder returns skills sorted by required level, then id.
func (a *Archetype) SkillsInOrder() []*Skill {
	out := make([]*Skill, 0, len(a.skillOrder))
	for _, id := range a.skillOrder {
		out = append(out, a.Skills[id])
	}
	return out
}

// Mutation is a permanent stat modifier awarded by rebirth.
type Mutation struct {
	ID          string
	Name        string
	Description string
	Effect      Effect
}

// EvolutionTier maps a level range to the Core's visual appearance.
type EvolutionTier struct {
	Name      string
	Levels    LevelRange
	VisualID  string
	ModelData int
}

// Experience is the XP reward table.
type Experience struct {
	MobKills   map[string]float64
	PlayerKill float64
	Feed       map[string]float64
}

// Catalog is an immutable snapshot of all definitions.
type Catalog struct {
	Tunables         Tunables
	Experience       Experience
	RestorationCosts []ItemCost
	Evolution        []EvolutionTier
	Fallback         EvolutionTier
	LoadedAt         time.Time

	archetypes     map[string]*Archetype
	archetypeOrder []string
	mutations      []*Mutation
	mutationIndex  map[string]*Mutation
}

// Defaults returns the base stats for new Cores.
func (c *Catalog) Defaults() core.Defaults {
	return core.Defaults{
		MaxHealth: c.Tunables.DefaultMaxHealth,
		MaxEnergy: c.Tunables.DefaultMaxEnergy,
	}
}

// MaxLevel returns the level cap.
func (c *Catalog) MaxLevel() int {
	return c.Tunables.MaxLevel
}

// Archetype looks up an archetype by id, case-insensitively.
func (c *Catalog) Archetype(id string) (*Archetype, bool) {
	a, ok := c.archetypes[strings.ToUpper(id)]
	return a, ok
}

// Archetypes returns all archetypes in id order.
func (c *Catalog) Archetypes() []*Archetype {
	out := make([]*Archetype, 0, len(c.archetypeOrder))
	for _, id := range c.archetypeOrder {
		out = append(out, c.archetypes[id])
	}
	return out
}

// Skill looks up a skill across all archetypes.
func (c *Catalog) Skill(id string) (*Skill, bool) {
	for _, aid := range c.archetypeOrder {
		if s, ok := c.archetypes[aid].Skills[id]; ok {
			return s, true
		}
	}
	return nil, false
}

// Mutation looks up a mutation by id.
func (c *Catalog) Mutation(id string) (*Mutation, bool) {
	m, ok := c.mutationIndex[id]
	return m, ok
}

// Mutations returns the catalog in document order.
func (c *Catalog) Mutations() []*Mutation {
	return slices.Clone(c.mutations)
}

// NextMutation returns the first catalog mutation not in owned.
func (c *Catalog) NextMutation(owned []string) (*Mutation, bool) {
	for _, m := range c.mutations {
		if !slices.Contains(owned, m.ID) {
			return m, true
		}
	}
	return nil, false
}

// TierFor returns the evolution tier covering level, or the fallback tier.
func (c *Catalog) TierFor(level int) EvolutionTier {
	for _, t := range c.Evolution {
		if t.Levels.Contains(level) {
			return t
		}
	}
	return c.Fallback
}

// MobKillXP returns the XP for killing a creature type.
func (c *Catalog) MobKillXP(creature string) float64 {
	if xp, ok := c.Experience.MobKills[strings.ToUpper(creature)]; ok {
		return xp
	}
	return c.Experience.MobKills[DefaultMobKey]
}

// FeedXP returns the XP granted for sacrificing one item of material.
func (c *Catalog) FeedXP(material string) float64 {
	if xp, ok := c.Experience.Feed[strings.ToUpper(material)]; ok {
		return xp
	}
	return c.Experience.Feed[DefaultMobKey]
}

// EnergyFor returns the energy restored by one item of material, or 0.
func (c *Catalog) EnergyFor(material string) float64 {
	return c.Tunables.EnergyItems[strings.ToUpper(material)]
}

// RegenInterval returns the passive regeneration interval.
func (c *Catalog) RegenInterval() time.Duration {
	return time.Duration(c.Tunables.Regen.IntervalSeconds) * time.Second
}

// Cooldown converts a seconds tunable to a duration.
func Cooldown(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}
