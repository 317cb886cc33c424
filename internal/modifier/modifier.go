// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package modifier derives a Core's stats from its mutation set.
package modifier

import (
	"math"

	"github.com/holomush/coresystem/internal/core"
	"github.com/holomush/coresystem/internal/definitions"
)

// Stats are the values derived from base tunables and mutations.
type Stats struct {
	MaxHealth    float64
	MaxEnergy    float64
	XPMultiplier float64
	RegenBonus   float64
}

// MutationSource resolves mutation ids.
type MutationSource interface {
	Mutation(id string) (*definitions.Mutation, bool)
}

// Derive folds mutationIDs in order over base. It is a full re-derivation:
// the same inputs always give the same output. Unknown ids and effect
// kinds contribute nothing.
func Derive(base core.Defaults, mutationIDs []string, src MutationSource) Stats {
	s := Stats{
		MaxHealth:    base.MaxHealth,
		MaxEnergy:    base.MaxEnergy,
		XPMultiplier: 1.0,
	}
	for _, id := range mutationIDs {
		m, ok := src.Mutation(id)
		if !ok {
			continue
		}
		switch eff := m.Effect.(type) {
		case definitions.HealthAdd:
			s.MaxHealth += eff.Amount
		case definitions.EnergyAdd:
			s.MaxEnergy += eff.Amount
		case definitions.XPMultiplierAdd:
			s.XPMultiplier += eff.Amount
		case definitions.RegenAdd:
			s.RegenBonus += eff.Amount
		}
	}
	s.MaxHealth = math.Max(1, s.MaxHealth)
	s.MaxEnergy = math.Max(0, s.MaxEnergy)
	s.XPMultiplier = math.Max(0, s.XPMultiplier)
	return s
}

// DeriveFor derives the stats of r from the catalog.
func DeriveFor(r *core.Record, c *definitions.Catalog) Stats {
	return Derive(c.Defaults(), r.ActiveMutations, c)
}

// Apply writes the derived maxima to r. Current values are clamped to the
// new maxima but never raised.
func Apply(r *core.Record, s Stats) {
	r.SetMaxHealth(s.MaxHealth)
	r.SetMaxEnergy(s.MaxEnergy)
}

// Refill applies s and sets current health and energy to their maxima.
func Refill(r *core.Record, s Stats) {
	Apply(r, s)
	r.SetHealth(r.MaxHealth)
	r.SetEnergy(r.MaxEnergy)
}
