// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package definitions

import (
	"fmt"
	"maps"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/samber/oops"
)

// Effect is the typed parameter set of a mutation or skill, selected by kind.
type Effect interface {
	Kind() string
}

// Mutation effect kinds.
const (
	KindHealthAdd       = "health-add"
	KindEnergyAdd       = "energy-add"
	KindXPMultiplierAdd = "xp-multiplier-add"
	KindRegenAdd        = "regen-add"
)

// Skill effect kinds.
const (
	KindNone         = "none"
	KindDamageBoost  = "damage-boost"
	KindPotionEffect = "potion-effect"
	KindMovement     = "movement"
)

// HealthAdd raises maximum health.
type HealthAdd struct{ Amount float64 }

// EnergyAdd raises maximum energy.
type EnergyAdd struct{ Amount float64 }

// XPMultiplierAdd adds to the XP multiplier.
type XPMultiplierAdd struct{ Amount float64 }

// RegenAdd adds to the passive energy regeneration per tick.
type RegenAdd struct{ Amount float64 }

// NoEffect is a skill with bookkeeping only.
type NoEffect struct{}

// DamageBoost multiplies outgoing damage for a duration.
type DamageBoost struct {
	Multiplier float64
	Duration   time.Duration
}

// PotionEffect applies a named status effect.
type PotionEffect struct {
	Effect    string
	Amplifier int
	Duration  time.Duration
}

// Movement launches the actor.
type Movement struct {
	Velocity float64
}

// UnknownEffect keeps a kind no parser is registered for. Consumers ignore it.
type UnknownEffect struct {
	RawKind string
	Params  map[string]any
}

func (HealthAdd) Kind() string       { return KindHealthAdd }
func (EnergyAdd) Kind() string       { return KindEnergyAdd }
func (XPMultiplierAdd) Kind() string { return KindXPMultiplierAdd }
func (RegenAdd) Kind() string        { return KindRegenAdd }
func (NoEffect) Kind() string        { return KindNone }
func (DamageBoost) Kind() string     { return KindDamageBoost }
func (PotionEffect) Kind() string    { return KindPotionEffect }
func (Movement) Kind() string        { return KindMovement }
func (u UnknownEffect) Kind() string { return u.RawKind }

// EffectParser builds a typed effect from raw document parameters.
type EffectParser func(params map[string]any) (Effect, error)

// EffectRegistry maps effect kinds to parsers.
// It is safe for concurrent use.
type EffectRegistry struct {
	mu      sync.RWMutex
	parsers map[string]EffectParser
}

// NewEffectRegistry creates an empty registry.
func NewEffectRegistry() *EffectRegistry {
	return &EffectRegistry{parsers: make(map[string]EffectParser)}
}

// Register adds a parser for kind and any aliases.
func (r *EffectRegistry) Register(kind string, parser EffectParser, aliases ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.parsers[NormalizeKind(kind)] = parser
	for _, alias := range aliases {
		r.parsers[NormalizeKind(alias)] = parser
	}
}

// Parse builds the effect for kind. Unregistered kinds yield UnknownEffect.
func (r *EffectRegistry) Parse(kind string, params map[string]any) (Effect, error) {
	r.mu.RLock()
	parser, ok := r.parsers[NormalizeKind(kind)]
	r.mu.RUnlock()
	if !ok {
		return UnknownEffect{RawKind: kind, Params: maps.Clone(params)}, nil
	}
	eff, err := parser(params)
	if err != nil {
		return nil, oops.In("definitions").With("kind", kind).Wrap(err)
	}
	return eff, nil
}

// Kinds returns the registered kind keys.
func (r *EffectRegistry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]string, 0, len(r.parsers))
	for k := range r.parsers {
		kinds = append(kinds, k)
	}
	return kinds
}

// NormalizeKind lower-cases a kind and uses hyphens as separators, so
// CORE_MAX_HEALTH_ADD and core-max-health-add name the same kind.
func NormalizeKind(kind string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(kind)), "_", "-")
}

// DefaultMutationEffects returns the registry for mutation kinds.
func DefaultMutationEffects() *EffectRegistry {
	r := NewEffectRegistry()
	r.Register(KindHealthAdd, func(p map[string]any) (Effect, error) {
		v, err := floatParam(p, "amount")
		return HealthAdd{Amount: v}, err
	}, "CORE_MAX_HEALTH_ADD")
	r.Register(KindEnergyAdd, func(p map[string]any) (Effect, error) {
		v, err := floatParam(p, "amount")
		return EnergyAdd{Amount: v}, err
	}, "CORE_MAX_ENERGY_ADD")
	r.Register(KindXPMultiplierAdd, func(p map[string]any) (Effect, error) {
		v, err := floatParam(p, "multiplier", "amount")
		return XPMultiplierAdd{Amount: v}, err
	}, "CORE_XP_MULTIPLIER")
	r.Register(KindRegenAdd, func(p map[string]any) (Effect, error) {
		v, err := floatParam(p, "amount_increase", "amount")
		return RegenAdd{Amount: v}, err
	}, "PASSIVE_ENERGY_REGEN_BOOST_ADD")
	return r
}

// DefaultSkillEffects returns the registry for skill effect kinds.
func DefaultSkillEffects() *EffectRegistry {
	r := NewEffectRegistry()
	r.Register(KindNone, func(map[string]any) (Effect, error) { return NoEffect{}, nil }, "")
	r.Register(KindDamageBoost, func(p map[string]any) (Effect, error) {
		mult, err := floatParam(p, "multiplier")
		if err != nil {
			return nil, err
		}
		d, err := secondsParam(p, "duration")
		return DamageBoost{Multiplier: mult, Duration: d}, err
	})
	r.Register(KindPotionEffect, func(p map[string]any) (Effect, error) {
		name, _ := p["effect"].(string)
		if name == "" {
			return nil, oops.Errorf("potion effect requires %q", "effect")
		}
		amp, err := optionalFloatParam(p, 0, "amplifier")
		if err != nil {
			return nil, err
		}
		d, err := secondsParam(p, "duration")
		return PotionEffect{Effect: strings.ToUpper(name), Amplifier: int(amp), Duration: d}, err
	})
	r.Register(KindMovement, func(p map[string]any) (Effect, error) {
		v, err := floatParam(p, "velocity")
		return Movement{Velocity: v}, err
	})
	return r
}

// floatParam reads the first present key as a number. Document values may be
// numbers or numeric strings.
func floatParam(params map[string]any, keys ...string) (float64, error) {
	for _, k := range keys {
		raw, ok := params[k]
		if !ok {
			continue
		}
		return toFloat(k, raw)
	}
	return 0, oops.With("keys", keys).Errorf("missing parameter %q", keys[0])
}

func optionalFloatParam(params map[string]any, def float64, key string) (float64, error) {
	raw, ok := params[key]
	if !ok {
		return def, nil
	}
	return toFloat(key, raw)
}

func secondsParam(params map[string]any, key string) (time.Duration, error) {
	v, err := optionalFloatParam(params, 0, key)
	if err != nil {
		return 0, err
	}
	return time.Duration(v * float64(time.Second)), nil
}

func toFloat(key string, raw any) (float64, error) {
	switch v := raw.(type) {
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case float64:
		return v, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, oops.With("param", key).Wrapf(err, "parameter %q is not a number", key)
		}
		return f, nil
	default:
		return 0, oops.With("param", key).Errorf("parameter %q has unsupported type %s", key, fmt.Sprintf("%T", raw))
	}
}
