// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package lifecycle

import (
	"slices"
	"strings"

	"github.com/holomush/coresystem/internal/core"
	"github.com/holomush/coresystem/internal/definitions"
)

// Damage source names matched by the allowlist.
const (
	SourcePlayer  = "PLAYER"
	SourceMob     = "MOB"
	SourceTNT     = "TNT"
	SourceCreeper = "CREEPER"

	damagerPrimedTNT = "PRIMED_TNT"
)

// DamageSource describes what hit a Core.
type DamageSource struct {
	// Cause is the host's damage cause, e.g. ENTITY_ATTACK.
	Cause string
	// DamagerType is the entity type that dealt the damage directly.
	DamagerType string
	// Attacker is the responsible player, including projectile shooters.
	Attacker *core.ActorID
	// Living is true when the direct damager is a living entity.
	Living bool
}

// IsPlayer reports whether the direct damager is a player.
func (s DamageSource) IsPlayer() bool {
	return strings.EqualFold(s.DamagerType, SourcePlayer)
}

// Vulnerable decides whether a Core accepts damage from src.
//
// The allowlist only filters: a matching source still falls through to the
// default. The always-vulnerable toggle turns an invulnerable default
// vulnerable and never the reverse.
func Vulnerable(t definitions.VulnerabilityTunables, src DamageSource) bool {
	if t.AllowDamageAnytime {
		return true
	}
	if len(t.DamageSources) > 0 && !sourceAllowed(t.DamageSources, src) {
		return false
	}
	vulnerable := t.VulnerableByDefault
	if t.AlwaysVulnerable && !t.VulnerableByDefault {
		vulnerable = true
	}
	return vulnerable
}

func sourceAllowed(allowed []string, src DamageSource) bool {
	upper := make([]string, len(allowed))
	for i, s := range allowed {
		upper[i] = strings.ToUpper(strings.TrimSpace(s))
	}
	has := func(name string) bool { return slices.Contains(upper, name) }

	if src.Cause != "" && has(strings.ToUpper(src.Cause)) {
		return true
	}
	if src.Attacker != nil && has(SourcePlayer) {
		return true
	}
	if src.DamagerType == "" {
		return false
	}
	damager := strings.ToUpper(src.DamagerType)
	switch {
	case has(damager):
		return true
	case src.Living && !src.IsPlayer() && has(SourceMob):
		return true
	case damager == damagerPrimedTNT && has(SourceTNT):
		return true
	case damager == SourceCreeper && has(SourceCreeper):
		return true
	}
	return false
}
