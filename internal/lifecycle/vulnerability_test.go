// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package lifecycle_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/holomush/coresystem/internal/core"
	"github.com/holomush/coresystem/internal/definitions"
	"github.com/holomush/coresystem/internal/lifecycle"
)

func TestVulnerable(t *testing.T) {
	player := core.NewActorID()
	tests := []struct {
		name string
		cfg  definitions.VulnerabilityTunables
		src  lifecycle.DamageSource
		want bool
	}{
		{"anytime overrides all", definitions.VulnerabilityTunables{AllowDamageAnytime: true, DamageSources: []string{"TNT"}}, lifecycle.DamageSource{Cause: "FALL"}, true},
		{"default invulnerable", definitions.VulnerabilityTunables{}, lifecycle.DamageSource{Cause: "ENTITY_ATTACK"}, false},
		{"default vulnerable", definitions.VulnerabilityTunables{VulnerableByDefault: true}, lifecycle.DamageSource{Cause: "ENTITY_ATTACK"}, true},
		{"always flips invulnerable", definitions.VulnerabilityTunables{AlwaysVulnerable: true}, lifecycle.DamageSource{}, true},
		{"allowlist filters", definitions.VulnerabilityTunables{VulnerableByDefault: true, DamageSources: []string{"TNT"}}, lifecycle.DamageSource{Cause: "ENTITY_ATTACK", DamagerType: "ZOMBIE", Living: true}, false},
		{"allowlist passes to default", definitions.VulnerabilityTunables{DamageSources: []string{"TNT"}}, lifecycle.DamageSource{DamagerType: "PRIMED_TNT"}, false},
		{"cause match", definitions.VulnerabilityTunables{VulnerableByDefault: true, DamageSources: []string{"block_explosion"}}, lifecycle.DamageSource{Cause: "BLOCK_EXPLOSION"}, true},
		{"player attacker", definitions.VulnerabilityTunables{VulnerableByDefault: true, DamageSources: []string{"PLAYER"}}, lifecycle.DamageSource{DamagerType: "ARROW", Attacker: &player}, true},
		{"mob", definitions.VulnerabilityTunables{VulnerableByDefault: true, DamageSources: []string{"MOB"}}, lifecycle.DamageSource{DamagerType: "SKELETON", Living: true}, true},
		{"player is not a mob", definitions.VulnerabilityTunables{VulnerableByDefault: true, DamageSources: []string{"MOB"}}, lifecycle.DamageSource{DamagerType: "PLAYER", Living: true}, false},
		{"tnt", definitions.VulnerabilityTunables{VulnerableByDefault: true, DamageSources: []string{"TNT"}}, lifecycle.DamageSource{DamagerType: "PRIMED_TNT"}, true},
		{"damager type", definitions.VulnerabilityTunables{VulnerableByDefault: true, DamageSources: []string{"CREEPER"}}, lifecycle.DamageSource{DamagerType: "creeper", Living: true}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, lifecycle.Vulnerable(tt.cfg, tt.src))
		})
	}
}
