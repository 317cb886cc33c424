// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package definitions

// Document file names inside a definitions directory.
const (
	FileCore       = "core.yaml"
	FileExperience = "experience.yaml"
	FileArchetypes = "archetypes.yaml"
	FileMutations  = "mutations.yaml"
	FileEvolution  = "evolution.yaml"
)

// Tunables are the numeric and behavioural settings of core.yaml.
type Tunables struct {
	Version          string                `json:"version,omitempty" yaml:"version"`
	ProtectionRadius int                   `json:"default-protection-radius,omitempty" yaml:"default-protection-radius" jsonschema:"minimum=0"`
	DefaultMaxHealth float64               `json:"default-core-max-health,omitempty" yaml:"default-core-max-health" jsonschema:"minimum=1"`
	DefaultMaxEnergy float64               `json:"default-core-max-energy,omitempty" yaml:"default-core-max-energy" jsonschema:"minimum=0"`
	MaxLevel         int                   `json:"max-core-level,omitempty" yaml:"max-core-level" jsonschema:"minimum=1"`
	Vulnerability    VulnerabilityTunables `json:"core-vulnerability,omitempty" yaml:"core-vulnerability"`
	Regen            RegenTunables         `json:"energy-regeneration,omitempty" yaml:"energy-regeneration"`
	EnergyItems      map[string]float64    `json:"energy-items,omitempty" yaml:"energy-items"`
	Restoration      RestorationTunables   `json:"core-restoration,omitempty" yaml:"core-restoration"`
	Cooldowns        CommandCooldowns      `json:"command-cooldowns,omitempty" yaml:"command-cooldowns"`
	Seed             SeedItem              `json:"core-seed-item,omitempty" yaml:"core-seed-item"`
	AnnounceDestroy  bool                  `json:"announce-core-destruction,omitempty" yaml:"announce-core-destruction"`
	DestroyMessage   string                `json:"destruction-announcement-message,omitempty" yaml:"destruction-announcement-message"`
}

// VulnerabilityTunables decide when a Core accepts damage.
type VulnerabilityTunables struct {
	VulnerableByDefault bool     `json:"vulnerable-by-default,omitempty" yaml:"vulnerable-by-default"`
	AllowDamageAnytime  bool     `json:"allow-damage-anytime,omitempty" yaml:"allow-damage-anytime"`
	AlwaysVulnerable    bool     `json:"always-vulnerable-condition,omitempty" yaml:"always-vulnerable-condition"`
	DamageSources       []string `json:"damage-sources,omitempty" yaml:"damage-sources"`
}

// RegenTunables configure passive energy regeneration.
type RegenTunables struct {
	Enabled         bool    `json:"passive-enabled,omitempty" yaml:"passive-enabled"`
	Amount          float64 `json:"passive-amount,omitempty" yaml:"passive-amount"`
	IntervalSeconds int     `json:"passive-interval-seconds,omitempty" yaml:"passive-interval-seconds" jsonschema:"minimum=1"`
}

// RestorationTunables configure restoring a destroyed Core.
type RestorationTunables struct {
	Enabled         bool     `json:"enabled,omitempty" yaml:"enabled"`
	EconomyCost     float64  `json:"economy-cost,omitempty" yaml:"economy-cost" jsonschema:"minimum=0"`
	ItemCosts       []string `json:"item-costs,omitempty" yaml:"item-costs"`
	CooldownSeconds int      `json:"cooldown-seconds,omitempty" yaml:"cooldown-seconds"`
}

// CommandCooldowns hold per-action cooldowns in seconds. Zero disables one.
type CommandCooldowns struct {
	Claim    int `json:"claim,omitempty" yaml:"claim"`
	Feed     int `json:"feed,omitempty" yaml:"feed"`
	Energize int `json:"energize,omitempty" yaml:"energize"`
}

// SeedItem is the item handed out by claim and consumed by place.
type SeedItem struct {
	Material string `json:"material,omitempty" yaml:"material"`
	Name     string `json:"name,omitempty" yaml:"name"`
}

// experienceDocument is experience.yaml.
type experienceDocument struct {
	Version    string             `json:"version,omitempty" yaml:"version"`
	MobKills   map[string]float64 `json:"mob-kills,omitempty" yaml:"mob-kills"`
	PlayerKill *float64           `json:"player-kill,omitempty" yaml:"player-kill"`
	CoreFeed   map[string]float64 `json:"core-feed,omitempty" yaml:"core-feed"`
}

// archetypesDocument is archetypes.yaml.
type archetypesDocument struct {
	Version    string                     `json:"version,omitempty" yaml:"version"`
	Archetypes map[string]archetypeRecord `json:"archetypes,omitempty" yaml:"archetypes"`
}

type archetypeRecord struct {
	DisplayName string                 `json:"display_name,omitempty" yaml:"display_name"`
	Description string                 `json:"description,omitempty" yaml:"description"`
	Icon        string                 `json:"icon,omitempty" yaml:"icon"`
	Skills      map[string]skillRecord `json:"skills,omitempty" yaml:"skills"`
}

type skillRecord struct {
	Name          string         `json:"name,omitempty" yaml:"name"`
	Description   []string       `json:"description,omitempty" yaml:"description"`
	RequiredLevel int            `json:"required_level,omitempty" yaml:"required_level" jsonschema:"minimum=1"`
	EnergyCost    float64        `json:"energy_cost,omitempty" yaml:"energy_cost" jsonschema:"minimum=0"`
	Cooldown      int            `json:"cooldown,omitempty" yaml:"cooldown" jsonschema:"minimum=0"`
	Prerequisites []string       `json:"prerequisites,omitempty" yaml:"prerequisites"`
	Type          string         `json:"type,omitempty" yaml:"type"`
	EffectDetails map[string]any `json:"effect_details,omitempty" yaml:"effect_details"`
}

// mutationsDocument is mutations.yaml. Mutations are decoded from the yaml
// node tree so the catalog keeps file order.
type mutationsDocument struct {
	Version   string                    `json:"version,omitempty" yaml:"version"`
	Mutations map[string]mutationRecord `json:"mutations,omitempty" yaml:"mutations"`
}

type mutationRecord struct {
	Name          string         `json:"name,omitempty" yaml:"name"`
	Description   string         `json:"description,omitempty" yaml:"description"`
	Type          string         `json:"type" yaml:"type"`
	EffectDetails map[string]any `json:"effect_details,omitempty" yaml:"effect_details"`
}

// evolutionDocument is evolution.yaml.
type evolutionDocument struct {
	Version  string       `json:"version,omitempty" yaml:"version"`
	Tiers    []tierRecord `json:"evolutions,omitempty" yaml:"evolutions"`
	Fallback *tierRecord  `json:"fallback_evolution,omitempty" yaml:"fallback_evolution"`
}

type tierRecord struct {
	Name       string `json:"name,omitempty" yaml:"name"`
	LevelRange string `json:"level_range,omitempty" yaml:"level_range"`
	Visual     string `json:"visual,omitempty" yaml:"visual"`
	ModelData  int    `json:"model_data,omitempty" yaml:"model_data"`
}
