// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package definitions

import (
	"bytes"
	"embed"
	"errors"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	yamlv3 "gopkg.in/yaml.v3"
)

//go:embed defaults/*.yaml
var embeddedDefaults embed.FS

// DefaultFS returns the built-in definition documents.
func DefaultFS() fs.FS {
	sub, err := fs.Sub(embeddedDefaults, "defaults")
	if err != nil {
		panic(err) // embedded path is fixed at build time
	}
	return sub
}

// tunableDefaults are applied before core.yaml so absent keys keep their
// documented values.
var tunableDefaults = map[string]any{
	"default-protection-radius":                      5,
	"default-core-max-health":                        100.0,
	"default-core-max-energy":                        100.0,
	"max-core-level":                                 20,
	"core-vulnerability.vulnerable-by-default":       false,
	"core-vulnerability.allow-damage-anytime":        false,
	"core-vulnerability.always-vulnerable-condition": false,
	"energy-regeneration.passive-enabled":            true,
	"energy-regeneration.passive-amount":             1.0,
	"energy-regeneration.passive-interval-seconds":   5,
	"core-restoration.enabled":                       true,
	"core-restoration.economy-cost":                  1000.0,
	"core-restoration.cooldown-seconds":              600,
	"command-cooldowns.claim":                        3600,
	"command-cooldowns.feed":                         60,
	"command-cooldowns.energize":                     30,
	"core-seed-item.material":                        "HEART_OF_THE_SEA",
	"core-seed-item.name":                            "Core Seed",
	"announce-core-destruction":                      true,
	"destruction-announcement-message":               "{player}'s Core has been destroyed!",
}

// Loader builds catalogs from a directory of definition documents.
type Loader struct {
	mutationEffects *EffectRegistry
	skillEffects    *EffectRegistry
	now             func() time.Time
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithMutationEffects replaces the mutation effect registry.
func WithMutationEffects(r *EffectRegistry) LoaderOption {
	return func(l *Loader) { l.mutationEffects = r }
}

// WithSkillEffects replaces the skill effect registry.
func WithSkillEffects(r *EffectRegistry) LoaderOption {
	return func(l *Loader) { l.skillEffects = r }
}

// WithClock sets the clock used for Catalog.LoadedAt.
func WithClock(now func() time.Time) LoaderOption {
	return func(l *Loader) { l.now = now }
}

// NewLoader creates a loader with the default effect registries.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		mutationEffects: DefaultMutationEffects(),
		skillEffects:    DefaultSkillEffects(),
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load builds a catalog from fsys using the default loader.
func Load(fsys fs.FS) (*Catalog, error) {
	return NewLoader().Load(fsys)
}

// Load reads every definition document from fsys. A document missing from
// fsys falls back to the built-in copy.
func (l *Loader) Load(fsys fs.FS) (*Catalog, error) {
	c := &Catalog{
		archetypes:    make(map[string]*Archetype),
		mutationIndex: make(map[string]*Mutation),
		LoadedAt:      l.now(),
	}

	steps := []struct {
		file string
		fn   func([]byte, *Catalog) error
	}{
		{FileCore, l.loadTunables},
		{FileExperience, l.loadExperience},
		{FileArchetypes, l.loadArchetypes},
		{FileMutations, l.loadMutations},
		{FileEvolution, l.loadEvolution},
	}
	for _, step := range steps {
		data, err := readDocument(fsys, step.file)
		if err != nil {
			return nil, err
		}
		if err := CheckVersion(step.file, data); err != nil {
			return nil, err
		}
		if err := ValidateDocument(step.file, data); err != nil {
			return nil, err
		}
		if err := step.fn(data, c); err != nil {
			return nil, oops.In("definitions").
				Code(CodeDocumentInvalid).
				With("document", step.file).
				Wrap(err)
		}
	}
	return c, nil
}

func readDocument(fsys fs.FS, name string) ([]byte, error) {
	if fsys != nil {
		data, err := fs.ReadFile(fsys, name)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, oops.In("definitions").
				Code(CodeDocumentInvalid).
				With("document", name).
				Wrapf(err, "read %s", name)
		}
	}
	data, err := fs.ReadFile(DefaultFS(), name)
	if err != nil {
		return nil, oops.In("definitions").
			Code(CodeDocumentInvalid).
			With("document", name).
			Wrapf(err, "read built-in %s", name)
	}
	return data, nil
}

// rawDocument is a koanf.Provider over bytes already read from the
// definitions directory.
type rawDocument []byte

func (r rawDocument) ReadBytes() ([]byte, error) { return r, nil }

func (r rawDocument) Read() (map[string]any, error) {
	return nil, errors.New("rawDocument provider does not support Read")
}

func (l *Loader) loadTunables(data []byte, c *Catalog) error {
	k := koanf.New(".")
	for key, v := range tunableDefaults {
		if err := k.Set(key, v); err != nil {
			return oops.Wrapf(err, "set default %s", key)
		}
	}
	if err := k.Load(rawDocument(data), yaml.Parser()); err != nil {
		return oops.Wrapf(err, "parse %s", FileCore)
	}

	var t Tunables
	if err := k.UnmarshalWithConf("", &t, koanf.UnmarshalConf{Tag: "yaml"}); err != nil {
		return oops.Wrapf(err, "decode %s", FileCore)
	}
	if t.Regen.IntervalSeconds <= 0 {
		return oops.Errorf("energy-regeneration.passive-interval-seconds must be positive")
	}
	if t.MaxLevel < 1 {
		return oops.Errorf("max-core-level must be at least 1")
	}

	items := make(map[string]float64, len(t.EnergyItems))
	for material, amount := range t.EnergyItems {
		if amount > 0 {
			items[strings.ToUpper(material)] = amount
		}
	}
	t.EnergyItems = items
	for i, src := range t.Vulnerability.DamageSources {
		t.Vulnerability.DamageSources[i] = strings.ToUpper(strings.TrimSpace(src))
	}
	t.Seed.Material = strings.ToUpper(t.Seed.Material)

	costs := make([]ItemCost, 0, len(t.Restoration.ItemCosts))
	for _, expr := range t.Restoration.ItemCosts {
		cost, err := ParseItemCost(expr)
		if err != nil {
			return err
		}
		costs = append(costs, cost)
	}

	c.Tunables = t
	c.RestorationCosts = costs
	return nil
}

func (l *Loader) loadExperience(data []byte, c *Catalog) error {
	var doc experienceDocument
	if err := yamlv3.Unmarshal(data, &doc); err != nil {
		return oops.Wrapf(err, "decode %s", FileExperience)
	}
	exp := Experience{
		MobKills:   upperKeys(doc.MobKills),
		PlayerKill: 50,
		Feed:       upperKeys(doc.CoreFeed),
	}
	if _, ok := exp.MobKills[DefaultMobKey]; !ok {
		exp.MobKills[DefaultMobKey] = 1
	}
	if _, ok := exp.Feed[DefaultMobKey]; !ok {
		exp.Feed[DefaultMobKey] = 5
	}
	if doc.PlayerKill != nil {
		exp.PlayerKill = *doc.PlayerKill
	}
	c.Experience = exp
	return nil
}

func upperKeys(in map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[strings.ToUpper(k)] = v
	}
	return out
}

func (l *Loader) loadArchetypes(data []byte, c *Catalog) error {
	var doc archetypesDocument
	if err := yamlv3.Unmarshal(data, &doc); err != nil {
		return oops.Wrapf(err, "decode %s", FileArchetypes)
	}

	for rawID, rec := range doc.Archetypes {
		id := strings.ToUpper(rawID)
		a := &Archetype{
			ID:          id,
			Name:        rec.DisplayName,
			Description: rec.Description,
			Icon:        rec.Icon,
			Skills:      make(map[string]*Skill, len(rec.Skills)),
		}
		if a.Name == "" {
			a.Name = id
		}
		for skillID, sr := range rec.Skills {
			eff, err := l.skillEffects.Parse(sr.Type, sr.EffectDetails)
			if err != nil {
				return oops.With("archetype", id, "skill", skillID).Wrap(err)
			}
			s := &Skill{
				ID:            skillID,
				ArchetypeID:   id,
				Name:          sr.Name,
				Description:   sr.Description,
				RequiredLevel: max(1, sr.RequiredLevel),
				EnergyCost:    sr.EnergyCost,
				Cooldown:      Cooldown(sr.Cooldown),
				Prerequisites: sr.Prerequisites,
				Effect:        eff,
			}
			if s.Name == "" {
				s.Name = skillID
			}
			a.Skills[skillID] = s
			a.skillOrder = append(a.skillOrder, skillID)
		}
		for _, s := range a.Skills {
			for _, pre := range s.Prerequisites {
				if _, ok := a.Skills[pre]; !ok {
					return oops.With("archetype", id, "skill", s.ID, "prerequisite", pre).
						Errorf("prerequisite %q is not in archetype %s", pre, id)
				}
			}
		}
		sort.Slice(a.skillOrder, func(i, j int) bool {
			si, sj := a.Skills[a.skillOrder[i]], a.Skills[a.skillOrder[j]]
			if si.RequiredLevel != sj.RequiredLevel {
				return si.RequiredLevel < sj.RequiredLevel
			}
			return si.ID < sj.ID
		})
		c.archetypes[id] = a
		c.archetypeOrder = append(c.archetypeOrder, id)
	}
	sort.Strings(c.archetypeOrder)
	return nil
}

// orderedMutations decodes mutations.yaml keeping the key order of the
// mutations mapping, which defines rebirth award order.
type orderedMutations struct {
	Version   string      `yaml:"version"`
	Mutations yamlv3.Node `yaml:"mutations"`
}

func (l *Loader) loadMutations(data []byte, c *Catalog) error {
	var doc orderedMutations
	dec := yamlv3.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&doc); err != nil {
		return oops.Wrapf(err, "decode %s", FileMutations)
	}
	node := &doc.Mutations
	if node.Kind == 0 {
		return nil
	}
	if node.Kind != yamlv3.MappingNode {
		return oops.With("line", node.Line).Errorf("mutations must be a mapping")
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		id := strings.ToUpper(node.Content[i].Value)
		var rec mutationRecord
		if err := node.Content[i+1].Decode(&rec); err != nil {
			return oops.With("mutation", id, "line", node.Content[i+1].Line).Wrap(err)
		}
		if _, dup := c.mutationIndex[id]; dup {
			return oops.With("mutation", id).Errorf("duplicate mutation %s", id)
		}
		eff, err := l.mutationEffects.Parse(rec.Type, rec.EffectDetails)
		if err != nil {
			return oops.With("mutation", id).Wrap(err)
		}
		m := &Mutation{ID: id, Name: rec.Name, Description: rec.Description, Effect: eff}
		if m.Name == "" {
			m.Name = id
		}
		c.mutations = append(c.mutations, m)
		c.mutationIndex[id] = m
	}
	return nil
}

func (l *Loader) loadEvolution(data []byte, c *Catalog) error {
	var doc evolutionDocument
	if err := yamlv3.Unmarshal(data, &doc); err != nil {
		return oops.Wrapf(err, "decode %s", FileEvolution)
	}
	tiers := make([]EvolutionTier, 0, len(doc.Tiers))
	for _, rec := range doc.Tiers {
		r, err := ParseLevelRange(rec.LevelRange)
		if err != nil {
			return err
		}
		tiers = append(tiers, EvolutionTier{
			Name:      rec.Name,
			Levels:    r,
			VisualID:  rec.Visual,
			ModelData: rec.ModelData,
		})
	}
	sort.SliceStable(tiers, func(i, j int) bool { return tiers[i].Levels.Min < tiers[j].Levels.Min })

	c.Evolution = tiers
	c.Fallback = EvolutionTier{Name: "fallback", Levels: LevelRange{Min: 0, Max: int(^uint(0) >> 1)}, VisualID: "STONE"}
	if doc.Fallback != nil {
		c.Fallback.VisualID = doc.Fallback.Visual
		c.Fallback.ModelData = doc.Fallback.ModelData
		if doc.Fallback.Name != "" {
			c.Fallback.Name = doc.Fallback.Name
		}
	}
	return nil
}
