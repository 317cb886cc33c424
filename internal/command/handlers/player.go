// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/holomush/coresystem/internal/command"
	"github.com/holomush/coresystem/internal/core"
	"github.com/holomush/coresystem/internal/lifecycle"
)

// ClaimHandler gives the actor a Core seed.
func ClaimHandler(ctx context.Context, exec *command.CommandExecution) error {
	if err := exec.Services.Lifecycle.Claim(ctx, exec.ActorID); err != nil {
		return err
	}
	writeOutput(ctx, exec, "claim", "You received a Core seed. Hold it and use 'place' to plant your Core.")
	return nil
}

// PlaceHandler plants the held seed at the location the host reported.
func PlaceHandler(ctx context.Context, exec *command.CommandExecution) error {
	if exec.Location == nil {
		//nolint:wrapcheck // ErrInvalidArgs creates a structured oops error
		return command.ErrInvalidArgs("place", "place (while looking at a block)")
	}
	eng := exec.Services.Lifecycle
	rec, err := eng.Place(ctx, exec.ActorID, *exec.Location)
	if err != nil {
		return err
	}
	loc := rec.Location
	writeOutputf(ctx, exec, "place", "Your Core has been placed at %d, %d, %d and is now protected.",
		loc.BlockX(), loc.BlockY(), loc.BlockZ())
	if rec.ArchetypeID == "" {
		writeOutputf(ctx, exec, "place", "Choose an archetype with 'archetype <id>': %s", archetypeList(eng))
	}
	return nil
}

// RestoreHandler rebuilds a destroyed Core from its backup.
func RestoreHandler(ctx context.Context, exec *command.CommandExecution) error {
	rec, err := exec.Services.Lifecycle.Restore(ctx, exec.ActorID, exec.Location)
	if err != nil {
		return err
	}
	writeOutputf(ctx, exec, "restore", "Your Core has been successfully restored! Level %d, health %s/%s.",
		rec.Level, num(rec.Health), num(rec.MaxHealth))
	return nil
}

// FeedHandler feeds the held item to the Core for XP.
func FeedHandler(ctx context.Context, exec *command.CommandExecution) error {
	res, err := exec.Services.Lifecycle.Feed(ctx, exec.ActorID)
	if err != nil {
		return err
	}
	writeXPResult(ctx, exec, "feed", res)
	return nil
}

// EnergizeHandler converts the held item into Core energy.
func EnergizeHandler(ctx context.Context, exec *command.CommandExecution) error {
	rec, err := exec.Services.Lifecycle.Energize(ctx, exec.ActorID)
	if err != nil {
		return err
	}
	writeOutputf(ctx, exec, "energize", "You energized your Core. Current Energy: %s/%s",
		num(rec.Energy), num(rec.MaxEnergy))
	return nil
}

// ArchetypeHandler lists archetypes or chooses one.
func ArchetypeHandler(ctx context.Context, exec *command.CommandExecution) error {
	eng := exec.Services.Lifecycle
	id := strings.TrimSpace(exec.Args)
	if id == "" {
		writeOutputf(ctx, exec, "archetype", "Available archetypes: %s", archetypeList(eng))
		return nil
	}
	unlocked, err := eng.ChooseArchetype(ctx, exec.ActorID, id)
	if err != nil {
		return err
	}
	if arch, ok := eng.Catalog().Archetype(id); ok {
		writeOutputf(ctx, exec, "archetype", "You have chosen the %s archetype.", arch.Name)
		if arch.Description != "" {
			writeOutput(ctx, exec, "archetype", arch.Description)
		}
	}
	for _, s := range unlocked {
		writeOutputf(ctx, exec, "archetype", "Skill Unlocked: %s", skillName(eng, s))
	}
	return nil
}

// SkillHandler activates one of the actor's skills.
func SkillHandler(ctx context.Context, exec *command.CommandExecution) error {
	id := strings.TrimSpace(exec.Args)
	if id == "" {
		//nolint:wrapcheck // ErrInvalidArgs creates a structured oops error
		return command.ErrInvalidArgs("skill", "skill <id>")
	}
	res, err := exec.Services.Skills.Activate(ctx, exec.ActorID, id)
	if err != nil {
		return err
	}
	writeOutputf(ctx, exec, "skill", "Used skill: %s! Energy: %s/%s",
		res.Skill.Name, num(res.Record.Energy), num(res.Record.MaxEnergy))
	return nil
}

// RebirthHandler trades a max-level Core for the next mutation.
func RebirthHandler(ctx context.Context, exec *command.CommandExecution) error {
	res, err := exec.Services.Lifecycle.Rebirth(ctx, exec.ActorID)
	if err != nil {
		return err
	}
	writeOutput(ctx, exec, "rebirth", "CORE REBIRTH! Your Core has been reborn!")
	writeOutputf(ctx, exec, "rebirth", "You are now at Rebirth: %d", res.Record.RebirthCount)
	writeOutput(ctx, exec, "rebirth", "Level reset to 1. XP reset to 0.")
	writeOutputf(ctx, exec, "rebirth", "New Mutation Unlocked: %s", res.Mutation.Name)
	if res.Mutation.Description != "" {
		writeOutput(ctx, exec, "rebirth", "  "+res.Mutation.Description)
	}
	return nil
}

// HistoryHandler lists rebirths and mutations.
func HistoryHandler(ctx context.Context, exec *command.CommandExecution) error {
	h, err := exec.Services.Lifecycle.History(ctx, exec.ActorID)
	if err != nil {
		return err
	}
	writeOutput(ctx, exec, "history", "Core History")
	writeOutputf(ctx, exec, "history", "Rebirths: %d", h.RebirthCount)
	if len(h.Mutations) == 0 {
		writeOutput(ctx, exec, "history", "No mutations yet.")
	} else {
		writeOutput(ctx, exec, "history", "Mutations:")
		for _, m := range h.Mutations {
			if !m.Known {
				writeOutputf(ctx, exec, "history", "  - %s (no longer defined)", m.ID)
				continue
			}
			writeOutputf(ctx, exec, "history", "  - %s", m.Name)
		}
	}
	writeOutputf(ctx, exec, "history", "XP earned: mobs %s, players %s, feeding %s",
		num(h.XPBySource.MobKills), num(h.XPBySource.PlayerKills), num(h.XPBySource.Feed))
	return nil
}

// MenuHandler shows the actor's Core status.
func MenuHandler(ctx context.Context, exec *command.CommandExecution) error {
	st, err := exec.Services.Lifecycle.Status(ctx, exec.ActorID)
	if err != nil {
		return err
	}
	writeStatus(ctx, exec, "menu", exec.ActorName, st)
	return nil
}

// TutorialHandler marks the tutorial as completed.
func TutorialHandler(ctx context.Context, exec *command.CommandExecution) error {
	if err := exec.Services.Lifecycle.CompleteTutorial(ctx, exec.ActorID); err != nil {
		return err
	}
	writeOutput(ctx, exec, "tutorial", "Tutorial complete.")
	return nil
}

// helpHandler lists the commands the actor may run.
func helpHandler(reg *command.Registry) command.CommandHandler {
	return func(ctx context.Context, exec *command.CommandExecution) error {
		writeOutput(ctx, exec, "help", "Core commands:")
		for _, e := range reg.All() {
			allowed := true
			for _, capability := range e.GetCapabilities() {
				if command.Require(ctx, exec, e.Name, capability) != nil {
					allowed = false
					break
				}
			}
			if allowed {
				writeOutputf(ctx, exec, "help", "  %-24s %s", e.Usage, e.Help)
			}
		}
		return nil
	}
}

func writeXPResult(ctx context.Context, exec *command.CommandExecution, cmd string, res lifecycle.XPResult) {
	writeOutputf(ctx, exec, cmd, "Gained %s Core XP.", num(res.Granted))
	if res.LeveledUp() {
		writeOutputf(ctx, exec, cmd, "CORE LEVEL UP! Your Core is now Level %d!", res.NewLevel)
	}
	for _, s := range res.Unlocked {
		writeOutputf(ctx, exec, cmd, "Skill Unlocked: %s", skillName(exec.Services.Lifecycle, s))
	}
}

func writeStatus(ctx context.Context, exec *command.CommandExecution, cmd, name string, st lifecycle.Status) {
	writeOutputf(ctx, exec, cmd, "%s's Core [%s]", name, st.State)
	switch {
	case st.Level >= st.MaxLevel:
		writeOutputf(ctx, exec, cmd, "Level %d (max), %s XP total", st.Level, num(st.TotalXP))
	default:
		writeOutputf(ctx, exec, cmd, "Level %d/%d, XP %s/%s", st.Level, st.MaxLevel, num(st.Progress), num(st.Required))
	}
	writeOutputf(ctx, exec, cmd, "Health %s/%s, Energy %s/%s", num(st.Health), num(st.MaxHealth), num(st.Energy), num(st.MaxEnergy))
	archetype := st.Archetype
	if archetype == "" {
		archetype = "none"
	}
	writeOutputf(ctx, exec, cmd, "Archetype: %s, Skills: %s", archetype, orNone(st.Skills))
	writeOutputf(ctx, exec, cmd, "Evolution: %s, Rebirths: %d", st.Appearance.Tier, st.RebirthCount)
	if st.Location != nil {
		writeOutputf(ctx, exec, cmd, "Location: %s %d, %d, %d", st.Location.World,
			st.Location.BlockX(), st.Location.BlockY(), st.Location.BlockZ())
	}
}

func archetypeList(eng *lifecycle.Engine) string {
	var ids []string
	for _, a := range eng.Catalog().Archetypes() {
		ids = append(ids, fmt.Sprintf("%s (%s)", a.ID, a.Name))
	}
	return orNone(ids)
}

func skillName(eng *lifecycle.Engine, id string) string {
	if s, ok := eng.Catalog().Skill(id); ok && s.Name != "" {
		return s.Name
	}
	return id
}

func orNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}

// targetName returns the name an actor joined with, or their id.
func targetName(eng *lifecycle.Engine, id core.ActorID) string {
	if name, ok := eng.Roster().Name(id); ok {
		return name
	}
	return id.String()
}
