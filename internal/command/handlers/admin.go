// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package handlers

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/holomush/coresystem/internal/access"
	"github.com/holomush/coresystem/internal/command"
	"github.com/holomush/coresystem/internal/core"
)

const adminCommand = "coreadmin"

type adminSub struct {
	usage string
	run   func(ctx context.Context, exec *command.CommandExecution, args []string) error
}

var adminSubs = map[string]adminSub{
	"damage":       {"coreadmin damage <player> <amount>", adminDamage},
	"destroy":      {"coreadmin destroy <player>", adminDestroy},
	"sethealth":    {"coreadmin sethealth <player> <amount>", adminSetHealth},
	"gethealth":    {"coreadmin gethealth <player>", adminGetHealth},
	"setlevel":     {"coreadmin setlevel <player> <level>", adminSetLevel},
	"setxp":        {"coreadmin setxp <player> <xp>", adminSetXP},
	"setenergy":    {"coreadmin setenergy <player> <amount>", adminSetEnergy},
	"setarchetype": {"coreadmin setarchetype <player> <id|NONE>", adminSetArchetype},
	"reload":       {"coreadmin reload", adminReload},
}

// AdminSubcommands returns the coreadmin subcommand names in sorted order.
func AdminSubcommands() []string {
	return []string{"damage", "destroy", "gethealth", "reload", "setarchetype", "setenergy", "sethealth", "setlevel", "setxp"}
}

// CoreAdminHandler routes "coreadmin <sub> ..." after checking the
// subcommand's own capability.
func CoreAdminHandler(ctx context.Context, exec *command.CommandExecution) error {
	args := command.Fields(exec.Args)
	if len(args) == 0 || strings.EqualFold(args[0], "help") {
		writeOutput(ctx, exec, adminCommand, "Core admin commands:")
		for _, name := range AdminSubcommands() {
			writeOutput(ctx, exec, adminCommand, "  "+adminSubs[name].usage)
		}
		return nil
	}

	name := strings.ToLower(args[0])
	sub, ok := adminSubs[name]
	if !ok {
		//nolint:wrapcheck // ErrInvalidArgs creates a structured oops error
		return command.ErrInvalidArgs(adminCommand, "coreadmin <"+strings.Join(AdminSubcommands(), "|")+"> ...")
	}
	if err := command.Require(ctx, exec, adminCommand, access.CommandResource(adminCommand, name)); err != nil {
		return err
	}

	slog.InfoContext(ctx, "core admin command",
		"admin_id", exec.ActorID.String(),
		"subcommand", name,
		"args", strings.Join(args[1:], " "),
	)
	if err := sub.run(ctx, exec, args[1:]); err != nil {
		if core.CodeOf(err) == command.CodeInvalidArgs {
			//nolint:wrapcheck // ErrInvalidArgs creates a structured oops error
			return command.ErrInvalidArgs(adminCommand, sub.usage)
		}
		return err
	}
	return nil
}

// resolveTarget accepts an actor id or the name of a present actor.
func resolveTarget(exec *command.CommandExecution, token string) (core.ActorID, error) {
	if id, err := core.ParseActorID(token); err == nil {
		return id, nil
	}
	if id, ok := exec.Services.Lifecycle.Roster().Lookup(token); ok {
		return id, nil
	}
	//nolint:wrapcheck // ErrUnknownTarget creates a structured oops error
	return core.ActorID{}, command.ErrUnknownTarget(token)
}

// targetAndNumber parses "<player> <number>".
func targetAndNumber(exec *command.CommandExecution, args []string) (core.ActorID, float64, error) {
	if len(args) != 2 {
		return core.ActorID{}, 0, command.ErrInvalidArgs(adminCommand, "")
	}
	v, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return core.ActorID{}, 0, command.ErrInvalidArgs(adminCommand, "")
	}
	id, err := resolveTarget(exec, args[0])
	return id, v, err
}

func targetOnly(exec *command.CommandExecution, args []string) (core.ActorID, error) {
	if len(args) != 1 {
		return core.ActorID{}, command.ErrInvalidArgs(adminCommand, "")
	}
	return resolveTarget(exec, args[0])
}

func adminDamage(ctx context.Context, exec *command.CommandExecution, args []string) error {
	id, amount, err := targetAndNumber(exec, args)
	if err != nil {
		return err
	}
	eng := exec.Services.Lifecycle
	rec, err := eng.Damage(ctx, id, amount)
	if err != nil {
		return err
	}
	name := targetName(eng, id)
	if rec.State() == core.StateDestroyed {
		writeOutputf(ctx, exec, adminCommand, "Dealt %s damage to %s's Core. It was destroyed.", num(amount), name)
		return nil
	}
	writeOutputf(ctx, exec, adminCommand, "Dealt %s damage to %s's Core. Health: %s/%s",
		num(amount), name, num(rec.Health), num(rec.MaxHealth))
	return nil
}

func adminDestroy(ctx context.Context, exec *command.CommandExecution, args []string) error {
	id, err := targetOnly(exec, args)
	if err != nil {
		return err
	}
	eng := exec.Services.Lifecycle
	if _, err := eng.Destroy(ctx, id); err != nil {
		return err
	}
	name := targetName(eng, id)
	if eng.Roster().Online(id) {
		writeOutputf(ctx, exec, adminCommand, "Destroyed %s's Core.", name)
	} else {
		writeOutputf(ctx, exec, adminCommand, "Destroyed %s's Core while they were offline.", name)
	}
	return nil
}

func adminSetHealth(ctx context.Context, exec *command.CommandExecution, args []string) error {
	id, v, err := targetAndNumber(exec, args)
	if err != nil {
		return err
	}
	eng := exec.Services.Lifecycle
	rec, err := eng.SetHealth(ctx, id, v)
	if err != nil {
		return err
	}
	writeOutputf(ctx, exec, adminCommand, "Set %s's Core health to %s/%s.",
		targetName(eng, id), num(rec.Health), num(rec.MaxHealth))
	return nil
}

func adminGetHealth(ctx context.Context, exec *command.CommandExecution, args []string) error {
	id, err := targetOnly(exec, args)
	if err != nil {
		return err
	}
	eng := exec.Services.Lifecycle
	st, err := eng.Status(ctx, id)
	if err != nil {
		return err
	}
	writeStatus(ctx, exec, adminCommand, targetName(eng, id), st)
	return nil
}

func adminSetLevel(ctx context.Context, exec *command.CommandExecution, args []string) error {
	id, v, err := targetAndNumber(exec, args)
	if err != nil {
		return err
	}
	if v != float64(int(v)) {
		return command.ErrInvalidArgs(adminCommand, "")
	}
	eng := exec.Services.Lifecycle
	rec, err := eng.SetLevel(ctx, id, int(v))
	if err != nil {
		return err
	}
	writeOutputf(ctx, exec, adminCommand, "Set %s's Core to level %d (%s XP).",
		targetName(eng, id), rec.Level, num(rec.TotalXP))
	return nil
}

func adminSetXP(ctx context.Context, exec *command.CommandExecution, args []string) error {
	id, v, err := targetAndNumber(exec, args)
	if err != nil {
		return err
	}
	eng := exec.Services.Lifecycle
	rec, err := eng.SetXP(ctx, id, v)
	if err != nil {
		return err
	}
	writeOutputf(ctx, exec, adminCommand, "Set %s's Core XP to %s (level %d).",
		targetName(eng, id), num(rec.TotalXP), rec.Level)
	return nil
}

func adminSetEnergy(ctx context.Context, exec *command.CommandExecution, args []string) error {
	id, v, err := targetAndNumber(exec, args)
	if err != nil {
		return err
	}
	eng := exec.Services.Lifecycle
	rec, err := eng.SetEnergy(ctx, id, v)
	if err != nil {
		return err
	}
	writeOutputf(ctx, exec, adminCommand, "Set %s's Core energy to %s/%s.",
		targetName(eng, id), num(rec.Energy), num(rec.MaxEnergy))
	return nil
}

func adminSetArchetype(ctx context.Context, exec *command.CommandExecution, args []string) error {
	if len(args) != 2 {
		return command.ErrInvalidArgs(adminCommand, "")
	}
	id, err := resolveTarget(exec, args[0])
	if err != nil {
		return err
	}
	eng := exec.Services.Lifecycle
	rec, err := eng.SetArchetype(ctx, id, args[1])
	if err != nil {
		return err
	}
	if rec.ArchetypeID == "" {
		writeOutputf(ctx, exec, adminCommand, "Cleared %s's archetype and skills.", targetName(eng, id))
		return nil
	}
	writeOutputf(ctx, exec, adminCommand, "Set %s's archetype to %s.", targetName(eng, id), rec.ArchetypeID)
	return nil
}

func adminReload(ctx context.Context, exec *command.CommandExecution, args []string) error {
	if len(args) != 0 {
		return command.ErrInvalidArgs(adminCommand, "")
	}
	if err := exec.Services.Lifecycle.Reload(ctx); err != nil {
		return err
	}
	writeOutput(ctx, exec, adminCommand, "Core definitions reloaded.")
	return nil
}
