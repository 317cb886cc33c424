// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package handlers implements the player and admin Core commands.
package handlers

import (
	"github.com/holomush/coresystem/internal/access"
	"github.com/holomush/coresystem/internal/command"
)

// RegisterAll registers every Core command with reg.
// Panics if a registration fails, which is a programming error.
func RegisterAll(reg *command.Registry) {
	mustRegister := func(entry command.CommandEntry) {
		if entry.Capabilities == nil {
			entry.Capabilities = []string{access.CommandResource(entry.Name)}
		}
		entry.Source = "core"
		if err := reg.Register(entry); err != nil {
			panic("failed to register core command " + entry.Name + ": " + err.Error())
		}
	}

	mustRegister(command.CommandEntry{Name: "claim", Handler: ClaimHandler, Usage: "claim", Help: "Receive a Core seed"})
	mustRegister(command.CommandEntry{Name: "place", Handler: PlaceHandler, Usage: "place", Help: "Plant your Core where you are looking"})
	mustRegister(command.CommandEntry{Name: "restore", Handler: RestoreHandler, Usage: "restore", Help: "Rebuild your destroyed Core"})
	mustRegister(command.CommandEntry{Name: "feed", Handler: FeedHandler, Usage: "feed", Help: "Feed the held item to your Core for XP"})
	mustRegister(command.CommandEntry{Name: "energize", Handler: EnergizeHandler, Usage: "energize", Help: "Turn the held item into Core energy"})
	mustRegister(command.CommandEntry{Name: "archetype", Handler: ArchetypeHandler, Usage: "archetype [id]", Help: "List or choose an archetype"})
	mustRegister(command.CommandEntry{Name: "skill", Handler: SkillHandler, Usage: "skill <id>", Help: "Use one of your skills"})
	mustRegister(command.CommandEntry{Name: "rebirth", Handler: RebirthHandler, Usage: "rebirth", Help: "Reset a max-level Core for a mutation"})
	mustRegister(command.CommandEntry{Name: "history", Handler: HistoryHandler, Usage: "history", Help: "Show rebirths and mutations"})
	mustRegister(command.CommandEntry{Name: "menu", Handler: MenuHandler, Usage: "menu", Help: "Show your Core status"})
	mustRegister(command.CommandEntry{Name: "status", Handler: MenuHandler, Usage: "status", Help: "Show your Core status"})
	mustRegister(command.CommandEntry{Name: "tutorial", Handler: TutorialHandler, Usage: "tutorial", Help: "Mark the tutorial complete"})
	mustRegister(command.CommandEntry{Name: "help", Handler: helpHandler(reg), Usage: "help", Help: "List the commands you can use"})

	// Subcommands carry their own capabilities, checked by the handler.
	mustRegister(command.CommandEntry{
		Name:         "coreadmin",
		Handler:      CoreAdminHandler,
		Capabilities: []string{},
		Usage:        "coreadmin <subcommand>",
		Help:         "Administer players' Cores",
	})
}
