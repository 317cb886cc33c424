// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package command

import (
	"errors"
	"fmt"
	"time"

	"github.com/samber/oops"

	"github.com/holomush/coresystem/internal/core"
)

// Error codes for command dispatch failures.
const (
	CodeEmptyInput       = "EMPTY_INPUT"
	CodeUnknownCommand   = "UNKNOWN_COMMAND"
	CodePermissionDenied = "PERMISSION_DENIED"
	CodeInvalidArgs      = "INVALID_ARGS"
	CodeUnknownTarget    = "UNKNOWN_TARGET"
	CodeRateLimited      = "RATE_LIMITED"
	CodeNoActor          = "NO_ACTOR"
	CodeInvalidEntry     = "INVALID_COMMAND_ENTRY"
)

// Construction errors.
var (
	ErrNilRegistry      = errors.New("command registry is required")
	ErrNilAccessControl = errors.New("access control is required")
)

// ErrUnknownCommand creates an error for an unknown command.
func ErrUnknownCommand(cmd string) error {
	return oops.Code(CodeUnknownCommand).
		With("command", cmd).
		Errorf("unknown command: %s", cmd)
}

// ErrPermissionDenied creates an error for permission denial.
func ErrPermissionDenied(cmd, capability string) error {
	return oops.Code(CodePermissionDenied).
		With("command", cmd).
		With("capability", capability).
		Errorf("permission denied for command %s", cmd)
}

// ErrInvalidArgs creates an error for invalid arguments.
func ErrInvalidArgs(cmd, usage string) error {
	return oops.Code(CodeInvalidArgs).
		With("command", cmd).
		With("usage", usage).
		Errorf("invalid arguments")
}

// ErrUnknownTarget creates an error for a player name or id that matched nobody.
func ErrUnknownTarget(target string) error {
	return oops.Code(CodeUnknownTarget).
		With("target", target).
		Errorf("no player named %s", target)
}

// ErrRateLimited creates an error for rate limiting.
func ErrRateLimited(cooldownMs int64) error {
	return oops.Code(CodeRateLimited).
		With("cooldown_ms", cooldownMs).
		Errorf("too many commands")
}

// ErrNoActor creates an error when a command arrives without an actor.
func ErrNoActor() error {
	return oops.Code(CodeNoActor).
		Errorf("no actor associated with command")
}

var playerMessages = map[string]string{
	CodeUnknownCommand:   "Unknown command. Try 'help'.",
	CodePermissionDenied: "You don't have permission to do that.",
	CodeRateLimited:      "Too many commands. Please slow down.",
	CodeNoActor:          "This command can only be used by a player.",

	core.CodeInvalidAmount:       "The amount must be a positive number.",
	core.CodeInvalidLevel:        "That level is out of range.",
	core.CodeInvalidXP:           "XP must be zero or more.",
	core.CodeNotActive:           "You don't have an active Core.",
	core.CodeAlreadyActive:       "You already have an active Core.",
	core.CodeInsufficientEnergy:  "Your Core doesn't have enough energy.",
	core.CodeEnergyFull:          "Your Core energy is already full!",
	core.CodeInsufficientFunds:   "You can't afford that.",
	core.CodeMissingItems:        "You don't have the required items.",
	core.CodeNoSeed:              "You need to hold a Core seed. Use 'claim' to get one.",
	core.CodeAlreadyHasSeed:      "You already have a Core seed.",
	core.CodeNothingHeld:         "Hold an item in your hand first.",
	core.CodeItemNotAccepted:     "Your Core doesn't accept that item.",
	core.CodeLocationProtected:   "That location is protected.",
	core.CodeLocationObstructed:  "There's no room for a Core there.",
	core.CodeMaxLevel:            "Your Core is already at max level.",
	core.CodeNotMaxLevel:         "Your Core must reach max level before rebirth.",
	core.CodeNoMutationsLeft:     "You have already acquired all available mutations!",
	core.CodeNoBackup:            "There is no destroyed Core to restore.",
	core.CodeRestorationDisabled: "Core restoration is disabled.",
	core.CodeArchetypeChosen:     "You have already chosen an archetype.",
	core.CodeNoArchetype:         "Choose an archetype first.",
	core.CodeSkillNotInArchetype: "That skill isn't part of your archetype.",
	core.CodeSkillLocked:         "You haven't unlocked that skill yet.",
	core.CodeHookRejected:        "That action was blocked.",
	core.CodeSelfDamage:          "You can't damage your own Core.",
	core.CodeUnknownArchetype:    "Unknown archetype.",
	core.CodeUnknownSkill:        "Unknown skill.",
	core.CodeUnknownMutation:     "Unknown mutation.",
}

const genericMessage = "Something went wrong. Try again."

// PlayerMessage extracts a player-facing message from an error.
func PlayerMessage(err error) string {
	if err == nil {
		return genericMessage
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return genericMessage
	}
	code, _ := oopsErr.Code().(string)
	ctx := oopsErr.Context()

	switch code {
	case CodeInvalidArgs:
		if usage, ok := ctx["usage"].(string); ok && usage != "" {
			return "Usage: " + usage
		}
		return "Invalid arguments."
	case CodeUnknownTarget:
		if target, ok := ctx["target"].(string); ok {
			return fmt.Sprintf("No player named %s.", target)
		}
	case core.CodeOnCooldown:
		if remaining, ok := ctx["remaining"].(time.Duration); ok {
			return fmt.Sprintf("That's on cooldown for another %s.", remaining.Round(time.Second))
		}
		return "That's on cooldown."
	}
	if msg, ok := playerMessages[code]; ok {
		return msg
	}
	return genericMessage
}
