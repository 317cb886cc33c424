// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package command_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/holomush/coresystem/internal/command"
	"github.com/holomush/coresystem/internal/core"
)

func TestPlayerMessage(t *testing.T) {
	actor := core.NewActorID()
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, "Something went wrong. Try again."},
		{"plain error", errors.New("boom"), "Something went wrong. Try again."},
		{"unknown command", command.ErrUnknownCommand("dance"), "Unknown command. Try 'help'."},
		{"usage", command.ErrInvalidArgs("skill", "skill <id>"), "Usage: skill <id>"},
		{"no usage", command.ErrInvalidArgs("skill", ""), "Invalid arguments."},
		{"unknown target", command.ErrUnknownTarget("Bob"), "No player named Bob."},
		{"cooldown", core.ErrCooldown(actor, "feed", 42*time.Second+300*time.Millisecond), "That's on cooldown for another 42s."},
		{"core precondition", core.ErrPrecondition(core.CodeNotActive, actor, "no core"), "You don't have an active Core."},
		{"definition", core.ErrUnknownDefinition(core.CodeUnknownSkill, "fly"), "Unknown skill."},
		{"backend", core.ErrBackend(core.CodeStoreFailed, "save", errors.New("disk")), "Something went wrong. Try again."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, command.PlayerMessage(tt.err))
		})
	}
}
