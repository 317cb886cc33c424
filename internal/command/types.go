// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package command provides the Core command registry, parser and dispatch.
package command

import (
	"context"
	"io"
	"slices"

	"github.com/holomush/coresystem/internal/access"
	"github.com/holomush/coresystem/internal/core"
	"github.com/holomush/coresystem/internal/lifecycle"
	"github.com/holomush/coresystem/internal/skill"
)

// CommandHandler is the function signature for command handlers.
//
//nolint:revive // stutter kept for readability at call sites
type CommandHandler func(ctx context.Context, exec *CommandExecution) error

// CommandEntry represents a registered command.
//
//nolint:revive // stutter kept for readability at call sites
type CommandEntry struct {
	Name         string         // canonical name, lower case
	Handler      CommandHandler // Go handler
	Capabilities []string       // ALL required capabilities (AND logic)
	Help         string         // one line
	Usage        string         // e.g. "skill <id>"
	Source       string         // "core" or the registering component
}

// GetCapabilities returns a copy of the required capabilities.
func (e CommandEntry) GetCapabilities() []string {
	return slices.Clone(e.Capabilities)
}

// CommandExecution provides context for one command run.
//
//nolint:revive // stutter kept for readability at call sites
type CommandExecution struct {
	ActorID   core.ActorID
	ActorName string
	// Location is where the actor is looking or standing, as reported by
	// the host. Commands that need a target block fail without it.
	Location *core.Location
	Args     string
	Output   io.Writer
	Services *Services
}

// Subject returns the access subject for the executing actor.
func (e *CommandExecution) Subject() string {
	return access.ActorSubject(e.ActorID)
}

// Services provides access to the Core engine for command handlers.
// Handlers MUST NOT store references to services beyond execution.
type Services struct {
	Lifecycle *lifecycle.Engine
	Skills    *skill.Activator
	Access    access.AccessControl
}
