// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package access provides authorization for Core commands and host calls.
//
// All parameters use prefixed string format:
//   - subject: "actor:01ABC", "host:lobby", "system"
//   - action: "execute", "read"
//   - resource: "command:feed", "command:coreadmin:reload", "core:01ABC"
package access

import (
	"context"
	"strings"

	"github.com/holomush/coresystem/internal/core"
)

// Subject and resource prefixes.
const (
	SubjectSystem = "system"
	SubjectActor  = "actor:"
	SubjectHost   = "host:"

	ResourceCommand = "command:"
	ResourceCore    = "core:"
)

// Actions.
const (
	ActionExecute = "execute"
	ActionRead    = "read"
)

// AccessControl checks permissions for a subject.
//
//nolint:revive // stutter kept for readability at call sites
type AccessControl interface {
	// Check returns true if subject is allowed to perform action on resource.
	// Returns false for unknown subjects or denied permissions (deny by default).
	Check(ctx context.Context, subject, action, resource string) bool
}

// ActorSubject returns the subject string for an actor.
// Panics on the zero id, since an empty subject would bypass checks.
func ActorSubject(id core.ActorID) string {
	if id == (core.ActorID{}) {
		panic("access.ActorSubject: zero actor id")
	}
	return SubjectActor + id.String()
}

// CommandResource returns the resource guarding a command. Subcommands are
// appended as further ':' separated segments.
func CommandResource(name string, sub ...string) string {
	parts := append([]string{name}, sub...)
	return ResourceCommand + strings.ToLower(strings.Join(parts, ":"))
}

// CoreResource returns the resource guarding reads of an actor's Core.
func CoreResource(id core.ActorID) string {
	return ResourceCore + id.String()
}

// HostSubject returns the subject string for a game host.
func HostSubject(name string) string {
	return SubjectHost + name
}

// ParseSubject splits a subject string into prefix and ID.
// Returns ("system", "") for "system".
// Returns ("", subject) if no colon separator found.
func ParseSubject(subject string) (prefix, id string) {
	if subject == "" {
		return "", ""
	}
	if subject == SubjectSystem {
		return SubjectSystem, ""
	}
	parts := strings.SplitN(subject, ":", 2)
	if len(parts) == 1 {
		return "", subject
	}
	return parts[0], parts[1]
}
