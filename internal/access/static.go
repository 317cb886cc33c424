// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package access

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/gobwas/glob"
	"github.com/samber/oops"
)

// Static implements AccessControl with static role definitions.
//
// roles is immutable after construction. Only subjects is mutable and
// protected by mu.
type Static struct {
	roles       map[string][]compiledPermission
	subjects    map[string]string
	defaultRole string
	mu          sync.RWMutex
}

type compiledPermission struct {
	pattern string
	glob    glob.Glob
}

// StaticOption configures a Static controller.
type StaticOption func(*Static)

// WithDefaultRole gives actors without an explicit assignment the named role.
// Hosts and other prefixes are never defaulted.
func WithDefaultRole(role string) StaticOption {
	return func(s *Static) { s.defaultRole = role }
}

// NewStatic creates a static access controller with the default roles.
//
// Panics if the default roles contain invalid permission patterns.
func NewStatic(opts ...StaticOption) *Static {
	ac, err := NewStaticWithRoles(DefaultRoles(), opts...)
	if err != nil {
		panic("invalid permission pattern in DefaultRoles: " + err.Error())
	}
	return ac
}

// NewStaticWithRoles creates a static access controller with custom roles.
// Returns an error if any pattern fails to compile or the default role is
// not among roles.
func NewStaticWithRoles(roles map[string][]string, opts ...StaticOption) (*Static, error) {
	compiledRoles := make(map[string][]compiledPermission, len(roles))
	for role, perms := range roles {
		compiled := make([]compiledPermission, 0, len(perms))
		for _, p := range perms {
			g, err := glob.Compile(p, ':')
			if err != nil {
				return nil, oops.In("access").
					Code("INVALID_PERMISSION_PATTERN").
					With("role", role).
					With("pattern", p).
					Wrap(err)
			}
			compiled = append(compiled, compiledPermission{pattern: p, glob: g})
		}
		compiledRoles[role] = compiled
	}

	s := &Static{
		roles:    compiledRoles,
		subjects: make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.defaultRole != "" {
		if _, ok := s.roles[s.defaultRole]; !ok {
			return nil, oops.In("access").Code("UNKNOWN_ROLE").With("role", s.defaultRole).New("unknown default role")
		}
	}
	return s, nil
}

// Check implements AccessControl.
func (s *Static) Check(_ context.Context, subject, action, resource string) bool {
	if subject == SubjectSystem {
		return true
	}
	if subject == "" {
		return false
	}

	prefix, id := ParseSubject(subject)
	switch prefix + ":" {
	case SubjectActor, SubjectHost:
	default:
		return false
	}

	role := s.roleFor(subject, prefix)
	if role == "" {
		return false
	}

	requested := action + ":" + resource
	for _, perm := range s.roles[role] {
		if !strings.Contains(perm.pattern, "$self") {
			if perm.glob.Match(requested) {
				return true
			}
			continue
		}
		resolved := strings.ReplaceAll(perm.pattern, "$self", id)
		g, err := glob.Compile(resolved, ':')
		if err != nil {
			slog.Warn("failed to compile resolved permission pattern",
				"subject", subject,
				"pattern", perm.pattern,
				"error", err)
			continue
		}
		if g.Match(requested) {
			return true
		}
	}
	return false
}

func (s *Static) roleFor(subject, prefix string) string {
	s.mu.RLock()
	role, ok := s.subjects[subject]
	s.mu.RUnlock()
	if ok {
		return role
	}
	if prefix+":" == SubjectActor {
		return s.defaultRole
	}
	return ""
}

// AssignRole sets the role for a subject.
func (s *Static) AssignRole(subject, role string) error {
	if subject == "" {
		return oops.In("access").Code("INVALID_SUBJECT").New("subject cannot be empty")
	}
	if role == "" {
		return oops.In("access").Code("INVALID_ROLE").New("role cannot be empty")
	}
	if _, ok := s.roles[role]; !ok {
		return oops.In("access").Code("UNKNOWN_ROLE").With("role", role).New("unknown role")
	}

	s.mu.Lock()
	s.subjects[subject] = role
	s.mu.Unlock()
	return nil
}

// AssignRoles applies a subject→role map, stopping at the first invalid entry.
func (s *Static) AssignRoles(assignments map[string]string) error {
	for subject, role := range assignments {
		if err := s.AssignRole(subject, role); err != nil {
			return err
		}
	}
	return nil
}

// RevokeRole removes a subject's role assignment.
func (s *Static) RevokeRole(subject string) error {
	if subject == "" {
		return oops.In("access").Code("INVALID_SUBJECT").New("subject cannot be empty")
	}
	s.mu.Lock()
	delete(s.subjects, subject)
	s.mu.Unlock()
	return nil
}

// Role returns the role explicitly assigned to a subject, or "".
func (s *Static) Role(subject string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.subjects[subject]
}
