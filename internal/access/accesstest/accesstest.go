// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package accesstest provides test helpers for access control.
package accesstest

import (
	"context"
	"sync"

	"github.com/holomush/coresystem/internal/access"
)

// AllowAll is an AccessControl that allows everything.
type AllowAll struct{}

// Check always returns true.
func (AllowAll) Check(context.Context, string, string, string) bool { return true }

// DenyAll is an AccessControl that denies everything.
type DenyAll struct{}

// Check always returns false.
func (DenyAll) Check(context.Context, string, string, string) bool { return false }

// Grants is an AccessControl with exact action:resource grants per subject.
type Grants struct {
	mu     sync.Mutex
	grants map[string]map[string]bool
}

// NewGrants creates an empty Grants.
func NewGrants() *Grants {
	return &Grants{grants: make(map[string]map[string]bool)}
}

// Grant allows subject to perform action on resource.
func (g *Grants) Grant(subject, action, resource string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.grants[subject] == nil {
		g.grants[subject] = make(map[string]bool)
	}
	g.grants[subject][action+":"+resource] = true
}

// Check implements access.AccessControl.
func (g *Grants) Check(_ context.Context, subject, action, resource string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.grants[subject][action+":"+resource]
}

var (
	_ access.AccessControl = AllowAll{}
	_ access.AccessControl = DenyAll{}
	_ access.AccessControl = (*Grants)(nil)
)
