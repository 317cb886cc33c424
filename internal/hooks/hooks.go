// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package hooks provides ordered, synchronous validator chains run before
// a change is committed. Any validator may reject; XP validators may also
// adjust the amount.
package hooks

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/samber/oops"

	"github.com/holomush/coresystem/internal/core"
)

// ErrRejected marks a validator rejection. Validators may return it
// directly or wrap it with Reject.
var ErrRejected = errors.New("rejected by validator")

// Reject returns a rejection carrying a player-facing reason.
func Reject(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrRejected, fmt.Sprintf(format, args...))
}

// XPGrant is a pending XP grant. Validators may change Amount.
type XPGrant struct {
	Actor  core.ActorID
	Amount float64
	Reason string
	Level  int
}

// SkillUse is a pending skill activation.
type SkillUse struct {
	Actor       core.ActorID
	SkillID     string
	ArchetypeID string
	EnergyCost  float64
}

// Validator inspects, and may modify, a pending change.
type Validator[T any] func(ctx context.Context, v *T) error

type entry[T any] struct {
	name string
	fn   Validator[T]
}

// Chain runs validators in registration order and stops at the first
// rejection. It is safe for concurrent use.
type Chain[T any] struct {
	mu      sync.RWMutex
	entries []entry[T]
}

// Register appends fn under name.
func (c *Chain[T]) Register(name string, fn Validator[T]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, entry[T]{name: name, fn: fn})
}

// Names returns the registered validator names in run order.
func (c *Chain[T]) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, len(c.entries))
	for i, e := range c.entries {
		names[i] = e.name
	}
	return names
}

// Run passes v through every validator. A failure is returned as a
// HOOK_REJECTED error naming the validator.
func (c *Chain[T]) Run(ctx context.Context, actor core.ActorID, v *T) error {
	c.mu.RLock()
	entries := make([]entry[T], len(c.entries))
	copy(entries, c.entries)
	c.mu.RUnlock()

	for _, e := range entries {
		if err := e.fn(ctx, v); err != nil {
			return oops.Code(core.CodeHookRejected).
				With("actor_id", actor.String()).
				With("hook", e.name).
				Wrap(err)
		}
	}
	return nil
}

// Hooks groups the validator chains consulted by the engine.
type Hooks struct {
	XPGrant  Chain[XPGrant]
	SkillUse Chain[SkillUse]
}

// New returns empty chains.
func New() *Hooks {
	return &Hooks{}
}

// RunXPGrant runs the XP grant chain.
func (h *Hooks) RunXPGrant(ctx context.Context, g *XPGrant) error {
	if h == nil {
		return nil
	}
	return h.XPGrant.Run(ctx, g.Actor, g)
}

// RunSkillUse runs the skill activation chain.
func (h *Hooks) RunSkillUse(ctx context.Context, u *SkillUse) error {
	if h == nil {
		return nil
	}
	return h.SkillUse.Run(ctx, u.Actor, u)
}
