// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package lifecycle

import (
	"slices"
	"strings"
	"sync"

	"github.com/holomush/coresystem/internal/core"
)

// Roster tracks the actors currently present in the world.
type Roster struct {
	mu    sync.RWMutex
	names map[core.ActorID]string
}

// NewRoster creates an empty roster.
func NewRoster() *Roster {
	return &Roster{names: make(map[core.ActorID]string)}
}

// Add marks actor present under name.
func (r *Roster) Add(actor core.ActorID, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names[actor] = name
}

// Remove marks actor absent.
func (r *Roster) Remove(actor core.ActorID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.names, actor)
}

// Online reports whether actor is present.
func (r *Roster) Online(actor core.ActorID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.names[actor]
	return ok
}

// Name returns the name actor joined with.
func (r *Roster) Name(actor core.ActorID) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.names[actor]
	return name, ok
}

// Lookup finds a present actor by name, ignoring case.
func (r *Roster) Lookup(name string) (core.ActorID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for id, n := range r.names {
		if strings.EqualFold(n, name) {
			return id, true
		}
	}
	return core.ActorID{}, false
}

// Present returns the present actors in id order.
func (r *Roster) Present() []core.ActorID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.ActorID, 0, len(r.names))
	for id := range r.names {
		out = append(out, id)
	}
	slices.SortFunc(out, func(a, b core.ActorID) int { return a.Compare(b) })
	return out
}

// Len returns the number of present actors.
func (r *Roster) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.names)
}
