// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package command

import (
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/samber/oops"
)

// Registry manages command registration and lookup.
// It is safe for concurrent use.
type Registry struct {
	commands map[string]CommandEntry
	mu       sync.RWMutex
}

// NewRegistry creates a new command registry.
func NewRegistry() *Registry {
	return &Registry{
		commands: make(map[string]CommandEntry),
	}
}

// Register adds a command to the registry. Names are case-insensitive.
// A duplicate name overwrites the existing entry with a warning.
func (r *Registry) Register(entry CommandEntry) error {
	if entry.Name == "" || entry.Handler == nil {
		return oops.In("command").Code(CodeInvalidEntry).
			With("command", entry.Name).
			New("command needs a name and a handler")
	}
	entry.Name = strings.ToLower(entry.Name)

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.commands[entry.Name]; ok {
		slog.Warn("command conflict: overwriting existing command",
			"command", entry.Name,
			"previous_source", existing.Source,
			"new_source", entry.Source)
	}
	r.commands[entry.Name] = entry
	return nil
}

// Get retrieves a command by name.
func (r *Registry) Get(name string) (CommandEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.commands[strings.ToLower(name)]
	return entry, ok
}

// All returns all registered commands sorted by name.
func (r *Registry) All() []CommandEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]CommandEntry, 0, len(r.commands))
	for _, e := range r.commands {
		entries = append(entries, e)
	}
	slices.SortFunc(entries, func(a, b CommandEntry) int { return strings.Compare(a.Name, b.Name) })
	return entries
}
