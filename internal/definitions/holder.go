// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package definitions

import (
	"io/fs"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Holder publishes the current Catalog. Readers call Current and keep the
// returned pointer for the duration of one operation; Reload swaps in a new
// catalog without blocking them.
type Holder struct {
	current atomic.Pointer[Catalog]
	loader  *Loader
	fsys    fs.FS

	mu        sync.Mutex
	listeners []func(old, updated *Catalog)
}

// NewHolder loads the initial catalog from fsys.
func NewHolder(loader *Loader, fsys fs.FS) (*Holder, error) {
	c, err := loader.Load(fsys)
	if err != nil {
		return nil, err
	}
	h := &Holder{loader: loader, fsys: fsys}
	h.current.Store(c)
	return h, nil
}

// NewStaticHolder wraps an already built catalog. Reload re-reads the
// built-in documents.
func NewStaticHolder(c *Catalog) *Holder {
	h := &Holder{loader: NewLoader()}
	h.current.Store(c)
	return h
}

// Current returns the active catalog.
func (h *Holder) Current() *Catalog {
	return h.current.Load()
}

// OnReload registers fn to run after every successful reload.
func (h *Holder) OnReload(fn func(old, updated *Catalog)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listeners = append(h.listeners, fn)
}

// Reload rebuilds the catalog. On failure the previous catalog stays active.
func (h *Holder) Reload() (*Catalog, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	updated, err := h.loader.Load(h.fsys)
	if err != nil {
		slog.Warn("definitions reload failed, keeping previous catalog", "error", err)
		return nil, err
	}
	old := h.current.Swap(updated)
	for _, fn := range h.listeners {
		fn(old, updated)
	}
	slog.Info("definitions reloaded",
		"archetypes", len(updated.archetypes),
		"mutations", len(updated.mutations),
		"evolution_tiers", len(updated.Evolution))
	return updated, nil
}
