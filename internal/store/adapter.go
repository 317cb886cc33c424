// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package store owns the per-actor Core records: an in-memory cache with
// lazy loading, a coalescing async writer, and persistence adapters.
package store

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/holomush/coresystem/internal/core"
)

// ErrNotFound is returned by adapters when no document exists for an actor.
var ErrNotFound = errors.New("record not found")

// Adapter persists record documents.
type Adapter interface {
	// Load returns the stored document, or ErrNotFound.
	Load(ctx context.Context, id core.ActorID) (Document, error)
	// Save upserts the document.
	Save(ctx context.Context, id core.ActorID, doc Document) error
	// List returns every stored actor id.
	List(ctx context.Context) ([]core.ActorID, error)
	Close() error
}

// MemoryAdapter keeps documents in process memory.
// It is safe for concurrent use.
type MemoryAdapter struct {
	mu    sync.RWMutex
	docs  map[core.ActorID]Document
	saves int
}

// NewMemoryAdapter creates an empty in-memory adapter.
func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{docs: make(map[core.ActorID]Document)}
}

// Load implements Adapter.
func (m *MemoryAdapter) Load(_ context.Context, id core.ActorID) (Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return copyDocument(doc), nil
}

// Save implements Adapter.
func (m *MemoryAdapter) Save(_ context.Context, id core.ActorID, doc Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[id] = copyDocument(doc)
	m.saves++
	return nil
}

// List implements Adapter.
func (m *MemoryAdapter) List(_ context.Context) ([]core.ActorID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]core.ActorID, 0, len(m.docs))
	for id := range m.docs {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b core.ActorID) int { return a.Compare(b) })
	return ids, nil
}

// Saves returns how many writes the adapter has received.
func (m *MemoryAdapter) Saves() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves
}

// Close implements Adapter.
func (m *MemoryAdapter) Close() error { return nil }

func copyDocument(d Document) Document {
	c := d
	if d.Location != nil {
		loc := *d.Location
		c.Location = &loc
	}
	c.UnlockedSkills = slices.Clone(d.UnlockedSkills)
	c.ActiveMutations = slices.Clone(d.ActiveMutations)
	if d.Backup != nil {
		b := *d.Backup
		b.UnlockedSkills = slices.Clone(b.UnlockedSkills)
		b.ActiveMutations = slices.Clone(b.ActiveMutations)
		c.Backup = &b
	}
	if d.SkillCooldowns != nil {
		c.SkillCooldowns = make(map[string]int64, len(d.SkillCooldowns))
		for k, v := range d.SkillCooldowns {
			c.SkillCooldowns[k] = v
		}
	}
	return c
}
