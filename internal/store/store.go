// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package store

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/holomush/coresystem/internal/core"
	"github.com/holomush/coresystem/internal/definitions"
	"github.com/holomush/coresystem/pkg/errutil"
)

// ErrUnchanged may be returned by an Update callback to discard its draft
// without an error.
var ErrUnchanged = errors.New("record unchanged")

// CatalogSource supplies the definitions used for record defaults.
type CatalogSource interface {
	Current() *definitions.Catalog
}

type entry struct {
	mu      sync.Mutex
	rec     *core.Record
	evicted bool
}

// Store is the per-actor record cache. Every record has one exclusive
// owner at a time: Update holds the record's lock while its callback runs
// on a private clone and publishes the clone only when the callback
// succeeds.
type Store struct {
	adapter  Adapter
	catalogs CatalogSource
	writer   *Writer
	now      func() time.Time

	mu      sync.Mutex
	entries map[core.ActorID]*entry
}

// Option configures a Store.
type Option func(*Store)

// WithWriter routes persistence through an async writer. Without one,
// saves happen synchronously inside Update.
func WithWriter(w *Writer) Option {
	return func(s *Store) { s.writer = w }
}

// WithClock sets the clock used to prune expired cooldowns.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates a store over adapter.
func New(adapter Adapter, catalogs CatalogSource, opts ...Option) *Store {
	s := &Store{
		adapter:  adapter,
		catalogs: catalogs,
		now:      time.Now,
		entries:  make(map[core.ActorID]*entry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns a copy of the actor's record, loading or creating it.
func (s *Store) Get(ctx context.Context, id core.ActorID) (*core.Record, error) {
	e, err := s.acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer e.mu.Unlock()
	return e.rec.Clone(), nil
}

// Peek returns a copy of the actor's record without caching it. A cached
// record is read under its lock; otherwise the record is loaded and
// discarded.
func (s *Store) Peek(ctx context.Context, id core.ActorID) (*core.Record, error) {
	s.mu.Lock()
	e, ok := s.entries[id]
	s.mu.Unlock()
	if ok {
		e.mu.Lock()
		if !e.evicted && e.rec != nil {
			defer e.mu.Unlock()
			return e.rec.Clone(), nil
		}
		e.mu.Unlock()
	}
	return s.load(ctx, id)
}

// Update runs fn on a clone of the actor's record. When fn succeeds the
// clone replaces the cached record and is persisted; when it fails the
// cached record is untouched and fn's error is returned.
func (s *Store) Update(ctx context.Context, id core.ActorID, fn func(r *core.Record) error) (*core.Record, error) {
	e, err := s.acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer e.mu.Unlock()

	draft := e.rec.Clone()
	if err := fn(draft); err != nil {
		if errors.Is(err, ErrUnchanged) {
			return e.rec.Clone(), nil
		}
		return nil, err
	}
	draft.PruneCooldowns(s.now())
	e.rec = draft
	if err := s.persist(ctx, draft); err != nil {
		errutil.LogErrorContext(ctx, slog.Default(), "core record persist failed", err)
	}
	return draft.Clone(), nil
}

// Save persists the actor's cached record and waits for the write.
func (s *Store) Save(ctx context.Context, id core.ActorID) error {
	s.mu.Lock()
	e, ok := s.entries[id]
	s.mu.Unlock()
	if !ok {
		return nil
	}
	e.mu.Lock()
	if e.evicted || e.rec == nil {
		e.mu.Unlock()
		return nil
	}
	err := s.persist(ctx, e.rec)
	e.mu.Unlock()
	if err != nil {
		return err
	}
	if s.writer != nil {
		return s.writer.DrainActor(ctx, id)
	}
	return nil
}

// Evict persists the actor's record and drops it from the cache.
func (s *Store) Evict(ctx context.Context, id core.ActorID) error {
	s.mu.Lock()
	e, ok := s.entries[id]
	s.mu.Unlock()
	if !ok {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.evicted {
		return nil
	}
	var err error
	if e.rec != nil {
		err = s.persist(ctx, e.rec)
	}
	e.evicted = true
	s.mu.Lock()
	if s.entries[id] == e {
		delete(s.entries, id)
	}
	s.mu.Unlock()
	return err
}

// Flush persists every cached record and waits until all writes land.
func (s *Store) Flush(ctx context.Context) error {
	var errs []error
	for _, id := range s.Cached() {
		s.mu.Lock()
		e, ok := s.entries[id]
		s.mu.Unlock()
		if !ok {
			continue
		}
		e.mu.Lock()
		if !e.evicted && e.rec != nil {
			if err := s.persist(ctx, e.rec); err != nil {
				errs = append(errs, err)
			}
		}
		e.mu.Unlock()
	}
	if s.writer != nil {
		if err := s.writer.Drain(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return oops.Code(core.CodeStoreFailed).With("operation", "flush").Wrap(err)
	}
	slog.InfoContext(ctx, "core records flushed", "count", len(s.Cached()))
	return nil
}

// Close flushes the cache, stops the writer and closes the adapter.
func (s *Store) Close(ctx context.Context) error {
	flushErr := s.Flush(ctx)
	var writerErr error
	if s.writer != nil {
		writerErr = s.writer.Close(ctx)
	}
	return errors.Join(flushErr, writerErr, s.adapter.Close())
}

// Cached returns the ids of records currently in memory.
func (s *Store) Cached() []core.ActorID {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]core.ActorID, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b core.ActorID) int { return a.Compare(b) })
	return ids
}

// All returns every known actor id: persisted and cached.
func (s *Store) All(ctx context.Context) ([]core.ActorID, error) {
	stored, err := s.adapter.List(ctx)
	if err != nil {
		return nil, core.ErrBackend(core.CodeStoreFailed, "list", err)
	}
	seen := make(map[core.ActorID]struct{}, len(stored))
	for _, id := range stored {
		seen[id] = struct{}{}
	}
	for _, id := range s.Cached() {
		if _, ok := seen[id]; !ok {
			stored = append(stored, id)
		}
	}
	slices.SortFunc(stored, func(a, b core.ActorID) int { return a.Compare(b) })
	return stored, nil
}

// acquire returns the loaded entry for id with its lock held.
func (s *Store) acquire(ctx context.Context, id core.ActorID) (*entry, error) {
	for {
		s.mu.Lock()
		e, ok := s.entries[id]
		if !ok {
			e = &entry{}
			s.entries[id] = e
		}
		s.mu.Unlock()

		e.mu.Lock()
		if e.evicted {
			e.mu.Unlock()
			continue
		}
		if e.rec != nil {
			return e, nil
		}
		rec, err := s.load(ctx, id)
		if err != nil {
			e.evicted = true
			s.mu.Lock()
			if s.entries[id] == e {
				delete(s.entries, id)
			}
			s.mu.Unlock()
			e.mu.Unlock()
			return nil, err
		}
		e.rec = rec
		return e, nil
	}
}

func (s *Store) load(ctx context.Context, id core.ActorID) (*core.Record, error) {
	c := s.catalogs.Current()
	if s.writer != nil {
		if doc, ok := s.writer.Latest(id); ok {
			return Decode(id, doc, c.Defaults(), c.MaxLevel(), s.now()), nil
		}
	}
	doc, err := s.adapter.Load(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return core.NewRecord(id, c.Defaults()), nil
	}
	if err != nil {
		return nil, core.ErrBackend(core.CodeStoreFailed, "load", oops.With("actor_id", id.String()).Wrap(err))
	}
	return Decode(id, doc, c.Defaults(), c.MaxLevel(), s.now()), nil
}

func (s *Store) persist(ctx context.Context, r *core.Record) error {
	doc := Encode(r, s.now())
	if s.writer != nil {
		return s.writer.Enqueue(r.ActorID, doc)
	}
	if err := s.adapter.Save(ctx, r.ActorID, doc); err != nil {
		return core.ErrBackend(core.CodeStoreFailed, "save", oops.With("actor_id", r.ActorID.String()).Wrap(err))
	}
	return nil
}
