// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package store

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	"github.com/holomush/coresystem/internal/core"
	"github.com/holomush/coresystem/pkg/errutil"
)

// WriterConfig tunes the async writer.
type WriterConfig struct {
	Workers     int
	MaxRetries  uint64
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

// DefaultWriterConfig returns the writer settings used by serve.
func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		Workers:     4,
		MaxRetries:  5,
		BaseBackoff: 50 * time.Millisecond,
		MaxBackoff:  2 * time.Second,
	}
}

type pendingWrite struct {
	id  core.ActorID
	doc Document
}

// Writer persists documents off the caller's goroutine. Writes for one
// actor are serialised and coalesced: if several snapshots are queued while
// a write is in flight, only the newest is written next.
type Writer struct {
	adapter Adapter
	cfg     WriterConfig

	mu       sync.Mutex
	idle     *sync.Cond
	pending  map[core.ActorID]Document
	inflight map[core.ActorID]Document
	order    []core.ActorID
	closed   bool

	wake     chan struct{}
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewWriter starts cfg.Workers background writers.
func NewWriter(adapter Adapter, cfg WriterConfig) *Writer {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	w := &Writer{
		adapter:  adapter,
		cfg:      cfg,
		pending:  make(map[core.ActorID]Document),
		inflight: make(map[core.ActorID]Document),
		wake:     make(chan struct{}, 1),
		stopChan: make(chan struct{}),
	}
	w.idle = sync.NewCond(&w.mu)
	w.wg.Add(cfg.Workers)
	for range cfg.Workers {
		go w.loop()
	}
	return w
}

// Enqueue schedules doc to be written for id.
func (w *Writer) Enqueue(id core.ActorID, doc Document) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return oops.Code(core.CodeStoreFailed).With("actor_id", id.String()).Errorf("writer is closed")
	}
	_, queued := w.pending[id]
	_, busy := w.inflight[id]
	w.pending[id] = doc
	if !queued && !busy {
		w.order = append(w.order, id)
	}
	w.mu.Unlock()
	w.signal()
	return nil
}

// Latest returns the newest document queued or being written for id.
func (w *Writer) Latest(id core.ActorID) (Document, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if doc, ok := w.pending[id]; ok {
		return copyDocument(doc), true
	}
	if doc, ok := w.inflight[id]; ok {
		return copyDocument(doc), true
	}
	return Document{}, false
}

// Pending returns the number of actors with queued or in-flight writes.
func (w *Writer) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.order) + len(w.inflight)
}

// Drain blocks until no writes are queued or in flight, or ctx ends.
func (w *Writer) Drain(ctx context.Context) error {
	return w.waitFor(ctx, func() bool { return len(w.order) == 0 && len(w.inflight) == 0 })
}

// DrainActor blocks until id has no queued or in-flight write.
func (w *Writer) DrainActor(ctx context.Context, id core.ActorID) error {
	return w.waitFor(ctx, func() bool {
		_, queued := w.pending[id]
		_, busy := w.inflight[id]
		return !queued && !busy
	})
}

func (w *Writer) waitFor(ctx context.Context, done func() bool) error {
	stop := context.AfterFunc(ctx, func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		w.idle.Broadcast()
	})
	defer stop()

	w.mu.Lock()
	defer w.mu.Unlock()
	for !done() {
		if err := ctx.Err(); err != nil {
			return oops.Code(core.CodeStoreFailed).With("pending", len(w.order)).Wrap(err)
		}
		w.idle.Wait()
	}
	return nil
}

// Close drains outstanding writes and stops the workers.
func (w *Writer) Close(ctx context.Context) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	err := w.Drain(ctx)

	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	close(w.stopChan)
	w.wg.Wait()
	return err
}

func (w *Writer) signal() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *Writer) loop() {
	defer w.wg.Done()
	for {
		job, ok := w.next()
		if !ok {
			select {
			case <-w.wake:
				continue
			case <-w.stopChan:
				return
			}
		}
		// More work may be queued; let another worker pick it up.
		w.signal()

		err := w.write(job)
		if err != nil {
			errutil.LogError(slog.Default(), "core record write failed", oops.With("actor_id", job.id.String()).Wrap(err))
		}
		w.finish(job.id)
	}
}

func (w *Writer) next() (pendingWrite, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.order) == 0 {
		return pendingWrite{}, false
	}
	id := w.order[0]
	w.order = w.order[1:]
	doc := w.pending[id]
	delete(w.pending, id)
	w.inflight[id] = doc
	return pendingWrite{id: id, doc: doc}, true
}

func (w *Writer) finish(id core.ActorID) {
	w.mu.Lock()
	delete(w.inflight, id)
	if _, queued := w.pending[id]; queued {
		w.order = append(w.order, id)
	}
	w.idle.Broadcast()
	w.mu.Unlock()
	w.signal()
}

func (w *Writer) write(job pendingWrite) error {
	start := time.Now()
	b := retry.NewExponential(w.cfg.BaseBackoff)
	b = retry.WithCappedDuration(w.cfg.MaxBackoff, b)
	b = retry.WithMaxRetries(w.cfg.MaxRetries, b)

	attempts := 0
	err := retry.Do(context.Background(), b, func(ctx context.Context) error {
		attempts++
		err := w.adapter.Save(ctx, job.id, job.doc)
		if err != nil && Retryable(err) {
			return retry.RetryableError(err)
		}
		return err
	})
	RecordWrite(err, attempts, time.Since(start))
	if err != nil {
		return oops.Code(core.CodeStoreFailed).
			With("operation", "save").
			With("attempts", attempts).
			Wrap(err)
	}
	return nil
}

// Retryable reports whether a failed save is worth retrying. Postgres
// errors are classified by SQLSTATE class; constraint and syntax errors are
// permanent.
func Retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgerrcode.IsConnectionException(pgErr.Code) ||
			pgerrcode.IsTransactionRollback(pgErr.Code) ||
			pgerrcode.IsInsufficientResources(pgErr.Code) ||
			pgerrcode.IsOperatorIntervention(pgErr.Code)
	}
	return true
}
