// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"

	"github.com/holomush/coresystem/internal/core"
)

// poolIface is the subset of pgxpool.Pool the adapter uses.
type poolIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresAdapter stores documents as JSONB rows in core_records.
// The schema is managed by Migrator.
type PostgresAdapter struct {
	pool poolIface
}

// NewPostgresAdapter wraps an existing pool.
func NewPostgresAdapter(pool poolIface) *PostgresAdapter {
	return &PostgresAdapter{pool: pool}
}

// OpenPostgres connects to dsn.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresAdapter, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, oops.Code(core.CodeStoreFailed).With("operation", "connect").Wrap(err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, oops.Code(core.CodeStoreFailed).With("operation", "ping").Wrap(err)
	}
	return &PostgresAdapter{pool: pool}, nil
}

// Load implements Adapter.
func (a *PostgresAdapter) Load(ctx context.Context, id core.ActorID) (Document, error) {
	var raw []byte
	err := a.pool.QueryRow(ctx,
		`SELECT document FROM core_records WHERE actor_id = $1`, id.String()).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, oops.With("operation", "load core record").With("actor_id", id.String()).Wrap(err)
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Document{}, oops.With("operation", "decode core record").With("actor_id", id.String()).Wrap(err)
	}
	return doc, nil
}

// Save implements Adapter.
func (a *PostgresAdapter) Save(ctx context.Context, id core.ActorID, doc Document) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return oops.With("operation", "encode core record").With("actor_id", id.String()).Wrap(err)
	}
	_, err = a.pool.Exec(ctx, `
		INSERT INTO core_records (actor_id, active, level, rebirth_count, document, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (actor_id) DO UPDATE SET
			active = EXCLUDED.active,
			level = EXCLUDED.level,
			rebirth_count = EXCLUDED.rebirth_count,
			document = EXCLUDED.document,
			updated_at = now()
	`, id.String(), doc.Active, doc.Level, doc.RebirthCount, raw)
	if err != nil {
		return oops.With("operation", "save core record").With("actor_id", id.String()).Wrap(err)
	}
	return nil
}

// List implements Adapter.
func (a *PostgresAdapter) List(ctx context.Context) ([]core.ActorID, error) {
	rows, err := a.pool.Query(ctx, `SELECT actor_id FROM core_records ORDER BY actor_id`)
	if err != nil {
		return nil, oops.With("operation", "list core records").Wrap(err)
	}
	defer rows.Close()

	var ids []core.ActorID
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, oops.With("operation", "scan core record id").Wrap(err)
		}
		id, err := core.ParseActorID(s)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.With("operation", "iterate core records").Wrap(err)
	}
	return ids, nil
}

// Close implements Adapter.
func (a *PostgresAdapter) Close() error {
	a.pool.Close()
	return nil
}
