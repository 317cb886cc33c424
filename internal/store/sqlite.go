// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/samber/oops"

	// Register the pure-Go sqlite driver.
	_ "modernc.org/sqlite"

	"github.com/holomush/coresystem/internal/core"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS core_records (
	actor_id   TEXT PRIMARY KEY,
	level      INTEGER NOT NULL,
	active     INTEGER NOT NULL,
	document   BLOB NOT NULL,
	updated_at INTEGER NOT NULL
);`

// SQLiteAdapter stores zstd-compressed JSON documents in a single SQLite
// file. The database is opened with one connection in WAL mode.
type SQLiteAdapter struct {
	db  *sql.DB
	enc *zstd.Encoder
	dec *zstd.Decoder
	now func() time.Time
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path string) (*SQLiteAdapter, error) {
	if strings.TrimSpace(path) == "" {
		return nil, oops.Code(core.CodeStoreFailed).Errorf("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, oops.Code(core.CodeStoreFailed).With("path", path).Wrap(err)
	}
	db, err := sql.Open("sqlite", filepath.Clean(path))
	if err != nil {
		return nil, oops.Code(core.CodeStoreFailed).With("path", path).Wrap(err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, stmt := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		sqliteSchema,
	} {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, oops.Code(core.CodeStoreFailed).With("path", path).With("statement", stmt).Wrap(err)
		}
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		_ = db.Close()
		return nil, oops.Code(core.CodeStoreFailed).Wrap(err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		_ = db.Close()
		return nil, oops.Code(core.CodeStoreFailed).Wrap(err)
	}
	return &SQLiteAdapter{db: db, enc: enc, dec: dec, now: time.Now}, nil
}

// Load implements Adapter.
func (a *SQLiteAdapter) Load(ctx context.Context, id core.ActorID) (Document, error) {
	var blob []byte
	err := a.db.QueryRowContext(ctx,
		`SELECT document FROM core_records WHERE actor_id = ?`, id.String()).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, oops.With("actor_id", id.String()).Wrap(err)
	}
	raw, err := a.dec.DecodeAll(blob, nil)
	if err != nil {
		return Document{}, oops.With("actor_id", id.String()).With("operation", "decompress").Wrap(err)
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Document{}, oops.With("actor_id", id.String()).With("operation", "unmarshal").Wrap(err)
	}
	return doc, nil
}

// Save implements Adapter.
func (a *SQLiteAdapter) Save(ctx context.Context, id core.ActorID, doc Document) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return oops.With("actor_id", id.String()).Wrap(err)
	}
	blob := a.enc.EncodeAll(raw, nil)
	_, err = a.db.ExecContext(ctx, `
		INSERT INTO core_records (actor_id, level, active, document, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(actor_id) DO UPDATE SET
			level = excluded.level,
			active = excluded.active,
			document = excluded.document,
			updated_at = excluded.updated_at`,
		id.String(), doc.Level, doc.Active, blob, a.now().UnixMilli())
	if err != nil {
		return oops.With("actor_id", id.String()).Wrap(err)
	}
	return nil
}

// List implements Adapter.
func (a *SQLiteAdapter) List(ctx context.Context) ([]core.ActorID, error) {
	rows, err := a.db.QueryContext(ctx, `SELECT actor_id FROM core_records ORDER BY actor_id`)
	if err != nil {
		return nil, oops.Wrap(err)
	}
	defer rows.Close()

	var ids []core.ActorID
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, oops.Wrap(err)
		}
		id, err := core.ParseActorID(s)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, oops.Wrap(rows.Err())
}

// Close implements Adapter.
func (a *SQLiteAdapter) Close() error {
	a.dec.Close()
	return errors.Join(a.enc.Close(), a.db.Close())
}
