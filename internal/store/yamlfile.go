// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package store

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/samber/oops"
	"gopkg.in/yaml.v3"

	"github.com/holomush/coresystem/internal/core"
)

const yamlExt = ".yml"

// YAMLFileAdapter stores one YAML document per actor in a directory.
// Files are replaced atomically through a temp file and rename.
type YAMLFileAdapter struct {
	dir string
}

// NewYAMLFileAdapter creates dir if needed and returns an adapter over it.
func NewYAMLFileAdapter(dir string) (*YAMLFileAdapter, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, oops.Code(core.CodeStoreFailed).Errorf("yaml store directory is required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, oops.Code(core.CodeStoreFailed).With("dir", dir).Wrap(err)
	}
	return &YAMLFileAdapter{dir: dir}, nil
}

func (a *YAMLFileAdapter) path(id core.ActorID) string {
	return filepath.Join(a.dir, id.String()+yamlExt)
}

// Load implements Adapter.
func (a *YAMLFileAdapter) Load(ctx context.Context, id core.ActorID) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	data, err := os.ReadFile(a.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, oops.With("path", a.path(id)).Wrap(err)
	}
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Document{}, oops.With("path", a.path(id)).Wrap(err)
	}
	return doc, nil
}

// Save implements Adapter.
func (a *YAMLFileAdapter) Save(ctx context.Context, id core.ActorID, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return oops.With("actor_id", id.String()).Wrap(err)
	}
	tmp, err := os.CreateTemp(a.dir, id.String()+".*.tmp")
	if err != nil {
		return oops.With("dir", a.dir).Wrap(err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return oops.With("path", tmpName).Wrap(err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return oops.With("path", tmpName).Wrap(err)
	}
	if err := os.Rename(tmpName, a.path(id)); err != nil {
		_ = os.Remove(tmpName)
		return oops.With("path", a.path(id)).Wrap(err)
	}
	return nil
}

// List implements Adapter. Files whose names are not actor ids are skipped.
func (a *YAMLFileAdapter) List(_ context.Context) ([]core.ActorID, error) {
	entries, err := os.ReadDir(a.dir)
	if err != nil {
		return nil, oops.With("dir", a.dir).Wrap(err)
	}
	ids := make([]core.ActorID, 0, len(entries))
	for _, e := range entries {
		name, ok := strings.CutSuffix(e.Name(), yamlExt)
		if e.IsDir() || !ok {
			continue
		}
		id, err := core.ParseActorID(name)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(x, y core.ActorID) int { return x.Compare(y) })
	return ids, nil
}

// Close implements Adapter.
func (a *YAMLFileAdapter) Close() error { return nil }
