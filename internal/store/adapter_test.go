// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package store_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/coresystem/internal/core"
	"github.com/holomush/coresystem/internal/store"
	"github.com/holomush/coresystem/pkg/errutil"
)

func adapters(t *testing.T) map[string]store.Adapter {
	t.Helper()
	dir := t.TempDir()

	yamlAdapter, err := store.NewYAMLFileAdapter(filepath.Join(dir, "cores"))
	require.NoError(t, err)
	sqliteAdapter, err := store.OpenSQLite(filepath.Join(dir, "cores.db"))
	require.NoError(t, err)

	all := map[string]store.Adapter{
		"memory": store.NewMemoryAdapter(),
		"yaml":   yamlAdapter,
		"sqlite": sqliteAdapter,
	}
	t.Cleanup(func() {
		for _, a := range all {
			_ = a.Close()
		}
	})
	return all
}

func TestAdapters_SaveLoadList(t *testing.T) {
	now := time.Now()
	for name, a := range adapters(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			r := fullRecord(now)
			doc := store.Encode(r, now)

			_, err := a.Load(ctx, r.ActorID)
			require.ErrorIs(t, err, store.ErrNotFound)

			require.NoError(t, a.Save(ctx, r.ActorID, doc))
			got, err := a.Load(ctx, r.ActorID)
			require.NoError(t, err)
			assert.Equal(t, doc, got)

			doc.Level = 8
			require.NoError(t, a.Save(ctx, r.ActorID, doc))
			got, err = a.Load(ctx, r.ActorID)
			require.NoError(t, err)
			assert.Equal(t, 8, got.Level)

			ids, err := a.List(ctx)
			require.NoError(t, err)
			assert.Equal(t, []core.ActorID{r.ActorID}, ids)
		})
	}
}

func TestYAMLFileAdapter_SkipsForeignFiles(t *testing.T) {
	dir := t.TempDir()
	a, err := store.NewYAMLFileAdapter(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "not-an-id.yml"), []byte("level: 3"), 0o600))

	ids, err := a.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestYAMLFileAdapter_UsesLegacyKeys(t *testing.T) {
	dir := t.TempDir()
	a, err := store.NewYAMLFileAdapter(dir)
	require.NoError(t, err)
	id := core.NewActorID()

	legacy := `uuid: ` + id.String() + `
hasActiveCore: true
coreLocation: {world: world, x: 1, y: 64, z: 1}
level: 4
xp: 700
maxHealth: 120
unlockedSkills: [stone_skin]
activeMutations: [VITALITY]
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, id.String()+".yml"), []byte(legacy), 0o600))

	doc, err := a.Load(context.Background(), id)
	require.NoError(t, err)
	r := store.Decode(id, doc, testDefaults, 20, time.Now())
	assert.True(t, r.Active)
	assert.Equal(t, 4, r.Level)
	assert.Equal(t, 120.0, r.MaxHealth)
	assert.Equal(t, 120.0, r.Health)
	assert.Equal(t, []string{"VITALITY"}, r.ActiveMutations)
}

func TestOpenAdapter(t *testing.T) {
	ctx := context.Background()

	a, err := store.OpenAdapter(ctx, store.AdapterConfig{Backend: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &store.MemoryAdapter{}, a)

	a, err = store.OpenAdapter(ctx, store.AdapterConfig{Backend: "YAML", Dir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &store.YAMLFileAdapter{}, a)

	_, err = store.OpenAdapter(ctx, store.AdapterConfig{Backend: "postgres"})
	errutil.AssertErrorCode(t, err, core.CodeStoreFailed)

	_, err = store.OpenAdapter(ctx, store.AdapterConfig{Backend: "redis"})
	errutil.AssertErrorCode(t, err, core.CodeStoreFailed)
}

func TestExportImport(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	src := store.NewMemoryAdapter()
	for range 3 {
		r := fullRecord(now)
		require.NoError(t, src.Save(ctx, r.ActorID, store.Encode(r, now)))
	}

	var buf bytes.Buffer
	n, err := store.Export(ctx, src, &buf)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	dst, err := store.OpenSQLite(filepath.Join(t.TempDir(), "import.db"))
	require.NoError(t, err)
	defer dst.Close()

	n, err = store.Import(ctx, dst, &buf)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	srcIDs, err := src.List(ctx)
	require.NoError(t, err)
	dstIDs, err := dst.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, srcIDs, dstIDs)

	for _, id := range srcIDs {
		want, err := src.Load(ctx, id)
		require.NoError(t, err)
		got, err := dst.Load(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}
