// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package definitionstest provides catalog fixtures for tests.
package definitionstest

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"

	"github.com/holomush/coresystem/internal/definitions"
)

// Docs maps document names to YAML overriding the built-in copy.
type Docs map[string]string

// Catalog loads the built-in definitions with docs overriding individual
// documents.
func Catalog(t testing.TB, docs Docs) *definitions.Catalog {
	t.Helper()
	c, err := definitions.Load(mapFS(docs))
	require.NoError(t, err)
	return c
}

// Holder returns a Holder over Catalog(t, docs).
func Holder(t testing.TB, docs Docs) *definitions.Holder {
	t.Helper()
	h, err := definitions.NewHolder(definitions.NewLoader(), mapFS(docs))
	require.NoError(t, err)
	return h
}

func mapFS(docs Docs) fstest.MapFS {
	fsys := fstest.MapFS{}
	for name, body := range docs {
		fsys[name] = &fstest.MapFile{Data: []byte(body)}
	}
	return fsys
}

// HealthMutations is a mutations document with two health-add mutations
// worth 20 and 30.
const HealthMutations = `
version: "1.0"
mutations:
  HARDY:
    type: health-add
    effect_details: {amount: 20}
  STURDY:
    type: health-add
    effect_details: {amount: 30}
`
