// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package definitions_test

import (
	"encoding/json"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/coresystem/internal/definitions"
	"github.com/holomush/coresystem/pkg/errutil"
)

func TestGenerateSchema_EveryDocument(t *testing.T) {
	for _, doc := range definitions.Documents() {
		t.Run(doc, func(t *testing.T) {
			data, err := definitions.GenerateSchema(doc)
			require.NoError(t, err)

			var schema map[string]any
			require.NoError(t, json.Unmarshal(data, &schema))
			assert.Equal(t, definitions.SchemaID(doc), schema["$id"])
		})
	}
}

func TestGenerateSchema_UnknownDocument(t *testing.T) {
	_, err := definitions.GenerateSchema("skills.yml")
	assert.Error(t, err)
}

func TestValidateDocument_BuiltInsAreValid(t *testing.T) {
	for _, doc := range definitions.Documents() {
		t.Run(doc, func(t *testing.T) {
			data, err := fs.ReadFile(definitions.DefaultFS(), doc)
			require.NoError(t, err)
			assert.NoError(t, definitions.ValidateDocument(doc, data))
		})
	}
}

func TestValidateDocument_RejectsTypeMismatch(t *testing.T) {
	err := definitions.ValidateDocument(definitions.FileArchetypes, []byte(`
archetypes:
  guardian:
    skills:
      stone_skin:
        energy_cost: "a lot"
`))
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, definitions.CodeDocumentInvalid)
}

func TestValidateDocument_EmptyDocumentIsValid(t *testing.T) {
	assert.NoError(t, definitions.ValidateDocument(definitions.FileExperience, []byte("")))
}

func TestCheckVersion(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"absent", "mutations: {}\n", false},
		{"1.0", "version: \"1.0\"\n", false},
		{"1.7.2", "version: 1.7.2\n", false},
		{"2.0", "version: \"2.0\"\n", true},
		{"garbage", "version: banana\n", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := definitions.CheckVersion(definitions.FileMutations, []byte(tt.body))
			if tt.wantErr {
				errutil.AssertErrorCode(t, err, definitions.CodeVersionUnsupported)
				return
			}
			assert.NoError(t, err)
		})
	}
}
