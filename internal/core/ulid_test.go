// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package core

import (
	"errors"
	"strings"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewULID_Monotonic(t *testing.T) {
	prev := NewULID()
	for range 100 {
		next := NewULID()
		require.Equal(t, 1, next.Compare(prev), "ids from one process strictly increase")
		prev = next
	}
}

func TestNewActorID_Unique(t *testing.T) {
	seen := make(map[ActorID]struct{}, 50)
	for range 50 {
		id := NewActorID()
		_, dup := seen[id]
		require.False(t, dup)
		seen[id] = struct{}{}
	}
}

func TestParseActorID(t *testing.T) {
	id := NewActorID()

	parsed, err := ParseActorID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)

	parsed, err = ParseActorID(strings.ToLower(id.String()))
	require.NoError(t, err, "lowercase ids are accepted")
	assert.Equal(t, id, parsed)
}

func TestParseActorID_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"too short", "01ARZ3NDEKTSV4RRFFQ69G5FA"},
		{"bad character", "01ARZ3NDEKTSV4RRFFQ69G5FAU"},
		{"overflow", "81ARZ3NDEKTSV4RRFFQ69G5FAV"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseActorID(tt.input)
			require.Error(t, err)

			oopsErr, ok := oops.AsOops(err)
			require.True(t, ok)
			assert.Equal(t, CodeInvalidInput, oopsErr.Code())
			assert.Equal(t, tt.input, oopsErr.Context()["actor_id"])

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, "actor_id", verr.Field)
		})
	}
}
