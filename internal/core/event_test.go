// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActorKind_String(t *testing.T) {
	tests := []struct {
		input    ActorKind
		expected string
	}{
		{ActorPlayer, "player"},
		{ActorSystem, "system"},
		{ActorAdmin, "admin"},
		{ActorKind(42), "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.input.String())
		})
	}
}

func TestNewEvent(t *testing.T) {
	owner := NewActorID()
	ev, err := NewEvent(ActorStream(owner), EventTypeLevelUp, SystemActor, owner, LevelUpPayload{OldLevel: 3, NewLevel: 5})
	require.NoError(t, err)

	assert.Equal(t, "actor:"+owner.String(), ev.Stream)
	assert.Equal(t, owner, ev.Subject)
	assert.False(t, ev.Timestamp.IsZero())

	var p LevelUpPayload
	require.NoError(t, json.Unmarshal(ev.Payload, &p))
	assert.Equal(t, LevelUpPayload{OldLevel: 3, NewLevel: 5}, p)
}

func TestNewEvent_NilPayload(t *testing.T) {
	ev, err := NewEvent(StreamAnnouncements, EventTypeReloaded, SystemActor, ActorID{}, nil)
	require.NoError(t, err)
	assert.Nil(t, ev.Payload)
}
