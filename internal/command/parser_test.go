// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package command_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/coresystem/internal/command"
	"github.com/holomush/coresystem/pkg/errutil"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantName string
		wantArgs string
	}{
		{"bare command", "feed", "feed", ""},
		{"slash prefix", "/rebirth", "rebirth", ""},
		{"upper case", "SKILL Dash", "skill", "Dash"},
		{"tab separated", "archetype\tguardian", "archetype", "guardian"},
		{"internal whitespace kept", "coreadmin  damage  bob 5", "coreadmin", "damage  bob 5"},
		{"surrounding whitespace", "  menu  ", "menu", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := command.Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, got.Name)
			assert.Equal(t, tt.wantArgs, got.Args)
			assert.Equal(t, tt.input, got.Raw)
		})
	}
}

func TestParse_Empty(t *testing.T) {
	for _, input := range []string{"", "   ", "/", " / "} {
		_, err := command.Parse(input)
		errutil.AssertErrorCode(t, err, command.CodeEmptyInput)
	}
}
