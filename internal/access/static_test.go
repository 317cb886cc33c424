// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package access_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/coresystem/internal/access"
	"github.com/holomush/coresystem/internal/core"
	"github.com/holomush/coresystem/pkg/errutil"
)

func TestStatic_SystemAlwaysAllowed(t *testing.T) {
	ac := access.NewStatic()
	ctx := context.Background()

	assert.True(t, ac.Check(ctx, access.SubjectSystem, access.ActionExecute, "command:coreadmin:reload"))
	assert.True(t, ac.Check(ctx, access.SubjectSystem, access.ActionRead, "core:anything"))
}

func TestStatic_UnknownSubjectDenied(t *testing.T) {
	ac := access.NewStatic()
	ctx := context.Background()

	assert.False(t, ac.Check(ctx, access.ActorSubject(core.NewActorID()), access.ActionExecute, "command:feed"))
	assert.False(t, ac.Check(ctx, "plugin:echo", access.ActionExecute, "command:feed"))
	assert.False(t, ac.Check(ctx, "", access.ActionExecute, "command:feed"))
}

func TestStatic_DefaultRoleAppliesToActorsOnly(t *testing.T) {
	ac := access.NewStatic(access.WithDefaultRole(access.RolePlayer))
	ctx := context.Background()

	assert.True(t, ac.Check(ctx, access.ActorSubject(core.NewActorID()), access.ActionExecute, access.CommandResource("feed")))
	assert.False(t, ac.Check(ctx, "host:lobby", access.ActionExecute, access.CommandResource("feed")))
}

func TestStatic_RolePermissions(t *testing.T) {
	ac := access.NewStatic()
	ctx := context.Background()

	player := access.ActorSubject(core.NewActorID())
	moderator := access.ActorSubject(core.NewActorID())
	admin := access.ActorSubject(core.NewActorID())
	require.NoError(t, ac.AssignRole(player, access.RolePlayer))
	require.NoError(t, ac.AssignRole(moderator, access.RoleModerator))
	require.NoError(t, ac.AssignRole(admin, access.RoleAdmin))

	tests := []struct {
		name     string
		subject  string
		resource string
		want     bool
	}{
		{"player runs player command", player, access.CommandResource("rebirth"), true},
		{"player cannot run admin subcommand", player, access.CommandResource("coreadmin", "reload"), false},
		{"moderator reads health", moderator, access.CommandResource("coreadmin", "gethealth"), true},
		{"moderator damages", moderator, access.CommandResource("coreadmin", "damage"), true},
		{"moderator cannot reload", moderator, access.CommandResource("coreadmin", "reload"), false},
		{"admin reloads", admin, access.CommandResource("coreadmin", "reload"), true},
		{"admin sets archetype", admin, access.CommandResource("coreadmin", "setarchetype"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ac.Check(ctx, tt.subject, access.ActionExecute, tt.resource))
		})
	}
}

func TestStatic_SelfToken(t *testing.T) {
	ac := access.NewStatic(access.WithDefaultRole(access.RolePlayer))
	ctx := context.Background()

	self := core.NewActorID()
	other := core.NewActorID()
	subject := access.ActorSubject(self)

	assert.True(t, ac.Check(ctx, subject, access.ActionRead, access.ResourceCore+self.String()))
	assert.False(t, ac.Check(ctx, subject, access.ActionRead, access.ResourceCore+other.String()))
}

func TestStatic_AssignAndRevoke(t *testing.T) {
	ac := access.NewStatic()
	subject := access.ActorSubject(core.NewActorID())

	errutil.AssertErrorCode(t, ac.AssignRole("", access.RoleAdmin), "INVALID_SUBJECT")
	errutil.AssertErrorCode(t, ac.AssignRole(subject, ""), "INVALID_ROLE")
	errutil.AssertErrorCode(t, ac.AssignRole(subject, "wizard"), "UNKNOWN_ROLE")

	require.NoError(t, ac.AssignRoles(map[string]string{subject: access.RoleAdmin}))
	assert.Equal(t, access.RoleAdmin, ac.Role(subject))

	require.NoError(t, ac.RevokeRole(subject))
	assert.Empty(t, ac.Role(subject))
	errutil.AssertErrorCode(t, ac.RevokeRole(""), "INVALID_SUBJECT")
}

func TestNewStaticWithRoles_Errors(t *testing.T) {
	_, err := access.NewStaticWithRoles(map[string][]string{"broken": {"execute:[unclosed"}})
	errutil.AssertErrorCode(t, err, "INVALID_PERMISSION_PATTERN")

	_, err = access.NewStaticWithRoles(map[string][]string{"player": {"execute:command:*"}}, access.WithDefaultRole("ghost"))
	errutil.AssertErrorCode(t, err, "UNKNOWN_ROLE")
}

func TestParseSubject(t *testing.T) {
	tests := []struct {
		in, prefix, id string
	}{
		{"", "", ""},
		{"system", "system", ""},
		{"actor:01ABC", "actor", "01ABC"},
		{"bare", "", "bare"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			prefix, id := access.ParseSubject(tt.in)
			assert.Equal(t, tt.prefix, prefix)
			assert.Equal(t, tt.id, id)
		})
	}
}

func TestActorSubjectPanicsOnZero(t *testing.T) {
	assert.Panics(t, func() { access.ActorSubject(core.ActorID{}) })
}
