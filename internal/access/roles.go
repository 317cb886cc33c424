// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package access

// Role names.
const (
	RolePlayer    = "player"
	RoleModerator = "moderator"
	RoleAdmin     = "admin"
)

// Permission groups define reusable sets of permissions.
// Roles compose these groups rather than inheriting.

var playerPowers = []string{
	"read:core:$self",

	// '*' stops at ':' so coreadmin subcommands stay out of reach.
	"execute:command:*",
}

var moderatorPowers = []string{
	"read:core:*",
	"execute:command:coreadmin:{gethealth,damage}",
}

var adminPowers = []string{
	"read:**",
	"execute:**",
}

// DefaultRoles returns the default role definitions.
func DefaultRoles() map[string][]string {
	return map[string][]string{
		RolePlayer:    playerPowers,
		RoleModerator: compose(playerPowers, moderatorPowers),
		RoleAdmin:     compose(playerPowers, moderatorPowers, adminPowers),
	}
}

// compose merges multiple permission slices into one.
func compose(groups ...[]string) []string {
	total := 0
	for _, g := range groups {
		total += len(g)
	}
	result := make([]string, 0, total)
	for _, g := range groups {
		result = append(result, g...)
	}
	return result
}
