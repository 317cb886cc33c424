// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package command

import (
	"strings"

	"github.com/samber/oops"
)

// ParsedCommand represents a parsed command input.
type ParsedCommand struct {
	Name string // first whitespace-delimited token, lower case
	Args string // remaining input with internal whitespace preserved
	Raw  string // original input
}

// Parse splits raw input into command name and arguments.
// A leading '/' is accepted and dropped.
func Parse(input string) (*ParsedCommand, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(input), "/")
	if strings.TrimSpace(trimmed) == "" {
		return nil, oops.Code(CodeEmptyInput).Errorf("no command provided")
	}

	idx := strings.IndexAny(trimmed, " \t")
	if idx == -1 {
		return &ParsedCommand{Name: strings.ToLower(trimmed), Raw: input}, nil
	}

	return &ParsedCommand{
		Name: strings.ToLower(trimmed[:idx]),
		Args: strings.TrimLeft(trimmed[idx+1:], " \t"),
		Raw:  input,
	}, nil
}

// Fields splits an argument string on whitespace.
func Fields(args string) []string {
	return strings.Fields(args)
}
