// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package core

// State is the lifecycle state of a Core.
type State string

// Lifecycle states. Rebirth is a transient compound operation and has no state.
const (
	StateInactive  State = "inactive"
	StateActive    State = "active"
	StateDestroyed State = "destroyed"
)

func (s State) String() string { return string(s) }
