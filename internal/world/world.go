// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package world defines the host-game collaborators the Core engine
// consults: actor inventories, the economy and world queries. Memory is an
// in-process implementation; HostClient reaches a game host over gRPC.
package world

import (
	"context"

	"github.com/holomush/coresystem/internal/core"
)

// Item is a stack of one material.
type Item struct {
	Material string
	Amount   int
}

// Inventory gives access to an actor's items.
type Inventory interface {
	// Held returns the item in the actor's main hand. ok is false when the
	// hand is empty.
	Held(ctx context.Context, actor core.ActorID) (item Item, ok bool, err error)
	// Has reports whether the actor carries at least amount of material.
	Has(ctx context.Context, actor core.ActorID, material string, amount int) (bool, error)
	// Consume removes amount of material.
	Consume(ctx context.Context, actor core.ActorID, material string, amount int) error
	// Give adds amount of material.
	Give(ctx context.Context, actor core.ActorID, material string, amount int) error
}

// Economy is the currency contract used by restoration costs.
type Economy interface {
	Balance(ctx context.Context, actor core.ActorID) (float64, error)
	Withdraw(ctx context.Context, actor core.ActorID, amount float64) error
}

// World answers questions about the host world.
type World interface {
	// Obstructed reports whether the block at loc is occupied.
	Obstructed(ctx context.Context, loc core.Location) (bool, error)
	// DisplayName returns an actor's name for announcements.
	DisplayName(ctx context.Context, actor core.ActorID) (string, error)
}

// Host bundles every collaborator a game host provides.
type Host interface {
	Inventory
	Economy
	World
}
