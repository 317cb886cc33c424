// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package world

import (
	"context"
	"strings"
	"sync"

	"github.com/samber/oops"

	"github.com/holomush/coresystem/internal/core"
)

type actorState struct {
	name    string
	held    string
	items   map[string]int
	balance float64
}

// Memory is an in-process Host. Materials are case-insensitive.
type Memory struct {
	mu         sync.RWMutex
	actors     map[core.ActorID]*actorState
	obstructed map[core.Location]bool
}

// NewMemory creates an empty host.
func NewMemory() *Memory {
	return &Memory{
		actors:     make(map[core.ActorID]*actorState),
		obstructed: make(map[core.Location]bool),
	}
}

func (m *Memory) actor(id core.ActorID) *actorState {
	a, ok := m.actors[id]
	if !ok {
		a = &actorState{items: make(map[string]int)}
		m.actors[id] = a
	}
	return a
}

// SetName sets the display name of actor.
func (m *Memory) SetName(actor core.ActorID, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.actor(actor).name = name
}

// Hold puts material in actor's main hand. An empty material empties it.
func (m *Memory) Hold(actor core.ActorID, material string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.actor(actor).held = strings.ToUpper(material)
}

// SetBalance sets actor's balance.
func (m *Memory) SetBalance(actor core.ActorID, balance float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.actor(actor).balance = balance
}

// SetObstructed marks the block at loc as occupied or free.
func (m *Memory) SetObstructed(loc core.Location, obstructed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if obstructed {
		m.obstructed[loc.Block()] = true
	} else {
		delete(m.obstructed, loc.Block())
	}
}

// Count returns how much of material actor carries.
func (m *Memory) Count(actor core.ActorID, material string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if a, ok := m.actors[actor]; ok {
		return a.items[strings.ToUpper(material)]
	}
	return 0
}

// Held implements Inventory. The held item must also be in the inventory.
func (m *Memory) Held(_ context.Context, actor core.ActorID) (Item, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.actors[actor]
	if !ok || a.held == "" || a.items[a.held] == 0 {
		return Item{}, false, nil
	}
	return Item{Material: a.held, Amount: a.items[a.held]}, true, nil
}

// Has implements Inventory.
func (m *Memory) Has(_ context.Context, actor core.ActorID, material string, amount int) (bool, error) {
	return m.Count(actor, material) >= amount, nil
}

// Consume implements Inventory.
func (m *Memory) Consume(_ context.Context, actor core.ActorID, material string, amount int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := m.actor(actor)
	key := strings.ToUpper(material)
	if a.items[key] < amount {
		return oops.Code(core.CodeMissingItems).
			With("material", key).
			With("amount", amount).
			Errorf("not enough %s", key)
	}
	a.items[key] -= amount
	if a.items[key] == 0 {
		delete(a.items, key)
	}
	return nil
}

// Give implements Inventory.
func (m *Memory) Give(_ context.Context, actor core.ActorID, material string, amount int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.actor(actor).items[strings.ToUpper(material)] += amount
	return nil
}

// Balance implements Economy.
func (m *Memory) Balance(_ context.Context, actor core.ActorID) (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if a, ok := m.actors[actor]; ok {
		return a.balance, nil
	}
	return 0, nil
}

// Withdraw implements Economy.
func (m *Memory) Withdraw(_ context.Context, actor core.ActorID, amount float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := m.actor(actor)
	if a.balance < amount {
		return oops.Code(core.CodeInsufficientFunds).With("amount", amount).Errorf("insufficient funds")
	}
	a.balance -= amount
	return nil
}

// Obstructed implements World.
func (m *Memory) Obstructed(_ context.Context, loc core.Location) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.obstructed[loc.Block()], nil
}

// DisplayName implements World. Unknown actors are named by id.
func (m *Memory) DisplayName(_ context.Context, actor core.ActorID) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if a, ok := m.actors[actor]; ok && a.name != "" {
		return a.name, nil
	}
	return actor.String(), nil
}
