// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package protection

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/holomush/coresystem/internal/core"
)

// Cuboid is the built-in backend: one cube per owner held in memory and
// found by a linear scan.
type Cuboid struct {
	radius atomic.Int64

	mu      sync.RWMutex
	regions map[core.ActorID]Region
}

// NewCuboid creates a backend with the given default radius.
func NewCuboid(radius int) *Cuboid {
	c := &Cuboid{regions: make(map[core.ActorID]Region)}
	c.SetRadius(radius)
	return c
}

// SetRadius implements Protection. Existing regions are rebuilt around
// their centre with the new radius.
func (c *Cuboid) SetRadius(radius int) {
	radius = max(0, radius)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.radius.Store(int64(radius))
	for owner, r := range c.regions {
		c.regions[owner] = NewRegion(owner, r.Center, radius)
	}
}

// Radius returns the radius used for new regions.
func (c *Cuboid) Radius() int {
	return int(c.radius.Load())
}

// IsProtected implements Protection.
func (c *Cuboid) IsProtected(_ context.Context, loc core.Location) (bool, error) {
	_, ok := c.find(loc)
	return ok, nil
}

// CanModify implements Protection: only the owner may modify inside a region.
func (c *Cuboid) CanModify(_ context.Context, actor core.ActorID, loc core.Location) (bool, error) {
	r, ok := c.find(loc)
	return !ok || r.OwnerID == actor, nil
}

// Register implements Protection. Built-in regions never need deferral.
func (c *Cuboid) Register(_ context.Context, owner core.ActorID, loc core.Location, _ bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.regions[owner] = NewRegion(owner, loc, c.Radius())
	return nil
}

// Unregister implements Protection.
func (c *Cuboid) Unregister(_ context.Context, owner core.ActorID, world string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if r, ok := c.regions[owner]; ok && (world == "" || r.World == world) {
		delete(c.regions, owner)
	}
	return nil
}

// RegionAt implements Protection.
func (c *Cuboid) RegionAt(_ context.Context, loc core.Location) (Region, bool, error) {
	r, ok := c.find(loc)
	return r, ok, nil
}

// Restore implements Restorer. An existing region for owner is kept.
func (c *Cuboid) Restore(owner core.ActorID, loc core.Location) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.regions[owner]; ok {
		return false
	}
	c.regions[owner] = NewRegion(owner, loc, c.Radius())
	return true
}

// Resume implements Protection. There is never anything deferred.
func (c *Cuboid) Resume(context.Context, core.ActorID) error { return nil }

// Regions returns every region ordered by owner.
func (c *Cuboid) Regions() []Region {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Region, 0, len(c.regions))
	for _, r := range c.regions {
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b Region) int { return a.OwnerID.Compare(b.OwnerID) })
	return out
}

// IsCoreBlock reports whether loc is the centre block of some region.
func (c *Cuboid) IsCoreBlock(loc core.Location) bool {
	r, ok := c.find(loc)
	return ok && r.IsCoreBlock(loc)
}

func (c *Cuboid) find(loc core.Location) (Region, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, r := range c.regions {
		if r.Contains(loc) {
			return r, true
		}
	}
	return Region{}, false
}
