// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package protection shields the area around a placed Core. Two backends
// implement Protection: the built-in cuboid regions and an external region
// authority reached over gRPC. One is chosen at startup.
package protection

import (
	"context"
	"strings"

	"github.com/holomush/coresystem/internal/core"
)

// RegionPrefix prefixes the id of every region this system owns.
const RegionPrefix = "coresystem_core_"

// Backend names.
const (
	BackendBuiltin   = "builtin"
	BackendAuthority = "authority"
)

// Region is a cube of blocks centred on a Core.
type Region struct {
	OwnerID core.ActorID
	World   string
	Center  core.Location
	Radius  int
}

// NewRegion centres a region of radius on the block containing loc.
func NewRegion(owner core.ActorID, loc core.Location, radius int) Region {
	return Region{OwnerID: owner, World: loc.World, Center: loc.Block(), Radius: max(0, radius)}
}

// ID returns the external region id.
func (r Region) ID() string {
	return RegionID(r.OwnerID)
}

// Min returns the lowest corner block.
func (r Region) Min() (x, y, z int) {
	return r.Center.BlockX() - r.Radius, r.Center.BlockY() - r.Radius, r.Center.BlockZ() - r.Radius
}

// Max returns the highest corner block.
func (r Region) Max() (x, y, z int) {
	return r.Center.BlockX() + r.Radius, r.Center.BlockY() + r.Radius, r.Center.BlockZ() + r.Radius
}

// Contains reports whether loc's block lies inside the region.
func (r Region) Contains(loc core.Location) bool {
	if loc.World != r.World {
		return false
	}
	minX, minY, minZ := r.Min()
	maxX, maxY, maxZ := r.Max()
	x, y, z := loc.BlockX(), loc.BlockY(), loc.BlockZ()
	return x >= minX && x <= maxX && y >= minY && y <= maxY && z >= minZ && z <= maxZ
}

// IsCoreBlock reports whether loc is the Core block itself.
func (r Region) IsCoreBlock(loc core.Location) bool {
	return r.Center.SameBlock(loc)
}

// RegionID returns the external id of owner's region.
func RegionID(owner core.ActorID) string {
	return RegionPrefix + strings.ToLower(owner.String())
}

// OwnerFromRegionID parses the owner out of a region id made by RegionID.
func OwnerFromRegionID(id string) (core.ActorID, bool) {
	rest, ok := strings.CutPrefix(id, RegionPrefix)
	if !ok {
		return core.ActorID{}, false
	}
	owner, err := core.ParseActorID(strings.ToUpper(rest))
	if err != nil {
		return core.ActorID{}, false
	}
	return owner, true
}

// Protection is the region backend used by the lifecycle engine.
type Protection interface {
	// IsProtected reports whether any region covers loc.
	IsProtected(ctx context.Context, loc core.Location) (bool, error)
	// CanModify reports whether actor may change blocks at loc.
	CanModify(ctx context.Context, actor core.ActorID, loc core.Location) (bool, error)
	// Register creates owner's region around loc, replacing any previous
	// one. When the backend needs the owner present and online is false,
	// creation is deferred until Resume.
	Register(ctx context.Context, owner core.ActorID, loc core.Location, online bool) error
	// Unregister removes owner's region in world. Missing regions are fine.
	Unregister(ctx context.Context, owner core.ActorID, world string) error
	// RegionAt returns the Core region covering loc.
	RegionAt(ctx context.Context, loc core.Location) (Region, bool, error)
	// Resume creates a region deferred for owner.
	Resume(ctx context.Context, owner core.ActorID) error
	// SetRadius changes the radius of later registrations and, for
	// backends that own their regions, of existing ones.
	SetRadius(radius int)
}

// Restorer is implemented by backends that hold regions only in process
// memory. Restore recreates owner's region from a stored active record and
// reports whether one was added.
type Restorer interface {
	Restore(owner core.ActorID, loc core.Location) bool
}
