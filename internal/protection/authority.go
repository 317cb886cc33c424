// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package protection

import (
	"context"
	"crypto/tls"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/holomush/coresystem/internal/core"
)

// Region authority defaults.
const (
	DefaultPriority    = 100
	DefaultCallTimeout = 2 * time.Second
	DefaultMinY        = -64
	DefaultMaxY        = 319
)

// DefaultFlags returns the flags applied to every created region.
func DefaultFlags() map[string]string {
	return map[string]string{"block-break": "DENY", "block-place": "DENY"}
}

// AuthorityConfig configures the external region authority client.
type AuthorityConfig struct {
	// Address is the authority's gRPC target, e.g. "localhost:9100".
	Address string
	// TLSConfig enables TLS. If nil, an insecure connection is used.
	TLSConfig *tls.Config

	KeepaliveTime    time.Duration
	KeepaliveTimeout time.Duration

	// CallTimeout bounds each RPC attempt.
	CallTimeout time.Duration
	MaxRetries  uint64
	BaseBackoff time.Duration

	Radius   int
	Priority int
	Flags    map[string]string
	// MinY and MaxY clamp the vertical extent of created regions.
	MinY int
	MaxY int
}

func (c AuthorityConfig) withDefaults() AuthorityConfig {
	if c.KeepaliveTime == 0 {
		c.KeepaliveTime = 10 * time.Second
	}
	if c.KeepaliveTimeout == 0 {
		c.KeepaliveTimeout = 5 * time.Second
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = DefaultCallTimeout
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = 50 * time.Millisecond
	}
	if c.Priority == 0 {
		c.Priority = DefaultPriority
	}
	if c.Flags == nil {
		c.Flags = DefaultFlags()
	}
	if c.MinY == 0 && c.MaxY == 0 {
		c.MinY, c.MaxY = DefaultMinY, DefaultMaxY
	}
	return c
}

// Authority delegates regions to an external spatial authority over gRPC.
// Creating a region needs the owner online; otherwise the region is kept
// locally and created on Resume.
type Authority struct {
	conn   grpc.ClientConnInterface
	closer io.Closer
	cfg    AuthorityConfig
	radius atomic.Int64

	mu       sync.Mutex
	deferred map[core.ActorID]core.Location
}

// DialAuthority connects to the authority at cfg.Address.
func DialAuthority(cfg AuthorityConfig) (*Authority, error) {
	if cfg.Address == "" {
		return nil, oops.Code(core.CodeProtectionFailed).Errorf("authority address is required")
	}
	cfg = cfg.withDefaults()

	opts := []grpc.DialOption{
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                cfg.KeepaliveTime,
			Timeout:             cfg.KeepaliveTimeout,
			PermitWithoutStream: true,
		}),
	}
	if cfg.TLSConfig != nil {
		opts = append(opts, grpc.WithTransportCredentials(credentials.NewTLS(cfg.TLSConfig)))
	} else {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}

	conn, err := grpc.NewClient(cfg.Address, opts...)
	if err != nil {
		return nil, oops.Code(core.CodeProtectionFailed).With("address", cfg.Address).Wrapf(err, "connect to region authority")
	}
	a := NewAuthority(conn, cfg)
	a.closer = conn
	return a, nil
}

// NewAuthority wraps an existing connection.
func NewAuthority(conn grpc.ClientConnInterface, cfg AuthorityConfig) *Authority {
	cfg = cfg.withDefaults()
	a := &Authority{
		conn:     conn,
		cfg:      cfg,
		deferred: make(map[core.ActorID]core.Location),
	}
	a.SetRadius(cfg.Radius)
	return a
}

// Close closes a connection opened by DialAuthority.
func (a *Authority) Close() error {
	if a.closer == nil {
		return nil
	}
	if err := a.closer.Close(); err != nil {
		return oops.Code(core.CodeProtectionFailed).Wrapf(err, "close region authority connection")
	}
	return nil
}

// SetRadius implements Protection.
func (a *Authority) SetRadius(radius int) {
	a.radius.Store(int64(max(0, radius)))
}

// IsProtected implements Protection. Any authority region counts.
func (a *Authority) IsProtected(ctx context.Context, loc core.Location) (bool, error) {
	regions, err := a.query(ctx, loc)
	if err != nil {
		return false, err
	}
	return len(regions) > 0, nil
}

// CanModify implements Protection: actor must own every region at loc.
func (a *Authority) CanModify(ctx context.Context, actor core.ActorID, loc core.Location) (bool, error) {
	regions, err := a.query(ctx, loc)
	if err != nil {
		return false, err
	}
	for _, r := range regions {
		if !r.ownedBy(actor) {
			return false, nil
		}
	}
	return true, nil
}

// RegionAt implements Protection. Only regions created by this system are
// returned.
func (a *Authority) RegionAt(ctx context.Context, loc core.Location) (Region, bool, error) {
	regions, err := a.query(ctx, loc)
	if err != nil {
		return Region{}, false, err
	}
	for _, r := range regions {
		owner, ok := OwnerFromRegionID(r.id)
		if !ok {
			continue
		}
		return Region{OwnerID: owner, World: loc.World, Center: r.center(loc.World), Radius: r.radius()}, true, nil
	}
	return Region{}, false, nil
}

// Register implements Protection.
func (a *Authority) Register(ctx context.Context, owner core.ActorID, loc core.Location, online bool) error {
	if !online {
		a.mu.Lock()
		a.deferred[owner] = loc
		a.mu.Unlock()
		slog.InfoContext(ctx, "region creation deferred until owner is online", "actor_id", owner.String(), "world", loc.World)
		return nil
	}
	a.mu.Lock()
	delete(a.deferred, owner)
	a.mu.Unlock()
	return a.create(ctx, NewRegion(owner, loc, int(a.radius.Load())))
}

// Unregister implements Protection.
func (a *Authority) Unregister(ctx context.Context, owner core.ActorID, world string) error {
	a.mu.Lock()
	delete(a.deferred, owner)
	a.mu.Unlock()
	_, err := a.remove(ctx, RegionID(owner), world)
	return err
}

// Resume implements Protection.
func (a *Authority) Resume(ctx context.Context, owner core.ActorID) error {
	a.mu.Lock()
	loc, ok := a.deferred[owner]
	delete(a.deferred, owner)
	a.mu.Unlock()
	if !ok {
		return nil
	}
	if err := a.create(ctx, NewRegion(owner, loc, int(a.radius.Load()))); err != nil {
		a.mu.Lock()
		if _, replaced := a.deferred[owner]; !replaced {
			a.deferred[owner] = loc
		}
		a.mu.Unlock()
		return err
	}
	return nil
}

// Deferred reports whether owner has a region waiting for Resume.
func (a *Authority) Deferred(owner core.ActorID) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.deferred[owner]
	return ok
}

func (a *Authority) create(ctx context.Context, r Region) error {
	if _, err := a.remove(ctx, r.ID(), r.World); err != nil {
		return err
	}
	minX, minY, minZ := r.Min()
	maxX, maxY, maxZ := r.Max()
	flags := make(map[string]any, len(a.cfg.Flags))
	for k, v := range a.cfg.Flags {
		flags[k] = v
	}
	req := map[string]any{
		"id":       r.ID(),
		"world":    r.World,
		"min":      vec(minX, max(a.cfg.MinY, minY), minZ),
		"max":      vec(maxX, min(a.cfg.MaxY, maxY), maxZ),
		"owners":   []any{r.OwnerID.String()},
		"priority": a.cfg.Priority,
		"flags":    flags,
	}
	if _, err := a.call(ctx, methodCreateRegion, req); err != nil {
		return err
	}
	slog.InfoContext(ctx, "created authority region", "region_id", r.ID(), "actor_id", r.OwnerID.String())
	return nil
}

func (a *Authority) remove(ctx context.Context, id, world string) (bool, error) {
	resp, err := a.call(ctx, methodRemoveRegion, map[string]any{"id": id, "world": world})
	if err != nil {
		return false, err
	}
	return resp.GetFields()["removed"].GetBoolValue(), nil
}

func (a *Authority) query(ctx context.Context, loc core.Location) ([]remoteRegion, error) {
	resp, err := a.call(ctx, methodQueryRegions, map[string]any{
		"world": loc.World,
		"x":     loc.BlockX(),
		"y":     loc.BlockY(),
		"z":     loc.BlockZ(),
	})
	if err != nil {
		return nil, err
	}
	list := resp.GetFields()["regions"].GetListValue().GetValues()
	out := make([]remoteRegion, 0, len(list))
	for _, v := range list {
		out = append(out, parseRemoteRegion(v.GetStructValue()))
	}
	return out, nil
}

// call invokes method, retrying transport failures with backoff.
func (a *Authority) call(ctx context.Context, method string, req map[string]any) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, oops.Code(core.CodeProtectionFailed).With("method", method).Wrap(err)
	}

	b := retry.NewExponential(a.cfg.BaseBackoff)
	b = retry.WithMaxRetries(a.cfg.MaxRetries, b)

	var out *structpb.Struct
	err = retry.Do(ctx, b, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, a.cfg.CallTimeout)
		defer cancel()
		resp := new(structpb.Struct)
		if err := a.conn.Invoke(callCtx, authorityMethod(method), in, resp); err != nil {
			if retryableStatus(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		out = resp
		return nil
	})
	if err != nil {
		return nil, oops.Code(core.CodeProtectionFailed).
			With("method", method).
			With("grpc_code", status.Code(err).String()).
			Wrap(err)
	}
	return out, nil
}

func retryableStatus(err error) bool {
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded:
		return true
	default:
		return false
	}
}

func vec(x, y, z int) map[string]any {
	return map[string]any{"x": x, "y": y, "z": z}
}

type remoteRegion struct {
	id       string
	owners   []string
	min, max [3]int
}

func parseRemoteRegion(s *structpb.Struct) remoteRegion {
	f := s.GetFields()
	r := remoteRegion{id: f["id"].GetStringValue()}
	for _, o := range f["owners"].GetListValue().GetValues() {
		r.owners = append(r.owners, o.GetStringValue())
	}
	r.min = parseVec(f["min"].GetStructValue())
	r.max = parseVec(f["max"].GetStructValue())
	return r
}

func parseVec(s *structpb.Struct) [3]int {
	f := s.GetFields()
	return [3]int{int(f["x"].GetNumberValue()), int(f["y"].GetNumberValue()), int(f["z"].GetNumberValue())}
}

func (r remoteRegion) ownedBy(actor core.ActorID) bool {
	id := actor.String()
	for _, o := range r.owners {
		if o == id {
			return true
		}
	}
	return false
}

func (r remoteRegion) center(world string) core.Location {
	return core.Location{
		World: world,
		X:     float64((r.min[0] + r.max[0]) / 2),
		Y:     float64((r.min[1] + r.max[1]) / 2),
		Z:     float64((r.min[2] + r.max[2]) / 2),
	}
}

func (r remoteRegion) radius() int {
	return (r.max[0] - r.min[0]) / 2
}
