// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package protection_test

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/holomush/coresystem/internal/core"
	"github.com/holomush/coresystem/internal/protection"
	"github.com/holomush/coresystem/pkg/errutil"
)

// fakeAuthority keeps regions in memory and can fail the next n calls.
type fakeAuthority struct {
	mu       sync.Mutex
	regions  map[string]*structpb.Struct
	calls    []string
	failNext int
	failCode codes.Code
}

func newFakeAuthority() *fakeAuthority {
	return &fakeAuthority{regions: make(map[string]*structpb.Struct)}
}

func (f *fakeAuthority) record(method string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, method)
	if f.failNext > 0 {
		f.failNext--
		return status.Error(f.failCode, "authority unavailable")
	}
	return nil
}

func (f *fakeAuthority) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeAuthority) CreateRegion(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := f.record("create"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	id := in.GetFields()["id"].GetStringValue()
	if _, exists := f.regions[id]; exists {
		return nil, status.Error(codes.AlreadyExists, "region exists")
	}
	f.regions[id] = in
	return &structpb.Struct{}, nil
}

func (f *fakeAuthority) RemoveRegion(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := f.record("remove"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	id := in.GetFields()["id"].GetStringValue()
	_, ok := f.regions[id]
	delete(f.regions, id)
	return structpb.NewStruct(map[string]any{"removed": ok})
}

func (f *fakeAuthority) QueryRegions(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := f.record("query"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	q := in.GetFields()
	x, y, z := q["x"].GetNumberValue(), q["y"].GetNumberValue(), q["z"].GetNumberValue()
	var hits []any
	for _, r := range f.regions {
		fields := r.GetFields()
		if fields["world"].GetStringValue() != q["world"].GetStringValue() {
			continue
		}
		lo, hi := fields["min"].GetStructValue().GetFields(), fields["max"].GetStructValue().GetFields()
		if x < lo["x"].GetNumberValue() || x > hi["x"].GetNumberValue() ||
			y < lo["y"].GetNumberValue() || y > hi["y"].GetNumberValue() ||
			z < lo["z"].GetNumberValue() || z > hi["z"].GetNumberValue() {
			continue
		}
		hits = append(hits, r.AsMap())
	}
	return structpb.NewStruct(map[string]any{"regions": hits})
}

func (f *fakeAuthority) Region(id string) (*structpb.Struct, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.regions[id]
	return r, ok
}

func dialFake(t *testing.T, fake *fakeAuthority, cfg protection.AuthorityConfig) *protection.Authority {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	protection.RegisterAuthorityServer(srv, fake)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	if cfg.BaseBackoff == 0 {
		cfg.BaseBackoff = time.Millisecond
	}
	return protection.NewAuthority(conn, cfg)
}

func TestAuthority_RegisterCreatesRegion(t *testing.T) {
	ctx := context.Background()
	fake := newFakeAuthority()
	a := dialFake(t, fake, protection.AuthorityConfig{Radius: 4})
	owner, stranger := core.NewActorID(), core.NewActorID()
	loc := core.Location{World: "world", X: 10, Y: 64, Z: 10}

	require.NoError(t, a.Register(ctx, owner, loc, true))

	r, ok := fake.Region(protection.RegionID(owner))
	require.True(t, ok)
	m := r.AsMap()
	assert.Equal(t, float64(protection.DefaultPriority), m["priority"])
	assert.Equal(t, map[string]any{"block-break": "DENY", "block-place": "DENY"}, m["flags"])
	assert.Equal(t, []any{owner.String()}, m["owners"])
	assert.Equal(t, map[string]any{"x": 6.0, "y": 60.0, "z": 6.0}, m["min"])

	inside := core.Location{World: "world", X: 12, Y: 65, Z: 9}
	protected, err := a.IsProtected(ctx, inside)
	require.NoError(t, err)
	assert.True(t, protected)

	ok, err = a.CanModify(ctx, owner, inside)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = a.CanModify(ctx, stranger, inside)
	require.NoError(t, err)
	assert.False(t, ok)

	region, found, err := a.RegionAt(ctx, inside)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, owner, region.OwnerID)
	assert.Equal(t, 4, region.Radius)
}

func TestAuthority_RegisterRemovesExistingFirst(t *testing.T) {
	ctx := context.Background()
	fake := newFakeAuthority()
	a := dialFake(t, fake, protection.AuthorityConfig{Radius: 2})
	owner := core.NewActorID()

	require.NoError(t, a.Register(ctx, owner, core.Location{World: "world"}, true))
	require.NoError(t, a.Register(ctx, owner, core.Location{World: "world", X: 50}, true))

	assert.Equal(t, []string{"remove", "create", "remove", "create"}, fake.Calls())
	r, ok := fake.Region(protection.RegionID(owner))
	require.True(t, ok)
	assert.Equal(t, 48.0, r.AsMap()["min"].(map[string]any)["x"])
}

func TestAuthority_ClampsVerticalExtent(t *testing.T) {
	fake := newFakeAuthority()
	a := dialFake(t, fake, protection.AuthorityConfig{Radius: 10})
	owner := core.NewActorID()

	require.NoError(t, a.Register(context.Background(), owner, core.Location{World: "world", Y: 315}, true))
	r, _ := fake.Region(protection.RegionID(owner))
	assert.Equal(t, float64(protection.DefaultMaxY), r.AsMap()["max"].(map[string]any)["y"])
}

func TestAuthority_OfflineOwnerIsDeferredUntilResume(t *testing.T) {
	ctx := context.Background()
	fake := newFakeAuthority()
	a := dialFake(t, fake, protection.AuthorityConfig{Radius: 3})
	owner := core.NewActorID()

	require.NoError(t, a.Register(ctx, owner, core.Location{World: "world"}, false))
	assert.True(t, a.Deferred(owner))
	assert.Empty(t, fake.Calls())

	require.NoError(t, a.Resume(ctx, owner))
	assert.False(t, a.Deferred(owner))
	_, ok := fake.Region(protection.RegionID(owner))
	assert.True(t, ok)

	require.NoError(t, a.Resume(ctx, owner), "nothing left to resume")
}

func TestAuthority_UnregisterDropsDeferred(t *testing.T) {
	ctx := context.Background()
	fake := newFakeAuthority()
	a := dialFake(t, fake, protection.AuthorityConfig{})
	owner := core.NewActorID()

	require.NoError(t, a.Register(ctx, owner, core.Location{World: "world"}, false))
	require.NoError(t, a.Unregister(ctx, owner, "world"))
	assert.False(t, a.Deferred(owner))
	assert.Equal(t, []string{"remove"}, fake.Calls())
}

func TestAuthority_RetriesUnavailable(t *testing.T) {
	fake := newFakeAuthority()
	fake.failNext, fake.failCode = 2, codes.Unavailable
	a := dialFake(t, fake, protection.AuthorityConfig{MaxRetries: 3})

	protected, err := a.IsProtected(context.Background(), core.Location{World: "world"})
	require.NoError(t, err)
	assert.False(t, protected)
	assert.Len(t, fake.Calls(), 3)
}

func TestAuthority_PermanentFailureIsBackendError(t *testing.T) {
	fake := newFakeAuthority()
	fake.failNext, fake.failCode = 5, codes.PermissionDenied
	a := dialFake(t, fake, protection.AuthorityConfig{MaxRetries: 3})

	_, err := a.CanModify(context.Background(), core.NewActorID(), core.Location{World: "world"})
	errutil.AssertErrorCode(t, err, core.CodeProtectionFailed)
	assert.Equal(t, core.KindExternalBackend, core.KindOf(err))
	assert.Len(t, fake.Calls(), 1, "permission errors are not retried")
}

func TestAuthority_ResumeFailureKeepsDeferred(t *testing.T) {
	ctx := context.Background()
	fake := newFakeAuthority()
	a := dialFake(t, fake, protection.AuthorityConfig{})
	owner := core.NewActorID()

	require.NoError(t, a.Register(ctx, owner, core.Location{World: "world"}, false))
	fake.mu.Lock()
	fake.failNext, fake.failCode = 1, codes.Internal
	fake.mu.Unlock()

	require.Error(t, a.Resume(ctx, owner))
	assert.True(t, a.Deferred(owner))
}

func TestDialAuthority_RequiresAddress(t *testing.T) {
	_, err := protection.DialAuthority(protection.AuthorityConfig{})
	errutil.AssertErrorCode(t, err, core.CodeProtectionFailed)
}
