// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package grpc_test

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"github.com/holomush/coresystem/internal/access"
	"github.com/holomush/coresystem/internal/broadcast"
	"github.com/holomush/coresystem/internal/command"
	"github.com/holomush/coresystem/internal/command/handlers"
	"github.com/holomush/coresystem/internal/core"
	coregrpc "github.com/holomush/coresystem/internal/grpc"
	"github.com/holomush/coresystem/internal/lifecycle/lifecycletest"
	"github.com/holomush/coresystem/pkg/errutil"
)

type fixture struct {
	env    *lifecycletest.Env
	access *access.Static
	hub    *broadcast.Hub
	client *coregrpc.Client
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	env := lifecycletest.New(t, nil)
	reg := command.NewRegistry()
	handlers.RegisterAll(reg)
	ac := access.NewStatic(access.WithDefaultRole(access.RolePlayer))
	d, err := command.NewDispatcher(reg, ac)
	require.NoError(t, err)
	hub := broadcast.NewHub()

	srv, err := coregrpc.NewCoreServer(coregrpc.Config{
		Engine:     env.Engine,
		Skills:     env.Skills,
		Dispatcher: d,
		Access:     ac,
		Hub:        hub,
		HostName:   "lobby",
	})
	require.NoError(t, err)

	lis := bufconn.Listen(1 << 20)
	gs := coregrpc.NewServer(nil)
	coregrpc.Register(gs, srv)
	go func() { _ = gs.Serve(lis) }()
	t.Cleanup(gs.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return &fixture{env: env, access: ac, hub: hub, client: coregrpc.NewClientConn(conn)}
}

func TestNewCoreServer_RequiresCollaborators(t *testing.T) {
	_, err := coregrpc.NewCoreServer(coregrpc.Config{})
	errutil.AssertErrorCode(t, err, coregrpc.CodeInvalidRequest)
}

func TestNewClient_RequiresAddress(t *testing.T) {
	_, err := coregrpc.NewClient(coregrpc.ClientConfig{})
	errutil.AssertErrorCode(t, err, coregrpc.CodeCallFailed)
}

func TestJoinExecuteLeave(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	actor := core.NewActorID()

	require.NoError(t, f.client.Join(ctx, actor, "Alice"))
	assert.True(t, f.env.Engine.Roster().Online(actor))

	res, err := f.client.Execute(ctx, actor, "claim", nil)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Contains(t, res.Output, "You received a Core seed")

	f.env.Host.Hold(actor, f.env.Engine.Catalog().Tunables.Seed.Material)
	loc := lifecycletest.Origin
	res, err = f.client.Execute(ctx, actor, "place", &loc)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Contains(t, res.Output, "100, 64, -21")

	res, err = f.client.Execute(ctx, actor, "rebirth", nil)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, core.CodeNotMaxLevel, res.Code)
	assert.Equal(t, "Your Core must reach max level before rebirth.", res.Message)

	res, err = f.client.Execute(ctx, actor, "fly", nil)
	require.NoError(t, err)
	assert.Equal(t, command.CodeUnknownCommand, res.Code)

	require.NoError(t, f.client.Leave(ctx, actor))
	assert.False(t, f.env.Engine.Roster().Online(actor))
}

func TestJoin_InvalidActor(t *testing.T) {
	f := newFixture(t)
	err := f.client.Join(context.Background(), core.ActorID{}, "Nobody")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, coregrpc.CodeCallFailed)
}

func TestReportDamage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner := f.env.Join(t, "Bob", lifecycletest.Origin)
	attacker := core.NewActorID()

	out, err := f.client.ReportDamage(ctx, coregrpc.DamageReport{
		Owner: owner, Amount: 10, Cause: "ENTITY_ATTACK", DamagerType: "PLAYER", Attacker: &attacker, Living: true,
	})
	require.NoError(t, err)
	assert.False(t, out.Applied, "Cores are not vulnerable by default")
	assert.Equal(t, 100.0, f.env.Record(t, owner).Health)

	_, err = f.client.ReportDamage(ctx, coregrpc.DamageReport{Owner: owner, Amount: 10, Attacker: &owner})
	errutil.AssertErrorCode(t, err, core.CodeSelfDamage)
}

func TestRewardKill(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	killer := f.env.Join(t, "Cara", lifecycletest.Origin)
	victim := f.env.Join(t, "Dan", core.Location{World: "world", X: 400, Y: 64, Z: 400})

	granted, level, err := f.client.RewardMobKill(ctx, killer, "ZOMBIE")
	require.NoError(t, err)
	assert.Equal(t, 5.0, granted)
	assert.Equal(t, 1, level)

	granted, level, err = f.client.RewardPlayerKill(ctx, killer, victim)
	require.NoError(t, err)
	assert.Equal(t, 50.0, granted)
	assert.Equal(t, 1, level)

	granted, level, err = f.client.RewardPlayerKill(ctx, killer, victim)
	require.NoError(t, err)
	assert.Equal(t, 50.0, granted)
	assert.Equal(t, 2, level)
}

func TestStatus_AccessChecks(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner := f.env.Join(t, "Eve", lifecycletest.Origin)
	other := core.NewActorID()

	st, err := f.client.Status(ctx, owner, &owner)
	require.NoError(t, err)
	assert.Equal(t, "active", st["state"])
	assert.Equal(t, 1.0, st["level"])
	assert.Equal(t, "world", st["location"].(map[string]any)["world"])

	_, err = f.client.Status(ctx, owner, &other)
	require.Error(t, err)

	_, err = f.client.Status(ctx, owner, nil)
	require.Error(t, err, "an unassigned host may not read Cores")

	require.NoError(t, f.access.AssignRole(access.HostSubject("lobby"), access.RoleModerator))
	_, err = f.client.Status(ctx, owner, nil)
	require.NoError(t, err)
}

func TestSubscribe_StreamsEvents(t *testing.T) {
	f := newFixture(t)
	actor := core.NewActorID()
	ctx, cancel := context.WithCancel(context.Background())

	var (
		mu     sync.Mutex
		events []map[string]any
		wg     sync.WaitGroup
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = f.client.Subscribe(ctx, []string{core.StreamAnnouncements}, &actor, func(ev map[string]any) error {
			mu.Lock()
			defer mu.Unlock()
			events = append(events, ev)
			return nil
		})
	}()

	require.Eventually(t, func() bool {
		return f.hub.Subscribers(core.ActorStream(actor)) == 1
	}, time.Second, 10*time.Millisecond)

	announce, err := core.NewEvent(core.StreamAnnouncements, core.EventTypeDestroyed, core.SystemActor, actor, nil)
	require.NoError(t, err)
	private, err := core.NewEvent(core.ActorStream(actor), core.EventTypeLevelUp, core.SystemActor, actor, core.LevelUpPayload{OldLevel: 1, NewLevel: 2})
	require.NoError(t, err)
	other, err := core.NewEvent(core.ActorStream(core.NewActorID()), core.EventTypeLevelUp, core.SystemActor, actor, nil)
	require.NoError(t, err)
	f.hub.Broadcast(announce)
	f.hub.Broadcast(other)
	f.hub.Broadcast(private)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(events) == 2
	}, time.Second, 10*time.Millisecond)

	cancel()
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	types := []any{events[0]["type"], events[1]["type"]}
	assert.ElementsMatch(t, []any{string(core.EventTypeDestroyed), string(core.EventTypeLevelUp)}, types)
}
