// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package grpc

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"time"

	"github.com/samber/oops"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/holomush/coresystem/internal/core"
	"github.com/holomush/coresystem/internal/world"
)

// CodeCallFailed marks transport failures reaching the engine.
const CodeCallFailed = "CONTROL_CALL_FAILED"

// Client calls ServiceName on a running engine.
type Client struct {
	conn grpc.ClientConnInterface
	cc   *grpc.ClientConn
}

// ClientConfig holds configuration for the gRPC client.
type ClientConfig struct {
	// Address is the engine's control address (e.g., "localhost:7400").
	Address string

	// TLSConfig enables TLS. If nil, an insecure connection is used.
	TLSConfig *tls.Config

	// KeepaliveTime is how often to ping the server (default: 10s)
	KeepaliveTime time.Duration

	// KeepaliveTimeout is how long to wait for ping response (default: 5s)
	KeepaliveTimeout time.Duration
}

// NewClient connects to the engine at cfg.Address.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.Address == "" {
		return nil, oops.Code(CodeCallFailed).Errorf("address is required")
	}
	if cfg.KeepaliveTime == 0 {
		cfg.KeepaliveTime = 10 * time.Second
	}
	if cfg.KeepaliveTimeout == 0 {
		cfg.KeepaliveTimeout = 5 * time.Second
	}

	creds := insecure.NewCredentials()
	if cfg.TLSConfig != nil {
		creds = credentials.NewTLS(cfg.TLSConfig)
	}
	cc, err := grpc.NewClient(cfg.Address,
		grpc.WithTransportCredentials(creds),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                cfg.KeepaliveTime,
			Timeout:             cfg.KeepaliveTimeout,
			PermitWithoutStream: true,
		}),
	)
	if err != nil {
		return nil, oops.Code(CodeCallFailed).With("address", cfg.Address).Wrapf(err, "connect to engine")
	}
	return &Client{conn: cc, cc: cc}, nil
}

// NewClientConn wraps an existing connection.
func NewClientConn(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

// Close closes a connection opened by NewClient.
func (c *Client) Close() error {
	if c.cc == nil {
		return nil
	}
	if err := c.cc.Close(); err != nil {
		return oops.Code(CodeCallFailed).Wrapf(err, "close connection")
	}
	return nil
}

func (c *Client) call(ctx context.Context, method string, req map[string]any) (map[string]*structpb.Value, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, oops.Code(CodeInvalidRequest).With("method", method).Wrap(err)
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, fullMethod(method), in, out); err != nil {
		return nil, world.FromStatus(err, method, CodeCallFailed)
	}
	return out.GetFields(), nil
}

// Join marks actor present.
func (c *Client) Join(ctx context.Context, actor core.ActorID, name string) error {
	_, err := c.call(ctx, MethodJoin, map[string]any{"actor": actor.String(), "name": name})
	return err
}

// Leave saves and evicts actor.
func (c *Client) Leave(ctx context.Context, actor core.ActorID) error {
	_, err := c.call(ctx, MethodLeave, map[string]any{"actor": actor.String()})
	return err
}

// ExecuteResult is the outcome of a command line.
type ExecuteResult struct {
	Success bool
	Output  string
	// Code and Message are set when the command failed.
	Code    string
	Message string
}

// Execute runs input as actor. loc is where the actor is looking, if anywhere.
func (c *Client) Execute(ctx context.Context, actor core.ActorID, input string, loc *core.Location) (ExecuteResult, error) {
	req := map[string]any{"actor": actor.String(), "input": input}
	if loc != nil {
		req["location"] = world.LocationValue(*loc)
	}
	f, err := c.call(ctx, MethodExecute, req)
	if err != nil {
		return ExecuteResult{}, err
	}
	return ExecuteResult{
		Success: f["success"].GetBoolValue(),
		Output:  f["output"].GetStringValue(),
		Code:    f["code"].GetStringValue(),
		Message: f["error"].GetStringValue(),
	}, nil
}

// DamageReport describes a hit on a Core block.
type DamageReport struct {
	Owner       core.ActorID
	Amount      float64
	Cause       string
	DamagerType string
	Attacker    *core.ActorID
	Living      bool
}

// DamageOutcome is the engine's verdict on a DamageReport.
type DamageOutcome struct {
	Applied   bool
	Destroyed bool
	Health    float64
}

// ReportDamage forwards a hit to the engine.
func (c *Client) ReportDamage(ctx context.Context, r DamageReport) (DamageOutcome, error) {
	req := map[string]any{
		"owner":        r.Owner.String(),
		"amount":       r.Amount,
		"cause":        r.Cause,
		"damager_type": r.DamagerType,
		"living":       r.Living,
	}
	if r.Attacker != nil {
		req["attacker"] = r.Attacker.String()
	}
	f, err := c.call(ctx, MethodReportDamage, req)
	if err != nil {
		return DamageOutcome{}, err
	}
	return DamageOutcome{
		Applied:   f["applied"].GetBoolValue(),
		Destroyed: f["destroyed"].GetBoolValue(),
		Health:    f["health"].GetNumberValue(),
	}, nil
}

// RewardMobKill grants killer the XP for a creature kill and returns the
// XP granted and the new level.
func (c *Client) RewardMobKill(ctx context.Context, killer core.ActorID, creature string) (float64, int, error) {
	f, err := c.call(ctx, MethodRewardKill, map[string]any{"killer": killer.String(), "creature": creature})
	if err != nil {
		return 0, 0, err
	}
	return f["granted"].GetNumberValue(), int(f["new_level"].GetNumberValue()), nil
}

// RewardPlayerKill grants killer the XP for killing victim.
func (c *Client) RewardPlayerKill(ctx context.Context, killer, victim core.ActorID) (float64, int, error) {
	f, err := c.call(ctx, MethodRewardKill, map[string]any{"killer": killer.String(), "victim": victim.String()})
	if err != nil {
		return 0, 0, err
	}
	return f["granted"].GetNumberValue(), int(f["new_level"].GetNumberValue()), nil
}

// Status returns the Struct-encoded status of actor. viewer, when set, is
// the actor asking.
func (c *Client) Status(ctx context.Context, actor core.ActorID, viewer *core.ActorID) (map[string]any, error) {
	req := map[string]any{"actor": actor.String()}
	if viewer != nil {
		req["viewer"] = viewer.String()
	}
	f, err := c.call(ctx, MethodStatus, req)
	if err != nil {
		return nil, err
	}
	return (&structpb.Struct{Fields: f}).AsMap(), nil
}

var subscribeDesc = &grpc.StreamDesc{StreamName: MethodSubscribe, ServerStreams: true}

// Subscribe streams events on streams, plus actor's private stream when
// actor is set, calling fn for each until ctx ends or fn returns an error.
func (c *Client) Subscribe(ctx context.Context, streams []string, actor *core.ActorID, fn func(map[string]any) error) error {
	names := make([]any, 0, len(streams))
	for _, s := range streams {
		names = append(names, s)
	}
	req := map[string]any{"streams": names}
	if actor != nil {
		req["actor"] = actor.String()
	}
	in, err := structpb.NewStruct(req)
	if err != nil {
		return oops.Code(CodeInvalidRequest).With("method", MethodSubscribe).Wrap(err)
	}

	stream, err := c.conn.NewStream(ctx, subscribeDesc, fullMethod(MethodSubscribe))
	if err != nil {
		return world.FromStatus(err, MethodSubscribe, CodeCallFailed)
	}
	if err := stream.SendMsg(in); err != nil {
		return world.FromStatus(err, MethodSubscribe, CodeCallFailed)
	}
	if err := stream.CloseSend(); err != nil {
		return world.FromStatus(err, MethodSubscribe, CodeCallFailed)
	}
	for {
		msg := new(structpb.Struct)
		if err := stream.RecvMsg(msg); err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return world.FromStatus(err, MethodSubscribe, CodeCallFailed)
		}
		if err := fn(msg.AsMap()); err != nil {
			return err
		}
	}
}
