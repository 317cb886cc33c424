// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package world

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/samber/oops"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/protoadapt"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/holomush/coresystem/internal/core"
)

// HostServiceName is the gRPC service a game host exposes to the engine.
const HostServiceName = "coresystem.host.v1.WorldHost"

// Method names of HostServiceName. Every message is a google.protobuf.Struct.
const (
	MethodHeld         = "Held"
	MethodHasItems     = "HasItems"
	MethodConsumeItems = "ConsumeItems"
	MethodGiveItems    = "GiveItems"
	MethodBalance      = "Balance"
	MethodWithdraw     = "Withdraw"
	MethodObstructed   = "Obstructed"
	MethodDisplayName  = "DisplayName"
)

func fullMethod(name string) string {
	return "/" + HostServiceName + "/" + name
}

// HostConfig configures HostClient.
type HostConfig struct {
	Address     string
	TLSConfig   *tls.Config
	CallTimeout time.Duration
}

// HostClient implements Host by calling a game host over gRPC.
type HostClient struct {
	conn    grpc.ClientConnInterface
	cc      *grpc.ClientConn
	timeout time.Duration
}

var _ Host = (*HostClient)(nil)

// DialHost connects to the game host at cfg.Address.
func DialHost(cfg HostConfig) (*HostClient, error) {
	if cfg.Address == "" {
		return nil, oops.Code(core.CodeWorldFailed).Errorf("host address is required")
	}
	creds := insecure.NewCredentials()
	if cfg.TLSConfig != nil {
		creds = credentials.NewTLS(cfg.TLSConfig)
	}
	cc, err := grpc.NewClient(cfg.Address,
		grpc.WithTransportCredentials(creds),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{Time: 10 * time.Second, Timeout: 5 * time.Second, PermitWithoutStream: true}),
	)
	if err != nil {
		return nil, oops.Code(core.CodeWorldFailed).With("address", cfg.Address).Wrapf(err, "connect to game host")
	}
	c := NewHostClient(cc, cfg.CallTimeout)
	c.cc = cc
	return c, nil
}

// NewHostClient wraps an existing connection.
func NewHostClient(conn grpc.ClientConnInterface, timeout time.Duration) *HostClient {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &HostClient{conn: conn, timeout: timeout}
}

// Close closes a connection opened by DialHost.
func (c *HostClient) Close() error {
	if c.cc == nil {
		return nil
	}
	return c.cc.Close()
}

func (c *HostClient) call(ctx context.Context, method, failCode string, req map[string]any) (map[string]*structpb.Value, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, oops.Code(failCode).With("method", method).Wrap(err)
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, fullMethod(method), in, out); err != nil {
		return nil, FromStatus(err, method, failCode)
	}
	return out.GetFields(), nil
}

// FromStatus restores an error code sent by the peer, or wraps err as a
// backend failure.
func FromStatus(err error, method, failCode string) error {
	st := status.Convert(err)
	for _, d := range st.Details() {
		if s, ok := d.(*structpb.Struct); ok {
			if code := s.GetFields()["code"].GetStringValue(); code != "" {
				return oops.Code(code).With("method", method).Errorf("%s", st.Message())
			}
		}
	}
	return oops.Code(failCode).
		With("method", method).
		With("grpc_code", st.Code().String()).
		Wrap(err)
}

// Held implements Inventory.
func (c *HostClient) Held(ctx context.Context, actor core.ActorID) (Item, bool, error) {
	f, err := c.call(ctx, MethodHeld, core.CodeInventoryFailed, map[string]any{"actor": actor.String()})
	if err != nil {
		return Item{}, false, err
	}
	if !f["held"].GetBoolValue() {
		return Item{}, false, nil
	}
	return Item{Material: f["material"].GetStringValue(), Amount: int(f["amount"].GetNumberValue())}, true, nil
}

// Has implements Inventory.
func (c *HostClient) Has(ctx context.Context, actor core.ActorID, material string, amount int) (bool, error) {
	f, err := c.call(ctx, MethodHasItems, core.CodeInventoryFailed, itemRequest(actor, material, amount))
	if err != nil {
		return false, err
	}
	return f["has"].GetBoolValue(), nil
}

// Consume implements Inventory.
func (c *HostClient) Consume(ctx context.Context, actor core.ActorID, material string, amount int) error {
	_, err := c.call(ctx, MethodConsumeItems, core.CodeInventoryFailed, itemRequest(actor, material, amount))
	return err
}

// Give implements Inventory.
func (c *HostClient) Give(ctx context.Context, actor core.ActorID, material string, amount int) error {
	_, err := c.call(ctx, MethodGiveItems, core.CodeInventoryFailed, itemRequest(actor, material, amount))
	return err
}

// Balance implements Economy.
func (c *HostClient) Balance(ctx context.Context, actor core.ActorID) (float64, error) {
	f, err := c.call(ctx, MethodBalance, core.CodeEconomyFailed, map[string]any{"actor": actor.String()})
	if err != nil {
		return 0, err
	}
	return f["balance"].GetNumberValue(), nil
}

// Withdraw implements Economy.
func (c *HostClient) Withdraw(ctx context.Context, actor core.ActorID, amount float64) error {
	_, err := c.call(ctx, MethodWithdraw, core.CodeEconomyFailed, map[string]any{"actor": actor.String(), "amount": amount})
	return err
}

// Obstructed implements World.
func (c *HostClient) Obstructed(ctx context.Context, loc core.Location) (bool, error) {
	f, err := c.call(ctx, MethodObstructed, core.CodeWorldFailed, map[string]any{"location": LocationValue(loc)})
	if err != nil {
		return false, err
	}
	return f["obstructed"].GetBoolValue(), nil
}

// DisplayName implements World.
func (c *HostClient) DisplayName(ctx context.Context, actor core.ActorID) (string, error) {
	f, err := c.call(ctx, MethodDisplayName, core.CodeWorldFailed, map[string]any{"actor": actor.String()})
	if err != nil {
		return "", err
	}
	return f["name"].GetStringValue(), nil
}

func itemRequest(actor core.ActorID, material string, amount int) map[string]any {
	return map[string]any{"actor": actor.String(), "material": material, "amount": amount}
}

// LocationValue encodes loc for a Struct payload.
func LocationValue(loc core.Location) map[string]any {
	return map[string]any{
		"world": loc.World,
		"x":     loc.X,
		"y":     loc.Y,
		"z":     loc.Z,
		"yaw":   float64(loc.Yaw),
		"pitch": float64(loc.Pitch),
	}
}

// ParseLocation decodes a location encoded by LocationValue.
func ParseLocation(s *structpb.Struct) core.Location {
	f := s.GetFields()
	return core.Location{
		World: f["world"].GetStringValue(),
		X:     f["x"].GetNumberValue(),
		Y:     f["y"].GetNumberValue(),
		Z:     f["z"].GetNumberValue(),
		Yaw:   float32(f["yaw"].GetNumberValue()),
		Pitch: float32(f["pitch"].GetNumberValue()),
	}
}

// RegisterHostServer serves h as HostServiceName on s. Errors carrying an
// oops code reach the client with that code.
func RegisterHostServer(s grpc.ServiceRegistrar, h Host) {
	desc := grpc.ServiceDesc{
		ServiceName: HostServiceName,
		HandlerType: (*Host)(nil),
		Streams:     []grpc.StreamDesc{},
	}
	for name, fn := range hostHandlers {
		desc.Methods = append(desc.Methods, grpc.MethodDesc{MethodName: name, Handler: hostHandler(name, fn)})
	}
	s.RegisterService(&desc, h)
}

type hostFunc func(ctx context.Context, h Host, f map[string]*structpb.Value) (map[string]any, error)

var hostHandlers = map[string]hostFunc{
	MethodHeld: func(ctx context.Context, h Host, f map[string]*structpb.Value) (map[string]any, error) {
		actor, err := actorField(f)
		if err != nil {
			return nil, err
		}
		item, ok, err := h.Held(ctx, actor)
		if err != nil || !ok {
			return map[string]any{"held": false}, err
		}
		return map[string]any{"held": true, "material": item.Material, "amount": item.Amount}, nil
	},
	MethodHasItems: func(ctx context.Context, h Host, f map[string]*structpb.Value) (map[string]any, error) {
		actor, err := actorField(f)
		if err != nil {
			return nil, err
		}
		has, err := h.Has(ctx, actor, f["material"].GetStringValue(), int(f["amount"].GetNumberValue()))
		return map[string]any{"has": has}, err
	},
	MethodConsumeItems: func(ctx context.Context, h Host, f map[string]*structpb.Value) (map[string]any, error) {
		actor, err := actorField(f)
		if err != nil {
			return nil, err
		}
		return map[string]any{}, h.Consume(ctx, actor, f["material"].GetStringValue(), int(f["amount"].GetNumberValue()))
	},
	MethodGiveItems: func(ctx context.Context, h Host, f map[string]*structpb.Value) (map[string]any, error) {
		actor, err := actorField(f)
		if err != nil {
			return nil, err
		}
		return map[string]any{}, h.Give(ctx, actor, f["material"].GetStringValue(), int(f["amount"].GetNumberValue()))
	},
	MethodBalance: func(ctx context.Context, h Host, f map[string]*structpb.Value) (map[string]any, error) {
		actor, err := actorField(f)
		if err != nil {
			return nil, err
		}
		balance, err := h.Balance(ctx, actor)
		return map[string]any{"balance": balance}, err
	},
	MethodWithdraw: func(ctx context.Context, h Host, f map[string]*structpb.Value) (map[string]any, error) {
		actor, err := actorField(f)
		if err != nil {
			return nil, err
		}
		return map[string]any{}, h.Withdraw(ctx, actor, f["amount"].GetNumberValue())
	},
	MethodObstructed: func(ctx context.Context, h Host, f map[string]*structpb.Value) (map[string]any, error) {
		obstructed, err := h.Obstructed(ctx, ParseLocation(f["location"].GetStructValue()))
		return map[string]any{"obstructed": obstructed}, err
	},
	MethodDisplayName: func(ctx context.Context, h Host, f map[string]*structpb.Value) (map[string]any, error) {
		actor, err := actorField(f)
		if err != nil {
			return nil, err
		}
		name, err := h.DisplayName(ctx, actor)
		return map[string]any{"name": name}, err
	},
}

func actorField(f map[string]*structpb.Value) (core.ActorID, error) {
	id, err := core.ParseActorID(f["actor"].GetStringValue())
	if err != nil {
		return core.ActorID{}, status.Error(codes.InvalidArgument, "invalid actor id")
	}
	return id, nil
}

func hostHandler(name string, fn hostFunc) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		handle := func(ctx context.Context, req any) (any, error) {
			out, err := fn(ctx, srv.(Host), req.(*structpb.Struct).GetFields())
			if err != nil {
				return nil, ToStatus(err)
			}
			return structpb.NewStruct(out)
		}
		if interceptor == nil {
			return handle(ctx, in)
		}
		return interceptor(ctx, in, &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}, handle)
	}
}

// ToStatus carries an oops code to the client as a Struct detail.
func ToStatus(err error) error {
	if _, ok := status.FromError(err); ok {
		return err
	}
	code := core.CodeOf(err)
	if code == "" {
		return status.Error(codes.Internal, err.Error())
	}
	st := status.New(codes.FailedPrecondition, err.Error())
	detail, _ := structpb.NewStruct(map[string]any{"code": code})
	if withDetail, derr := st.WithDetails(protoadapt.MessageV1Of(detail)); derr == nil {
		st = withDetail
	}
	return st.Err()
}
