// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package grpc serves the control API a game host uses to drive the Core
// engine: presence, commands, combat reports and kill rewards.
//
// The service is described by hand with google.protobuf.Struct messages so
// hosts in any language can call it with a generic Struct codec.
package grpc

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/oops"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/holomush/coresystem/internal/access"
	"github.com/holomush/coresystem/internal/broadcast"
	"github.com/holomush/coresystem/internal/command"
	"github.com/holomush/coresystem/internal/core"
	"github.com/holomush/coresystem/internal/lifecycle"
	"github.com/holomush/coresystem/internal/skill"
	"github.com/holomush/coresystem/internal/world"
)

// ServiceName is the gRPC service the engine exposes to game hosts.
const ServiceName = "coresystem.control.v1.CoreControl"

// Method names of ServiceName.
const (
	MethodJoin         = "Join"
	MethodLeave        = "Leave"
	MethodExecute      = "Execute"
	MethodReportDamage = "ReportDamage"
	MethodRewardKill   = "RewardKill"
	MethodStatus       = "Status"
	MethodSubscribe    = "Subscribe"
)

// Error codes for malformed requests.
const (
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeSendFailed     = "SEND_FAILED"
)

func fullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

// Config wires a CoreServer.
type Config struct {
	Engine     *lifecycle.Engine
	Skills     *skill.Activator
	Dispatcher *command.Dispatcher
	Access     access.AccessControl
	Hub        *broadcast.Hub
	// HostName identifies the calling host for access checks made without
	// a viewing actor.
	HostName string
}

// CoreServer implements ServiceName.
type CoreServer struct {
	engine     *lifecycle.Engine
	skills     *skill.Activator
	dispatcher *command.Dispatcher
	access     access.AccessControl
	hub        *broadcast.Hub
	host       string
}

// NewCoreServer creates a server. Engine, Dispatcher and Access are required.
func NewCoreServer(cfg Config) (*CoreServer, error) {
	if cfg.Engine == nil || cfg.Dispatcher == nil || cfg.Access == nil {
		return nil, oops.Code(CodeInvalidRequest).Errorf("engine, dispatcher and access control are required")
	}
	if cfg.Hub == nil {
		cfg.Hub = broadcast.NewHub()
	}
	if cfg.HostName == "" {
		cfg.HostName = "default"
	}
	return &CoreServer{
		engine:     cfg.Engine,
		skills:     cfg.Skills,
		dispatcher: cfg.Dispatcher,
		access:     cfg.Access,
		hub:        cfg.Hub,
		host:       cfg.HostName,
	}, nil
}

// Join marks an actor present under their display name.
func (s *CoreServer) Join(ctx context.Context, f map[string]*structpb.Value) (map[string]any, error) {
	actor, err := actorField(f, "actor")
	if err != nil {
		return nil, err
	}
	name := f["name"].GetStringValue()
	if name == "" {
		name = actor.String()
	}
	rec, err := s.engine.Join(ctx, actor, name)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "actor joined", "actor_id", actor.String(), "name", name)
	return map[string]any{"state": rec.State().String()}, nil
}

// Leave saves and evicts an actor's record.
func (s *CoreServer) Leave(ctx context.Context, f map[string]*structpb.Value) (map[string]any, error) {
	actor, err := actorField(f, "actor")
	if err != nil {
		return nil, err
	}
	if err := s.engine.Leave(ctx, actor); err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "actor left", "actor_id", actor.String())
	return map[string]any{}, nil
}

// Execute runs one command line for an actor. Command failures are part of
// the response so the host can show the message to the player.
func (s *CoreServer) Execute(ctx context.Context, f map[string]*structpb.Value) (map[string]any, error) {
	actor, err := actorField(f, "actor")
	if err != nil {
		return nil, err
	}
	input := f["input"].GetStringValue()
	name, _ := s.engine.Roster().Name(actor)

	var out bytes.Buffer
	exec := &command.CommandExecution{
		ActorID:   actor,
		ActorName: name,
		Output:    &out,
		Services: &command.Services{
			Lifecycle: s.engine,
			Skills:    s.skills,
			Access:    s.access,
		},
	}
	if v, ok := f["location"]; ok && v.GetStructValue() != nil {
		loc := world.ParseLocation(v.GetStructValue())
		exec.Location = &loc
	}

	if err := s.dispatcher.Dispatch(ctx, input, exec); err != nil {
		slog.DebugContext(ctx, "command failed",
			"actor_id", actor.String(),
			"input", input,
			"code", core.CodeOf(err),
		)
		return map[string]any{
			"success": false,
			"output":  out.String(),
			"code":    core.CodeOf(err),
			"error":   command.PlayerMessage(err),
		}, nil
	}
	return map[string]any{"success": true, "output": out.String()}, nil
}

// ReportDamage applies a hit the host observed on a Core block.
func (s *CoreServer) ReportDamage(ctx context.Context, f map[string]*structpb.Value) (map[string]any, error) {
	owner, err := actorField(f, "owner")
	if err != nil {
		return nil, err
	}
	src := lifecycle.DamageSource{
		Cause:       f["cause"].GetStringValue(),
		DamagerType: f["damager_type"].GetStringValue(),
		Living:      f["living"].GetBoolValue(),
	}
	if _, ok := f["attacker"]; ok {
		attacker, err := actorField(f, "attacker")
		if err != nil {
			return nil, err
		}
		src.Attacker = &attacker
	}
	res, err := s.engine.ReportDamage(ctx, owner, f["amount"].GetNumberValue(), src)
	if err != nil {
		return nil, err
	}
	out := map[string]any{"applied": res.Applied, "destroyed": res.Destroyed}
	if res.Record != nil {
		out["health"] = res.Record.Health
		out["max_health"] = res.Record.MaxHealth
	}
	return out, nil
}

// RewardKill grants kill XP. A "victim" field rewards a player kill,
// otherwise "creature" names the mob type.
func (s *CoreServer) RewardKill(ctx context.Context, f map[string]*structpb.Value) (map[string]any, error) {
	killer, err := actorField(f, "killer")
	if err != nil {
		return nil, err
	}
	var res lifecycle.XPResult
	if _, ok := f["victim"]; ok {
		victim, verr := actorField(f, "victim")
		if verr != nil {
			return nil, verr
		}
		res, err = s.engine.RewardPlayerKill(ctx, killer, victim)
	} else {
		res, err = s.engine.RewardMobKill(ctx, killer, f["creature"].GetStringValue())
	}
	if err != nil {
		return nil, err
	}
	unlocked := make([]any, 0, len(res.Unlocked))
	for _, id := range res.Unlocked {
		unlocked = append(unlocked, id)
	}
	return map[string]any{
		"granted":   res.Granted,
		"old_level": res.OldLevel,
		"new_level": res.NewLevel,
		"unlocked":  unlocked,
	}, nil
}

// Status returns a read-only view of an actor's Core. When "viewer" is set
// the viewing actor must be allowed to read it; otherwise the host must.
func (s *CoreServer) Status(ctx context.Context, f map[string]*structpb.Value) (map[string]any, error) {
	actor, err := actorField(f, "actor")
	if err != nil {
		return nil, err
	}
	subject := access.HostSubject(s.host)
	if _, ok := f["viewer"]; ok {
		viewer, verr := actorField(f, "viewer")
		if verr != nil {
			return nil, verr
		}
		subject = access.ActorSubject(viewer)
	}
	if !s.access.Check(ctx, subject, access.ActionRead, access.CoreResource(actor)) {
		return nil, status.Error(codes.PermissionDenied, "not allowed to read this Core")
	}

	st, err := s.engine.Status(ctx, actor)
	if err != nil {
		return nil, err
	}
	return StatusFields(st), nil
}

// StatusFields encodes a status view for a Struct payload.
func StatusFields(st lifecycle.Status) map[string]any {
	skills := make([]any, 0, len(st.Skills))
	for _, id := range st.Skills {
		skills = append(skills, id)
	}
	out := map[string]any{
		"state":         st.State.String(),
		"level":         st.Level,
		"max_level":     st.MaxLevel,
		"total_xp":      st.TotalXP,
		"progress":      st.Progress,
		"required":      st.Required,
		"health":        st.Health,
		"max_health":    st.MaxHealth,
		"energy":        st.Energy,
		"max_energy":    st.MaxEnergy,
		"xp_multiplier": st.XPMultiplier,
		"regen_bonus":   st.RegenBonus,
		"archetype":     st.Archetype,
		"skills":        skills,
		"tier":          st.Appearance.Tier,
		"rebirths":      st.RebirthCount,
		"tutorial":      st.Tutorial,
	}
	if st.Location != nil {
		out["location"] = world.LocationValue(*st.Location)
	}
	return out
}

// Subscribe streams events from the requested streams until the client
// goes away. An "actor" field adds that actor's private stream.
func (s *CoreServer) Subscribe(f map[string]*structpb.Value, stream grpc.ServerStream) error {
	ctx := stream.Context()

	var names []string
	for _, v := range f["streams"].GetListValue().GetValues() {
		if name := v.GetStringValue(); name != "" {
			names = append(names, name)
		}
	}
	if _, ok := f["actor"]; ok {
		actor, err := actorField(f, "actor")
		if err != nil {
			return err
		}
		names = append(names, core.ActorStream(actor))
	}
	if len(names) == 0 {
		names = []string{core.StreamAnnouncements}
	}

	channels := make([]chan core.Event, 0, len(names))
	for _, name := range names {
		ch := s.hub.Subscribe(name)
		channels = append(channels, ch)
		//nolint:gocritic // deferInLoop: every subscription is released on return
		defer s.hub.Unsubscribe(name, ch)
	}
	slog.DebugContext(ctx, "subscription started", "streams", names)

	merged := mergeChannels(ctx, channels)
	for {
		select {
		case <-ctx.Done():
			slog.DebugContext(ctx, "subscription ended", "reason", ctx.Err())
			return nil
		case ev, ok := <-merged:
			if !ok {
				return nil
			}
			msg, err := eventStruct(ev)
			if err != nil {
				slog.WarnContext(ctx, "failed to encode event", "event_id", ev.ID.String(), "error", err)
				continue
			}
			if err := stream.SendMsg(msg); err != nil {
				return oops.Code(CodeSendFailed).With("event_id", ev.ID.String()).Wrap(err)
			}
		}
	}
}

func eventStruct(ev core.Event) (*structpb.Struct, error) {
	m := broadcast.MessageFor(ev)
	fields := map[string]any{
		"id":        m.ID,
		"stream":    m.Stream,
		"type":      m.Type,
		"timestamp": m.Timestamp.UTC().Format(time.RFC3339Nano),
		"actor":     m.Actor,
		"subject":   m.Subject,
		"payload":   string(m.Payload),
	}
	return structpb.NewStruct(fields)
}

// mergeChannels merges event channels into one that closes when all inputs
// close or ctx is done.
func mergeChannels(ctx context.Context, channels []chan core.Event) <-chan core.Event {
	merged := make(chan core.Event, broadcast.DefaultBuffer)

	var wg sync.WaitGroup
	for _, ch := range channels {
		wg.Add(1)
		go func(c <-chan core.Event) {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case ev, ok := <-c:
					if !ok {
						return
					}
					select {
					case merged <- ev:
					case <-ctx.Done():
						return
					}
				}
			}
		}(ch)
	}

	go func() {
		wg.Wait()
		close(merged)
	}()
	return merged
}

func actorField(f map[string]*structpb.Value, key string) (core.ActorID, error) {
	id, err := core.ParseActorID(f[key].GetStringValue())
	if err != nil || id == (core.ActorID{}) {
		return core.ActorID{}, status.Errorf(codes.InvalidArgument, "invalid %s id", key)
	}
	return id, nil
}

type unaryFunc func(s *CoreServer, ctx context.Context, f map[string]*structpb.Value) (map[string]any, error)

var unaryMethods = map[string]unaryFunc{
	MethodJoin:         (*CoreServer).Join,
	MethodLeave:        (*CoreServer).Leave,
	MethodExecute:      (*CoreServer).Execute,
	MethodReportDamage: (*CoreServer).ReportDamage,
	MethodRewardKill:   (*CoreServer).RewardKill,
	MethodStatus:       (*CoreServer).Status,
}

// coreControlServer is the handler type checked by grpc.Server.RegisterService.
type coreControlServer interface {
	Status(ctx context.Context, f map[string]*structpb.Value) (map[string]any, error)
}

// Register serves s as ServiceName on r.
func Register(r grpc.ServiceRegistrar, s *CoreServer) {
	desc := grpc.ServiceDesc{
		ServiceName: ServiceName,
		HandlerType: (*coreControlServer)(nil),
		Streams: []grpc.StreamDesc{{
			StreamName:    MethodSubscribe,
			Handler:       subscribeHandler,
			ServerStreams: true,
		}},
	}
	for name, fn := range unaryMethods {
		desc.Methods = append(desc.Methods, grpc.MethodDesc{MethodName: name, Handler: unaryHandler(name, fn)})
	}
	r.RegisterService(&desc, s)
}

func unaryHandler(name string, fn unaryFunc) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		handle := func(ctx context.Context, req any) (any, error) {
			out, err := fn(srv.(*CoreServer), ctx, req.(*structpb.Struct).GetFields())
			if err != nil {
				return nil, world.ToStatus(err)
			}
			if id := req.(*structpb.Struct).GetFields()["request_id"].GetStringValue(); id != "" {
				out["request_id"] = id
			}
			return structpb.NewStruct(out)
		}
		if interceptor == nil {
			return handle(ctx, in)
		}
		return interceptor(ctx, in, &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}, handle)
	}
}

func subscribeHandler(srv any, stream grpc.ServerStream) error {
	in := new(structpb.Struct)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	err := srv.(*CoreServer).Subscribe(in.GetFields(), stream)
	if err == nil || errors.Is(err, context.Canceled) {
		return nil
	}
	return world.ToStatus(err)
}

// NewServer creates a gRPC server, with TLS when tlsConfig is set.
func NewServer(tlsConfig *tls.Config, opts ...grpc.ServerOption) *grpc.Server {
	if tlsConfig != nil {
		opts = append(opts, grpc.Creds(credentials.NewTLS(tlsConfig)))
	}
	return grpc.NewServer(opts...)
}
