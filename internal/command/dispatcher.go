// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package command

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/holomush/coresystem/internal/access"
	"github.com/holomush/coresystem/internal/core"
)

var tracer = otel.Tracer("coresystem/command")

// Dispatcher handles command parsing, capability checks, and execution.
type Dispatcher struct {
	registry    *Registry
	access      access.AccessControl
	rateLimiter *RateLimiter
}

// DispatcherOption configures a Dispatcher during construction.
type DispatcherOption func(*Dispatcher)

// WithRateLimiter enables per-actor rate limiting.
func WithRateLimiter(rl *RateLimiter) DispatcherOption {
	return func(d *Dispatcher) {
		d.rateLimiter = rl
	}
}

// NewDispatcher creates a command dispatcher.
func NewDispatcher(registry *Registry, ac access.AccessControl, opts ...DispatcherOption) (*Dispatcher, error) {
	if registry == nil {
		return nil, ErrNilRegistry
	}
	if ac == nil {
		return nil, ErrNilAccessControl
	}
	d := &Dispatcher{
		registry: registry,
		access:   ac,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Registry returns the registry the dispatcher resolves commands from.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Dispatch parses and executes a command.
func (d *Dispatcher) Dispatch(ctx context.Context, input string, exec *CommandExecution) (err error) {
	if exec == nil || exec.ActorID == (core.ActorID{}) {
		return ErrNoActor()
	}
	if exec.Services == nil {
		return ErrNoActor()
	}
	if exec.Services.Access == nil {
		exec.Services.Access = d.access
	}

	parsed, err := Parse(input)
	if err != nil {
		return err
	}

	started := time.Now()
	status := StatusSuccess
	ctx, span := tracer.Start(ctx, "command.execute",
		trace.WithAttributes(
			attribute.String("command.name", parsed.Name),
			attribute.String("actor.id", exec.ActorID.String()),
		),
	)
	defer func() {
		if err != nil {
			if status == StatusSuccess {
				status = StatusError
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		recordExecution(parsed.Name, status, started)
		span.End()
	}()

	subject := exec.Subject()
	if d.rateLimiter != nil && !d.access.Check(ctx, subject, access.ActionExecute, CapabilityRateLimitBypass) {
		if allowed, cooldownMs := d.rateLimiter.Allow(exec.ActorID); !allowed {
			span.SetAttributes(attribute.Int64("command.cooldown_ms", cooldownMs))
			status = StatusRateLimited
			return ErrRateLimited(cooldownMs)
		}
	}

	entry, ok := d.registry.Get(parsed.Name)
	if !ok {
		status = StatusNotFound
		return ErrUnknownCommand(parsed.Name)
	}
	span.SetAttributes(attribute.String("command.source", entry.Source))

	for _, capability := range entry.GetCapabilities() {
		if !d.access.Check(ctx, subject, access.ActionExecute, capability) {
			status = StatusPermissionDenied
			return ErrPermissionDenied(parsed.Name, capability)
		}
	}

	exec.Args = parsed.Args
	err = entry.Handler(ctx, exec)
	if err != nil {
		if core.CodeOf(err) == CodePermissionDenied {
			status = StatusPermissionDenied
		}
		slog.DebugContext(ctx, "command execution failed",
			"command", parsed.Name,
			"actor_id", exec.ActorID.String(),
			"error", err,
		)
	}
	return err
}

// Require checks one capability for the executing actor from inside a
// handler. Used for subcommands gated separately from their parent.
func Require(ctx context.Context, exec *CommandExecution, cmd, capability string) error {
	if exec.Services == nil || exec.Services.Access == nil ||
		!exec.Services.Access.Check(ctx, exec.Subject(), access.ActionExecute, capability) {
		return ErrPermissionDenied(cmd, capability)
	}
	return nil
}
