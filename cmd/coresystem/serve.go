// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/coresystem/internal/config"
	"github.com/holomush/coresystem/internal/control"
	"github.com/holomush/coresystem/internal/logging"
)

// shutdownTimeout bounds the final flush and server stops.
const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the Core engine",
		Long: `Start the Core engine: load definitions, open the record store,
start passive regeneration and serve the host control API, the operator
socket and the metrics/health endpoints until interrupted.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd.Flags())
			if err != nil {
				return err
			}
			if err := logging.SetDefault(cfg.Logging(serviceName, version)); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, func(addr string) {
				cmd.Printf("Core engine listening on %s\n", addr)
			})
		},
	}
	config.RegisterFlags(cmd.Flags())
	return cmd
}

// runServe runs the engine until ctx ends, the operator asks it to stop or
// a server fails. started is called once the control API is listening.
func runServe(ctx context.Context, cfg *config.Config, started func(addr string)) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer shutdownCancel()
		if err := a.Close(shutdownCtx); err != nil {
			slog.Error("failed to close engine", "error", err)
		}
	}()

	result, err := a.engine.Reconcile(ctx)
	if err != nil {
		slog.Warn("presence reconcile failed", "error", err)
	} else {
		slog.Info("presence reconciled", "removed", result.Removed, "spawned", result.Spawned)
	}
	a.regen.Start(ctx)

	listener, err := net.Listen("tcp", cfg.GRPC.Address)
	if err != nil {
		return oops.With("addr", cfg.GRPC.Address).Wrapf(err, "listen for control API")
	}
	grpcErr := make(chan error, 1)
	go func() {
		if serveErr := a.grpc.Serve(listener); serveErr != nil {
			grpcErr <- serveErr
		}
	}()
	defer func() {
		// Subscribe streams only end on a hard stop.
		done := make(chan struct{})
		go func() {
			a.grpc.GracefulStop()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(shutdownTimeout):
			a.grpc.Stop()
		}
	}()
	slog.Info("control API listening", "addr", listener.Addr().String(), "tls", cfg.GRPC.TLS)

	ctl := control.NewServer(serviceName, operator{engine: a.engine}, func() { cancel() })
	if err := ctl.Start(cfg.Control.Socket); err != nil {
		return err
	}
	defer stopServer("control socket", ctl.Stop)

	var obsErr <-chan error
	if cfg.Observability.Address != "" {
		obsErr, err = a.obs.Start()
		if err != nil {
			return err
		}
		defer stopServer("observability server", a.obs.Stop)
	}

	a.ready.Store(true)
	if started != nil {
		started(listener.Addr().String())
	}
	slog.Info("core engine ready", "online", a.engine.Roster().Len())

	select {
	case <-ctx.Done():
		slog.Info("shutting down")
	case err := <-grpcErr:
		return oops.Wrapf(err, "control API stopped")
	case err, ok := <-obsErr:
		if ok {
			return oops.Wrapf(err, "observability server stopped")
		}
	}
	a.ready.Store(false)
	return nil
}

func stopServer(name string, stop func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := stop(ctx); err != nil {
		slog.Warn("error stopping server", "server", name, "error", err)
	}
}
