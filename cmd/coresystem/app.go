// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	cryptotls "crypto/tls"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"

	"github.com/samber/oops"
	"google.golang.org/grpc"

	"github.com/holomush/coresystem/internal/access"
	"github.com/holomush/coresystem/internal/broadcast"
	"github.com/holomush/coresystem/internal/command"
	"github.com/holomush/coresystem/internal/command/handlers"
	"github.com/holomush/coresystem/internal/config"
	"github.com/holomush/coresystem/internal/cooldown"
	"github.com/holomush/coresystem/internal/definitions"
	coregrpc "github.com/holomush/coresystem/internal/grpc"
	"github.com/holomush/coresystem/internal/hooks"
	"github.com/holomush/coresystem/internal/lifecycle"
	"github.com/holomush/coresystem/internal/observability"
	"github.com/holomush/coresystem/internal/presence"
	"github.com/holomush/coresystem/internal/protection"
	"github.com/holomush/coresystem/internal/regen"
	"github.com/holomush/coresystem/internal/skill"
	"github.com/holomush/coresystem/internal/store"
	coretls "github.com/holomush/coresystem/internal/tls"
	"github.com/holomush/coresystem/internal/world"
	"github.com/holomush/coresystem/internal/xdg"
)

// app is a fully wired engine. Nothing runs until serve starts it.
type app struct {
	cfg *config.Config

	catalogs   *definitions.Holder
	store      *store.Store
	cooldowns  *cooldown.Registry
	hub        *broadcast.Hub
	engine     *lifecycle.Engine
	skills     *skill.Activator
	regen      *regen.Scheduler
	access     *access.Static
	limiter    *command.RateLimiter
	dispatcher *command.Dispatcher
	core       *coregrpc.CoreServer
	grpc       *grpc.Server
	obs        *observability.Server

	ready   atomic.Bool
	closers []func() error
}

// definitionsFS returns the configured definitions directory, or the
// built-in documents.
func definitionsFS(dir string) fs.FS {
	if dir == "" {
		return definitions.DefaultFS()
	}
	return os.DirFS(dir)
}

// loadHooks compiles every Lua validator in dir into a fresh hook set.
func loadHooks(dir string) (*hooks.Hooks, int, error) {
	h := hooks.New()
	if dir == "" {
		return h, 0, nil
	}
	scripts, err := hooks.LoadLuaDir(os.DirFS(dir))
	if err != nil {
		return nil, 0, err
	}
	for _, s := range scripts {
		s.Install(h)
	}
	return h, len(scripts), nil
}

// certsDir returns the configured certificate directory or the XDG default.
func certsDir(cfg *config.Config) (string, error) {
	if cfg.GRPC.CertsDir != "" {
		return cfg.GRPC.CertsDir, nil
	}
	return xdg.CertsDir()
}

// newApp wires every component described by cfg. Close releases what it
// opened.
func newApp(ctx context.Context, cfg *config.Config) (a *app, err error) {
	a = &app{cfg: cfg, hub: broadcast.NewHub()}
	defer func() {
		if err != nil {
			_ = a.Close(context.WithoutCancel(ctx))
		}
	}()

	a.obs = observability.NewServer(cfg.Observability.Address, a.ready.Load,
		observability.WithHandler("/ws/broadcast", broadcast.NewHandler(a.hub)),
	)
	reg := a.obs.Registry()
	store.RegisterMetrics(reg)
	lifecycle.RegisterMetrics(reg)
	skill.RegisterMetrics(reg)
	regen.RegisterMetrics(reg)
	command.RegisterMetrics(reg)
	broadcast.RegisterMetrics(reg)

	a.catalogs, err = definitions.NewHolder(definitions.NewLoader(), definitionsFS(cfg.Definitions.Dir))
	if err != nil {
		return nil, err
	}
	catalog := a.catalogs.Current()
	slog.InfoContext(ctx, "definitions loaded",
		"archetypes", len(catalog.Archetypes()),
		"mutations", len(catalog.Mutations()),
		"max_level", catalog.MaxLevel(),
	)

	h, scripts, err := loadHooks(cfg.Definitions.HooksDir)
	if err != nil {
		return nil, err
	}
	if scripts > 0 {
		slog.InfoContext(ctx, "validator scripts loaded", "count", scripts)
	}

	if err := migrateIfNeeded(cfg); err != nil {
		return nil, err
	}
	adapter, err := store.OpenAdapter(ctx, cfg.StoreAdapter())
	if err != nil {
		return nil, err
	}
	writerCfg := store.DefaultWriterConfig()
	if cfg.Store.Workers > 0 {
		writerCfg.Workers = cfg.Store.Workers
	}
	a.store = store.New(adapter, a.catalogs, store.WithWriter(store.NewWriter(adapter, writerCfg)))
	slog.InfoContext(ctx, "record store opened", "backend", cfg.Store.Backend)

	host, err := a.openHost(cfg)
	if err != nil {
		return nil, err
	}
	prot, err := a.openProtection(cfg, catalog.Tunables.ProtectionRadius)
	if err != nil {
		return nil, err
	}

	a.cooldowns = cooldown.NewWithRegistry(cooldown.Config{}, reg)
	a.engine, err = lifecycle.New(lifecycle.Deps{
		Store:      a.store,
		Catalogs:   a.catalogs,
		Protection: prot,
		Presence:   presence.NewTracker(),
		Cooldowns:  a.cooldowns,
		Hooks:      h,
		Inventory:  host,
		Economy:    host,
		World:      host,
		Notifier:   a.hub,
	})
	if err != nil {
		return nil, err
	}
	a.skills, err = skill.New(skill.Config{Store: a.store, Catalogs: a.catalogs, Hooks: h, Notifier: a.hub})
	if err != nil {
		return nil, err
	}
	a.regen, err = regen.New(a.store, a.catalogs, a.engine.Roster())
	if err != nil {
		return nil, err
	}

	a.access = access.NewStatic(access.WithDefaultRole(cfg.Access.DefaultRole))
	if err := a.access.AssignRoles(cfg.Access.Roles); err != nil {
		return nil, err
	}
	commands := command.NewRegistry()
	handlers.RegisterAll(commands)
	a.limiter = command.NewRateLimiter(command.RateLimiterConfig{
		BurstCapacity: cfg.Commands.Burst,
		SustainedRate: cfg.Commands.Rate,
		Registerer:    reg,
	})
	a.dispatcher, err = command.NewDispatcher(commands, a.access, command.WithRateLimiter(a.limiter))
	if err != nil {
		return nil, err
	}

	a.core, err = coregrpc.NewCoreServer(coregrpc.Config{
		Engine:     a.engine,
		Skills:     a.skills,
		Dispatcher: a.dispatcher,
		Access:     a.access,
		Hub:        a.hub,
	})
	if err != nil {
		return nil, err
	}
	var tlsConfig *cryptotls.Config
	if cfg.GRPC.TLS {
		dir, err := certsDir(cfg)
		if err != nil {
			return nil, err
		}
		tlsConfig, err = coretls.ServerConfig(dir, serviceName)
		if err != nil {
			return nil, err
		}
	}
	a.grpc = coregrpc.NewServer(tlsConfig, grpc.ChainUnaryInterceptor(a.obs.Metrics().UnaryInterceptor()))
	coregrpc.Register(a.grpc, a.core)
	return a, nil
}

// openHost connects to the game host, or uses an in-memory host when no
// address is configured.
func (a *app) openHost(cfg *config.Config) (world.Host, error) {
	if cfg.Host.Address == "" {
		slog.Warn("no game host configured, using in-memory inventory and economy")
		return world.NewMemory(), nil
	}
	tlsConfig, err := a.clientTLS(cfg)
	if err != nil {
		return nil, err
	}
	client, err := world.DialHost(world.HostConfig{
		Address:     cfg.Host.Address,
		TLSConfig:   tlsConfig,
		CallTimeout: cfg.Host.CallTimeout,
	})
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, client.Close)
	return client, nil
}

func (a *app) openProtection(cfg *config.Config, radius int) (protection.Protection, error) {
	if cfg.Protection.Backend != config.ProtectionAuthority {
		return protection.NewCuboid(radius), nil
	}
	tlsConfig, err := a.clientTLS(cfg)
	if err != nil {
		return nil, err
	}
	auth, err := protection.DialAuthority(protection.AuthorityConfig{
		Address:   cfg.Protection.Address,
		TLSConfig: tlsConfig,
		Radius:    radius,
	})
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, auth.Close)
	return auth, nil
}

// clientTLS returns the engine's client identity when mTLS is enabled.
func (a *app) clientTLS(cfg *config.Config) (*cryptotls.Config, error) {
	if !cfg.GRPC.TLS {
		return nil, nil
	}
	dir, err := certsDir(cfg)
	if err != nil {
		return nil, err
	}
	return coretls.ClientConfig(dir, serviceName, "")
}

// migrateIfNeeded applies pending Postgres migrations when auto-migrate is on.
func migrateIfNeeded(cfg *config.Config) error {
	if !cfg.Store.AutoMigrate || !strings.EqualFold(cfg.Store.Backend, store.BackendPostgres) {
		return nil
	}
	m, err := store.NewMigrator(cfg.Store.DatabaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil {
			slog.Warn("failed to close migrator", "error", closeErr)
		}
	}()
	if err := m.Up(); err != nil {
		return err
	}
	slog.Info("database migrations applied")
	return nil
}

// Close stops background work and flushes every cached record.
func (a *app) Close(ctx context.Context) error {
	var errs []error
	if a.regen != nil {
		a.regen.Stop()
	}
	if a.limiter != nil {
		a.limiter.Close()
	}
	if a.cooldowns != nil {
		a.cooldowns.Close()
	}
	if a.store != nil {
		if err := a.store.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return oops.With("operation", "close engine").Wrap(err)
	}
	return nil
}

// operator exposes the engine to the control socket.
type operator struct {
	engine *lifecycle.Engine
}

func (o operator) Online() int                     { return o.engine.Roster().Len() }
func (o operator) Cached() int                     { return len(o.engine.Store().Cached()) }
func (o operator) Reload(ctx context.Context) error { return o.engine.Reload(ctx) }
func (o operator) Flush(ctx context.Context) error  { return o.engine.Store().Flush(ctx) }
