// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/coresystem/internal/config"
	"github.com/holomush/coresystem/internal/control"
	"github.com/holomush/coresystem/internal/core"
	coregrpc "github.com/holomush/coresystem/internal/grpc"
	"github.com/holomush/coresystem/internal/store"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("", nil)
	require.NoError(t, err)
	cfg.Store.Backend = store.BackendMemory
	cfg.GRPC.Address = "127.0.0.1:0"
	cfg.Observability.Address = "127.0.0.1:0"
	cfg.Control.Socket = filepath.Join(shortTempDir(t), "core.sock")
	return cfg
}

func TestRunServe_EndToEnd(t *testing.T) {
	cfg := testConfig(t)

	addrCh := make(chan string, 1)
	done := make(chan error, 1)
	go func() {
		done <- runServe(context.Background(), cfg, func(addr string) { addrCh <- addr })
	}()

	var addr string
	select {
	case addr = <-addrCh:
	case err := <-done:
		t.Fatalf("serve exited early: %v", err)
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not start")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := coregrpc.NewClient(coregrpc.ClientConfig{Address: addr})
	require.NoError(t, err)
	defer func() { _ = client.Close() }()

	actor := core.NewActorID()
	require.NoError(t, client.Join(ctx, actor, "Steve"))
	res, err := client.Execute(ctx, actor, "claim", nil)
	require.NoError(t, err)
	assert.True(t, res.Success, res.Message)

	ctl := control.NewClient(cfg.Control.Socket)
	st, err := ctl.Status(ctx)
	require.NoError(t, err)
	assert.True(t, st.Running)
	assert.Equal(t, 1, st.Online)
	assert.Equal(t, 1, st.Cached)

	_, err = ctl.Reload(ctx)
	require.NoError(t, err)
	_, err = ctl.Flush(ctx)
	require.NoError(t, err)

	_, err = ctl.Shutdown(ctx)
	require.NoError(t, err)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(20 * time.Second):
		t.Fatal("serve did not stop after shutdown")
	}
}

func TestRunServe_ContextCancelStops(t *testing.T) {
	cfg := testConfig(t)
	cfg.Observability.Address = ""

	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- runServe(ctx, cfg, func(string) { close(started) })
	}()

	select {
	case <-started:
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not start")
	}
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(20 * time.Second):
		t.Fatal("serve did not stop")
	}
}

func TestRunServe_ListenFailure(t *testing.T) {
	cfg := testConfig(t)
	cfg.GRPC.Address = "256.0.0.1:bad"

	err := runServe(context.Background(), cfg, nil)
	require.Error(t, err)
}

func TestNewApp_RejectsUnknownRole(t *testing.T) {
	cfg := testConfig(t)
	cfg.Access.Roles = map[string]string{"host:paper": "overlord"}

	_, err := newApp(context.Background(), cfg)
	require.Error(t, err)
}
