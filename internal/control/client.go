// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package control

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/samber/oops"
)

// Client talks to a control socket.
type Client struct {
	http *http.Client
}

// NewClient creates a client for the socket at socketPath.
func NewClient(socketPath string) *Client {
	return &Client{http: &http.Client{
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, "unix", socketPath)
			},
		},
		Timeout: 30 * time.Second,
	}}
}

// Health queries /health.
func (c *Client) Health(ctx context.Context) (HealthResponse, error) {
	var out HealthResponse
	err := c.do(ctx, http.MethodGet, "/health", &out)
	return out, err
}

// Status queries /status.
func (c *Client) Status(ctx context.Context) (StatusResponse, error) {
	var out StatusResponse
	err := c.do(ctx, http.MethodGet, "/status", &out)
	return out, err
}

// Reload asks the engine to reload its definitions.
func (c *Client) Reload(ctx context.Context) (string, error) {
	return c.action(ctx, "/reload")
}

// Flush asks the engine to persist every cached record.
func (c *Client) Flush(ctx context.Context) (string, error) {
	return c.action(ctx, "/flush")
}

// Shutdown asks the engine to stop.
func (c *Client) Shutdown(ctx context.Context) (string, error) {
	return c.action(ctx, "/shutdown")
}

func (c *Client) action(ctx context.Context, path string) (string, error) {
	var out MessageResponse
	if err := c.do(ctx, http.MethodPost, path, &out); err != nil {
		return "", err
	}
	if out.Error != "" {
		return "", oops.In("control").With("path", path).Errorf("%s: %s", out.Message, out.Error)
	}
	return out.Message, nil
}

func (c *Client) do(ctx context.Context, method, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, "http://localhost"+path, http.NoBody)
	if err != nil {
		return oops.In("control").With("path", path).Wrap(err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return oops.In("control").With("path", path).Wrapf(err, "connect to control socket")
	}
	defer func() { _ = resp.Body.Close() }()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return oops.In("control").With("path", path).With("status", resp.StatusCode).Wrapf(err, "decode response")
	}
	return nil
}
