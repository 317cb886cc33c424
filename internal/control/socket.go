// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package control provides the operator socket of a running engine: health,
// status, definition reload, cache flush and shutdown over HTTP on a Unix
// socket.
package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/samber/oops"

	"github.com/holomush/coresystem/internal/xdg"
)

// HealthResponse is returned by the /health endpoint.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// StatusResponse is returned by the /status endpoint.
type StatusResponse struct {
	Running       bool   `json:"running"`
	PID           int    `json:"pid"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Component     string `json:"component,omitempty"`
	Online        int    `json:"online"`
	Cached        int    `json:"cached"`
}

// MessageResponse is returned by the action endpoints.
type MessageResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// Operator is the engine surface the socket drives.
type Operator interface {
	// Online returns the number of present actors.
	Online() int
	// Cached returns the number of records held in memory.
	Cached() int
	// Reload swaps in freshly loaded definitions.
	Reload(ctx context.Context) error
	// Flush persists every cached record.
	Flush(ctx context.Context) error
}

// ShutdownFunc is called when shutdown is requested.
type ShutdownFunc func()

// Server runs HTTP over a Unix socket for process management.
type Server struct {
	component    string
	startTime    time.Time
	listener     net.Listener
	httpServer   *http.Server
	socketPath   string
	operator     Operator
	shutdownFunc ShutdownFunc
	running      atomic.Bool
}

// NewServer creates a control socket server for component.
func NewServer(component string, operator Operator, shutdownFunc ShutdownFunc) *Server {
	s := &Server{
		component:    component,
		startTime:    time.Now(),
		operator:     operator,
		shutdownFunc: shutdownFunc,
	}
	s.running.Store(true)
	return s
}

// SocketPath returns the path of component's Unix socket.
func SocketPath(component string) (string, error) {
	runtimeDir, err := xdg.RuntimeDir()
	if err != nil {
		return "", oops.In("control").Wrapf(err, "get runtime directory")
	}
	return filepath.Join(runtimeDir, component+".sock"), nil
}

// Handler returns the socket's HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("POST /reload", s.handleReload)
	mux.HandleFunc("POST /flush", s.handleFlush)
	mux.HandleFunc("POST /shutdown", s.handleShutdown)
	return mux
}

// Start listens on socketPath, or on SocketPath(component) when empty.
func (s *Server) Start(socketPath string) error {
	if socketPath == "" {
		var err error
		if socketPath, err = SocketPath(s.component); err != nil {
			return err
		}
	}
	s.socketPath = socketPath

	if err := xdg.EnsureDir(filepath.Dir(socketPath)); err != nil {
		return err
	}
	if err := os.Remove(socketPath); err != nil && !os.IsNotExist(err) {
		return oops.In("control").With("path", socketPath).Wrapf(err, "remove existing socket")
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return oops.In("control").With("path", socketPath).Wrapf(err, "listen on socket")
	}
	s.listener = listener

	if err := os.Chmod(socketPath, 0o600); err != nil {
		_ = listener.Close()
		return oops.In("control").With("path", socketPath).Wrapf(err, "set socket permissions")
	}

	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("control socket server error",
				"component", s.component,
				"error", err,
			)
		}
	}()
	slog.Info("control socket listening", "component", s.component, "path", socketPath)
	return nil
}

// Stop gracefully shuts down the control socket server.
func (s *Server) Stop(ctx context.Context) error {
	s.running.Store(false)

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			return oops.In("control").Wrapf(err, "shutdown http server")
		}
	}
	if s.listener != nil {
		if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			slog.Warn("failed to close control socket listener",
				"component", s.component,
				"error", err,
			)
		}
	}
	if s.socketPath != "" {
		if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
			slog.Warn("failed to remove control socket file",
				"component", s.component,
				"path", s.socketPath,
				"error", err,
			)
		}
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.write(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	resp := StatusResponse{
		Running:       s.running.Load(),
		PID:           os.Getpid(),
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Component:     s.component,
	}
	if s.operator != nil {
		resp.Online = s.operator.Online()
		resp.Cached = s.operator.Cached()
	}
	s.write(w, http.StatusOK, resp)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	s.runAction(w, r, "reload", "definitions reloaded", func(ctx context.Context) error {
		return s.operator.Reload(ctx)
	})
}

func (s *Server) handleFlush(w http.ResponseWriter, r *http.Request) {
	s.runAction(w, r, "flush", "records flushed", func(ctx context.Context) error {
		return s.operator.Flush(ctx)
	})
}

func (s *Server) runAction(w http.ResponseWriter, r *http.Request, action, done string, fn func(context.Context) error) {
	if s.operator == nil {
		s.write(w, http.StatusServiceUnavailable, MessageResponse{Message: action + " unavailable"})
		return
	}
	if err := fn(r.Context()); err != nil {
		slog.ErrorContext(r.Context(), "control action failed",
			"component", s.component,
			"action", action,
			"error", err,
		)
		s.write(w, http.StatusInternalServerError, MessageResponse{Message: action + " failed", Error: err.Error()})
		return
	}
	slog.InfoContext(r.Context(), "control action completed", "component", s.component, "action", action)
	s.write(w, http.StatusOK, MessageResponse{Message: done})
}

func (s *Server) handleShutdown(w http.ResponseWriter, _ *http.Request) {
	s.write(w, http.StatusOK, MessageResponse{Message: "shutdown initiated"})
	if s.shutdownFunc != nil {
		go s.shutdownFunc()
	}
}

func (s *Server) write(w http.ResponseWriter, statusCode int, v any) {
	if err := writeJSON(w, statusCode, v); err != nil {
		slog.Error("failed to write control response",
			"component", s.component,
			"error", err,
		)
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		return fmt.Errorf("encode JSON response: %w", err)
	}
	return nil
}
