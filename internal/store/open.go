// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package store

import (
	"context"
	"strings"

	"github.com/samber/oops"

	"github.com/holomush/coresystem/internal/core"
)

// Backend names accepted by OpenAdapter.
const (
	BackendMemory   = "memory"
	BackendYAML     = "yaml"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Backends lists the supported backend names.
func Backends() []string {
	return []string{BackendMemory, BackendYAML, BackendSQLite, BackendPostgres}
}

// AdapterConfig selects and configures a persistence backend.
type AdapterConfig struct {
	Backend     string
	Dir         string
	SQLitePath  string
	DatabaseURL string
}

// OpenAdapter opens the configured backend.
func OpenAdapter(ctx context.Context, cfg AdapterConfig) (Adapter, error) {
	switch strings.ToLower(cfg.Backend) {
	case BackendMemory:
		return NewMemoryAdapter(), nil
	case BackendYAML, "":
		return NewYAMLFileAdapter(cfg.Dir)
	case BackendSQLite:
		return OpenSQLite(cfg.SQLitePath)
	case BackendPostgres:
		if cfg.DatabaseURL == "" {
			return nil, oops.Code(core.CodeStoreFailed).Errorf("postgres backend requires a database URL")
		}
		return OpenPostgres(ctx, cfg.DatabaseURL)
	default:
		return nil, oops.Code(core.CodeStoreFailed).
			With("backend", cfg.Backend).
			Errorf("unknown store backend %q", cfg.Backend)
	}
}
