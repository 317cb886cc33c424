// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/coresystem/internal/config"
	"github.com/holomush/coresystem/internal/store"
)

// NewExportCmd creates the export subcommand.
func NewExportCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every Core record to a compressed archive",
		Long: `Reads every record from the configured backend and writes them as
zstd-compressed JSON lines. Stop the engine first or records changed after
the last flush are missed.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd.Flags())
			if err != nil {
				return err
			}
			n, err := runExport(cmd.Context(), cfg, out)
			if err != nil {
				return err
			}
			cmd.Printf("Exported %d record(s) to %s\n", n, out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "cores.jsonl.zst", "archive to write")
	config.RegisterFlags(cmd.Flags())
	return cmd
}

// NewImportCmd creates the import subcommand.
func NewImportCmd() *cobra.Command {
	var in string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load Core records from an export archive",
		Long: `Saves every record in an archive written by export into the configured
backend, replacing records with the same actor id. Use it to move records
between backends.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd.Flags())
			if err != nil {
				return err
			}
			n, err := runImport(cmd.Context(), cfg, in)
			if err != nil {
				return err
			}
			cmd.Printf("Imported %d record(s) from %s\n", n, in)
			return nil
		},
	}
	cmd.Flags().StringVarP(&in, "in", "i", "cores.jsonl.zst", "archive to read")
	config.RegisterFlags(cmd.Flags())
	return cmd
}

func runExport(ctx context.Context, cfg *config.Config, path string) (n int, err error) {
	adapter, err := store.OpenAdapter(ctx, cfg.StoreAdapter())
	if err != nil {
		return 0, err
	}
	defer func() { _ = adapter.Close() }()

	f, err := os.OpenFile(filepath.Clean(path), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return 0, oops.With("path", path).Wrapf(err, "create archive")
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = oops.With("path", path).Wrapf(closeErr, "close archive")
		}
	}()
	return store.Export(ctx, adapter, f)
}

func runImport(ctx context.Context, cfg *config.Config, path string) (int, error) {
	adapter, err := store.OpenAdapter(ctx, cfg.StoreAdapter())
	if err != nil {
		return 0, err
	}
	defer func() { _ = adapter.Close() }()

	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return 0, oops.With("path", path).Wrapf(err, "open archive")
	}
	defer func() { _ = f.Close() }()
	return store.Import(ctx, adapter, f)
}
