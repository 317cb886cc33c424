// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"fmt"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/coresystem/internal/store"
)

// migrator is the subset of store.Migrator the migrate commands use.
type migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Version() (uint, bool, error)
	Force(version int) error
	Pending() ([]uint, error)
	Close() error
}

// openMigrator opens the migrator for the configured database.
var openMigrator = func(cmd *cobra.Command) (migrator, error) {
	cfg, err := loadConfig(nil)
	if err != nil {
		return nil, err
	}
	if cfg.Store.DatabaseURL == "" {
		return nil, oops.Code("CONFIG_INVALID").Errorf("CORESYSTEM_DATABASE_URL is required")
	}
	cmd.Println("Connecting to database...")
	return store.NewMigrator(cfg.Store.DatabaseURL)
}

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL schema for Core records",
		Long: `Apply or roll back the core_records schema in the database named by
CORESYSTEM_DATABASE_URL. Without a subcommand, applies every pending migration.`,
		RunE: withMigrator(func(cmd *cobra.Command, m migrator, _ []string) error {
			return migrateUp(cmd, m)
		}),
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		Args:  cobra.NoArgs,
		RunE: withMigrator(func(cmd *cobra.Command, m migrator, _ []string) error {
			return migrateUp(cmd, m)
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back every migration (drops core_records)",
		Args:  cobra.NoArgs,
		RunE: withMigrator(func(cmd *cobra.Command, m migrator, _ []string) error {
			if err := m.Down(); err != nil {
				return err
			}
			cmd.Println("All migrations rolled back")
			return nil
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the current version and pending migrations",
		Args:  cobra.NoArgs,
		RunE: withMigrator(func(cmd *cobra.Command, m migrator, _ []string) error {
			return migrateStatus(cmd, m)
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "force <version>",
		Short: "Set the schema version without running migrations",
		Long: `Mark the database as being at <version> and clear the dirty flag.
Use after repairing a failed migration by hand.`,
		Args: cobra.ExactArgs(1),
		RunE: withMigrator(func(cmd *cobra.Command, m migrator, args []string) error {
			version, err := parseForceVersion(args[0])
			if err != nil {
				return err
			}
			if err := m.Force(version); err != nil {
				return err
			}
			cmd.Printf("Schema version forced to %d\n", version)
			return nil
		}),
	})
	return cmd
}

func withMigrator(fn func(*cobra.Command, migrator, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		m, err := openMigrator(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = m.Close() }()
		return fn(cmd, m, args)
	}
}

func migrateUp(cmd *cobra.Command, m migrator) error {
	pending, err := m.Pending()
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		cmd.Println("Schema is up to date")
		return nil
	}
	cmd.Printf("Applying %d migration(s)...\n", len(pending))
	if err := m.Up(); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "run migrations").Wrap(err)
	}
	cmd.Println("Migrations completed successfully")
	return nil
}

func migrateStatus(cmd *cobra.Command, m migrator) error {
	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	pending, err := m.Pending()
	if err != nil {
		return err
	}
	state := "clean"
	if dirty {
		state = "dirty"
	}
	cmd.Printf("Version: %d (%s)\n", version, state)
	if len(pending) == 0 {
		cmd.Println("Pending: none")
		return nil
	}
	names := make([]string, 0, len(pending))
	for _, v := range pending {
		name, err := store.MigrationName(v)
		if err != nil || name == "" {
			name = fmt.Sprint(v)
		}
		names = append(names, name)
	}
	cmd.Printf("Pending: %s\n", strings.Join(names, ", "))
	return nil
}

// parseForceVersion reads a schema version argument.
func parseForceVersion(s string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(strings.TrimSpace(s), "%d", &version); err != nil {
		return 0, oops.Code("INVALID_VERSION").With("input", s).Errorf("version must be an integer")
	}
	return version, nil
}
