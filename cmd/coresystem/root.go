// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/holomush/coresystem/internal/config"
)

// serviceName labels logs and the control socket.
const serviceName = "core"

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the coresystem CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "coresystem",
		Short: "Core progression engine for game hosts",
		Long: `coresystem owns every player's Core: placement, damage and
restoration, XP and levels, archetype skills, rebirth mutations and
passive energy regeneration. Game hosts drive it over gRPC.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewValidateConfigCmd())
	cmd.AddCommand(NewSchemaCmd())
	cmd.AddCommand(NewExportCmd())
	cmd.AddCommand(NewImportCmd())
	cmd.AddCommand(NewCertsCmd())
	cmd.AddCommand(NewCtlCmd())

	return cmd
}

// loadConfig reads the --config file, the environment and the changed
// flags in fs.
func loadConfig(fs *pflag.FlagSet) (*config.Config, error) {
	return config.Load(configFile, fs)
}
