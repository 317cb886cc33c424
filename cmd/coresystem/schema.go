// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/coresystem/internal/definitions"
)

// NewSchemaCmd creates the schema subcommand.
func NewSchemaCmd() *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "schema [document]",
		Short: "Print or write the JSON Schema of the definition documents",
		Long: `With a document name (e.g. archetypes.yaml), prints its JSON Schema.
With --out, writes <name>.schema.json for every document into the directory.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				data, err := definitions.GenerateSchema(args[0])
				if err != nil {
					return err
				}
				cmd.Println(string(data))
				return nil
			}
			if outDir == "" {
				return oops.Code("INVALID_ARGS").Errorf("name a document or pass --out (documents: %s)",
					strings.Join(definitions.Documents(), ", "))
			}
			return writeSchemas(cmd, outDir)
		},
	}
	cmd.Flags().StringVar(&outDir, "out", "", "directory to write every schema into")
	return cmd
}

func writeSchemas(cmd *cobra.Command, dir string) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return oops.With("dir", dir).Wrapf(err, "create schema directory")
	}
	for _, doc := range definitions.Documents() {
		data, err := definitions.GenerateSchema(doc)
		if err != nil {
			return err
		}
		path := filepath.Join(dir, strings.TrimSuffix(doc, ".yaml")+".schema.json")
		if err := os.WriteFile(path, data, 0o600); err != nil {
			return oops.With("path", path).Wrapf(err, "write schema")
		}
		cmd.Printf("Generated %s\n", path)
	}
	return nil
}
