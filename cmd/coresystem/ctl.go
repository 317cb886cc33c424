// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	cryptotls "crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/coresystem/internal/control"
	"github.com/holomush/coresystem/internal/core"
	coregrpc "github.com/holomush/coresystem/internal/grpc"
	coretls "github.com/holomush/coresystem/internal/tls"
)

// ctlTimeout bounds each operator call.
const ctlTimeout = 30 * time.Second

// NewCtlCmd creates the ctl subcommand.
func NewCtlCmd() *cobra.Command {
	var socket string
	cmd := &cobra.Command{
		Use:   "ctl",
		Short: "Operate a running engine",
		Long:  `Query and control a running engine through its operator socket.`,
	}
	cmd.PersistentFlags().StringVar(&socket, "socket", "", "operator socket path (default: XDG runtime dir)")

	client := func() (*control.Client, error) {
		path := socket
		if path == "" {
			var err error
			if path, err = control.SocketPath(serviceName); err != nil {
				return nil, err
			}
		}
		return control.NewClient(path), nil
	}

	var jsonOutput bool
	status := &cobra.Command{
		Use:   "status",
		Short: "Show engine health, uptime and record counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := client()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), ctlTimeout)
			defer cancel()
			st, err := c.Status(ctx)
			if err != nil {
				return err
			}
			if jsonOutput {
				data, err := json.MarshalIndent(st, "", "  ")
				if err != nil {
					return oops.Wrapf(err, "format status")
				}
				cmd.Println(string(data))
				return nil
			}
			writeStatusTable(cmd.OutOrStdout(), st)
			return nil
		},
	}
	status.Flags().BoolVar(&jsonOutput, "json", false, "output status as JSON")
	cmd.AddCommand(status)

	for _, action := range []struct {
		use, short string
		call       func(*control.Client, context.Context) (string, error)
	}{
		{"reload", "Reload definitions without restarting", (*control.Client).Reload},
		{"flush", "Persist every cached record now", (*control.Client).Flush},
		{"shutdown", "Flush records and stop the engine", (*control.Client).Shutdown},
	} {
		cmd.AddCommand(&cobra.Command{
			Use:   action.use,
			Short: action.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				c, err := client()
				if err != nil {
					return err
				}
				ctx, cancel := context.WithTimeout(cmd.Context(), ctlTimeout)
				defer cancel()
				msg, err := action.call(c, ctx)
				if err != nil {
					return err
				}
				cmd.Println(msg)
				return nil
			},
		})
	}

	cmd.AddCommand(newInspectCmd())
	return cmd
}

func writeStatusTable(w io.Writer, st control.StatusResponse) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "COMPONENT\tRUNNING\tPID\tUPTIME\tONLINE\tCACHED\n")
	_, _ = fmt.Fprintf(tw, "%s\t%t\t%d\t%s\t%d\t%d\n",
		st.Component, st.Running, st.PID,
		(time.Duration(st.UptimeSeconds) * time.Second).String(),
		st.Online, st.Cached)
	_ = tw.Flush()
}

// inspectOptions holds the ctl inspect flags.
type inspectOptions struct {
	client     string
	serverName string
}

// newInspectCmd creates ctl inspect, which reads one actor's Core through
// the host control API.
func newInspectCmd() *cobra.Command {
	opts := &inspectOptions{}
	cmd := &cobra.Command{
		Use:   "inspect <actor-id>",
		Short: "Show one actor's Core as the host sees it",
		Long: `Reads an actor's Core status over the host control API. The engine
checks read access for the calling host, so grant "host:default" a role
with read:core:* (access.roles) before using it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := core.ParseActorID(args[0])
			if err != nil {
				return err
			}
			cfg, err := loadConfig(nil)
			if err != nil {
				return err
			}
			var tlsConfig *cryptotls.Config
			if cfg.GRPC.TLS {
				dir, err := certsDir(cfg)
				if err != nil {
					return err
				}
				if tlsConfig, err = coretls.ClientConfig(dir, opts.client, opts.serverName); err != nil {
					return err
				}
			}
			client, err := coregrpc.NewClient(coregrpc.ClientConfig{Address: cfg.GRPC.Address, TLSConfig: tlsConfig})
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			ctx, cancel := context.WithTimeout(cmd.Context(), ctlTimeout)
			defer cancel()
			fields, err := client.Status(ctx, actor, nil)
			if err != nil {
				return err
			}
			writeFields(cmd.OutOrStdout(), fields)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.client, "client", "host", "client certificate name")
	cmd.Flags().StringVar(&opts.serverName, "server-name", "localhost", "expected engine certificate name")
	return cmd
}

func writeFields(w io.Writer, fields map[string]any) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, k := range keys {
		v := fields[k]
		if list, ok := v.([]any); ok {
			parts := make([]string, 0, len(list))
			for _, item := range list {
				parts = append(parts, fmt.Sprint(item))
			}
			v = strings.Join(parts, ", ")
		}
		_, _ = fmt.Fprintf(tw, "%s\t%v\n", k, v)
	}
	_ = tw.Flush()
}
