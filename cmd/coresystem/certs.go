// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"github.com/spf13/cobra"

	coretls "github.com/holomush/coresystem/internal/tls"
	"github.com/holomush/coresystem/internal/xdg"
)

// certsOptions holds the certs generate flags.
type certsOptions struct {
	dir     string
	cluster string
	hosts   []string
	clients []string
}

// NewCertsCmd creates the certs subcommand.
func NewCertsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "certs",
		Short: "Manage mutual-TLS certificates for the control API",
	}

	opts := &certsOptions{}
	generate := &cobra.Command{
		Use:   "generate",
		Short: "Create a CA, the engine certificate and host client certificates",
		Long: `Creates a root CA, a server certificate for the engine (valid for
localhost plus --host values) and one client certificate per --client.
Copy the CA and a client certificate to each game host.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCertsGenerate(cmd, opts)
		},
	}
	generate.Flags().StringVar(&opts.dir, "dir", "", "certificate directory (default: XDG config dir)")
	generate.Flags().StringVar(&opts.cluster, "cluster", "default", "name embedded in the CA common name")
	generate.Flags().StringSliceVar(&opts.hosts, "host", nil, "extra DNS names or IPs for the engine certificate")
	generate.Flags().StringSliceVar(&opts.clients, "client", []string{"host"}, "client certificate names")
	cmd.AddCommand(generate)
	return cmd
}

func runCertsGenerate(cmd *cobra.Command, opts *certsOptions) error {
	dir := opts.dir
	if dir == "" {
		var err error
		if dir, err = xdg.CertsDir(); err != nil {
			return err
		}
	}

	ca, err := coretls.GenerateCA(opts.cluster)
	if err != nil {
		return err
	}
	server, err := coretls.GenerateServerCert(ca, serviceName, opts.hosts...)
	if err != nil {
		return err
	}
	certs := []*coretls.Cert{server}
	for _, name := range opts.clients {
		c, err := coretls.GenerateClientCert(ca, name)
		if err != nil {
			return err
		}
		certs = append(certs, c)
	}
	if err := coretls.Save(dir, ca, certs...); err != nil {
		return err
	}
	for _, c := range certs {
		cmd.Printf("Wrote %s.crt\n", c.Name)
	}
	cmd.Printf("Certificates saved to %s\n", dir)
	return nil
}
