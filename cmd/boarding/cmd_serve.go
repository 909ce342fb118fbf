package main

import (
	"github.com/spf13/cobra"

	"github.com/goliatone/go-boarding/internal/config"
	"github.com/goliatone/go-boarding/internal/server"
)

func (c *cli) serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the admin forms over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := c.cfg
			if addr != "" {
				cfg.Addr = addr
			}
			// SIGHUP re-reads the token so a signed-out server can resume.
			reload := server.WithTokenReload(func() (string, error) {
				fresh, err := config.Load(c.configPath)
				if err != nil {
					return "", err
				}
				return fresh.Token, nil
			})
			return server.Run(cmd.Context(), cfg, c.logger, reload)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides the config)")
	return cmd
}
