package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-boarding/internal/server"
	"github.com/goliatone/go-boarding/pkg/entities"
	"github.com/goliatone/go-boarding/pkg/form"
	"github.com/goliatone/go-boarding/pkg/service"
)

func (c *cli) settingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Read and change the boarding settings",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the current settings as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			srv, closeFn, err := server.Bootstrap(c.cfg, c.logger)
			if err != nil {
				return err
			}
			defer closeFn()

			settings, err := srv.Settings.Find(cmd.Context()).Unwrap()
			if err != nil {
				return err
			}
			out, err := yaml.Marshal(settings.Map())
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}

	apply := &cobra.Command{
		Use:   "apply [theme]",
		Short: "Save a new theme into the settings and apply it",
		Long: `apply reads the current settings, replaces the theme and saves the whole
record. The other settings are kept as they are.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			srv, closeFn, err := server.Bootstrap(c.cfg, c.logger)
			if err != nil {
				return err
			}
			defer closeFn()

			ctx := cmd.Context()
			current, err := srv.Settings.Find(ctx).Unwrap()
			if err != nil {
				return err
			}
			schema, err := srv.Entities.Schema(entities.Settings)
			if err != nil {
				return err
			}
			values := current.Map()
			values["theme"] = args[0]

			container, err := form.New(entities.Settings, schema,
				form.WithRecord(values),
				form.WithLogger(c.logger),
				form.WithSubmit(func(ctx context.Context, _ string, data map[string]any) (map[string]any, error) {
					next := service.SettingsFromMap(data)
					if _, err := srv.Settings.Save(ctx, next).Unwrap(); err != nil {
						return nil, err
					}
					return next.Map(), srv.Settings.ApplyTheme(ctx, next.Theme)
				}),
			)
			if err != nil {
				return err
			}
			if _, err := container.Submit(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "theme %s applied\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(show, apply)
	return cmd
}
