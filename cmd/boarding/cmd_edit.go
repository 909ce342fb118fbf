package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-boarding/internal/server"
	"github.com/goliatone/go-boarding/pkg/form"
	"github.com/goliatone/go-boarding/pkg/render"
	"github.com/goliatone/go-boarding/pkg/renderers/tui"
)

// editCmd builds "<entity> edit [id]", the terminal rendition of the entity
// form. Without an id a new record is created.
func (c *cli) editCmd(entity string) *cobra.Command {
	parent := &cobra.Command{
		Use:   entity,
		Short: fmt.Sprintf("Work with %s records", entity),
	}
	edit := &cobra.Command{
		Use:   "edit [id]",
		Short: fmt.Sprintf("Create or edit a %s in the terminal", entity),
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			srv, closeFn, err := server.Bootstrap(c.cfg, c.logger)
			if err != nil {
				return err
			}
			defer closeFn()

			ctx := cmd.Context()
			records, err := srv.Directory.Records(entity)
			if err != nil {
				return err
			}
			schema, err := srv.Entities.Schema(entity)
			if err != nil {
				return err
			}

			options := []form.Option{form.WithSubmit(records.Submit), form.WithLogger(c.logger), form.WithCancel(func() {})}
			if len(args) == 0 {
				options = append(options, form.WithRecord(nil))
			}
			container, err := form.New(entity, schema, options...)
			if err != nil {
				return err
			}
			if len(args) == 1 {
				if err := container.Load(ctx, records.Loader(args[0])); err != nil {
					return err
				}
			}

			renderer, err := tui.New(
				tui.WithOptionSource(srv.Directory),
				tui.WithUploader(srv.Uploads),
				tui.WithOutput(cmd.OutOrStdout()),
			)
			if err != nil {
				return err
			}
			saved, err := renderer.Fill(ctx, container)
			if errors.Is(err, tui.ErrDiscarded) {
				fmt.Fprintln(cmd.OutOrStdout(), "discarded")
				return nil
			}
			if err != nil {
				return err
			}
			id, _ := saved[schema.ID().Name()].(string)
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s saved\n", entity, id)
			return nil
		},
	}
	parent.AddCommand(edit, c.renderCmd(entity))
	return parent
}

// renderCmd prints the form of one record with a named renderer.
func (c *cli) renderCmd(entity string) *cobra.Command {
	var rendererName string
	cmd := &cobra.Command{
		Use:   "render [id]",
		Short: fmt.Sprintf("Print the %s form with the html or tui renderer", entity),
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			srv, closeFn, err := server.Bootstrap(c.cfg, c.logger)
			if err != nil {
				return err
			}
			defer closeFn()

			ctx := cmd.Context()
			records, err := srv.Directory.Records(entity)
			if err != nil {
				return err
			}
			schema, err := srv.Entities.Schema(entity)
			if err != nil {
				return err
			}
			container, err := form.New(entity, schema, form.WithLogger(c.logger))
			if err != nil {
				return err
			}
			var load form.LoadFunc
			if len(args) == 1 {
				load = records.Loader(args[0])
			}
			if err := container.Load(ctx, load); err != nil {
				return err
			}

			terminal, err := tui.New(tui.WithOutput(cmd.OutOrStdout()))
			if err != nil {
				return err
			}
			renderers := render.NewRegistry()
			renderers.MustRegister(srv.Renderer)
			renderers.MustRegister(terminal)
			renderer, err := renderers.Default(rendererName)
			if err != nil {
				return fmt.Errorf("%w (available: %s)", err, strings.Join(renderers.List(), ", "))
			}

			out, err := renderer.Render(ctx, container.View(), render.RenderOptions{
				BasePath:   c.cfg.BasePath,
				Locale:     c.cfg.Locale,
				Translator: srv.Messages,
			})
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	cmd.Flags().StringVarP(&rendererName, "renderer", "r", "", "renderer name (html when empty)")
	return cmd
}
