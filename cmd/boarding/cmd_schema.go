package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-boarding/pkg/entities"
	"github.com/goliatone/go-boarding/pkg/schemaexport"
)

func (c *cli) schemaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Inspect the form schemas",
	}

	var (
		output  string
		version string
	)
	export := &cobra.Command{
		Use:   "export",
		Short: "Write the form schemas as an OpenAPI document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			registry := entities.NewRegistry(c.cfg.Themes...)
			doc, err := schemaexport.Document("Boarding", version, registry.Schemas())
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(doc, "", "  ")
			if err != nil {
				return err
			}
			data = append(data, '\n')
			if output == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return err
			}
			c.logger.Info("schema written")
			return nil
		},
	}
	export.Flags().StringVarP(&output, "output", "o", "", "output file (stdout if empty)")
	export.Flags().StringVar(&version, "version", "1.0.0", "document version")

	cmd.AddCommand(export)
	return cmd
}
