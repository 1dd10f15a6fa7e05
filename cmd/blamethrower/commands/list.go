package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/blamethrower/pkg/observability"
	"github.com/Sumatoshi-tech/blamethrower/pkg/pipeline"
	"github.com/Sumatoshi-tech/blamethrower/pkg/registry"
)

func newListCommand(app *App) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List analyzers and repo readers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := app.setup(cmd, observability.ModeCLI)
			if err != nil {
				return err
			}

			descriptors := app.registry.All()

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")

				return enc.Encode(descriptors)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), sourceTable(descriptors))

			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")

	return cmd
}

func sourceTable(descriptors []registry.Descriptor) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"Kind", "Name", "Produce input with", "Options"})

	for _, desc := range descriptors {
		tw.AppendRow(table.Row{desc.Kind, desc.Name, desc.Help, formatOptions(desc.Options)})
	}

	return tw.Render()
}

func formatOptions(options []pipeline.ConfigurationOption) string {
	if len(options) == 0 {
		return "-"
	}

	lines := make([]string, 0, len(options))
	for _, opt := range options {
		lines = append(lines, fmt.Sprintf("%s (%s, default %s): %s", opt.Name, opt.Type, opt.FormatDefault(), opt.Description))
	}

	return strings.Join(lines, "\n")
}
