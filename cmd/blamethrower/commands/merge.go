package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/blamethrower/internal/runner"
	"github.com/Sumatoshi-tech/blamethrower/pkg/input"
	"github.com/Sumatoshi-tech/blamethrower/pkg/observability"
)

// MergeCommand holds the flags of the merge command.
type MergeCommand struct {
	app     *App
	sources sourceFlags
	format  string
	output  string
}

func newMergeCommand(app *App) *cobra.Command {
	mc := &MergeCommand{app: app}

	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Merge findings with blame into one record per line",
		Long: `Merge reads analyzer findings and blame output and writes one record per
source line: filename, line number, bug type, severity and author.

Example:
  pylint -iy -rn -f parseable src | blamethrower merge -a pylint -b - -r git --blame blame.txt`,
		Args: cobra.NoArgs,
		RunE: mc.run,
	}

	mc.sources.register(cmd)
	cmd.Flags().StringVar(&mc.format, "format", string(runner.FormatTSV), "record format: tsv, ndjson")
	cmd.Flags().StringVar(&mc.output, "output", input.Stdio, `output path ("-" for stdout; .gz .lz4 compressed)`)

	return cmd
}

func (mc *MergeCommand) run(cmd *cobra.Command, _ []string) error {
	format, err := runner.ParseRecordFormat(mc.format)
	if err != nil {
		return err
	}

	err = mc.app.setup(cmd, observability.ModeCLI)
	if err != nil {
		return err
	}

	src, opts, err := mc.sources.resolve(cmd, mc.app.cfg)
	if err != nil {
		return err
	}

	w, err := mc.app.opener(cmd).Create(mc.output)
	if err != nil {
		return fmt.Errorf("output: %w", err)
	}

	_, runErr := mc.app.newRunner(cmd, mc.app.runMetrics()).
		Run(cmd.Context(), "merge", src, opts, runner.WriteRecords(w, format))

	return errors.Join(runErr, w.Close())
}
