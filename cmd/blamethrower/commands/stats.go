package commands

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/blamethrower/internal/runner"
	"github.com/Sumatoshi-tech/blamethrower/pkg/input"
	"github.com/Sumatoshi-tech/blamethrower/pkg/observability"
	"github.com/Sumatoshi-tech/blamethrower/pkg/report"
	"github.com/Sumatoshi-tech/blamethrower/pkg/stats"
)

// StatsCommand holds the flags of the stats command.
type StatsCommand struct {
	app         *App
	sources     sourceFlags
	records     string
	format      string
	output      string
	maxAuthors  int
	noColor     bool
	checkSchema bool
}

func newStatsCommand(app *App) *cobra.Command {
	sc := &StatsCommand{app: app}

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Report per-author bug statistics",
		Long: `Stats merges findings with blame, or replays records written by merge,
and reports files, lines and bugs per author.

Examples:
  blamethrower stats -a findbugs -b bugs.xml -o prefix=src/main/java -r git --blame blame.txt
  blamethrower stats --records records.tsv.gz --format json`,
		Args: cobra.NoArgs,
		RunE: sc.run,
	}

	sc.sources.register(cmd)
	cmd.Flags().StringVar(&sc.records, "records", "", "replay merged TSV records instead of merging")
	cmd.Flags().StringVar(&sc.format, "format", "", "output format: text, json, yaml, plot (default from config)")
	cmd.Flags().StringVar(&sc.output, "output", input.Stdio, `output path ("-" for stdout)`)
	cmd.Flags().IntVar(&sc.maxAuthors, "max-authors", 0, "authors shown in text and plot output (0 = config default)")
	cmd.Flags().BoolVar(&sc.noColor, "no-color", false, "disable colored text output")
	cmd.Flags().BoolVar(&sc.checkSchema, "check-schema", false, "validate the JSON rendering against the stats schema")

	return cmd
}

func (sc *StatsCommand) run(cmd *cobra.Command, _ []string) error {
	err := sc.app.setup(cmd, observability.ModeCLI)
	if err != nil {
		return err
	}

	cfg := sc.app.cfg

	formatName := cfg.Output.Format
	if sc.format != "" {
		formatName = sc.format
	}

	format, err := report.ParseFormat(formatName)
	if err != nil {
		return err
	}

	src, opts, err := sc.sources.resolve(cmd, cfg)
	if err != nil {
		return err
	}

	if sc.records != "" {
		src.Records = sc.records
	}

	result, _, err := sc.app.newRunner(cmd, sc.app.runMetrics()).Stats(cmd.Context(), src, opts)
	if err != nil {
		return err
	}

	if sc.checkSchema {
		err = checkSchema(result)
		if err != nil {
			return err
		}
	}

	renderOpts := report.Options{NoColor: cfg.Output.NoColor, MaxAuthors: cfg.Output.MaxAuthors}

	if cmd.Flags().Changed("no-color") {
		renderOpts.NoColor = sc.noColor
	}

	if sc.maxAuthors > 0 {
		renderOpts.MaxAuthors = sc.maxAuthors
	}

	w, err := sc.app.opener(cmd).Create(sc.output)
	if err != nil {
		return fmt.Errorf("output: %w", err)
	}

	return errors.Join(report.Render(w, format, result, renderOpts), w.Close())
}

func checkSchema(result stats.Result) error {
	var buf bytes.Buffer

	err := report.WriteJSON(&buf, result)
	if err != nil {
		return err
	}

	return report.ValidateJSON(buf.Bytes())
}
