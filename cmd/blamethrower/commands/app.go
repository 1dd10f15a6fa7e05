// Package commands implements CLI command handlers for blamethrower.
package commands

import (
	"context"
	"log/slog"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/blamethrower/internal/config"
	"github.com/Sumatoshi-tech/blamethrower/internal/runner"
	"github.com/Sumatoshi-tech/blamethrower/pkg/input"
	"github.com/Sumatoshi-tech/blamethrower/pkg/observability"
	"github.com/Sumatoshi-tech/blamethrower/pkg/registry"
	"github.com/Sumatoshi-tech/blamethrower/pkg/version"
)

// App carries what every sub-command shares: configuration, telemetry
// providers, the source registry and the filesystem inputs are read from.
type App struct {
	// Fs is where input and output paths resolve. Defaults to the OS filesystem.
	Fs afero.Fs
	// NewRegistry builds the source registry. Defaults to registry.Default.
	NewRegistry func() (*registry.Registry, error)

	configPath string
	verbose    bool
	quiet      bool

	cfg       *config.Config
	registry  *registry.Registry
	providers observability.Providers
	shutdown  func(context.Context) error
}

// NewApp returns an App on the OS filesystem.
func NewApp() *App {
	return &App{Fs: afero.NewOsFs(), NewRegistry: registry.Default}
}

// NewRootCommand builds the blamethrower command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "blamethrower",
		Short: "Attribute static-analysis findings to the authors of the offending lines",
		Long: `blamethrower merges the findings of a static-analysis tool with blame
output from version control, then reports who owns the bugs.

Commands:
  merge     Write the merged per-line record stream
  stats     Aggregate per-author bug statistics
  list      List analyzers and repo readers
  mcp       Serve the stats tool over the Model Context Protocol`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&app.configPath, "config", "",
		"config file (default: .blamethrower.yaml in the working directory or $HOME)")
	rootCmd.PersistentFlags().BoolVarP(&app.verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVarP(&app.quiet, "quiet", "q", false, "suppress output")

	rootCmd.AddCommand(newMergeCommand(app))
	rootCmd.AddCommand(newStatsCommand(app))
	rootCmd.AddCommand(newListCommand(app))
	rootCmd.AddCommand(newMCPCommand(app))

	return rootCmd
}

// Close flushes telemetry. It is safe to call when no command ran.
func (a *App) Close(ctx context.Context) error {
	if a.shutdown == nil {
		return nil
	}

	shutdown := a.shutdown
	a.shutdown = nil

	return shutdown(ctx)
}

// setup checks the registry, loads configuration and starts telemetry for
// mode, in that order, so a failure leaves nothing to shut down.
func (a *App) setup(cmd *cobra.Command, mode observability.AppMode) error {
	newRegistry := a.NewRegistry
	if newRegistry == nil {
		newRegistry = registry.Default
	}

	reg, err := newRegistry()
	if err != nil {
		return err
	}

	cfg, err := config.LoadConfig(a.configPath)
	if err != nil {
		return err
	}

	obsCfg := cfg.Observability(mode, version.Version)
	obsCfg.LogOutput = cmd.ErrOrStderr()

	switch {
	case a.verbose:
		obsCfg.LogLevel = slog.LevelDebug
	case a.quiet:
		obsCfg.LogLevel = slog.LevelError
	}

	providers, err := observability.Init(obsCfg)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.registry = reg
	a.providers = providers
	a.shutdown = providers.Shutdown

	return nil
}

// newRunner builds a runner reading from the App filesystem and the
// command's stdin.
func (a *App) newRunner(cmd *cobra.Command, metrics *observability.RunMetrics) *runner.Runner {
	return runner.New(runner.Deps{
		Registry: a.registry,
		Opener:   a.opener(cmd),
		Logger:   a.providers.Logger,
		Tracer:   a.providers.Tracer,
		Metrics:  metrics,
	})
}

func (a *App) opener(cmd *cobra.Command) input.Opener {
	return input.Opener{Fs: a.Fs, Stdin: cmd.InOrStdin(), Stdout: cmd.OutOrStdout()}
}

func (a *App) runMetrics() *observability.RunMetrics {
	metrics, err := observability.NewRunMetrics(a.providers.Meter)
	if err != nil {
		a.providers.Logger.Warn("run metrics disabled", "error", err)

		return nil
	}

	return metrics
}
