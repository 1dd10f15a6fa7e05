package commands

import (
	"maps"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/blamethrower/internal/config"
	"github.com/Sumatoshi-tech/blamethrower/internal/runner"
	"github.com/Sumatoshi-tech/blamethrower/pkg/pipeline"
)

// sourceFlags are the input selection flags shared by merge and stats.
type sourceFlags struct {
	analyzer        string
	analyzerOptions []string
	bugs            string
	repo            string
	repoOptions     []string
	blame           string
	repoPath        string
	prefix          string
	noValidate      bool
	skipVendored    bool
}

func (sf *sourceFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()

	flags.StringVarP(&sf.analyzer, "analyzer", "a", "", "analyzer that produced --bugs (see: blamethrower list)")
	flags.StringArrayVarP(&sf.analyzerOptions, "option", "o", nil, "analyzer option as key=value, repeatable")
	flags.StringVarP(&sf.bugs, "bugs", "b", "", `analyzer output path ("-" for stdin; .gz .bz2 .lz4 decompressed)`)
	flags.StringVarP(&sf.repo, "repo", "r", "", "repo reader that produced --blame")
	flags.StringArrayVar(&sf.repoOptions, "repo-option", nil, "repo reader option as key=value, repeatable")
	flags.StringVar(&sf.blame, "blame", "", `blame output path ("-" for stdin)`)
	flags.StringVar(&sf.repoPath, "repo-path", "", "blame HEAD of this git repository instead of reading --blame")
	flags.StringVar(&sf.prefix, "prefix", "", "with --repo-path, only blame paths under this prefix")
	flags.BoolVar(&sf.noValidate, "no-validate", false, "skip record validation")
	flags.BoolVar(&sf.skipVendored, "skip-vendored", false, "drop vendored, documentation and configuration files")
}

// resolve merges the flags over cfg. Flags win; analyzer and repo options
// from the config file are kept unless the same key is given on the
// command line.
func (sf *sourceFlags) resolve(cmd *cobra.Command, cfg *config.Config) (runner.Sources, runner.Options, error) {
	flags := cmd.Flags()

	analyzerOptions, err := mergeOptions(cfg.Analyzer.Options, sf.analyzerOptions)
	if err != nil {
		return runner.Sources{}, runner.Options{}, err
	}

	repoOptions, err := mergeOptions(cfg.Repo.Options, sf.repoOptions)
	if err != nil {
		return runner.Sources{}, runner.Options{}, err
	}

	src := runner.Sources{
		Analyzer:        cfg.Analyzer.Name,
		AnalyzerOptions: analyzerOptions,
		Bugs:            sf.bugs,
		Repo:            cfg.Repo.Name,
		RepoOptions:     repoOptions,
		Blame:           sf.blame,
		RepoPath:        sf.repoPath,
		BlamePrefix:     sf.prefix,
	}

	if flags.Changed("analyzer") {
		src.Analyzer = sf.analyzer
	}

	if flags.Changed("repo") {
		src.Repo = sf.repo
	}

	opts := runner.Options{Validate: cfg.Validate, SkipVendored: cfg.Filter.SkipVendored}

	if flags.Changed("no-validate") {
		opts.Validate = !sf.noValidate
	}

	if flags.Changed("skip-vendored") {
		opts.SkipVendored = sf.skipVendored
	}

	return src, opts, nil
}

func mergeOptions(base map[string]string, assignments []string) (map[string]string, error) {
	given, err := pipeline.ParseAssignments(assignments)
	if err != nil {
		return nil, err
	}

	merged := maps.Clone(base)
	if merged == nil {
		merged = make(map[string]string, len(given))
	}

	maps.Copy(merged, given)

	return merged, nil
}
