// Package runner wires registered sources, inputs, the merge engine and the
// statistics aggregator into one observable run.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Sumatoshi-tech/blamethrower/pkg/alg/seq"
	"github.com/Sumatoshi-tech/blamethrower/pkg/filter"
	"github.com/Sumatoshi-tech/blamethrower/pkg/gitlib"
	"github.com/Sumatoshi-tech/blamethrower/pkg/input"
	"github.com/Sumatoshi-tech/blamethrower/pkg/merge"
	"github.com/Sumatoshi-tech/blamethrower/pkg/observability"
	"github.com/Sumatoshi-tech/blamethrower/pkg/record"
	"github.com/Sumatoshi-tech/blamethrower/pkg/registry"
	"github.com/Sumatoshi-tech/blamethrower/pkg/stats"
)

// Source selection errors.
var (
	ErrNoInput             = errors.New("no input: give findings, blame output, a repository path or records")
	ErrMissingAnalyzer     = errors.New("findings given without an analyzer name")
	ErrMissingRepoReader   = errors.New("blame output given without a repo reader name")
	ErrConflictingSources  = errors.New("conflicting sources")
	ErrAuthorshipFromStdin = errors.New("findings and blame output cannot both be read from stdin")
)

const (
	spanPrefix    = "blamethrower."
	eventPhantoms = "phantom findings"
)

const (
	attrCommand  = attribute.Key("blamethrower.command")
	attrEmitted  = attribute.Key("blamethrower.emitted")
	attrPhantoms = attribute.Key("blamethrower.phantoms")
)

func noError() error { return nil }

// Sources selects the inputs of one run. Paths are opened through the
// runner's input.Opener; "-" is stdin.
type Sources struct {
	// Analyzer names the finding source that parses Bugs.
	Analyzer        string
	AnalyzerOptions map[string]string
	Bugs            string

	// Repo names the authorship source that parses Blame.
	Repo        string
	RepoOptions map[string]string
	Blame       string

	// RepoPath blames HEAD of a git repository instead of reading Blame.
	RepoPath string
	// BlamePrefix limits RepoPath blame to paths with this prefix.
	BlamePrefix string

	// Records replays an already merged TSV stream. It excludes every other source.
	Records string
}

// Options toggles per-run behavior.
type Options struct {
	// Validate asserts the record invariants on every input element.
	Validate bool
	// SkipVendored drops records of vendored, documentation and
	// configuration files after the merge.
	SkipVendored bool
}

// Consumer receives the merged record stream. It must range over records at
// most once.
type Consumer func(records iter.Seq[record.Record]) error

// Outcome describes a finished run.
type Outcome struct {
	RunID    string
	Summary  merge.Summary
	Duration time.Duration
}

// Deps holds injectable dependencies. Zero-value fields use production
// defaults, except Registry which is required. A nil Metrics disables run
// metrics.
type Deps struct {
	Registry *registry.Registry
	Opener   input.Opener
	Logger   *slog.Logger
	Tracer   trace.Tracer
	Metrics  *observability.RunMetrics
}

// Runner executes merge and stats runs.
type Runner struct {
	registry *registry.Registry
	opener   input.Opener
	logger   *slog.Logger
	tracer   trace.Tracer
	metrics  *observability.RunMetrics
}

// New creates a Runner.
func New(deps Deps) *Runner {
	run := &Runner{
		registry: deps.Registry,
		logger:   deps.Logger,
		tracer:   deps.Tracer,
		metrics:  deps.Metrics,
	}

	if deps.Opener.Fs == nil {
		run.opener = input.NewOSOpener()
	} else {
		run.opener = deps.Opener
	}

	if run.logger == nil {
		run.logger = slog.Default()
	}

	if run.tracer == nil {
		run.tracer = nooptrace.NewTracerProvider().Tracer("blamethrower")
	}

	return run
}

// Registry returns the registry sources are looked up in.
func (r *Runner) Registry() *registry.Registry {
	return r.registry
}

// Run merges the selected sources and hands the result to consume. Input
// errors, validation failures and consumer errors are joined into the
// returned error; a failing input stops the merged stream where it failed.
// Phantom findings of a fully drained stream are logged as a warning and
// never fail the run.
func (r *Runner) Run(ctx context.Context, command string, src Sources, opts Options, consume Consumer) (Outcome, error) {
	out := Outcome{RunID: uuid.NewString()}
	logger := r.logger.With(observability.AttrRunID, out.RunID, "command", command)

	ctx, span := r.tracer.Start(ctx, spanPrefix+command, trace.WithAttributes(attrCommand.String(command)))
	defer span.End()

	start := time.Now()
	err := r.run(ctx, logger, src, opts, consume, &out)
	out.Duration = time.Since(start)

	status := observability.StatusOK
	if err != nil {
		status = observability.StatusError

		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	span.SetAttributes(attrEmitted.Int(out.Summary.Emitted), attrPhantoms.Int(out.Summary.Phantoms))

	r.metrics.RecordRun(ctx, observability.RunStats{
		Command:    command,
		Status:     status,
		Duration:   out.Duration,
		Attributed: out.Summary.Attributed - out.Summary.Synthetic,
		Synthetic:  out.Summary.Synthetic,
		Phantoms:   out.Summary.Phantoms,
	})

	if err != nil {
		logger.DebugContext(ctx, "run failed", "error", err, "duration", out.Duration)

		return out, err
	}

	logger.InfoContext(ctx, "run finished",
		"emitted", out.Summary.Emitted,
		"attributed", out.Summary.Attributed,
		"synthetic", out.Summary.Synthetic,
		"phantoms", out.Summary.Phantoms,
		"duration", out.Duration,
	)

	return out, nil
}

// Stats runs the merge, or replays Records, and aggregates the result.
func (r *Runner) Stats(ctx context.Context, src Sources, opts Options) (stats.Result, Outcome, error) {
	var result stats.Result

	out, err := r.Run(ctx, "stats", src, opts, func(records iter.Seq[record.Record]) error {
		result = stats.Compute(records)

		return nil
	})
	if err != nil {
		return stats.Result{}, out, err
	}

	return result, out, nil
}

func (r *Runner) run(
	ctx context.Context, logger *slog.Logger, src Sources, opts Options, consume Consumer, out *Outcome,
) error {
	if err := checkSources(src); err != nil {
		return err
	}

	var closers []io.Closer

	defer func() {
		for _, c := range closers {
			if err := c.Close(); err != nil {
				logger.WarnContext(ctx, "close input", "error", err)
			}
		}
	}()

	if src.Records != "" {
		return r.replay(ctx, src.Records, opts, consume, &closers)
	}

	findings, findingsErr, err := r.openFindings(src, opts, &closers)
	if err != nil {
		return err
	}

	authorship, authorshipErr, err := r.openAuthorship(ctx, src, opts, &closers)
	if err != nil {
		return err
	}

	span := trace.SpanFromContext(ctx)
	stream := merge.Merge(findings, authorship,
		merge.AbortOn(findingsErr, authorshipErr),
		merge.OnPhantoms(func(n int) {
			span.AddEvent(eventPhantoms, trace.WithAttributes(attrPhantoms.Int(n)))
		}),
	)

	records := stream.Records()
	if opts.SkipVendored {
		records = filter.SkipVendored(records)
	}

	consumeErr := consume(untilDone(ctx, records))
	out.Summary = stream.Summary()

	if phantomErr := out.Summary.Err(); phantomErr != nil {
		logger.WarnContext(ctx, "unattributed findings", "error", phantomErr, "count", out.Summary.Phantoms)
	}

	return errors.Join(findingsErr(), authorshipErr(), ctx.Err(), consumeErr)
}

func (r *Runner) replay(ctx context.Context, path string, opts Options, consume Consumer, closers *[]io.Closer) error {
	rc, err := r.opener.Open(path)
	if err != nil {
		return fmt.Errorf("records: %w", err)
	}

	*closers = append(*closers, rc)

	items := record.Read(rc)
	if opts.Validate {
		items = record.CheckRecords(items)
	}

	records, recordsErr := seq.Halt(items)
	if opts.SkipVendored {
		records = filter.SkipVendored(records)
	}

	consumeErr := consume(untilDone(ctx, records))

	if err := recordsErr(); err != nil {
		return errors.Join(fmt.Errorf("records %s: %w", path, err), consumeErr)
	}

	return errors.Join(ctx.Err(), consumeErr)
}

func (r *Runner) openFindings(
	src Sources, opts Options, closers *[]io.Closer,
) (iter.Seq[record.Record], func() error, error) {
	if src.Bugs == "" {
		return nil, noError, nil
	}

	analyzer, err := r.registry.Analyzer(src.Analyzer)
	if err != nil {
		return nil, nil, err
	}

	rc, err := r.opener.Open(src.Bugs)
	if err != nil {
		return nil, nil, fmt.Errorf("findings: %w", err)
	}

	*closers = append(*closers, rc)

	items, err := analyzer.Open(rc, src.AnalyzerOptions)
	if err != nil {
		return nil, nil, err
	}

	if opts.Validate {
		items = record.CheckFindings(items)
	}

	findings, findingsErr := seq.Halt(items)

	return findings, findingsErr, nil
}

func (r *Runner) openAuthorship(
	ctx context.Context, src Sources, opts Options, closers *[]io.Closer,
) (iter.Seq[record.FileAuthors], func() error, error) {
	var items iter.Seq2[record.FileAuthors, error]

	switch {
	case src.RepoPath != "":
		items = gitlib.BlameHead(ctx, src.RepoPath, gitlib.BlameOptions{
			Prefix:       src.BlamePrefix,
			SkipVendored: opts.SkipVendored,
		})
	case src.Blame != "":
		reader, err := r.registry.RepoReader(src.Repo)
		if err != nil {
			return nil, nil, err
		}

		rc, err := r.opener.Open(src.Blame)
		if err != nil {
			return nil, nil, fmt.Errorf("blame: %w", err)
		}

		*closers = append(*closers, rc)

		items, err = reader.Open(rc, src.RepoOptions)
		if err != nil {
			return nil, nil, err
		}
	default:
		return nil, noError, nil
	}

	if opts.Validate {
		items = record.CheckAuthorship(items)
	}

	authorship, authorshipErr := seq.Halt(items)

	return authorship, authorshipErr, nil
}

func checkSources(src Sources) error {
	switch {
	case src.Records != "" && (src.Bugs != "" || src.Blame != "" || src.RepoPath != ""):
		return fmt.Errorf("%w: records replay excludes findings and blame", ErrConflictingSources)
	case src.Blame != "" && src.RepoPath != "":
		return fmt.Errorf("%w: blame output and repository path", ErrConflictingSources)
	case src.Records == "" && src.Bugs == "" && src.Blame == "" && src.RepoPath == "":
		return ErrNoInput
	case src.Bugs != "" && src.Analyzer == "":
		return ErrMissingAnalyzer
	case src.Blame != "" && src.Repo == "":
		return ErrMissingRepoReader
	case src.Bugs == input.Stdio && src.Blame == input.Stdio:
		return ErrAuthorshipFromStdin
	}

	return nil
}

// untilDone stops records once ctx is cancelled.
func untilDone(ctx context.Context, records iter.Seq[record.Record]) iter.Seq[record.Record] {
	return func(yield func(record.Record) bool) {
		for rec := range records {
			if ctx.Err() != nil || !yield(rec) {
				return
			}
		}
	}
}
