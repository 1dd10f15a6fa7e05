package runner_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"iter"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Sumatoshi-tech/blamethrower/internal/runner"
	"github.com/Sumatoshi-tech/blamethrower/pkg/analyzers"
	"github.com/Sumatoshi-tech/blamethrower/pkg/input"
	"github.com/Sumatoshi-tech/blamethrower/pkg/observability"
	"github.com/Sumatoshi-tech/blamethrower/pkg/pipeline"
	"github.com/Sumatoshi-tech/blamethrower/pkg/record"
	"github.com/Sumatoshi-tech/blamethrower/pkg/registry"
	"github.com/Sumatoshi-tech/blamethrower/pkg/reporeaders"
	"github.com/Sumatoshi-tech/blamethrower/pkg/stats"
)

const pylintOutput = `a.py:2: [C0111, f] Missing docstring
a.py:2: [W0611] Unused import os
b.py:7: [E1101, g] Instance has no member
`

const hgBlame = `>>> hg blame output for: a.py <<<
alice <alice@example.com>
bob
alice
`

type fixture struct {
	runner *runner.Runner
	fs     afero.Fs
	logs   *bytes.Buffer
	reader *sdkmetric.ManualReader
}

func newFixture(t *testing.T, files map[string]string) fixture {
	t.Helper()

	fs := afero.NewMemMapFs()
	for name, content := range files {
		require.NoError(t, afero.WriteFile(fs, name, []byte(content), 0o600))
	}

	reg, err := registry.Default()
	require.NoError(t, err)

	logs := &bytes.Buffer{}
	logCfg := observability.DefaultConfig()
	logCfg.LogOutput = logs
	logCfg.LogJSON = true

	reader := sdkmetric.NewManualReader()
	runs, err := observability.NewRunMetrics(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test"))
	require.NoError(t, err)

	run := runner.New(runner.Deps{
		Registry: reg,
		Opener:   input.Opener{Fs: fs, Stdin: strings.NewReader(""), Stdout: io.Discard},
		Logger:   observability.NewLogger(logCfg),
		Metrics:  runs,
	})

	return fixture{runner: run, fs: fs, logs: logs, reader: reader}
}

func mergeSources() runner.Sources {
	return runner.Sources{Analyzer: "pylint", Bugs: "bugs.txt", Repo: "hg", Blame: "blame.txt"}
}

func TestRun_MergesFindingsWithBlame(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, map[string]string{"bugs.txt": pylintOutput, "blame.txt": hgBlame})

	var out bytes.Buffer

	outcome, err := fx.runner.Run(context.Background(), "merge", mergeSources(),
		runner.Options{Validate: true}, runner.WriteRecords(&out, runner.FormatTSV))
	require.NoError(t, err)

	assert.Equal(t, strings.Join([]string{
		"a.py\t1\t\t\talice",
		"a.py\t2\tC0111\tlow\tbob",
		"a.py\t2\tW0611\tmed\tbob",
		"a.py\t3\t\t\talice",
		"b.py\t7\tE1101\thigh\t",
	}, "\n")+"\n", out.String())

	assert.NotEmpty(t, outcome.RunID)
	assert.Equal(t, 5, outcome.Summary.Emitted)
	assert.Equal(t, 4, outcome.Summary.Attributed)
	assert.Equal(t, 2, outcome.Summary.Synthetic)
	assert.Equal(t, 1, outcome.Summary.Phantoms)
	assert.True(t, outcome.Summary.Complete)

	assert.Contains(t, fx.logs.String(), `"msg":"unattributed findings"`)
	assert.Contains(t, fx.logs.String(), `"error":"1 findings with no blame"`)
	assert.Contains(t, fx.logs.String(), `"run_id":"`+outcome.RunID+`"`)
}

func TestRun_NDJSON(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, map[string]string{"bugs.txt": pylintOutput, "blame.txt": hgBlame})

	var out bytes.Buffer

	_, err := fx.runner.Run(context.Background(), "merge", mergeSources(),
		runner.Options{}, runner.WriteRecords(&out, runner.FormatNDJSON))
	require.NoError(t, err)

	dec := json.NewDecoder(&out)

	var first record.Record

	require.NoError(t, dec.Decode(&first))
	assert.Equal(t, record.Record{Filename: "a.py", Linenum: 1, Author: "alice"}, first)
	assert.Equal(t, 4, strings.Count(out.String(), "\n"))
}

func TestRun_FindingsOnlyPassThrough(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, map[string]string{"bugs.txt": pylintOutput})

	var out bytes.Buffer

	outcome, err := fx.runner.Run(context.Background(), "merge",
		runner.Sources{Analyzer: "pylint", Bugs: "bugs.txt"},
		runner.Options{Validate: true}, runner.WriteRecords(&out, runner.FormatTSV))
	require.NoError(t, err)

	assert.Equal(t, 3, outcome.Summary.Emitted)
	assert.Zero(t, outcome.Summary.Phantoms)
	assert.True(t, strings.HasPrefix(out.String(), "a.py\t2\tC0111\tlow\t\n"))
	assert.NotContains(t, fx.logs.String(), "findings with no blame")
}

func TestRun_InputErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		files map[string]string
		want  error
	}{
		{
			name:  "unparsable findings",
			files: map[string]string{"bugs.txt": "not pylint\n", "blame.txt": hgBlame},
			want:  analyzers.ErrUnparsableInput,
		},
		{
			name:  "blame without header",
			files: map[string]string{"bugs.txt": pylintOutput, "blame.txt": "alice\n"},
			want:  reporeaders.ErrMissingHeader,
		},
		{
			name:  "finding on line zero",
			files: map[string]string{"bugs.txt": "a.py:0: [C0111] doc\n", "blame.txt": hgBlame},
			want:  record.ErrInvalidRecord,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fx := newFixture(t, tt.files)

			var out bytes.Buffer

			outcome, err := fx.runner.Run(context.Background(), "merge", mergeSources(),
				runner.Options{Validate: true}, runner.WriteRecords(&out, runner.FormatTSV))
			require.ErrorIs(t, err, tt.want)

			assert.Empty(t, out.String())
			assert.False(t, outcome.Summary.Complete)
			assert.Zero(t, outcome.Summary.Phantoms)
			assert.NotContains(t, fx.logs.String(), "findings with no blame")
		})
	}
}

func TestRun_AuthorshipFailsAfterFirstFile(t *testing.T) {
	t.Parallel()

	blame := hgBlame + ">>> hg blame output for: b.py <<<\n   \n"
	fx := newFixture(t, map[string]string{"bugs.txt": pylintOutput, "blame.txt": blame})

	var out bytes.Buffer

	outcome, err := fx.runner.Run(context.Background(), "merge", mergeSources(),
		runner.Options{Validate: true}, runner.WriteRecords(&out, runner.FormatTSV))
	require.ErrorIs(t, err, reporeaders.ErrBadAuthorLine)

	assert.Equal(t, strings.Join([]string{
		"a.py\t1\t\t\talice",
		"a.py\t2\tC0111\tlow\tbob",
		"a.py\t2\tW0611\tmed\tbob",
		"a.py\t3\t\t\talice",
	}, "\n")+"\n", out.String())
	assert.Zero(t, outcome.Summary.Phantoms)
	assert.NotContains(t, out.String(), "b.py")
	assert.NotContains(t, fx.logs.String(), "findings with no blame")
}

func TestRun_ValidationOff(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, map[string]string{"bugs.txt": "a.py:0: [C0111] doc\n"})

	var out bytes.Buffer

	_, err := fx.runner.Run(context.Background(), "merge",
		runner.Sources{Analyzer: "pylint", Bugs: "bugs.txt"},
		runner.Options{}, runner.WriteRecords(&out, runner.FormatTSV))
	require.NoError(t, err)
	assert.Equal(t, "a.py\t0\tC0111\tlow\t\n", out.String())
}

func TestRun_SourceErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  runner.Sources
		want error
	}{
		{name: "nothing", src: runner.Sources{}, want: runner.ErrNoInput},
		{name: "bugs without analyzer", src: runner.Sources{Bugs: "bugs.txt"}, want: runner.ErrMissingAnalyzer},
		{name: "blame without reader", src: runner.Sources{Blame: "blame.txt"}, want: runner.ErrMissingRepoReader},
		{
			name: "blame and repo path",
			src:  runner.Sources{Repo: "hg", Blame: "blame.txt", RepoPath: "/repo"},
			want: runner.ErrConflictingSources,
		},
		{
			name: "records with findings",
			src:  runner.Sources{Records: "r.tsv", Analyzer: "pylint", Bugs: "bugs.txt"},
			want: runner.ErrConflictingSources,
		},
		{
			name: "both stdin",
			src:  runner.Sources{Analyzer: "pylint", Bugs: "-", Repo: "hg", Blame: "-"},
			want: runner.ErrAuthorshipFromStdin,
		},
		{
			name: "unknown analyzer",
			src:  runner.Sources{Analyzer: "eslint", Bugs: "bugs.txt"},
			want: registry.ErrUnknownAnalyzer,
		},
		{
			name: "unknown repo reader",
			src:  runner.Sources{Repo: "svn", Blame: "blame.txt"},
			want: registry.ErrUnknownRepoReader,
		},
		{
			name: "unknown option",
			src:  runner.Sources{Analyzer: "pylint", Bugs: "bugs.txt", AnalyzerOptions: map[string]string{"x": "1"}},
			want: pipeline.ErrUnknownOption,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fx := newFixture(t, map[string]string{"bugs.txt": pylintOutput, "blame.txt": hgBlame})

			called := false

			_, err := fx.runner.Run(context.Background(), "merge", tt.src, runner.Options{},
				func(iter.Seq[record.Record]) error {
					called = true

					return nil
				})
			require.ErrorIs(t, err, tt.want)
			assert.False(t, called)
		})
	}
}

func TestRun_MissingFile(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, nil)

	_, err := fx.runner.Run(context.Background(), "merge",
		runner.Sources{Analyzer: "pylint", Bugs: "absent.txt"}, runner.Options{},
		runner.WriteRecords(io.Discard, runner.FormatTSV))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "absent.txt")
}

func TestRun_SkipVendored(t *testing.T) {
	t.Parallel()

	blame := hgBlame + ">>> hg blame output for: vendor/lib/x.py <<<\ncarol\n"
	fx := newFixture(t, map[string]string{"bugs.txt": pylintOutput, "blame.txt": blame})

	var out bytes.Buffer

	outcome, err := fx.runner.Run(context.Background(), "merge", mergeSources(),
		runner.Options{SkipVendored: true}, runner.WriteRecords(&out, runner.FormatTSV))
	require.NoError(t, err)

	assert.NotContains(t, out.String(), "vendor/")
	assert.Equal(t, 3, outcome.Summary.Synthetic)
}

func TestRun_CancelledContext(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, map[string]string{"bugs.txt": pylintOutput, "blame.txt": hgBlame})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer

	_, err := fx.runner.Run(ctx, "merge", mergeSources(), runner.Options{}, runner.WriteRecords(&out, runner.FormatTSV))
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, out.String())
}

func TestRun_RepoPathNotARepository(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, nil)

	_, err := fx.runner.Run(context.Background(), "merge",
		runner.Sources{RepoPath: t.TempDir()}, runner.Options{},
		runner.WriteRecords(io.Discard, runner.FormatTSV))
	require.Error(t, err)
}

func TestRun_RecordsMetrics(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, map[string]string{"bugs.txt": pylintOutput, "blame.txt": hgBlame})

	_, err := fx.runner.Run(context.Background(), "merge", mergeSources(), runner.Options{},
		runner.WriteRecords(io.Discard, runner.FormatTSV))
	require.NoError(t, err)

	_, err = fx.runner.Run(context.Background(), "merge", runner.Sources{}, runner.Options{},
		runner.WriteRecords(io.Discard, runner.FormatTSV))
	require.Error(t, err)

	var rm metricdata.ResourceMetrics

	require.NoError(t, fx.reader.Collect(context.Background(), &rm))

	counts := map[string]int64{}

	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}

			for _, dp := range sum.DataPoints {
				key := m.Name
				if status, found := dp.Attributes.Value("status"); found {
					key += "/" + status.AsString()
				}

				if kind, found := dp.Attributes.Value("kind"); found {
					key += "/" + kind.AsString()
				}

				counts[key] += dp.Value
			}
		}
	}

	assert.Equal(t, int64(1), counts["blamethrower.runs.total/ok"])
	assert.Equal(t, int64(1), counts["blamethrower.runs.total/error"])
	assert.Equal(t, int64(2), counts["blamethrower.records.total/finding"])
	assert.Equal(t, int64(2), counts["blamethrower.records.total/synthetic"])
	assert.Equal(t, int64(1), counts["blamethrower.phantom_findings.total"])
}

func TestStats_FromMerge(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, map[string]string{"bugs.txt": pylintOutput, "blame.txt": hgBlame})

	result, outcome, err := fx.runner.Stats(context.Background(), mergeSources(), runner.Options{Validate: true})
	require.NoError(t, err)
	assert.True(t, outcome.Summary.Complete)

	assert.Equal(t, stats.Bucket{
		Files: 1, Lines: 2, Bugs: stats.Bugs{}, BugsPerLine: 0,
	}, result.Authors["alice"])
	assert.Equal(t, stats.Bugs{Total: 2, Low: 1, Med: 1}, result.Authors["bob"].Bugs)
	assert.Equal(t, stats.Bugs{Total: 1, High: 1}, result.Unattributed.Bugs)
	assert.Equal(t, 2, result.Overall.Files)
	assert.Equal(t, 4, result.Overall.Lines)
}

func TestStats_ReplaysCompressedRecords(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, nil)

	opener := input.Opener{Fs: fx.fs}

	w, err := opener.Create("records.tsv.gz")
	require.NoError(t, err)

	_, err = io.WriteString(w, "a.py\t1\t\t\talice\na.py\t2\tC0111\tlow\tbob\n")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	result, _, err := fx.runner.Stats(context.Background(),
		runner.Sources{Records: "records.tsv.gz"}, runner.Options{Validate: true})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Overall.Lines)
	assert.Equal(t, 1, result.Authors["bob"].Bugs.Low)
}

func TestStats_ReplayMalformed(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, map[string]string{"records.tsv": "a.py\tone\t\t\talice\n"})

	_, _, err := fx.runner.Stats(context.Background(), runner.Sources{Records: "records.tsv"}, runner.Options{})
	require.ErrorIs(t, err, record.ErrMalformedLine)
}

func TestParseRecordFormat(t *testing.T) {
	t.Parallel()

	for name, want := range map[string]runner.RecordFormat{
		"":       runner.FormatTSV,
		"tsv":    runner.FormatTSV,
		"ndjson": runner.FormatNDJSON,
	} {
		got, err := runner.ParseRecordFormat(name)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := runner.ParseRecordFormat("csv")
	require.ErrorIs(t, err, runner.ErrUnknownRecordFormat)
}

func TestRun_PhantomSpanEvent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		blame     string
		wantEvent bool
	}{
		{name: "phantoms after full drain", blame: hgBlame, wantEvent: true},
		{name: "blame fails", blame: "alice\n", wantEvent: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fx := newFixture(t, map[string]string{"bugs.txt": pylintOutput, "blame.txt": tt.blame})

			spans := tracetest.NewSpanRecorder()
			run := runner.New(runner.Deps{
				Registry: fx.runner.Registry(),
				Opener:   input.Opener{Fs: fx.fs, Stdin: strings.NewReader(""), Stdout: io.Discard},
				Tracer:   sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans)).Tracer("test"),
			})

			_, _ = run.Run(context.Background(), "merge", mergeSources(), runner.Options{},
				runner.WriteRecords(io.Discard, runner.FormatTSV))

			ended := spans.Ended()
			require.Len(t, ended, 1)

			var events []string
			for _, ev := range ended[0].Events() {
				events = append(events, ev.Name)
			}

			if tt.wantEvent {
				assert.Contains(t, events, "phantom findings")
			} else {
				assert.NotContains(t, events, "phantom findings")
			}
		})
	}
}
