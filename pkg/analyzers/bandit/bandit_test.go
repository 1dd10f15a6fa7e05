package bandit_test

import (
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/blamethrower/pkg/alg/seq"
	"github.com/Sumatoshi-tech/blamethrower/pkg/analyzers"
	"github.com/Sumatoshi-tech/blamethrower/pkg/analyzers/bandit"
	"github.com/Sumatoshi-tech/blamethrower/pkg/record"
)

const report = `{
  "errors": [],
  "results": [
    {"test_id": "B101", "test_name": "assert_used", "filename": "./app.py", "line_number": 42, "issue_severity": "LOW"},
    {"test_id": "B602", "test_name": "subprocess_popen_with_shell_equals_true", "filename": "tools/run.py", "line_number": 7, "issue_severity": "HIGH"},
    {"test_id": "B311", "test_name": "blacklist", "filename": "tools/rand.py", "line_number": 3, "issue_severity": "MEDIUM"},
    {"test_id": "B999", "test_name": "custom", "filename": "x.py", "line_number": 1, "issue_severity": "UNDEFINED"}
  ]
}`

func TestAnalyze(t *testing.T) {
	t.Parallel()

	values, errFn := seq.Halt(bandit.Analyze(strings.NewReader(report), map[string]string{"prefix": "svc/"}))

	got := slices.Collect(values)
	require.NoError(t, errFn())

	assert.Equal(t, []record.Record{
		{Filename: "svc/app.py", Linenum: 42, Bugtype: "B101", Severity: record.SeverityLow},
		{Filename: "svc/tools/run.py", Linenum: 7, Bugtype: "B602", Severity: record.SeverityHigh},
		{Filename: "svc/tools/rand.py", Linenum: 3, Bugtype: "B311", Severity: record.SeverityMed},
		{Filename: "svc/x.py", Linenum: 1, Bugtype: "B999"},
	}, got)
}

func TestAnalyze_EmptyResults(t *testing.T) {
	t.Parallel()

	values, errFn := seq.Halt(bandit.Analyze(strings.NewReader(`{"results": []}`), nil))

	assert.Empty(t, slices.Collect(values))
	require.NoError(t, errFn())
}

func TestAnalyze_RejectsGarbage(t *testing.T) {
	t.Parallel()

	for _, input := range []string{"{{{{", `{"errors": []}`, ""} {
		values, errFn := seq.Halt(bandit.Analyze(strings.NewReader(input), nil))

		assert.Empty(t, slices.Collect(values))
		require.ErrorIs(t, errFn(), analyzers.ErrUnparsableInput, "input %q", input)
	}
}
