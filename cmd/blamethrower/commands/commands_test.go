package commands_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/blamethrower/cmd/blamethrower/commands"
	"github.com/Sumatoshi-tech/blamethrower/internal/runner"
	"github.com/Sumatoshi-tech/blamethrower/pkg/registry"
	"github.com/Sumatoshi-tech/blamethrower/pkg/report"
	"github.com/Sumatoshi-tech/blamethrower/pkg/stats"
)

const (
	jslintOutput = "jslint:web/app.js:1:5:Missing 'use strict' statement.\n" +
		"jslint:web/app.js:3:1:Unexpected 'var'.\n"
	gitBlame = `>>> git-blame output for: web/app.js <<<
1111111111111111111111111111111111111111 1 1 2
author Ada
committer Ada
filename web/app.js
	'use strict';
1111111111111111111111111111111111111111 2 2
	var x;
2222222222222222222222222222222222222222 3 3 1
author Grace
committer Grace
filename web/app.js
	var y;
`
)

type harness struct {
	fs     afero.Fs
	config string
}

func newHarness(t *testing.T, configYAML string) harness {
	t.Helper()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "bugs.txt", []byte(jslintOutput), 0o600))
	require.NoError(t, afero.WriteFile(fs, "blame.txt", []byte(gitBlame), 0o600))

	cfgPath := filepath.Join(t.TempDir(), ".blamethrower.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(configYAML), 0o600))

	return harness{fs: fs, config: cfgPath}
}

func (h harness) run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()

	app := commands.NewApp()
	app.Fs = h.fs

	root := commands.NewRootCommand(app)

	var stdout, stderr bytes.Buffer

	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--config", h.config}, args...))

	err := root.Execute()
	require.NoError(t, app.Close(t.Context()))

	return stdout.String(), stderr.String(), err
}

func TestMerge_TSV(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "")

	stdout, _, err := h.run(t, "", "merge", "-a", "jslint", "-b", "bugs.txt", "-r", "git", "--blame", "blame.txt")
	require.NoError(t, err)

	assert.Equal(t, strings.Join([]string{
		"web/app.js\t1\tMissing 'use strict' statement.\t\tAda",
		"web/app.js\t2\t\t\tAda",
		"web/app.js\t3\tUnexpected 'var'.\t\tGrace",
	}, "\n")+"\n", stdout)
}

func TestMerge_FindingsFromStdinNDJSON(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "")

	stdout, _, err := h.run(t, jslintOutput, "merge", "-a", "jslint", "-b", "-", "--format", "ndjson")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 2)
	assert.JSONEq(t, `{"filename":"web/app.js","linenum":1,"bugtype":"Missing 'use strict' statement."}`, lines[0])
}

func TestMerge_ConfigSelectsSources(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "analyzer:\n  name: jslint\nrepo:\n  name: git\n")

	stdout, _, err := h.run(t, "", "merge", "-b", "bugs.txt", "--blame", "blame.txt")
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(stdout, "\n"))
}

func TestMerge_Errors(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "")

	_, _, err := h.run(t, "", "merge", "--format", "csv", "-a", "jslint", "-b", "bugs.txt")
	require.ErrorIs(t, err, runner.ErrUnknownRecordFormat)

	_, _, err = h.run(t, "", "merge", "-a", "nope", "-b", "bugs.txt")
	require.ErrorIs(t, err, registry.ErrUnknownAnalyzer)

	_, _, err = h.run(t, "", "merge")
	require.ErrorIs(t, err, runner.ErrNoInput)
}

func TestMergeThenStats_CompressedRecords(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "")

	_, _, err := h.run(t, "",
		"merge", "-a", "jslint", "-b", "bugs.txt", "-r", "git", "--blame", "blame.txt", "--output", "records.tsv.lz4")
	require.NoError(t, err)

	stdout, _, err := h.run(t, "", "stats", "--records", "records.tsv.lz4", "--format", "json", "--check-schema")
	require.NoError(t, err)
	require.NoError(t, report.ValidateJSON([]byte(stdout)))

	var result stats.Result

	require.NoError(t, json.Unmarshal([]byte(stdout), &result))
	assert.Equal(t, stats.Bugs{Total: 1}, result.Authors["Ada"].Bugs)
	assert.Equal(t, 2, result.Authors["Ada"].Lines)
	assert.Equal(t, 1, result.Authors["Grace"].Bugs.Total)
	assert.Equal(t, 3, result.Overall.Lines)
}

func TestStats_Text(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "output:\n  no_color: true\n")

	stdout, _, err := h.run(t, "", "stats", "-a", "jslint", "-b", "bugs.txt", "-r", "git", "--blame", "blame.txt")
	require.NoError(t, err)

	assert.Contains(t, stdout, "Ada")
	assert.Contains(t, stdout, "Grace")
	assert.NotContains(t, stdout, "\x1b[")
}

func TestStats_UnknownFormat(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "")

	_, _, err := h.run(t, "", "stats", "--records", "x.tsv", "--format", "pdf")
	require.ErrorIs(t, err, report.ErrUnknownFormat)
}

func TestStats_PhantomsWarn(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "")
	require.NoError(t, afero.WriteFile(h.fs, "blame.txt", []byte(">>> git-blame output for: other.js <<<\n"), 0o600))

	_, stderr, err := h.run(t, "", "stats", "-a", "jslint", "-b", "bugs.txt", "-r", "git", "--blame", "blame.txt",
		"--format", "yaml")
	require.NoError(t, err)
	assert.Contains(t, stderr, "findings with no blame")
	assert.Contains(t, stderr, "count=2")
}

func TestList(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "")

	stdout, _, err := h.run(t, "", "list")
	require.NoError(t, err)

	for _, name := range []string{"pylint", "jslint", "findbugs", "bandit", "git", "hg", "prefix"} {
		assert.Contains(t, stdout, name)
	}

	stdout, _, err = h.run(t, "", "list", "--json")
	require.NoError(t, err)

	var descriptors []registry.Descriptor

	require.NoError(t, json.Unmarshal([]byte(stdout), &descriptors))
	assert.Len(t, descriptors, 6)
}

func TestInvalidConfig(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "logging:\n  level: shout\n")

	_, _, err := h.run(t, "", "list")
	require.Error(t, err)
}

func TestRegistryCollisionFailsBeforeSetup(t *testing.T) {
	t.Parallel()

	// An unreadable config would fail setup too; the collision must win.
	h := newHarness(t, "logging:\n  level: shout\n")

	app := commands.NewApp()
	app.Fs = h.fs
	app.NewRegistry = func() (*registry.Registry, error) {
		clash := registry.RepoReader{Descriptor: registry.Descriptor{Name: "pylint"}, Read: registry.DefaultRepoReaders()[0].Read}

		return registry.New(registry.DefaultAnalyzers(), []registry.RepoReader{clash})
	}

	root := commands.NewRootCommand(app)
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"--config", h.config, "list"})

	err := root.Execute()
	require.ErrorIs(t, err, registry.ErrNameCollision)
	require.NoError(t, app.Close(t.Context()))
}
