package reporeaders_test

import (
	"errors"
	"iter"
	"regexp"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Sumatoshi-tech/blamethrower/pkg/alg/seq"
	"github.com/Sumatoshi-tech/blamethrower/pkg/record"
	"github.com/Sumatoshi-tech/blamethrower/pkg/reporeaders"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var errBoom = errors.New("boom")

func upperLines(_ string, lines iter.Seq[reporeaders.Line]) ([]string, error) {
	authors := []string{""}

	for line := range lines {
		if line.Text == "boom" {
			return nil, errBoom
		}

		authors = append(authors, strings.ToUpper(line.Text))
	}

	return authors, nil
}

func sectioned(skipEmpty bool) reporeaders.Sectioned {
	return reporeaders.Sectioned{
		Tool:      "test",
		Header:    regexp.MustCompile(`^== (.+) ==$`),
		ParseFile: upperLines,
		SkipEmpty: skipEmpty,
	}
}

func TestSectioned_Read(t *testing.T) {
	t.Parallel()

	input := "== a ==\nx\ny\n== empty ==\n== b ==\nz\n"

	values, errFn := seq.Halt(sectioned(false).Read(strings.NewReader(input)))

	got := slices.Collect(values)
	require.NoError(t, errFn())
	assert.Equal(t, []record.FileAuthors{
		{Filename: "a", Authors: []string{"", "X", "Y"}},
		{Filename: "empty", Authors: []string{""}},
		{Filename: "b", Authors: []string{"", "Z"}},
	}, got)
}

func TestSectioned_SkipEmpty(t *testing.T) {
	t.Parallel()

	values, errFn := seq.Halt(sectioned(true).Read(strings.NewReader("== empty ==\n== b ==\nz\n")))

	got := slices.Collect(values)
	require.NoError(t, errFn())
	assert.Equal(t, []record.FileAuthors{{Filename: "b", Authors: []string{"", "Z"}}}, got)
}

func TestSectioned_MissingHeader(t *testing.T) {
	t.Parallel()

	values, errFn := seq.Halt(sectioned(false).Read(strings.NewReader("x\n== a ==\ny\n")))

	assert.Empty(t, slices.Collect(values))
	require.ErrorIs(t, errFn(), reporeaders.ErrMissingHeader)
	assert.Contains(t, errFn().Error(), "line 1")
}

func TestSectioned_ParseErrorNamesFile(t *testing.T) {
	t.Parallel()

	values, errFn := seq.Halt(sectioned(false).Read(strings.NewReader("== a ==\nx\n== b ==\nboom\n== c ==\n")))

	assert.Len(t, slices.Collect(values), 1)
	require.ErrorIs(t, errFn(), errBoom)
	assert.Contains(t, errFn().Error(), "test: b:")
}

func TestSectioned_EarlyStop(t *testing.T) {
	t.Parallel()

	for fa, err := range sectioned(false).Read(strings.NewReader("== a ==\nx\n== b ==\ny\n")) {
		require.NoError(t, err)
		assert.Equal(t, "a", fa.Filename)

		break
	}
}

func TestSectioned_EmptyInput(t *testing.T) {
	t.Parallel()

	values, errFn := seq.Halt(sectioned(false).Read(strings.NewReader("")))

	assert.Empty(t, slices.Collect(values))
	require.NoError(t, errFn())
}
