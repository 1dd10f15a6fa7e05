// Package hg reads "hg blame -vu" output reduced to one author per line, each
// file preceded by a header line:
//
//	>>> hg blame output for: path/to/file <<<
//
// Binary files must be filtered out beforehand; see scripts/hg-blame.sh.
package hg

import (
	"fmt"
	"io"
	"iter"
	"regexp"
	"strings"

	"github.com/Sumatoshi-tech/blamethrower/pkg/pipeline"
	"github.com/Sumatoshi-tech/blamethrower/pkg/record"
	"github.com/Sumatoshi-tech/blamethrower/pkg/reporeaders"
)

const (
	// Name is the registry name of this repo reader.
	Name = "hg"
	// Help describes how to produce input for this repo reader.
	Help = "hg blame with headers; see scripts/hg-blame.sh"
)

// Options lists the options this repo reader accepts.
var Options = []pipeline.ConfigurationOption{}

var (
	headerRE = regexp.MustCompile(`^>>> hg blame output for: (.+) <<<$`)
	authorRE = regexp.MustCompile(`^\s*(.+?)(?: <.+@.+>)?\s*$`)
)

var reader = reporeaders.Sectioned{
	Tool:      Name,
	Header:    headerRE,
	ParseFile: parseFile,
	SkipEmpty: true,
}

// Read yields the authorship of every non-empty file in the blame output.
func Read(r io.Reader, _ map[string]string) iter.Seq2[record.FileAuthors, error] {
	return reader.Read(r)
}

// Author extracts the user name from an "hg blame -vu" user field, dropping
// the e-mail address and padding.
func Author(field string) (string, bool) {
	m := authorRE.FindStringSubmatch(field)
	if m == nil {
		return "", false
	}

	author := strings.TrimSpace(m[1])

	return author, author != ""
}

func parseFile(_ string, lines iter.Seq[reporeaders.Line]) ([]string, error) {
	authors := []string{""}

	for line := range lines {
		author, ok := Author(line.Text)
		if !ok {
			return nil, fmt.Errorf("%w: line %d: %q", reporeaders.ErrBadAuthorLine, line.Num, line.Text)
		}

		authors = append(authors, author)
	}

	return authors, nil
}
