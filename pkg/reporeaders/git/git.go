// Package git reads "git blame --porcelain" output for many files, each
// preceded by a header line:
//
//	>>> git-blame output for: path/to/file <<<
//
// Headers are needed because blame on renamed files reports old names; see
// scripts/git-blame.sh for a generator.
package git

import (
	"fmt"
	"io"
	"iter"
	"regexp"
	"strconv"

	"github.com/Sumatoshi-tech/blamethrower/pkg/pipeline"
	"github.com/Sumatoshi-tech/blamethrower/pkg/record"
	"github.com/Sumatoshi-tech/blamethrower/pkg/reporeaders"
)

const (
	// Name is the registry name of this repo reader.
	Name = "git"
	// Help describes how to produce input for this repo reader.
	Help = "git blame -p with headers; see scripts/git-blame.sh"
)

// Options lists the options this repo reader accepts.
var Options = []pipeline.ConfigurationOption{}

var (
	headerRE = regexp.MustCompile(`^>>> git-blame output for: (.+) <<<$`)
	commitRE = regexp.MustCompile(`^([0-9a-f]{40}) \d+ (\d+)(?: [1-9][0-9]*)?$`)
	authorRE = regexp.MustCompile(`^author (.+)$`)
)

var reader = reporeaders.Sectioned{
	Tool:      Name,
	Header:    headerRE,
	ParseFile: parseFile,
}

// Read yields the authorship of every file in the blame output.
func Read(r io.Reader, _ map[string]string) iter.Seq2[record.FileAuthors, error] {
	return reader.Read(r)
}

type pendingLine struct {
	commit  string
	linenum int
	at      int
}

type porcelain struct {
	commitAuthor map[string]string
	authors      []string
}

func (p *porcelain) finish(line pendingLine, author string) error {
	known, seen := p.commitAuthor[line.commit]

	switch {
	case author == "" && !seen:
		return fmt.Errorf("%w: line %d: no author for commit %s", reporeaders.ErrBadAuthorLine, line.at, line.commit)
	case author == "":
		author = known
	case seen && known != author:
		return fmt.Errorf("%w: line %d: commit %s attributed to both %q and %q",
			reporeaders.ErrBadAuthorLine, line.at, line.commit, known, author)
	default:
		p.commitAuthor[line.commit] = author
	}

	if want := len(p.authors); line.linenum != want {
		return fmt.Errorf("%w: line %d: expected line number %d in commit %s, got %d",
			reporeaders.ErrLineSequence, line.at, want, line.commit, line.linenum)
	}

	p.authors = append(p.authors, author)

	return nil
}

func parseFile(_ string, lines iter.Seq[reporeaders.Line]) ([]string, error) {
	p := porcelain{commitAuthor: make(map[string]string), authors: []string{""}}

	var pending *pendingLine

	for line := range lines {
		if pending != nil {
			if m := authorRE.FindStringSubmatch(line.Text); m != nil {
				err := p.finish(*pending, m[1])
				if err != nil {
					return nil, err
				}

				pending = nil

				continue
			}

			err := p.finish(*pending, "")
			if err != nil {
				return nil, err
			}

			pending = nil
		}

		m := commitRE.FindStringSubmatch(line.Text)
		if m == nil {
			continue
		}

		linenum, err := strconv.Atoi(m[2])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", reporeaders.ErrLineSequence, line.Num, err)
		}

		pending = &pendingLine{commit: m[1], linenum: linenum, at: line.Num}
	}

	if pending != nil {
		err := p.finish(*pending, "")
		if err != nil {
			return nil, err
		}
	}

	return p.authors, nil
}
