// Package reporeaders holds what the authorship sources share: input errors
// and a reader for blame output that is split into per-file sections by
// header lines.
package reporeaders

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"iter"
	"regexp"

	"github.com/Sumatoshi-tech/blamethrower/pkg/alg/seq"
	"github.com/Sumatoshi-tech/blamethrower/pkg/record"
)

// Input format errors.
var (
	ErrMissingHeader = errors.New("blame output does not start with a file header")
	ErrBadAuthorLine = errors.New("cannot determine line author")
	ErrLineSequence  = errors.New("blame line out of sequence")
)

const maxLine = 4 << 20

// Line is one line of blame output with its 1-based position in the stream.
type Line struct {
	Num  int
	Text string
}

// FileParser turns the lines following a file header into the file's author
// list, sentinel included.
type FileParser func(filename string, lines iter.Seq[Line]) ([]string, error)

// Sectioned reads blame output made of sections, each starting with a header
// line naming the file. Header must have exactly one capture group: the
// filename.
type Sectioned struct {
	Tool      string
	Header    *regexp.Regexp
	ParseFile FileParser
	// SkipEmpty drops files with no lines.
	SkipEmpty bool
}

func (s Sectioned) filename(line Line) (string, bool) {
	m := s.Header.FindStringSubmatch(line.Text)
	if m == nil {
		return "", false
	}

	return m[1], true
}

func (s Sectioned) isHeader(line Line) bool {
	return s.Header.MatchString(line.Text)
}

// Read lazily yields one FileAuthors per section. Only one section is held in
// memory at a time.
func (s Sectioned) Read(r io.Reader) iter.Seq2[record.FileAuthors, error] {
	return func(yield func(record.FileAuthors, error) bool) {
		var scanErr error

		lines := func(yield func(Line) bool) {
			scanner := bufio.NewScanner(r)
			scanner.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), maxLine)

			num := 0

			for scanner.Scan() {
				num++

				if !yield(Line{Num: num, Text: scanner.Text()}) {
					return
				}
			}

			scanErr = scanner.Err()
		}

		for section := range seq.Group(lines, s.isHeader) {
			fa, err := s.readSection(section)
			if err != nil {
				yield(record.FileAuthors{}, err)

				return
			}

			if s.SkipEmpty && fa.Lines() == 0 {
				continue
			}

			if !yield(fa, nil) {
				return
			}
		}

		if scanErr != nil {
			yield(record.FileAuthors{}, fmt.Errorf("%s: read: %w", s.Tool, scanErr))
		}
	}
}

func (s Sectioned) readSection(section iter.Seq[Line]) (record.FileAuthors, error) {
	next, stop := iter.Pull(section)
	defer stop()

	head, ok := next()
	if !ok {
		return record.FileAuthors{}, fmt.Errorf("%w: %s: empty section", ErrMissingHeader, s.Tool)
	}

	filename, ok := s.filename(head)
	if !ok {
		return record.FileAuthors{}, fmt.Errorf("%w: %s: line %d", ErrMissingHeader, s.Tool, head.Num)
	}

	rest := func(yield func(Line) bool) {
		for {
			line, ok := next()
			if !ok || !yield(line) {
				return
			}
		}
	}

	authors, err := s.ParseFile(filename, rest)
	if err != nil {
		return record.FileAuthors{}, fmt.Errorf("%s: %s: %w", s.Tool, filename, err)
	}

	return record.FileAuthors{Filename: filename, Authors: authors}, nil
}
