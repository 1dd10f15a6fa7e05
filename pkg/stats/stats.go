// Package stats aggregates merged records into per-author, unattributed and
// overall bug statistics.
package stats

import (
	"cmp"
	"iter"
	"slices"

	"github.com/Sumatoshi-tech/blamethrower/pkg/record"
)

// Bugs counts findings. Findings without a known severity count toward Total
// only, so High+Med+Low may be less than Total.
type Bugs struct {
	Total int `json:"total" yaml:"total"`
	High  int `json:"high"  yaml:"high"`
	Med   int `json:"med"   yaml:"med"`
	Low   int `json:"low"   yaml:"low"`
}

func (b *Bugs) add(other Bugs) {
	b.Total += other.Total
	b.High += other.High
	b.Med += other.Med
	b.Low += other.Low
}

// Bucket is the statistics of one author, of unattributed lines, or of
// everything.
type Bucket struct {
	Files       int     `json:"files"         yaml:"files"`
	Lines       int     `json:"lines"         yaml:"lines"`
	Bugs        Bugs    `json:"bugs"          yaml:"bugs"`
	BugsPerLine float64 `json:"bugs_per_line" yaml:"bugs_per_line"`
}

// Result is the output of Compute.
type Result struct {
	Overall      Bucket            `json:"overall"      yaml:"overall"`
	Unattributed Bucket            `json:"unattributed" yaml:"unattributed"`
	Authors      map[string]Bucket `json:"authors"      yaml:"authors"`
}

// AuthorBucket pairs an author with its statistics.
type AuthorBucket struct {
	Author string
	Bucket
}

// Ranked returns the authors ordered by total bugs, then lines, both
// descending, then by name.
func (r Result) Ranked() []AuthorBucket {
	ranked := make([]AuthorBucket, 0, len(r.Authors))

	for author, bucket := range r.Authors {
		ranked = append(ranked, AuthorBucket{Author: author, Bucket: bucket})
	}

	slices.SortFunc(ranked, func(a, b AuthorBucket) int {
		return cmp.Or(
			cmp.Compare(b.Bugs.Total, a.Bugs.Total),
			cmp.Compare(b.Lines, a.Lines),
			cmp.Compare(a.Author, b.Author),
		)
	})

	return ranked
}

type lineKey struct {
	filename string
	linenum  int
}

type accumulator struct {
	lines map[lineKey]struct{}
	files map[string]struct{}
	bugs  Bugs
}

func newAccumulator() *accumulator {
	return &accumulator{
		lines: make(map[lineKey]struct{}),
		files: make(map[string]struct{}),
	}
}

func (acc *accumulator) add(rec record.Record) {
	acc.lines[lineKey{filename: rec.Filename, linenum: rec.Linenum}] = struct{}{}
	acc.files[rec.Filename] = struct{}{}

	if !rec.IsFinding() {
		return
	}

	acc.bugs.Total++

	switch rec.Severity {
	case record.SeverityHigh:
		acc.bugs.High++
	case record.SeverityMed:
		acc.bugs.Med++
	case record.SeverityLow:
		acc.bugs.Low++
	case record.SeverityNone:
	}
}

func (acc *accumulator) bucket() Bucket {
	return newBucket(len(acc.files), len(acc.lines), acc.bugs)
}

func newBucket(files, lines int, bugs Bugs) Bucket {
	b := Bucket{Files: files, Lines: lines, Bugs: bugs}

	if lines > 0 {
		b.BugsPerLine = float64(bugs.Total) / float64(lines)
	}

	return b
}

// Compute aggregates records in a single pass. The result does not depend on
// record order. Records with the same (file, line) count as one line for
// their author; every finding is counted.
func Compute(records iter.Seq[record.Record]) Result {
	byAuthor := make(map[string]*accumulator)

	for rec := range records {
		acc, ok := byAuthor[rec.Author]
		if !ok {
			acc = newAccumulator()
			byAuthor[rec.Author] = acc
		}

		acc.add(rec)
	}

	result := Result{Authors: make(map[string]Bucket, len(byAuthor))}
	files := make(map[string]struct{})
	lines := 0

	var bugs Bugs

	for author, acc := range byAuthor {
		for file := range acc.files {
			files[file] = struct{}{}
		}

		bucket := acc.bucket()
		lines += bucket.Lines
		bugs.add(bucket.Bugs)

		if author == "" {
			result.Unattributed = bucket

			continue
		}

		result.Authors[author] = bucket
	}

	result.Overall = newBucket(len(files), lines, bugs)

	return result
}
