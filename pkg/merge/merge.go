// Package merge joins analyzer findings with per-line authorship into a
// single lazy stream of records.
package merge

import (
	"errors"
	"fmt"
	"iter"

	"github.com/Sumatoshi-tech/blamethrower/pkg/record"
)

// ErrPhantomFindings reports findings whose (file, line) never appeared in
// the authorship. It is a warning: the findings are still emitted.
var ErrPhantomFindings = errors.New("findings with no blame")

// Summary counts what a Stream has produced so far.
type Summary struct {
	// Emitted is the number of records yielded.
	Emitted int `json:"emitted"`
	// Attributed is the number of yielded records that carry an author.
	Attributed int `json:"attributed"`
	// Synthetic is the number of attribution-only records built for lines
	// without findings.
	Synthetic int `json:"synthetic"`
	// Phantoms is the number of leftover findings emitted without author.
	Phantoms int `json:"phantoms"`
	// Complete is set once the stream has been drained.
	Complete bool `json:"complete"`
}

// Err returns a wrapped ErrPhantomFindings when the stream is complete and
// left findings unattributed, nil otherwise.
func (s Summary) Err() error {
	if !s.Complete || s.Phantoms == 0 {
		return nil
	}

	return fmt.Errorf("%d %w", s.Phantoms, ErrPhantomFindings)
}

// Option configures a Stream.
type Option func(*Stream)

// OnPhantoms registers fn to be called once, after the stream has been fully
// drained, with the number of phantom findings. It is not called when there
// are none or when the consumer stops early.
func OnPhantoms(fn func(n int)) Option {
	return func(s *Stream) {
		s.onPhantoms = fn
	}
}

// AbortOn registers the error reporters of the inputs, such as the ones
// returned by seq.Halt. Whenever an input ends, a non-nil error from any of
// them stops the stream: nothing further is emitted, leftovers are not
// reported as phantoms and the summary never completes.
func AbortOn(inputErrs ...func() error) Option {
	return func(s *Stream) {
		s.inputErrs = append(s.inputErrs, inputErrs...)
	}
}

// Stream is the single-pass output of Merge.
type Stream struct {
	findings   iter.Seq[record.Record]
	authorship iter.Seq[record.FileAuthors]
	onPhantoms func(n int)
	inputErrs  []func() error
	summary    Summary
	started    bool
}

// Merge joins findings with authorship.
//
// With no authorship the findings pass through unchanged. Otherwise, for each
// file of the authorship in order and each of its lines, the findings indexed
// at that line are emitted with the line's author, or an attribution-only
// record when there are none. Findings never matched are emitted last without
// author, grouped by (file, line) in first-seen order.
//
// Either input may be nil. Both are consumed lazily; findings are fully read
// into the index before the first authorship file is requested.
func Merge(findings iter.Seq[record.Record], authorship iter.Seq[record.FileAuthors], opts ...Option) *Stream {
	s := &Stream{findings: findings, authorship: authorship}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Records returns the merged sequence. It can be ranged over once; later
// ranges yield nothing.
func (s *Stream) Records() iter.Seq[record.Record] {
	return func(yield func(record.Record) bool) {
		if s.started {
			return
		}

		s.started = true

		if s.run(yield) {
			s.finish()
		}
	}
}

// Summary returns the counters accumulated so far.
func (s *Stream) Summary() Summary {
	return s.summary
}

// run yields the merged records and reports whether the consumer drained them.
func (s *Stream) run(yield func(record.Record) bool) bool {
	switch {
	case s.authorship == nil && s.findings == nil:
		return true
	case s.authorship == nil:
		for rec := range s.findings {
			if !s.emit(yield, rec) {
				return false
			}
		}

		return !s.aborted()
	}

	idx := newIndex()

	if s.findings != nil {
		for rec := range s.findings {
			idx.add(rec)
		}
	}

	if s.aborted() {
		return false
	}

	for fa := range s.authorship {
		for linenum := 1; linenum < len(fa.Authors); linenum++ {
			author := fa.Authors[linenum]

			bugs, ok := idx.take(lineKey{filename: fa.Filename, linenum: linenum})
			if !ok {
				s.summary.Synthetic++

				if !s.emit(yield, record.Record{Filename: fa.Filename, Linenum: linenum, Author: author}) {
					return false
				}

				continue
			}

			for _, bug := range bugs {
				if !s.emit(yield, bug.WithAuthor(author)) {
					return false
				}
			}
		}
	}

	if s.aborted() {
		return false
	}

	for bug := range idx.leftovers() {
		s.summary.Phantoms++

		if !s.emit(yield, bug.WithAuthor("")) {
			return false
		}
	}

	return true
}

func (s *Stream) aborted() bool {
	for _, inputErr := range s.inputErrs {
		if inputErr() != nil {
			return true
		}
	}

	return false
}

func (s *Stream) emit(yield func(record.Record) bool, rec record.Record) bool {
	s.summary.Emitted++

	if rec.IsAttributed() {
		s.summary.Attributed++
	}

	return yield(rec)
}

func (s *Stream) finish() {
	s.summary.Complete = true

	if s.onPhantoms != nil && s.summary.Phantoms > 0 {
		s.onPhantoms(s.summary.Phantoms)
	}
}
