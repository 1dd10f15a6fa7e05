// Package record defines the per-line value types that flow between finding
// sources, authorship sources, the merge engine and the statistics aggregator.
package record

import "iter"

// MaxLinenum is the exclusive upper bound accepted for line numbers. The
// validate tag on Record.Linenum repeats it; TestMaxLinenumMatchesTag keeps
// them equal.
const MaxLinenum = 1_000_000

// Severity is the normalized severity of a finding.
type Severity string

// Known severities. The zero value means the finding carries no severity.
const (
	SeverityNone Severity = ""
	SeverityHigh Severity = "high"
	SeverityMed  Severity = "med"
	SeverityLow  Severity = "low"
)

// Known reports whether s is one of high, med or low.
func (s Severity) Known() bool {
	return s == SeverityHigh || s == SeverityMed || s == SeverityLow
}

// Record describes one line of source code: where it is, the finding reported
// on it (if any) and who last changed it (if known).
//
// Optional fields are absent when empty. A record without Bugtype is an
// attribution-only record and then has no Severity either.
type Record struct {
	Filename string   `json:"filename"           yaml:"filename"           validate:"required"`
	Linenum  int      `json:"linenum"            yaml:"linenum"            validate:"gt=0,lt=1000000"`
	Bugtype  string   `json:"bugtype,omitempty"  yaml:"bugtype,omitempty"  validate:"required_with=Severity"`
	Severity Severity `json:"severity,omitempty" yaml:"severity,omitempty" validate:"omitempty,oneof=high med low"`
	Author   string   `json:"author,omitempty"   yaml:"author,omitempty"`
}

// IsFinding reports whether the record carries a finding.
func (r Record) IsFinding() bool {
	return r.Bugtype != ""
}

// IsAttributed reports whether the record has an author.
func (r Record) IsAttributed() bool {
	return r.Author != ""
}

// WithAuthor returns a copy of r attributed to author.
func (r Record) WithAuthor(author string) Record {
	r.Author = author

	return r
}

// FileAuthors is the authorship of every line of one file. Authors[0] is a
// sentinel for "before line 1" and is always empty; Authors[i] is the author
// of line i.
type FileAuthors struct {
	Filename string
	Authors  []string
}

// Lines returns the number of lines the authorship covers.
func (fa FileAuthors) Lines() int {
	return max(len(fa.Authors)-1, 0)
}

// Records expands the authorship into attribution-only records, one per line.
func (fa FileAuthors) Records() iter.Seq[Record] {
	return func(yield func(Record) bool) {
		for linenum := 1; linenum < len(fa.Authors); linenum++ {
			if !yield(Record{Filename: fa.Filename, Linenum: linenum, Author: fa.Authors[linenum]}) {
				return
			}
		}
	}
}
