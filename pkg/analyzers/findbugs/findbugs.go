// Package findbugs reads FindBugs/SpotBugs "-xml:withMessages" reports.
//
// Each BugInstance has a type and a rank, and one or more SourceLine
// children. When there are several, only the primary one and those with role
// SOURCE_LINE_ANOTHER_INSTANCE are reported. A SourceLine may span a range;
// its first line is used.
package findbugs

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"iter"
	"strconv"

	"github.com/Sumatoshi-tech/blamethrower/pkg/analyzers"
	"github.com/Sumatoshi-tech/blamethrower/pkg/pipeline"
	"github.com/Sumatoshi-tech/blamethrower/pkg/record"
)

const (
	// Name is the registry name of this analyzer.
	Name = "findbugs"
	// Help describes how to produce input for this analyzer.
	Help = "FindBugs -xml:withMessages"

	// OptionPrefix is prepended to every source path.
	OptionPrefix = "prefix"

	roleAnotherInstance = "SOURCE_LINE_ANOTHER_INSTANCE"
)

// Options lists the options this analyzer accepts.
var Options = []pipeline.ConfigurationOption{
	{Name: OptionPrefix, Description: "add path prefix to FindBugs filenames", Type: pipeline.PathConfigurationOption},
}

type sourceLine struct {
	Primary    string `xml:"primary,attr"`
	Role       string `xml:"role,attr"`
	Sourcepath string `xml:"sourcepath,attr"`
	Start      string `xml:"start,attr"`
}

type bugInstance struct {
	Type        string       `xml:"type,attr"`
	Rank        string       `xml:"rank,attr"`
	SourceLines []sourceLine `xml:"SourceLine"`
}

// RankSeverity maps a FindBugs rank (1 is scariest, 20 least) to a severity.
func RankSeverity(rank int) (record.Severity, bool) {
	switch {
	case rank >= 1 && rank <= 4:
		return record.SeverityHigh, true
	case rank >= 5 && rank <= 12:
		return record.SeverityMed, true
	case rank >= 13 && rank <= 20:
		return record.SeverityLow, true
	}

	return record.SeverityNone, false
}

// Analyze streams findings out of a FindBugs XML report.
func Analyze(r io.Reader, opts map[string]string) iter.Seq2[record.Record, error] {
	prefix := opts[OptionPrefix]

	return func(yield func(record.Record, error) bool) {
		decoder := xml.NewDecoder(r)

		for {
			tok, err := decoder.Token()
			if errors.Is(err, io.EOF) {
				return
			}

			if err != nil {
				yield(record.Record{}, fmt.Errorf("%w: %s: %w", analyzers.ErrUnparsableInput, Name, err))

				return
			}

			start, ok := tok.(xml.StartElement)
			if !ok || start.Name.Local != "BugInstance" {
				continue
			}

			var bug bugInstance

			err = decoder.DecodeElement(&bug, &start)
			if err != nil {
				yield(record.Record{}, fmt.Errorf("%w: %s: %w", analyzers.ErrUnparsableInput, Name, err))

				return
			}

			recs, err := bug.records(prefix)
			if err != nil {
				yield(record.Record{}, err)

				return
			}

			for _, rec := range recs {
				if !yield(rec, nil) {
					return
				}
			}
		}
	}
}

func (bug bugInstance) records(prefix string) ([]record.Record, error) {
	rank, err := strconv.Atoi(bug.Rank)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: bug %s has rank %q", analyzers.ErrUnparsableInput, Name, bug.Type, bug.Rank)
	}

	severity, ok := RankSeverity(rank)
	if !ok {
		return nil, fmt.Errorf("%w: %s: bug %s has rank %d out of range", analyzers.ErrUnparsableInput, Name, bug.Type, rank)
	}

	lines := bug.SourceLines
	if len(lines) > 1 {
		lines = nil

		for _, line := range bug.SourceLines {
			if line.Primary != "" || line.Role == roleAnotherInstance {
				lines = append(lines, line)
			}
		}
	}

	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: %s: no SourceLine for bug %s", analyzers.ErrUnparsableInput, Name, bug.Type)
	}

	recs := make([]record.Record, 0, len(lines))

	for _, line := range lines {
		linenum, err := strconv.Atoi(line.Start)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: bug %s in %s has start %q", analyzers.ErrUnparsableInput, Name, bug.Type, line.Sourcepath, line.Start)
		}

		recs = append(recs, record.Record{
			Filename: prefix + line.Sourcepath,
			Linenum:  linenum,
			Bugtype:  bug.Type,
			Severity: severity,
		})
	}

	return recs, nil
}
