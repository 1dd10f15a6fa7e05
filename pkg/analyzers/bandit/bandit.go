// Package bandit reads bandit JSON reports (bandit -f json).
package bandit

import (
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/Sumatoshi-tech/blamethrower/pkg/analyzers"
	"github.com/Sumatoshi-tech/blamethrower/pkg/pipeline"
	"github.com/Sumatoshi-tech/blamethrower/pkg/record"
)

const (
	// Name is the registry name of this analyzer.
	Name = "bandit"
	// Help describes how to produce input for this analyzer.
	Help = "bandit -r . -f json"

	// OptionPrefix is prepended to every filename.
	OptionPrefix = "prefix"
)

// Options lists the options this analyzer accepts.
var Options = []pipeline.ConfigurationOption{
	{Name: OptionPrefix, Description: "add path prefix to bandit filenames", Type: pipeline.PathConfigurationOption},
}

type report struct {
	Results *[]result `json:"results"`
}

type result struct {
	TestID        string `json:"test_id"`
	Filename      string `json:"filename"`
	LineNumber    int    `json:"line_number"`
	IssueSeverity string `json:"issue_severity"`
}

// Severity maps bandit's issue severity to a record severity.
func Severity(s string) record.Severity {
	switch strings.ToUpper(s) {
	case "HIGH":
		return record.SeverityHigh
	case "MEDIUM":
		return record.SeverityMed
	case "LOW":
		return record.SeverityLow
	}

	return record.SeverityNone
}

// Analyze reads findings from a bandit JSON report. The report is decoded as
// a whole; findings are then yielded one by one.
func Analyze(r io.Reader, opts map[string]string) iter.Seq2[record.Record, error] {
	prefix := opts[OptionPrefix]

	return func(yield func(record.Record, error) bool) {
		var parsed report

		err := json.NewDecoder(r).Decode(&parsed)
		if err != nil {
			yield(record.Record{}, fmt.Errorf("%w: %s: %w", analyzers.ErrUnparsableInput, Name, err))

			return
		}

		if parsed.Results == nil {
			yield(record.Record{}, fmt.Errorf("%w: %s: no results array", analyzers.ErrUnparsableInput, Name))

			return
		}

		for _, res := range *parsed.Results {
			rec := record.Record{
				Filename: prefix + strings.TrimPrefix(res.Filename, "./"),
				Linenum:  res.LineNumber,
				Bugtype:  res.TestID,
				Severity: Severity(res.IssueSeverity),
			}

			if !yield(rec, nil) {
				return
			}
		}
	}
}
