// Package pylint reads pylint's parseable output (pylint -iy -rn -f parseable).
package pylint

import (
	"io"
	"iter"
	"regexp"
	"strconv"

	"github.com/Sumatoshi-tech/blamethrower/pkg/analyzers"
	"github.com/Sumatoshi-tech/blamethrower/pkg/pipeline"
	"github.com/Sumatoshi-tech/blamethrower/pkg/record"
)

const (
	// Name is the registry name of this analyzer.
	Name = "pylint"
	// Help describes how to produce input for this analyzer.
	Help = "pylint -iy -rn -f parseable"
)

// Options lists the options this analyzer accepts.
var Options = []pipeline.ConfigurationOption{}

var lineRE = regexp.MustCompile(`^(.*?):(\d+): \[([CWREF]\d{4})(?:,|\])`)

// Severity maps a message id to a severity by its category letter.
func Severity(bugtype string) record.Severity {
	if bugtype == "" {
		return record.SeverityNone
	}

	switch bugtype[0] {
	case 'C', 'R':
		return record.SeverityLow
	case 'W':
		return record.SeverityMed
	case 'E', 'F':
		return record.SeverityHigh
	}

	return record.SeverityNone
}

// Analyze reads findings from pylint output.
func Analyze(r io.Reader, _ map[string]string) iter.Seq2[record.Record, error] {
	return analyzers.ScanLines(Name, r, parseLine)
}

func parseLine(line string) (record.Record, bool) {
	m := lineRE.FindStringSubmatch(line)
	if m == nil {
		return record.Record{}, false
	}

	linenum, err := strconv.Atoi(m[2])
	if err != nil {
		return record.Record{}, false
	}

	return record.Record{Filename: m[1], Linenum: linenum, Bugtype: m[3], Severity: Severity(m[3])}, true
}
