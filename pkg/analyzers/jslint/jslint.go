// Package jslint reads jslint4java output (jslint:file:line:col:message).
//
// Filenames may contain colons, and messages are used as the bug type, tabs
// replaced by spaces, since jslint does not categorize them. No severity is
// assigned.
package jslint

import (
	"io"
	"iter"
	"regexp"
	"strconv"
	"strings"

	"github.com/Sumatoshi-tech/blamethrower/pkg/analyzers"
	"github.com/Sumatoshi-tech/blamethrower/pkg/pipeline"
	"github.com/Sumatoshi-tech/blamethrower/pkg/record"
)

const (
	// Name is the registry name of this analyzer.
	Name = "jslint"
	// Help describes how to produce input for this analyzer.
	Help = "jslint4java --maxerr 100000"
)

// Options lists the options this analyzer accepts.
var Options = []pipeline.ConfigurationOption{}

var lineRE = regexp.MustCompile(`^jslint:(.+?):(\d+):\d+:(.+)`)

// Analyze reads findings from jslint4java output.
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

	// Messages quote source text, which may hold tabs.
	bugtype := strings.ReplaceAll(m[3], "\t", " ")

	return record.Record{Filename: m[1], Linenum: linenum, Bugtype: bugtype}, true
}
