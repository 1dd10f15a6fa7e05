// Package analyzers holds what the finding sources share: the input error
// and a line scanner for tools that report one finding per output line.
package analyzers

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"iter"

	"github.com/Sumatoshi-tech/blamethrower/pkg/record"
)

// ErrUnparsableInput is returned when a tool's output is not in the expected
// format.
var ErrUnparsableInput = errors.New("unparsable analyzer output")

// maxLine bounds a single output line.
const maxLine = 4 << 20

// LineParser extracts a finding from one line of tool output. It reports
// false for lines that carry no finding.
type LineParser func(line string) (record.Record, bool)

// ScanLines applies parse to every line of r. Lines that do not parse are
// skipped, except the first: a first line that does not parse means the
// input is not this tool's output at all.
func ScanLines(tool string, r io.Reader, parse LineParser) iter.Seq2[record.Record, error] {
	return func(yield func(record.Record, error) bool) {
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), maxLine)

		lineno := 0

		for scanner.Scan() {
			lineno++

			rec, ok := parse(scanner.Text())
			if !ok {
				if lineno == 1 {
					yield(record.Record{}, fmt.Errorf("%w: %s: could not parse line 1", ErrUnparsableInput, tool))

					return
				}

				continue
			}

			if !yield(rec, nil) {
				return
			}
		}

		err := scanner.Err()
		if err != nil {
			yield(record.Record{}, fmt.Errorf("%s: read: %w", tool, err))
		}
	}
}
