package record

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"iter"
	"strconv"
	"strings"
)

// ErrMalformedLine is returned when a TSV line does not hold a record.
var ErrMalformedLine = errors.New("malformed record line")

const (
	tsvFields    = 5
	tsvSeparator = "\t"
	tsvReserved  = "\t\r\n"

	// maxTSVLine bounds a single line; filenames are the only unbounded field.
	maxTSVLine = 1 << 20
)

// Write serializes records as tab-separated lines in the field order
// filename, linenum, bugtype, severity, author. Absent fields are empty.
// It returns the number of records written; a record whose text fields hold
// a tab or a line break stops the write with ErrMalformedLine.
func Write(w io.Writer, records iter.Seq[Record]) (int, error) {
	buf := bufio.NewWriter(w)
	count := 0

	for rec := range records {
		line, err := FormatLine(rec)
		if err != nil {
			return count, fmt.Errorf("record %d: %w", count+1, err)
		}

		_, err = buf.WriteString(line)
		if err != nil {
			return count, fmt.Errorf("write record: %w", err)
		}

		count++
	}

	err := buf.Flush()
	if err != nil {
		return count, fmt.Errorf("flush records: %w", err)
	}

	return count, nil
}

// FormatLine renders one record as a newline-terminated TSV line. Fields
// containing a tab, CR or LF cannot be read back and are rejected.
func FormatLine(rec Record) (string, error) {
	fields := []string{
		rec.Filename,
		strconv.Itoa(rec.Linenum),
		rec.Bugtype,
		string(rec.Severity),
		rec.Author,
	}

	for _, field := range fields {
		if strings.ContainsAny(field, tsvReserved) {
			return "", fmt.Errorf("%w: field %q holds a tab or line break", ErrMalformedLine, field)
		}
	}

	return strings.Join(fields, tsvSeparator) + "\n", nil
}

// ParseLine parses one TSV line without its terminator.
func ParseLine(line string) (Record, error) {
	fields := strings.Split(line, tsvSeparator)
	if len(fields) != tsvFields {
		return Record{}, fmt.Errorf("%w: want %d fields, got %d", ErrMalformedLine, tsvFields, len(fields))
	}

	linenum, err := strconv.Atoi(fields[1])
	if err != nil {
		return Record{}, fmt.Errorf("%w: line number %q", ErrMalformedLine, fields[1])
	}

	return Record{
		Filename: fields[0],
		Linenum:  linenum,
		Bugtype:  fields[2],
		Severity: Severity(fields[3]),
		Author:   fields[4],
	}, nil
}

// Read lazily parses TSV records from r. A malformed line ends the sequence
// with an error naming its position.
func Read(r io.Reader) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), maxTSVLine)

		lineno := 0

		for scanner.Scan() {
			lineno++

			rec, err := ParseLine(scanner.Text())
			if err != nil {
				yield(Record{}, fmt.Errorf("line %d: %w", lineno, err))

				return
			}

			if !yield(rec, nil) {
				return
			}
		}

		err := scanner.Err()
		if err != nil {
			yield(Record{}, fmt.Errorf("read records: %w", err))
		}
	}
}
