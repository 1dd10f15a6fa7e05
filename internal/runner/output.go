package runner

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"

	"github.com/Sumatoshi-tech/blamethrower/pkg/record"
)

// RecordFormat is a serialization of the merged record stream.
type RecordFormat string

// Record stream formats.
const (
	FormatTSV    RecordFormat = "tsv"
	FormatNDJSON RecordFormat = "ndjson"
)

// ErrUnknownRecordFormat is returned for an unsupported record format name.
var ErrUnknownRecordFormat = errors.New("unknown record format")

// ParseRecordFormat validates a record format name. Empty means TSV.
func ParseRecordFormat(name string) (RecordFormat, error) {
	switch RecordFormat(name) {
	case "", FormatTSV:
		return FormatTSV, nil
	case FormatNDJSON:
		return FormatNDJSON, nil
	}

	return "", fmt.Errorf("%w: %q (want %s or %s)", ErrUnknownRecordFormat, name, FormatTSV, FormatNDJSON)
}

// WriteRecords returns a Consumer that serializes records to w.
func WriteRecords(w io.Writer, format RecordFormat) Consumer {
	if format == FormatNDJSON {
		return func(records iter.Seq[record.Record]) error {
			enc := json.NewEncoder(w)

			for rec := range records {
				if err := enc.Encode(rec); err != nil {
					return fmt.Errorf("write record: %w", err)
				}
			}

			return nil
		}
	}

	return func(records iter.Seq[record.Record]) error {
		_, err := record.Write(w, records)

		return err
	}
}
