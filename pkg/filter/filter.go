// Package filter drops records for files that are not worth blaming.
package filter

import (
	"iter"

	"github.com/src-d/enry/v2"

	"github.com/Sumatoshi-tech/blamethrower/pkg/record"
)

// Vendored reports whether path is third-party code, documentation,
// configuration or a dotfile.
func Vendored(path string) bool {
	return enry.IsVendor(path) ||
		enry.IsDocumentation(path) ||
		enry.IsConfiguration(path) ||
		enry.IsDotFile(path)
}

// SkipVendored drops records whose file is Vendored.
func SkipVendored(records iter.Seq[record.Record]) iter.Seq[record.Record] {
	return Where(records, func(rec record.Record) bool {
		return !Vendored(rec.Filename)
	})
}

// Where keeps the records for which keep returns true. Verdicts are cached
// per filename.
func Where(records iter.Seq[record.Record], keep func(record.Record) bool) iter.Seq[record.Record] {
	return func(yield func(record.Record) bool) {
		verdicts := make(map[string]bool)

		for rec := range records {
			ok, seen := verdicts[rec.Filename]
			if !seen {
				ok = keep(rec)
				verdicts[rec.Filename] = ok
			}

			if ok && !yield(rec) {
				return
			}
		}
	}
}
