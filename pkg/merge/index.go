package merge

import (
	"iter"

	"github.com/Sumatoshi-tech/blamethrower/pkg/record"
)

type lineKey struct {
	filename string
	linenum  int
}

// index holds findings by line. Entries are removed as they are matched, so
// whatever remains after the join is the set of phantoms.
type index struct {
	bugs  map[lineKey][]record.Record
	order []lineKey
}

func newIndex() *index {
	return &index{bugs: make(map[lineKey][]record.Record)}
}

func (idx *index) add(rec record.Record) {
	key := lineKey{filename: rec.Filename, linenum: rec.Linenum}

	bugs, seen := idx.bugs[key]
	if !seen {
		idx.order = append(idx.order, key)
	}

	idx.bugs[key] = append(bugs, rec)
}

func (idx *index) take(key lineKey) ([]record.Record, bool) {
	bugs, ok := idx.bugs[key]
	if ok {
		delete(idx.bugs, key)
	}

	return bugs, ok
}

// leftovers yields the unmatched findings in first-seen key order.
func (idx *index) leftovers() iter.Seq[record.Record] {
	return func(yield func(record.Record) bool) {
		for _, key := range idx.order {
			bugs, ok := idx.bugs[key]
			if !ok {
				continue
			}

			for _, bug := range bugs {
				if !yield(bug) {
					return
				}
			}
		}
	}
}
