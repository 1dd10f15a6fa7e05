// Package seq provides streaming helpers over single-pass [iter.Seq] sequences.
package seq

import "iter"

// Group partitions items into consecutive groups. A new group begins at every
// item for which isStart returns true, and that item is the first element of
// the group. Items preceding the first start item form a headless first group.
// An empty input yields no groups.
//
// Only one item of look-ahead is held. Groups must be consumed in order: when
// the caller moves to the next group, whatever it did not read from the
// current one is skipped. Reading a group after a later one has been
// requested yields nothing.
func Group[T any](items iter.Seq[T], isStart func(T) bool) iter.Seq[iter.Seq[T]] {
	return func(yield func(iter.Seq[T]) bool) {
		next, stop := iter.Pull(items)
		defer stop()

		head, ok := next()

		for ok {
			grp := &group[T]{next: next, isStart: isStart, head: head}

			if !yield(grp.all) {
				return
			}

			for !grp.done {
				grp.pull()
			}

			grp.closed = true
			head, ok = grp.nextHead, grp.hasNext
		}
	}
}

// group is the cursor state of one partition.
type group[T any] struct {
	next    func() (T, bool)
	isStart func(T) bool

	head     T
	nextHead T

	started bool
	done    bool
	hasNext bool
	closed  bool
}

func (g *group[T]) pull() (T, bool) {
	var zero T

	if !g.started {
		g.started = true

		return g.head, true
	}

	if g.done {
		return zero, false
	}

	item, ok := g.next()
	if !ok {
		g.done = true

		return zero, false
	}

	if g.isStart(item) {
		g.done = true
		g.nextHead = item
		g.hasNext = true

		return zero, false
	}

	return item, true
}

func (g *group[T]) all(yield func(T) bool) {
	if g.closed {
		return
	}

	for {
		item, ok := g.pull()
		if !ok || !yield(item) {
			return
		}
	}
}
