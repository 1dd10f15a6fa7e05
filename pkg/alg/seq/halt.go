package seq

import "iter"

// Halt turns a fallible sequence into an infallible one that stops at the
// first error. The returned function reports that error once iteration has
// ended; it returns nil while the sequence is still being drained or when it
// completed cleanly.
func Halt[T any](items iter.Seq2[T, error]) (iter.Seq[T], func() error) {
	var err error

	halted := func(yield func(T) bool) {
		for item, itemErr := range items {
			if itemErr != nil {
				err = itemErr

				return
			}

			if !yield(item) {
				return
			}
		}
	}

	return halted, func() error { return err }
}
