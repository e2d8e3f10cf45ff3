// Package sequence holds small chainable helpers over iter.Seq.
package sequence

import "iter"

// Iterator is an immutable, chainable view over a sequence of T.
type Iterator[T any] struct {
	seq iter.Seq[T]
}

// From iterates over a slice. The slice is read lazily, on every pass.
func From[T any](data []T) *Iterator[T] {
	return &Iterator[T]{
		seq: func(yield func(T) bool) {
			for _, v := range data {
				if !yield(v) {
					return
				}
			}
		},
	}
}

// Collect exhausts the iterator into a new slice.
func (i *Iterator[T]) Collect() []T {
	var out []T
	for v := range i.seq {
		out = append(out, v)
	}
	return out
}

// Filter keeps the elements that satisfy pred.
func (i *Iterator[T]) Filter(pred func(T) bool) *Iterator[T] {
	return &Iterator[T]{
		seq: func(yield func(T) bool) {
			for v := range i.seq {
				if pred(v) && !yield(v) {
					return
				}
			}
		},
	}
}

// Partition splits the elements into those that satisfy pred and the rest, keeping order.
func (i *Iterator[T]) Partition(pred func(T) bool) (matched, rest []T) {
	for v := range i.seq {
		if pred(v) {
			matched = append(matched, v)
		} else {
			rest = append(rest, v)
		}
	}
	return matched, rest
}

// Count returns the number of elements satisfying pred.
func (i *Iterator[T]) Count(pred func(T) bool) int {
	n := 0
	for v := range i.seq {
		if pred(v) {
			n++
		}
	}
	return n
}

// Any reports whether some element satisfies pred. It stops at the first match.
func (i *Iterator[T]) Any(pred func(T) bool) bool {
	for v := range i.seq {
		if pred(v) {
			return true
		}
	}
	return false
}

// Map converts every element with fn. It is a function because methods cannot
// introduce type parameters.
func Map[T, U any](i *Iterator[T], fn func(T) U) *Iterator[U] {
	return &Iterator[U]{
		seq: func(yield func(U) bool) {
			for v := range i.seq {
				if !yield(fn(v)) {
					return
				}
			}
		},
	}
}
