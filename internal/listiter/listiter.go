// Package listiter is a small self-removing ordered list with a cursor,
// ported from uxapi.listiter. WSHandler's pre-processor chain is built
// on it: a processor can remove itself (or insert a follow-up processor)
// while the chain is mid-iteration, which is how a connection's
// keepalive/login/subscribe phases each retire once they complete.
package listiter

import "errors"

// ErrNoPreviousElement is returned by Remove/Set when there is no
// "current" element to act on — either iteration hasn't started, or
// nothing has been visited yet this pass.
var ErrNoPreviousElement = errors.New("listiter: no previous element")

// List is a cursor-based iterator over a slice that supports mutation
// relative to the cursor's position while iterating.
type List[T any] struct {
	lst    []T
	cursor int
}

// New builds a List over an initial slice (may be nil/empty).
func New[T any](initial []T) *List[T] {
	l := &List[T]{lst: initial}
	l.Rewind()
	return l
}

// Len reports the number of elements currently in the list.
func (l *List[T]) Len() int {
	return len(l.lst)
}

// Slice returns the current backing slice; callers must not mutate it.
func (l *List[T]) Slice() []T {
	return l.lst
}

// Rewind resets the cursor to the start of the list.
func (l *List[T]) Rewind() {
	if len(l.lst) == 0 {
		l.cursor = -1
	} else {
		l.cursor = 0
	}
}

// HasNext reports whether Next would return an element.
func (l *List[T]) HasNext() bool {
	return l.cursor >= 0 && l.cursor < len(l.lst)
}

// Next returns the next element and advances the cursor, or the zero
// value and false when iteration is exhausted.
func (l *List[T]) Next() (T, bool) {
	if !l.HasNext() {
		var zero T
		return zero, false
	}
	v := l.lst[l.cursor]
	l.cursor++
	return v, true
}

// Prepend inserts elem at the front of the list, keeping the cursor on
// the element it currently points at.
func (l *List[T]) Prepend(elem T) {
	l.lst = append(l.lst[:0:0], append([]T{elem}, l.lst...)...)
	l.cursor++
}

// Append adds elem to the end of the list. If the list was empty, the
// cursor starts pointing at it.
func (l *List[T]) Append(elem T) {
	l.lst = append(l.lst, elem)
	if l.cursor < 0 {
		l.cursor = 0
	}
}

// Add inserts elem immediately after the cursor's current position,
// so it will be visited on this same pass.
func (l *List[T]) Add(elem T) {
	i := l.cursor
	if i < 0 {
		i = 0
	}
	l.lst = append(l.lst, elem)
	copy(l.lst[i+1:], l.lst[i:])
	l.lst[i] = elem
	if l.cursor < 0 {
		l.cursor = 0
	}
}

// Remove deletes the element last returned by Next (when match is
// nil), or the first element satisfying match. It returns
// ErrNoPreviousElement if there is nothing to remove.
func (l *List[T]) Remove(match func(T) bool) error {
	var i int
	if match == nil {
		i = l.cursor - 1
	} else {
		i = -1
		for idx, v := range l.lst {
			if match(v) {
				i = idx
				break
			}
		}
	}
	if i < 0 {
		return ErrNoPreviousElement
	}
	l.lst = append(l.lst[:i], l.lst[i+1:]...)
	if l.cursor > 0 {
		if i < l.cursor {
			l.cursor--
		}
	} else if len(l.lst) == 0 {
		l.cursor = -1
	}
	return nil
}

// Set replaces the element last returned by Next with newElem. Unlike
// the Python original (whose set() always raised IndexError, even
// after a successful write), this returns nil on success — see
// DESIGN.md for why the bug is not reproduced.
func (l *List[T]) Set(newElem T) error {
	if l.cursor > 0 {
		l.lst[l.cursor-1] = newElem
		return nil
	}
	return ErrNoPreviousElement
}
