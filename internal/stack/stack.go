// Package stack provides an ordered collection with a focused element.
//
// It exists to keep track of the stack of windows in each group and to
// remember which window within the stack is focused, and is reused for
// anything else that needs "an ordered list plus a cursor" (for example
// the output list, whose focused element is the current output).
//
// Order and focus move independently: ShuffleNext/ShufflePrevious change
// the order of the elements and carry the focused element with them,
// while FocusNext/FocusPrevious move only the focus pointer.
package stack

// Stack is an ordered sequence of elements with a focus pointer. The
// focus index is always a valid index unless the stack is empty. The
// zero value is an empty stack ready to use.
type Stack[T any] struct {
	items   []T
	focused int
}

// New returns an empty stack.
func New[T any]() *Stack[T] {
	return &Stack[T]{}
}

// FromSlice returns a stack over the given elements with the first
// element focused.
func FromSlice[T any](items []T) *Stack[T] {
	return &Stack[T]{items: items}
}

// Len returns the number of elements in the stack.
func (s *Stack[T]) Len() int {
	return len(s.items)
}

// Empty reports whether the stack holds no elements.
func (s *Stack[T]) Empty() bool {
	return len(s.items) == 0
}

// Push appends an element and focuses it.
func (s *Stack[T]) Push(v T) {
	s.items = append(s.items, v)
	s.focused = len(s.items) - 1
}

// Values returns the elements in order, ignoring focus. The returned
// slice is a copy; mutating it does not affect the stack.
func (s *Stack[T]) Values() []T {
	out := make([]T, len(s.items))
	copy(out, s.items)
	return out
}

// At returns the element at position i.
func (s *Stack[T]) At(i int) T {
	return s.items[i]
}

// Set replaces the element at position i.
func (s *Stack[T]) Set(i int, v T) {
	s.items[i] = v
}

// Focused returns the focused element, if any.
func (s *Stack[T]) Focused() (T, bool) {
	if len(s.items) == 0 {
		var zero T
		return zero, false
	}
	return s.items[s.focused], true
}

// FocusedIndex returns the index of the focused element. The result is
// meaningless when the stack is empty.
func (s *Stack[T]) FocusedIndex() int {
	return s.focused
}

// Remove removes the first element matching the predicate and reports
// whether one was found. If the removed element was at or before the
// focused position, focus shifts one to the left (unless already at the
// start), so the focused element stays the same whenever possible.
func (s *Stack[T]) Remove(p func(T) bool) (T, bool) {
	for i, v := range s.items {
		if !p(v) {
			continue
		}
		if s.focused >= i && s.focused > 0 {
			s.focused--
		}
		s.items = append(s.items[:i], s.items[i+1:]...)
		return v, true
	}
	var zero T
	return zero, false
}

// RemoveFocused removes and returns the focused element, if any. Focus
// clamps to the last remaining element.
func (s *Stack[T]) RemoveFocused() (T, bool) {
	if len(s.items) == 0 {
		var zero T
		return zero, false
	}
	removed := s.items[s.focused]
	s.items = append(s.items[:s.focused], s.items[s.focused+1:]...)
	if s.focused >= len(s.items) && s.focused > 0 {
		s.focused = len(s.items) - 1
	}
	if len(s.items) == 0 {
		s.focused = 0
	}
	return removed, true
}

// Focus moves focus to the first element matching the predicate and
// reports whether one was found. Order is unaffected.
func (s *Stack[T]) Focus(p func(T) bool) bool {
	for i, v := range s.items {
		if p(v) {
			s.focused = i
			return true
		}
	}
	return false
}

// FocusNext shifts focus to the next element, clamping at the end.
func (s *Stack[T]) FocusNext() {
	if s.focused < len(s.items)-1 {
		s.focused++
	}
}

// FocusNextWrap shifts focus to the next element, wrapping to the start.
func (s *Stack[T]) FocusNextWrap() {
	if s.focused < len(s.items)-1 {
		s.focused++
	} else {
		s.focused = 0
	}
}

// FocusPrevious shifts focus to the previous element, clamping at the
// start.
func (s *Stack[T]) FocusPrevious() {
	if s.focused > 0 {
		s.focused--
	}
}

// ShuffleNext swaps the focused element with its successor, moving the
// focus with it. No-op when the focused element is last.
func (s *Stack[T]) ShuffleNext() {
	if s.focused <= len(s.items)-2 {
		s.items[s.focused], s.items[s.focused+1] = s.items[s.focused+1], s.items[s.focused]
		s.focused++
	}
}

// ShufflePrevious swaps the focused element with its predecessor,
// moving the focus with it. No-op when the focused element is first.
func (s *Stack[T]) ShufflePrevious() {
	if s.focused >= 1 {
		s.items[s.focused], s.items[s.focused-1] = s.items[s.focused-1], s.items[s.focused]
		s.focused--
	}
}

// Slice borrows the contiguous sub-sequence [lo, hi), ignoring focus.
func (s *Stack[T]) Slice(lo, hi int) []T {
	return s.items[lo:hi]
}
