// Package list implements a persistent singly linked list.
//
// Lists share their tails: Cons never modifies the receiver, so any number of
// lists may be built on top of the same rest.
package list

// List is a persistent list.
type List[T any] interface {
	// Len returns the number of values in the list.
	Len() int
	// Cons returns a new list with an additional value in the front.
	Cons(T) List[T]
	// First returns the first value in the list. It returns the zero value of
	// T if the list is empty.
	First() T
	// Rest returns the list after the first value. The rest of an empty list
	// is the list itself.
	Rest() List[T]
	// Empty returns whether the list has no values.
	Empty() bool
}

// New returns an empty list.
func New[T any]() List[T] { return &list[T]{} }

type list[T any] struct {
	first T
	rest  *list[T]
	count int
}

func (l *list[T]) Len() int {
	return l.count
}

func (l *list[T]) Cons(val T) List[T] {
	return &list[T]{val, l, l.count + 1}
}

func (l *list[T]) First() T {
	return l.first
}

func (l *list[T]) Rest() List[T] {
	if l.rest == nil {
		return l
	}
	return l.rest
}

func (l *list[T]) Empty() bool {
	return l.count == 0
}

// Slice returns the values of the list from first to last.
func Slice[T any](l List[T]) []T {
	s := make([]T, 0, l.Len())
	for ; !l.Empty(); l = l.Rest() {
		s = append(s, l.First())
	}
	return s
}
