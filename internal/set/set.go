// Package set provides a map-backed set type.
package set

type Set[T comparable] map[T]struct{}

func New[T comparable](vals ...T) Set[T] {
	s := make(Set[T], len(vals))
	for _, v := range vals {
		s.Add(v)
	}
	return s
}

func (s Set[T]) Add(v T) {
	s[v] = struct{}{}
}

func (s Set[T]) Has(v T) bool {
	_, ok := s[v]
	return ok
}

func (s Set[T]) Delete(v T) {
	delete(s, v)
}

func (s Set[T]) Len() int {
	return len(s)
}

// Items returns the members of s in no particular order. The returned
// slice is safe to use while s is modified.
func (s Set[T]) Items() []T {
	items := make([]T, 0, len(s))
	for v := range s {
		items = append(items, v)
	}
	return items
}
