package register

import "iter"

// KeyedSet maps keys to sets of values. Empty sets are dropped so that an
// emptied KeyedSet reports Empty.
type KeyedSet[K comparable, V comparable] struct {
	m map[K]map[V]struct{}
}

// NewKeyedSet constructs an empty KeyedSet.
func NewKeyedSet[K comparable, V comparable]() *KeyedSet[K, V] {
	return &KeyedSet[K, V]{m: make(map[K]map[V]struct{})}
}

// Add inserts v under k.
func (s *KeyedSet[K, V]) Add(k K, v V) {
	set, ok := s.m[k]
	if !ok {
		set = make(map[V]struct{})
		s.m[k] = set
	}
	set[v] = struct{}{}
}

// Remove deletes v from k. It reports whether v was present.
func (s *KeyedSet[K, V]) Remove(k K, v V) bool {
	set, ok := s.m[k]
	if !ok {
		return false
	}
	if _, ok := set[v]; !ok {
		return false
	}
	delete(set, v)
	if len(set) == 0 {
		delete(s.m, k)
	}
	return true
}

// RemoveKey drops k with all its values.
func (s *KeyedSet[K, V]) RemoveKey(k K) {
	delete(s.m, k)
}

// Has reports whether v is stored under k.
func (s *KeyedSet[K, V]) Has(k K, v V) bool {
	_, ok := s.m[k][v]
	return ok
}

// Len returns the number of values under k.
func (s *KeyedSet[K, V]) Len(k K) int {
	return len(s.m[k])
}

// Values iterates the values under k. The set must not be modified while
// iterating; use Slice for that.
func (s *KeyedSet[K, V]) Values(k K) iter.Seq[V] {
	return func(yield func(V) bool) {
		for v := range s.m[k] {
			if !yield(v) {
				return
			}
		}
	}
}

// Slice returns a copy of the values under k.
func (s *KeyedSet[K, V]) Slice(k K) []V {
	set := s.m[k]
	if len(set) == 0 {
		return nil
	}
	out := make([]V, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	return out
}

// Keys returns a copy of all keys.
func (s *KeyedSet[K, V]) Keys() []K {
	out := make([]K, 0, len(s.m))
	for k := range s.m {
		out = append(out, k)
	}
	return out
}

// Empty reports whether no key holds a value.
func (s *KeyedSet[K, V]) Empty() bool {
	return len(s.m) == 0
}
