// Package memo provides a memoized value with an explicit invalidation flag.
package memo

// Value caches the result of compute until invalidated.
type Value[T any] struct {
	compute func() T
	value   T
	valid   bool
}

// New wraps compute.
func New[T any](compute func() T) *Value[T] {
	return &Value[T]{compute: compute}
}

// Get returns the cached result, computing it when invalid.
func (v *Value[T]) Get() T {
	if !v.valid {
		v.value = v.compute()
		v.valid = true
	}
	return v.value
}

// Invalidate drops the cached result.
func (v *Value[T]) Invalidate() {
	var zero T
	v.value = zero
	v.valid = false
}

// Valid reports whether a cached result is held.
func (v *Value[T]) Valid() bool { return v.valid }

// Set groups values invalidated together.
type Set []interface{ Invalidate() }

// Invalidate drops every member.
func (s Set) Invalidate() {
	for _, v := range s {
		v.Invalidate()
	}
}
