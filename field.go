package inquire

// Field is a question attribute that is either a literal value or a
// computation over the answers collected so far.
// The zero Field is unset.
type Field[T any] struct {
	value   T
	compute func(View) (T, error)
	set     bool
}

// Literal returns a Field holding v.
func Literal[T any](v T) Field[T] {
	return Field[T]{value: v, set: true}
}

// Computed returns a Field whose value is produced by fn from the current answers.
func Computed[T any](fn func(View) (T, error)) Field[T] {
	if fn == nil {
		return Field[T]{}
	}
	return Field[T]{compute: fn, set: true}
}

// IsSet reports whether the field carries a literal or a computation.
func (f Field[T]) IsSet() bool { return f.set }

// IsComputed reports whether the field still holds an unresolved computation.
func (f Field[T]) IsComputed() bool { return f.compute != nil }

// Value returns the literal value. It is the zero value for unset or
// unresolved fields.
func (f Field[T]) Value() T { return f.value }

// Resolve evaluates a computed field against answers and freezes the result,
// so later calls return the same literal without running the computation again.
func (f *Field[T]) Resolve(answers View) (T, error) {
	if f.compute == nil {
		return f.value, nil
	}
	v, err := f.compute(answers)
	if err != nil {
		var zero T
		return zero, err
	}
	f.value = v
	f.compute = nil
	return v, nil
}
