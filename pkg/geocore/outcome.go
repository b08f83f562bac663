package geocore

// Outcome holds either a value or an error, never both.
type Outcome[T any] struct {
	value T
	err   error
}

// Success wraps v.
func Success[T any](v T) Outcome[T] {
	return Outcome[T]{value: v}
}

// Failure wraps err. A nil err is recorded as KindOtherError so the
// outcome still counts as failed.
func Failure[T any](err error) Outcome[T] {
	if err == nil {
		err = &Error{Kind: KindOtherError, Message: "nil error"}
	}
	return Outcome[T]{err: asError(err)}
}

// Capture converts a (value, error) pair into an outcome.
func Capture[T any](v T, err error) Outcome[T] {
	if err != nil {
		return Failure[T](err)
	}
	return Success(v)
}

// Value returns the wrapped value, or the zero value on failure.
func (o Outcome[T]) Value() T {
	if o.err != nil {
		var zero T
		return zero
	}
	return o.value
}

// Err returns the failure, or nil on success.
func (o Outcome[T]) Err() error { return o.err }

// Failed reports whether o is a failure.
func (o Outcome[T]) Failed() bool { return o.err != nil }

// Unwrap returns the outcome as a Go (value, error) pair.
func (o Outcome[T]) Unwrap() (T, error) { return o.Value(), o.err }
