package graphql

// Result is the outcome of a remote call: either a value or an error.
type Result[T any] struct {
	value T
	err   error
}

// Ok wraps a successful value.
func Ok[T any](value T) Result[T] {
	return Result[T]{value: value}
}

// Err wraps a failure.
func Err[T any](err error) Result[T] {
	return Result[T]{err: err}
}

// From builds a result from the usual value, error pair.
func From[T any](value T, err error) Result[T] {
	if err != nil {
		return Err[T](err)
	}
	return Ok(value)
}

// Failed reports whether the call failed.
func (r Result[T]) Failed() bool { return r.err != nil }

// Err returns the failure, if any.
func (r Result[T]) Err() error { return r.err }

// Unwrap returns the value and error pair.
func (r Result[T]) Unwrap() (T, error) { return r.value, r.err }
