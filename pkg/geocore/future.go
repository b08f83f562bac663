package geocore

import "context"

// Future is the eventual outcome of an asynchronous call. Once started the
// call always runs to completion; cancelling a waiter only stops the wait.
type Future[T any] struct {
	done    chan struct{}
	outcome Outcome[T]
}

// Async runs fn in its own goroutine.
func Async[T any](ctx context.Context, fn func(context.Context) (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		v, err := fn(ctx)
		f.outcome = Capture(v, err)
	}()
	return f
}

// Resolved returns a future that is already complete.
func Resolved[T any](o Outcome[T]) *Future[T] {
	f := &Future[T]{done: make(chan struct{}), outcome: o}
	close(f.done)
	return f
}

// Done is closed once the outcome is available.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Await blocks until the outcome is available or ctx ends.
func (f *Future[T]) Await(ctx context.Context) Outcome[T] {
	select {
	case <-f.done:
		return f.outcome
	case <-ctx.Done():
		return Failure[T](ctx.Err())
	}
}

// Get is Await followed by Unwrap.
func (f *Future[T]) Get(ctx context.Context) (T, error) {
	return f.Await(ctx).Unwrap()
}

// Then runs fn with the value of f once it succeeds. If f fails, fn is
// never called and the returned future fails with the same error.
func Then[A, B any](ctx context.Context, f *Future[A], fn func(context.Context, A) (B, error)) *Future[B] {
	return Async(ctx, func(ctx context.Context) (B, error) {
		<-f.done
		if f.outcome.Failed() {
			var zero B
			return zero, f.outcome.err
		}
		return fn(ctx, f.outcome.value)
	})
}

// Recover runs fn only when f fails and replaces the outcome with its
// result.
func Recover[T any](ctx context.Context, f *Future[T], fn func(context.Context, error) (T, error)) *Future[T] {
	return Async(ctx, func(ctx context.Context) (T, error) {
		<-f.done
		if !f.outcome.Failed() {
			return f.outcome.value, nil
		}
		return fn(ctx, f.outcome.err)
	})
}
