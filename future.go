package dkr

import "context"

// Future is the deferred result of a call started with Go.
type Future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

// Go runs fn in its own goroutine and returns a Future for its result.
// Several futures may be in flight at once; nothing orders them, so a
// caller that needs upload-then-list must wait on the first before starting
// the second.
//
//	f := dkr.Go(ctx, func(ctx context.Context) ([]dkr.Document, error) {
//		return client.ListDocuments(ctx, nil)
//	})
//	docs, err := f.Await(ctx)
func Go[T any](ctx context.Context, fn func(context.Context) (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		f.value, f.err = fn(ctx)
	}()
	return f
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Result blocks until the call completes.
func (f *Future[T]) Result() (T, error) {
	<-f.done
	return f.value, f.err
}

// Await waits for the result or for ctx to end. Giving up on the wait does
// not cancel the call itself; that is governed by the context passed to Go
// and the client timeout.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
