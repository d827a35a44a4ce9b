// Package async implements a Promise, which signals completion of an
// asynchronous event such as the reset of every pending durable store.
package async

import "context"

// Promise is a simple notification primitive for asynchronous events.
// A Promise is resolved at most once.
type Promise chan struct{}

// Resolve wakes any clients currently waiting on the Promise.
func (s Promise) Resolve() {
	close(s)
}

// Resolved returns whether the Promise has been resolved.
func (s Promise) Resolved() bool {
	select {
	case <-s:
		return true
	default:
		return false
	}
}

// Wait synchronously blocks until the Promise is resolved.
func (s Promise) Wait() {
	<-s
}

// WaitWithContext blocks until the Promise is resolved, or |ctx| is done,
// in which case the Context error is returned.
func (s Promise) WaitWithContext(ctx context.Context) error {
	select {
	case <-s:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
