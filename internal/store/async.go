// internal/store/async.go
//
// Fire-and-forget writes with an observable result.
//
// UI-facing writes in this system are optimistic: the caller dispatches the
// write and moves on, and a failure surfaces asynchronously through a
// notification channel instead of blocking the initiating action. Rather
// than a truly detached goroutine, Async returns a buffered result channel
// so tests (and any caller that cares) can assert on the outcome
// deterministically.

package store

import "github.com/rs/zerolog"

// Async runs fn on its own goroutine and returns a channel that receives
// fn's result exactly once before closing. Errors are logged with the given
// operation name; there is no retry. The channel is buffered, so a caller
// that never reads it leaks nothing.
func Async(log zerolog.Logger, op string, fn func() error) <-chan error {
	ch := make(chan error, 1)
	go func() {
		err := fn()
		if err != nil {
			log.Error().Err(err).Str("op", op).Msg("async write failed")
		}
		ch <- err
		close(ch)
	}()
	return ch
}
