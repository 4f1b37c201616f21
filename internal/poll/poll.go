// Package poll provides a bounded condition-polling strategy for
// collaborators that advance asynchronously and offer no completion
// callback.
package poll

import (
	"context"
	"errors"
	"time"
)

// ErrAttemptsExceeded is returned when the condition never held within
// the attempt budget.
var ErrAttemptsExceeded = errors.New("poll: attempts exceeded")

// WaitUntil checks cond up to maxAttempts times, sleeping interval
// between checks. It returns nil as soon as cond holds, ctx.Err() if the
// context is done first, and ErrAttemptsExceeded once the budget runs
// out. Bounds are iteration caps, not wall-clock deadlines.
func WaitUntil(ctx context.Context, interval time.Duration, maxAttempts int, cond func() bool) error {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if cond() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
	if cond() {
		return nil
	}
	return ErrAttemptsExceeded
}
