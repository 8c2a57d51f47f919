package retry

import (
	"context"
	"time"
)

// Do runs fn up to attempts times, sleeping backoff*n between tries, as long
// as retryable(err) is true. Any other error, or context cancellation,
// surfaces immediately. Bounded on purpose: a ledger call must finish with a
// definite outcome, never spin.
func Do(ctx context.Context, attempts int, backoff time.Duration, retryable func(error) bool, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		err = fn()
		if err == nil || !retryable(err) {
			return err
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff * time.Duration(i+1)):
		}
	}
	return err
}
