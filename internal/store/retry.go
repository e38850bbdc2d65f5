package store

import (
	"context"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
)

const maxWriteRetries = 3

// withRetry runs fn, retrying a bounded number of times with fibonacci
// backoff when SQLite reports the database as busy or locked. Anything
// else is surfaced immediately.
func withRetry(fn func() error) error {
	b := retry.WithMaxRetries(maxWriteRetries, retry.NewFibonacci(50*time.Millisecond))
	return retry.Do(context.Background(), b, func(ctx context.Context) error {
		err := fn()
		if isTransient(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

func isTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked") ||
		strings.Contains(msg, "SQLITE_BUSY")
}
