package turso

import (
	"context"
	"strings"
	"time"
)

const maxStreamRetries = 2

// IsStreamError reports a remote Turso "stream not found" error, raised when
// a pooled connection's stream was closed server side.
func IsStreamError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "stream not found")
}

// withRetry retries fn up to maxRetries times on stream errors.
func withRetry[T any](ctx context.Context, maxRetries int, fn func() (T, error)) (T, error) {
	var result T
	var err error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		result, err = fn()
		if err == nil {
			return result, nil
		}

		if !IsStreamError(err) || attempt == maxRetries {
			return result, err
		}

		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-time.After(10 * time.Millisecond):
		}
	}

	return result, err
}

func withRetryErr(ctx context.Context, fn func() error) error {
	_, err := withRetry(ctx, maxStreamRetries, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}
