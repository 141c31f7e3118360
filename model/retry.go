package model

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"
)

const (
	maxAttempts = 3
	baseBackoff = 300 * time.Millisecond
)

// statusError is a non-2xx response from an upstream API.
type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("upstream API error: status %d, body: %s", e.status, e.body)
}

// retryable reports whether the failure is worth another attempt:
// timeouts, transport failures and 5xx responses are; bad requests and
// auth failures are not.
func retryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.status >= 500 || se.status == 429
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	var ue *url.Error
	if errors.As(err, &ue) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// withRetry runs fn up to maxAttempts times with linear backoff,
// stopping early on non-retryable errors or context cancellation.
func withRetry(ctx context.Context, fn func(context.Context) (string, error)) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		out, err := fn(ctx)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if !retryable(err) {
			return "", err
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(time.Duration(attempt) * baseBackoff):
		}
	}
	return "", lastErr
}
