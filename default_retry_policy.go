package client

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/go-resty/resty/v2"
)

// DefaultRetryPolicy is the default retry condition used by [Client]. It
// retries on HTTP 429 (rate limit), 5xx server errors, and connection-level
// failures such as DNS errors and refused connections. It does not retry on
// context cancellation, timeouts, or any other 4xx response: unauthorized,
// forbidden, not-found, and validation outcomes would not change on retry.
//
// Supply a custom function via [WithRetryPolicy] to override this behaviour.
func DefaultRetryPolicy(r *resty.Response, err error) bool {
	if err != nil {
		// Don't retry on context cancellation or deadline exceeded
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return false
		}

		// Don't retry on timeouts; the next attempt would hit the
		// same deadline
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return false
		}

		// Retry on other connection errors
		return true
	}

	// Retry on 429 (rate limit) and 5xx (server errors)
	return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= 500
}
