package xclient

import (
	"errors"
	"fmt"
	"time"
)

// RateLimitError reports a platform 429 on a write endpoint. Writes are never
// retried inside the client; the caller reschedules using RetryAfter.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("platform rate limited, retry after %s", e.RetryAfter)
}

// APIError is any non-429 platform error response.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("x api status %d: %s", e.Status, e.Body)
}

// IsRateLimit reports whether err is a platform rate limit.
func IsRateLimit(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}
