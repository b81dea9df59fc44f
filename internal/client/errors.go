package client

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when the remote file does not exist (HTTP 404).
// Some year/season type combinations are legitimately not published yet.
var ErrNotFound = errors.New("remote file not found")

// ErrBodyTooLarge is wrapped in a FetchFailedError when a download exceeds
// the size cap. The body is discarded rather than parsed truncated.
var ErrBodyTooLarge = errors.New("response body too large")

// RateLimitedError is returned on HTTP 403/429. Callers abort the run on it
// since every following request would fail the same way.
type RateLimitedError struct {
	URL        string
	StatusCode int
	// Reset is the raw Retry-After or X-RateLimit-Reset header, if sent
	Reset string
}

func (e *RateLimitedError) Error() string {
	if e.Reset != "" {
		return fmt.Sprintf("rate limited fetching %s (status %d, reset %s)", e.URL, e.StatusCode, e.Reset)
	}
	return fmt.Sprintf("rate limited fetching %s (status %d)", e.URL, e.StatusCode)
}

// FetchFailedError covers every other unsuccessful fetch. StatusCode is 0
// for transport failures, in which case Err holds the cause.
type FetchFailedError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchFailedError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("fetch %s failed: %v", e.URL, e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("fetch %s failed with status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s failed with status %d", e.URL, e.StatusCode)
}

func (e *FetchFailedError) Unwrap() error {
	return e.Err
}

// IsRateLimited reports whether err is, or wraps, a RateLimitedError
func IsRateLimited(err error) bool {
	var rl *RateLimitedError
	return errors.As(err, &rl)
}
