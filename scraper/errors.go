package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrInvalidResponse indicates the API answered with a structurally invalid
// payload (a missing or malformed field). During count discovery this is
// fatal for the whole run.
type ErrInvalidResponse struct {
	Field string
}

func (e ErrInvalidResponse) Error() string {
	return fmt.Sprintf("invalid response: missing or malformed %s", e.Field)
}

// ErrTooManyFailures is the search crawler's circuit breaker: consecutive
// batch failures suggest the session or IP is blocked and continuing would
// waste quota.
type ErrTooManyFailures struct {
	Consecutive int
}

func (e ErrTooManyFailures) Error() string {
	return fmt.Sprintf("too many consecutive errors (%d), stopping crawl", e.Consecutive)
}

// ErrHTTPStatus indicates a non-success HTTP response.
type ErrHTTPStatus struct {
	StatusCode int
}

func (e ErrHTTPStatus) Error() string {
	return fmt.Sprintf("http status %d", e.StatusCode)
}

// errorCategory buckets a fetch error for metric labels.
func errorCategory(err error) string {
	if err == nil {
		return "unknown"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return "connection"
	}
	var status ErrHTTPStatus
	if errors.As(err, &status) {
		return "http"
	}
	var invalid ErrInvalidResponse
	if errors.As(err, &invalid) {
		return "invalid_response"
	}
	return "other"
}
