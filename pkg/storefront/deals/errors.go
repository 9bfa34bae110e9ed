package deals

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound    = errors.New("deals: not found")
	ErrRateLimited = errors.New("deals: rate limited")
	ErrUpstream    = errors.New("deals: upstream error")
	ErrUnavailable = errors.New("deals: upstream unreachable")
)

// StatusError is a non-200 API response.
type StatusError struct {
	StatusCode int
	Path       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("cheapshark %s: %d %s", e.Path, e.StatusCode, http.StatusText(e.StatusCode))
}

func (e *StatusError) Is(target error) bool {
	switch {
	case e.StatusCode == http.StatusNotFound:
		return target == ErrNotFound
	case e.StatusCode == http.StatusTooManyRequests:
		return target == ErrRateLimited
	}
	return target == ErrUpstream
}

// retryable is true for throttling and server side failures.
func (e *StatusError) retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}
