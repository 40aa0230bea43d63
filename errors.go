package goolstar

import (
	"errors"
	"fmt"
)

var (
	// ErrNotAuthenticated is returned when an operation needs a session and
	// none is established.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrUnauthorized is returned after an HTTP 401 that the single
	// refresh-and-retry attempt could not recover.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrRateLimited is returned when a request still receives HTTP 429 after
	// the retry budget is exhausted.
	ErrRateLimited = errors.New("rate limited")
	// ErrStaffRequired is returned by dashboard operations when the session
	// lacks staff privileges.
	ErrStaffRequired = errors.New("staff session required")
)

// APIError is a non-2xx backend response. Detail carries the server's
// "detail" message when the error body conformed; otherwise it falls back to
// the HTTP status text, preserving graceful degradation for malformed bodies.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}
