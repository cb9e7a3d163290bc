package client

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthorized     = errors.New("unauthorized")
	ErrRequest          = errors.New("request failed")
	ErrResponse         = errors.New("invalid response")
	ErrUnknownResource  = errors.New("unknown resource")
	ErrMissingArguments = errors.New("missing arguments")
)

// HTTPError represents a non-2xx response from the backend.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// IsStatus reports whether err wraps an [HTTPError] with the given status code.
func IsStatus(err error, code int) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == code
	}
	return false
}
