package zotxt

import (
	"errors"
	"fmt"
)

// Sentinel errors for zotxt lookups.
var (
	// ErrNotFound indicates the service had no item for the key.
	ErrNotFound = errors.New("item not found")

	// ErrNetworkError indicates the service could not be reached.
	ErrNetworkError = errors.New("network error")

	// ErrInvalidResponse indicates a body that is not a JSON array of items.
	ErrInvalidResponse = errors.New("invalid response from zotxt")
)

// APIError is returned for unexpected non-2xx responses.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("zotxt error (status %d): %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err means the key had no match.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
