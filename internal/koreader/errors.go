package koreader

import (
	"errors"
	"fmt"
)

// ErrUnauthorized indicates the sync server rejected the configured credentials
var ErrUnauthorized = errors.New("sync server rejected credentials")

// StatusError represents an unexpected HTTP response from the sync server.
// The raw status and body are kept for diagnostics.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("sync server error: HTTP %d: %s", e.StatusCode, e.Body)
}
