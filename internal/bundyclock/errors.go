package bundyclock

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// APIError is returned for non-2xx responses. Message carries the backend's
// own explanation (e.g. "Already timed in today. Please time out first.").
type APIError struct {
	StatusCode int
	Endpoint   string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: request failed with status %d", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("%s: request failed with status %d: %s", e.Endpoint, e.StatusCode, e.Message)
}

// IsNotFoundError returns true if the error indicates a 404 Not Found response.
func IsNotFoundError(err error) bool {
	return hasStatus(err, http.StatusNotFound)
}

// IsUnauthorized returns true for 401 responses. The kiosk treats these as
// ordinary transport failures; the hosting shell decides whether to log in
// again.
func IsUnauthorized(err error) bool {
	return hasStatus(err, http.StatusUnauthorized)
}

// IsTimeout reports whether err was caused by a deadline rather than by the
// backend answering.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// Message returns the backend-provided message of an APIError, or "".
func Message(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return ""
}

func hasStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}
