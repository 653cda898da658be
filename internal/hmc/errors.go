package hmc

import (
	"errors"
	"fmt"
	"net/http"
)

// HMC reason codes of HTTP 409 responses to open-os-message-channel
const (
	ReasonChannelAlreadyOpen    = 331
	ReasonOSMessagesUnsupported = 332
)

// HTTPError is an error response of the Web Services API
type HTTPError struct {
	Method  string
	URI     string
	Status  int
	Reason  int
	Message string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HMC %s %s: HTTP %d reason %d: %s", e.Method, e.URI, e.Status, e.Reason, e.Message)
}

// IsStatus reports whether err is an *HTTPError with the given status and reason.
// A reason of -1 matches any reason.
func IsStatus(err error, status, reason int) bool {
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		return false
	}
	return httpErr.Status == status && (reason == -1 || httpErr.Reason == reason)
}

// isSessionGone reports whether err means the session no longer exists
func isSessionGone(err error) bool {
	return IsStatus(err, http.StatusForbidden, -1)
}
