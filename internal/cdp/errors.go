package cdp

import (
	"errors"
	"fmt"
)

// Sentinel errors for protocol-level failures.
var (
	// ErrUnknownResponse is returned when a decoded message carries
	// none of method, result, or error.
	ErrUnknownResponse = errors.New("unknown response from browser")

	// ErrResolveFailed is returned when the version-discovery endpoint
	// does not answer with HTTP 200.
	ErrResolveFailed = errors.New("failed to resolve debugging endpoint")
)

// ProtocolError is a CDP error response, carrying the remote code and
// message verbatim.
type ProtocolError struct {
	Code    int
	Message string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("browser returned error %d: %s", e.Code, e.Message)
}
