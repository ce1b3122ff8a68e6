package connection

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure modes the wizard knows how to present.
// Driver and resolver code wraps these with %w so callers can classify
// with errors.Is while still surfacing the full message inline.
var (
	ErrInvalidCredential   = errors.New("invalid credential")
	ErrConnectionTimeout   = errors.New("connection test timed out, check endpoint and proxy settings")
	ErrNoModelsFound       = errors.New("no models found")
	ErrCredentialNotFound  = errors.New("no stored credential for connection")
	ErrOAuthExchangeFailed = errors.New("authorization code exchange failed")
	ErrOAuthTimedOut       = errors.New("authorization timed out")
	ErrPersistenceFailed   = errors.New("failed to save connection")
)

// TransportError is returned when a probe or listing call failed before
// any HTTP status could be read. It names the endpoint so the user can
// spot typos and proxy issues.
type TransportError struct {
	Endpoint string
	Cause    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("could not reach %s: %v", e.Endpoint, e.Cause)
}

func (e *TransportError) Unwrap() error { return e.Cause }

// NewTransportError wraps a raw transport failure with its endpoint.
func NewTransportError(endpoint string, cause error) error {
	return &TransportError{Endpoint: endpoint, Cause: cause}
}
