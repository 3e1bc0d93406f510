package integration

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConfigured signals missing credentials or environment for an integration.
	ErrNotConfigured = errors.New("integration: not configured")
	// ErrTokenNotFound indicates no token record exists for the service.
	ErrTokenNotFound = errors.New("integration: no token configured for service")
	// ErrNoRefreshToken indicates the stored token expired and cannot be refreshed.
	ErrNoRefreshToken = errors.New("integration: token expired, no refresh token")
	// ErrReauthorizationRequired indicates the provider rejected the refresh token.
	ErrReauthorizationRequired = errors.New("integration: reauthorization required")
	// ErrDataUnavailable indicates an upstream list (accounts, locations) came back empty.
	ErrDataUnavailable = errors.New("integration: data unavailable")
	// ErrUnexpectedResponse indicates an upstream payload is missing required fields.
	ErrUnexpectedResponse = errors.New("integration: unexpected response shape")
	// ErrInvalidState indicates the OAuth state is unknown or already used.
	ErrInvalidState = errors.New("integration: invalid state")
	// ErrInvalidRequest indicates caller input validation errors.
	ErrInvalidRequest = errors.New("integration: invalid request")
)

// UpstreamError carries a non-success response from a provider API.
type UpstreamError struct {
	Provider string
	Status   int
	Message  string
}

func (e *UpstreamError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s api error: status=%d", e.Provider, e.Status)
	}
	return fmt.Sprintf("%s api error: status=%d: %s", e.Provider, e.Status, e.Message)
}
