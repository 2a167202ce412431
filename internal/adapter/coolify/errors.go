package coolify

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/pscheid92/deployscloud/internal/domain"
)

// ErrCircuitOpen is returned without contacting Coolify while the breaker is open.
var ErrCircuitOpen = fmt.Errorf("coolify circuit breaker open: %w", domain.ErrUpstreamUnavailable)

// APIError is a non-2xx response from Coolify.
type APIError struct {
	Endpoint   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("coolify %s returned status %d: %s", e.Endpoint, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("coolify %s returned status %d", e.Endpoint, e.StatusCode)
}

// Unwrap maps 401 and 403 onto domain.ErrUnauthorized.
func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden {
		return domain.ErrUnauthorized
	}
	return nil
}

// IsTransport reports whether err never produced an HTTP response: the
// instance is unreachable, timed out, or the breaker is open.
func IsTransport(err error) bool {
	if err == nil {
		return false
	}
	_, isAPI := errors.AsType[*APIError](err)
	return !isAPI
}
