package fabric

import (
	"fmt"
	"net/http"

	"github.com/cockroachdb/errors"
)

var (
	// ErrNotAuthenticated is returned by calls issued before a successful Login.
	ErrNotAuthenticated = errors.New("not authenticated: call Login first")
	// ErrMalformedDN is returned when a distinguished name does not match
	// the expected grammar.
	ErrMalformedDN = errors.New("malformed distinguished name")
	// ErrUnsupportedMethod is returned for HTTP methods other than GET and POST.
	ErrUnsupportedMethod = errors.New("unsupported method")
	// ErrInvalidArgument is returned when an operation argument is out of range or empty.
	ErrInvalidArgument = errors.New("invalid argument")
)

// TransportError reports a failure to reach the controller: DNS, TLS,
// connection refused or timeout.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error: %s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// APIError is a non-2xx controller response. Code and Message come from
// the error record of the envelope; Code is 0 when the body could not be
// parsed, in which case Message is the HTTP status text.
type APIError struct {
	StatusCode int
	Code       int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("controller error %d (HTTP %d): %s", e.Code, e.StatusCode, e.Message)
}

// IsDuplicate reports whether the error is the controller's duplicate-create
// error. See IsDuplicateMessage for the matching rule.
func (e *APIError) IsDuplicate() bool {
	return IsDuplicateMessage(e.Message)
}

// AuthError is returned when login fails. Err holds the cause: an
// *APIError, a *TransportError or a malformed login response.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed: %v", e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// IsTransportError reports whether err is or wraps a *TransportError.
func IsTransportError(err error) bool {
	var target *TransportError
	return errors.As(err, &target)
}

// IsAPIError reports whether err is or wraps an *APIError.
func IsAPIError(err error) bool {
	var target *APIError
	return errors.As(err, &target)
}

// IsAuthError reports whether err is or wraps an *AuthError.
func IsAuthError(err error) bool {
	var target *AuthError
	return errors.As(err, &target)
}

// IsDuplicate reports whether err carries the controller's duplicate-create error.
func IsDuplicate(err error) bool {
	var target *APIError
	return errors.As(err, &target) && target.IsDuplicate()
}

func statusText(code int) string {
	if text := http.StatusText(code); text != "" {
		return text
	}
	return fmt.Sprintf("HTTP status %d", code)
}
