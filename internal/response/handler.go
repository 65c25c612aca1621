// Package response turns raw controller HTTP responses into decoded values
// or a StatusError carrying the body for error-envelope parsing.
package response

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/cockroachdb/errors"
)

// maxBodySize caps how much of a controller response is buffered.
const maxBodySize = 64 << 20

// StatusError is returned for any non-2xx response. Body holds the raw
// payload so callers can parse the controller's error envelope.
type StatusError struct {
	StatusCode int
	Status     string
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// IsSuccess reports whether the status code is in the 2xx range.
func IsSuccess(statusCode int) bool {
	return statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices
}

// ReadBody drains and closes the response body. A non-2xx status yields a
// *StatusError that still carries the body.
//
// Usage:
//
//	body, err := response.ReadBody(resp)
//	var statusErr *response.StatusError
//	if errors.As(err, &statusErr) { ... parse statusErr.Body ... }
func ReadBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response body")
	}

	if !IsSuccess(resp.StatusCode) {
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       body,
		}
	}

	return body, nil
}

// Decode unmarshals a JSON payload into T. An empty payload is an error.
func Decode[T any](body []byte, errorMsg string) (*T, error) {
	if len(body) == 0 {
		return nil, errors.Newf("%s: empty response from controller", errorMsg)
	}

	var out T
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, errors.Wrap(err, errorMsg)
	}

	return &out, nil
}
