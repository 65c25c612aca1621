// Package testutil provides mock controllers for exercising the fabric
// client against real HTTP round trips.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// CookieName is the session cookie the controller issues on login.
const CookieName = "APIC-Cookie"

// NewMockServer creates a test HTTP server with predefined response.
// It validates the request path (with query) and, when token is not empty,
// the session cookie, then returns the specified response.
func NewMockServer(t *testing.T, expectedPath, token, responseBody string, statusCode int) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, expectedPath, PathWithQuery(r), "Request path should match expected")

		if token != "" {
			cookie, err := r.Cookie(CookieName)
			if assert.NoError(t, err, "session cookie should be set") {
				assert.Equal(t, token, cookie.Value, "session cookie should carry the token")
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		_, err := w.Write([]byte(responseBody))
		require.NoError(t, err, "Failed to write response body")
	}))
}

// NewMockServerMulti creates a test HTTP server with multiple path handlers.
// The handlers map keys are URL paths without query, values are handler functions.
func NewMockServerMulti(t *testing.T, handlers map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler, ok := handlers[r.URL.Path]
		if !ok {
			t.Errorf("Unexpected request path: %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
			return
		}
		handler(w, r)
	}))
}

// MockResponse is one canned reply of NewMockServerSequence.
type MockResponse struct {
	Body       string
	StatusCode int
}

// NewMockServerSequence creates a test server that returns responses in sequence.
// Each call to the server returns the next response in the slice.
func NewMockServerSequence(t *testing.T, responses []MockResponse) *httptest.Server {
	t.Helper()

	var (
		mu        sync.Mutex
		callCount int
	)

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		index := callCount
		callCount++
		mu.Unlock()

		if index >= len(responses) {
			t.Errorf("More requests than configured responses (got %d requests, have %d responses)",
				index+1, len(responses))
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		resp := responses[index]

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(resp.StatusCode)
		_, err := w.Write([]byte(resp.Body))
		require.NoError(t, err, "Failed to write response body")
	}))
}

// PathWithQuery returns the request path followed by the raw query, exactly
// as the client sent it.
func PathWithQuery(r *http.Request) string {
	path := r.URL.Path
	if r.URL.RawPath != "" {
		path = r.URL.RawPath
	}
	if r.URL.RawQuery == "" {
		return path
	}
	return path + "?" + r.URL.RawQuery
}

// Envelope renders a success envelope around the given managed objects,
// each a JSON document such as {"fvTenant":{"attributes":{...}}}.
func Envelope(objects ...string) string {
	return fmt.Sprintf(`{"totalCount":"%d","imdata":[%s]}`, len(objects), strings.Join(objects, ","))
}

// Object renders a managed object of class with the given attributes.
func Object(class string, attributes map[string]string) string {
	raw, err := json.Marshal(map[string]any{class: map[string]any{"attributes": attributes}})
	if err != nil {
		panic(err)
	}
	return string(raw)
}

// ErrorEnvelope renders the controller's error envelope.
func ErrorEnvelope(code int, text string) string {
	return Envelope(Object("error", map[string]string{
		"code": fmt.Sprint(code),
		"text": text,
	}))
}

// LoginEnvelope renders a successful aaaLogin reply carrying token.
func LoginEnvelope(token string) string {
	return Envelope(Object("aaaLogin", map[string]string{
		"token":                 token,
		"refreshTimeoutSeconds": "600",
		"userName":              "admin",
	}))
}
