// Package httpclient builds the *http.Client every controller request goes
// through: a private copy of the caller's client whose transport is wrapped
// by an ordered middleware chain.
package httpclient

import (
	"net/http"
	"time"
)

// DefaultTimeout bounds a single controller round trip.
const DefaultTimeout = 30 * time.Second

// Middleware wraps an http.RoundTripper to add behavior.
type Middleware func(http.RoundTripper) http.RoundTripper

// Client sends requests through its middleware chain.
type Client struct {
	base       *http.Client
	middleware []Middleware
}

// New creates a client from opts. Middleware is wired once, here; the
// resulting transport is fixed for the lifetime of the client.
func New(opts ...Option) *Client {
	c := &Client{
		base: &http.Client{Timeout: DefaultTimeout},
	}

	for _, opt := range opts {
		opt(c)
	}

	c.base.Transport = chain(c.base.Transport, c.middleware)

	return c
}

// chain wraps transport so that middleware[0] is the first to see a request.
func chain(transport http.RoundTripper, middleware []Middleware) http.RoundTripper {
	if len(middleware) == 0 {
		return transport
	}
	if transport == nil {
		transport = http.DefaultTransport
	}

	for i := len(middleware) - 1; i >= 0; i-- {
		transport = middleware[i](transport)
	}

	return transport
}

// Do sends req through the middleware chain.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	//nolint:wrapcheck // Callers classify transport errors themselves
	return c.base.Do(req)
}

// HTTPClient returns the client's private *http.Client.
func (c *Client) HTTPClient() *http.Client {
	return c.base
}
