package httpclient

import (
	"net/http"
	"time"
)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient bases the client on a copy of client. The caller's value is
// never modified. The copy has no cookie jar; the session cookie is set on
// every request by middleware and nothing else may send one.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client == nil {
			return
		}

		clone := *client
		clone.Jar = nil
		c.base = &clone
	}
}

// WithTimeout sets the request timeout. Non-positive values keep the current one.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.base.Timeout = timeout
		}
	}
}

// WithTransport sets the innermost transport. Middleware wraps it.
func WithTransport(transport http.RoundTripper) Option {
	return func(c *Client) {
		c.base.Transport = transport
	}
}

// WithMiddleware appends middleware. The first one added is the outermost:
//
//	WithMiddleware(A, B, C) creates chain: A(B(C(transport)))
//	Request flow: A -> B -> C -> transport -> controller
func WithMiddleware(middleware ...Middleware) Option {
	return func(c *Client) {
		c.middleware = append(c.middleware, middleware...)
	}
}
