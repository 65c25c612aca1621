package middleware

import (
	"maps"
	"net/http"
)

// SessionCookie returns a middleware that attaches the controller session
// token as a cookie to every request. The token is read per request so a
// re-authentication is picked up without rebuilding the transport.
// Requests go out without the cookie while token returns an empty string
// (the login call itself).
func SessionCookie(name string, token func() string) func(http.RoundTripper) http.RoundTripper {
	return func(next http.RoundTripper) http.RoundTripper {
		return &sessionCookieTransport{
			next:  next,
			name:  name,
			token: token,
		}
	}
}

type sessionCookieTransport struct {
	next  http.RoundTripper
	name  string
	token func() string
}

func (t *sessionCookieTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	value := t.token()
	if value == "" {
		//nolint:wrapcheck // Middleware passes through errors from next handler in chain
		return t.next.RoundTrip(req)
	}

	// Clone request to avoid modifying original
	req = cloneRequest(req)
	req.AddCookie(&http.Cookie{Name: t.name, Value: value})

	//nolint:wrapcheck // Middleware passes through errors from next handler in chain
	return t.next.RoundTrip(req)
}

// cloneRequest creates a shallow copy of the request with a cloned header map.
func cloneRequest(req *http.Request) *http.Request {
	r := new(http.Request)
	*r = *req
	r.Header = make(http.Header, len(req.Header))
	maps.Copy(r.Header, req.Header)
	return r
}
