package middleware

import (
	"crypto/tls"
	"crypto/x509"
	"net/http"
)

// TLSConfig returns a middleware that swaps the TLS settings of the
// transport it wraps. The transport is cloned, never modified; anything that
// is not an *http.Transport is replaced by a clone of http.DefaultTransport.
func TLSConfig(config *tls.Config) func(http.RoundTripper) http.RoundTripper {
	return func(next http.RoundTripper) http.RoundTripper {
		base, ok := next.(*http.Transport)
		if !ok {
			base, ok = http.DefaultTransport.(*http.Transport)
			if !ok {
				return next
			}
		}

		transport := base.Clone()
		transport.ForceAttemptHTTP2 = true
		transport.TLSClientConfig = config

		return transport
	}
}

// InsecureSkipVerify returns a TLS config that accepts any controller
// certificate.
func InsecureSkipVerify() *tls.Config {
	return &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: true, //nolint:gosec // Controllers ship self-signed certificates; callers can opt out
	}
}

// TrustedRoots returns a TLS config that verifies the controller against
// the given pool instead of the system roots.
func TrustedRoots(pool *x509.CertPool) *tls.Config {
	return &tls.Config{
		MinVersion: tls.VersionTLS12,
		RootCAs:    pool,
	}
}
