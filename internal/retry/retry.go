// Package retry holds the predicates the retry middleware uses to decide
// whether a controller request may be sent again.
package retry

import (
	"net/http"
	"strconv"
	"time"
)

// ShouldRetry returns true if the HTTP status code indicates a retryable error.
// Retryable errors include:
//   - 429 (Too Many Requests) - rate limit exceeded
//   - 5xx (Server Errors) - temporary controller-side issues
//
// 4xx responses carry an APIC error envelope and are final.
func ShouldRetry(statusCode int) bool {
	return statusCode >= http.StatusInternalServerError || statusCode == http.StatusTooManyRequests
}

// IsIdempotent reports whether a request with the given method can be
// repeated without side effects on the controller. Object creation goes
// through POST, so only reads qualify.
func IsIdempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead:
		return true
	default:
		return false
	}
}

// ParseRetryAfter parses the Retry-After HTTP header and returns the duration to wait.
// The Retry-After header can contain either:
//   - Number of seconds (e.g., "120")
//   - HTTP-date (e.g., "Wed, 21 Oct 2015 07:28:00 GMT")
//
// Returns 0 if the header is empty, cannot be parsed or lies in the past.
func ParseRetryAfter(retryAfterHeader string) time.Duration {
	if retryAfterHeader == "" {
		return 0
	}

	seconds, err := strconv.Atoi(retryAfterHeader)
	if err == nil {
		if seconds < 0 {
			return 0
		}
		return time.Duration(seconds) * time.Second
	}

	when, err := http.ParseTime(retryAfterHeader)
	if err != nil {
		return 0
	}

	if wait := time.Until(when); wait > 0 {
		return wait
	}

	return 0
}
