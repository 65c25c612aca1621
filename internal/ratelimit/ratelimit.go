// Package ratelimit builds the token buckets that pace requests to a
// fabric controller.
package ratelimit

import "golang.org/x/time/rate"

// NewRateLimiter creates a token-bucket limiter allowing requestsPerMinute
// requests per minute with a burst of the same size. A non-positive rate
// disables limiting and yields nil, which the rate limit middleware treats
// as "no limiter".
func NewRateLimiter(requestsPerMinute int) *rate.Limiter {
	if requestsPerMinute <= 0 {
		return nil
	}

	return rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), requestsPerMinute)
}
