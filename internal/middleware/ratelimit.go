package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/time/rate"

	"github.com/lexfrei/go-apic/observability"
)

// RateLimiterSelector chooses which rate limiter to use for a given request.
// Returns the rate limiter and a descriptive name for logging/metrics.
type RateLimiterSelector func(*http.Request) (*rate.Limiter, string)

// RateLimitConfig configures the rate limit middleware.
type RateLimitConfig struct {
	Limiter  *rate.Limiter       // Single limiter (used if Selector is nil)
	Selector RateLimiterSelector // Optional: select limiter based on request
	Logger   observability.Logger
	Metrics  observability.MetricsRecorder
}

// ReadWriteSelector paces queries and object writes with separate buckets.
// GET requests use read, everything else uses write. Either may be nil.
func ReadWriteSelector(read, write *rate.Limiter) RateLimiterSelector {
	return func(req *http.Request) (*rate.Limiter, string) {
		if req.Method == http.MethodGet {
			return read, "read"
		}
		return write, "write"
	}
}

// RateLimit returns a middleware that applies rate limiting to requests.
//
// Two modes of operation:
// 1. Single limiter: Set cfg.Limiter for uniform rate limiting
// 2. Selector mode: Set cfg.Selector to choose limiter per request (e.g. ReadWriteSelector)
func RateLimit(cfg RateLimitConfig) func(http.RoundTripper) http.RoundTripper {
	if cfg.Logger == nil {
		cfg.Logger = observability.NoopLogger()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observability.NoopMetricsRecorder()
	}

	return func(next http.RoundTripper) http.RoundTripper {
		return &rateLimitTransport{
			next:     next,
			limiter:  cfg.Limiter,
			selector: cfg.Selector,
			logger:   cfg.Logger,
			metrics:  cfg.Metrics,
		}
	}
}

type rateLimitTransport struct {
	next     http.RoundTripper
	limiter  *rate.Limiter
	selector RateLimiterSelector
	logger   observability.Logger
	metrics  observability.MetricsRecorder
}

func (t *rateLimitTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	limiter := t.limiter
	bucket := "default"

	if t.selector != nil {
		limiter, bucket = t.selector(req)
	}

	if limiter != nil {
		if err := t.wait(req.Context(), limiter, bucket, normalizePath(req.URL.Path)); err != nil {
			return nil, err
		}
	}

	//nolint:wrapcheck // Middleware passes through errors from next handler in chain
	return t.next.RoundTrip(req)
}

func (t *rateLimitTransport) wait(ctx context.Context, limiter *rate.Limiter, bucket, path string) error {
	reservation := limiter.Reserve()
	if !reservation.OK() {
		return errors.New("rate limit reservation failed")
	}

	delay := reservation.Delay()
	if delay <= 0 {
		return nil
	}

	t.logger.Debug("rate limit delay",
		observability.Field{Key: "bucket", Value: bucket},
		observability.Field{Key: "delay", Value: delay},
		observability.Field{Key: "path", Value: path},
	)

	t.metrics.RecordRateLimit(path, delay)

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		reservation.Cancel()
		return errors.Wrap(ctx.Err(), "context canceled during rate limit wait")
	}
}
