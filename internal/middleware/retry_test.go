package middleware_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexfrei/go-apic/internal/middleware"
	"github.com/lexfrei/go-apic/observability"
)

func TestRetry(t *testing.T) {
	t.Parallel()

	t.Run("success on first attempt", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		transport := middleware.Retry(middleware.RetryConfig{
			MaxRetries:  3,
			InitialWait: time.Millisecond,
		})(http.DefaultTransport)

		req, _ := http.NewRequest(http.MethodGet, server.URL, http.NoBody)
		resp, err := transport.RoundTrip(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("retry GET on 500 error", func(t *testing.T) {
		t.Parallel()

		var attempts atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			if attempts.Add(1) < 3 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		transport := middleware.Retry(middleware.RetryConfig{
			MaxRetries:  3,
			InitialWait: time.Millisecond,
		})(http.DefaultTransport)

		req, _ := http.NewRequest(http.MethodGet, server.URL, http.NoBody)
		resp, err := transport.RoundTrip(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, int32(3), attempts.Load())
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("POST is never retried", func(t *testing.T) {
		t.Parallel()

		var attempts atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			attempts.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		transport := middleware.Retry(middleware.RetryConfig{
			MaxRetries:  3,
			InitialWait: time.Millisecond,
		})(http.DefaultTransport)

		req, _ := http.NewRequest(http.MethodPost, server.URL, strings.NewReader(`{"fvTenant":{}}`))
		resp, err := transport.RoundTrip(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, int32(1), attempts.Load())
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	})

	t.Run("zero retries is a pass-through", func(t *testing.T) {
		t.Parallel()

		var attempts atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			attempts.Add(1)
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		transport := middleware.Retry(middleware.RetryConfig{})(http.DefaultTransport)
		assert.Same(t, http.DefaultTransport, transport)

		req, _ := http.NewRequest(http.MethodGet, server.URL, http.NoBody)
		resp, err := transport.RoundTrip(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, int32(1), attempts.Load())
	})

	t.Run("no retry on APIC error envelope", func(t *testing.T) {
		t.Parallel()

		var attempts atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			attempts.Add(1)
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"totalCount":"1","imdata":[{"error":{"attributes":{"code":"102","text":"bad"}}}]}`))
		}))
		defer server.Close()

		transport := middleware.Retry(middleware.RetryConfig{
			MaxRetries:  3,
			InitialWait: time.Millisecond,
		})(http.DefaultTransport)

		req, _ := http.NewRequest(http.MethodGet, server.URL, http.NoBody)
		resp, err := transport.RoundTrip(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, int32(1), attempts.Load())
	})

	t.Run("GET body is replayed on retry", func(t *testing.T) {
		t.Parallel()

		var attempts atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			assert.Equal(t, "test body", string(body))

			if attempts.Add(1) < 2 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		transport := middleware.Retry(middleware.RetryConfig{
			MaxRetries:  3,
			InitialWait: time.Millisecond,
		})(http.DefaultTransport)

		req, _ := http.NewRequest(http.MethodGet, server.URL, strings.NewReader("test body"))
		resp, err := transport.RoundTrip(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, int32(2), attempts.Load())
	})

	t.Run("respect Retry-After header", func(t *testing.T) {
		t.Parallel()

		var attempts atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			if attempts.Add(1) == 1 {
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		transport := middleware.Retry(middleware.RetryConfig{
			MaxRetries:  3,
			InitialWait: time.Hour,
		})(http.DefaultTransport)

		start := time.Now()
		req, _ := http.NewRequest(http.MethodGet, server.URL, http.NoBody)
		resp, err := transport.RoundTrip(req)
		duration := time.Since(start)

		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Less(t, duration, 2*time.Second, "should use Retry-After instead of InitialWait")
	})

	t.Run("context cancellation during retry", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		transport := middleware.Retry(middleware.RetryConfig{
			MaxRetries:  10,
			InitialWait: time.Second,
		})(http.DefaultTransport)

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, http.NoBody)
		resp, err := transport.RoundTrip(req)
		if resp != nil {
			resp.Body.Close()
		}

		require.Error(t, err)
		assert.Contains(t, err.Error(), "context")
	})
}

type retryCounter struct {
	observability.MetricsRecorder

	retries atomic.Int32
	last    atomic.Value
}

func (r *retryCounter) RecordRetry(_ int, endpoint string) {
	r.retries.Add(1)
	r.last.Store(endpoint)
}

func TestRetryWithObservability(t *testing.T) {
	t.Parallel()

	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	metrics := &retryCounter{MetricsRecorder: observability.NoopMetricsRecorder()}

	transport := middleware.Retry(middleware.RetryConfig{
		MaxRetries:  3,
		InitialWait: time.Millisecond,
		Logger:      observability.NoopLogger(),
		Metrics:     metrics,
	})(http.DefaultTransport)

	req, _ := http.NewRequest(http.MethodGet, server.URL+"/api/node/mo/uni/tn-T1.json", http.NoBody)
	resp, err := transport.RoundTrip(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, int32(3), attempts.Load())
	assert.Equal(t, int32(2), metrics.retries.Load())
	assert.Equal(t, "/api/node/mo/:dn.json", metrics.last.Load())
}
