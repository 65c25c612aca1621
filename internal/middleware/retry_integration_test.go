package middleware_test

import (
	"context"
	"io"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexfrei/go-apic/api/fabric"
	"github.com/lexfrei/go-apic/internal/testutil"
)

const (
	integrationToken = "retry-session-token"
	podsPath         = "/api/node/class/fabricPod.json"
	tenantPath       = "/api/node/mo/uni/tn-Prod.json"
)

// retryingClient logs a fabric client with retries enabled into server.
// Every response body it receives is counted in closed when closed.
func retryingClient(t *testing.T, url string, wait time.Duration, closed *atomic.Int32) *fabric.APIClient {
	t.Helper()

	client, err := fabric.NewWithConfig(&fabric.ClientConfig{
		ControllerURL: url,
		HTTPClient: &http.Client{Transport: &bodyTrackingTransport{
			base:         http.DefaultTransport,
			bodiesClosed: closed,
		}},
		MaxRetries:    5,
		RetryWaitTime: wait,
	})
	require.NoError(t, err)

	_, err = client.Login(context.Background(), "admin", "s3cr3t!")
	require.NoError(t, err)

	return client
}

func loginHandler(w http.ResponseWriter, _ *http.Request) {
	_, _ = w.Write([]byte(testutil.LoginEnvelope(integrationToken)))
}

func TestRetryCancelledDuringBackoff(t *testing.T) {
	t.Parallel()

	var queries atomic.Int32
	var closed atomic.Int32

	server := testutil.NewMockServerMulti(t, map[string]http.HandlerFunc{
		"/api/aaaLogin.json": loginHandler,
		podsPath: func(w http.ResponseWriter, _ *http.Request) {
			queries.Add(1)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(testutil.ErrorEnvelope(503, "Service temporarily unavailable")))
		},
	})
	defer server.Close()

	client := retryingClient(t, server.URL, 200*time.Millisecond, &closed)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	pods, err := client.ListPods(ctx)
	require.Error(t, err)
	assert.Nil(t, pods)

	assert.True(t, fabric.IsTransportError(err))
	require.ErrorIs(t, err, context.DeadlineExceeded)

	assert.Equal(t, int32(1), queries.Load(), "backoff must not be cut short by a second attempt")
	// login plus the single query
	assert.Equal(t, int32(2), closed.Load(), "every response body should be closed")
}

func TestRetryExhaustedSurfacesControllerError(t *testing.T) {
	t.Parallel()

	var queries atomic.Int32
	var closed atomic.Int32

	server := testutil.NewMockServerMulti(t, map[string]http.HandlerFunc{
		"/api/aaaLogin.json": loginHandler,
		podsPath: func(w http.ResponseWriter, r *http.Request) {
			queries.Add(1)
			assert.Equal(t, podsPath, testutil.PathWithQuery(r))
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(testutil.ErrorEnvelope(503, "Service temporarily unavailable")))
		},
	})
	defer server.Close()

	client := retryingClient(t, server.URL, time.Millisecond, &closed)

	_, err := client.ListPods(context.Background())
	require.Error(t, err)

	var apiErr *fabric.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
	assert.Equal(t, 503, apiErr.Code)
	assert.Equal(t, "Service temporarily unavailable", apiErr.Message)

	assert.Equal(t, int32(6), queries.Load(), "one attempt plus five retries")
	assert.Equal(t, queries.Load()+1, closed.Load(), "every response body should be closed")
}

func TestRetryNeverResendsCancelledPost(t *testing.T) {
	t.Parallel()

	var posts atomic.Int32
	var gets atomic.Int32
	var closed atomic.Int32

	server := testutil.NewMockServerMulti(t, map[string]http.HandlerFunc{
		"/api/aaaLogin.json": loginHandler,
		tenantPath: func(_ http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				gets.Add(1)
				return
			}
			posts.Add(1)
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		},
		"/api/node/class/fvTenant.json": func(http.ResponseWriter, *http.Request) {
			gets.Add(1)
		},
	})
	defer server.Close()

	client := retryingClient(t, server.URL, time.Millisecond, &closed)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	tenants, err := client.CreateTenant(ctx, "Prod")
	require.Error(t, err)
	assert.Nil(t, tenants)
	assert.True(t, fabric.IsTransportError(err))

	// A retry would arrive well within this window
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, int32(1), posts.Load(), "a cancelled create must reach the controller at most once")
	assert.Zero(t, gets.Load(), "no read-back after a failed create")
}

// bodyTrackingTransport wraps http.RoundTripper to track response body closures.
type bodyTrackingTransport struct {
	base         http.RoundTripper
	bodiesClosed *atomic.Int32
}

func (t *bodyTrackingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		//nolint:wrapcheck // Test helper passes through transport errors unchanged
		return nil, err
	}

	resp.Body = &trackingReadCloser{
		ReadCloser:   resp.Body,
		bodiesClosed: t.bodiesClosed,
	}

	return resp, nil
}

// trackingReadCloser wraps io.ReadCloser to count closures.
type trackingReadCloser struct {
	io.ReadCloser

	bodiesClosed *atomic.Int32
	closed       atomic.Bool
}

func (r *trackingReadCloser) Close() error {
	if r.closed.CompareAndSwap(false, true) {
		r.bodiesClosed.Add(1)
	}

	//nolint:wrapcheck // Test helper delegates close to wrapped ReadCloser
	return r.ReadCloser.Close()
}
