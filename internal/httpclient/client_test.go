package httpclient_test

import (
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexfrei/go-apic/internal/httpclient"
)

func TestNew(t *testing.T) {
	t.Parallel()

	client := httpclient.New()
	require.NotNil(t, client)
	require.NotNil(t, client.HTTPClient())

	assert.Equal(t, httpclient.DefaultTimeout, client.HTTPClient().Timeout)
}

func TestWithTimeout(t *testing.T) {
	t.Parallel()

	client := httpclient.New(httpclient.WithTimeout(10 * time.Second))
	assert.Equal(t, 10*time.Second, client.HTTPClient().Timeout)

	client = httpclient.New(httpclient.WithTimeout(0))
	assert.Equal(t, httpclient.DefaultTimeout, client.HTTPClient().Timeout)
}

func TestWithHTTPClientDoesNotMutateCaller(t *testing.T) {
	t.Parallel()

	customClient := &http.Client{Timeout: 5 * time.Second}
	noop := func(next http.RoundTripper) http.RoundTripper { return next }

	client := httpclient.New(
		httpclient.WithHTTPClient(customClient),
		httpclient.WithMiddleware(noop),
	)

	assert.NotSame(t, customClient, client.HTTPClient())
	assert.Equal(t, 5*time.Second, client.HTTPClient().Timeout)
	assert.Nil(t, customClient.Transport, "caller's client must stay untouched")
}

func TestWithHTTPClientDropsCookieJar(t *testing.T) {
	t.Parallel()

	cookies := make(chan []*http.Cookie, 2)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookies <- r.Cookies()
		http.SetCookie(w, &http.Cookie{Name: "APIC-Cookie", Value: "issued-by-controller"})
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	serverURL, err := url.Parse(server.URL)
	require.NoError(t, err)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	jar.SetCookies(serverURL, []*http.Cookie{{Name: "APIC-Cookie", Value: "stale"}})

	customClient := &http.Client{Jar: jar}
	client := httpclient.New(httpclient.WithHTTPClient(customClient))

	for range 2 {
		req, _ := http.NewRequest(http.MethodGet, server.URL+"/api/node/class/fabricPod.json", http.NoBody)
		resp, err := client.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
	}
	close(cookies)

	for sent := range cookies {
		assert.Empty(t, sent, "no cookie may come from a jar")
	}

	assert.Nil(t, client.HTTPClient().Jar)
	assert.Same(t, jar, customClient.Jar, "caller's client must stay untouched")
}

func TestNewWithoutMiddlewareKeepsTransport(t *testing.T) {
	t.Parallel()

	assert.Nil(t, httpclient.New().HTTPClient().Transport)

	customTransport := &http.Transport{}
	client := httpclient.New(httpclient.WithTransport(customTransport))
	assert.Same(t, customTransport, client.HTTPClient().Transport)
}

func TestMiddlewareWrapsDefaultTransport(t *testing.T) {
	t.Parallel()

	var wrapped http.RoundTripper
	capture := func(next http.RoundTripper) http.RoundTripper {
		wrapped = next
		return next
	}

	httpclient.New(httpclient.WithMiddleware(capture))

	assert.Same(t, http.DefaultTransport, wrapped)
}

func TestWithTransport(t *testing.T) {
	t.Parallel()

	customTransport := &http.Transport{}
	client := httpclient.New(httpclient.WithTransport(customTransport))

	assert.Same(t, customTransport, client.HTTPClient().Transport)
}

func TestMiddlewareChaining(t *testing.T) {
	t.Parallel()

	order := make(chan string, 5)

	record := func(name string) httpclient.Middleware {
		return func(next http.RoundTripper) http.RoundTripper {
			return roundTripperFunc(func(req *http.Request) (*http.Response, error) {
				order <- name + "-before"
				resp, err := next.RoundTrip(req)
				order <- name + "-after"
				return resp, err
			})
		}
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		order <- "controller"
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := httpclient.New(httpclient.WithMiddleware(record("outer"), record("inner")))

	req, _ := http.NewRequest(http.MethodGet, server.URL, http.NoBody)
	resp, err := client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	close(order)

	var got []string
	for step := range order {
		got = append(got, step)
	}

	assert.Equal(t, []string{
		"outer-before",
		"inner-before",
		"controller",
		"inner-after",
		"outer-after",
	}, got)
}

func TestDo(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"totalCount":"0","imdata":[]}`))
	}))
	defer server.Close()

	client := httpclient.New()
	req, _ := http.NewRequest(http.MethodGet, server.URL+"/api/node/class/fabricPod.json", http.NoBody)

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"totalCount":"0","imdata":[]}`, string(body))
}

// roundTripperFunc is an adapter to use functions as http.RoundTripper
type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}
