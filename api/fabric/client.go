package fabric

import (
	"bytes"
	"context"
	"crypto/x509"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/lexfrei/go-apic/internal/httpclient"
	"github.com/lexfrei/go-apic/internal/middleware"
	"github.com/lexfrei/go-apic/internal/payload"
	"github.com/lexfrei/go-apic/internal/ratelimit"
	"github.com/lexfrei/go-apic/internal/response"
	"github.com/lexfrei/go-apic/observability"
)

const (
	// CookieName is the cookie carrying the session token.
	CookieName = "APIC-Cookie"

	// DefaultTimeout is the default HTTP client timeout.
	DefaultTimeout = httpclient.DefaultTimeout
	// DefaultRetryWaitTime is the default backoff base when retries are enabled.
	DefaultRetryWaitTime = 1 * time.Second

	loginPath   = "/api/aaaLogin.json"
	refreshPath = "/api/aaaRefresh.json"
)

// Renderer produces request bodies from named templates.
type Renderer interface {
	Render(name string, params map[string]string) ([]byte, error)
}

// ClientConfig holds configuration for the fabric controller client.
type ClientConfig struct {
	// ControllerURL is the base URL of the controller (e.g. "https://apic.example.net")
	ControllerURL string

	// HTTPClient is the HTTP client to use (optional). It is copied, never modified.
	HTTPClient *http.Client

	// InsecureSkipVerify disables TLS certificate verification. Controllers
	// ship with self-signed certificates; New enables this.
	InsecureSkipVerify bool

	// RootCAs verifies the controller against a private CA. Ignored when
	// InsecureSkipVerify is set.
	RootCAs *x509.CertPool

	// Timeout sets the HTTP client timeout (defaults to 30s, or the timeout of HTTPClient)
	Timeout time.Duration

	// MaxRetries sets how often a failed GET is retried. 0 disables retries.
	// POSTs are never retried.
	MaxRetries int

	// RetryWaitTime sets the backoff base between retries (defaults to 1s)
	RetryWaitTime time.Duration

	// RateLimitPerMinute caps queries per minute. 0 disables the limit.
	RateLimitPerMinute int

	// WriteRateLimitPerMinute caps POSTs per minute (defaults to RateLimitPerMinute)
	WriteRateLimitPerMinute int

	// DuplicatePolicy is the default for POSTs hitting an existing object.
	DuplicatePolicy DuplicatePolicy

	// Renderer renders request bodies (optional, defaults to the built-in templates)
	Renderer Renderer

	// Logger for observability (optional, uses noop logger if nil)
	Logger observability.Logger

	// Metrics recorder for observability (optional, uses noop recorder if nil)
	Metrics observability.MetricsRecorder
}

// APIClient talks to a fabric controller. It is safe for concurrent use:
// the session is read per request and replaced atomically on login.
type APIClient struct {
	baseURL         string
	httpClient      *httpclient.Client
	session         atomic.Pointer[Session]
	renderer        Renderer
	duplicatePolicy DuplicatePolicy
	logger          observability.Logger
}

// Compile-time check to ensure APIClient implements FabricAPIClient interface.
var _ FabricAPIClient = (*APIClient)(nil)

// New creates a client for the controller at controllerURL with default
// settings. TLS verification is disabled because controllers commonly use
// self-signed certificates; use NewWithConfig to turn it back on.
//
// Default settings:
//   - Timeout: 30 seconds
//   - Retries: none
//   - Rate limit: none
//   - Duplicate creates: treated as success
//
// Example:
//
//	client, err := fabric.New("https://apic.example.net")
//	if err != nil { ... }
//	if _, err := client.Login(ctx, "admin", "secret"); err != nil { ... }
func New(controllerURL string) (*APIClient, error) {
	return NewWithConfig(&ClientConfig{
		ControllerURL:      controllerURL,
		InsecureSkipVerify: true,
	})
}

// NewWithConfig creates a client with custom configuration.
//
// Example:
//
//	client, err := fabric.NewWithConfig(&fabric.ClientConfig{
//	    ControllerURL:      "https://apic.example.net",
//	    InsecureSkipVerify: true,
//	    MaxRetries:         3,
//	    DuplicatePolicy:    fabric.DuplicateIsError,
//	    Logger:             observability.NewZapLogger(zapLogger),
//	})
func NewWithConfig(cfg *ClientConfig) (*APIClient, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}

	baseURL, err := normalizeBaseURL(cfg.ControllerURL)
	if err != nil {
		return nil, err
	}

	if cfg.MaxRetries < 0 || cfg.RateLimitPerMinute < 0 || cfg.WriteRateLimitPerMinute < 0 {
		return nil, errors.Wrap(ErrInvalidArgument, "retries and rate limits must not be negative")
	}

	// Set defaults
	if cfg.RetryWaitTime == 0 {
		cfg.RetryWaitTime = DefaultRetryWaitTime
	}
	if cfg.WriteRateLimitPerMinute == 0 {
		cfg.WriteRateLimitPerMinute = cfg.RateLimitPerMinute
	}
	if cfg.Timeout == 0 && cfg.HTTPClient == nil {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = observability.NoopLogger()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observability.NoopMetricsRecorder()
	}

	renderer := cfg.Renderer
	if renderer == nil {
		builtin, err := payload.New()
		if err != nil {
			return nil, errors.Wrap(err, "failed to load payload templates")
		}
		renderer = builtin
	}

	c := &APIClient{
		baseURL:         baseURL,
		renderer:        renderer,
		duplicatePolicy: cfg.DuplicatePolicy,
		logger:          cfg.Logger.With(observability.Field{Key: "controller", Value: baseURL}),
	}
	c.session.Store(&Session{BaseURL: baseURL})

	// Order from outside to inside: Observability -> RateLimit -> Retry -> SessionCookie -> TLS
	chain := []httpclient.Middleware{
		middleware.Observability(cfg.Logger, cfg.Metrics),
		middleware.RateLimit(middleware.RateLimitConfig{
			Selector: middleware.ReadWriteSelector(
				ratelimit.NewRateLimiter(cfg.RateLimitPerMinute),
				ratelimit.NewRateLimiter(cfg.WriteRateLimitPerMinute),
			),
			Logger:  cfg.Logger,
			Metrics: cfg.Metrics,
		}),
		middleware.Retry(middleware.RetryConfig{
			MaxRetries:  cfg.MaxRetries,
			InitialWait: cfg.RetryWaitTime,
			Logger:      cfg.Logger,
			Metrics:     cfg.Metrics,
		}),
		middleware.SessionCookie(CookieName, c.token),
	}
	switch {
	case cfg.InsecureSkipVerify:
		chain = append(chain, middleware.TLSConfig(middleware.InsecureSkipVerify()))
	case cfg.RootCAs != nil:
		chain = append(chain, middleware.TLSConfig(middleware.TrustedRoots(cfg.RootCAs)))
	}

	c.httpClient = httpclient.New(
		httpclient.WithHTTPClient(cfg.HTTPClient),
		httpclient.WithTimeout(cfg.Timeout),
		httpclient.WithMiddleware(chain...),
	)

	return c, nil
}

func normalizeBaseURL(raw string) (string, error) {
	if raw == "" {
		return "", errors.New("controller URL is required")
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", errors.Wrapf(err, "invalid controller URL %q", raw)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", errors.Newf("controller URL %q must use http or https", raw)
	}
	if parsed.Host == "" {
		return "", errors.Newf("controller URL %q has no host", raw)
	}

	return strings.TrimRight(raw, "/"), nil
}

// Session returns the current session.
func (c *APIClient) Session() Session {
	return *c.session.Load()
}

func (c *APIClient) token() string {
	return c.session.Load().Token
}

// Login authenticates against the controller and stores the returned token
// for every following call. Any failure yields an *AuthError and leaves the
// client unauthenticated.
func (c *APIClient) Login(ctx context.Context, username, password string) (string, error) {
	body, err := c.renderer.Render(payload.Login, map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return "", &AuthError{Err: errors.Wrap(err, "failed to render login payload")}
	}

	// A failed login must not leave an older token usable
	c.session.Store(&Session{BaseURL: c.baseURL})

	token, err := c.authenticate(ctx, http.MethodPost, loginPath, body)
	if err != nil {
		c.logger.Warn("login failed",
			observability.Field{Key: "user", Value: username},
			observability.Field{Key: "error", Value: err.Error()},
		)
		return "", err
	}

	c.logger.Info("login succeeded", observability.Field{Key: "user", Value: username})

	return token, nil
}

// RefreshSession asks the controller to extend the current session and
// stores the token it returns.
func (c *APIClient) RefreshSession(ctx context.Context) (string, error) {
	if !c.Session().Authenticated() {
		return "", ErrNotAuthenticated
	}

	token, err := c.authenticate(ctx, http.MethodGet, refreshPath, nil)
	if err != nil {
		return "", err
	}

	c.logger.Debug("session refreshed")

	return token, nil
}

func (c *APIClient) authenticate(ctx context.Context, method, path string, body []byte) (string, error) {
	resp, err := c.send(ctx, method, path, body)
	if err != nil {
		return "", &AuthError{Err: err}
	}

	raw, err := response.ReadBody(resp)
	if err != nil {
		return "", &AuthError{Err: c.classify(err, method, path)}
	}

	envelope, err := response.Decode[Envelope](raw, "failed to decode login response")
	if err != nil {
		return "", &AuthError{Err: err}
	}

	if attrs, ok := envelope.errorRecord(); ok {
		return "", &AuthError{Err: newAPIError(resp.StatusCode, attrs)}
	}

	var token string
	for _, obj := range envelope.Imdata {
		if obj.Class() == "aaaLogin" {
			token = obj.Attr("token")
			break
		}
	}
	if token == "" {
		return "", &AuthError{Err: errors.New("login response carries no aaaLogin token")}
	}

	c.session.Store(&Session{BaseURL: c.baseURL, Token: token})

	return token, nil
}

// Call issues an authenticated GET or POST to path (rooted at the
// controller URL, query included) and returns the decoded envelope.
//
// A non-2xx reply becomes an *APIError, except that a duplicate-create
// error under DuplicateIsSuccess yields an empty envelope and no error.
// Failures to reach the controller are *TransportError.
func (c *APIClient) Call(ctx context.Context, method, path string, body []byte, opts ...CallOption) (*Envelope, error) {
	envelope, _, err := c.call(ctx, method, path, body, opts...)
	return envelope, err
}

// call is Call that also reports whether a duplicate was swallowed.
func (c *APIClient) call(ctx context.Context, method, path string, body []byte, opts ...CallOption) (*Envelope, bool, error) {
	if method != http.MethodGet && method != http.MethodPost {
		return nil, false, errors.Wrapf(ErrUnsupportedMethod, "%q", method)
	}

	if !c.Session().Authenticated() {
		return nil, false, ErrNotAuthenticated
	}

	options := callOptions{duplicatePolicy: c.duplicatePolicy}
	for _, opt := range opts {
		opt(&options)
	}

	resp, err := c.send(ctx, method, path, body)
	if err != nil {
		return nil, false, err
	}

	raw, err := response.ReadBody(resp)
	if err != nil {
		err = c.classify(err, method, path)

		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.IsDuplicate() && options.duplicatePolicy == DuplicateIsSuccess {
			c.logger.Info("duplicate create ignored",
				observability.Field{Key: "path", Value: path},
				observability.Field{Key: "message", Value: apiErr.Message},
			)
			return &Envelope{Imdata: []ManagedObject{}}, true, nil
		}

		return nil, false, err
	}

	envelope, err := response.Decode[Envelope](raw, "failed to decode controller response")
	if err != nil {
		return nil, false, err
	}

	return envelope, false, nil
}

func (c *APIClient) send(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	var reader io.Reader = http.NoBody
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to build request for %s", path)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Method: method, Path: path, Err: err}
	}

	return resp, nil
}

// classify turns a response-reading failure into an *APIError or *TransportError.
func (c *APIClient) classify(err error, method, path string) error {
	var statusErr *response.StatusError
	if !errors.As(err, &statusErr) {
		return &TransportError{Method: method, Path: path, Err: err}
	}

	envelope, decodeErr := response.Decode[Envelope](statusErr.Body, "failed to decode error envelope")
	if decodeErr == nil {
		if attrs, ok := envelope.errorRecord(); ok {
			return newAPIError(statusErr.StatusCode, attrs)
		}
	}

	return &APIError{
		StatusCode: statusErr.StatusCode,
		Message:    statusText(statusErr.StatusCode),
	}
}

func newAPIError(status int, attrs map[string]string) *APIError {
	code, _ := strconv.Atoi(attrs["code"])
	return &APIError{
		StatusCode: status,
		Code:       code,
		Message:    attrs["text"],
	}
}
