package middleware

import (
	"net/http"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/lexfrei/go-apic/observability"
)

// RequestIDHeader carries the per-request correlation id to the controller.
const RequestIDHeader = "X-Request-Id"

// Observability returns a middleware that logs and records metrics for HTTP
// requests. Each request gets a fresh request id that is sent upstream and
// attached to every log line about it.
func Observability(logger observability.Logger, metrics observability.MetricsRecorder) func(http.RoundTripper) http.RoundTripper {
	if logger == nil {
		logger = observability.NoopLogger()
	}
	if metrics == nil {
		metrics = observability.NoopMetricsRecorder()
	}

	return func(next http.RoundTripper) http.RoundTripper {
		return &observabilityTransport{
			next:    next,
			logger:  logger,
			metrics: metrics,
		}
	}
}

type observabilityTransport struct {
	next    http.RoundTripper
	logger  observability.Logger
	metrics observability.MetricsRecorder
}

func (t *observabilityTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	requestID := req.Header.Get(RequestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
		req = cloneRequest(req)
		req.Header.Set(RequestIDHeader, requestID)
	}

	path := normalizePath(req.URL.Path)
	logger := t.logger.With(
		observability.Field{Key: "request_id", Value: requestID},
		observability.Field{Key: "method", Value: req.Method},
		observability.Field{Key: "path", Value: path},
	)

	// Query strings carry filters only; bodies may carry credentials and are never logged
	logger.Debug("http request started",
		observability.Field{Key: "url", Value: req.URL.String()},
	)

	resp, err := t.next.RoundTrip(req)

	duration := time.Since(start)

	if err != nil {
		logger.Error("http request failed",
			observability.Field{Key: "duration", Value: duration},
			observability.Field{Key: "error", Value: err.Error()},
		)

		t.metrics.RecordError("http_request", "NetworkError")

		//nolint:wrapcheck // Observability middleware logs error but passes it through unchanged
		return nil, err
	}

	fields := []observability.Field{
		{Key: "status", Value: resp.StatusCode},
		{Key: "duration", Value: duration},
	}

	if resp.StatusCode >= http.StatusBadRequest {
		logger.Warn("http request completed with error", fields...)
	} else {
		logger.Debug("http request completed", fields...)
	}

	t.metrics.RecordHTTPRequest(req.Method, path, resp.StatusCode, duration)

	return resp, nil
}

var (
	// moPattern matches a managed-object lookup: /api/node/mo/<dn>.json.
	moPattern = regexp.MustCompile(`^(/api/(?:node/)?mo/).+(\.json)$`)
	// classUnderDNPattern matches a class query scoped to a DN:
	// /api/node/class/<dn>/<class>.json.
	classUnderDNPattern = regexp.MustCompile(`^(/api/(?:node/)?class/).+/([^/]+\.json)$`)
)

// normalizePath collapses distinguished names in controller paths to a
// ":dn" placeholder so metrics stay low-cardinality.
//
// Examples:
//   - /api/node/mo/uni/tn-T1/ap-web.json → /api/node/mo/:dn.json
//   - /api/node/class/topology/pod-1/node-101/l1PhysIf.json → /api/node/class/:dn/l1PhysIf.json
//   - /api/node/class/fvTenant.json → unchanged
func normalizePath(path string) string {
	switch {
	case moPattern.MatchString(path):
		return moPattern.ReplaceAllString(path, "${1}:dn${2}")
	case classUnderDNPattern.MatchString(path):
		return classUnderDNPattern.ReplaceAllString(path, "${1}:dn/${2}")
	default:
		return path
	}
}
