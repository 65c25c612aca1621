// Package observability provides interfaces for logging and metrics collection
// in the go-apic library.
//
// This package defines standard interfaces that allow users to integrate their
// own logging and metrics implementations with the fabric controller client.
//
// # Logger Interface
//
// The Logger interface supports structured logging with key-value pairs:
//
//	client, err := fabric.NewWithConfig(&fabric.ClientConfig{
//		ControllerURL: "https://apic.example.net",
//		Logger:        observability.NewZapLogger(zapLogger),
//	})
//
// Two adapters ship with the package:
//   - NewZapLogger wraps a *zap.Logger
//   - NewLogrusLogger wraps any logrus.FieldLogger
//
// # MetricsRecorder Interface
//
// The MetricsRecorder interface tracks client metrics:
//   - HTTP request count, status codes, and duration
//   - Retry attempts for failed GET requests
//   - Rate limiting events and wait times
//   - Error occurrences by type
//
// Request paths are normalized before they reach the recorder: distinguished
// names embedded in /api/node/mo/ URLs are collapsed to ":dn" so the label
// set stays bounded.
//
// # Default Behavior
//
// If no logger or metrics recorder is provided, the client uses no-op
// implementations that discard all events.
package observability
