package observability

import "github.com/sirupsen/logrus"

type logrusLogger struct {
	entry logrus.FieldLogger
}

// NewLogrusLogger adapts a logrus logger or entry to the Logger interface.
// A nil logger falls back to logrus.StandardLogger().
//
//nolint:ireturn // Factory function must return interface for dependency injection pattern
func NewLogrusLogger(logger logrus.FieldLogger) Logger {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &logrusLogger{entry: logger}
}

func (l *logrusLogger) Debug(msg string, fields ...Field) {
	l.entry.WithFields(logrusFields(fields)).Debug(msg)
}

func (l *logrusLogger) Info(msg string, fields ...Field) {
	l.entry.WithFields(logrusFields(fields)).Info(msg)
}

func (l *logrusLogger) Warn(msg string, fields ...Field) {
	l.entry.WithFields(logrusFields(fields)).Warn(msg)
}

func (l *logrusLogger) Error(msg string, fields ...Field) {
	l.entry.WithFields(logrusFields(fields)).Error(msg)
}

//nolint:ireturn // Method must return interface to satisfy Logger interface
func (l *logrusLogger) With(fields ...Field) Logger {
	return &logrusLogger{entry: l.entry.WithFields(logrusFields(fields))}
}

func logrusFields(fields []Field) logrus.Fields {
	out := make(logrus.Fields, len(fields))
	for _, f := range fields {
		out[f.Key] = f.Value
	}
	return out
}
