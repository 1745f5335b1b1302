// Package ops provides the structured-logging facade used throughout the
// engine, grounded on the teacher's go/flow/ops/logger.go: components log
// through an interface wrapping logrus rather than calling the global
// logger directly, so embedding apps can redirect or filter engine logs.
package ops

import (
	log "github.com/sirupsen/logrus"
)

// Logger publishes structured log events tagged with static fields (flow
// uuid, device id, ...).
type Logger interface {
	Log(level log.Level, fields log.Fields, message string)
	WithFields(fields log.Fields) Logger
}

// NewLogrusLogger wraps a *logrus.Logger (or logrus.StandardLogger()) as
// a Logger.
func NewLogrusLogger(delegate *log.Logger) Logger {
	if delegate == nil {
		delegate = log.StandardLogger()
	}
	return &logrusLogger{delegate: delegate, fields: log.Fields{}}
}

type logrusLogger struct {
	delegate *log.Logger
	fields   log.Fields
}

func (l *logrusLogger) Log(level log.Level, fields log.Fields, message string) {
	var merged = make(log.Fields, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	l.delegate.WithFields(merged).Log(level, message)
}

func (l *logrusLogger) WithFields(fields log.Fields) Logger {
	var merged = make(log.Fields, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &logrusLogger{delegate: l.delegate, fields: merged}
}

// Noop discards every log event; useful for tests that don't want
// logging noise but still need a Logger to satisfy a constructor.
var Noop Logger = noopLogger{}

type noopLogger struct{}

func (noopLogger) Log(log.Level, log.Fields, string) {}
func (n noopLogger) WithFields(log.Fields) Logger     { return n }
