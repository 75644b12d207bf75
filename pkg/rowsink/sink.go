// Package rowsink forwards captured signups to remote row-append destinations.
// The database row stays the source of truth; sinks are best effort.
package rowsink

import (
	"context"
	"time"
)

// Row is the sheet-shaped view of a signup.
type Row struct {
	Email         string
	Timestamp     time.Time
	Source        string
	Status        string
	CorrelationID string
}

type Sink interface {
	Name() string
	Append(ctx context.Context, row Row) error
	// Check reports whether the sink can currently accept rows.
	Check(ctx context.Context) error
	Close() error
}

type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

func loggerOrNop(l Logger) Logger {
	if l == nil {
		return nopLogger{}
	}
	return l
}
