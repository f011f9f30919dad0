package commands

import (
	"context"
	"time"

	"github.com/halim714/markpress/internal/logging"
	"github.com/halim714/markpress/pkg/interfaces"
)

// DefaultCommandTimeout bounds a single command execution. Remote writes
// dominate command latency, so the ceiling is generous.
const DefaultCommandTimeout = 30 * time.Second

// EnsureContext guards against callers passing a nil context.
func EnsureContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

// WithCommandTimeout applies timeout to ctx; zero or negative means unbounded.
func WithCommandTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

// EnsureLogger substitutes a no-op logger when none was configured.
func EnsureLogger(logger interfaces.Logger) interfaces.Logger {
	if logger == nil {
		return logging.NoOp()
	}
	return logger
}
