// Package logging defines a minimal structured-logging interface used across
// the bot. The default implementation wraps log/slog.
package logging

import "context"

// Logger is a context-aware, structured logger.
//
// The variadic args are interpreted as key–value pairs, e.g.:
//
//	log.Info(ctx, "variant uploaded", "item", name, "phase", "register", "outcome", "ok")
type Logger interface {
	// Debug logs low-level diagnostics (request/response details).
	Debug(ctx context.Context, msg string, args ...any)

	// Info logs an informational message.
	Info(ctx context.Context, msg string, args ...any)

	// Warn logs a warning message for unusual but non-fatal conditions.
	Warn(ctx context.Context, msg string, args ...any)

	// Error logs an error message for failures.
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given key–value pairs.
	With(args ...any) Logger
}

// Attribute keys shared by every pipeline stage so that log consumers can
// filter on them.
const (
	KeyItem    = "item"
	KeyPhase   = "phase"
	KeyOutcome = "outcome"
	KeyError   = "error"
)

// Outcome values.
const (
	OutcomeOK      = "ok"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
)
