// Package logging defines the structured-logging interface used across
// AutoMailPro and its slog-backed implementation.
package logging

import "context"

// Logger is implemented by SlogLogger. Components receive it explicitly and
// tag their records with With("component", name).
//
// args are alternating keys and values:
//
//	log.Info(ctx, "extension built", "email", acc.Email, "dir", dir)
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger carrying args on every record.
	With(args ...any) Logger
}
