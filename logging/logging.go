// Package logging is the structured logging facade used by both parties.
//
// Logger wraps the subset of log/slog the protocols need. Plaintexts and
// blinding factors must never be passed as attributes; use Redacted to record
// that a sensitive value was deliberately left out.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
)

const redactedPlaceholder = "[redacted]"

// Logger is the logging contract of the helper, the decryption party and
// the oracle transport.
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)
	With(args ...any) Logger
}

// New returns a Logger backed by logger. Passing nil binds to slog.Default().
func New(logger *slog.Logger) Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &slogLogger{logger: logger}
}

// Discard returns a Logger that drops every record.
func Discard() Logger {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// ForParty scopes l to one side of the protocol. An empty component is
// omitted.
func ForParty(l Logger, party fmt.Stringer, component string) Logger {
	if l == nil {
		l = New(nil)
	}
	if component == "" {
		return l.With("party", party.String())
	}
	return l.With("party", party.String(), "component", component)
}

type slogLogger struct {
	logger *slog.Logger
}

func (l *slogLogger) Debug(ctx context.Context, msg string, args ...any) {
	l.logger.DebugContext(ctx, msg, args...)
}

func (l *slogLogger) Info(ctx context.Context, msg string, args ...any) {
	l.logger.InfoContext(ctx, msg, args...)
}

func (l *slogLogger) Warn(ctx context.Context, msg string, args ...any) {
	l.logger.WarnContext(ctx, msg, args...)
}

func (l *slogLogger) Error(ctx context.Context, msg string, args ...any) {
	l.logger.ErrorContext(ctx, msg, args...)
}

func (l *slogLogger) With(args ...any) Logger {
	return &slogLogger{logger: l.logger.With(args...)}
}

// Redacted marks an attribute whose value was intentionally not logged.
func Redacted(key string) slog.Attr {
	return slog.String(key, redactedPlaceholder)
}

// Exponents records the fixed-point exponents of the ciphertexts an
// operation touched. Exponents are public, the values behind them are not.
func Exponents(exps ...int) slog.Attr {
	return slog.Any("exponents", exps)
}
