// Package rtlog wraps zerolog with a leveling policy:
// ERROR for argument/config/IO/JIT failures, WARNING for a failed Set, and
// structured fields identifying which matrix/partition/operation failed.
package rtlog

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Logger is the Runtime-wide structured logger. The zero value is usable
// but discards every event, as zerolog's zero Logger has no writer; use New
// for output.
type Logger struct {
	zl zerolog.Logger
}

// New returns a Logger writing timestamped JSON lines to w (or
// os.Stderr if w is nil), which is convenient for the bundled CLI and for
// tests that want to capture output.
func New(w io.Writer) Logger {
	if w == nil {
		w = os.Stderr
	}
	return Logger{zl: zerolog.New(w).With().Timestamp().Logger()}
}

func (l Logger) Error(op string, err error, fields map[string]any) {
	ev := l.zl.Error().Str("op", op).Err(err)
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg("spx: operation failed")
}

func (l Logger) Warn(op string, fields map[string]any) {
	ev := l.zl.Warn().Str("op", op)
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg("spx: recoverable condition")
}

func (l Logger) Info(msg string, fields map[string]any) {
	ev := l.zl.Info()
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg(msg)
}
