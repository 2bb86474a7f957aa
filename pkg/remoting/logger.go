package remoting

import "log/slog"

// Logger wraps a *slog.Logger for the envelope-level diagnostics
// DecodePacket/EncodePacket emit (header/message counts, discarded
// trailing bytes, scratch-buffer doubling retries). A nil *Logger (the
// zero value of Options.Logger) disables all logging — the codec itself
// stays silent by default; only callers who opt in via Options.Logger see
// these diagnostics.
type Logger struct {
	slog *slog.Logger
}

// NewLogger wraps l. Passing slog.Default() is typical for callers that
// just want the diagnostics on stderr; cmd/amfcat and cmd/amfwatch instead
// pass a zap-backed logger (see their main.go).
func NewLogger(l *slog.Logger) *Logger {
	return &Logger{slog: l}
}

func (l *Logger) debug(msg string, args ...any) {
	if l == nil || l.slog == nil {
		return
	}
	l.slog.Debug(msg, args...)
}

func (l *Logger) warn(msg string, args ...any) {
	if l == nil || l.slog == nil {
		return
	}
	l.slog.Warn(msg, args...)
}
