package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/opencasa/casa-core/internal/infrastructure/config"
)

// Logger wraps slog.Logger so callers depend on this package rather
// than on slog directly.
type Logger struct {
	*slog.Logger
}

// New builds a logger from configuration. Every record carries the
// service name and version so aggregated logs stay attributable.
func New(cfg config.LoggingConfig, version string) *Logger {
	handler := newHandler(cfg)
	logger := slog.New(handler).With(
		slog.String("service", "casacore"),
		slog.String("version", version),
	)
	return &Logger{Logger: logger}
}

func newHandler(cfg config.LoggingConfig) slog.Handler {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	out := output(cfg.Output)

	if strings.EqualFold(cfg.Format, "text") {
		return slog.NewTextHandler(out, opts)
	}
	return slog.NewJSONHandler(out, opts)
}

func output(name string) io.Writer {
	if name == "stderr" {
		return os.Stderr
	}
	return os.Stdout
}

// parseLevel maps a configuration string to a slog level. Unknown
// values fall back to info rather than failing startup.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// With returns a child logger carrying the given attributes.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// Default returns a text logger at info level writing to stderr. Used
// before configuration is loaded.
func Default() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	return &Logger{Logger: slog.New(handler)}
}
