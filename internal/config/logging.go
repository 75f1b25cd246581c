package config

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/sweater-ventures/devslog"
	"golang.org/x/term"
)

type ContextKey string

var LoggerContextKey = ContextKey("logger")

var logLevel = new(slog.LevelVar)

// InitLogging installs the default logger: devslog on an interactive terminal,
// JSON otherwise or when JSON_LOGGING=true.
func InitLogging() {
	logLevel.Set(slog.LevelInfo)
	jsonLogging := false
	if v, ok := os.LookupEnv("JSON_LOGGING"); ok && strings.ToLower(v) == "true" {
		jsonLogging = true
	}
	slog.SetDefault(slog.New(newHandler(os.Stdout, jsonLogging || !term.IsTerminal(int(os.Stdout.Fd())))))
}

func newHandler(w io.Writer, jsonLogging bool) slog.Handler {
	if jsonLogging {
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: logLevel})
	}
	return devslog.NewHandler(w, &devslog.Options{
		HandlerOptions: &slog.HandlerOptions{
			Level: logLevel,
		},
		TimeFormat:           "[ 03:04:05 PM ]",
		StringIndentation:    true,
		DisableAttributeType: true,
	})
}

// SetLogLevel applies a level name; "default" picks info. Unknown names are reported and ignored.
func SetLogLevel(level string) {
	switch strings.ToLower(level) {
	case "debug":
		logLevel.Set(slog.LevelDebug)
	case "info", "default", "":
		logLevel.Set(slog.LevelInfo)
	case "warn", "warning":
		logLevel.Set(slog.LevelWarn)
	case "error":
		logLevel.Set(slog.LevelError)
	default:
		slog.Error("Unable to configure log level", "level", level)
	}
}

// WithLogger returns a context carrying logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, LoggerContextKey, logger)
}

// Logger returns the logger carried by ctx, or the default logger.
func Logger(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(LoggerContextKey).(*slog.Logger); ok && l != nil {
			return l
		}
	}
	return slog.Default()
}
