package logging

import (
	"log/slog"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	initOnce sync.Once
	logger   *slog.Logger
	exitFunc = os.Exit
)

// L returns the shared application logger, initializing it on first use.
func L() *slog.Logger {
	initOnce.Do(func() {
		logger = slog.New(newHandler())
	})
	return logger
}

func newHandler() slog.Handler {
	level := parseLevel(os.Getenv("PIMADASH_LOG_LEVEL"))
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: strings.EqualFold(os.Getenv("PIMADASH_LOG_SOURCE"), "true"),
	}

	switch strings.ToLower(os.Getenv("PIMADASH_LOG_FORMAT")) {
	case "json", "structured":
		return slog.NewJSONHandler(os.Stdout, opts)
	default:
		// Text handler writes to stderr so stats/export output on stdout stays clean.
		return slog.NewTextHandler(os.Stderr, opts)
	}
}

func parseLevel(value string) slog.Level {
	switch strings.ToLower(value) {
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

// With returns a child logger with additional attributes.
func With(args ...any) *slog.Logger {
	return L().With(args...)
}

// Fatal logs the message at error level and exits with status 1.
func Fatal(msg string, args ...any) {
	L().Error(msg, args...)
	exitFunc(1)
}

// Zap builds the request logger used by the HTTP middleware. It honours the
// same level and format variables as L.
func Zap() *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapLevel(parseLevel(os.Getenv("PIMADASH_LOG_LEVEL"))))
	cfg.DisableStacktrace = true
	if !strings.EqualFold(os.Getenv("PIMADASH_LOG_FORMAT"), "json") {
		cfg.Encoding = "console"
		cfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
		cfg.OutputPaths = []string{"stderr"}
	}

	l, err := cfg.Build()
	if err != nil {
		L().Warn("falling back to no-op request logger", "error", err)
		return zap.NewNop()
	}
	return l
}

func zapLevel(level slog.Level) zapcore.Level {
	switch {
	case level <= slog.LevelDebug:
		return zapcore.DebugLevel
	case level >= slog.LevelError:
		return zapcore.ErrorLevel
	case level >= slog.LevelWarn:
		return zapcore.WarnLevel
	default:
		return zapcore.InfoLevel
	}
}
