package logging

import (
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func resetLoggerForTest() {
	initOnce = sync.Once{}
	logger = nil
	exitFunc = os.Exit
}

func TestParseLevelMappings(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warn"))
	assert.Equal(t, slog.LevelWarn, parseLevel("WARNING"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("unknown"))
}

func TestLoggerSingleton(t *testing.T) {
	resetLoggerForTest()
	first := L()
	second := L()
	assert.Same(t, first, second)
}

func TestFatalInvokesExitFunction(t *testing.T) {
	resetLoggerForTest()
	t.Cleanup(resetLoggerForTest)

	var exitCode int
	exitFunc = func(code int) {
		exitCode = code
	}

	logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	initOnce.Do(func() {}) // mark as done so L() keeps the discard logger

	Fatal("boom", "key", "value")

	require.Equal(t, 1, exitCode)
}

func TestZapLevelFollowsSlogLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, zapLevel(slog.LevelDebug))
	assert.Equal(t, zapcore.InfoLevel, zapLevel(slog.LevelInfo))
	assert.Equal(t, zapcore.WarnLevel, zapLevel(slog.LevelWarn))
	assert.Equal(t, zapcore.ErrorLevel, zapLevel(slog.LevelError))
}

func TestZapBuildsLogger(t *testing.T) {
	t.Setenv("PIMADASH_LOG_LEVEL", "warn")
	t.Setenv("PIMADASH_LOG_FORMAT", "json")

	l := Zap()
	require.NotNil(t, l)
	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, l.Core().Enabled(zapcore.WarnLevel))
}
