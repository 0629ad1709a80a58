package miniav

import (
	"bytes"
	"io"
	"os"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetLogCallback(t *testing.T) {
	var mu sync.Mutex
	var levels []LogLevel
	var messages []string

	SetLogCallback(func(level LogLevel, message string) {
		mu.Lock()
		defer mu.Unlock()
		levels = append(levels, level)
		messages = append(messages, message)
	})
	defer SetLogCallback(nil)

	logger.Warn("callback sink check")

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, levels)
	assert.Equal(t, LogLevelWarn, levels[0])
	assert.Contains(t, messages[0], "callback sink check")
}

func TestSetLogLevel(t *testing.T) {
	defer SetLogLevel(LogLevelWarn)

	SetLogLevel(LogLevelError)
	assert.Equal(t, logrus.ErrorLevel, logger.GetLevel())

	SetLogLevel(LogLevelTrace)
	assert.Equal(t, logrus.TraceLevel, logger.GetLevel())
}

func TestSetLogLevelOffRestore(t *testing.T) {
	defer SetLogLevel(LogLevelWarn)

	SetLogLevel(LogLevelOff)
	assert.Equal(t, io.Discard, logger.Out)

	SetLogLevel(LogLevelInfo)
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
	require.Equal(t, os.Stderr, logger.Out)

	var buf bytes.Buffer
	logger.SetOutput(&buf)
	defer logger.SetOutput(os.Stderr)

	logger.Info("back on the air")
	assert.Contains(t, buf.String(), "back on the air")
}

func TestSetLogLevelOffKeepsCallbackSink(t *testing.T) {
	defer SetLogLevel(LogLevelWarn)

	SetLogCallback(func(LogLevel, string) {})
	defer SetLogCallback(nil)

	SetLogLevel(LogLevelOff)
	SetLogLevel(LogLevelInfo)

	// An installed callback owns delivery, so the writer stays discarded.
	assert.Equal(t, io.Discard, logger.Out)
}

func TestLevelFromLogrus(t *testing.T) {
	assert.Equal(t, LogLevelDebug, levelFromLogrus(logrus.DebugLevel))
	assert.Equal(t, LogLevelWarn, levelFromLogrus(logrus.WarnLevel))
	assert.Equal(t, LogLevelError, levelFromLogrus(logrus.FatalLevel))
}
