package miniav

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// LogLevel selects how much the package logs.
type LogLevel int32

const (
	LogLevelTrace LogLevel = iota
	LogLevelDebug
	LogLevelInfo
	LogLevelWarn
	LogLevelError
	LogLevelOff
)

// LogCallback receives every log record the package emits at or above
// the current level. Records may arrive from backend producer threads.
type LogCallback func(level LogLevel, message string)

var (
	logger   = logrus.New()
	loggerMu sync.Mutex

	// loggerOff remembers that Off discarded the output so a later
	// level change restores it; callbackActive keeps output discarded
	// while an installed callback owns delivery.
	loggerOff      bool
	callbackActive bool
)

func init() {
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: false})
	logger.SetLevel(logrus.WarnLevel)
	if strings.TrimSpace(os.Getenv("MINIAV_DEBUG")) == "1" {
		logger.SetLevel(logrus.DebugLevel)
	}
}

// Logger exposes the package logger so backend packages log through the
// same sink and level.
func Logger() *logrus.Logger { return logger }

// SetLogLevel sets the minimum level emitted to the log output and any
// installed callback.
func SetLogLevel(level LogLevel) {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	if level == LogLevelOff {
		logger.SetLevel(logrus.PanicLevel)
		logger.SetOutput(io.Discard)
		loggerOff = true
		return
	}

	switch level {
	case LogLevelTrace:
		logger.SetLevel(logrus.TraceLevel)
	case LogLevelDebug:
		logger.SetLevel(logrus.DebugLevel)
	case LogLevelInfo:
		logger.SetLevel(logrus.InfoLevel)
	case LogLevelWarn:
		logger.SetLevel(logrus.WarnLevel)
	case LogLevelError:
		logger.SetLevel(logrus.ErrorLevel)
	}
	if loggerOff {
		loggerOff = false
		if !callbackActive {
			logger.SetOutput(os.Stderr)
		}
	}
}

// SetLogCallback forwards log records to cb instead of the default
// stderr output. A nil cb restores the default output.
func SetLogCallback(cb LogCallback) {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	if cb == nil {
		callbackActive = false
		logger.ReplaceHooks(make(logrus.LevelHooks))
		if !loggerOff {
			logger.SetOutput(os.Stderr)
		}
		return
	}
	callbackActive = true
	logger.SetOutput(io.Discard)
	hooks := make(logrus.LevelHooks)
	h := &callbackHook{cb: cb}
	for _, l := range logrus.AllLevels {
		hooks[l] = append(hooks[l], h)
	}
	logger.ReplaceHooks(hooks)
}

type callbackHook struct {
	cb LogCallback
}

func (h *callbackHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h *callbackHook) Fire(e *logrus.Entry) error {
	msg, err := e.String()
	if err != nil {
		msg = e.Message
	}
	h.cb(levelFromLogrus(e.Level), strings.TrimRight(msg, "\n"))
	return nil
}

func levelFromLogrus(l logrus.Level) LogLevel {
	switch l {
	case logrus.TraceLevel:
		return LogLevelTrace
	case logrus.DebugLevel:
		return LogLevelDebug
	case logrus.InfoLevel:
		return LogLevelInfo
	case logrus.WarnLevel:
		return LogLevelWarn
	default:
		return LogLevelError
	}
}
