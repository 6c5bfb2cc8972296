package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"
)

// LogLevel represents the severity of a log message.
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

func levelToString(level LogLevel) string {
	switch level {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Logger defines the minimal printf-style logging contract used across the
// service. Components depend on this interface, never on the concrete type.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// Nop returns a logger that discards all output.
func Nop() Logger {
	return nopLogger{}
}

// OrNop returns logger when non-nil, otherwise a no-op logger.
func OrNop(logger Logger) Logger {
	if logger == nil {
		return Nop()
	}
	return logger
}

type baseLogger struct {
	mu     sync.Mutex
	out    *log.Logger
	level  LogLevel
	writer io.WriteCloser
}

var (
	base     *baseLogger
	baseOnce sync.Once
)

func defaultBase() *baseLogger {
	baseOnce.Do(func() {
		base = &baseLogger{
			out:   log.New(os.Stderr, "", 0),
			level: INFO,
		}
		if path := os.Getenv("GOFR_DOC_LOG_FILE"); path != "" {
			if f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
				base.writer = f
				base.out = log.New(f, "", 0)
			}
		}
		if os.Getenv("GOFR_DOC_DEBUG") != "" {
			base.level = DEBUG
		}
	})
	return base
}

// SetLevel sets the minimum level on the process-wide logger.
func SetLevel(level LogLevel) {
	b := defaultBase()
	b.mu.Lock()
	b.level = level
	b.mu.Unlock()
}

// componentLogger scopes the shared sink to a named component.
type componentLogger struct {
	base      *baseLogger
	component string
}

// NewComponentLogger returns the default application logger scoped to a component.
func NewComponentLogger(component string) Logger {
	return &componentLogger{base: defaultBase(), component: component}
}

func (l *componentLogger) log(level LogLevel, format string, args ...any) {
	b := l.base
	b.mu.Lock()
	defer b.mu.Unlock()
	if level < b.level {
		return
	}

	_, file, line, ok := runtime.Caller(2)
	if ok {
		file = filepath.Base(file)
	} else {
		file = "???"
		line = 0
	}

	// Format: 2026-01-02 15:04:05 [INFO] [Component] file.go:123 - message
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	msg := fmt.Sprintf(format, args...)
	b.out.Printf("%s [%s] [%s] %s:%d - %s", timestamp, levelToString(level), l.component, file, line, msg)
}

func (l *componentLogger) Debug(format string, args ...any) { l.log(DEBUG, format, args...) }
func (l *componentLogger) Info(format string, args ...any)  { l.log(INFO, format, args...) }
func (l *componentLogger) Warn(format string, args ...any)  { l.log(WARN, format, args...) }
func (l *componentLogger) Error(format string, args ...any) { l.log(ERROR, format, args...) }
