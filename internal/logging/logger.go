package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/fadedpez/pitbot/internal/types"
)

// Level represents a logging level
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

var levelNames = map[Level]string{
	DEBUG: "DEBUG",
	INFO:  "INFO",
	WARN:  "WARN",
	ERROR: "ERROR",
}

// ParseLevel maps a config value such as "debug" or "WARN" to a Level
func ParseLevel(name string) (Level, error) {
	for level, levelName := range levelNames {
		if strings.EqualFold(name, levelName) {
			return level, nil
		}
	}
	return INFO, fmt.Errorf("unknown log level %q", name)
}

// Logger is a leveled logger that prefixes every line with time, level and caller
type Logger struct {
	*log.Logger
	level     Level
	component string
}

// NewLogger creates a new logger writing to stdout
func NewLogger(level Level) *Logger {
	return NewLoggerTo(os.Stdout, level)
}

// NewLoggerTo creates a new logger writing to w
func NewLoggerTo(w io.Writer, level Level) *Logger {
	return &Logger{
		Logger: log.New(w, "", 0),
		level:  level,
	}
}

// With returns a logger sharing the output and level that tags lines with component
func (l *Logger) With(component string) *Logger {
	return &Logger{
		Logger:    l.Logger,
		level:     l.level,
		component: component,
	}
}

// formatMessage formats a log message with timestamp, level, and caller info
func (l *Logger) formatMessage(level Level, msg string) string {
	_, file, line, ok := runtime.Caller(3)
	caller := "unknown"
	if ok {
		caller = fmt.Sprintf("%s:%d", filepath.Base(file), line)
	}

	timestamp := time.Now().Format("2006-01-02 15:04:05.000")

	if l.component != "" {
		return fmt.Sprintf("[%s] %-5s %s [%s] %s", timestamp, levelNames[level], caller, l.component, msg)
	}
	return fmt.Sprintf("[%s] %-5s %s: %s", timestamp, levelNames[level], caller, msg)
}

func (l *Logger) logf(level Level, format string, v ...interface{}) {
	if l.level <= level {
		l.Output(3, l.formatMessage(level, fmt.Sprintf(format, v...)))
	}
}

// Debug logs a debug message
func (l *Logger) Debug(format string, v ...interface{}) {
	l.logf(DEBUG, format, v...)
}

// Info logs an info message
func (l *Logger) Info(format string, v ...interface{}) {
	l.logf(INFO, format, v...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, v ...interface{}) {
	l.logf(WARN, format, v...)
}

// Error logs an error message
func (l *Logger) Error(format string, v ...interface{}) {
	l.logf(ERROR, format, v...)
}

// LogError logs an error, expanding RollError context when present
func (l *Logger) LogError(err error) {
	var rollErr *types.RollError
	if types.As(err, &rollErr) {
		context := []string{
			fmt.Sprintf("Code: %s", rollErr.Code),
			fmt.Sprintf("Message: %s", rollErr.Message),
		}
		if rollErr.Err != nil {
			context = append(context, fmt.Sprintf("Cause: %v", rollErr.Err))
		}

		l.logf(ERROR, "Roll error occurred:\n\t%s", strings.Join(context, "\n\t"))
	} else {
		l.logf(ERROR, "Unexpected error: %v", err)
	}
}

// Default logger instance
var Default = NewLogger(INFO)
