// Package logger provides leveled, module-tagged logging on top of the
// standard log package.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
)

// Level is the severity of a log message.
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
	SILENT
)

var levelNames = map[Level]string{
	DEBUG:  "DEBUG",
	INFO:   "INFO",
	WARN:   "WARN",
	ERROR:  "ERROR",
	SILENT: "SILENT",
}

// Logger writes leveled messages prefixed with the level and module name.
type Logger struct {
	mu    sync.Mutex
	level Level
	out   *log.Logger
}

var (
	defaultMu     sync.RWMutex
	defaultLogger = New(INFO, os.Stderr)
)

// New creates a Logger writing to output. A nil output means stderr.
func New(level Level, output io.Writer) *Logger {
	if output == nil {
		output = os.Stderr
	}
	return &Logger{
		level: level,
		out:   log.New(output, "", log.Ldate|log.Ltime|log.Lmicroseconds),
	}
}

// Init replaces the global logger.
func Init(level Level, output io.Writer) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = New(level, output)
}

// Default returns the global logger.
func Default() *Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// SetLevel changes the minimum level that is written.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// GetLevel returns the current minimum level.
func (l *Logger) GetLevel() Level {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

func (l *Logger) logf(level Level, module, format string, args ...any) {
	if level < l.GetLevel() || level >= SILENT {
		return
	}

	prefix := "[" + levelNames[level] + "]"
	if module != "" {
		prefix = fmt.Sprintf("%s [%s]", prefix, module)
	}
	l.out.Printf("%s %s", prefix, fmt.Sprintf(format, args...))
}

func (l *Logger) Debug(module, format string, args ...any) { l.logf(DEBUG, module, format, args...) }
func (l *Logger) Info(module, format string, args ...any)  { l.logf(INFO, module, format, args...) }
func (l *Logger) Warn(module, format string, args ...any)  { l.logf(WARN, module, format, args...) }
func (l *Logger) Error(module, format string, args ...any) { l.logf(ERROR, module, format, args...) }

// Global logger functions.

func Debug(module, format string, args ...any) { Default().Debug(module, format, args...) }
func Info(module, format string, args ...any)  { Default().Info(module, format, args...) }
func Warn(module, format string, args ...any)  { Default().Warn(module, format, args...) }
func Error(module, format string, args ...any) { Default().Error(module, format, args...) }

// SetLevel sets the global log level.
func SetLevel(level Level) { Default().SetLevel(level) }

// ParseLevel parses a log level name.
func ParseLevel(s string) (Level, error) {
	switch s {
	case "debug", "DEBUG":
		return DEBUG, nil
	case "info", "INFO", "":
		return INFO, nil
	case "warn", "WARN", "warning", "WARNING":
		return WARN, nil
	case "error", "ERROR":
		return ERROR, nil
	case "silent", "SILENT", "none", "NONE":
		return SILENT, nil
	default:
		return INFO, fmt.Errorf("invalid log level: %s", s)
	}
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "UNKNOWN"
}
