package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	constants "mysqllogger/config"
)

// Level represents log level
type Level string

const (
	LevelInfo    Level = "INFO"
	LevelWarning Level = "WARNING"
	LevelError   Level = "ERROR"
	LevelSuccess Level = "SUCCESS"
	LevelDebug   Level = "DEBUG"
)

// Logger writes the daemon's own diagnostics. Session output never goes through here.
type Logger struct {
	filePath string
	out      io.Writer
	logFile  *os.File
	mu       sync.Mutex
}

// New creates a logger appending to filePath.
// An empty path, or one that cannot be opened, logs to stderr instead.
func New(filePath string) *Logger {
	l := &Logger{filePath: filePath, out: os.Stderr}

	if filePath != "" {
		logFile, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err == nil {
			l.logFile = logFile
			l.out = logFile
		}
	}

	return l
}

// NewWriter creates a logger writing to w; used by tests and foreground runs.
func NewWriter(w io.Writer) *Logger {
	return &Logger{out: w}
}

// Default returns a logger with default settings
func Default() *Logger {
	return New(constants.LOG_FILE)
}

// Path returns the file the logger appends to, empty when writing to a stream.
func (l *Logger) Path() string {
	if l.logFile == nil {
		return ""
	}
	return l.filePath
}

func (l *Logger) write(level Level, message string, args ...interface{}) {
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	formattedMsg := fmt.Sprintf(message, args...)
	logEntry := fmt.Sprintf("[%s] %s: %s\n", timestamp, level, formattedMsg)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.out != nil {
		io.WriteString(l.out, logEntry)
	}
}

// Close closes the log file
func (l *Logger) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.logFile != nil {
		l.logFile.Close()
		l.logFile = nil
		l.out = nil
	}
}

// Info logs an informational message
func (l *Logger) Info(message string, args ...interface{}) {
	l.write(LevelInfo, message, args...)
}

// Warning logs a warning message
func (l *Logger) Warning(message string, args ...interface{}) {
	l.write(LevelWarning, message, args...)
}

// Error logs an error message
func (l *Logger) Error(message string, args ...interface{}) {
	l.write(LevelError, message, args...)
}

// Success logs a success message
func (l *Logger) Success(message string, args ...interface{}) {
	l.write(LevelSuccess, message, args...)
}

// Debug logs a debug message
func (l *Logger) Debug(message string, args ...interface{}) {
	l.write(LevelDebug, message, args...)
}

var (
	defaultMu     sync.RWMutex
	defaultLogger = NewWriter(io.Discard)
)

// Init points the package-level logger at filePath. It is called once the
// runtime configuration is known; until then package-level calls are dropped.
func Init(filePath string) *Logger {
	l := New(filePath)
	SetDefault(l)
	return l
}

// SetDefault replaces the package-level logger and returns the previous one.
func SetDefault(l *Logger) *Logger {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	prev := defaultLogger
	defaultLogger = l
	return prev
}

func current() *Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// Info logs an informational message using the default logger
func Info(message string, args ...interface{}) {
	current().Info(message, args...)
}

// Warning logs a warning message using the default logger
func Warning(message string, args ...interface{}) {
	current().Warning(message, args...)
}

// Error logs an error message using the default logger
func Error(message string, args ...interface{}) {
	current().Error(message, args...)
}

// Success logs a success message using the default logger
func Success(message string, args ...interface{}) {
	current().Success(message, args...)
}

// Debug logs a debug message using the default logger
func Debug(message string, args ...interface{}) {
	current().Debug(message, args...)
}
