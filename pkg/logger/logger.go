// Package logger is a printf-style facade over logrus shared by every ferry binary.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	std     = newStd()
	mu      sync.Mutex
	logFile *os.File
)

func newStd() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})
	l.SetLevel(logrus.InfoLevel)
	return l
}

// InitLog configures the shared logger. When path is not empty logs are
// written to both stderr and the file. level accepts any logrus level name.
func InitLog(path string, level string) error {
	mu.Lock()
	defer mu.Unlock()

	if level != "" {
		lvl, err := logrus.ParseLevel(level)
		if err != nil {
			return fmt.Errorf("parse log level %q: %w", level, err)
		}
		std.SetLevel(lvl)
	}

	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	if logFile != nil {
		_ = logFile.Close()
	}
	logFile = f
	std.SetOutput(io.MultiWriter(os.Stderr, f))
	return nil
}

// FlushLog closes the log file opened by InitLog, if any.
func FlushLog() {
	mu.Lock()
	defer mu.Unlock()
	if logFile != nil {
		_ = logFile.Sync()
		_ = logFile.Close()
		logFile = nil
		std.SetOutput(os.Stderr)
	}
}

// SetOutput redirects the shared logger, mostly for tests.
func SetOutput(w io.Writer) {
	std.SetOutput(w)
}

// WithField returns an entry bound to the given key, used for per-plugin namespaces.
func WithField(key string, value interface{}) *logrus.Entry {
	return std.WithField(key, value)
}

func Debug(format string, args ...interface{}) {
	std.Debugf(format, args...)
}

func Info(format string, args ...interface{}) {
	std.Infof(format, args...)
}

func Warn(format string, args ...interface{}) {
	std.Warnf(format, args...)
}

func Error(format string, args ...interface{}) {
	std.Errorf(format, args...)
}

func Fatal(format string, args ...interface{}) {
	std.Fatalf(format, args...)
}
