package gc

import (
	"sync"

	"go.uber.org/zap"
)

var (
	logger     *zap.Logger
	loggerOnce sync.Once
)

// Logger returns the package's logger instance, a no-op logger by default.
func Logger() *zap.Logger {
	loggerOnce.Do(func() {
		if logger == nil {
			logger = zap.NewNop()
		}
	})
	return logger
}

// SetLogger overrides the package logger, e.g. to wire a real zap.Logger
// from cmd/lodtalk.
func SetLogger(l *zap.Logger) {
	logger = l
}
