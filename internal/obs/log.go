package obs

import (
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

var (
	loggerMu sync.Mutex
	logger   *zerolog.Logger
)

// Logger returns the shared structured logger used across the service.
func Logger() *zerolog.Logger {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	if logger == nil {
		l := zerolog.New(os.Stdout).With().Timestamp().Str("service", "authcore").Logger()
		logger = &l
	}
	return logger
}

// SetOutput redirects the shared logger, returning a restore function.
// Intended for tests that capture log output.
func SetOutput(w io.Writer) func() {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	prev := logger
	l := zerolog.New(w).With().Timestamp().Str("service", "authcore").Logger()
	logger = &l
	return func() {
		loggerMu.Lock()
		defer loggerMu.Unlock()
		logger = prev
	}
}
