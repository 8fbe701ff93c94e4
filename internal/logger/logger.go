// Package logger provides the process-wide structured logger. All failure
// absorption in the history store and similarity engine reports through this
// side channel rather than propagating errors to callers.
package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	defaultLogger zerolog.Logger
	once          sync.Once
)

// Init initializes the default logger once. The level is taken from
// NOTEDUP_LOG_LEVEL (default info); NOTEDUP_LOG_FORMAT=console switches from
// JSON to human-readable output.
func Init() {
	once.Do(func() {
		level := zerolog.InfoLevel
		if raw := strings.TrimSpace(os.Getenv("NOTEDUP_LOG_LEVEL")); raw != "" {
			if parsed, err := zerolog.ParseLevel(strings.ToLower(raw)); err == nil {
				level = parsed
			}
		}

		var writer io.Writer = os.Stderr
		if strings.EqualFold(os.Getenv("NOTEDUP_LOG_FORMAT"), "console") {
			writer = zerolog.ConsoleWriter{
				Out:        os.Stderr,
				TimeFormat: time.RFC3339,
			}
		}

		defaultLogger = zerolog.New(writer).
			Level(level).
			With().
			Timestamp().
			Str("service", "notedup").
			Logger()
	})
}

// Get returns the initialized default logger, initializing it if needed. The
// pointer keeps the logger addressable so level methods chain directly off the
// accessor.
func Get() *zerolog.Logger {
	Init()
	return &defaultLogger
}
