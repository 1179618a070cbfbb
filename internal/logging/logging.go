// Package logging configures the process-wide zerolog logger.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Options selects log level and sinks.
type Options struct {
	Level   string // trace|debug|info|warn|error, default info
	Console bool   // pretty console output on stderr
	File    string // optional JSON log file path
}

// New builds a logger from opts. The returned closer releases the log file,
// if one was opened; it is always non-nil.
func New(opts Options) (zerolog.Logger, func(), error) {
	level := parseLevel(opts.Level)

	var sinks []io.Writer
	closer := func() {}

	if opts.Console {
		sinks = append(sinks, zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		})
	}

	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return zerolog.Nop(), closer, err
		}
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return zerolog.Nop(), closer, err
		}
		sinks = append(sinks, f)
		closer = func() { f.Close() }
	}

	if len(sinks) == 0 {
		sinks = append(sinks, os.Stderr)
	}

	log := zerolog.New(zerolog.MultiLevelWriter(sinks...)).
		Level(level).
		With().Timestamp().Logger()

	return log, closer, nil
}

// Nop returns a logger that discards everything. Handy default for tests
// and for components constructed without a logger.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "", "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
