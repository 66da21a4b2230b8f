// Package logging configures the process logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// levelRouter is a zerolog.LevelWriter that routes INFO/WARN/DEBUG to stdout
// and ERROR+ to stderr.
type levelRouter struct {
	stdout io.Writer
	stderr io.Writer
}

func (lr *levelRouter) Write(p []byte) (int, error) {
	return lr.stdout.Write(p)
}

func (lr *levelRouter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level >= zerolog.ErrorLevel && level != zerolog.NoLevel {
		return lr.stderr.Write(p)
	}
	return lr.stdout.Write(p)
}

// Options control Setup.
type Options struct {
	// Environment "production" selects JSON output; anything else is the
	// human readable console format.
	Environment string
	// Level is a zerolog level name. Empty means debug outside production
	// and info in production.
	Level string
	// Path, if set, also receives every line.
	Path string
}

// Setup builds the logger. The returned cleanup closes the log file, if any.
func Setup(opts Options) (zerolog.Logger, func(), error) {
	cleanup := func() {}
	production := opts.Environment == "production"

	level := zerolog.DebugLevel
	if production {
		level = zerolog.InfoLevel
	}
	if opts.Level != "" {
		l, err := zerolog.ParseLevel(opts.Level)
		if err != nil {
			return zerolog.Nop(), cleanup, fmt.Errorf("parsing log level: %w", err)
		}
		level = l
	}

	stdoutW := io.Writer(os.Stdout)
	stderrW := io.Writer(os.Stderr)

	if opts.Path != "" {
		f, err := os.OpenFile(opts.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return zerolog.Nop(), cleanup, fmt.Errorf("opening log file: %w", err)
		}
		cleanup = func() { f.Close() }
		stdoutW = io.MultiWriter(os.Stdout, f)
		stderrW = io.MultiWriter(os.Stderr, f)
	}

	logger := New(stdoutW, stderrW, production).Level(level)
	return logger, cleanup, nil
}

// New returns a logger writing to the given streams.
func New(stdout, stderr io.Writer, production bool) zerolog.Logger {
	router := &levelRouter{stdout: stdout, stderr: stderr}
	if !production {
		router = &levelRouter{
			stdout: zerolog.ConsoleWriter{Out: stdout, TimeFormat: time.RFC3339, NoColor: true},
			stderr: zerolog.ConsoleWriter{Out: stderr, TimeFormat: time.RFC3339, NoColor: true},
		}
	}
	return zerolog.New(router).With().Timestamp().Logger()
}
