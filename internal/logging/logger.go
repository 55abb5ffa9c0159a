// Package logging builds the file-backed zerolog logger. The terminal belongs
// to the UI, so nothing is ever written to stdout.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// DefaultMaxSize is the size at which the log file is rotated on startup.
const DefaultMaxSize int64 = 1 << 20

type Options struct {
	// Level is one of: debug, info, warn, error, fatal.
	Level string
	// File receives JSON lines. Empty discards all output.
	File string
	// MaxSize caps the file before a run starts. Zero means DefaultMaxSize.
	MaxSize int64
}

// New returns a logger appending to opts.File. Every entry carries the
// process id so consecutive runs can be told apart in the shared file.
func New(opts Options) (zerolog.Logger, func(), error) {
	closer := func() {}

	lvl, err := zerolog.ParseLevel(opts.Level)
	if err != nil {
		return zerolog.Logger{}, closer, err
	}

	var writer io.Writer = io.Discard
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return zerolog.Logger{}, closer, fmt.Errorf("create logs dir: %w", err)
		}
		maxSize := opts.MaxSize
		if maxSize <= 0 {
			maxSize = DefaultMaxSize
		}
		if err := rotate(opts.File, maxSize); err != nil {
			return zerolog.Logger{}, closer, fmt.Errorf("rotate log: %w", err)
		}

		osFile, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return zerolog.Logger{}, closer, err
		}
		closer = func() { _ = osFile.Close() }
		writer = osFile
	}

	l := zerolog.New(writer).
		Level(lvl).
		With().
		Timestamp().
		Int("pid", os.Getpid()).
		Logger()

	return l, closer, nil
}

// rotate moves file to file.1 once it has reached maxSize, replacing any
// earlier backup. A missing file is not an error.
func rotate(file string, maxSize int64) error {
	info, err := os.Stat(file)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if info.Size() < maxSize {
		return nil
	}
	return os.Rename(file, file+".1")
}

// Component tags log with a component identifier under the "cmp" key.
func Component(log zerolog.Logger, name string) zerolog.Logger {
	return log.With().Str("cmp", name).Logger()
}
