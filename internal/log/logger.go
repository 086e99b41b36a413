// Package log builds the process logger: JSON records on stderr or a
// size-rotated file under the data directory, with credentials scrubbed.
package log

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

var errRotationLimits = errors.New("log: max size and max files must be positive")

type Options struct {
	Level string
	// File switches output from Stderr to a rotated file. Its directory is
	// created private to the user, next to the farm database.
	File      string
	MaxSizeMB int
	MaxFiles  int
	// Stderr receives records when File is empty. Defaults to os.Stderr.
	Stderr io.Writer
}

// New returns the logger and a closer for its output. The closer is a no-op
// when logging to stderr.
func New(opts Options) (*slog.Logger, io.Closer, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}

	var (
		out    io.Writer = opts.Stderr
		closer io.Closer = nopCloser{}
	)
	if out == nil {
		out = os.Stderr
	}
	if opts.File != "" {
		file, err := openLogFile(opts.File, opts.MaxSizeMB, opts.MaxFiles)
		if err != nil {
			return nil, nil, err
		}
		out, closer = file, file
	}

	base := slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level})
	return slog.New(NewRedactingHandler(base)), closer, nil
}

// openLogFile keeps maxFiles rotated backups of at most maxSizeMB each.
func openLogFile(path string, maxSizeMB, maxFiles int) (*lumberjack.Logger, error) {
	if maxSizeMB <= 0 || maxFiles <= 0 {
		return nil, fmt.Errorf("%w: got %d MB, %d files", errRotationLimits, maxSizeMB, maxFiles)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("log: create directory: %w", err)
	}
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxFiles,
	}, nil
}

func ParseLevel(raw string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", raw)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
