package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// newLogger builds the root logger. The level comes from --verbose or
// SCORESHELL_LOG_LEVEL and defaults to info.
func newLogger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(os.Getenv("SCORESHELL_LOG_LEVEL")) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// openLogFile opens ~/.scoreshell/shell.log for appending. The terminal UI
// owns the screen, so logs go there instead of stderr.
func openLogFile() (*os.File, error) {
	home, err := scoreshellHome()
	if err != nil {
		return nil, fmt.Errorf("resolving home: %w", err)
	}
	if err := os.MkdirAll(home, 0700); err != nil {
		return nil, fmt.Errorf("creating %s: %w", home, err)
	}
	path := filepath.Join(home, "shell.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	return f, nil
}
