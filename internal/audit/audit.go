// Package audit provides an append-only record of termination sweeps.
//
// Every decision taken during a sweep (signal delivered, signal failed,
// process skipped, enumeration failed) is written as one JSON object per line,
// so an operator can reconstruct what the shell killed and why.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Action describes what happened to a candidate.
type Action string

const (
	ActionSignaled          Action = "signaled"
	ActionSignalFailed      Action = "signal_failed"
	ActionSkipped           Action = "skipped"
	ActionEnumerationFailed Action = "enumeration_failed"
)

// Entry is a single journal record.
type Entry struct {
	Timestamp time.Time `json:"ts"`
	SweepID   string    `json:"sweep_id"`
	Action    Action    `json:"action"`
	Port      uint16    `json:"port"`
	Trigger   string    `json:"trigger,omitempty"` // "splashscreen_close", "main_destroyed", "stale", "cli"
	Kind      string    `json:"kind,omitempty"`    // "process" | "container"
	ID        string    `json:"id,omitempty"`      // PID or container ID
	Name      string    `json:"name,omitempty"`
	Signal    string    `json:"signal,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// Logger writes journal entries to an append-only file.
type Logger struct {
	mu   sync.Mutex
	file *os.File
	path string
}

// NewLogger creates or opens a journal file for appending, creating its
// directory if needed.
func NewLogger(path string) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating journal dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("opening sweep journal: %w", err)
	}
	return &Logger{file: f, path: path}, nil
}

// Path returns the journal file location.
func (l *Logger) Path() string { return l.path }

// Record appends an entry.
func (l *Logger) Record(entry Entry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshaling journal entry: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("writing journal entry: %w", err)
	}
	return nil
}

// Close closes the journal file.
func (l *Logger) Close() error {
	return l.file.Close()
}
