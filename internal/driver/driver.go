package driver

import (
	"context"
	"time"
)

// State represents the lifecycle state of the sidecar process.
type State string

const (
	StateStopped  State = "stopped"
	StateStarting State = "starting"
	StateRunning  State = "running"
	StateExited   State = "exited"
	StateFailed   State = "failed"
)

// ProcessInfo holds runtime information about the sidecar.
type ProcessInfo struct {
	PID       int
	State     State
	StartedAt time.Time
	ExitCode  int
	Error     string
}

// Driver spawns the child service. The shell never stops the child through
// the driver: shutdown goes through the port reaper, which also catches any
// processes the child forked.
type Driver interface {
	// Start launches the process and returns immediately.
	Start(ctx context.Context) error

	// Info returns current process state and metadata.
	Info() ProcessInfo

	// Wait blocks until the process exits and returns the exit code.
	Wait() (int, error)

	// LogLines returns the last n lines of combined stdout/stderr.
	LogLines(n int) []string
}
