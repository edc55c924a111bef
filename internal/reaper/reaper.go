// Package reaper finds whatever is bound to the service port at shutdown and
// signals the candidates whose name matches the termination policy.
//
// The shell cannot trust the handle of the process it spawned: the sidecar
// may re-exec an interpreter or fork workers. The port is the stable
// identity, so enumeration starts from the socket table.
package reaper

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownMode   = errors.New("unknown mode")
	ErrUnknownSignal = errors.New("unknown signal")
)

// Kind distinguishes host processes from containers publishing the port.
type Kind string

const (
	KindProcess   Kind = "process"
	KindContainer Kind = "container"
)

// Killable is one termination candidate bound to the monitored port. It is
// only valid for the sweep that produced it.
type Killable interface {
	Name() string
	ID() string // PID for processes, container ID for containers
	Kind() Kind
	Kill(sig Signal) error
}

// Mode selects which kinds of owners are enumerated.
type Mode string

const (
	ModeAuto      Mode = "auto"
	ModeProcess   Mode = "process"
	ModeContainer Mode = "container"
)

// ParseMode accepts auto, process or container (case-insensitive).
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeAuto, ModeProcess, ModeContainer:
		return m, nil
	default:
		return "", fmt.Errorf("%w %q (expected auto, process, or container)", ErrUnknownMode, s)
	}
}

func (m Mode) includesProcesses() bool  { return m == ModeAuto || m == ModeProcess }
func (m Mode) includesContainers() bool { return m == ModeAuto || m == ModeContainer }

// Finder enumerates the owners of a TCP/UDP port.
type Finder interface {
	FindKillables(ctx context.Context, port uint16, mode Mode) ([]Killable, error)
}
