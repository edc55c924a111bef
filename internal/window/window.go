// Package window defines the windowing surface the supervisor drives: two
// named windows, close/destroy events and process exit.
package window

import (
	"errors"
	"fmt"
)

// Labels of the two windows the shell owns.
const (
	SplashLabel = "splashscreen"
	MainLabel   = "main"
)

var ErrUnknownWindow = errors.New("unknown window")

// Window is a named top-level surface.
type Window interface {
	Label() string
	Show() error
	Hide() error
	// Navigate points the window at url. It does not make the window visible.
	Navigate(url string) error
}

// EventKind is the type of a window event.
type EventKind string

const (
	CloseRequested EventKind = "close_requested"
	Destroyed      EventKind = "destroyed"
)

// Event is raised by a Shell when the user interacts with a window.
type Event struct {
	Window string
	Kind   EventKind
}

func (e Event) String() string {
	return fmt.Sprintf("%s:%s", e.Window, e.Kind)
}

// Shell owns the windows and the process.
type Shell interface {
	Window(label string) (Window, error)
	Events() <-chan Event
	Exit(code int)
}

func unknown(label string) error {
	return fmt.Errorf("%w %q", ErrUnknownWindow, label)
}
