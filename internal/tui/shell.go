// Package tui is a terminal implementation of window.Shell: a spinner splash
// screen while the sidecar starts and a status view once it is up.
package tui

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/benaskins/scoreshell/internal/probe"
	"github.com/benaskins/scoreshell/internal/window"
	tea "github.com/charmbracelet/bubbletea"
)

// Shell renders the splash and main windows in the terminal.
type Shell struct {
	name    string
	screen  *screen
	program *tea.Program
	events  chan window.Event
	windows map[string]*tuiWindow
	open    func(url string) error
	exit    func(code int)
	logger  *slog.Logger

	programOpts []tea.ProgramOption
}

// Option configures a Shell.
type Option func(*Shell)

// WithOpener replaces the browser launcher.
func WithOpener(fn func(url string) error) Option {
	return func(s *Shell) { s.open = fn }
}

// WithExit replaces os.Exit.
func WithExit(fn func(code int)) Option {
	return func(s *Shell) { s.exit = fn }
}

// WithProgramOptions passes options through to the bubbletea program.
func WithProgramOptions(opts ...tea.ProgramOption) Option {
	return func(s *Shell) { s.programOpts = append(s.programOpts, opts...) }
}

// New creates a terminal shell for the service called name.
func New(name string, logger *slog.Logger, opts ...Option) *Shell {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Shell{
		name:   name,
		screen: &screen{splashVisible: true},
		events: make(chan window.Event, 4),
		open:   window.OpenBrowser,
		exit:   os.Exit,
		logger: logger.With("component", "tui"),
	}
	s.windows = map[string]*tuiWindow{
		window.SplashLabel: {shell: s, label: window.SplashLabel},
		window.MainLabel:   {shell: s, label: window.MainLabel},
	}

	if os.Getenv("NO_ALT_SCREEN") != "1" {
		s.programOpts = append(s.programOpts, tea.WithAltScreen())
	}
	for _, opt := range opts {
		opt(s)
	}
	s.program = tea.NewProgram(newModel(s.name, s.screen, s.raise), s.programOpts...)
	return s
}

// Run blocks until the program quits, either through Exit or because the
// terminal sent SIGTERM.
func (s *Shell) Run() error {
	if _, err := s.program.Run(); err != nil && !errors.Is(err, tea.ErrInterrupted) {
		return fmt.Errorf("running terminal ui: %w", err)
	}
	return nil
}

// CloseEvent is the event quitting would raise right now.
func (s *Shell) CloseEvent() window.Event { return s.screen.closeEvent() }

// Progress shows a probe outcome on the splash screen.
func (s *Shell) Progress(o probe.Outcome) {
	s.screen.mu.Lock()
	s.screen.outcome = o
	s.screen.probed = true
	s.screen.mu.Unlock()
}

// OutputLine shows the latest sidecar output line on the splash screen.
func (s *Shell) OutputLine(line string) {
	s.screen.mu.Lock()
	s.screen.lastLine = line
	s.screen.mu.Unlock()
}

func (s *Shell) Window(label string) (window.Window, error) {
	w, ok := s.windows[label]
	if !ok {
		return nil, fmt.Errorf("%w %q", window.ErrUnknownWindow, label)
	}
	return w, nil
}

func (s *Shell) Events() <-chan window.Event { return s.events }

// Quit stops the program and restores the terminal without exiting the
// process; Run returns afterwards.
func (s *Shell) Quit() { s.program.Quit() }

// Exit restores the terminal and exits the process.
func (s *Shell) Exit(code int) {
	s.program.Quit()
	s.program.Wait()
	s.exit(code)
}

func (s *Shell) raise(ev window.Event) {
	select {
	case s.events <- ev:
	default:
		s.logger.Warn("dropping window event, queue full", "event", ev)
	}
}

type tuiWindow struct {
	shell *Shell
	label string
}

func (w *tuiWindow) Label() string { return w.label }

func (w *tuiWindow) Show() error {
	scr := w.shell.screen
	scr.mu.Lock()
	url := ""
	switch w.label {
	case window.SplashLabel:
		scr.splashVisible = true
	case window.MainLabel:
		scr.mainVisible = true
		url = scr.url
	}
	scr.mu.Unlock()

	w.shell.logger.Debug("showing window", "window", w.label)
	if url == "" {
		return nil
	}
	if err := w.shell.open(url); err != nil {
		return fmt.Errorf("opening %s: %w", url, err)
	}
	return nil
}

func (w *tuiWindow) Hide() error {
	scr := w.shell.screen
	scr.mu.Lock()
	switch w.label {
	case window.SplashLabel:
		scr.splashVisible = false
	case window.MainLabel:
		scr.mainVisible = false
	}
	scr.mu.Unlock()
	w.shell.logger.Debug("hiding window", "window", w.label)
	return nil
}

func (w *tuiWindow) Navigate(url string) error {
	if w.label == window.MainLabel {
		w.shell.screen.mu.Lock()
		w.shell.screen.url = url
		w.shell.screen.mu.Unlock()
	}
	w.shell.logger.Debug("navigating window", "window", w.label, "url", url)
	return nil
}
