// Package supervisor drives the sidecar lifecycle: spawn, readiness probing,
// the splash-to-main handoff and the single shutdown sweep.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benaskins/scoreshell/internal/driver"
	"github.com/benaskins/scoreshell/internal/port"
	"github.com/benaskins/scoreshell/internal/probe"
	"github.com/benaskins/scoreshell/internal/reaper"
	"github.com/benaskins/scoreshell/internal/window"
)

// State is the supervisor's lifecycle state.
type State string

const (
	StateStarting        State = "starting"
	StateProbing         State = "probing"
	StateHandoffComplete State = "handoff_complete"
	StateShuttingDown    State = "shutting_down"
	StateTerminated      State = "terminated"
)

// Shutdown triggers, recorded in the sweep journal.
const (
	TriggerSplashClosed  = "splashscreen_close"
	TriggerMainDestroyed = "main_destroyed"
	TriggerStaleOwner    = "stale_owner"
)

// Service identifies the supervised sidecar.
type Service struct {
	Name string
	URL  string
	Port uint16
}

// Timing holds the probe and handoff constants.
type Timing struct {
	ProbeInterval time.Duration
	MaxAttempts   int
	SettleDelay   time.Duration // after the probe loop, before navigating main
	LoadDelay     time.Duration // after navigating, before hide/show
	ProbeTimeout  time.Duration // per request
}

// DefaultTiming polls for up to 30s and hands off with a 750ms total pause.
func DefaultTiming() Timing {
	return Timing{
		ProbeInterval: 500 * time.Millisecond,
		MaxAttempts:   60,
		SettleDelay:   500 * time.Millisecond,
		LoadDelay:     250 * time.Millisecond,
		ProbeTimeout:  2 * time.Second,
	}
}

// Sweeper runs a termination sweep. *reaper.Reaper satisfies it.
type Sweeper interface {
	Sweep(ctx context.Context, port uint16, trigger string) reaper.Report
}

// Supervisor owns one sidecar from spawn to process exit.
type Supervisor struct {
	svc     Service
	timing  Timing
	drv     driver.Driver
	prober  *probe.Prober
	sweeper Sweeper
	shell   window.Shell
	logger  *slog.Logger

	reapStale bool
	portFree  func(int) bool
	progress  func(probe.Outcome)

	mu      sync.Mutex
	state   State
	cancel  context.CancelFunc // startup sequence
	started bool

	handoff  sync.Once
	shutdown atomic.Bool
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Supervisor) { s.logger = l }
}

// WithProgress reports every probe outcome to fn.
func WithProgress(fn func(probe.Outcome)) Option {
	return func(s *Supervisor) { s.progress = fn }
}

// WithReapStale sweeps the port before spawning when something already holds
// it, typically a sidecar left behind by a crashed shell.
func WithReapStale() Option {
	return func(s *Supervisor) { s.reapStale = true }
}

// WithPortCheck replaces the pre-spawn port availability check.
func WithPortCheck(fn func(int) bool) Option {
	return func(s *Supervisor) { s.portFree = fn }
}

// New creates a supervisor. Nothing runs until Run.
func New(svc Service, timing Timing, drv driver.Driver, sweeper Sweeper, shell window.Shell, opts ...Option) *Supervisor {
	s := &Supervisor{
		svc:      svc,
		timing:   timing,
		drv:      drv,
		sweeper:  sweeper,
		shell:    shell,
		logger:   slog.Default(),
		portFree: port.Available,
		state:    StateStarting,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.prober = probe.NewProber(svc.URL, timing.ProbeTimeout, s.logger)
	s.logger = s.logger.With("component", "supervisor", "service", svc.Name)
	return s
}

// State returns the current lifecycle state.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// setState moves to st unless shutdown has already taken over.
func (s *Supervisor) setState(st State) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateShuttingDown || s.state == StateTerminated {
		return false
	}
	s.state = st
	return true
}

// Run spawns the sidecar, waits for it to answer and hands the visible window
// over to it. It returns once the handoff is done or abandoned; the only
// error is a failed spawn. Shutdown cancels a Run in progress.
func (s *Supervisor) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return fmt.Errorf("supervisor for %s already started", s.svc.Name)
	}
	s.started = true
	s.cancel = cancel
	s.mu.Unlock()

	if s.shutdown.Load() {
		s.logger.Info("shutdown requested before start, not spawning")
		return nil
	}

	if !s.portFree(int(s.svc.Port)) {
		s.logger.Warn("service port already in use", "port", s.svc.Port)
		if s.reapStale {
			rep := s.sweeper.Sweep(ctx, s.svc.Port, TriggerStaleOwner)
			s.logger.Info("swept stale port owners", "signaled", len(rep.Signaled), "skipped", len(rep.Skipped))
		}
	}

	if s.shutdown.Load() {
		s.logger.Info("shutdown requested before spawn, not spawning")
		return nil
	}

	if err := s.drv.Start(ctx); err != nil {
		// A close during startup cancels ctx; that is shutdown, not a spawn failure.
		if s.shutdown.Load() || errors.Is(err, context.Canceled) {
			s.logger.Info("spawn abandoned by shutdown", "error", err)
			return nil
		}
		return fmt.Errorf("spawning %s: %w", s.svc.Name, err)
	}
	info := s.drv.Info()
	s.logger.Info("sidecar started", "pid", info.PID)
	go s.watch()

	if !s.setState(StateProbing) {
		return nil
	}

	out, err := s.prober.Wait(ctx, s.timing.MaxAttempts, s.timing.ProbeInterval, s.progress)
	if err != nil {
		s.logger.Info("readiness probe abandoned", "attempt", out.Attempt)
		return nil
	}
	if !out.Ready() {
		s.logger.Warn("handing off to a service that never answered", "url", s.svc.URL)
	}

	s.handoffTo(ctx)
	return nil
}

// watch logs the child's exit. The child is never restarted.
func (s *Supervisor) watch() {
	code, err := s.drv.Wait()
	if s.shutdown.Load() {
		s.logger.Debug("sidecar exited during shutdown", "exit_code", code)
		return
	}
	if err != nil {
		s.logger.Error("sidecar exited", "exit_code", code, "error", err, "last_output", s.drv.LogLines(5))
		return
	}
	s.logger.Warn("sidecar exited", "exit_code", code)
}

// handoffTo swaps the splash screen for the main window, at most once.
// Navigation always precedes hide/show so the main window never shows blank.
func (s *Supervisor) handoffTo(ctx context.Context) {
	s.handoff.Do(func() {
		if !sleep(ctx, s.timing.SettleDelay) {
			return
		}

		main, err := s.shell.Window(window.MainLabel)
		if err != nil {
			s.logger.Error("handoff failed", "error", err)
			return
		}
		splash, err := s.shell.Window(window.SplashLabel)
		if err != nil {
			s.logger.Error("handoff failed", "error", err)
			return
		}

		if err := main.Navigate(s.svc.URL); err != nil {
			s.logger.Error("navigating main window", "url", s.svc.URL, "error", err)
		}

		if !sleep(ctx, s.timing.LoadDelay) {
			return
		}

		if err := splash.Hide(); err != nil {
			s.logger.Error("hiding splash screen", "error", err)
		}
		if err := main.Show(); err != nil {
			s.logger.Error("showing main window", "error", err)
		}

		if s.setState(StateHandoffComplete) {
			s.logger.Info("handoff complete", "url", s.svc.URL)
		}
	})
}

// HandleEvent reacts to a window event. Closing the splash screen or
// destroying the main window shuts the shell down; anything else is ignored.
// It reports whether the event started the shutdown.
func (s *Supervisor) HandleEvent(ev window.Event) bool {
	switch {
	case ev.Window == window.SplashLabel && ev.Kind == window.CloseRequested:
		return s.Shutdown(TriggerSplashClosed)
	case ev.Window == window.MainLabel && ev.Kind == window.Destroyed:
		return s.Shutdown(TriggerMainDestroyed)
	default:
		s.logger.Debug("ignoring window event", "event", ev)
		return false
	}
}

// Dispatch feeds shell events to HandleEvent until ctx is done or the event
// channel closes.
func (s *Supervisor) Dispatch(ctx context.Context) {
	events := s.shell.Events()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			s.HandleEvent(ev)
		case <-ctx.Done():
			return
		}
	}
}

// Shutdown abandons startup, sweeps the service port once and exits the
// process with code 0. Only the first call does anything; it reports
// whether this call was that one. Sweep failures never prevent the exit.
func (s *Supervisor) Shutdown(trigger string) bool {
	if !s.shutdown.CompareAndSwap(false, true) {
		s.logger.Debug("shutdown already in progress", "trigger", trigger)
		return false
	}

	s.mu.Lock()
	s.state = StateShuttingDown
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}

	s.logger.Info("shutting down", "trigger", trigger)

	rep := s.sweeper.Sweep(context.Background(), s.svc.Port, trigger)
	if rep.Err == nil {
		s.logger.Info("sweep complete",
			"signaled", len(rep.Signaled),
			"failed", len(rep.Failed),
			"skipped", len(rep.Skipped),
		)
	}

	s.mu.Lock()
	s.state = StateTerminated
	s.mu.Unlock()

	s.shell.Exit(0)
	return true
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
