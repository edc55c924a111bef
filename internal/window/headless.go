package window

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
)

// Headless is a Shell without a screen. Window changes are logged, showing
// the main window opens its URL in the system browser, and SIGINT/SIGTERM
// stand in for the user closing the visible window.
type Headless struct {
	mu      sync.Mutex
	windows map[string]*headlessWindow
	events  chan Event
	open    func(url string) error
	exit    func(code int)
	logger  *slog.Logger
}

// HeadlessOption configures a Headless shell.
type HeadlessOption func(*Headless)

// WithOpener replaces the browser launcher.
func WithOpener(fn func(url string) error) HeadlessOption {
	return func(h *Headless) { h.open = fn }
}

// WithExit replaces os.Exit.
func WithExit(fn func(code int)) HeadlessOption {
	return func(h *Headless) { h.exit = fn }
}

// NewHeadless creates a shell with a visible splash window and a hidden main
// window.
func NewHeadless(logger *slog.Logger, opts ...HeadlessOption) *Headless {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Headless{
		events: make(chan Event, 4),
		open:   OpenBrowser,
		exit:   os.Exit,
		logger: logger.With("component", "window"),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.windows = map[string]*headlessWindow{
		SplashLabel: {shell: h, label: SplashLabel, visible: true},
		MainLabel:   {shell: h, label: MainLabel},
	}
	return h
}

func (h *Headless) Window(label string) (Window, error) {
	w, ok := h.windows[label]
	if !ok {
		return nil, unknown(label)
	}
	return w, nil
}

func (h *Headless) Events() <-chan Event { return h.events }

func (h *Headless) Exit(code int) {
	h.logger.Info("exiting", "code", code)
	h.exit(code)
}

// Close raises the event a user closing the frontmost window would: a close
// request on the splash screen until main is visible, destruction of main
// afterwards. It never blocks; a full queue drops the event.
func (h *Headless) Close() {
	h.mu.Lock()
	ev := Event{Window: SplashLabel, Kind: CloseRequested}
	if h.windows[MainLabel].visible {
		ev = Event{Window: MainLabel, Kind: Destroyed}
	}
	h.mu.Unlock()

	select {
	case h.events <- ev:
	default:
		h.logger.Warn("dropping window event, queue full", "event", ev)
	}
}

// Listen translates SIGINT and SIGTERM into Close until ctx is done.
func (h *Headless) Listen(ctx context.Context) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigCh)
		for {
			select {
			case sig := <-sigCh:
				h.logger.Info("received signal", "signal", sig)
				h.Close()
			case <-ctx.Done():
				return
			}
		}
	}()
}

type headlessWindow struct {
	shell   *Headless
	label   string
	visible bool
	url     string
}

func (w *headlessWindow) Label() string { return w.label }

func (w *headlessWindow) Show() error {
	w.shell.mu.Lock()
	w.visible = true
	url := w.url
	w.shell.mu.Unlock()

	w.shell.logger.Info("showing window", "window", w.label)
	if url == "" {
		return nil
	}
	if err := w.shell.open(url); err != nil {
		return fmt.Errorf("opening %s: %w", url, err)
	}
	return nil
}

func (w *headlessWindow) Hide() error {
	w.shell.mu.Lock()
	w.visible = false
	w.shell.mu.Unlock()

	w.shell.logger.Info("hiding window", "window", w.label)
	return nil
}

func (w *headlessWindow) Navigate(url string) error {
	w.shell.mu.Lock()
	w.url = url
	w.shell.mu.Unlock()

	w.shell.logger.Info("navigating window", "window", w.label, "url", url)
	return nil
}

// OpenBrowser opens url with the platform's default handler.
func OpenBrowser(url string) error {
	name := "xdg-open"
	if runtime.GOOS == "darwin" {
		name = "open"
	}
	cmd := exec.Command(name, url)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting %s: %w", name, err)
	}
	go cmd.Wait()
	return nil
}
