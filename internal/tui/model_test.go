package tui

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/benaskins/scoreshell/internal/probe"
	"github.com/benaskins/scoreshell/internal/window"
	tea "github.com/charmbracelet/bubbletea"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestQuitOnSplashRequestsClose(t *testing.T) {
	var raised []window.Event
	m := newModel("st_score_analyzer", &screen{splashVisible: true}, func(ev window.Event) {
		raised = append(raised, ev)
	})

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd != nil {
		t.Error("quitting must be left to the supervisor")
	}
	if len(raised) != 1 || raised[0] != (window.Event{Window: window.SplashLabel, Kind: window.CloseRequested}) {
		t.Errorf("raised = %v", raised)
	}
}

func TestCtrlCOnMainDestroysMain(t *testing.T) {
	var raised []window.Event
	m := newModel("st_score_analyzer", &screen{mainVisible: true}, func(ev window.Event) {
		raised = append(raised, ev)
	})

	m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if len(raised) != 1 || raised[0] != (window.Event{Window: window.MainLabel, Kind: window.Destroyed}) {
		t.Errorf("raised = %v", raised)
	}
}

func TestOtherKeysIgnored(t *testing.T) {
	m := newModel("svc", &screen{splashVisible: true}, func(ev window.Event) {
		t.Errorf("unexpected event %v", ev)
	})
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
}

func TestSplashViewShowsProgress(t *testing.T) {
	scr := &screen{splashVisible: true}
	m := newModel("st_score_analyzer", scr, func(window.Event) {})

	if v := m.View(); !strings.Contains(v, "Starting st_score_analyzer") || !strings.Contains(v, "launching") {
		t.Errorf("initial view = %q", v)
	}

	scr.outcome = probe.Outcome{Status: probe.StatusPending, Attempt: 3, Max: 60}
	scr.probed = true
	scr.lastLine = "You can now view your Streamlit app in your browser."
	v := m.View()
	if !strings.Contains(v, "pending (3/60)") {
		t.Errorf("view missing progress: %q", v)
	}
	if !strings.Contains(v, "Streamlit app") {
		t.Errorf("view missing last output line: %q", v)
	}
}

func TestMainViewShowsURL(t *testing.T) {
	scr := &screen{mainVisible: true, url: "http://localhost:8501"}
	m := newModel("st_score_analyzer", scr, func(window.Event) {})
	if v := m.View(); !strings.Contains(v, "http://localhost:8501") {
		t.Errorf("main view = %q", v)
	}
}

func TestShellWindowsDriveScreen(t *testing.T) {
	var opened []string
	s := New("st_score_analyzer", quietLogger(), WithOpener(func(url string) error {
		opened = append(opened, url)
		return nil
	}))

	if _, err := s.Window("settings"); !errors.Is(err, window.ErrUnknownWindow) {
		t.Fatalf("expected ErrUnknownWindow, got %v", err)
	}

	main, _ := s.Window(window.MainLabel)
	splash, _ := s.Window(window.SplashLabel)

	if ev := s.CloseEvent(); ev.Window != window.SplashLabel {
		t.Errorf("close before handoff = %v", ev)
	}

	main.Navigate("http://localhost:8501")
	splash.Hide()
	main.Show()

	if len(opened) != 1 || opened[0] != "http://localhost:8501" {
		t.Errorf("opened = %v", opened)
	}
	if ev := s.CloseEvent(); ev != (window.Event{Window: window.MainLabel, Kind: window.Destroyed}) {
		t.Errorf("close after handoff = %v", ev)
	}
}

func TestShellRaiseNeverBlocks(t *testing.T) {
	s := New("svc", quietLogger())
	for i := 0; i < 10; i++ {
		s.raise(window.Event{Window: window.SplashLabel, Kind: window.CloseRequested})
	}
	if got := len(s.Events()); got != cap(s.events) {
		t.Errorf("queued %d, want %d", got, cap(s.events))
	}
}

func TestQuitEndsRunWithoutExiting(t *testing.T) {
	t.Setenv("NO_ALT_SCREEN", "1")
	var codes []int
	s := New("svc", quietLogger(),
		WithExit(func(code int) { codes = append(codes, code) }),
		WithProgramOptions(tea.WithInput(nil), tea.WithOutput(io.Discard)),
	)

	done := make(chan error, 1)
	go func() { done <- s.Run() }()
	s.Quit()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after Quit")
	}
	if len(codes) != 0 {
		t.Errorf("exit called with %v", codes)
	}
}
