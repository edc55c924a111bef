package tui

import (
	"fmt"
	"strings"
	"sync"

	"github.com/benaskins/scoreshell/internal/probe"
	"github.com/benaskins/scoreshell/internal/window"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// screen is the state the window handles and the supervisor write to and the
// model renders. Writers never block on the UI loop.
type screen struct {
	mu            sync.Mutex
	splashVisible bool
	mainVisible   bool
	url           string
	outcome       probe.Outcome
	probed        bool
	lastLine      string
}

// closeEvent is what quitting raises given what is currently on screen.
func (s *screen) closeEvent() window.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mainVisible {
		return window.Event{Window: window.MainLabel, Kind: window.Destroyed}
	}
	return window.Event{Window: window.SplashLabel, Kind: window.CloseRequested}
}

type model struct {
	name    string
	screen  *screen
	spinner spinner.Model
	raise   func(window.Event)
	width   int
}

func newModel(name string, scr *screen, raise func(window.Event)) model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(colorPrimary)
	return model{name: name, screen: scr, spinner: sp, raise: raise}
}

func (m model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			// The supervisor decides when to quit; it sweeps the port first.
			m.raise(m.screen.closeEvent())
		}
		return m, nil
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m model) View() string {
	m.screen.mu.Lock()
	defer m.screen.mu.Unlock()

	switch {
	case m.screen.mainVisible:
		return m.mainView()
	case m.screen.splashVisible:
		return m.splashView()
	default:
		return ""
	}
}

func (m model) splashView() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n\n", m.spinner.View(), titleStyle.Render("Starting "+m.name))

	status := "launching"
	if m.screen.probed {
		switch m.screen.outcome.Status {
		case probe.StatusTimeout:
			status = timeoutStyle.Render(m.screen.outcome.String())
		case probe.StatusReady:
			status = readyStyle.Render("ready")
		default:
			status = "waiting for server " + m.screen.outcome.String()
		}
	}
	b.WriteString(statusStyle.Render(status))
	b.WriteString("\n")

	if line := m.screen.lastLine; line != "" {
		if m.width > 8 && len(line) > m.width-4 {
			line = line[:m.width-7] + "..."
		}
		b.WriteString(outputStyle.Render(line))
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render("q to cancel"))
	return b.String()
}

func (m model) mainView() string {
	body := fmt.Sprintf("%s %s\n\n%s\n%s",
		readyStyle.Render("●"),
		titleStyle.Render(m.name+" is running"),
		m.screen.url,
		outputStyle.UnsetMarginLeft().Render("opened in your browser"),
	)
	return boxStyle.Render(body) + "\n" + helpStyle.Render("q to quit and stop the server")
}
