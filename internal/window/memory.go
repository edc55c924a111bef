package window

import (
	"sync"
)

// Memory is an in-memory Shell for testing. Every window operation is
// recorded in order as "label.op" (navigations as "label.navigate url").
type Memory struct {
	mu      sync.Mutex
	ops     []string
	exits   []int
	events  chan Event
	windows map[string]*memoryWindow
	exited  chan struct{}
	once    sync.Once
}

// NewMemory creates a shell with the splash and main windows.
func NewMemory() *Memory {
	m := &Memory{
		events: make(chan Event, 16),
		exited: make(chan struct{}),
	}
	m.windows = map[string]*memoryWindow{
		SplashLabel: {shell: m, label: SplashLabel},
		MainLabel:   {shell: m, label: MainLabel},
	}
	return m
}

func (m *Memory) Window(label string) (Window, error) {
	w, ok := m.windows[label]
	if !ok {
		return nil, unknown(label)
	}
	return w, nil
}

func (m *Memory) Events() <-chan Event { return m.events }

// Send queues an event as if the user had raised it.
func (m *Memory) Send(ev Event) { m.events <- ev }

func (m *Memory) Exit(code int) {
	m.mu.Lock()
	m.exits = append(m.exits, code)
	m.mu.Unlock()
	m.once.Do(func() { close(m.exited) })
}

// Exited is closed on the first Exit call.
func (m *Memory) Exited() <-chan struct{} { return m.exited }

// Exits returns every code passed to Exit.
func (m *Memory) Exits() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.exits...)
}

// Ops returns the recorded window operations.
func (m *Memory) Ops() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.ops...)
}

func (m *Memory) record(op string) {
	m.mu.Lock()
	m.ops = append(m.ops, op)
	m.mu.Unlock()
}

type memoryWindow struct {
	shell *Memory
	label string
}

func (w *memoryWindow) Label() string { return w.label }

func (w *memoryWindow) Show() error {
	w.shell.record(w.label + ".show")
	return nil
}

func (w *memoryWindow) Hide() error {
	w.shell.record(w.label + ".hide")
	return nil
}

func (w *memoryWindow) Navigate(url string) error {
	w.shell.record(w.label + ".navigate " + url)
	return nil
}
