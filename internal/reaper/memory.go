package reaper

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
)

// MemoryFinder is an in-memory Finder for testing. Killables are registered
// per port and every delivered signal is recorded.
type MemoryFinder struct {
	mu     sync.Mutex
	owners map[uint16][]*MemoryKillable
	err    error
	calls  int
}

// NewMemoryFinder creates an empty in-memory finder.
func NewMemoryFinder() *MemoryFinder {
	return &MemoryFinder{owners: make(map[uint16][]*MemoryKillable)}
}

// Bind registers a process named name with the given pid as an owner of port.
func (f *MemoryFinder) Bind(port uint16, pid int, name string) *MemoryKillable {
	k := &MemoryKillable{id: strconv.Itoa(pid), name: name, kind: KindProcess}
	f.mu.Lock()
	f.owners[port] = append(f.owners[port], k)
	f.mu.Unlock()
	return k
}

// BindContainer registers a container as an owner of port.
func (f *MemoryFinder) BindContainer(port uint16, id, name string) *MemoryKillable {
	k := &MemoryKillable{id: id, name: name, kind: KindContainer}
	f.mu.Lock()
	f.owners[port] = append(f.owners[port], k)
	f.mu.Unlock()
	return k
}

// FailWith makes every FindKillables call return err.
func (f *MemoryFinder) FailWith(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

// Calls returns how many times FindKillables ran.
func (f *MemoryFinder) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *MemoryFinder) FindKillables(ctx context.Context, port uint16, mode Mode) ([]Killable, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	if f.err != nil {
		return nil, f.err
	}

	var out []Killable
	for _, k := range f.owners[port] {
		if (k.kind == KindProcess && !mode.includesProcesses()) ||
			(k.kind == KindContainer && !mode.includesContainers()) {
			continue
		}
		out = append(out, k)
	}
	return out, nil
}

// MemoryKillable is a fake port owner.
type MemoryKillable struct {
	mu      sync.Mutex
	id      string
	name    string
	kind    Kind
	signals []Signal
	killErr error
}

func (k *MemoryKillable) Name() string { return k.name }
func (k *MemoryKillable) ID() string   { return k.id }
func (k *MemoryKillable) Kind() Kind   { return k.kind }

// FailKill makes Kill return err without recording the signal.
func (k *MemoryKillable) FailKill(err error) {
	k.mu.Lock()
	k.killErr = err
	k.mu.Unlock()
}

func (k *MemoryKillable) Kill(sig Signal) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.killErr != nil {
		return fmt.Errorf("kill %s: %w", k.id, k.killErr)
	}
	k.signals = append(k.signals, sig)
	return nil
}

// Signals returns the signals delivered so far.
func (k *MemoryKillable) Signals() []Signal {
	k.mu.Lock()
	defer k.mu.Unlock()
	return append([]Signal(nil), k.signals...)
}

// Signaled returns the IDs of every killable on port that received a signal,
// sorted.
func (f *MemoryFinder) Signaled(port uint16) []string {
	f.mu.Lock()
	owners := append([]*MemoryKillable(nil), f.owners[port]...)
	f.mu.Unlock()

	var ids []string
	for _, k := range owners {
		if len(k.Signals()) > 0 {
			ids = append(ids, k.id)
		}
	}
	sort.Strings(ids)
	return ids
}
