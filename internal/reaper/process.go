package reaper

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"syscall"

	psnet "github.com/shirou/gopsutil/v4/net"
	"github.com/shirou/gopsutil/v4/process"
)

// processSource enumerates host processes holding a socket on a local port.
type processSource struct {
	selfPID int32 // never returned; the shell must not kill itself
}

func newProcessSource() *processSource {
	return &processSource{selfPID: int32(os.Getpid())}
}

func (s *processSource) find(ctx context.Context, port uint16) ([]Killable, error) {
	conns, err := psnet.ConnectionsWithContext(ctx, "inet")
	if err != nil {
		return nil, fmt.Errorf("listing sockets: %w", err)
	}

	seen := make(map[int32]bool)
	var pids []int32
	for _, c := range conns {
		if c.Laddr.Port != uint32(port) || c.Pid <= 0 || c.Pid == s.selfPID {
			continue
		}
		if seen[c.Pid] {
			continue
		}
		seen[c.Pid] = true
		pids = append(pids, c.Pid)
	}
	sort.Slice(pids, func(i, j int) bool { return pids[i] < pids[j] })

	killables := make([]Killable, 0, len(pids))
	for _, pid := range pids {
		k, err := newProcessKillable(ctx, pid)
		if err != nil {
			// Exited between the socket scan and now
			continue
		}
		killables = append(killables, k)
	}
	return killables, nil
}

// identify reads the name and start time of pid from a fresh handle.
// gopsutil caches both on a Process, so a handle can't be reused to notice
// that the PID changed hands or exec'd.
func identify(ctx context.Context, pid int32) (*process.Process, string, int64, error) {
	p, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return nil, "", 0, err
	}
	name, err := p.NameWithContext(ctx)
	if err != nil {
		return nil, "", 0, err
	}
	created, err := p.CreateTimeWithContext(ctx)
	if err != nil {
		return nil, "", 0, err
	}
	return p, name, created, nil
}

func newProcessKillable(ctx context.Context, pid int32) (*processKillable, error) {
	_, name, created, err := identify(ctx, pid)
	if err != nil {
		return nil, err
	}
	return &processKillable{pid: pid, name: name, created: created}, nil
}

// processKillable is a host process bound to the port, identified by PID,
// name and start time as seen at enumeration.
type processKillable struct {
	pid     int32
	name    string
	created int64 // ms since epoch
}

func (k *processKillable) Name() string { return k.name }
func (k *processKillable) ID() string   { return strconv.Itoa(int(k.pid)) }
func (k *processKillable) Kind() Kind   { return KindProcess }

// Kill looks the PID up again first. If it now belongs to a different
// process (new start time) or the process exec'd something else (new name),
// nothing is signaled.
func (k *processKillable) Kill(sig Signal) error {
	ctx := context.Background()
	proc, name, created, err := identify(ctx, k.pid)
	if err != nil {
		return fmt.Errorf("process %d gone: %w", k.pid, err)
	}
	if created != k.created {
		return fmt.Errorf("process %d was restarted since enumeration (%q)", k.pid, name)
	}
	if name != k.name {
		return fmt.Errorf("process %d is now %q, expected %q", k.pid, name, k.name)
	}
	if err := proc.SendSignalWithContext(ctx, syscall.Signal(sig)); err != nil {
		return fmt.Errorf("sending %s to %d: %w", sig, k.pid, err)
	}
	return nil
}
