package driver

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/benaskins/scoreshell/internal/logbuf"
)

// NativeDriver runs the sidecar as a fork/exec child in its own process group.
type NativeDriver struct {
	command    string
	args       []string
	env        []string
	workingDir string

	mu        sync.Mutex
	cmd       *exec.Cmd
	state     State
	startedAt time.Time
	exitCode  int
	exitErr   string
	buf       *logbuf.Ring
	done      chan struct{}
}

// NativeConfig holds configuration for the sidecar process.
type NativeConfig struct {
	Command    string   // absolute path or name resolvable via PATH
	Args       []string
	Env        []string // nil inherits the shell's environment
	WorkingDir string
	Output     *logbuf.Ring // optional; a 1000-line ring is created when nil
}

// NewNative creates a driver for the given sidecar command.
func NewNative(cfg NativeConfig) *NativeDriver {
	buf := cfg.Output
	if buf == nil {
		buf = logbuf.New(1000)
	}

	return &NativeDriver{
		command:    cfg.Command,
		args:       cfg.Args,
		env:        cfg.Env,
		workingDir: cfg.WorkingDir,
		state:      StateStopped,
		buf:        buf,
	}
}

// Start spawns the sidecar. The child is not tied to ctx: it must outlive
// the startup sequence and is only ever terminated by the port reaper.
func (d *NativeDriver) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state == StateRunning || d.state == StateStarting {
		return fmt.Errorf("process already running")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	d.cmd = exec.Command(d.command, d.args...)
	d.cmd.Env = d.env
	if d.workingDir != "" {
		d.cmd.Dir = d.workingDir
	}
	d.cmd.Stdout = d.buf
	d.cmd.Stderr = d.buf

	// Own process group so terminal signals aimed at the shell don't reach it
	d.cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	d.state = StateStarting

	if err := d.cmd.Start(); err != nil {
		d.state = StateFailed
		d.exitErr = err.Error()
		return fmt.Errorf("starting sidecar %s: %w", d.command, err)
	}

	d.state = StateRunning
	d.startedAt = time.Now()
	d.done = make(chan struct{})

	go d.reap()

	return nil
}

func (d *NativeDriver) reap() {
	err := d.cmd.Wait()

	d.mu.Lock()
	defer d.mu.Unlock()

	d.state = StateExited
	if err != nil {
		d.state = StateFailed
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			d.exitCode = exitErr.ExitCode()
		}
		d.exitErr = err.Error()
	} else {
		d.exitCode = 0
	}

	close(d.done)
}

func (d *NativeDriver) Info() ProcessInfo {
	d.mu.Lock()
	defer d.mu.Unlock()

	info := ProcessInfo{
		State:     d.state,
		StartedAt: d.startedAt,
		ExitCode:  d.exitCode,
		Error:     d.exitErr,
	}

	if d.cmd != nil && d.cmd.Process != nil {
		info.PID = d.cmd.Process.Pid
	}

	return info
}

func (d *NativeDriver) Wait() (int, error) {
	d.mu.Lock()
	done := d.done
	d.mu.Unlock()
	if done == nil {
		return -1, fmt.Errorf("process not started")
	}
	<-done

	d.mu.Lock()
	defer d.mu.Unlock()
	return d.exitCode, nil
}

func (d *NativeDriver) LogLines(n int) []string {
	return d.buf.Last(n)
}
