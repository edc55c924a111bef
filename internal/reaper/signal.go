package reaper

import (
	"fmt"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"
)

// Signal is an OS signal delivered to a Killable.
type Signal syscall.Signal

// SIGKILL is the default termination signal.
const SIGKILL = Signal(unix.SIGKILL)

// ParseSignal accepts SIGKILL, KILL, kill or a signal number such as 9.
func ParseSignal(s string) (Signal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrUnknownSignal)
	}

	if n, err := strconv.Atoi(s); err == nil {
		sig := syscall.Signal(n)
		if n <= 0 || unix.SignalName(sig) == "" {
			return 0, fmt.Errorf("%w %q", ErrUnknownSignal, s)
		}
		return Signal(sig), nil
	}

	name := strings.ToUpper(s)
	if !strings.HasPrefix(name, "SIG") {
		name = "SIG" + name
	}
	sig := unix.SignalNum(name)
	if sig == 0 {
		return 0, fmt.Errorf("%w %q", ErrUnknownSignal, s)
	}
	return Signal(sig), nil
}

// String returns the conventional name, e.g. "SIGKILL".
func (s Signal) String() string {
	if name := unix.SignalName(syscall.Signal(s)); name != "" {
		return name
	}
	return "signal " + strconv.Itoa(int(s))
}
