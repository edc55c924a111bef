package logbuf

import (
	"bytes"
	"strings"
	"sync"
)

// Ring keeps the last N lines written by the sidecar. It implements io.Writer
// so it can be attached directly to a child's stdout and stderr.
type Ring struct {
	mu      sync.Mutex
	lines   []string
	size    int
	pos     int
	full    bool
	partial bytes.Buffer
	onLine  func(string)
}

// New creates a ring buffer that stores the last n lines.
func New(n int) *Ring {
	if n <= 0 {
		n = 1
	}
	return &Ring{
		lines: make([]string, n),
		size:  n,
	}
}

// OnLine registers fn to be called with every complete line. fn runs with the
// ring unlocked and must not block.
func (r *Ring) OnLine(fn func(string)) {
	r.mu.Lock()
	r.onLine = fn
	r.mu.Unlock()
}

// Write splits p on newlines and stores each complete line. A trailing
// fragment is held until its newline arrives.
func (r *Ring) Write(p []byte) (int, error) {
	r.mu.Lock()
	r.partial.Write(p)

	var complete []string
	for {
		line, err := r.partial.ReadString('\n')
		if err != nil {
			r.partial.Reset()
			r.partial.WriteString(line)
			break
		}
		line = strings.TrimRight(line, "\r\n")
		r.addLine(line)
		complete = append(complete, line)
	}
	fn := r.onLine
	r.mu.Unlock()

	if fn != nil {
		for _, line := range complete {
			fn(line)
		}
	}
	return len(p), nil
}

func (r *Ring) addLine(line string) {
	r.lines[r.pos] = line
	r.pos = (r.pos + 1) % r.size
	if r.pos == 0 {
		r.full = true
	}
}

// Lines returns all stored lines, oldest first.
func (r *Ring) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.full {
		result := make([]string, r.pos)
		copy(result, r.lines[:r.pos])
		return result
	}

	result := make([]string, r.size)
	copy(result, r.lines[r.pos:])
	copy(result[r.size-r.pos:], r.lines[:r.pos])
	return result
}

// Last returns the last n lines. If fewer lines exist, returns all of them.
func (r *Ring) Last(n int) []string {
	all := r.Lines()
	if n >= len(all) {
		return all
	}
	return all[len(all)-n:]
}

// LastLine returns the most recent complete line, or "" if none was written.
func (r *Ring) LastLine() string {
	last := r.Last(1)
	if len(last) == 0 {
		return ""
	}
	return last[0]
}
