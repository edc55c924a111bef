package reaper

import "strings"

// DefaultMatch lists the names the bundled service shows up under: the
// sidecar binary, its Python entry point and the Streamlit server it execs.
var DefaultMatch = []string{"st_score_analyzer", "entrypoint", "streamlit"}

// Policy decides which port owners get signaled.
type Policy struct {
	Match  []string // case-sensitive substrings; a name must contain one
	Signal Signal
}

// DefaultPolicy force-kills anything whose name contains one of DefaultMatch.
func DefaultPolicy() Policy {
	return Policy{
		Match:  append([]string(nil), DefaultMatch...),
		Signal: SIGKILL,
	}
}

// Matches reports whether name contains at least one policy substring.
// An empty substring never matches, so a blank entry can't widen the sweep
// to every process on the port.
func (p Policy) Matches(name string) bool {
	for _, m := range p.Match {
		if m != "" && strings.Contains(name, m) {
			return true
		}
	}
	return false
}
