package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/benaskins/scoreshell/internal/reaper"
	"gopkg.in/yaml.v3"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault(t *testing.T) {
	t.Parallel()
	cfg := Default()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Sidecar.URL != "http://localhost:8501" {
		t.Errorf("URL = %q", cfg.Sidecar.URL)
	}
	if cfg.Probe.MaxAttempts != 60 {
		t.Errorf("MaxAttempts = %d, want 60", cfg.Probe.MaxAttempts)
	}
	if cfg.Probe.Interval.Duration != 500*time.Millisecond {
		t.Errorf("Interval = %v, want 500ms", cfg.Probe.Interval.Duration)
	}

	p, err := cfg.Port()
	if err != nil || p != 8501 {
		t.Errorf("Port() = %d, %v, want 8501", p, err)
	}

	pol, err := cfg.Policy()
	if err != nil {
		t.Fatal(err)
	}
	if pol.Signal != reaper.SIGKILL {
		t.Errorf("Signal = %v, want SIGKILL", pol.Signal)
	}
	want := []string{"st_score_analyzer", "entrypoint", "streamlit"}
	if !slices.Equal(pol.Match, want) {
		t.Errorf("Match = %v, want %v", pol.Match, want)
	}
}

func TestDefaultIsNotShared(t *testing.T) {
	t.Parallel()
	a := Default()
	a.Termination.Match[0] = "mutated"
	if Default().Termination.Match[0] != "st_score_analyzer" {
		t.Error("Default() shares its match slice")
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, `
sidecar:
  name: /opt/analyzer/bin/analyzer
  args: ["--headless"]
  env:
    STREAMLIT_SERVER_HEADLESS: "true"
probe:
  interval: 100ms
termination:
  mode: process
reap_stale: true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Sidecar.Name != "/opt/analyzer/bin/analyzer" {
		t.Errorf("Name = %q", cfg.Sidecar.Name)
	}
	if cfg.Probe.Interval.Duration != 100*time.Millisecond {
		t.Errorf("Interval = %v, want 100ms", cfg.Probe.Interval.Duration)
	}
	if cfg.Probe.MaxAttempts != 60 {
		t.Errorf("MaxAttempts = %d, default should survive", cfg.Probe.MaxAttempts)
	}
	if cfg.Sidecar.URL != "http://localhost:8501" {
		t.Errorf("URL = %q, default should survive", cfg.Sidecar.URL)
	}
	if !cfg.ReapStale {
		t.Error("ReapStale = false, want true")
	}
	m, err := cfg.Mode()
	if err != nil || m != reaper.ModeProcess {
		t.Errorf("Mode() = %q, %v", m, err)
	}

	found := false
	for _, kv := range cfg.Environ() {
		if kv == "STREAMLIT_SERVER_HEADLESS=true" {
			found = true
		}
	}
	if !found {
		t.Error("Environ() missing configured override")
	}
}

func TestLoadEmptyFile(t *testing.T) {
	t.Parallel()
	cfg, err := Load(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Sidecar.Name != "st_score_analyzer" {
		t.Errorf("Name = %q, want default", cfg.Sidecar.Name)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()
	if _, err := Load("/nonexistent/path/config.yaml"); err == nil {
		t.Fatal("expected error for explicitly named missing file")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	t.Parallel()
	if _, err := Load(writeConfig(t, "sidecar: [unterminated")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadInvalidDuration(t *testing.T) {
	t.Parallel()
	_, err := Load(writeConfig(t, "probe:\n  interval: soon\n"))
	if err == nil || !strings.Contains(err.Error(), "invalid duration") {
		t.Fatalf("expected invalid duration error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"no name", func(c *Config) { c.Sidecar.Name = "" }, "sidecar.name"},
		{"bad url", func(c *Config) { c.Sidecar.URL = "localhost" }, "sidecar.url"},
		{"zero attempts", func(c *Config) { c.Probe.MaxAttempts = 0 }, "max_attempts"},
		{"zero interval", func(c *Config) { c.Probe.Interval.Duration = 0 }, "probe.interval"},
		{"negative delay", func(c *Config) { c.Handoff.LoadDelay.Duration = -time.Second }, "handoff delays"},
		{"bad signal", func(c *Config) { c.Termination.Signal = "SIGNOPE" }, "termination.signal"},
		{"bad mode", func(c *Config) { c.Termination.Mode = "vm" }, "termination.mode"},
		{"empty match", func(c *Config) { c.Termination.Match = []string{""} }, "termination.match"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestDurationRoundTrip(t *testing.T) {
	t.Parallel()
	out, err := yaml.Marshal(Default().Handoff)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out), "settle_delay: 500ms") {
		t.Errorf("marshaled handoff = %q", out)
	}
}
