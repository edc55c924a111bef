// Package config holds the shell's tunables. The compiled-in defaults are the
// source of truth; a YAML file can override individual fields.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/benaskins/scoreshell/internal/port"
	"github.com/benaskins/scoreshell/internal/reaper"
	"gopkg.in/yaml.v3"
)

// Config is the complete shell configuration.
type Config struct {
	Sidecar     Sidecar     `yaml:"sidecar"`
	Probe       Probe       `yaml:"probe"`
	Handoff     Handoff     `yaml:"handoff"`
	Termination Termination `yaml:"termination"`

	// ReapStale sweeps the port with the termination policy before spawning
	// when a previous instance still holds it.
	ReapStale bool `yaml:"reap_stale,omitempty"`
	// Journal is the sweep journal path; empty disables it. Defaults to
	// ~/.scoreshell/sweeps.log.
	Journal string `yaml:"journal,omitempty"`
}

// Sidecar describes the bundled web service.
type Sidecar struct {
	Name       string            `yaml:"name"` // executable name or absolute path
	Args       []string          `yaml:"args,omitempty"`
	Env        map[string]string `yaml:"env,omitempty"`
	WorkingDir string            `yaml:"working_dir,omitempty"`
	URL        string            `yaml:"url"`
}

// Probe controls readiness polling.
type Probe struct {
	Interval    Duration `yaml:"interval"`
	MaxAttempts int      `yaml:"max_attempts"`
	Timeout     Duration `yaml:"timeout"` // per request
}

// Handoff controls the splash-to-main transition.
type Handoff struct {
	SettleDelay Duration `yaml:"settle_delay"` // before navigating main
	LoadDelay   Duration `yaml:"load_delay"`   // between navigating and hide/show
}

// Termination is the shutdown sweep policy.
type Termination struct {
	Signal string   `yaml:"signal"`
	Mode   string   `yaml:"mode"`
	Match  []string `yaml:"match"`
}

// Duration wraps time.Duration for YAML unmarshaling from strings like "500ms".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return d.Duration.String(), nil
}

// Default returns the compiled-in configuration: the st_score_analyzer
// sidecar on localhost:8501, 60 probes 500ms apart, force-kill on shutdown.
func Default() *Config {
	return &Config{
		Sidecar: Sidecar{
			Name: "st_score_analyzer",
			URL:  "http://localhost:8501",
		},
		Probe: Probe{
			Interval:    Duration{500 * time.Millisecond},
			MaxAttempts: 60,
			Timeout:     Duration{2 * time.Second},
		},
		Handoff: Handoff{
			SettleDelay: Duration{500 * time.Millisecond},
			LoadDelay:   Duration{250 * time.Millisecond},
		},
		Termination: Termination{
			Signal: "SIGKILL",
			Mode:   string(reaper.ModeAuto),
			Match:  append([]string(nil), reaper.DefaultMatch...),
		},
		Journal: DefaultJournalPath(),
	}
}

// DefaultJournalPath returns ~/.scoreshell/sweeps.log.
func DefaultJournalPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".scoreshell", "sweeps.log")
}

// Load reads a YAML file and overlays it on Default. Fields absent from the
// file keep their default. The result is validated.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config %s: %w", path, err)
	}
	return cfg, nil
}

// Port returns the service port taken from the sidecar URL.
func (c *Config) Port() (uint16, error) {
	p, err := port.FromURL(c.Sidecar.URL)
	if err != nil {
		return 0, err
	}
	return uint16(p), nil
}

// Policy builds the termination policy.
func (c *Config) Policy() (reaper.Policy, error) {
	sig, err := reaper.ParseSignal(c.Termination.Signal)
	if err != nil {
		return reaper.Policy{}, fmt.Errorf("termination.signal: %w", err)
	}
	return reaper.Policy{
		Match:  append([]string(nil), c.Termination.Match...),
		Signal: sig,
	}, nil
}

// Mode returns the parsed enumeration mode.
func (c *Config) Mode() (reaper.Mode, error) {
	m, err := reaper.ParseMode(c.Termination.Mode)
	if err != nil {
		return "", fmt.Errorf("termination.mode: %w", err)
	}
	return m, nil
}

// Environ returns the sidecar environment: the shell's own environment plus
// the configured overrides.
func (c *Config) Environ() []string {
	env := os.Environ()
	for k, v := range c.Sidecar.Env {
		env = append(env, k+"="+v)
	}
	return env
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	var errs []error

	if c.Sidecar.Name == "" {
		errs = append(errs, fmt.Errorf("sidecar.name is required"))
	}
	if _, err := c.Port(); err != nil {
		errs = append(errs, fmt.Errorf("sidecar.url: %w", err))
	}

	if c.Probe.MaxAttempts <= 0 {
		errs = append(errs, fmt.Errorf("probe.max_attempts must be positive"))
	}
	if c.Probe.Interval.Duration <= 0 {
		errs = append(errs, fmt.Errorf("probe.interval must be positive"))
	}
	if c.Probe.Timeout.Duration <= 0 {
		errs = append(errs, fmt.Errorf("probe.timeout must be positive"))
	}
	if c.Handoff.SettleDelay.Duration < 0 || c.Handoff.LoadDelay.Duration < 0 {
		errs = append(errs, fmt.Errorf("handoff delays must not be negative"))
	}

	if _, err := c.Policy(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Mode(); err != nil {
		errs = append(errs, err)
	}
	hasMatch := false
	for _, m := range c.Termination.Match {
		if m != "" {
			hasMatch = true
		}
	}
	if !hasMatch {
		errs = append(errs, fmt.Errorf("termination.match needs at least one non-empty name"))
	}

	return errors.Join(errs...)
}
