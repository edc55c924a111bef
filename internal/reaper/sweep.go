package reaper

import (
	"context"
	"log/slog"

	"github.com/benaskins/scoreshell/internal/audit"
	"github.com/google/uuid"
)

// Journal records sweep decisions. *audit.Logger satisfies it.
type Journal interface {
	Record(audit.Entry) error
}

// Target identifies a Killable in a Report.
type Target struct {
	Kind  Kind   `json:"kind"`
	ID    string `json:"id"`
	Name  string `json:"name"`
	Error string `json:"error,omitempty"`
}

// Report summarises one sweep.
type Report struct {
	SweepID  string   `json:"sweep_id"`
	Port     uint16   `json:"port"`
	Signaled []Target `json:"signaled"`
	Failed   []Target `json:"failed"`
	Skipped  []Target `json:"skipped"`
	Err      error    `json:"-"` // enumeration failure, nothing was signaled
}

// Reaper runs termination sweeps against a Finder.
type Reaper struct {
	finder  Finder
	policy  Policy
	mode    Mode
	journal Journal
	dryRun  bool
	logger  *slog.Logger
}

// Option configures a Reaper.
type Option func(*Reaper)

// WithMode sets the enumeration mode (default auto).
func WithMode(m Mode) Option {
	return func(r *Reaper) { r.mode = m }
}

// WithJournal records every sweep decision.
func WithJournal(j Journal) Option {
	return func(r *Reaper) { r.journal = j }
}

// WithDryRun reports what would be signaled without delivering anything.
func WithDryRun() Option {
	return func(r *Reaper) { r.dryRun = true }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Reaper) { r.logger = l }
}

// New creates a Reaper enforcing policy.
func New(finder Finder, policy Policy, opts ...Option) *Reaper {
	r := &Reaper{
		finder: finder,
		policy: policy,
		mode:   ModeAuto,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "reaper")
	return r
}

// Policy returns the policy the reaper enforces.
func (r *Reaper) Policy() Policy { return r.policy }

// Sweep enumerates the owners of port and signals those matching the policy.
// It is best effort: an enumeration failure is logged and returned in the
// report, a delivery failure for one candidate doesn't stop the others.
// trigger is recorded in the journal to explain why the sweep ran.
func (r *Reaper) Sweep(ctx context.Context, port uint16, trigger string) Report {
	rep := Report{SweepID: uuid.NewString(), Port: port}
	logger := r.logger.With("sweep_id", rep.SweepID, "port", port)

	killables, err := r.finder.FindKillables(ctx, port, r.mode)
	if err != nil {
		logger.Error("finding processes bound to port", "error", err)
		r.record(audit.Entry{
			SweepID: rep.SweepID,
			Action:  audit.ActionEnumerationFailed,
			Port:    port,
			Trigger: trigger,
			Error:   err.Error(),
		})
		rep.Err = err
		return rep
	}

	logger.Info("sweeping port", "candidates", len(killables), "mode", r.mode, "trigger", trigger)

	for _, k := range killables {
		target := Target{Kind: k.Kind(), ID: k.ID(), Name: k.Name()}
		entry := audit.Entry{
			SweepID: rep.SweepID,
			Port:    port,
			Trigger: trigger,
			Kind:    string(target.Kind),
			ID:      target.ID,
			Name:    target.Name,
		}

		if !r.policy.Matches(target.Name) {
			logger.Info("skipping process not matching policy", "kind", target.Kind, "id", target.ID, "name", target.Name)
			entry.Action = audit.ActionSkipped
			r.record(entry)
			rep.Skipped = append(rep.Skipped, target)
			continue
		}

		entry.Signal = r.policy.Signal.String()
		if r.dryRun {
			logger.Info("would signal process", "kind", target.Kind, "id", target.ID, "name", target.Name, "signal", entry.Signal)
			rep.Signaled = append(rep.Signaled, target)
			continue
		}

		if err := k.Kill(r.policy.Signal); err != nil {
			logger.Error("signaling process", "kind", target.Kind, "id", target.ID, "name", target.Name, "error", err)
			target.Error = err.Error()
			entry.Action = audit.ActionSignalFailed
			entry.Error = err.Error()
			r.record(entry)
			rep.Failed = append(rep.Failed, target)
			continue
		}

		logger.Info("signaled process", "kind", target.Kind, "id", target.ID, "name", target.Name, "signal", entry.Signal)
		entry.Action = audit.ActionSignaled
		r.record(entry)
		rep.Signaled = append(rep.Signaled, target)
	}

	return rep
}

func (r *Reaper) record(e audit.Entry) {
	if r.journal == nil {
		return
	}
	if err := r.journal.Record(e); err != nil {
		r.logger.Warn("writing sweep journal", "error", err)
	}
}
