// Package probe detects when the sidecar's HTTP server starts answering.
package probe

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Status tags an Outcome.
type Status string

const (
	StatusReady   Status = "ready"
	StatusPending Status = "pending"
	StatusTimeout Status = "timeout"
)

// Outcome classifies a single probe attempt.
type Outcome struct {
	Status  Status
	Attempt int
	Max     int
	Err     error // last failure; nil when Ready
}

// Ready reports whether the service answered with a 2xx.
func (o Outcome) Ready() bool { return o.Status == StatusReady }

func (o Outcome) String() string {
	switch o.Status {
	case StatusPending:
		return fmt.Sprintf("pending (%d/%d)", o.Attempt, o.Max)
	case StatusTimeout:
		return fmt.Sprintf("timeout after %d attempts", o.Max)
	default:
		return string(o.Status)
	}
}

// Prober issues readiness requests against a fixed loopback URL.
type Prober struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewProber creates a prober. timeout bounds each individual request.
func NewProber(url string, timeout time.Duration, logger *slog.Logger) *Prober {
	if logger == nil {
		logger = slog.Default()
	}
	return &Prober{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With("component", "probe"),
	}
}

// URL returns the address being probed.
func (p *Prober) URL() string { return p.url }

// Check performs one GET and returns nil if the response status is 2xx.
func (p *Prober) Check(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unready status: %d", resp.StatusCode)
	}
	return nil
}

// Attempt runs Check once and classifies the result. Failures never escalate:
// they are Pending until attempt reaches max, then Timeout.
func (p *Prober) Attempt(ctx context.Context, attempt, max int) Outcome {
	err := p.Check(ctx)
	if err == nil {
		return Outcome{Status: StatusReady, Attempt: attempt, Max: max}
	}
	if attempt >= max {
		return Outcome{Status: StatusTimeout, Attempt: attempt, Max: max, Err: err}
	}
	return Outcome{Status: StatusPending, Attempt: attempt, Max: max, Err: err}
}

// Wait probes until Ready or until max attempts have failed, sleeping a fixed
// interval between attempts. observe, if non-nil, sees every outcome. The
// only error returned is the context's, when the caller abandons the wait.
func (p *Prober) Wait(ctx context.Context, max int, interval time.Duration, observe func(Outcome)) (Outcome, error) {
	if max <= 0 {
		max = 1
	}

	for attempt := 1; ; attempt++ {
		out := p.Attempt(ctx, attempt, max)
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		if observe != nil {
			observe(out)
		}

		switch out.Status {
		case StatusReady:
			p.logger.Info("service is ready", "url", p.url, "attempt", attempt)
			return out, nil
		case StatusTimeout:
			p.logger.Error("service did not become ready", "url", p.url, "attempts", max, "error", out.Err)
			return out, nil
		}

		p.logger.Warn("service not ready yet, retrying",
			"attempt", attempt,
			"max_attempts", max,
			"error", out.Err,
		)

		select {
		case <-time.After(interval):
		case <-ctx.Done():
			return out, ctx.Err()
		}
	}
}
