package probe

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.Default().With("test", true)
}

// hitRecorder counts requests and remembers when each one arrived.
type hitRecorder struct {
	mu    sync.Mutex
	times []time.Time
}

func (h *hitRecorder) record() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.times = append(h.times, time.Now())
	return len(h.times)
}

func (h *hitRecorder) snapshot() []time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]time.Time(nil), h.times...)
}

func TestCheckHealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := NewProber(srv.URL, time.Second, testLogger())
	if err := p.Check(context.Background()); err != nil {
		t.Fatalf("expected ready, got %v", err)
	}
}

func TestCheckNonSuccessStatus(t *testing.T) {
	for _, code := range []int{http.StatusNoContent, http.StatusMovedPermanently, http.StatusNotFound, http.StatusServiceUnavailable} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if code == http.StatusMovedPermanently {
				// Redirect to a 404 so the client doesn't loop
				http.Redirect(w, r, "/missing", code)
				return
			}
			if r.URL.Path == "/missing" {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.WriteHeader(code)
		}))

		err := NewProber(srv.URL, time.Second, testLogger()).Check(context.Background())
		srv.Close()

		if code == http.StatusNoContent {
			if err != nil {
				t.Errorf("status %d: expected ready, got %v", code, err)
			}
			continue
		}
		if err == nil {
			t.Errorf("status %d: expected not ready", code)
		}
	}
}

func TestCheckConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	p := NewProber("http://"+addr, 200*time.Millisecond, testLogger())
	if err := p.Check(context.Background()); err == nil {
		t.Fatal("expected connection refused to be not ready")
	}
}

func TestCheckRequestTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	p := NewProber(srv.URL, 50*time.Millisecond, testLogger())
	start := time.Now()
	if err := p.Check(context.Background()); err == nil {
		t.Fatal("expected hung request to fail")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("per-request timeout not honoured, took %v", elapsed)
	}
}

func TestAttemptClassification(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	p := NewProber(srv.URL, time.Second, testLogger())

	tests := []struct {
		attempt, max int
		want         Status
	}{
		{1, 60, StatusPending},
		{59, 60, StatusPending},
		{60, 60, StatusTimeout},
		{1, 1, StatusTimeout},
	}
	for _, tt := range tests {
		out := p.Attempt(context.Background(), tt.attempt, tt.max)
		if out.Status != tt.want {
			t.Errorf("Attempt(%d, %d) = %v, want %v", tt.attempt, tt.max, out.Status, tt.want)
		}
		if out.Err == nil {
			t.Errorf("Attempt(%d, %d): expected error to be carried", tt.attempt, tt.max)
		}
	}
}

func TestWaitExhaustsAttempts(t *testing.T) {
	var hits hitRecorder
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.record()
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	const (
		maxAttempts = 5
		interval    = 20 * time.Millisecond
	)

	var observed []Outcome
	p := NewProber(srv.URL, time.Second, testLogger())
	out, err := p.Wait(context.Background(), maxAttempts, interval, func(o Outcome) {
		observed = append(observed, o)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Status != StatusTimeout {
		t.Fatalf("expected timeout, got %v", out)
	}

	times := hits.snapshot()
	if len(times) != maxAttempts {
		t.Fatalf("expected exactly %d probes, got %d", maxAttempts, len(times))
	}
	for i := 1; i < len(times); i++ {
		if gap := times[i].Sub(times[i-1]); gap < interval {
			t.Errorf("gap between attempt %d and %d was %v, want >= %v", i, i+1, gap, interval)
		}
	}

	if len(observed) != maxAttempts {
		t.Fatalf("expected %d observed outcomes, got %d", maxAttempts, len(observed))
	}
	for i, o := range observed[:maxAttempts-1] {
		if o.Status != StatusPending || o.Attempt != i+1 || o.Max != maxAttempts {
			t.Errorf("outcome %d = %+v, want pending(%d/%d)", i, o, i+1, maxAttempts)
		}
	}
}

func TestWaitStopsOnFirstSuccess(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := NewProber(srv.URL, time.Second, testLogger())
	out, err := p.Wait(context.Background(), 60, 5*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.Ready() {
		t.Fatalf("expected ready, got %v", out)
	}
	if out.Attempt != 3 {
		t.Errorf("expected ready on attempt 3, got %d", out.Attempt)
	}

	// No further requests after success
	time.Sleep(30 * time.Millisecond)
	if got := hits.Load(); got != 3 {
		t.Errorf("expected probing to stop after success, got %d requests", got)
	}
}

func TestWaitAbandoned(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	p := NewProber(srv.URL, time.Second, testLogger())
	_, err := p.Wait(ctx, 1000, 10*time.Millisecond, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestOutcomeString(t *testing.T) {
	if got := (Outcome{Status: StatusPending, Attempt: 3, Max: 60}).String(); got != "pending (3/60)" {
		t.Errorf("unexpected pending string %q", got)
	}
	if got := (Outcome{Status: StatusTimeout, Attempt: 60, Max: 60}).String(); got != "timeout after 60 attempts" {
		t.Errorf("unexpected timeout string %q", got)
	}
	if got := (Outcome{Status: StatusReady}).String(); got != "ready" {
		t.Errorf("unexpected ready string %q", got)
	}
}
