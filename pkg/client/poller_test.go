package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"calldesk/internal/domain"
)

// pollServer serves the current-status endpoint with switchable behavior.
type pollServer struct {
	*httptest.Server
	requests atomic.Int64
	failing  atomic.Bool
	status   atomic.Value // map[string]string
}

func newPollServer(t *testing.T, initial map[string]string) *pollServer {
	t.Helper()
	ps := &pollServer{}
	ps.status.Store(initial)
	ps.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ps.requests.Add(1)
		if ps.failing.Load() {
			http.Error(w, `{"message":"unavailable"}`, http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"current_status": ps.status.Load(),
		})
	}))
	t.Cleanup(ps.Close)
	return ps
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, d time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestPollerFetchesImmediately(t *testing.T) {
	ps := newPollServer(t, map[string]string{"2001": domain.StatusBreak})
	p := NewPoller(New(ps.URL), time.Hour) // interval too long to tick during the test

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	if !waitFor(t, time.Second, func() bool {
		return p.Snapshot()["2001"] == domain.StatusBreak
	}) {
		t.Fatalf("snapshot = %v, want immediate fetch of 2001=Break", p.Snapshot())
	}
}

func TestPollerKeepsStaleSnapshotOnFailure(t *testing.T) {
	ps := newPollServer(t, map[string]string{"2001": domain.StatusBreak})
	p := NewPoller(New(ps.URL), 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	if !waitFor(t, time.Second, func() bool {
		return p.Snapshot()["2001"] == domain.StatusBreak
	}) {
		t.Fatal("never got initial snapshot")
	}

	// Server starts failing: the snapshot must stay, and polling must keep
	// trying on schedule rather than stopping.
	before := ps.requests.Load()
	ps.failing.Store(true)
	if !waitFor(t, time.Second, func() bool {
		return ps.requests.Load() >= before+3
	}) {
		t.Fatal("poller stopped retrying after failures")
	}
	if got := p.Snapshot()["2001"]; got != domain.StatusBreak {
		t.Errorf("snapshot after failures = %q, want stale Break retained", got)
	}

	// Recovery picks the fresh value back up.
	ps.status.Store(map[string]string{"2001": domain.StatusWorking})
	ps.failing.Store(false)
	if !waitFor(t, time.Second, func() bool {
		return p.Snapshot()["2001"] == domain.StatusWorking
	}) {
		t.Error("poller did not recover after server came back")
	}
}

func TestPollerStopsOnCancel(t *testing.T) {
	ps := newPollServer(t, map[string]string{})
	p := NewPoller(New(ps.URL), 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	waitFor(t, time.Second, func() bool { return ps.requests.Load() >= 2 })
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}

	// No further requests once torn down.
	settled := ps.requests.Load()
	time.Sleep(50 * time.Millisecond)
	if got := ps.requests.Load(); got != settled {
		t.Errorf("requests after cancel: %d -> %d, want no growth", settled, got)
	}
}

func TestPollerOnChangeNotCalledAfterCancel(t *testing.T) {
	ps := newPollServer(t, map[string]string{"2001": domain.StatusWorking})
	p := NewPoller(New(ps.URL), 10*time.Millisecond)

	var calls atomic.Int64
	p.OnChange = func(Snapshot) { calls.Add(1) }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()
	waitFor(t, time.Second, func() bool { return calls.Load() >= 1 })
	cancel()
	<-done

	settled := calls.Load()
	time.Sleep(50 * time.Millisecond)
	if got := calls.Load(); got != settled {
		t.Errorf("OnChange fired after teardown: %d -> %d", settled, got)
	}
}

func TestPollerDefaultInterval(t *testing.T) {
	p := NewPoller(New("http://localhost:0"), 0)
	if p.Interval() != DefaultPollInterval {
		t.Errorf("interval = %v, want default %v", p.Interval(), DefaultPollInterval)
	}
}
