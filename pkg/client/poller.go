package client

import (
	"context"
	"sync"
	"time"

	"calldesk/internal/logger"
)

// Snapshot maps agent number to its current status label.
type Snapshot map[string]string

// DefaultPollInterval matches the dashboard's 15s refresh.
const DefaultPollInterval = 15 * time.Second

// Poller keeps a near-real-time presence snapshot for the admin view. It
// fetches immediately on Run, then on a fixed interval until the context is
// cancelled. A failed fetch keeps the last-known snapshot and the schedule.
type Poller struct {
	api      *Client
	interval time.Duration

	// OnChange, if set, is called with a copy of the snapshot after every
	// successful fetch. Never called once the context is done.
	OnChange func(Snapshot)

	mu   sync.RWMutex
	last Snapshot
}

func NewPoller(api *Client, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{api: api, interval: interval}
}

// Interval returns the configured refresh interval.
func (p *Poller) Interval() time.Duration { return p.interval }

// Run blocks until ctx is cancelled. The ticker is released on every exit
// path; cancelling the context is the one and only teardown mechanism.
func (p *Poller) Run(ctx context.Context) {
	p.refresh(ctx)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.refresh(ctx)
		}
	}
}

func (p *Poller) refresh(ctx context.Context) {
	snapshot, err := p.api.CurrentStatus(ctx)
	if err != nil {
		// Stale-but-available: keep the previous snapshot and try again on
		// the next tick.
		logger.L.WithError(err).Warn("status poll failed")
		return
	}
	if ctx.Err() != nil {
		// Torn down while the fetch was in flight; do not apply the result.
		return
	}
	p.mu.Lock()
	p.last = snapshot
	p.mu.Unlock()
	if p.OnChange != nil {
		p.OnChange(copySnapshot(snapshot))
	}
}

// Snapshot returns a copy of the last successfully fetched snapshot, which
// may be empty before the first fetch completes.
func (p *Poller) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return copySnapshot(p.last)
}

func copySnapshot(s Snapshot) Snapshot {
	out := make(Snapshot, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}
