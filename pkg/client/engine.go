package client

import (
	"context"
	"sync"
	"time"

	"calldesk/internal/domain"
)

// Engine owns one agent's Working/Break state machine. Every transition
// writes to the server first; local and session state change only after the
// write succeeds, so a failed write leaves the agent in their previous
// status. The engine trusts the value it sent rather than reading back.
type Engine struct {
	api   *Client
	store *SessionStore
	agent string

	mu         sync.Mutex
	status     string
	breakStart *time.Time

	now func() time.Time
}

// NewEngine rehydrates the engine from the session store: a persisted open
// break is restored with its original start instant, anything else starts
// as Working.
func NewEngine(api *Client, store *SessionStore, agentNumber string) (*Engine, error) {
	status, breakStart, err := store.LoadState(agentNumber)
	if err != nil {
		return nil, err
	}
	return &Engine{
		api:        api,
		store:      store,
		agent:      agentNumber,
		status:     status,
		breakStart: breakStart,
		now:        time.Now,
	}, nil
}

// Status returns the current status and, while on break, its start instant.
func (e *Engine) Status() (string, *time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status, e.breakStart
}

// OnBreak reports whether the agent is currently on an open break.
func (e *Engine) OnBreak() bool {
	s, _ := e.Status()
	return s == domain.StatusBreak
}

// StartBreak moves Working -> Break. An empty remark fails validation before
// any network call is made.
func (e *Engine) StartBreak(ctx context.Context, remark string) error {
	if remark == "" {
		return &ValidationError{Field: "remark", Reason: "required to start a break"}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	start := e.now()
	err := e.api.SaveBreakStatus(ctx, BreakPayload{
		AgentNumber: e.agent,
		Status:      domain.StatusBreak,
		BreakStart:  &start,
		Remark:      remark,
	})
	if err != nil {
		return err
	}
	e.status = domain.StatusBreak
	e.breakStart = &start
	return e.store.SaveState(e.agent, e.status, e.breakStart)
}

// SetWorking moves the agent to Working. From an open break it closes the
// break server-side; from Working it writes a plain status row with no time
// fields.
func (e *Engine) SetWorking(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status == domain.StatusBreak {
		if err := e.api.CloseLatestBreak(ctx, e.agent, e.now()); err != nil {
			return err
		}
	} else {
		err := e.api.SaveBreakStatus(ctx, BreakPayload{
			AgentNumber: e.agent,
			Status:      domain.StatusWorking,
		})
		if err != nil {
			return err
		}
	}
	e.status = domain.StatusWorking
	e.breakStart = nil
	return e.store.SaveState(e.agent, e.status, nil)
}

// Reconcile overwrites local state from the server's snapshot. The server
// is authoritative; this is the recovery path for a crash between a remote
// write and the local persist, and the only place server state ever
// replaces the session cache.
func (e *Engine) Reconcile(ctx context.Context) error {
	_, rows, err := e.api.CurrentStatusRows(ctx)
	if err != nil {
		return err
	}
	var row *StatusRow
	for i := range rows {
		if rows[i].AgentNumber == e.agent {
			row = &rows[i]
			break
		}
	}
	if row == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if row.CurrentStatus == e.status {
		return nil
	}
	e.status = row.CurrentStatus
	if e.status == domain.StatusBreak {
		e.breakStart = row.BreakStart
	} else {
		e.breakStart = nil
	}
	return e.store.SaveState(e.agent, e.status, e.breakStart)
}

// Logout clears the agent's cached session state.
func (e *Engine) Logout() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.status = domain.StatusWorking
	e.breakStart = nil
	return e.store.Clear(e.agent)
}
