// Package client is the Go SDK for the calldesk presence API: a REST
// client, the agent-side status transition engine, a durable per-agent
// session cache and the admin snapshot poller.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"calldesk/internal/ledger"
)

type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// BreakPayload is the wire shape of a status transition write.
type BreakPayload struct {
	AgentNumber     string     `json:"agent_number"`
	Status          string     `json:"status"`
	BreakStart      *time.Time `json:"break_start"`
	BreakEnd        *time.Time `json:"break_end"`
	DurationSeconds *int64     `json:"duration_seconds"`
	Remark          string     `json:"remark"`
}

type LoginResult struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
	User         struct {
		ID          uint   `json:"id"`
		AgentNumber string `json:"agent_number"`
		Name        string `json:"name"`
		Email       string `json:"email"`
		Role        string `json:"role"`
	} `json:"user"`
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &TransportError{Op: op, Err: err}
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var msg struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(respBody, &msg)
		if msg.Message == "" {
			msg.Message = http.StatusText(resp.StatusCode)
		}
		return &TransportError{Op: op, Status: resp.StatusCode, Message: msg.Message}
	}
	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return &TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
		}
	}
	return nil
}

// Login authenticates and stores the bearer token on the client.
func (c *Client) Login(ctx context.Context, agentNumber, password string) (*LoginResult, error) {
	var res LoginResult
	err := c.do(ctx, "login", http.MethodPost, "/api/v1/auth/login", map[string]string{
		"agent_number": agentNumber,
		"password":     password,
	}, &res)
	if err != nil {
		return nil, err
	}
	c.Token = res.Token
	return &res, nil
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, "logout", http.MethodPost, "/api/v1/auth/logout", nil, nil)
}

// SaveBreakStatus appends a transition record to the agent's ledger.
func (c *Client) SaveBreakStatus(ctx context.Context, p BreakPayload) error {
	return c.do(ctx, "save break status", http.MethodPost, "/api/v1/agents/breaks", p, nil)
}

// CloseLatestBreak closes the agent's latest open break. The server treats a
// close with nothing open as a no-op success.
func (c *Client) CloseLatestBreak(ctx context.Context, agentNumber string, end time.Time) error {
	return c.do(ctx, "close break", http.MethodPut, "/api/v1/agents/breaks/close", map[string]interface{}{
		"agent_number": agentNumber,
		"break_end":    end,
	}, nil)
}

// FetchLedger returns the date-grouped break history. Admin only; search
// filters by agent number or name.
func (c *Client) FetchLedger(ctx context.Context, search string) ([]ledger.Day, error) {
	path := "/api/v1/agents/breaks"
	if search != "" {
		path += "?search=" + url.QueryEscape(search)
	}
	var res struct {
		Breaks []ledger.Day `json:"breaks"`
	}
	if err := c.do(ctx, "fetch ledger", http.MethodGet, path, nil, &res); err != nil {
		return nil, err
	}
	return res.Breaks, nil
}

// StatusRow mirrors one row of the current-status response.
type StatusRow struct {
	AgentNumber   string     `json:"agent_number"`
	CurrentStatus string     `json:"current_status"`
	BreakStart    *time.Time `json:"break_start"`
	BreakEnd      *time.Time `json:"break_end"`
}

// CurrentStatus returns the presence snapshot visible to the caller's role.
func (c *Client) CurrentStatus(ctx context.Context) (map[string]string, error) {
	snapshot, _, err := c.CurrentStatusRows(ctx)
	return snapshot, err
}

// CurrentStatusRows returns the snapshot together with per-agent rows
// carrying break timestamps.
func (c *Client) CurrentStatusRows(ctx context.Context) (map[string]string, []StatusRow, error) {
	var res struct {
		CurrentStatus map[string]string `json:"current_status"`
		Rows          []StatusRow       `json:"rows"`
	}
	if err := c.do(ctx, "current status", http.MethodGet, "/api/v1/agents/current-status", nil, &res); err != nil {
		return nil, nil, err
	}
	return res.CurrentStatus, res.Rows, nil
}
