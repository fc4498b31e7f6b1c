package ws

import (
	"encoding/json"
	"sync"
)

// Client is one admin websocket subscriber.
type Client struct {
	AgentNumber string
	Send        chan []byte
	hub         *StatusHub
	mu          sync.Mutex
	closed      bool
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.Send)
	if c.hub != nil {
		c.hub.unregister(c)
	}
}

// StatusUpdate is the message pushed on every presence transition.
type StatusUpdate struct {
	Type        string `json:"type"` // always "status"
	AgentNumber string `json:"agent_number"`
	Status      string `json:"status"`
}

// StatusHub pushes live presence transitions to connected admin views.
// Polling remains the primary mechanism; this only shortens the window
// between a transition and the admin seeing it.
type StatusHub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
}

func NewStatusHub() *StatusHub {
	return &StatusHub{clients: make(map[*Client]struct{})}
}

func (h *StatusHub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c.hub = h
	h.clients[c] = struct{}{}
}

func (h *StatusHub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
}

func (h *StatusHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastStatus fans a transition out to all subscribers. Slow consumers
// are skipped rather than blocked on.
func (h *StatusHub) BroadcastStatus(agentNumber, status string) {
	data, _ := json.Marshal(StatusUpdate{Type: "status", AgentNumber: agentNumber, Status: status})
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()
	for _, c := range clients {
		select {
		case c.Send <- data:
		default:
		}
	}
}
