package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Message is a real-time notification pushed to clients: a reminder change,
// a toast, or the results of a search.
type Message struct {
	Type   string         `json:"type"`
	Entity string         `json:"entity"`
	Action string         `json:"action"`
	ID     int64          `json:"id,omitempty"`
	Extra  map[string]any `json:"extra,omitempty"`
}

// NewMessage creates a Message with the Type field derived from entity and action.
func NewMessage(entity, action string, id int64, extra map[string]any) Message {
	return Message{
		Type:   fmt.Sprintf("%s_%s", entity, action),
		Entity: entity,
		Action: action,
		ID:     id,
		Extra:  extra,
	}
}

// SearchFunc answers a client's search. The result is sent back as the
// "cards" field of a search_results message.
type SearchFunc func(filter, query string) any

// Hub maintains the set of active WebSocket clients and broadcasts messages.
type Hub struct {
	mu          sync.RWMutex
	clients     map[*Client]struct{}
	logger      *slog.Logger
	search      SearchFunc
	searchDelay time.Duration
}

// NewHub creates a new Hub. search may be nil, in which case search requests
// from clients are ignored.
func NewHub(logger *slog.Logger, search SearchFunc, searchDelay time.Duration) *Hub {
	return &Hub{
		clients:     make(map[*Client]struct{}),
		logger:      logger,
		search:      search,
		searchDelay: searchDelay,
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes a client from the hub and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		c.close()
	}
	h.mu.Unlock()
}

// Broadcast sends a message to all connected clients.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal broadcast", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		c.enqueue(data)
	}
}

// ReminderChanged broadcasts a reminder_<action> message so every open view
// re-renders.
func (h *Hub) ReminderChanged(action string, id int64) {
	h.Broadcast(NewMessage("reminder", action, id, nil))
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) searchResults(filter, query string) Message {
	return NewMessage("search", "results", 0, map[string]any{
		"filter": filter,
		"query":  query,
		"cards":  h.search(filter, query),
	})
}
