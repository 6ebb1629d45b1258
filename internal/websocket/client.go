package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/sprout/internal/reminder"
)

const (
	sendBufferSize = 16
	pingInterval   = 30 * time.Second
)

// Inbound is a message sent by a client. The only request understood is
// {"type":"search","query":"...","filter":"..."}.
type Inbound struct {
	Type   string `json:"type"`
	Query  string `json:"query"`
	Filter string `json:"filter"`
}

// Client represents a single WebSocket connection.
type Client struct {
	hub      *Hub
	conn     *ws.Conn
	send     chan []byte
	debounce *reminder.Debouncer

	mu     sync.Mutex
	closed bool
}

// NewClient creates a Client tied to the given hub and connection.
func NewClient(hub *Hub, conn *ws.Conn) *Client {
	return &Client{
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, sendBufferSize),
		debounce: reminder.NewDebouncer(hub.searchDelay),
	}
}

// Run registers the client, starts the write pump, and runs the read pump.
// It blocks until the connection is closed, then unregisters.
func (c *Client) Run(ctx context.Context) {
	c.hub.Register(c)
	defer c.hub.Unregister(c)
	defer c.debounce.Stop()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go c.writePump(ctx)
	c.readPump(ctx)
}

// readPump handles incoming messages until the connection closes.
func (c *Client) readPump(ctx context.Context) {
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			return
		}
		c.handle(data)
	}
}

func (c *Client) handle(data []byte) {
	var in Inbound
	if err := json.Unmarshal(data, &in); err != nil {
		c.hub.logger.Debug("ignoring malformed client message", "error", err)
		return
	}

	switch in.Type {
	case "search":
		if c.hub.search == nil {
			return
		}
		// Keystrokes arrive one by one; only the last query in a burst runs.
		c.debounce.Trigger(func() {
			msg := c.hub.searchResults(in.Filter, in.Query)
			data, err := json.Marshal(msg)
			if err != nil {
				c.hub.logger.Error("marshal search results", "error", err)
				return
			}
			c.enqueue(data)
		})
	default:
		c.hub.logger.Debug("ignoring client message", "type", in.Type)
	}
}

// enqueue queues data for the write pump. Messages are dropped when the
// buffer is full or the client has gone away.
func (c *Client) enqueue(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// writePump drains the send channel and writes messages to the WebSocket.
// It also sends periodic pings to detect stale connections.
func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.Write(ctx, ws.MessageText, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.Ping(ctx); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
