package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	ws "github.com/coder/websocket"

	"github.com/Sahilgupta2175/event-calendar/internal/model"
)

const (
	sendBufferSize = 16
	pingInterval   = 30 * time.Second
	writeTimeout   = 10 * time.Second
	maxControlSize = 1 << 10
)

// Client is one connected calendar view. It receives every change unless it
// has subscribed to a single category.
type Client struct {
	hub    *Hub
	conn   *ws.Conn
	send   chan []byte
	remote string

	mu       sync.Mutex
	category model.Category
}

// NewClient creates a Client tied to the given hub and connection.
func NewClient(hub *Hub, conn *ws.Conn, remote string) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		remote: remote,
	}
}

// control is the only message a client may send: {"subscribe": "work"}.
// An empty value or "all" restores the unfiltered feed.
type control struct {
	Subscribe string `json:"subscribe"`
}

// Subscribe narrows the feed to one category. An empty category clears the filter.
func (c *Client) Subscribe(category model.Category) {
	c.mu.Lock()
	c.category = category
	c.mu.Unlock()
}

// wants reports whether a message tagged with category should be delivered.
// Untagged messages, such as backup status, always are.
func (c *Client) wants(category string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.category == "" || category == "" || string(c.category) == category
}

// Run registers the client, starts the write pump, and runs the read pump.
// It blocks until the connection is closed, then unregisters.
func (c *Client) Run(ctx context.Context) {
	c.hub.Register(c)
	defer c.hub.Unregister(c)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		c.writePump(ctx)
		cancel()
	}()
	c.readPump(ctx)
}

// readPump applies subscribe requests until the connection closes.
func (c *Client) readPump(ctx context.Context) {
	c.conn.SetReadLimit(maxControlSize)
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			return
		}
		c.handleControl(data)
	}
}

func (c *Client) handleControl(data []byte) {
	var msg control
	if err := json.Unmarshal(data, &msg); err != nil {
		c.hub.logger.Debug("ignore client message", "remote", c.remote, "error", err)
		return
	}
	category := model.Category(msg.Subscribe)
	if category == "all" {
		category = ""
	}
	if category != "" && !category.Valid() {
		c.hub.logger.Debug("ignore unknown category", "remote", c.remote, "category", msg.Subscribe)
		return
	}
	c.Subscribe(category)
	c.hub.logger.Debug("client subscribed", "remote", c.remote, "category", category)
}

// writePump drains the send channel and pings to detect stale connections.
func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				c.conn.Close(ws.StatusGoingAway, "server shutting down")
				return
			}
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Write(wctx, ws.MessageText, msg)
			cancel()
			if err != nil {
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
