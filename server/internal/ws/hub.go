package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/obsidianstack/samplerate/pkg/estimate"
	"github.com/obsidianstack/samplerate/pkg/form"
	"github.com/obsidianstack/samplerate/server/internal/metrics"
)

const (
	// writeTimeout is the deadline for a single write to a client.
	writeTimeout = 10 * time.Second

	// pongWait is how long to wait for a pong response before treating the
	// connection as dead.
	pongWait = 60 * time.Second

	// pingPeriod controls how often the server sends WebSocket ping frames.
	// Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize bounds a single client request.
	maxMessageSize = 1024

	// sendBufSize is the per-client outgoing message buffer depth.
	sendBufSize = 16
)

// Event names.
const (
	EventEstimate = "estimate"
	EventError    = "error"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Request is one form change sent by a client.
type Request struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// Message is the JSON envelope sent to clients.
type Message struct {
	Event string         `json:"event"`
	Data  *form.Snapshot `json:"data,omitempty"`
	Error string         `json:"error,omitempty"`
}

// Hub manages WebSocket clients, each with its own form state.
type Hub struct {
	metrics *metrics.Metrics

	mu      sync.Mutex
	ceiling estimate.Ceiling
	clients map[*client]struct{}
}

// client represents one connected WebSocket client.
type client struct {
	conn *websocket.Conn
	send chan []byte
	form *form.Form
}

// New creates a Hub whose new forms start with ceiling c. m may be nil.
func New(c estimate.Ceiling, m *metrics.Metrics) (*Hub, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("ws: %w", err)
	}
	return &Hub{
		metrics: m,
		ceiling: c,
		clients: make(map[*client]struct{}),
	}, nil
}

// Run blocks until ctx is cancelled, then closes all active connections.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.closeAll()
}

// ServeHTTP upgrades the HTTP connection to WebSocket and serves the client.
// Blocks until the connection closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader has already written the error response.
		return
	}

	h.mu.Lock()
	f, err := form.New(h.ceiling)
	h.mu.Unlock()
	if err != nil {
		slog.Error("ws: new form", "err", err)
		conn.Close()
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, sendBufSize),
		form: f,
	}
	h.register(c)
	defer h.unregister(c)

	h.sendSnapshot(c)

	go c.writePump()
	h.readPump(c) // blocks until connection closes
}

// SetCeiling applies c to every connected form and to forms created later,
// then pushes the recomputed state to each client.
func (h *Hub) SetCeiling(c estimate.Ceiling) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("ws: %w", err)
	}

	h.mu.Lock()
	h.ceiling = c
	targets := make([]*client, 0, len(h.clients))
	for cl := range h.clients {
		targets = append(targets, cl)
	}
	h.mu.Unlock()

	for _, cl := range targets {
		if err := cl.form.SetCeiling(c); err != nil {
			// Only overflow can fail here; the client keeps its old ceiling.
			slog.Warn("ws: client kept previous ceiling", "err", err)
		}
		h.sendSnapshot(cl)
	}
	return nil
}

// Count returns the number of currently connected clients.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// --- internal ---------------------------------------------------------------

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.metrics.SetWSClients(n)
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	h.removeLocked(c)
	n := len(h.clients)
	h.mu.Unlock()
	h.metrics.SetWSClients(n)
}

// removeLocked must be called with h.mu held.
func (h *Hub) removeLocked(c *client) {
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// handle applies one request to the client's form and queues the reply.
func (h *Hub) handle(c *client, raw []byte) {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		h.sendError(c, "malformed request")
		return
	}

	err := c.form.Set(req.Field, req.Value)
	switch {
	case errors.Is(err, form.ErrUnknownField):
		h.sendError(c, err.Error())
		return
	case err != nil:
		h.metrics.ObserveInvalid(metrics.SurfaceWS)
	default:
		h.metrics.ObserveEstimate(metrics.SurfaceWS, c.form.Result())
	}
	h.sendSnapshot(c)
}

func (h *Hub) sendSnapshot(c *client) {
	snap := c.form.Snapshot()
	h.enqueue(c, Message{Event: EventEstimate, Data: &snap})
}

func (h *Hub) sendError(c *client, msg string) {
	h.enqueue(c, Message{Event: EventError, Error: msg})
}

// enqueue marshals msg and queues it for c. A client whose buffer is full is
// disconnected.
func (h *Hub) enqueue(c *client, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("ws: marshal message", "err", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	select {
	case c.send <- data:
	default:
		h.removeLocked(c)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	for c := range h.clients {
		h.removeLocked(c)
	}
	h.mu.Unlock()
	h.metrics.SetWSClients(0)
}

// writePump drains the client's send channel and forwards messages to the
// WebSocket connection. It also sends periodic ping frames. Runs in its own
// goroutine per client.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				// Channel was closed (hub is shutting down or client removed).
				c.conn.WriteMessage(websocket.CloseMessage, []byte{}) //nolint:errcheck
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump reads client requests and control frames until the connection
// closes.
func (h *Hub) readPump(c *client) {
	defer c.conn.Close()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		h.handle(c, raw)
	}
}
