// Package livereload broadcasts watch-mode compile results to connected
// editors/tools over a WebSocket so they can show fresh diagnostics without
// polling.
package livereload

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// Event is broadcast to every connected client after a watch-mode
// recompile, successful or not.
type Event struct {
	Unit        string   `json:"unit"`
	Diagnostics []string `json:"diagnostics"`
	BytecodeRef string   `json:"bytecode_ref,omitempty"`
	Success     bool     `json:"success"`
}

// Hub tracks connected clients and fans out Events to all of them.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]bool

	upgrader websocket.Upgrader
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates an empty broadcast hub. The returned Hub's Handler method
// upgrades incoming HTTP requests to WebSocket connections.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*client]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Diagnostics-only local tooling channel; any origin may observe it.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Handler upgrades r to a WebSocket connection and registers it with the
// hub until the client disconnects.
func (h *Hub) Handler(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[livereload] upgrade failed: %v", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, 16)}

	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()

	go h.writePump(c)
	h.readPump(c)
}

// readPump discards client-sent frames (this channel is one-way) and
// unregisters the client once the connection breaks.
func (h *Hub) readPump(c *client) {
	defer h.unregister(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// Broadcast sends e to every connected client. Clients whose send buffer is
// full are skipped rather than blocking the broadcaster.
func (h *Hub) Broadcast(e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		select {
		case c.send <- data:
		default:
		}
	}
	return nil
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
