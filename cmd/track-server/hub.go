package main

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/skywatchdev/sattrack/pkg/track"
)

// statusHub fans tracking-session status updates out to WebSocket clients.
// Slow clients are dropped rather than allowed to stall the session.
type statusHub struct {
	mu       sync.Mutex
	clients  map[*websocket.Conn]chan track.Status
	upgrader websocket.Upgrader
}

func newStatusHub() *statusHub {
	return &statusHub{
		clients: make(map[*websocket.Conn]chan track.Status),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The REST API already allows any origin; the feed is
			// read-only status data.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// handleWebSocket upgrades the connection and streams status updates until
// the client disconnects.
func (h *statusHub) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	updates := make(chan track.Status, 16)
	h.mu.Lock()
	h.clients[conn] = updates
	h.mu.Unlock()
	log.Printf("Status feed client connected: %s", conn.RemoteAddr())

	defer func() {
		h.remove(conn)
		conn.Close()
	}()

	// Drain reads so close frames and pings are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.remove(conn)
				return
			}
		}
	}()

	for status := range updates {
		if err := conn.WriteJSON(status); err != nil {
			log.Printf("Status feed client dropped: %v", err)
			return
		}
	}
}

// broadcast sends a status update to every connected client, dropping the
// update for clients whose buffers are full.
func (h *statusHub) broadcast(status track.Status) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.clients {
		select {
		case ch <- status:
		default:
		}
	}
}

// remove unregisters a client and closes its update channel.
func (h *statusHub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.clients[conn]; ok {
		close(ch)
		delete(h.clients, conn)
	}
}
