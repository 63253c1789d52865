package realtime

import (
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Event is a message pushed to all connected subscribers
type Event struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Hub tracks connected websocket clients and fans events out to them.
// Delivery is best-effort: there is no per-recipient acknowledgment, and
// clients whose writes fail are dropped.
type Hub struct {
	logger *zap.Logger

	mu      sync.RWMutex
	clients map[string]*websocket.Conn
}

// NewHub creates a new Hub
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger:  logger,
		clients: make(map[string]*websocket.Conn),
	}
}

// Add registers a connection and returns its client id
func (h *Hub) Add(conn *websocket.Conn) string {
	id := uuid.NewString()
	h.mu.Lock()
	h.clients[id] = conn
	h.mu.Unlock()

	h.logger.Info("websocket client connected", zap.String("client_id", id))
	return id
}

// Remove unregisters a connection and closes it
func (h *Hub) Remove(id string) {
	h.mu.Lock()
	conn, ok := h.clients[id]
	delete(h.clients, id)
	h.mu.Unlock()

	if ok {
		_ = conn.Close()
		h.logger.Info("websocket client disconnected", zap.String("client_id", id))
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends an event to every connected client
func (h *Hub) Broadcast(event string, data interface{}) {
	h.mu.RLock()
	conns := make(map[string]*websocket.Conn, len(h.clients))
	for id, conn := range h.clients {
		conns[id] = conn
	}
	h.mu.RUnlock()

	msg := Event{Event: event, Data: data}
	for id, conn := range conns {
		if err := conn.WriteJSON(msg); err != nil {
			h.logger.Warn("dropping websocket client",
				zap.String("client_id", id),
				zap.Error(err))
			h.Remove(id)
		}
	}
}

// Close disconnects all clients
func (h *Hub) Close() {
	h.mu.Lock()
	for id, conn := range h.clients {
		_ = conn.Close()
		delete(h.clients, id)
	}
	h.mu.Unlock()
}
