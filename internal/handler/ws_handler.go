package handler

import (
	"net/http"

	"github.com/brokerage-dashboard/internal/realtime"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Browser clients connect from a separately hosted frontend
		return true
	},
}

// WSHandler upgrades connections onto the realtime broadcast hub
type WSHandler struct {
	hub    *realtime.Hub
	logger *zap.Logger
}

// NewWSHandler creates a new WSHandler
func NewWSHandler(hub *realtime.Hub, logger *zap.Logger) *WSHandler {
	return &WSHandler{
		hub:    hub,
		logger: logger,
	}
}

// Serve handles the websocket upgrade
// GET /ws
func (h *WSHandler) Serve(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	id := h.hub.Add(conn)

	// Clients only receive broadcasts; the read loop exists to detect
	// disconnects and service control frames.
	go func() {
		defer h.hub.Remove(id)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// RegisterRoutes registers the websocket route
func (h *WSHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/ws", h.Serve)
}
