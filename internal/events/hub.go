package events

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/timmy/altseo/internal/logger"
)

const writeTimeout = 2 * time.Second

// Hub broadcasts events to connected websocket clients.
type Hub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

// NewHub creates an empty Hub. checkOrigin decides which browser origins
// may subscribe; nil accepts only same-host origins.
func NewHub(checkOrigin func(r *http.Request) bool) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		clients: make(map[*websocket.Conn]struct{}),
	}
}

// Name implements Observer.
func (h *Hub) Name() string { return "websocket" }

// OnEvent implements Observer.
func (h *Hub) OnEvent(_ context.Context, event Event) {
	h.BroadcastJSON(event)
}

// Add registers a client and greets it.
func (h *Hub) Add(ws *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[ws] = struct{}{}
	_ = ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	_ = ws.WriteMessage(websocket.TextMessage, []byte(`{"event":"welcome"}`))
}

// Remove unregisters and closes a client.
func (h *Hub) Remove(ws *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, ws)
	h.mu.Unlock()
	_ = ws.Close()
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// BroadcastJSON sends v to every client, dropping clients that fail.
func (h *Hub) BroadcastJSON(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for ws := range h.clients {
		_ = ws.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := ws.WriteMessage(websocket.TextMessage, b); err != nil {
			_ = ws.Close()
			delete(h.clients, ws)
		}
	}
}

// Handler upgrades the request and keeps the client until it disconnects.
func (h *Hub) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.CtxWarn(c.Request.Context(), "Websocket upgrade failed: %v", err)
			return
		}

		h.Add(ws)
		logger.CtxDebug(c.Request.Context(), "Event feed client connected (clients=%d)", h.Count())

		// incoming messages are ignored; reading detects the disconnect
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				break
			}
		}

		h.Remove(ws)
		logger.CtxDebug(c.Request.Context(), "Event feed client disconnected")
	}
}
