package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const writeWait = 10 * time.Second

// client serialises writes to one connection
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(messageType, data)
}

// Hub manages WebSocket connections receiving status updates
type Hub struct {
	clients map[*client]bool
	mu      sync.RWMutex
	logger  *zap.Logger
}

// NewHub creates a new status hub
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients: make(map[*client]bool),
		logger:  logger.Named("ws"),
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = true
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Info("client registered", zap.Int("total", n))
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if ok {
		c.conn.Close()
		h.logger.Info("client unregistered")
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends msg to every client, dropping those that fail
func (h *Hub) Broadcast(msg *StatusMessage) {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	if len(clients) == 0 {
		return
	}

	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal status message", zap.Error(err))
		return
	}

	for _, c := range clients {
		if err := c.write(websocket.TextMessage, data); err != nil {
			h.logger.Debug("send failed", zap.Error(err))
			h.unregister(c)
		}
	}
}
