package realtime

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/evently-demo/backend/internal/auth"
	"github.com/evently-demo/backend/internal/models"
)

const (
	// PingInterval and PongWait are used for heartbeat.
	PingInterval = 30
	PongWait     = 60
)

// AuthEvent is what WebSocket subscribers receive for every auth transition.
// The access token is never included.
type AuthEvent struct {
	Event     auth.Event   `json:"event"`
	User      *models.User `json:"user"`
	ExpiresAt int64        `json:"expires_at,omitempty"`
}

// Hub keeps the set of connected auth-event subscribers.
type Hub struct {
	clients map[string]*Client
	mu      sync.RWMutex
	logger  *zap.Logger
}

// NewHub creates a new WebSocket hub.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients: make(map[string]*Client),
		logger:  logger,
	}
}

// Attach subscribes the hub to sim so every transition, local or relayed
// from another process, reaches the connected clients.
func (h *Hub) Attach(sim *auth.Simulator) *auth.Subscription {
	return sim.OnAuthStateChange(func(event auth.Event, session *models.Session) {
		msg := AuthEvent{Event: event}
		if session != nil {
			user := session.User
			msg.User = &user
			msg.ExpiresAt = session.ExpiresAt
		}
		h.Broadcast(string(event), msg)
	})
}

// Register adds a client.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c.ID] = c
	h.mu.Unlock()
	h.logger.Debug("auth subscriber connected", zap.String("client_id", c.ID), zap.String("user_id", c.UserID))
}

// Unregister removes a client.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	delete(h.clients, c.ID)
	h.mu.Unlock()
	h.logger.Debug("auth subscriber disconnected", zap.String("client_id", c.ID))
}

// Broadcast sends a message to every connected client. Slow clients whose
// buffer is full miss the message.
func (h *Hub) Broadcast(event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("marshal broadcast payload", zap.String("event", event), zap.Error(err))
		return
	}
	msg := WSMessage{Event: event, Data: data}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.logger.Warn("subscriber buffer full, dropping message", zap.String("client_id", c.ID))
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// SendToClient sends a message to a single client.
func (h *Hub) SendToClient(clientID string, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	msg := WSMessage{Event: event, Data: data}
	h.mu.RLock()
	c, ok := h.clients[clientID]
	h.mu.RUnlock()
	if !ok || c == nil {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}
