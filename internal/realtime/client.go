package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSMessage is the WebSocket message envelope.
type WSMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Client is one WebSocket connection subscribed to auth events.
type Client struct {
	ID          string
	UserID      string // empty for anonymous subscribers
	ConnectedAt time.Time
	hub         *Hub
	conn        *websocket.Conn
	send        chan WSMessage
	logger      *zap.Logger
}

// TokenValidator resolves an access token to a user id.
type TokenValidator func(ctx context.Context, token string) (userID string, err error)

// ServeWs upgrades the request and streams auth events to the client. A
// token query parameter is optional; when present it must be valid.
func ServeWs(hub *Hub, logger *zap.Logger, validate TokenValidator) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		var userID string
		if token := c.Query("token"); token != "" {
			id, err := validate(c.Request.Context(), token)
			if err != nil {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
				return
			}
			userID = id
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := &Client{
			ID:          uuid.New().String(),
			UserID:      userID,
			ConnectedAt: time.Now(),
			hub:         hub,
			conn:        conn,
			send:        make(chan WSMessage, 64),
			logger:      logger,
		}
		hub.Register(client)
		go client.writePump()
		client.readPump()
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
		return nil
	})

	for {
		var msg WSMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			break
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))

		switch msg.Event {
		case "ping":
			c.hub.SendToClient(c.ID, "pong", map[string]int64{"at": time.Now().Unix()})
		default:
			// subscribers only listen
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(PingInterval * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
