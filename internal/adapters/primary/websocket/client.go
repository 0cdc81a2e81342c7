package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lorrc/ticket-broker/internal/core/domain"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 1024

	sendBufferSize = 256
)

// Client is a middleman between the websocket connection and the hub. A
// client only ever sees events of the scope its token was issued for.
type Client struct {
	Hub *Hub

	// The websocket connection.
	Conn *websocket.Conn

	// Buffered channel of outbound messages.
	Send chan domain.Event

	UserID  string
	ScopeID string

	// watched narrows delivery to specific ticket channels. Empty means
	// every event of the scope.
	watched map[string]bool

	closeOnce sync.Once
	mu        sync.RWMutex
	logger    *slog.Logger
}

// NewClient creates a new WebSocket client
func NewClient(hub *Hub, conn *websocket.Conn, userID, scopeID string, logger *slog.Logger) *Client {
	return &Client{
		Hub:     hub,
		Conn:    conn,
		Send:    make(chan domain.Event, sendBufferSize),
		UserID:  userID,
		ScopeID: scopeID,
		watched: make(map[string]bool),
		logger:  logger.With("user_id", userID, "scope_id", scopeID),
	}
}

// CloseSend safely closes the Send channel exactly once
func (c *Client) CloseSend() {
	c.closeOnce.Do(func() {
		close(c.Send)
	})
}

// Watch narrows delivery to the given ticket channel.
func (c *Client) Watch(resourceID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.watched[resourceID] = true
}

// Unwatch removes a ticket channel from the watch list.
func (c *Client) Unwatch(resourceID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.watched, resourceID)
}

// Wants reports whether an event about resourceID should be delivered.
// Scope-level events (no resource) always are.
func (c *Client) Wants(resourceID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.watched) == 0 || resourceID == "" || c.watched[resourceID]
}

// ReadPump pumps messages from the websocket connection to the hub.
// This method runs in its own goroutine.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister <- c
		_ = c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	if err := c.Conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error("failed to set read deadline", "error", err)
		return
	}

	c.Conn.SetPongHandler(func(string) error {
		if err := c.Conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			c.logger.Error("failed to set read deadline in pong handler", "error", err)
		}
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read error", "error", err)
			}
			break
		}

		c.handleIncomingMessage(message)
	}
}

// WritePump pumps messages from the hub to the websocket connection.
// This method runs in its own goroutine.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.Send:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error("failed to set write deadline", "error", err)
				return
			}

			if !ok {
				// The hub closed the channel.
				if err := c.Conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					c.logger.Debug("failed to send close message", "error", err)
				}
				return
			}

			if err := c.Conn.WriteJSON(event); err != nil {
				c.logger.Error("failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error("failed to set write deadline for ping", "error", err)
				return
			}

			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debug("failed to send ping", "error", err)
				return
			}
		}
	}
}

// ClientMessage is the structure for messages sent from the client.
type ClientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// WatchPayload is the payload for WATCH_TICKET/UNWATCH_TICKET messages
type WatchPayload struct {
	ResourceID string `json:"resourceId"`
}

func (c *Client) handleIncomingMessage(message []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		c.logger.Warn("failed to unmarshal client message", "error", err)
		return
	}

	switch msg.Type {
	case "WATCH_TICKET", "UNWATCH_TICKET":
		var p WatchPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil || p.ResourceID == "" {
			c.logger.Warn("invalid watch payload", "type", msg.Type)
			return
		}
		if msg.Type == "WATCH_TICKET" {
			c.Watch(p.ResourceID)
		} else {
			c.Unwatch(p.ResourceID)
		}

	case "PING":
		c.sendPong()

	default:
		c.logger.Debug("received unknown message type", "type", msg.Type)
	}
}

func (c *Client) sendPong() {
	select {
	case c.Send <- domain.Event{Type: domain.EventPong, ScopeID: c.ScopeID}:
	default:
	}
}
