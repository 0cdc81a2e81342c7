package websocket

import (
	"context"
	"log/slog"
	"sync"

	"github.com/lorrc/ticket-broker/internal/core/domain"
	"github.com/lorrc/ticket-broker/internal/core/ports"
)

// Hub maintains the set of active Clients and fans lifecycle events out to
// the clients of the event's scope.
type Hub struct {
	// rooms maps scope IDs to the clients watching that scope
	rooms map[string]map[*Client]bool

	// Broadcast channel for events
	broadcast chan domain.Event

	// Register requests from clients
	Register chan *Client

	// Unregister requests from clients
	Unregister chan *Client

	// mu protects rooms
	mu sync.RWMutex

	logger *slog.Logger
}

// Ensure Hub implements the EventBroadcaster interface.
var _ ports.EventBroadcaster = (*Hub)(nil)

// NewHub creates a new WebSocket hub
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		broadcast:  make(chan domain.Event, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		logger:     logger.With("component", "websocket_hub"),
	}
}

// Broadcast queues an event for delivery. A full queue drops the event.
func (h *Hub) Broadcast(event domain.Event) error {
	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn("broadcast channel full, dropping event",
			"event_type", event.Type,
			"scope_id", event.ScopeID,
			"resource_id", event.ResourceID,
		)
	}
	return nil
}

// Run starts the hub's event loop and returns when ctx is done, closing
// every remaining client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.Register:
			h.registerClient(client)

		case client := <-h.Unregister:
			h.unregisterClient(client)

		case event := <-h.broadcast:
			h.broadcastEvent(event)

		case <-ctx.Done():
			h.closeAll()
			return
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rooms[client.ScopeID] == nil {
		h.rooms[client.ScopeID] = make(map[*Client]bool)
	}
	h.rooms[client.ScopeID][client] = true

	h.logger.Info("client registered",
		"user_id", client.UserID,
		"scope_id", client.ScopeID,
		"scope_connections", len(h.rooms[client.ScopeID]),
	)
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeLocked(client)
}

func (h *Hub) removeLocked(client *Client) {
	room, ok := h.rooms[client.ScopeID]
	if !ok {
		return
	}
	if _, exists := room[client]; !exists {
		return
	}

	delete(room, client)
	if len(room) == 0 {
		delete(h.rooms, client.ScopeID)
	}
	client.CloseSend()

	h.logger.Info("client unregistered",
		"user_id", client.UserID,
		"scope_id", client.ScopeID,
	)
}

// broadcastEvent sends an event to every client of its scope that wants it.
func (h *Hub) broadcastEvent(event domain.Event) {
	h.mu.RLock()
	room := h.rooms[event.ScopeID]
	clients := make([]*Client, 0, len(room))
	for client := range room {
		if client.Wants(event.ResourceID) {
			clients = append(clients, client)
		}
	}
	h.mu.RUnlock()

	h.logger.Debug("broadcasting event",
		"event_type", event.Type,
		"scope_id", event.ScopeID,
		"client_count", len(clients),
	)

	var slow []*Client
	for _, client := range clients {
		select {
		case client.Send <- event:
		default:
			slow = append(slow, client)
		}
	}

	if len(slow) == 0 {
		return
	}
	h.mu.Lock()
	for _, client := range slow {
		h.logger.Warn("client send buffer full, unregistering", "user_id", client.UserID)
		h.removeLocked(client)
	}
	h.mu.Unlock()
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for scopeID, room := range h.rooms {
		for client := range room {
			client.CloseSend()
		}
		delete(h.rooms, scopeID)
	}
}

// GetClientCount returns the total number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	count := 0
	for _, room := range h.rooms {
		count += len(room)
	}
	return count
}

// GetClientsInScope returns the number of clients watching a scope
func (h *Hub) GetClientsInScope(scopeID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[scopeID])
}
