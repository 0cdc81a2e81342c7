package domain

import (
	"encoding/json"
	"time"
)

// EventType defines the type of lifecycle event.
type EventType string

const (
	EventTicketOpened     EventType = "TICKET_OPENED"
	EventTicketClosing    EventType = "TICKET_CLOSING"
	EventTicketDeleted    EventType = "TICKET_DELETED"
	EventTicketReconciled EventType = "TICKET_RECONCILED"
	EventPanelConfigured  EventType = "PANEL_CONFIGURED"
	EventPong             EventType = "PONG"
)

// Event is broadcast to subscribers and appended to the audit log.
type Event struct {
	ID         int64           `json:"id,omitempty"`
	Type       EventType       `json:"type"`
	ScopeID    string          `json:"scopeId"`
	ResourceID string          `json:"resourceId,omitempty"`
	ActorID    string          `json:"actorId,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	OccurredAt time.Time       `json:"occurredAt"`
}

// TicketSnapshot is the JSON payload for ticket events.
type TicketSnapshot struct {
	ResourceID     string      `json:"resourceId"`
	OwnerID        string      `json:"ownerId"`
	SequenceNumber uint64      `json:"sequenceNumber"`
	ChannelName    string      `json:"channelName"`
	State          TicketState `json:"state"`
	CreatedAt      time.Time   `json:"createdAt"`
	ClosedBy       string      `json:"closedBy,omitempty"`
}

// NewTicketEvent builds an event carrying a snapshot of t.
func NewTicketEvent(eventType EventType, t *Ticket, actorID string, at time.Time) Event {
	payload, _ := json.Marshal(TicketSnapshot{
		ResourceID:     t.ResourceID,
		OwnerID:        t.OwnerID,
		SequenceNumber: t.SequenceNumber,
		ChannelName:    t.ChannelName(),
		State:          t.State,
		CreatedAt:      t.CreatedAt,
		ClosedBy:       t.ClosedBy,
	})
	return Event{
		Type:       eventType,
		ScopeID:    t.ScopeID,
		ResourceID: t.ResourceID,
		ActorID:    actorID,
		Payload:    payload,
		OccurredAt: at.UTC(),
	}
}

// NewPanelEvent builds a PANEL_CONFIGURED event.
func NewPanelEvent(p *PanelConfig, actorID string) Event {
	payload, _ := json.Marshal(struct {
		ChannelID string `json:"channelId"`
		MessageID string `json:"messageId"`
		RoleID    string `json:"roleId,omitempty"`
	}{p.NotifyChannelID, p.MessageID, p.NotifyRoleID})
	return Event{
		Type:       EventPanelConfigured,
		ScopeID:    p.ScopeID,
		ActorID:    actorID,
		Payload:    payload,
		OccurredAt: p.UpdatedAt.UTC(),
	}
}
