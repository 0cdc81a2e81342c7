package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/lorrc/ticket-broker/internal/core/domain"
	"github.com/lorrc/ticket-broker/internal/core/ports"
)

// TicketEventRepository handles persistence for lifecycle events.
type TicketEventRepository struct {
	db DBTX
}

var _ ports.TicketEventRepository = (*TicketEventRepository)(nil)

// NewTicketEventRepository creates a repository over a pool, or over a
// transaction when writes must commit together.
func NewTicketEventRepository(db DBTX) *TicketEventRepository {
	return &TicketEventRepository{db: db}
}

const createTicketEvent = `
INSERT INTO ticket_events (type, scope_id, resource_id, actor_id, payload, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, type, scope_id, resource_id, actor_id, payload, occurred_at`

const listTicketEventsByScope = `
SELECT id, type, scope_id, resource_id, actor_id, payload, occurred_at
FROM ticket_events
WHERE scope_id = $1 AND id > $2
ORDER BY id
LIMIT $3`

func scanTicketEvent(row pgx.Row) (*domain.Event, error) {
	var (
		event     domain.Event
		eventType string
		payload   []byte
	)
	if err := row.Scan(
		&event.ID,
		&eventType,
		&event.ScopeID,
		&event.ResourceID,
		&event.ActorID,
		&payload,
		&event.OccurredAt,
	); err != nil {
		return nil, err
	}
	event.Type = domain.EventType(eventType)
	event.Payload = json.RawMessage(payload)
	event.OccurredAt = event.OccurredAt.UTC()
	return &event, nil
}

// Create persists a new lifecycle event.
func (r *TicketEventRepository) Create(ctx context.Context, event *domain.Event) (*domain.Event, error) {
	payload := []byte(event.Payload)
	if len(payload) == 0 {
		payload = []byte("{}")
	}

	row := r.db.QueryRow(ctx, createTicketEvent,
		string(event.Type),
		event.ScopeID,
		event.ResourceID,
		event.ActorID,
		payload,
		event.OccurredAt,
	)

	created, err := scanTicketEvent(row)
	if err != nil {
		return nil, fmt.Errorf("insert ticket event: %w", err)
	}
	return created, nil
}

// ListByScope retrieves a scope's events after a cursor.
func (r *TicketEventRepository) ListByScope(ctx context.Context, scopeID string, afterID int64, limit int) ([]*domain.Event, error) {
	rows, err := r.db.Query(ctx, listTicketEventsByScope, scopeID, afterID, int32(limit))
	if err != nil {
		return nil, fmt.Errorf("list ticket events: %w", err)
	}
	defer rows.Close()

	events := make([]*domain.Event, 0, limit)
	for rows.Next() {
		event, err := scanTicketEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}
