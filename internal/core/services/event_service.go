package services

import (
	"context"

	"github.com/lorrc/ticket-broker/internal/core/domain"
	apperrors "github.com/lorrc/ticket-broker/internal/core/errors"
	"github.com/lorrc/ticket-broker/internal/core/ports"
)

// Audit log page sizes.
const (
	DefaultEventPageSize = 50
	MaxEventPageSize     = 200
)

// EventService reads and appends the lifecycle audit log. Without a
// repository every call fails with ErrUnavailable.
type EventService struct {
	eventRepo ports.TicketEventRepository
}

var (
	_ ports.EventService  = (*EventService)(nil)
	_ ports.EventRecorder = (*EventService)(nil)
)

// NewEventService creates a new event service. eventRepo may be nil.
func NewEventService(eventRepo ports.TicketEventRepository) *EventService {
	return &EventService{eventRepo: eventRepo}
}

// ListScopeEvents retrieves a scope's events after the given cursor.
func (s *EventService) ListScopeEvents(ctx context.Context, scopeID string, afterID int64, limit int) ([]*domain.Event, error) {
	if s.eventRepo == nil {
		return nil, apperrors.ErrUnavailable
	}
	if afterID < 0 {
		afterID = 0
	}
	if limit <= 0 {
		limit = DefaultEventPageSize
	}
	if limit > MaxEventPageSize {
		limit = MaxEventPageSize
	}
	return s.eventRepo.ListByScope(ctx, scopeID, afterID, limit)
}

// Record appends the event to the audit log.
func (s *EventService) Record(ctx context.Context, event domain.Event) error {
	if s.eventRepo == nil {
		return apperrors.ErrUnavailable
	}
	_, err := s.eventRepo.Create(ctx, &event)
	return err
}
