package ports

import (
	"context"
	"time"

	"github.com/lorrc/ticket-broker/internal/core/domain"
)

// TicketRegistry is the authoritative set of active tickets. It enforces
// that an owner holds at most one Reserved, Open or Closing ticket per scope.
// Every returned ticket is a copy.
type TicketRegistry interface {
	// Reserve claims the owner's slot. It fails with a
	// *errors.DuplicateTicketError when the slot is taken.
	Reserve(scopeID, ownerID, label string, now time.Time) (domain.Ticket, error)
	// Promote binds a reservation to its resource and opens it. Any
	// failure drops the reservation. It fails with errors.ErrResourceInUse
	// when another ticket already holds resourceID.
	Promote(token, resourceID string, sequence uint64) (domain.Ticket, error)
	// Abandon drops a reservation. Unknown tokens are ignored.
	Abandon(token string)
	FindByResource(resourceID string) (domain.Ticket, bool)
	FindByOwner(scopeID, ownerID string) (domain.Ticket, bool)
	// MarkClosing moves an Open ticket to Closing.
	MarkClosing(resourceID, closedBy string, at time.Time) (domain.Ticket, error)
	// Remove deletes the entry for resourceID. It reports whether anything
	// was removed and is safe to repeat.
	Remove(resourceID string) (domain.Ticket, bool)
	ListByScope(scopeID string) []domain.Ticket
}

// NumberAllocator issues per-(scope, owner) sequence numbers.
type NumberAllocator interface {
	Next(scopeID, ownerID string) uint64
	// Rollback returns n to the pool only if it is still the last number
	// issued for the pair.
	Rollback(scopeID, ownerID string, n uint64) bool
	Current(scopeID, ownerID string) uint64
}

// PanelConfigStore keeps one panel configuration per scope.
type PanelConfigStore interface {
	Put(cfg domain.PanelConfig)
	Get(scopeID string) (domain.PanelConfig, bool)
}

// TicketEventRepository appends lifecycle events to the audit log.
type TicketEventRepository interface {
	Create(ctx context.Context, event *domain.Event) (*domain.Event, error)
	ListByScope(ctx context.Context, scopeID string, afterID int64, limit int) ([]*domain.Event, error)
}

// EventRecorder receives every lifecycle event after it happens. The audit
// log and the queue sink both implement it.
type EventRecorder interface {
	Record(ctx context.Context, event domain.Event) error
}

// EventBroadcaster defines the port for pushing real-time events.
type EventBroadcaster interface {
	Broadcast(event domain.Event) error
}
