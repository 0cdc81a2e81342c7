// Package memory holds the process-local stores backing the lifecycle
// service. Nothing here survives a restart.
package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lorrc/ticket-broker/internal/core/domain"
	apperrors "github.com/lorrc/ticket-broker/internal/core/errors"
	"github.com/lorrc/ticket-broker/internal/core/ports"
)

// TicketRegistry is an in-memory ports.TicketRegistry.
//
// Reservations are keyed by token until promoted, then by resource id.
// The (scope, owner) index covers both, which is what makes the duplicate
// check and the slot claim a single step.
type TicketRegistry struct {
	mu         sync.RWMutex
	byToken    map[string]*domain.Ticket
	byResource map[string]*domain.Ticket
	byScope    map[string]map[string]*domain.Ticket // scope -> owner -> ticket
	// tombstones holds resource ids reported deleted while reservations
	// were pending, so a late Promote cannot resurrect them.
	tombstones map[string]struct{}
	newToken   func() string
}

var _ ports.TicketRegistry = (*TicketRegistry)(nil)

// NewTicketRegistry creates an empty registry.
func NewTicketRegistry() *TicketRegistry {
	return &TicketRegistry{
		byToken:    make(map[string]*domain.Ticket),
		byResource: make(map[string]*domain.Ticket),
		byScope:    make(map[string]map[string]*domain.Ticket),
		tombstones: make(map[string]struct{}),
		newToken:   func() string { return uuid.NewString() },
	}
}

func (r *TicketRegistry) Reserve(scopeID, ownerID, label string, now time.Time) (domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byScope[scopeID][ownerID]; ok {
		return domain.Ticket{}, &apperrors.DuplicateTicketError{
			ScopeID:    scopeID,
			OwnerID:    ownerID,
			ResourceID: existing.ResourceID,
			State:      string(existing.State),
		}
	}

	t := domain.NewReservation(r.newToken(), scopeID, ownerID, label, now)
	r.byToken[t.ReservationToken] = t
	owners, ok := r.byScope[scopeID]
	if !ok {
		owners = make(map[string]*domain.Ticket)
		r.byScope[scopeID] = owners
	}
	owners[ownerID] = t

	return copyTicket(t), nil
}

// Promote drops the reservation on every failure, so the owner can retry.
// ErrResourceInUse means another ticket already holds resourceID.
func (r *TicketRegistry) Promote(token, resourceID string, sequence uint64) (domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.byToken[token]
	if !ok {
		return domain.Ticket{}, apperrors.ErrReservationNotFound
	}

	if _, gone := r.tombstones[resourceID]; gone {
		delete(r.tombstones, resourceID)
		r.dropReservation(t)
		return domain.Ticket{}, apperrors.ErrStateConflict
	}
	if _, taken := r.byResource[resourceID]; taken {
		r.dropReservation(t)
		return domain.Ticket{}, apperrors.ErrResourceInUse
	}

	if err := t.Promote(resourceID, sequence); err != nil {
		r.dropReservation(t)
		return domain.Ticket{}, apperrors.ErrStateConflict
	}
	delete(r.byToken, token)
	r.byResource[resourceID] = t
	r.clearTombstonesIfIdle()

	return copyTicket(t), nil
}

func (r *TicketRegistry) Abandon(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.byToken[token]; ok {
		r.dropReservation(t)
	}
}

func (r *TicketRegistry) FindByResource(resourceID string) (domain.Ticket, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.byResource[resourceID]
	if !ok {
		return domain.Ticket{}, false
	}
	return copyTicket(t), true
}

func (r *TicketRegistry) FindByOwner(scopeID, ownerID string) (domain.Ticket, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.byScope[scopeID][ownerID]
	if !ok {
		return domain.Ticket{}, false
	}
	return copyTicket(t), true
}

func (r *TicketRegistry) MarkClosing(resourceID, closedBy string, at time.Time) (domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.byResource[resourceID]
	if !ok {
		return domain.Ticket{}, apperrors.ErrStateConflict
	}
	if err := t.MarkClosing(closedBy, at); err != nil {
		return domain.Ticket{}, apperrors.ErrStateConflict
	}
	return copyTicket(t), nil
}

// Remove returns the removed ticket in state Deleted.
func (r *TicketRegistry) Remove(resourceID string) (domain.Ticket, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.byResource[resourceID]
	if !ok {
		if len(r.byToken) > 0 {
			r.tombstones[resourceID] = struct{}{}
		}
		return domain.Ticket{}, false
	}

	delete(r.byResource, resourceID)
	r.unindexOwner(t)
	_ = t.MarkDeleted()

	return copyTicket(t), true
}

// ListByScope returns the scope's tickets ordered by creation time.
func (r *TicketRegistry) ListByScope(scopeID string) []domain.Ticket {
	r.mu.RLock()
	owners := r.byScope[scopeID]
	out := make([]domain.Ticket, 0, len(owners))
	for _, t := range owners {
		out = append(out, copyTicket(t))
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].OwnerID < out[j].OwnerID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Len returns the number of tracked tickets, reservations included.
func (r *TicketRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byToken) + len(r.byResource)
}

// dropReservation must be called with mu held.
func (r *TicketRegistry) dropReservation(t *domain.Ticket) {
	delete(r.byToken, t.ReservationToken)
	r.unindexOwner(t)
	r.clearTombstonesIfIdle()
}

func (r *TicketRegistry) unindexOwner(t *domain.Ticket) {
	owners := r.byScope[t.ScopeID]
	if owners[t.OwnerID] != t {
		return
	}
	delete(owners, t.OwnerID)
	if len(owners) == 0 {
		delete(r.byScope, t.ScopeID)
	}
}

func (r *TicketRegistry) clearTombstonesIfIdle() {
	if len(r.byToken) == 0 && len(r.tombstones) > 0 {
		r.tombstones = make(map[string]struct{})
	}
}

func copyTicket(t *domain.Ticket) domain.Ticket {
	c := *t
	if t.ClosingAt != nil {
		at := *t.ClosingAt
		c.ClosingAt = &at
	}
	return c
}
