package domain

import (
	"errors"
	"fmt"
	"time"
)

// Pre-defined errors for domain-specific validation.
var (
	ErrInvalidStateTransition = errors.New("invalid state transition")
)

// TicketState represents the lifecycle position of a ticket.
type TicketState string

const (
	StateReserved TicketState = "RESERVED"
	StateOpen     TicketState = "OPEN"
	StateClosing  TicketState = "CLOSING"
	StateDeleted  TicketState = "DELETED"
)

// validTransitions lists the forward-only moves of the lifecycle.
var validTransitions = map[TicketState][]TicketState{
	StateReserved: {StateOpen, StateDeleted},
	StateOpen:     {StateClosing, StateDeleted},
	StateClosing:  {StateDeleted},
	StateDeleted:  {},
}

// IsValid reports whether s is a known state.
func (s TicketState) IsValid() bool {
	_, ok := validTransitions[s]
	return ok
}

// IsActive reports whether a ticket in state s still occupies its owner's slot.
func (s TicketState) IsActive() bool {
	return s == StateReserved || s == StateOpen || s == StateClosing
}

// CanTransitionTo reports whether the lifecycle allows moving from s to next.
func (s TicketState) CanTransitionTo(next TicketState) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Ticket is one tracked support session and its external channel binding.
type Ticket struct {
	ResourceID       string
	ReservationToken string
	ScopeID          string
	OwnerID          string
	SequenceNumber   uint64
	DisplayLabel     string
	State            TicketState
	CreatedAt        time.Time
	ClosedBy         string
	ClosingAt        *time.Time
}

// NewReservation creates the placeholder ticket that claims an owner's slot
// before the external channel exists.
func NewReservation(token, scopeID, ownerID, label string, now time.Time) *Ticket {
	return &Ticket{
		ReservationToken: token,
		ScopeID:          scopeID,
		OwnerID:          ownerID,
		DisplayLabel:     label,
		State:            StateReserved,
		CreatedAt:        now.UTC(),
	}
}

// Promote binds the reservation to its real channel and opens it.
func (t *Ticket) Promote(resourceID string, sequence uint64) error {
	if !t.State.CanTransitionTo(StateOpen) {
		return ErrInvalidStateTransition
	}
	t.ResourceID = resourceID
	t.SequenceNumber = sequence
	t.ReservationToken = ""
	t.State = StateOpen
	return nil
}

// MarkClosing records who closed the ticket and when.
func (t *Ticket) MarkClosing(closedBy string, at time.Time) error {
	if !t.State.CanTransitionTo(StateClosing) {
		return ErrInvalidStateTransition
	}
	at = at.UTC()
	t.State = StateClosing
	t.ClosedBy = closedBy
	t.ClosingAt = &at
	return nil
}

// MarkDeleted is the terminal transition. The caller drops the ticket from
// any index right after.
func (t *Ticket) MarkDeleted() error {
	if !t.State.CanTransitionTo(StateDeleted) {
		return ErrInvalidStateTransition
	}
	t.State = StateDeleted
	return nil
}

// IsOwnedBy checks if the ticket belongs to the given user in the given scope.
func (t *Ticket) IsOwnedBy(scopeID, ownerID string) bool {
	return t.ScopeID == scopeID && t.OwnerID == ownerID
}

// ChannelName is the external name of the ticket channel.
func (t *Ticket) ChannelName() string {
	return ChannelName(t.DisplayLabel, t.SequenceNumber)
}

// ChannelName joins a normalized label and a sequence number.
func ChannelName(label string, sequence uint64) string {
	return fmt.Sprintf("%s-%d", label, sequence)
}
