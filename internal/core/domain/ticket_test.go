package domain_test

import (
	"testing"
	"time"

	"github.com/lorrc/ticket-broker/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTicketState_IsValid(t *testing.T) {
	tests := []struct {
		name  string
		state domain.TicketState
		want  bool
	}{
		{"RESERVED is valid", domain.StateReserved, true},
		{"OPEN is valid", domain.StateOpen, true},
		{"CLOSING is valid", domain.StateClosing, true},
		{"DELETED is valid", domain.StateDeleted, true},
		{"empty is invalid", domain.TicketState(""), false},
		{"lowercase is invalid", domain.TicketState("open"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.state.IsValid())
		})
	}
}

func TestTicketState_CanTransitionTo(t *testing.T) {
	tests := []struct {
		name string
		from domain.TicketState
		to   domain.TicketState
		want bool
	}{
		{"RESERVED to OPEN", domain.StateReserved, domain.StateOpen, true},
		{"RESERVED to DELETED", domain.StateReserved, domain.StateDeleted, true},
		{"RESERVED to CLOSING", domain.StateReserved, domain.StateClosing, false},
		{"OPEN to CLOSING", domain.StateOpen, domain.StateClosing, true},
		{"OPEN to DELETED", domain.StateOpen, domain.StateDeleted, true},
		{"OPEN to RESERVED", domain.StateOpen, domain.StateReserved, false},
		{"CLOSING to DELETED", domain.StateClosing, domain.StateDeleted, true},
		{"CLOSING to OPEN", domain.StateClosing, domain.StateOpen, false},
		{"CLOSING to CLOSING", domain.StateClosing, domain.StateClosing, false},
		{"DELETED to OPEN", domain.StateDeleted, domain.StateOpen, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestTicketState_IsActive(t *testing.T) {
	assert.True(t, domain.StateReserved.IsActive())
	assert.True(t, domain.StateOpen.IsActive())
	assert.True(t, domain.StateClosing.IsActive())
	assert.False(t, domain.StateDeleted.IsActive())
}

func TestTicket_Lifecycle(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	ticket := domain.NewReservation("tok-1", "guild-1", "user-1", "alice", now)

	assert.Equal(t, domain.StateReserved, ticket.State)
	assert.Equal(t, "tok-1", ticket.ReservationToken)
	assert.Empty(t, ticket.ResourceID)

	require.NoError(t, ticket.Promote("chan-1", 3))
	assert.Equal(t, domain.StateOpen, ticket.State)
	assert.Equal(t, "chan-1", ticket.ResourceID)
	assert.Equal(t, uint64(3), ticket.SequenceNumber)
	assert.Empty(t, ticket.ReservationToken)
	assert.Equal(t, "alice-3", ticket.ChannelName())

	assert.ErrorIs(t, ticket.Promote("chan-2", 4), domain.ErrInvalidStateTransition)

	require.NoError(t, ticket.MarkClosing("admin-1", now.Add(time.Minute)))
	assert.Equal(t, domain.StateClosing, ticket.State)
	assert.Equal(t, "admin-1", ticket.ClosedBy)
	require.NotNil(t, ticket.ClosingAt)

	assert.ErrorIs(t, ticket.MarkClosing("admin-2", now), domain.ErrInvalidStateTransition)
	assert.Equal(t, "admin-1", ticket.ClosedBy)

	require.NoError(t, ticket.MarkDeleted())
	assert.Equal(t, domain.StateDeleted, ticket.State)
	assert.ErrorIs(t, ticket.MarkDeleted(), domain.ErrInvalidStateTransition)
}

func TestTicket_IsOwnedBy(t *testing.T) {
	ticket := &domain.Ticket{ScopeID: "guild-1", OwnerID: "user-1"}

	assert.True(t, ticket.IsOwnedBy("guild-1", "user-1"))
	assert.False(t, ticket.IsOwnedBy("guild-2", "user-1"))
	assert.False(t, ticket.IsOwnedBy("guild-1", "user-2"))
}

func TestNormalizeLabel(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"Alice", "alice"},
		{"Bob_The-Builder 42", "bobthebuilder42"},
		{"ÉLODIE", "lodie"},
		{"___", domain.FallbackLabel},
		{"", domain.FallbackLabel},
		{"🎫🎫", domain.FallbackLabel},
		{"already0k", "already0k"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.NormalizeLabel(tt.raw))
		})
	}
}

func TestCaller_CanManageTickets(t *testing.T) {
	tests := []struct {
		name   string
		caller domain.Caller
		want   bool
	}{
		{"plain member", domain.Caller{UserID: "u1", ScopeOwnerID: "owner"}, false},
		{"manage channels", domain.Caller{UserID: "u1", CanManageChannels: true}, true},
		{"administrator", domain.Caller{UserID: "u1", IsAdministrator: true}, true},
		{"scope owner", domain.Caller{UserID: "owner", ScopeOwnerID: "owner"}, true},
		{"unknown scope owner", domain.Caller{UserID: "", ScopeOwnerID: ""}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.caller.CanManageTickets())
		})
	}
}

func TestCapabilitySet(t *testing.T) {
	set := domain.Capabilities(domain.CapView, domain.CapSend)

	assert.True(t, set.Has(domain.CapView))
	assert.True(t, set.Has(domain.CapSend))
	assert.False(t, set.Has(domain.CapManageResource))
	assert.Equal(t, "VIEW|SEND", set.String())
	assert.True(t, domain.CapabilitySet(0).IsEmpty())
	assert.Len(t, domain.AllCapabilities(), 6)
}

func TestTicketOverwrites(t *testing.T) {
	t.Run("includes scope owner", func(t *testing.T) {
		overwrites := domain.TicketOverwrites("guild-1", "user-1", "owner-1")
		require.Len(t, overwrites, 4)

		assert.Equal(t, domain.PrincipalEveryone, overwrites[0].Principal.Kind)
		assert.Equal(t, "guild-1", overwrites[0].Principal.ID)
		assert.True(t, overwrites[0].Deny.Has(domain.CapView))

		assert.Equal(t, domain.Principal{Kind: domain.PrincipalMember, ID: "user-1"}, overwrites[1].Principal)
		assert.Equal(t, domain.OwnerCapabilities, overwrites[1].Allow)

		assert.Equal(t, domain.PrincipalSelf, overwrites[2].Principal.Kind)
		assert.True(t, overwrites[2].Allow.Has(domain.CapManageResource))

		assert.Equal(t, "owner-1", overwrites[3].Principal.ID)
	})

	t.Run("owner opening their own ticket", func(t *testing.T) {
		overwrites := domain.TicketOverwrites("guild-1", "owner-1", "owner-1")
		assert.Len(t, overwrites, 3)
	})
}
