package ports

import (
	"context"

	"github.com/lorrc/ticket-broker/internal/core/domain"
)

// OpenResult is the outcome of a successful open.
type OpenResult struct {
	Ticket domain.Ticket
	// NoticeErr is set when the welcome notice could not be delivered.
	// The ticket is still open.
	NoticeErr error
}

// CloseParams defines the input for closing a ticket. An empty ResourceID
// targets the channel the caller issued the command from.
type CloseParams struct {
	Caller     domain.Caller
	ResourceID string
}

// ConfigurePanelParams defines the input for (re)configuring a scope's panel.
type ConfigurePanelParams struct {
	Caller          domain.Caller
	NotifyChannelID string
	BodyText        string
	NotifyRoleID    string
}

// LifecycleService orchestrates the ticket lifecycle.
type LifecycleService interface {
	OpenTicket(ctx context.Context, caller domain.Caller) (*OpenResult, error)
	CloseTicket(ctx context.Context, params CloseParams) (domain.Ticket, error)
	CancelDeletion(resourceID string) bool
	HandleResourceDeleted(ctx context.Context, resourceID string) bool
	ConfigurePanel(ctx context.Context, params ConfigurePanelParams) (domain.PanelConfig, error)
	GetPanel(scopeID string) (domain.PanelConfig, bool)
	GetTicket(resourceID string) (domain.Ticket, bool)
	ListTickets(scopeID string) []domain.Ticket
	Shutdown(ctx context.Context) error
}

// EventService defines the port for audit log queries.
type EventService interface {
	ListScopeEvents(ctx context.Context, scopeID string, afterID int64, limit int) ([]*domain.Event, error)
}
