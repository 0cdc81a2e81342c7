package ports

import (
	"context"

	"github.com/lorrc/ticket-broker/internal/core/domain"
)

// CreateSessionParams describes the channel to materialize for a ticket.
type CreateSessionParams struct {
	ScopeID    string
	OwnerID    string
	Name       string
	CategoryID string
	Overwrites []domain.Overwrite
}

// ResourceGateway creates, deletes and posts to the channels backing
// tickets. Implementations classify failures as errors.ErrPermissionDenied,
// errors.ErrInvalidTarget, errors.ErrNotFound or errors.ErrTransientFailure.
type ResourceGateway interface {
	CreateSession(ctx context.Context, params CreateSessionParams) (string, error)
	// DeleteSession removes the channel. Callers treat errors.ErrNotFound
	// as success.
	DeleteSession(ctx context.Context, resourceID, reason string) error
	PostNotice(ctx context.Context, channelID string, notice domain.Notice) (string, error)
	ResolveCategory(ctx context.Context, scopeID, name string) (string, bool, error)
	CreateCategory(ctx context.Context, scopeID, name string, overwrites []domain.Overwrite) (string, error)
}
