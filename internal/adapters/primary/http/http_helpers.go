package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	mw "github.com/lorrc/ticket-broker/internal/adapters/primary/http/middleware"
	"github.com/lorrc/ticket-broker/internal/auth"
	"github.com/lorrc/ticket-broker/internal/core/domain"
	apperrors "github.com/lorrc/ticket-broker/internal/core/errors"
)

// getClaims extracts the validated claims, writing a 401 when absent.
func getClaims(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
	claims, ok := mw.GetClaims(r.Context())
	if !ok {
		WriteJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error: "Not authorized",
			Code:  "UNAUTHORIZED",
		})
		return nil, false
	}
	return claims, true
}

// scopeCaller returns the caller for the {scopeID} in the path. Tokens are
// bound to one guild, so any other guild is forbidden.
func scopeCaller(r *http.Request, claims *auth.Claims) (domain.Caller, error) {
	if chi.URLParam(r, "scopeID") != claims.ScopeID {
		return domain.Caller{}, apperrors.ErrForbidden
	}
	return claims.Caller(), nil
}

// TicketDTO defines the JSON response for tickets.
type TicketDTO struct {
	ResourceID     string  `json:"resourceId,omitempty"`
	ScopeID        string  `json:"scopeId"`
	OwnerID        string  `json:"ownerId"`
	SequenceNumber uint64  `json:"sequenceNumber,omitempty"`
	ChannelName    string  `json:"channelName,omitempty"`
	State          string  `json:"state"`
	CreatedAt      string  `json:"createdAt"`
	ClosedBy       string  `json:"closedBy,omitempty"`
	ClosingAt      *string `json:"closingAt,omitempty"`
}

func toTicketDTO(t domain.Ticket) TicketDTO {
	dto := TicketDTO{
		ResourceID:     t.ResourceID,
		ScopeID:        t.ScopeID,
		OwnerID:        t.OwnerID,
		SequenceNumber: t.SequenceNumber,
		State:          string(t.State),
		CreatedAt:      t.CreatedAt.Format(time.RFC3339),
		ClosedBy:       t.ClosedBy,
	}
	if t.SequenceNumber > 0 {
		dto.ChannelName = t.ChannelName()
	}
	if t.ClosingAt != nil {
		value := t.ClosingAt.Format(time.RFC3339)
		dto.ClosingAt = &value
	}
	return dto
}

func toTicketDTOs(tickets []domain.Ticket) []TicketDTO {
	response := make([]TicketDTO, 0, len(tickets))
	for _, t := range tickets {
		response = append(response, toTicketDTO(t))
	}
	return response
}

// PanelDTO defines the JSON response for a scope's panel.
type PanelDTO struct {
	ScopeID         string `json:"scopeId"`
	NotifyChannelID string `json:"channelId"`
	MessageID       string `json:"messageId"`
	NotifyRoleID    string `json:"roleId,omitempty"`
	BodyText        string `json:"body"`
	UpdatedAt       string `json:"updatedAt"`
}

func toPanelDTO(p domain.PanelConfig) PanelDTO {
	return PanelDTO{
		ScopeID:         p.ScopeID,
		NotifyChannelID: p.NotifyChannelID,
		MessageID:       p.MessageID,
		NotifyRoleID:    p.NotifyRoleID,
		BodyText:        p.BodyText,
		UpdatedAt:       p.UpdatedAt.Format(time.RFC3339),
	}
}
