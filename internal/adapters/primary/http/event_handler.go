package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lorrc/ticket-broker/internal/adapters/primary/validation"
	"github.com/lorrc/ticket-broker/internal/core/domain"
	apperrors "github.com/lorrc/ticket-broker/internal/core/errors"
	"github.com/lorrc/ticket-broker/internal/core/ports"
)

const maxEventsLimit = 200

// EventHandler serves the lifecycle audit log. A nil service means no
// database is configured.
type EventHandler struct {
	events       ports.EventService
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

func NewEventHandler(events ports.EventService, errorHandler *ErrorHandler, logger *slog.Logger) *EventHandler {
	return &EventHandler{
		events:       events,
		errorHandler: errorHandler,
		logger:       logger.With("handler", "event"),
	}
}

// RegisterScopeRoutes mounts the routes under /scopes/{scopeID}.
func (h *EventHandler) RegisterScopeRoutes(r chi.Router) {
	r.Get("/events", h.HandleListEvents)
}

// HandleListEvents handles GET /scopes/{scopeID}/events?after=&limit=
func (h *EventHandler) HandleListEvents(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r)
	if !ok {
		return
	}
	caller, err := scopeCaller(r, claims)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	if !caller.CanManageTickets() {
		h.errorHandler.Handle(w, r, apperrors.ErrAuthorizationFailure)
		return
	}
	if h.events == nil {
		h.errorHandler.Handle(w, r, apperrors.NewUnavailableError("The audit log is not configured"))
		return
	}

	cursor, err := validation.ParseCursor(r, maxEventsLimit)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	events, err := h.events.ListScopeEvents(r.Context(), caller.ScopeID, cursor.AfterID, cursor.Limit)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	resp := CursorResponse[*domain.Event]{Data: events}
	if resp.Data == nil {
		resp.Data = []*domain.Event{}
	}
	if len(events) > 0 {
		next := events[len(events)-1].ID
		resp.NextCursor = &next
	}

	WriteJSON(w, http.StatusOK, resp)
}
