package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/lorrc/ticket-broker/internal/core/errors"
	"github.com/lorrc/ticket-broker/internal/core/ports"
)

// TicketHandler exposes the ticket lifecycle to operators.
type TicketHandler struct {
	lifecycle    ports.LifecycleService
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

func NewTicketHandler(lifecycle ports.LifecycleService, errorHandler *ErrorHandler, logger *slog.Logger) *TicketHandler {
	return &TicketHandler{
		lifecycle:    lifecycle,
		errorHandler: errorHandler,
		logger:       logger.With("handler", "ticket"),
	}
}

// RegisterScopeRoutes mounts the routes under /scopes/{scopeID}.
func (h *TicketHandler) RegisterScopeRoutes(r chi.Router) {
	r.Get("/tickets", h.HandleListTickets)
	r.Post("/tickets", h.HandleOpenTicket)
}

// RegisterRoutes mounts the routes under /tickets.
func (h *TicketHandler) RegisterRoutes(r chi.Router) {
	r.Route("/{resourceID}", func(r chi.Router) {
		r.Get("/", h.HandleGetTicket)
		r.Post("/close", h.HandleCloseTicket)
		r.Delete("/deletion", h.HandleCancelDeletion)
	})
}

// RegisterResourceRoutes mounts the routes under /resources.
func (h *TicketHandler) RegisterResourceRoutes(r chi.Router) {
	r.Post("/{resourceID}/deleted", h.HandleResourceDeleted)
}

// OpenTicketResponse is returned by POST /scopes/{scopeID}/tickets.
type OpenTicketResponse struct {
	Ticket  TicketDTO `json:"ticket"`
	Warning string    `json:"warning,omitempty"`
}

// HandleOpenTicket handles POST /scopes/{scopeID}/tickets
func (h *TicketHandler) HandleOpenTicket(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r)
	if !ok {
		return
	}
	caller, err := scopeCaller(r, claims)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	result, err := h.lifecycle.OpenTicket(r.Context(), caller)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	resp := OpenTicketResponse{Ticket: toTicketDTO(result.Ticket)}
	if result.NoticeErr != nil {
		resp.Warning = "Ticket opened but the welcome message could not be posted"
	}

	h.logger.InfoContext(r.Context(), "ticket opened",
		"resource_id", result.Ticket.ResourceID,
		"sequence", result.Ticket.SequenceNumber,
	)

	WriteCreated(w, resp)
}

// HandleListTickets handles GET /scopes/{scopeID}/tickets
func (h *TicketHandler) HandleListTickets(w http.ResponseWriter, r *http.Request) {
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

	WriteList(w, toTicketDTOs(h.lifecycle.ListTickets(caller.ScopeID)))
}

// HandleGetTicket handles GET /tickets/{resourceID}
func (h *TicketHandler) HandleGetTicket(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r)
	if !ok {
		return
	}

	ticket, found := h.lifecycle.GetTicket(chi.URLParam(r, "resourceID"))
	if !found || ticket.ScopeID != claims.ScopeID {
		h.errorHandler.Handle(w, r, apperrors.ErrNotFound)
		return
	}
	if ticket.OwnerID != claims.UserID && !claims.Caller().CanManageTickets() {
		h.errorHandler.Handle(w, r, apperrors.ErrNotFound)
		return
	}

	WriteJSON(w, http.StatusOK, toTicketDTO(ticket))
}

// HandleCloseTicket handles POST /tickets/{resourceID}/close
func (h *TicketHandler) HandleCloseTicket(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r)
	if !ok {
		return
	}

	resourceID := chi.URLParam(r, "resourceID")
	ticket, err := h.lifecycle.CloseTicket(r.Context(), ports.CloseParams{
		Caller:     claims.Caller(),
		ResourceID: resourceID,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "ticket closing", "resource_id", resourceID)

	WriteJSON(w, http.StatusAccepted, toTicketDTO(ticket))
}

// HandleCancelDeletion handles DELETE /tickets/{resourceID}/deletion.
// The ticket stays closing until it is closed again.
func (h *TicketHandler) HandleCancelDeletion(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r)
	if !ok {
		return
	}
	if !claims.Caller().CanManageTickets() {
		h.errorHandler.Handle(w, r, apperrors.ErrAuthorizationFailure)
		return
	}

	resourceID := chi.URLParam(r, "resourceID")
	ticket, found := h.lifecycle.GetTicket(resourceID)
	if !found || ticket.ScopeID != claims.ScopeID {
		h.errorHandler.Handle(w, r, apperrors.ErrNotFound)
		return
	}

	if !h.lifecycle.CancelDeletion(resourceID) {
		h.errorHandler.Handle(w, r, apperrors.ErrStateConflict)
		return
	}

	h.logger.InfoContext(r.Context(), "ticket deletion cancelled", "resource_id", resourceID)
	WriteNoContent(w)
}

// ResourceDeletedResponse reports whether a ticket was reconciled.
type ResourceDeletedResponse struct {
	Reconciled bool `json:"reconciled"`
}

// HandleResourceDeleted handles POST /resources/{resourceID}/deleted
func (h *TicketHandler) HandleResourceDeleted(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r)
	if !ok {
		return
	}
	if !claims.Caller().CanManageTickets() {
		h.errorHandler.Handle(w, r, apperrors.ErrAuthorizationFailure)
		return
	}

	resourceID := chi.URLParam(r, "resourceID")
	if ticket, found := h.lifecycle.GetTicket(resourceID); found && ticket.ScopeID != claims.ScopeID {
		h.errorHandler.Handle(w, r, apperrors.ErrForbidden)
		return
	}

	removed := h.lifecycle.HandleResourceDeleted(r.Context(), resourceID)
	WriteJSON(w, http.StatusOK, ResourceDeletedResponse{Reconciled: removed})
}
