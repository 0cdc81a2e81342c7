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

// PanelHandler reads and (re)posts a scope's ticket panel.
type PanelHandler struct {
	lifecycle    ports.LifecycleService
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

func NewPanelHandler(lifecycle ports.LifecycleService, errorHandler *ErrorHandler, logger *slog.Logger) *PanelHandler {
	return &PanelHandler{
		lifecycle:    lifecycle,
		errorHandler: errorHandler,
		logger:       logger.With("handler", "panel"),
	}
}

// RegisterScopeRoutes mounts the routes under /scopes/{scopeID}.
func (h *PanelHandler) RegisterScopeRoutes(r chi.Router) {
	r.Get("/panel", h.HandleGetPanel)
	r.Put("/panel", h.HandlePutPanel)
}

// ConfigurePanelRequest defines the expected JSON body for PUT /panel
type ConfigurePanelRequest struct {
	ChannelID string `json:"channelId"`
	Body      string `json:"body"`
	RoleID    string `json:"roleId"`
}

// Validate validates the configure panel request
func (r *ConfigurePanelRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("channelId", r.ChannelID).
		Snowflake("channelId", r.ChannelID).
		Snowflake("roleId", r.RoleID).
		MaxLength("body", r.Body, domain.MaxPanelBodyLength)

	return v.Err()
}

// HandleGetPanel handles GET /scopes/{scopeID}/panel
func (h *PanelHandler) HandleGetPanel(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r)
	if !ok {
		return
	}
	caller, err := scopeCaller(r, claims)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	panel, found := h.lifecycle.GetPanel(caller.ScopeID)
	if !found {
		h.errorHandler.Handle(w, r, apperrors.NewNotFoundError(apperrors.ErrNotFound, "No panel is configured for this server"))
		return
	}

	WriteJSON(w, http.StatusOK, toPanelDTO(panel))
}

// HandlePutPanel handles PUT /scopes/{scopeID}/panel
func (h *PanelHandler) HandlePutPanel(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r)
	if !ok {
		return
	}
	caller, err := scopeCaller(r, claims)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	req, err := validation.DecodeAndValidate[ConfigurePanelRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	panel, err := h.lifecycle.ConfigurePanel(r.Context(), ports.ConfigurePanelParams{
		Caller:          caller,
		NotifyChannelID: req.ChannelID,
		BodyText:        req.Body,
		NotifyRoleID:    req.RoleID,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "panel configured",
		"channel_id", panel.NotifyChannelID,
		"message_id", panel.MessageID,
	)

	WriteJSON(w, http.StatusOK, toPanelDTO(panel))
}
