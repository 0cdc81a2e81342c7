package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	mw "github.com/lorrc/ticket-broker/internal/adapters/primary/http/middleware"
	"github.com/lorrc/ticket-broker/internal/auth"
	"github.com/lorrc/ticket-broker/internal/core/domain"
	apperrors "github.com/lorrc/ticket-broker/internal/core/errors"
	"github.com/lorrc/ticket-broker/internal/core/mocks"
	"github.com/lorrc/ticket-broker/internal/core/ports"
)

const (
	guildID = "100000000000000001"
	userID  = "200000000000000002"
	modID   = "300000000000000003"
)

var (
	memberClaims = &auth.Claims{UserID: userID, ScopeID: guildID, DisplayName: "Alice"}
	staffClaims  = &auth.Claims{UserID: modID, ScopeID: guildID, DisplayName: "Mod", CanManage: true}
)

type testServer struct {
	lifecycle *mocks.MockLifecycleService
	events    *mocks.MockEventService
	router    chi.Router
}

func newTestServer(t *testing.T, withEvents bool) *testServer {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	errorHandler := NewErrorHandler(logger)

	ts := &testServer{
		lifecycle: mocks.NewMockLifecycleService(),
		events:    mocks.NewMockEventService(),
	}

	var eventService ports.EventService
	if withEvents {
		eventService = ts.events
	}

	tickets := NewTicketHandler(ts.lifecycle, errorHandler, logger)
	panels := NewPanelHandler(ts.lifecycle, errorHandler, logger)
	events := NewEventHandler(eventService, errorHandler, logger)

	r := chi.NewRouter()
	r.Route("/scopes/{scopeID}", func(r chi.Router) {
		tickets.RegisterScopeRoutes(r)
		panels.RegisterScopeRoutes(r)
		events.RegisterScopeRoutes(r)
	})
	r.Route("/tickets", tickets.RegisterRoutes)
	r.Route("/resources", tickets.RegisterResourceRoutes)
	ts.router = r

	return ts
}

func (ts *testServer) do(t *testing.T, claims *auth.Claims, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if claims != nil {
		req = req.WithContext(mw.WithClaims(req.Context(), claims))
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func openTicket(resourceID, ownerID string, seq uint64) domain.Ticket {
	return domain.Ticket{
		ResourceID:     resourceID,
		ScopeID:        guildID,
		OwnerID:        ownerID,
		SequenceNumber: seq,
		DisplayLabel:   "alice",
		State:          domain.StateOpen,
		CreatedAt:      time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestOpenTicket(t *testing.T) {
	ts := newTestServer(t, false)
	ts.lifecycle.On("OpenTicket", mock.Anything, mock.MatchedBy(func(c domain.Caller) bool {
		return c.UserID == userID && c.ScopeID == guildID
	})).Return(&ports.OpenResult{Ticket: openTicket("900", userID, 1)}, nil).Once()

	rec := ts.do(t, memberClaims, stdhttp.MethodPost, "/scopes/"+guildID+"/tickets", "")

	require.Equal(t, stdhttp.StatusCreated, rec.Code)
	resp := decode[OpenTicketResponse](t, rec)
	assert.Equal(t, "900", resp.Ticket.ResourceID)
	assert.Equal(t, "alice-1", resp.Ticket.ChannelName)
	assert.Empty(t, resp.Warning)
}

func TestOpenTicket_NoticeWarning(t *testing.T) {
	ts := newTestServer(t, false)
	ts.lifecycle.On("OpenTicket", mock.Anything, mock.Anything).Return(&ports.OpenResult{
		Ticket:    openTicket("900", userID, 1),
		NoticeErr: apperrors.ErrNotificationDeliveryFailed,
	}, nil)

	rec := ts.do(t, memberClaims, stdhttp.MethodPost, "/scopes/"+guildID+"/tickets", "")

	require.Equal(t, stdhttp.StatusCreated, rec.Code)
	assert.NotEmpty(t, decode[OpenTicketResponse](t, rec).Warning)
}

func TestOpenTicket_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
		want string
	}{
		{"duplicate", &apperrors.DuplicateTicketError{ScopeID: guildID, OwnerID: userID, ResourceID: "900", State: "OPEN"}, stdhttp.StatusConflict, "DUPLICATE_TICKET"},
		{"creation failed", apperrors.CreationFailed(apperrors.ErrPermissionDenied), stdhttp.StatusBadGateway, "CREATION_FAILED"},
		{"transient", apperrors.ErrTransientFailure, stdhttp.StatusBadGateway, "GATEWAY_UNAVAILABLE"},
		{"unknown", errors.New("boom"), stdhttp.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, false)
			ts.lifecycle.On("OpenTicket", mock.Anything, mock.Anything).Return(nil, tt.err)

			rec := ts.do(t, memberClaims, stdhttp.MethodPost, "/scopes/"+guildID+"/tickets", "")

			assert.Equal(t, tt.code, rec.Code)
			assert.Equal(t, tt.want, decode[ErrorResponse](t, rec).Code)
		})
	}
}

func TestOpenTicket_OtherScopeForbidden(t *testing.T) {
	ts := newTestServer(t, false)

	rec := ts.do(t, memberClaims, stdhttp.MethodPost, "/scopes/999/tickets", "")

	assert.Equal(t, stdhttp.StatusForbidden, rec.Code)
	ts.lifecycle.AssertNotCalled(t, "OpenTicket", mock.Anything, mock.Anything)
}

func TestOpenTicket_Unauthenticated(t *testing.T) {
	ts := newTestServer(t, false)

	rec := ts.do(t, nil, stdhttp.MethodPost, "/scopes/"+guildID+"/tickets", "")

	assert.Equal(t, stdhttp.StatusUnauthorized, rec.Code)
}

func TestListTickets(t *testing.T) {
	ts := newTestServer(t, false)
	ts.lifecycle.On("ListTickets", guildID).Return([]domain.Ticket{
		openTicket("900", userID, 1),
		{ScopeID: guildID, OwnerID: "42", State: domain.StateReserved, CreatedAt: time.Now()},
	})

	rec := ts.do(t, memberClaims, stdhttp.MethodGet, "/scopes/"+guildID+"/tickets", "")
	assert.Equal(t, stdhttp.StatusForbidden, rec.Code)

	rec = ts.do(t, staffClaims, stdhttp.MethodGet, "/scopes/"+guildID+"/tickets", "")
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	resp := decode[ListResponse[TicketDTO]](t, rec)
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, "RESERVED", resp.Data[1].State)
	assert.Empty(t, resp.Data[1].ChannelName)
}

func TestGetTicket(t *testing.T) {
	ts := newTestServer(t, false)
	ts.lifecycle.On("GetTicket", "900").Return(openTicket("900", userID, 1), true)
	ts.lifecycle.On("GetTicket", "901").Return(openTicket("901", "someone-else", 2), true)
	ts.lifecycle.On("GetTicket", "404").Return(domain.Ticket{}, false)

	rec := ts.do(t, memberClaims, stdhttp.MethodGet, "/tickets/900", "")
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	assert.Equal(t, userID, decode[TicketDTO](t, rec).OwnerID)

	rec = ts.do(t, memberClaims, stdhttp.MethodGet, "/tickets/901", "")
	assert.Equal(t, stdhttp.StatusNotFound, rec.Code)

	rec = ts.do(t, staffClaims, stdhttp.MethodGet, "/tickets/901", "")
	assert.Equal(t, stdhttp.StatusOK, rec.Code)

	rec = ts.do(t, staffClaims, stdhttp.MethodGet, "/tickets/404", "")
	assert.Equal(t, stdhttp.StatusNotFound, rec.Code)
}

func TestCloseTicket(t *testing.T) {
	ts := newTestServer(t, false)
	closing := openTicket("900", userID, 1)
	closing.State = domain.StateClosing
	closing.ClosedBy = modID
	at := time.Date(2026, 1, 1, 13, 0, 0, 0, time.UTC)
	closing.ClosingAt = &at

	ts.lifecycle.On("CloseTicket", mock.Anything, mock.MatchedBy(func(p ports.CloseParams) bool {
		return p.ResourceID == "900" && p.Caller.CanManageChannels
	})).Return(closing, nil)

	rec := ts.do(t, staffClaims, stdhttp.MethodPost, "/tickets/900/close", "")

	require.Equal(t, stdhttp.StatusAccepted, rec.Code)
	dto := decode[TicketDTO](t, rec)
	assert.Equal(t, "CLOSING", dto.State)
	assert.Equal(t, modID, dto.ClosedBy)
	require.NotNil(t, dto.ClosingAt)
}

func TestCloseTicket_Errors(t *testing.T) {
	ts := newTestServer(t, false)
	ts.lifecycle.On("CloseTicket", mock.Anything, mock.MatchedBy(func(p ports.CloseParams) bool {
		return p.ResourceID == "900"
	})).Return(domain.Ticket{}, apperrors.ErrAuthorizationFailure)
	ts.lifecycle.On("CloseTicket", mock.Anything, mock.MatchedBy(func(p ports.CloseParams) bool {
		return p.ResourceID == "901"
	})).Return(domain.Ticket{}, apperrors.ErrStateConflict)

	rec := ts.do(t, memberClaims, stdhttp.MethodPost, "/tickets/900/close", "")
	assert.Equal(t, stdhttp.StatusForbidden, rec.Code)

	rec = ts.do(t, staffClaims, stdhttp.MethodPost, "/tickets/901/close", "")
	assert.Equal(t, stdhttp.StatusConflict, rec.Code)
	assert.Equal(t, "STATE_CONFLICT", decode[ErrorResponse](t, rec).Code)
}

func TestCancelDeletion(t *testing.T) {
	ts := newTestServer(t, false)
	ts.lifecycle.On("GetTicket", "900").Return(openTicket("900", userID, 1), true)
	ts.lifecycle.On("CancelDeletion", "900").Return(true).Once()

	rec := ts.do(t, memberClaims, stdhttp.MethodDelete, "/tickets/900/deletion", "")
	assert.Equal(t, stdhttp.StatusForbidden, rec.Code)

	rec = ts.do(t, staffClaims, stdhttp.MethodDelete, "/tickets/900/deletion", "")
	assert.Equal(t, stdhttp.StatusNoContent, rec.Code)

	ts.lifecycle.On("CancelDeletion", "900").Return(false)
	rec = ts.do(t, staffClaims, stdhttp.MethodDelete, "/tickets/900/deletion", "")
	assert.Equal(t, stdhttp.StatusConflict, rec.Code)
}

func TestResourceDeleted(t *testing.T) {
	ts := newTestServer(t, false)
	ts.lifecycle.On("GetTicket", "900").Return(openTicket("900", userID, 1), true)
	ts.lifecycle.On("GetTicket", "777").Return(domain.Ticket{}, false)
	ts.lifecycle.On("HandleResourceDeleted", mock.Anything, "900").Return(true)
	ts.lifecycle.On("HandleResourceDeleted", mock.Anything, "777").Return(false)

	rec := ts.do(t, staffClaims, stdhttp.MethodPost, "/resources/900/deleted", "")
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	assert.True(t, decode[ResourceDeletedResponse](t, rec).Reconciled)

	rec = ts.do(t, staffClaims, stdhttp.MethodPost, "/resources/777/deleted", "")
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	assert.False(t, decode[ResourceDeletedResponse](t, rec).Reconciled)

	foreign := &auth.Claims{UserID: modID, ScopeID: "555", CanManage: true}
	rec = ts.do(t, foreign, stdhttp.MethodPost, "/resources/900/deleted", "")
	assert.Equal(t, stdhttp.StatusForbidden, rec.Code)
}

func TestPanel(t *testing.T) {
	ts := newTestServer(t, false)
	panel := domain.PanelConfig{
		ScopeID:         guildID,
		NotifyChannelID: "400000000000000004",
		MessageID:       "500",
		BodyText:        "Need help?",
		UpdatedAt:       time.Now(),
	}

	ts.lifecycle.On("GetPanel", guildID).Return(domain.PanelConfig{}, false).Once()
	rec := ts.do(t, staffClaims, stdhttp.MethodGet, "/scopes/"+guildID+"/panel", "")
	assert.Equal(t, stdhttp.StatusNotFound, rec.Code)

	ts.lifecycle.On("ConfigurePanel", mock.Anything, mock.MatchedBy(func(p ports.ConfigurePanelParams) bool {
		return p.NotifyChannelID == panel.NotifyChannelID && p.BodyText == "Need help?"
	})).Return(panel, nil)
	rec = ts.do(t, staffClaims, stdhttp.MethodPut, "/scopes/"+guildID+"/panel",
		`{"channelId":"400000000000000004","body":"Need help?"}`)
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	assert.Equal(t, "500", decode[PanelDTO](t, rec).MessageID)

	ts.lifecycle.On("GetPanel", guildID).Return(panel, true)
	rec = ts.do(t, memberClaims, stdhttp.MethodGet, "/scopes/"+guildID+"/panel", "")
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	assert.Equal(t, panel.NotifyChannelID, decode[PanelDTO](t, rec).NotifyChannelID)
}

func TestPanel_Validation(t *testing.T) {
	ts := newTestServer(t, false)

	rec := ts.do(t, staffClaims, stdhttp.MethodPut, "/scopes/"+guildID+"/panel", `{"channelId":"general","roleId":"x"}`)
	require.Equal(t, stdhttp.StatusUnprocessableEntity, rec.Code)
	resp := decode[ValidationErrorResponse](t, rec)
	assert.Contains(t, resp.Fields, "channelId")
	assert.Contains(t, resp.Fields, "roleId")

	rec = ts.do(t, staffClaims, stdhttp.MethodPut, "/scopes/"+guildID+"/panel", `{`)
	assert.Equal(t, stdhttp.StatusBadRequest, rec.Code)

	ts.lifecycle.AssertNotCalled(t, "ConfigurePanel", mock.Anything, mock.Anything)
}

func TestPanel_GatewayError(t *testing.T) {
	ts := newTestServer(t, false)
	ts.lifecycle.On("ConfigurePanel", mock.Anything, mock.Anything).
		Return(domain.PanelConfig{}, apperrors.ErrInvalidTarget)

	rec := ts.do(t, staffClaims, stdhttp.MethodPut, "/scopes/"+guildID+"/panel", `{"channelId":"400000000000000004"}`)

	assert.Equal(t, stdhttp.StatusBadGateway, rec.Code)
	assert.Equal(t, "GATEWAY_INVALID_TARGET", decode[ErrorResponse](t, rec).Code)
}

func TestListEvents(t *testing.T) {
	ts := newTestServer(t, true)
	ts.events.On("ListScopeEvents", mock.Anything, guildID, int64(3), 2).Return([]*domain.Event{
		{ID: 4, Type: domain.EventTicketOpened, ScopeID: guildID},
		{ID: 5, Type: domain.EventTicketClosing, ScopeID: guildID},
	}, nil)

	rec := ts.do(t, staffClaims, stdhttp.MethodGet, "/scopes/"+guildID+"/events?after=3&limit=2", "")

	require.Equal(t, stdhttp.StatusOK, rec.Code)
	resp := decode[CursorResponse[*domain.Event]](t, rec)
	require.Len(t, resp.Data, 2)
	require.NotNil(t, resp.NextCursor)
	assert.Equal(t, int64(5), *resp.NextCursor)

	rec = ts.do(t, staffClaims, stdhttp.MethodGet, "/scopes/"+guildID+"/events?limit=abc", "")
	assert.Equal(t, stdhttp.StatusUnprocessableEntity, rec.Code)

	rec = ts.do(t, memberClaims, stdhttp.MethodGet, "/scopes/"+guildID+"/events", "")
	assert.Equal(t, stdhttp.StatusForbidden, rec.Code)
}

func TestListEvents_Unavailable(t *testing.T) {
	ts := newTestServer(t, false)

	rec := ts.do(t, staffClaims, stdhttp.MethodGet, "/scopes/"+guildID+"/events", "")

	assert.Equal(t, stdhttp.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "UNAVAILABLE", decode[ErrorResponse](t, rec).Code)
}
