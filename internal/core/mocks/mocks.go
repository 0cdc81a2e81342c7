package mocks

import (
	"context"

	"github.com/lorrc/ticket-broker/internal/core/domain"
	"github.com/lorrc/ticket-broker/internal/core/ports"
	"github.com/stretchr/testify/mock"
)

// MockResourceGateway is a mock implementation of ports.ResourceGateway
type MockResourceGateway struct {
	mock.Mock
}

func NewMockResourceGateway() *MockResourceGateway {
	return &MockResourceGateway{}
}

func (m *MockResourceGateway) CreateSession(ctx context.Context, params ports.CreateSessionParams) (string, error) {
	args := m.Called(ctx, params)
	return args.String(0), args.Error(1)
}

func (m *MockResourceGateway) DeleteSession(ctx context.Context, resourceID, reason string) error {
	args := m.Called(ctx, resourceID, reason)
	return args.Error(0)
}

func (m *MockResourceGateway) PostNotice(ctx context.Context, channelID string, notice domain.Notice) (string, error) {
	args := m.Called(ctx, channelID, notice)
	return args.String(0), args.Error(1)
}

func (m *MockResourceGateway) ResolveCategory(ctx context.Context, scopeID, name string) (string, bool, error) {
	args := m.Called(ctx, scopeID, name)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockResourceGateway) CreateCategory(ctx context.Context, scopeID, name string, overwrites []domain.Overwrite) (string, error) {
	args := m.Called(ctx, scopeID, name, overwrites)
	return args.String(0), args.Error(1)
}

// MockEventBroadcaster is a mock implementation of ports.EventBroadcaster
type MockEventBroadcaster struct {
	mock.Mock
}

func NewMockEventBroadcaster() *MockEventBroadcaster {
	return &MockEventBroadcaster{}
}

func (m *MockEventBroadcaster) Broadcast(event domain.Event) error {
	args := m.Called(event)
	return args.Error(0)
}

// MockEventRecorder is a mock implementation of ports.EventRecorder
type MockEventRecorder struct {
	mock.Mock
}

func NewMockEventRecorder() *MockEventRecorder {
	return &MockEventRecorder{}
}

func (m *MockEventRecorder) Record(ctx context.Context, event domain.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// MockEventService is a mock implementation of ports.EventService
type MockEventService struct {
	mock.Mock
}

func NewMockEventService() *MockEventService {
	return &MockEventService{}
}

func (m *MockEventService) ListScopeEvents(ctx context.Context, scopeID string, afterID int64, limit int) ([]*domain.Event, error) {
	args := m.Called(ctx, scopeID, afterID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Event), args.Error(1)
}

// MockLifecycleService is a mock implementation of ports.LifecycleService
type MockLifecycleService struct {
	mock.Mock
}

func NewMockLifecycleService() *MockLifecycleService {
	return &MockLifecycleService{}
}

func (m *MockLifecycleService) OpenTicket(ctx context.Context, caller domain.Caller) (*ports.OpenResult, error) {
	args := m.Called(ctx, caller)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.OpenResult), args.Error(1)
}

func (m *MockLifecycleService) CloseTicket(ctx context.Context, params ports.CloseParams) (domain.Ticket, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(domain.Ticket), args.Error(1)
}

func (m *MockLifecycleService) CancelDeletion(resourceID string) bool {
	args := m.Called(resourceID)
	return args.Bool(0)
}

func (m *MockLifecycleService) HandleResourceDeleted(ctx context.Context, resourceID string) bool {
	args := m.Called(ctx, resourceID)
	return args.Bool(0)
}

func (m *MockLifecycleService) ConfigurePanel(ctx context.Context, params ports.ConfigurePanelParams) (domain.PanelConfig, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(domain.PanelConfig), args.Error(1)
}

func (m *MockLifecycleService) GetPanel(scopeID string) (domain.PanelConfig, bool) {
	args := m.Called(scopeID)
	return args.Get(0).(domain.PanelConfig), args.Bool(1)
}

func (m *MockLifecycleService) GetTicket(resourceID string) (domain.Ticket, bool) {
	args := m.Called(resourceID)
	return args.Get(0).(domain.Ticket), args.Bool(1)
}

func (m *MockLifecycleService) ListTickets(scopeID string) []domain.Ticket {
	args := m.Called(scopeID)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]domain.Ticket)
}

func (m *MockLifecycleService) Shutdown(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

var (
	_ ports.ResourceGateway  = (*MockResourceGateway)(nil)
	_ ports.EventBroadcaster = (*MockEventBroadcaster)(nil)
	_ ports.EventRecorder    = (*MockEventRecorder)(nil)
	_ ports.EventService     = (*MockEventService)(nil)
	_ ports.LifecycleService = (*MockLifecycleService)(nil)
)

// MockTicketEventRepository is a mock implementation of ports.TicketEventRepository
type MockTicketEventRepository struct {
	mock.Mock
}

func NewMockTicketEventRepository() *MockTicketEventRepository {
	return &MockTicketEventRepository{}
}

func (m *MockTicketEventRepository) Create(ctx context.Context, event *domain.Event) (*domain.Event, error) {
	args := m.Called(ctx, event)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Event), args.Error(1)
}

func (m *MockTicketEventRepository) ListByScope(ctx context.Context, scopeID string, afterID int64, limit int) ([]*domain.Event, error) {
	args := m.Called(ctx, scopeID, afterID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Event), args.Error(1)
}
