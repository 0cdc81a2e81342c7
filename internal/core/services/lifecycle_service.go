package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/lorrc/ticket-broker/internal/core/domain"
	apperrors "github.com/lorrc/ticket-broker/internal/core/errors"
	"github.com/lorrc/ticket-broker/internal/core/ports"
	"github.com/lorrc/ticket-broker/internal/infrastructure/clock"
)

// Lifecycle defaults.
const (
	DefaultCategoryName   = "Tickets"
	DefaultCloseDelay     = 5 * time.Second
	DefaultGatewayTimeout = 15 * time.Second

	deleteReason = "Ticket closed"
)

// LifecycleConfig tunes the lifecycle service. Zero values take the defaults,
// except an empty CategoryName which is only defaulted by the config loader.
type LifecycleConfig struct {
	CategoryName   string
	CloseDelay     time.Duration
	GatewayTimeout time.Duration
}

// LifecycleService drives tickets from reservation to deletion.
type LifecycleService struct {
	registry    ports.TicketRegistry
	numbers     ports.NumberAllocator
	panels      ports.PanelConfigStore
	gateway     ports.ResourceGateway
	broadcaster ports.EventBroadcaster
	recorders   []ports.EventRecorder
	clock       clock.Clock
	logger      *slog.Logger
	cfg         LifecycleConfig

	mu       sync.Mutex
	pending  map[string]*clock.Timer
	shutdown bool
	timers   sync.WaitGroup

	// events is drained by a single goroutine so subscribers see
	// transitions in the order they happened.
	eventsMu     sync.RWMutex
	events       chan domain.Event
	eventsClosed bool
	delivered    chan struct{}
}

const eventQueueSize = 256

var _ ports.LifecycleService = (*LifecycleService)(nil)

// NewLifecycleService wires the lifecycle service. broadcaster may be nil.
func NewLifecycleService(
	registry ports.TicketRegistry,
	numbers ports.NumberAllocator,
	panels ports.PanelConfigStore,
	gateway ports.ResourceGateway,
	broadcaster ports.EventBroadcaster,
	clk clock.Clock,
	logger *slog.Logger,
	cfg LifecycleConfig,
	recorders ...ports.EventRecorder,
) *LifecycleService {
	if cfg.CloseDelay <= 0 {
		cfg.CloseDelay = DefaultCloseDelay
	}
	if cfg.GatewayTimeout <= 0 {
		cfg.GatewayTimeout = DefaultGatewayTimeout
	}
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &LifecycleService{
		registry:    registry,
		numbers:     numbers,
		panels:      panels,
		gateway:     gateway,
		broadcaster: broadcaster,
		recorders:   recorders,
		clock:       clk,
		logger:      logger.With("component", "lifecycle"),
		cfg:         cfg,
		pending:     make(map[string]*clock.Timer),
		events:      make(chan domain.Event, eventQueueSize),
		delivered:   make(chan struct{}),
	}
	go s.runDelivery()
	return s
}

// OpenTicket reserves the caller's slot, materializes the ticket channel and
// opens the ticket. Any failure before the ticket is open leaves no trace in
// the registry and returns the sequence number.
func (s *LifecycleService) OpenTicket(ctx context.Context, caller domain.Caller) (*ports.OpenResult, error) {
	if caller.ScopeID == "" || caller.UserID == "" {
		return nil, fmt.Errorf("%w: caller scope and user are required", apperrors.ErrBadRequest)
	}

	label := domain.NormalizeLabel(caller.DisplayName)

	// 1. Claim the slot before any external call
	reservation, err := s.registry.Reserve(caller.ScopeID, caller.UserID, label, s.clock.Now())
	if err != nil {
		return nil, err
	}

	// 2. Allocate the number
	sequence := s.numbers.Next(caller.ScopeID, caller.UserID)

	gctx, cancel := context.WithTimeout(ctx, s.cfg.GatewayTimeout)
	defer cancel()

	// 3. Materialize the channel
	categoryID, err := s.ensureCategory(gctx, caller.ScopeID)
	if err != nil {
		s.releaseReservation(reservation, sequence)
		s.logger.WarnContext(ctx, "ticket category unavailable",
			"scope_id", caller.ScopeID, "owner_id", caller.UserID, "error", err)
		return nil, apperrors.CreationFailed(err)
	}

	resourceID, err := s.gateway.CreateSession(gctx, ports.CreateSessionParams{
		ScopeID:    caller.ScopeID,
		OwnerID:    caller.UserID,
		Name:       domain.ChannelName(label, sequence),
		CategoryID: categoryID,
		Overwrites: domain.TicketOverwrites(caller.ScopeID, caller.UserID, caller.ScopeOwnerID),
	})
	if err != nil {
		s.releaseReservation(reservation, sequence)
		s.logger.WarnContext(ctx, "ticket channel creation failed",
			"scope_id", caller.ScopeID, "owner_id", caller.UserID, "error", err)
		return nil, apperrors.CreationFailed(err)
	}

	// 4. Promote to Open
	ticket, err := s.registry.Promote(reservation.ReservationToken, resourceID, sequence)
	if err != nil {
		s.releaseReservation(reservation, sequence)
		s.logger.WarnContext(ctx, "ticket channel could not be promoted",
			"scope_id", caller.ScopeID, "resource_id", resourceID, "error", err)
		// A resource held by another ticket is that ticket's live channel.
		if !errors.Is(err, apperrors.ErrResourceInUse) {
			if derr := s.gateway.DeleteSession(gctx, resourceID, deleteReason); derr != nil && !errors.Is(derr, apperrors.ErrNotFound) {
				s.logger.WarnContext(ctx, "orphaned ticket channel could not be deleted",
					"resource_id", resourceID, "error", derr)
			}
		}
		return nil, apperrors.CreationFailed(err)
	}

	result := &ports.OpenResult{Ticket: ticket}

	// 5. Welcome notice, best effort
	panel, hasPanel := s.panels.Get(caller.ScopeID)
	if _, err := s.gateway.PostNotice(gctx, resourceID, welcomeNotice(ticket, panel, hasPanel)); err != nil {
		result.NoticeErr = fmt.Errorf("%w: %w", apperrors.ErrNotificationDeliveryFailed, err)
		s.logger.WarnContext(ctx, "welcome notice not delivered",
			"resource_id", resourceID, "error", err)
	}

	s.publish(domain.NewTicketEvent(domain.EventTicketOpened, &ticket, caller.UserID, s.clock.Now()))

	s.logger.InfoContext(ctx, "ticket opened",
		"scope_id", ticket.ScopeID,
		"owner_id", ticket.OwnerID,
		"resource_id", ticket.ResourceID,
		"sequence", ticket.SequenceNumber,
	)

	return result, nil
}

// CloseTicket marks the ticket Closing and schedules its deletion.
func (s *LifecycleService) CloseTicket(ctx context.Context, params ports.CloseParams) (domain.Ticket, error) {
	caller := params.Caller

	resourceID := params.ResourceID
	if resourceID == "" {
		resourceID = caller.ContextResourceID
	}
	if resourceID == "" {
		return domain.Ticket{}, apperrors.ErrStateConflict
	}

	ticket, ok := s.registry.FindByResource(resourceID)
	if !ok || (caller.ScopeID != "" && ticket.ScopeID != caller.ScopeID) {
		return domain.Ticket{}, apperrors.ErrStateConflict
	}

	if !caller.CanManageTickets() {
		return domain.Ticket{}, apperrors.ErrAuthorizationFailure
	}

	closing, err := s.registry.MarkClosing(resourceID, caller.UserID, s.clock.Now())
	if err != nil {
		// A Closing ticket whose deletion was cancelled can be closed again.
		if ticket.State != domain.StateClosing || s.deletionPending(resourceID) {
			return domain.Ticket{}, err
		}
		closing = ticket
	}

	gctx, cancel := context.WithTimeout(ctx, s.cfg.GatewayTimeout)
	defer cancel()
	if _, err := s.gateway.PostNotice(gctx, resourceID, closingNotice(closing, s.cfg.CloseDelay)); err != nil {
		s.logger.WarnContext(ctx, "closing notice not delivered",
			"resource_id", resourceID, "error", err)
	}

	s.publish(domain.NewTicketEvent(domain.EventTicketClosing, &closing, caller.UserID, s.clock.Now()))
	s.scheduleDeletion(resourceID)

	s.logger.InfoContext(ctx, "ticket closing",
		"resource_id", resourceID, "closed_by", caller.UserID, "delay", s.cfg.CloseDelay)

	return closing, nil
}

// CancelDeletion stops a pending deletion. The ticket stays Closing until
// CloseTicket is called again or the channel is deleted.
func (s *LifecycleService) CancelDeletion(resourceID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	timer, ok := s.pending[resourceID]
	if !ok || !timer.Stop() {
		return false
	}
	delete(s.pending, resourceID)
	s.timers.Done()
	return true
}

// HandleResourceDeleted reconciles a channel removed outside the broker. It
// is safe to call repeatedly and for channels that were never tracked.
func (s *LifecycleService) HandleResourceDeleted(ctx context.Context, resourceID string) bool {
	removed, ok := s.registry.Remove(resourceID)
	if !ok {
		s.logger.DebugContext(ctx, "untracked resource deleted", "resource_id", resourceID)
		return false
	}

	s.publish(domain.NewTicketEvent(domain.EventTicketReconciled, &removed, "", s.clock.Now()))
	s.logger.InfoContext(ctx, "ticket reconciled after external deletion",
		"resource_id", resourceID, "scope_id", removed.ScopeID, "state_before", stateBefore(removed))
	return true
}

// ConfigurePanel posts the open-ticket panel and stores its configuration.
func (s *LifecycleService) ConfigurePanel(ctx context.Context, params ports.ConfigurePanelParams) (domain.PanelConfig, error) {
	caller := params.Caller
	if !caller.CanManageTickets() {
		return domain.PanelConfig{}, apperrors.ErrAuthorizationFailure
	}

	body := strings.TrimSpace(params.BodyText)
	if body == "" {
		body = domain.DefaultPanelBody
	}

	verrs := apperrors.NewValidationErrors()
	if caller.ScopeID == "" {
		verrs.Add("scopeId", "This field is required")
	}
	if strings.TrimSpace(params.NotifyChannelID) == "" {
		verrs.Add("channelId", "This field is required")
	}
	if len(body) > domain.MaxPanelBodyLength {
		verrs.Add("body", fmt.Sprintf("Must be at most %d characters", domain.MaxPanelBodyLength))
	}
	if verrs.HasErrors() {
		return domain.PanelConfig{}, verrs
	}

	gctx, cancel := context.WithTimeout(ctx, s.cfg.GatewayTimeout)
	defer cancel()

	messageID, err := s.gateway.PostNotice(gctx, params.NotifyChannelID, panelNotice(body))
	if err != nil {
		return domain.PanelConfig{}, err
	}

	cfg := domain.PanelConfig{
		ScopeID:         caller.ScopeID,
		NotifyChannelID: params.NotifyChannelID,
		MessageID:       messageID,
		NotifyRoleID:    params.NotifyRoleID,
		BodyText:        body,
		UpdatedAt:       s.clock.Now().UTC(),
	}
	s.panels.Put(cfg)
	s.publish(domain.NewPanelEvent(&cfg, caller.UserID))

	s.logger.InfoContext(ctx, "ticket panel configured",
		"scope_id", cfg.ScopeID, "channel_id", cfg.NotifyChannelID, "message_id", messageID)

	return cfg, nil
}

func (s *LifecycleService) GetPanel(scopeID string) (domain.PanelConfig, bool) {
	return s.panels.Get(scopeID)
}

func (s *LifecycleService) GetTicket(resourceID string) (domain.Ticket, bool) {
	return s.registry.FindByResource(resourceID)
}

func (s *LifecycleService) ListTickets(scopeID string) []domain.Ticket {
	return s.registry.ListByScope(scopeID)
}

// Shutdown stops scheduling, runs every pending deletion now, then drains
// the event queue. It gives up when ctx is done.
func (s *LifecycleService) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.shutdown {
		s.mu.Unlock()
		return nil
	}
	s.shutdown = true
	var due []string
	for resourceID, timer := range s.pending {
		if timer.Stop() {
			due = append(due, resourceID)
			delete(s.pending, resourceID)
		}
	}
	s.mu.Unlock()

	for _, resourceID := range due {
		s.finalizeDeletion(ctx, resourceID)
		s.timers.Done()
	}

	timersDone := make(chan struct{})
	go func() {
		s.timers.Wait()
		close(timersDone)
	}()
	select {
	case <-timersDone:
	case <-ctx.Done():
		return ctx.Err()
	}

	s.eventsMu.Lock()
	s.eventsClosed = true
	close(s.events)
	s.eventsMu.Unlock()

	select {
	case <-s.delivered:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *LifecycleService) ensureCategory(ctx context.Context, scopeID string) (string, error) {
	if s.cfg.CategoryName == "" {
		return "", nil
	}

	id, found, err := s.gateway.ResolveCategory(ctx, scopeID, s.cfg.CategoryName)
	if err != nil {
		return "", err
	}
	if found {
		return id, nil
	}
	return s.gateway.CreateCategory(ctx, scopeID, s.cfg.CategoryName, domain.CategoryOverwrites(scopeID))
}

func (s *LifecycleService) releaseReservation(reservation domain.Ticket, sequence uint64) {
	s.registry.Abandon(reservation.ReservationToken)
	s.numbers.Rollback(reservation.ScopeID, reservation.OwnerID, sequence)
}

func (s *LifecycleService) deletionPending(resourceID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[resourceID]
	return ok
}

// scheduleDeletion relies on CloseDelay being positive: the timer never
// fires while mu is held.
func (s *LifecycleService) scheduleDeletion(resourceID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.shutdown {
		s.logger.Warn("deletion not scheduled, service is shutting down", "resource_id", resourceID)
		return
	}
	if _, ok := s.pending[resourceID]; ok {
		return
	}

	s.timers.Add(1)
	s.pending[resourceID] = s.clock.AfterFunc(s.cfg.CloseDelay, func() {
		defer s.timers.Done()

		s.mu.Lock()
		delete(s.pending, resourceID)
		s.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.GatewayTimeout)
		defer cancel()
		s.finalizeDeletion(ctx, resourceID)
	})
}

// finalizeDeletion deletes the channel and drops the ticket. A ticket
// already reconciled away is left alone. Gateway failures do not keep the
// entry alive.
func (s *LifecycleService) finalizeDeletion(ctx context.Context, resourceID string) {
	if _, ok := s.registry.FindByResource(resourceID); !ok {
		s.logger.DebugContext(ctx, "scheduled deletion found ticket already gone", "resource_id", resourceID)
		return
	}

	if err := s.gateway.DeleteSession(ctx, resourceID, deleteReason); err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		s.logger.WarnContext(ctx, "ticket channel deletion failed",
			"resource_id", resourceID, "error", err)
	}

	removed, ok := s.registry.Remove(resourceID)
	if !ok {
		return
	}
	s.publish(domain.NewTicketEvent(domain.EventTicketDeleted, &removed, removed.ClosedBy, s.clock.Now()))
	s.logger.InfoContext(ctx, "ticket deleted", "resource_id", resourceID, "scope_id", removed.ScopeID)
}

// publish queues an event for the broadcaster and recorders. Once the
// queue is closed it delivers inline.
func (s *LifecycleService) publish(event domain.Event) {
	s.eventsMu.RLock()
	defer s.eventsMu.RUnlock()

	if s.eventsClosed {
		s.deliver(event)
		return
	}
	s.events <- event
}

func (s *LifecycleService) runDelivery() {
	defer close(s.delivered)
	for event := range s.events {
		s.deliver(event)
	}
}

func (s *LifecycleService) deliver(event domain.Event) {
	if s.broadcaster != nil {
		if err := s.broadcaster.Broadcast(event); err != nil {
			s.logger.Debug("event not broadcast", "type", event.Type, "error", err)
		}
	}

	for _, recorder := range s.recorders {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.GatewayTimeout)
		if err := recorder.Record(ctx, event); err != nil {
			s.logger.Warn("event not recorded",
				"type", event.Type, "resource_id", event.ResourceID, "error", err)
		}
		cancel()
	}
}

// stateBefore names the state a removed ticket was in before deletion.
func stateBefore(t domain.Ticket) domain.TicketState {
	if t.ClosingAt != nil {
		return domain.StateClosing
	}
	return domain.StateOpen
}
