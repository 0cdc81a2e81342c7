package eventlog

import (
	"context"
	"log/slog"

	"github.com/lorrc/ticket-broker/internal/core/domain"
	"github.com/lorrc/ticket-broker/internal/core/ports"
)

// Recorder is a secondary adapter that writes lifecycle events to the
// structured log. It is the audit trail of last resort when no database
// or broker is configured.
type Recorder struct {
	logger *slog.Logger
}

var _ ports.EventRecorder = (*Recorder)(nil)

// NewRecorder creates a new log recorder.
func NewRecorder(logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{logger: logger.With("component", "event_log")}
}

// Record logs the event. It never fails.
func (r *Recorder) Record(ctx context.Context, event domain.Event) error {
	r.logger.InfoContext(ctx, "lifecycle event",
		"type", event.Type,
		"scope_id", event.ScopeID,
		"resource_id", event.ResourceID,
		"actor_id", event.ActorID,
		"occurred_at", event.OccurredAt,
	)
	return nil
}
