package eventlog

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/lorrc/ticket-broker/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_Record(t *testing.T) {
	var buf bytes.Buffer
	r := NewRecorder(slog.New(slog.NewJSONHandler(&buf, nil)))

	err := r.Record(context.Background(), domain.Event{
		Type:       domain.EventTicketClosing,
		ScopeID:    "guild-1",
		ResourceID: "chan-1",
		ActorID:    "mod",
		OccurredAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	})
	require.NoError(t, err)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "lifecycle event", line["msg"])
	assert.Equal(t, "TICKET_CLOSING", line["type"])
	assert.Equal(t, "chan-1", line["resource_id"])
	assert.Equal(t, "event_log", line["component"])
}
