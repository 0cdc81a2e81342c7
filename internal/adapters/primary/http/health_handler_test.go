package http

import (
	"context"
	"errors"
	stdhttp "net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthHandler_Readiness(t *testing.T) {
	healthy := HealthCheckFunc(func(context.Context) error { return nil })
	failing := HealthCheckFunc(func(context.Context) error { return errors.New("down") })

	h := NewHealthHandler("v1", map[string]HealthChecker{"discord": healthy, "database": nil})
	rec := httptest.NewRecorder()
	h.HandleReadiness(rec, httptest.NewRequest(stdhttp.MethodGet, "/health/ready", nil))

	require.Equal(t, stdhttp.StatusOK, rec.Code)
	resp := decode[HealthResponse](t, rec)
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "disabled", resp.Checks["database"].Status)
	assert.Equal(t, "healthy", resp.Checks["discord"].Status)

	h = NewHealthHandler("v1", map[string]HealthChecker{"database": failing})
	rec = httptest.NewRecorder()
	h.HandleHealth(rec, httptest.NewRequest(stdhttp.MethodGet, "/health", nil))

	assert.Equal(t, stdhttp.StatusServiceUnavailable, rec.Code)
	resp = decode[HealthResponse](t, rec)
	assert.Equal(t, "down", resp.Checks["database"].Message)
}

func TestHealthHandler_Liveness(t *testing.T) {
	h := NewHealthHandler("v1", nil)
	rec := httptest.NewRecorder()
	h.HandleLiveness(rec, httptest.NewRequest(stdhttp.MethodGet, "/health/live", nil))

	assert.Equal(t, stdhttp.StatusOK, rec.Code)
}
