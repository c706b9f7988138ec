package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roomtab/backend/internal/infrastructure/persistence"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name      string
		pingErr   error
		wantReady int
	}{
		{name: "database up", wantReady: http.StatusOK},
		{name: "database down", pingErr: errors.New("connection refused"), wantReady: http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := gin.New()
			NewHealthHandler(pingerFunc(func(ctx context.Context) error {
				_, hasDeadline := ctx.Deadline()
				assert.True(t, hasDeadline)
				return tt.pingErr
			}), "roomtab").Register(engine)

			w := httptest.NewRecorder()
			engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
			assert.Equal(t, http.StatusOK, w.Code, "liveness ignores the database")
			assert.Contains(t, w.Body.String(), "roomtab")

			w = httptest.NewRecorder()
			engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
			assert.Equal(t, tt.wantReady, w.Code)
		})
	}
}

type statsPinger struct {
	pingerFunc
}

func (statsPinger) Stats() (persistence.ConnectionStats, error) {
	return persistence.ConnectionStats{MaxOpenConnections: 25, OpenConnections: 3, InUse: 1, Idle: 2}, nil
}

func TestHealthHandler_ReadyReportsPool(t *testing.T) {
	engine := gin.New()
	NewHealthHandler(statsPinger{pingerFunc(func(context.Context) error { return nil })}, "roomtab").Register(engine)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Status string                      `json:"status"`
		Pool   persistence.ConnectionStats `json:"pool"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ready", body.Status)
	assert.Equal(t, 3, body.Pool.OpenConnections)
	assert.Equal(t, 1, body.Pool.InUse)
}
