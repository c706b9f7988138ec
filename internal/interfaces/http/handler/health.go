package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/roomtab/backend/internal/infrastructure/logger"
	"github.com/roomtab/backend/internal/infrastructure/persistence"
)

// Pinger checks a dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// poolReporter is implemented by databases that expose pool statistics
type poolReporter interface {
	Stats() (persistence.ConnectionStats, error)
}

// HealthHandler serves liveness and readiness probes
type HealthHandler struct {
	db      Pinger
	service string
	timeout time.Duration
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(db Pinger, service string) *HealthHandler {
	return &HealthHandler{db: db, service: service, timeout: 2 * time.Second}
}

// Register mounts /health and /ready on the engine root
func (h *HealthHandler) Register(engine *gin.Engine) {
	engine.GET("/health", h.Live)
	engine.GET("/ready", h.Ready)
}

// Live always answers 200 while the process is serving
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": h.service,
	})
}

// Ready answers 503 when the database cannot be pinged. Pool statistics are
// included when the database reports them.
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		logger.GetGinLogger(c).Warn("Readiness check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "unavailable",
			"database": "unreachable",
		})
		return
	}
	body := gin.H{
		"status":   "ready",
		"database": "ok",
	}
	if pool, ok := h.db.(poolReporter); ok {
		if stats, err := pool.Stats(); err == nil {
			body["pool"] = stats
		}
	}
	c.JSON(http.StatusOK, body)
}
