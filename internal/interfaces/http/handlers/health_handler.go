package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/opendgw/odg/internal/application/service"
	"github.com/opendgw/odg/pkg/logger"
)

// Pinger is anything whose connectivity the health endpoint reports.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves the always-reachable liveness and readiness probes.
// These endpoints bypass identity and quota entirely; each hit is still
// recorded in the access log with an empty user id.
type HealthHandler struct {
	decisions *service.AccessDecisionService
	stores    map[string]Pinger
	log       logger.Logger
}

// NewHealthHandler creates a HealthHandler. The stores map names each
// dependency to check, e.g. "redis" or "database".
func NewHealthHandler(decisions *service.AccessDecisionService, stores map[string]Pinger, log logger.Logger) *HealthHandler {
	return &HealthHandler{
		decisions: decisions,
		stores:    stores,
		log:       log.WithComponent("health-handler"),
	}
}

// LivenessCheck reports process liveness without touching dependencies.
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	h.recordPublic(c)
	c.JSON(http.StatusOK, gin.H{
		"status":    "alive",
		"timestamp": time.Now().UTC(),
	})
}

// HealthCheck reports overall health including dependency connectivity.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	h.recordPublic(c)

	status := "healthy"
	httpStatus := http.StatusOK
	checks := make(map[string]string, len(h.stores))

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	for name, store := range h.stores {
		if err := store.Ping(ctx); err != nil {
			checks[name] = err.Error()
			status = "unhealthy"
			httpStatus = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	c.JSON(httpStatus, gin.H{
		"status":    status,
		"timestamp": time.Now().UTC(),
		"checks":    checks,
	})
}

// ReadinessCheck reports whether the gateway can serve traffic.
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	h.HealthCheck(c)
}

func (h *HealthHandler) recordPublic(c *gin.Context) {
	if h.decisions == nil {
		return
	}
	if err := h.decisions.RecordPublicAccess(c.Request.Context(), c.Request.URL.Path, c.Request.Method, nil); err != nil {
		h.log.Warn(c.Request.Context(), "public access record failed", logger.Err(err))
	}
}
