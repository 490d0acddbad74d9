package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/opendgw/odg/internal/application/service"
	domainservice "github.com/opendgw/odg/internal/domain/service"
	"github.com/opendgw/odg/internal/domain/models"
	"github.com/opendgw/odg/pkg/constants"
	"github.com/opendgw/odg/pkg/errors"
	"github.com/opendgw/odg/pkg/logger"
)

// AdminHandler exposes the operational surface: quota inspection and reset,
// cache occupancy, and an on-demand retention sweep.
type AdminHandler struct {
	limiter   domainservice.RateLimitService
	retrieval *service.DataRetrievalService
	retention time.Duration
	log       logger.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(limiter domainservice.RateLimitService, retrieval *service.DataRetrievalService, retention time.Duration, log logger.Logger) *AdminHandler {
	return &AdminHandler{
		limiter:   limiter,
		retrieval: retrieval,
		retention: retention,
		log:       log.WithComponent("admin-handler"),
	}
}

// GetUsage handles GET /admin/v1/users/:user_id/usage. The optional "tier"
// query selects the window to report against; it defaults to tier1.
func (h *AdminHandler) GetUsage(c *gin.Context) {
	userID := c.Param("user_id")
	tier := models.TierForLevel(constants.TierLevel(strings.ToUpper(c.Query("tier"))))

	status, err := h.limiter.GetUserUsageStatus(c.Request.Context(), models.AuthenticatedUser{
		UserID: userID,
		Tier:   tier,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":       userID,
		"tier":          string(tier.Level),
		"current_count": status.CurrentCount,
		"limit":         status.Limit,
		"window_start":  status.WindowStart.UTC().Format(time.RFC3339),
		"window_end":    status.WindowEnd.UTC().Format(time.RFC3339),
	})
}

// ResetLimit handles POST /admin/v1/users/:user_id/reset.
func (h *AdminHandler) ResetLimit(c *gin.Context) {
	userID := c.Param("user_id")
	if err := h.limiter.ResetUserLimit(c.Request.Context(), userID); err != nil {
		h.writeError(c, err)
		return
	}

	h.log.Info(c.Request.Context(), "user quota reset", logger.String("user_id", userID))
	c.JSON(http.StatusOK, gin.H{"user_id": userID, "reset": true})
}

// GetCacheStats handles GET /admin/v1/cache/stats.
func (h *AdminHandler) GetCacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.retrieval.CacheStats())
}

// TriggerSweep handles POST /admin/v1/sweep, purging admission records older
// than the retention horizon.
func (h *AdminHandler) TriggerSweep(c *gin.Context) {
	removed, err := h.limiter.Sweep(c.Request.Context(), h.retention)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"removed":           removed,
		"retention_seconds": int(h.retention.Seconds()),
	})
}

func (h *AdminHandler) writeError(c *gin.Context, err error) {
	status := errors.HTTPStatusOf(err)
	if status >= http.StatusInternalServerError {
		h.log.Error(c.Request.Context(), "admin operation failed", err)
	}
	c.JSON(status, errors.ToErrorResponse(err))
}
