// Package handlers contains the gin HTTP handlers for the gateway surface.
package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/opendgw/odg/internal/application/service"
	"github.com/opendgw/odg/internal/domain/models"
	"github.com/opendgw/odg/internal/interfaces/http/middleware"
	"github.com/opendgw/odg/pkg/constants"
	"github.com/opendgw/odg/pkg/errors"
	"github.com/opendgw/odg/pkg/logger"
)

// DataHandler serves tiered JSON resources behind the admission check.
type DataHandler struct {
	decisions *service.AccessDecisionService
	retrieval *service.DataRetrievalService
	log       logger.Logger
}

// NewDataHandler creates a DataHandler.
func NewDataHandler(decisions *service.AccessDecisionService, retrieval *service.DataRetrievalService, log logger.Logger) *DataHandler {
	return &DataHandler{
		decisions: decisions,
		retrieval: retrieval,
		log:       log.WithComponent("data-handler"),
	}
}

// GetData handles GET /api/v1/data/*path: admission first, then retrieval
// with conditional-request support.
func (h *DataHandler) GetData(c *gin.Context) {
	user, ok := middleware.UserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errors.ToErrorResponse(errors.ErrAccessDenied("no identity on request")))
		return
	}

	decision, err := h.decisions.CheckAndRecordAccess(
		c.Request.Context(), user, c.Request.URL.Path, c.Request.Method, nil)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if decision.RateLimitStatus != nil {
		writeRateLimitHeaders(c, decision.RateLimitStatus)
	}
	if !decision.Allowed {
		h.writeDenial(c, decision)
		return
	}

	rawPath := strings.TrimPrefix(c.Param("path"), "/")
	result, err := h.fetch(c, user.UserID, rawPath)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.Header("ETag", result.ETag)
	c.Header("Last-Modified", result.LastModified.UTC().Format(http.TimeFormat))
	if result.NotModified {
		c.Status(http.StatusNotModified)
		return
	}

	c.Header("X-Checksum-SHA256", result.Checksum)
	if result.CacheHit {
		c.Header("X-Cache", "HIT")
	} else {
		c.Header("X-Cache", "MISS")
	}
	contentType := result.ContentType
	if contentType == "" {
		contentType = "application/json"
	}
	c.Data(http.StatusOK, contentType, result.Content)
}

// GetMetadata handles GET /api/v1/metadata/*path: resource validators
// without the body, behind the same admission check.
func (h *DataHandler) GetMetadata(c *gin.Context) {
	user, ok := middleware.UserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errors.ToErrorResponse(errors.ErrAccessDenied("no identity on request")))
		return
	}

	decision, err := h.decisions.CheckAndRecordAccess(
		c.Request.Context(), user, c.Request.URL.Path, c.Request.Method, nil)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if decision.RateLimitStatus != nil {
		writeRateLimitHeaders(c, decision.RateLimitStatus)
	}
	if !decision.Allowed {
		h.writeDenial(c, decision)
		return
	}

	rawPath := strings.TrimPrefix(c.Param("path"), "/")
	metadata, err := h.retrieval.RetrieveMetadata(c.Request.Context(), user.UserID, rawPath)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"path":          rawPath,
		"size":          metadata.Size,
		"etag":          metadata.ETag,
		"last_modified": metadata.LastModified.UTC().Format(time.RFC3339),
		"content_type":  metadata.ContentType,
	})
}

// fetch selects the retrieval operation from the conditional headers.
func (h *DataHandler) fetch(c *gin.Context, userID, rawPath string) (*service.RetrievalResult, error) {
	ctx := c.Request.Context()

	if etag := c.GetHeader("If-None-Match"); etag != "" {
		return h.retrieval.RetrieveDataWithETag(ctx, userID, rawPath, etag)
	}
	if raw := c.GetHeader("If-Modified-Since"); raw != "" {
		if since, err := http.ParseTime(raw); err == nil {
			return h.retrieval.RetrieveDataIfModified(ctx, userID, rawPath, since)
		}
		// Unparseable dates are ignored, same as an unconditional read.
	}
	return h.retrieval.RetrieveData(ctx, userID, rawPath)
}

func (h *DataHandler) writeDenial(c *gin.Context, decision *models.AccessDecision) {
	switch decision.Reason {
	case constants.ReasonRateLimitExceeded:
		if decision.RateLimitStatus != nil {
			retryAfter := int(decision.RateLimitStatus.RetryAfter.Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
		}
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":             "rate_limit_exceeded",
			"error_description": decision.Message,
		})
	case constants.ReasonEndpointNotFound:
		c.JSON(http.StatusNotFound, gin.H{
			"error":             "not_found",
			"error_description": decision.Message,
		})
	default:
		c.JSON(http.StatusForbidden, gin.H{
			"error":             string(constants.ErrCodeAccessDenied),
			"error_description": decision.Message,
		})
	}
}

func (h *DataHandler) writeError(c *gin.Context, err error) {
	status := errors.HTTPStatusOf(err)
	if status >= http.StatusInternalServerError {
		h.log.Error(c.Request.Context(), "request failed", err,
			logger.String("path", c.Request.URL.Path),
		)
	}
	c.JSON(status, errors.ToErrorResponse(err))
}

func writeRateLimitHeaders(c *gin.Context, status *models.RateLimitResult) {
	c.Header("X-RateLimit-Limit", strconv.Itoa(status.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(status.Remaining))
	c.Header("X-RateLimit-Reset", strconv.FormatInt(status.ResetAt.Unix(), 10))
}
