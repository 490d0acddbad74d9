// Package http wires the gin engine, routes and HTTP server lifecycle.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"

	"github.com/opendgw/odg/internal/config"
	"github.com/opendgw/odg/internal/interfaces/http/handlers"
	"github.com/opendgw/odg/internal/interfaces/http/middleware"
	"github.com/opendgw/odg/pkg/logger"
)

// Router assembles the HTTP surface of the gateway.
type Router struct {
	engine        *gin.Engine
	config        *config.Config
	log           logger.Logger
	healthHandler *handlers.HealthHandler
	dataHandler   *handlers.DataHandler
	adminHandler  *handlers.AdminHandler
	server        *http.Server
}

// NewRouter creates a Router. Routes are registered lazily by SetupRoutes.
func NewRouter(
	cfg *config.Config,
	log logger.Logger,
	healthHandler *handlers.HealthHandler,
	dataHandler *handlers.DataHandler,
	adminHandler *handlers.AdminHandler,
) *Router {
	if cfg.Server.Mode != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	return &Router{
		engine:        gin.New(),
		config:        cfg,
		log:           log.WithComponent("router"),
		healthHandler: healthHandler,
		dataHandler:   dataHandler,
		adminHandler:  adminHandler,
	}
}

// SetupRoutes registers middleware and the route tree.
func (r *Router) SetupRoutes() {
	r.engine.Use(gin.Recovery())
	r.engine.Use(middleware.RequestID())
	r.engine.Use(middleware.RequestLogger(r.log))
	if r.config.Tracing.Enabled {
		r.engine.Use(middleware.Tracing(otel.Tracer("odg-gateway")))
	}

	corsConfig := cors.Config{
		AllowOrigins:  r.config.Server.AllowedOrigins,
		AllowMethods:  []string{"GET", "HEAD", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "X-Request-ID", "If-None-Match", "If-Modified-Since"},
		ExposeHeaders: []string{"X-Request-ID", "ETag", "Last-Modified", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		MaxAge:        12 * time.Hour,
	}
	if len(corsConfig.AllowOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	}
	r.engine.Use(cors.New(corsConfig))

	// Always-reachable endpoints: no identity, no quota.
	r.engine.GET("/health", r.healthHandler.HealthCheck)
	r.engine.GET("/ready", r.healthHandler.ReadinessCheck)
	r.engine.GET("/live", r.healthHandler.LivenessCheck)
	r.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if r.config.Debug.PprofEnabled {
		pprof.Register(r.engine)
	}

	identity := middleware.Identity(&r.config.Auth, r.config.RateLimit.Tiers, r.log)

	v1 := r.engine.Group("/api/v1")
	v1.Use(identity)
	{
		v1.GET("/data/*path", r.dataHandler.GetData)
		v1.GET("/metadata/*path", r.dataHandler.GetMetadata)
	}

	admin := r.engine.Group("/admin/v1")
	admin.Use(identity)
	{
		admin.GET("/users/:user_id/usage", r.adminHandler.GetUsage)
		admin.POST("/users/:user_id/reset", r.adminHandler.ResetLimit)
		admin.GET("/cache/stats", r.adminHandler.GetCacheStats)
		admin.POST("/sweep", r.adminHandler.TriggerSweep)
	}

	r.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":             "not_found",
			"error_description": "the requested endpoint does not exist",
		})
	})
}

// Engine exposes the underlying gin engine, mainly for tests.
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// Start sets up routes and serves until the listener fails or Stop is
// called. It blocks the calling goroutine.
func (r *Router) Start() error {
	r.SetupRoutes()

	addr := r.config.Server.Address()
	r.server = &http.Server{
		Addr:           addr,
		Handler:        r.engine,
		ReadTimeout:    time.Duration(r.config.Server.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(r.config.Server.WriteTimeout) * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	r.log.Info(context.Background(), "http server starting", logger.String("address", addr))

	if err := r.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop drains in-flight requests and shuts the server down.
func (r *Router) Stop(ctx context.Context) error {
	if r.server == nil {
		return nil
	}
	r.log.Info(ctx, "http server stopping")
	return r.server.Shutdown(ctx)
}
