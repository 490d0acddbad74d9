// Command server runs the odg gateway: admission checks in front of a
// tiered JSON-resource API.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	appservice "github.com/opendgw/odg/internal/application/service"
	"github.com/opendgw/odg/internal/config"
	"github.com/opendgw/odg/internal/domain/repository"
	domainservice "github.com/opendgw/odg/internal/domain/service"
	"github.com/opendgw/odg/internal/infrastructure/audit"
	"github.com/opendgw/odg/internal/infrastructure/cache"
	"github.com/opendgw/odg/internal/infrastructure/monitoring"
	"github.com/opendgw/odg/internal/infrastructure/persistence/postgres"
	redisstore "github.com/opendgw/odg/internal/infrastructure/persistence/redis"
	"github.com/opendgw/odg/internal/infrastructure/policy"
	"github.com/opendgw/odg/internal/infrastructure/ratelimit"
	"github.com/opendgw/odg/internal/infrastructure/storage/fs"
	gatewayhttp "github.com/opendgw/odg/internal/interfaces/http"
	"github.com/opendgw/odg/internal/interfaces/http/handlers"
	"github.com/opendgw/odg/pkg/logger"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	appLogger, err := monitoring.NewZapLogger(&cfg.Log)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	ctx := context.Background()

	cleanup, err := monitoring.InitTracer(&cfg.Tracing)
	if err != nil {
		appLogger.Fatal(ctx, "failed to initialize tracer", err)
	}
	defer cleanup()

	metrics := monitoring.NewMetrics()

	healthChecks := make(map[string]handlers.Pinger)

	// The access log always lives in postgres; redis is optional and serves
	// only as the admission counter store for multi-instance deployments.
	db, err := postgres.NewDBConnection(&cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatal(ctx, "failed to connect to database", err)
	}
	if err := postgres.Migrate(db); err != nil {
		appLogger.Fatal(ctx, "failed to run migrations", err)
	}
	healthChecks["database"] = gormPinger{db}
	accessLogRepo := postgres.NewAccessLogRepo(db, appLogger)

	var rateLimitRepo repository.RateLimitRepository
	if cfg.RateLimit.Store == "redis" {
		redisConn, err := redisstore.NewConnection(&cfg.Redis, appLogger)
		if err != nil {
			appLogger.Fatal(ctx, "failed to connect to redis", err)
		}
		defer redisConn.Close()
		rateLimitRepo = redisstore.NewRateLimitStore(redisConn, appLogger)
		healthChecks["redis"] = redisConn
	} else {
		rateLimitRepo = postgres.NewRateLimitRepo(db, appLogger)
	}

	limiter := ratelimit.NewSlidingWindowLimiter(rateLimitRepo, appLogger,
		ratelimit.WithFailurePolicy(cfg.RateLimit.Policy()),
		ratelimit.WithStoreTimeout(cfg.RateLimit.StoreTimeout()),
	)

	resourceStore, err := fs.NewResourceStore(cfg.Storage.DataRoot, cfg.Cache.ContentTTL(), appLogger)
	if err != nil {
		appLogger.Fatal(ctx, "failed to open data root", err)
	}
	resourceCache := cache.NewResourceCache(cfg.Cache.Capacity(), cfg.Cache.CacheDuration(), appLogger)

	var auditSink domainservice.AuditPublisher
	if cfg.Audit.Sink == "kafka" {
		kafkaSink := audit.NewKafkaPublisher(cfg.Audit.Brokers, cfg.Audit.Topic, appLogger)
		defer kafkaSink.Close()
		auditSink = kafkaSink
	} else {
		auditSink = audit.NewLogPublisher(appLogger)
	}

	authorizer := policy.NewStaticAuthorizer(nil, appLogger)

	decisionSvc := appservice.NewAccessDecisionService(
		limiter, authorizer, accessLogRepo, auditSink, metrics, appLogger)
	retrievalSvc := appservice.NewDataRetrievalService(
		resourceStore, resourceCache, auditSink, metrics, appLogger)

	dataHandler := handlers.NewDataHandler(decisionSvc, retrievalSvc, appLogger)
	healthHandler := handlers.NewHealthHandler(decisionSvc, healthChecks, appLogger)
	adminHandler := handlers.NewAdminHandler(limiter, retrievalSvc, cfg.RateLimit.Retention(), appLogger)

	router := gatewayhttp.NewRouter(cfg, appLogger, healthHandler, dataHandler, adminHandler)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(runCtx)

	group.Go(router.Start)

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(),
			time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
		defer cancel()
		return router.Stop(shutdownCtx)
	})

	// Retention sweep keeps both stores from growing without bound.
	group.Go(func() error {
		ticker := time.NewTicker(cfg.RateLimit.SweepInterval())
		defer ticker.Stop()
		for {
			select {
			case <-groupCtx.Done():
				return nil
			case <-ticker.C:
				removed, err := limiter.Sweep(groupCtx, cfg.RateLimit.Retention())
				if err != nil {
					appLogger.Warn(groupCtx, "retention sweep failed", logger.Err(err))
					continue
				}
				cutoff := time.Now().Add(-cfg.RateLimit.Retention())
				if _, err := accessLogRepo.DeleteOlderThan(groupCtx, cutoff); err != nil {
					appLogger.Warn(groupCtx, "access log sweep failed", logger.Err(err))
				}
				resourceCache.Cleanup(cfg.RateLimit.Retention(), time.Now())
				appLogger.Debug(groupCtx, "retention sweep completed", logger.Int64("removed", removed))
			}
		}
	})

	if cfg.Storage.WatchEnabled {
		watcher, err := fs.NewWatcher(resourceStore, retrievalSvc.Invalidate, retrievalSvc.RefreshMetadata, appLogger)
		if err != nil {
			appLogger.Fatal(ctx, "failed to start filesystem watcher", err)
		}
		group.Go(func() error {
			return watcher.Run(groupCtx)
		})
	}

	if err := group.Wait(); err != nil {
		appLogger.Error(ctx, "gateway stopped with error", err)
		os.Exit(1)
	}
	appLogger.Info(ctx, "gateway stopped")
}

// gormPinger adapts a gorm connection to the health-check interface.
type gormPinger struct {
	db *gorm.DB
}

func (p gormPinger) Ping(ctx context.Context) error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
