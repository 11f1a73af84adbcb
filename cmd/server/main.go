package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/steemit/discussion/internal/api"
	"github.com/steemit/discussion/internal/api/objects"
	"github.com/steemit/discussion/internal/cache"
	"github.com/steemit/discussion/internal/db"
	"github.com/steemit/discussion/internal/discussion"
	"github.com/steemit/discussion/internal/events"
	"github.com/steemit/discussion/internal/lock"
	"github.com/steemit/discussion/pkg/config"
	"github.com/steemit/discussion/pkg/logging"
	"github.com/steemit/discussion/pkg/telemetry"
)

const (
	lockTTL  = 10 * time.Second
	lockWait = 5 * time.Second
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logging.InitLogger(&cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logging.GetLogger().Sync()

	logger := logging.GetLogger()
	logger.Info("Starting Discussion API Server")

	// Initialize telemetry
	telemetryShutdown, err := telemetry.Init(&cfg.Telemetry)
	if err != nil {
		logger.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer telemetryShutdown()

	// Initialize database
	database, err := db.New(&cfg.Database, cfg.Logging.Level)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(context.Background()); err != nil {
			logger.Fatal("Failed to migrate database", zap.Error(err))
		}
	}

	// Initialize Redis, or fall back to in-process cache and locks
	redisCache, err := cache.New(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisCache.Close()

	var (
		store    cache.Store
		locker   lock.Locker
		notifier discussion.Notifier
	)
	if redisCache != nil {
		store = redisCache
		locker = lock.NewRedis(redisCache.Client(), lockTTL, lockWait)
		notifier = events.NewRedisPublisher(redisCache.Client())
		logger.Info("Using Redis for thread cache, locks and events")
	} else {
		store = cache.NewLocal(cfg.Comments.ThreadCacheSize, cfg.Comments.ThreadCacheTTL)
		locker = lock.NewLocal()
		notifier = discussion.NewLogNotifier(logging.WithComponent("notifier"))
		logger.Warn("Redis disabled; locks are local to this process")
	}

	svc := discussion.New(discussion.Deps{
		Repo:       db.NewRepository(database.DB),
		Locker:     locker,
		Cache:      store,
		Authorizer: discussion.NewStaticAuthorizer(cfg.Moderation.Moderators),
		Notifier:   notifier,
		Comments:   cfg.Comments,
		Flags:      cfg.Flags,
	})

	// Create Gin router
	if cfg.Logging.Level == "DEBUG" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(telemetry.Middleware())

	if cfg.Telemetry.PrometheusEnabled {
		router.GET("/metrics", gin.WrapH(telemetry.MetricsHandler()))
	}

	api.NewRouter(database, store, svc, objects.NewLinkRegistry(cfg.Links)).SetupRoutes(router)

	// Create HTTP server
	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Server starting", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	svc.Comments.Wait()

	logger.Info("Server exited")
}
