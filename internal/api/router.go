package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/steemit/discussion/internal/api/comments"
	"github.com/steemit/discussion/internal/api/follows"
	"github.com/steemit/discussion/internal/api/moderation"
	"github.com/steemit/discussion/internal/api/objects"
	"github.com/steemit/discussion/internal/cache"
	"github.com/steemit/discussion/internal/db"
	"github.com/steemit/discussion/internal/discussion"
	"github.com/steemit/discussion/pkg/logging"
)

// Router sets up API routes
type Router struct {
	handler *JSONRPCHandler
	db      *db.DB
	cache   cache.Store
	svc     *discussion.Service
	links   *objects.LinkRegistry
	logger  *zap.Logger
}

// NewRouter creates a new API router. store may be nil.
func NewRouter(database *db.DB, store cache.Store, svc *discussion.Service, links *objects.LinkRegistry) *Router {
	router := &Router{
		handler: NewJSONRPCHandler(),
		db:      database,
		cache:   store,
		svc:     svc,
		links:   links,
		logger:  logging.WithComponent("api-router"),
	}

	// Register all API methods
	router.registerMethods()

	return router
}

// SetupRoutes sets up all API routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	// Health check endpoints
	engine.GET("/health", r.healthHandler)
	engine.GET("/.well-known/healthcheck.json", r.healthHandler)

	// JSON-RPC endpoint
	engine.POST("/", r.handler.Handle)
}

// registerMethods registers all API methods
func (r *Router) registerMethods() {
	builder := objects.NewBuilder(r.links)

	commentAPI := comments.NewCommentAPI(r.svc, builder)
	r.handler.RegisterMethod("comments.post", commentAPI.Post)
	r.handler.RegisterMethod("comments.edit", commentAPI.Edit)
	r.handler.RegisterMethod("comments.get", commentAPI.Get)
	r.handler.RegisterMethod("comments.get_thread", commentAPI.GetThread)

	reactionAPI := comments.NewReactionAPI(r.svc)
	r.handler.RegisterMethod("reactions.react", reactionAPI.React)
	r.handler.RegisterMethod("reactions.unreact", reactionAPI.Unreact)
	r.handler.RegisterMethod("reactions.get_tally", reactionAPI.GetTally)
	r.handler.RegisterMethod("reactions.list", reactionAPI.List)

	flagAPI := moderation.NewFlagAPI(r.svc)
	r.handler.RegisterMethod("flags.report", flagAPI.Report)
	r.handler.RegisterMethod("flags.resolve", flagAPI.Resolve)
	r.handler.RegisterMethod("flags.reopen", flagAPI.Reopen)
	r.handler.RegisterMethod("flags.get", flagAPI.Get)
	r.handler.RegisterMethod("flags.list", flagAPI.List)
	r.handler.RegisterMethod("flags.reasons", flagAPI.Reasons)

	blockAPI := moderation.NewBlockAPI(r.svc)
	r.handler.RegisterMethod("blocks.block", blockAPI.Block)
	r.handler.RegisterMethod("blocks.unblock", blockAPI.Unblock)
	r.handler.RegisterMethod("blocks.is_blocked", blockAPI.IsBlocked)
	r.handler.RegisterMethod("blocks.history", blockAPI.History)
	r.handler.RegisterMethod("blocks.list", blockAPI.List)

	followAPI := follows.NewFollowAPI(r.svc)
	r.handler.RegisterMethod("follows.follow", followAPI.Follow)
	r.handler.RegisterMethod("follows.unfollow", followAPI.Unfollow)
	r.handler.RegisterMethod("follows.is_following", followAPI.IsFollowing)
	r.handler.RegisterMethod("follows.get_followers", followAPI.FollowersOf)
	r.handler.RegisterMethod("follows.list", followAPI.List)

	r.logger.Info("JSON-RPC methods registered", zap.Int("count", r.handler.Methods()))
}

// healthHandler handles health check requests
func (r *Router) healthHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := gin.H{"database": "OK"}
	status := http.StatusOK
	if err := r.db.Health(ctx); err != nil {
		r.logger.Warn("Database health check failed", zap.Error(err))
		checks["database"] = "unavailable"
		status = http.StatusServiceUnavailable
	}
	if r.cache != nil {
		checks["cache"] = "OK"
		if err := r.cache.Health(ctx); err != nil && !errors.Is(err, cache.ErrCacheDisabled) {
			r.logger.Warn("Cache health check failed", zap.Error(err))
			checks["cache"] = "unavailable"
		}
	}

	state := "OK"
	if status != http.StatusOK {
		state = "DEGRADED"
	}
	c.JSON(status, gin.H{
		"status":  state,
		"service": "discussion-api",
		"checks":  checks,
	})
}
