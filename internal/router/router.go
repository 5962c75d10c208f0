package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/stemsi/lesson-orchestrator/internal/config"
	"github.com/stemsi/lesson-orchestrator/internal/handler"
	"github.com/stemsi/lesson-orchestrator/internal/middleware"
	"github.com/stemsi/lesson-orchestrator/internal/response"
	"github.com/stemsi/lesson-orchestrator/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth    *handler.AuthHandler
	Lesson  *handler.LessonHandler
	WS      *handler.WSHandler
	Monitor *handler.MonitorHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
// authLimiter guards credential issuing; nil disables it.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
	authLimiter *middleware.RateLimiter,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api/v1")

	// ─── 1. Credentials (Public, Rate Limited) ─────────────────────────
	sessions := api.Group("/sessions")
	if authLimiter != nil {
		sessions.Use(authLimiter.Middleware())
	}
	{
		sessions.POST("", handlers.Auth.IssueSession)
	}

	// ─── 2. Lesson & Monitor (JWT) ─────────────────────────────────────
	authed := api.Group("")
	authed.Use(middleware.RequireJWT(authService))
	{
		authed.GET("/lesson", middleware.CacheControl(5*time.Minute), handlers.Lesson.Summary)
		authed.GET("/sessions/:id/monitor",
			middleware.RequireSessionAccess("id"),
			handlers.Monitor.SessionMonitorSSE,
		)
	}

	// ─── 3. WebSocket Group (Learner WS Auth) ──────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireLearnerWSAuth(authService))
	{
		ws.GET("/lesson", handlers.WS.LessonStream)
	}

	return router
}
