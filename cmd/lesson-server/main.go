package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/lesson-orchestrator/internal/config"
	"github.com/stemsi/lesson-orchestrator/internal/database"
	"github.com/stemsi/lesson-orchestrator/internal/handler"
	"github.com/stemsi/lesson-orchestrator/internal/logger"
	"github.com/stemsi/lesson-orchestrator/internal/middleware"
	"github.com/stemsi/lesson-orchestrator/internal/router"
	"github.com/stemsi/lesson-orchestrator/internal/service"
	"github.com/stemsi/lesson-orchestrator/internal/validator"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Str("script", cfg.ScriptPath).
		Msg("Starting lesson server")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to Redis (optional) ───────────────────────────────────
	// Without Redis the monitor endpoint answers 503 and the
	// one-connection-per-session guard is off.
	rdb, err := database.NewRedisClient(ctx, cfg.RedisURL, log)
	switch {
	case errors.Is(err, database.ErrRedisDisabled):
		log.Warn().Msg("REDIS_URL not set, session monitor disabled")
	case err != nil:
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	default:
		defer rdb.Close()
	}

	// ─── Load Lesson Script ────────────────────────────────────────────
	script, err := service.LoadScript(cfg.ScriptPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load lesson script")
	}

	// ─── Initialize Services ──────────────────────────────────────────
	authService, err := service.NewAuthService(cfg.JWTSecret, cfg.JWTExpiry)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize auth")
	}
	lessonService := service.NewLessonService(script, cfg.NarrationBytesPerSecond, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:    handler.NewAuthHandler(authService, log),
		Lesson:  handler.NewLessonHandler(lessonService),
		WS:      handler.NewWSHandler(rdb, lessonService, log, cfg.AllowedOrigins),
		Monitor: handler.NewMonitorHandler(rdb, log),
	}

	// 10 credentials per minute per client IP.
	authLimiter := middleware.NewRateLimiter(ctx, 10, time.Minute)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, cfg, authLimiter)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
