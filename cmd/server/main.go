package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"kidshield/internal/config"
	"kidshield/internal/database"
	"kidshield/internal/handlers"
	"kidshield/internal/repository"
	"kidshield/internal/security"
	"kidshield/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger := config.NewLogger(cfg.Logging)

	// Initialize database with config (supports sqlite, postgres, mysql)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		logger.Fatal().Err(err).Str("db_type", cfg.DatabaseType).Msg("Failed to initialize database")
	}
	defer db.Close()

	logger.Info().Str("db_type", cfg.DatabaseType).Msg("Database connection established")

	// Create tables
	bootstrapCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = db.Bootstrap(bootstrapCtx, logger)
	cancel()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to bootstrap schema")
	}

	// Initialize repositories
	familyRepo := repository.NewFamilyRepository(db)
	childRepo := repository.NewChildRepository(db)
	ruleRepo := repository.NewRuleRepository(db)
	eventRepo := repository.NewEventRepository(db)

	// Initialize services
	tokens := security.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)
	authService := service.NewAuthService(familyRepo, tokens, logger)
	childService := service.NewChildService(childRepo)
	ruleService := service.NewRuleService(ruleRepo)
	eventService := service.NewEventService(eventRepo, childRepo)

	if cfg.AllowAllOrigins() {
		logger.Warn().Msg("CORS allows every origin")
	}

	// Initialize handlers
	middleware := handlers.NewMiddleware(authService, security.NewRateLimiter(cfg.AuthRateLimit), cfg.TrustedProxies, cfg.AllowedOrigins, logger)
	handler := handlers.NewRouter(handlers.Handlers{
		Auth:     handlers.NewAuthHandler(authService),
		Children: handlers.NewChildHandler(childService),
		Rules:    handlers.NewRuleHandler(ruleService),
		Events:   handlers.NewEventHandler(eventService),
	}, middleware)

	// Start server
	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", addr).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Server shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Graceful shutdown failed")
	}
}
