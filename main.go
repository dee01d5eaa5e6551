package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/isdelr/blogpost-be/internal/api"
	"github.com/isdelr/blogpost-be/internal/api/handlers"
	"github.com/isdelr/blogpost-be/internal/auth"
	"github.com/isdelr/blogpost-be/internal/config"
	"github.com/isdelr/blogpost-be/internal/database"
	"github.com/isdelr/blogpost-be/internal/indexer"
	"github.com/isdelr/blogpost-be/internal/logger"
	"github.com/isdelr/blogpost-be/internal/search"
	"github.com/isdelr/blogpost-be/internal/services"
	"github.com/isdelr/blogpost-be/internal/websocket"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.LogLevel)

	// Set up database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database migrations")
	}

	// Set up WebSocket Hub
	hub := websocket.NewHub()
	go hub.Run()

	// Set up services
	tokens := auth.NewTokenService(db, cfg.JWTSecret, cfg.TokenTTL)
	deleter := services.NewSoftDeleter(db, tokens, hub)
	svc := api.Services{
		Users:    services.NewUserService(db, tokens, deleter),
		Posts:    services.NewPostService(db, deleter, hub),
		Comments: services.NewCommentService(db, deleter, hub),
	}

	// Analytics and index sync only run against a configured search cluster.
	var scheduler *indexer.Scheduler
	if cfg.ElasticURL != "" {
		es, err := search.New(cfg.ElasticURL, cfg.ElasticAPIKey, nil)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize search client")
		}
		svc.Analytics = services.NewAnalyticsService(es)

		scheduler, err = indexer.NewScheduler(indexer.NewSyncer(db, es), cfg.IndexSyncSchedule)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to set up index sync")
		}
		scheduler.Start()
	} else {
		log.Warn().Msg("ELASTIC_URL not set, analytics disabled")
		svc.Analytics = services.NewAnalyticsService(nil)
	}

	// Set up router
	router := api.NewRouter(db, auth.NewGuard(tokens, cfg.AllowBearerToken), hub, svc, api.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		Cookies:        handlers.Cookies{TTL: tokens.TTL(), Secure: cfg.SecureCookies},
		ExposeToken:    cfg.AllowBearerToken,
	})

	// Set up server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.ServerPort).Msg("Server starting")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("ListenAndServe failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	if scheduler != nil {
		scheduler.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	hub.Stop()

	log.Info().Msg("Server exiting")
}
