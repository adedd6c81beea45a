// Reelroom - Streaming Aggregator with Social Watch Features
// Copyright 2026 Reelroom Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelroom/reelroom

// Command server runs the Reelroom API: the presence service, the social
// data endpoints and the TMDB catalog proxy, all under a suture supervisor
// tree.
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

	"github.com/reelroom/reelroom/internal/api"
	"github.com/reelroom/reelroom/internal/auth"
	"github.com/reelroom/reelroom/internal/cache"
	"github.com/reelroom/reelroom/internal/config"
	"github.com/reelroom/reelroom/internal/database"
	"github.com/reelroom/reelroom/internal/logging"
	"github.com/reelroom/reelroom/internal/presence"
	"github.com/reelroom/reelroom/internal/supervisor"
	"github.com/reelroom/reelroom/internal/supervisor/services"
	"github.com/reelroom/reelroom/internal/tmdb"
	ws "github.com/reelroom/reelroom/internal/websocket"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("version", version).
		Str("db_path", cfg.Database.Path).
		Bool("tmdb_configured", cfg.TMDB.APIKey != "").
		Msg("Starting Reelroom")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()

	tmdbCache, err := cache.New(cfg.Cache)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize cache")
	}
	defer func() {
		if err := tmdbCache.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing cache")
		}
	}()

	tmdbClient := tmdb.New(cfg.TMDB, tmdbCache)
	if !tmdbClient.Configured() {
		logging.Warn().Msg("TMDB_API_KEY not set, catalog endpoints will return 503")
	}

	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize JWT manager")
	}

	var credentials *auth.CredentialManager
	if cfg.Security.AdminUsername != "" {
		credentials, err = auth.NewCredentialManager(cfg.Security.AdminUsername, cfg.Security.AdminPassword)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to initialize credentials")
		}
	} else {
		logging.Warn().Msg("ADMIN_USERNAME not set, login is disabled")
	}

	anonManager, err := auth.NewAnonManager(cfg.Security.AnonCookieSecret)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize anonymous identity manager")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Presence wiring. The hub is created first, then the registry's count
	// callback pushes through it, so every distinct-count change becomes one
	// activeUsers:update broadcast.
	var hub *ws.Hub
	registry := presence.NewRegistry(
		presence.WithCountCallback(func(count int) {
			hub.BroadcastActiveUsers(count)
		}),
		presence.WithEmergencyThreshold(cfg.Presence.EmergencyThreshold),
	)
	hub = ws.NewHub(registry)
	reaper := presence.NewReaper(registry, cfg.Presence.ReapInterval, cfg.Presence.GraceWindow)

	handler := api.NewHandler(db, cfg, jwtManager, credentials, anonManager, tmdbClient, registry, hub, version)
	router := api.NewRouter(handler, api.NewChiMiddleware(&api.ChiMiddlewareConfig{
		CORSAllowedOrigins:   cfg.Security.CORSOrigins,
		CORSAllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		CORSAllowedHeaders:   []string{"Content-Type", "Authorization"},
		CORSAllowCredentials: true,
		CORSMaxAge:           86400,
		RateLimitRequests:    cfg.Security.RateLimitReqs,
		RateLimitWindow:      cfg.Security.RateLimitWindow,
	}))

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	tree.AddPresenceService(services.NewWebSocketHubService(hub))
	tree.AddPresenceService(reaper)
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("Services added to supervisor tree")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Reelroom stopped gracefully")
}
