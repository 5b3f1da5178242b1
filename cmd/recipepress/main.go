// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package main is the entry point for the RecipePress authoring server.
// It loads configuration, connects to Postgres and Valkey, wires the
// generation session, and starts the HTTP server with graceful shutdown.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"recipepress/internal/config"
	"recipepress/internal/database"
	"recipepress/internal/handlers"
	"recipepress/internal/pipeline"
	"recipepress/internal/router"
	"recipepress/internal/settings"
	"recipepress/internal/store"
)

func main() {
	// Structured logger — text output; switch to JSON behind a reverse
	// proxy if a collector needs it.
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	// Load configuration from environment variables.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
	)

	// Connect to PostgreSQL for run history.
	db, err := database.Connect(cfg.DSN())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Run pending migrations.
	if err := database.Migrate(db); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Connect to Valkey (settings store).
	valkeyAddr := fmt.Sprintf("%s:%s", cfg.ValkeyHost, cfg.ValkeyPort)
	valkeyClient, err := settings.Connect(valkeyAddr, cfg.ValkeyPassword)
	if err != nil {
		slog.Error("failed to connect to valkey", "error", err)
		os.Exit(1)
	}
	defer valkeyClient.Close()

	settingsStore := settings.NewStore(valkeyClient)

	// Seed stored settings from the environment. Existing values win;
	// empty env values are never written.
	seedCtx, seedCancel := context.WithTimeout(context.Background(), 10*time.Second)
	err = settingsStore.Seed(seedCtx, map[string]string{
		settings.KeyOpenRouterKey: cfg.OpenRouterKey,
		settings.KeyModelOutline:  cfg.ModelOutline,
		settings.KeyModelBody:     cfg.ModelBody,
		settings.KeyImageProvider: cfg.ImageProvider,
		settings.KeyStabilityKey:  cfg.StabilityKey,
		settings.KeyLeonardoKey:   cfg.LeonardoKey,
		settings.KeyConverterURL:  cfg.ConverterURL,
		settings.KeyWPSiteURL:     cfg.WordPressURL,
		settings.KeyWPUsername:    cfg.WordPressUser,
		settings.KeyWPAppPassword: cfg.WordPressPassword,
	})
	seedCancel()
	if err != nil {
		slog.Error("failed to seed settings", "error", err)
		os.Exit(1)
	}

	runStore := store.NewRunStore(db)

	// The session starts bare; every request rebuilds its components from
	// the stored settings, so runtime key changes take effect immediately.
	session := pipeline.NewSession(pipeline.Deps{Logger: logger})

	api := handlers.NewAPI(session, runStore, settingsStore, cfg, logger)

	// Set up the Chi router with all middleware and routes.
	r := router.New(api)

	// WriteTimeout must accommodate the body stage, which can wait on a
	// reasoning model for several minutes.
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 6 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	// Start the server in a goroutine so we can listen for shutdown signals.
	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown: wait for SIGINT or SIGTERM, then drain connections.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig)

	// Give active requests up to 30 seconds to complete.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}
