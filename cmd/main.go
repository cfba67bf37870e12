/*
Package main is the entry point for the GeoDispatch Server.

It is responsible for loading configuration, initializing the global logging system,
connecting the optional durable profile store, wiring the presence registry and
dispatcher into the HTTP server, and gracefully handling operating system
interrupt signals (SIGINT, SIGTERM) for a smooth shutdown.
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"geodispatch/internal/app/dispatch"
	"geodispatch/internal/app/presence"
	"geodispatch/internal/app/store"
	"geodispatch/internal/configs"
	"geodispatch/internal/handler"
	"geodispatch/internal/pkg/logx"
)

func main() {
	// Load configuration from environment variables
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	logx.InitGlobalLogger(cfg.Environment == "development")
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Bool("store_enabled", cfg.DatabaseDSN != "").
		Msg("Configuration loaded successfully")

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect the durable profile store when configured. The in-memory
	// registry carries matching either way.
	var profiles *store.Profiles
	if cfg.DatabaseDSN != "" {
		pool, err := store.NewPool(cfg.DatabaseDSN)
		if err != nil {
			logx.Fatal(err, "Failed to connect profile store")
		}
		defer pool.Close()

		profiles = store.NewProfiles(pool)
		logx.Info("Profile store connected and migrated.")
	} else {
		logx.Warn("DATABASE_URL not set. Running without durable profile store.")
	}

	// Initialize presence registry and dispatcher
	registry := presence.NewRegistry()
	dispatcher := dispatch.NewDispatcher(registry)

	// Setup HTTP server and routes
	deps := &handler.AppDeps{
		Registry:   registry,
		Dispatcher: dispatcher,
		Profiles:   profiles,
		Config:     cfg,
	}
	router := handler.Router(deps)

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logx.Info(fmt.Sprintf("GeoDispatch Server starting on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server with a timeout of 5 seconds.
	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Fatal(err, "Server forced to shutdown")
	}

	logx.Info("Server gracefully stopped.")
}
