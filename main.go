package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"storefront_server/api"
	"storefront_server/config"
	"storefront_server/database"
	"storefront_server/services"
	"storefront_server/structs"

	"github.com/MonkyMars/gecho"
	"github.com/joho/godotenv"
)

var logger *gecho.Logger
var cfg *structs.Config

// init function to load environment variables and initialize logger
func init() {
	envErr := godotenv.Load()

	cfg = config.GetConfig()
	logger = config.InitializeLogger()

	if envErr != nil {
		logger.Warn("No .env file found or error loading .env file, proceeding with system environment variables")
	}
	if keys := config.InvalidEnvKeys(); len(keys) > 0 {
		logger.Warn("Ignoring unparseable environment values, defaults used", gecho.Field("keys", keys))
	}
}

func main() {
	db, stores := openStores()

	sm, err := services.NewServiceManager(logger, cfg, db, stores)
	if err != nil {
		logger.Fatal("Failed to initialize services", gecho.Field("error", err))
	}

	if cfg.Jobs.CleanupOnStartup {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		if err := sm.RunCleanup(ctx); err != nil {
			logger.Error("Startup orphan cleanup failed", gecho.Field("error", err))
		}
		cancel()
	}
	sm.Jobs.Start()

	server := &http.Server{
		Addr:           cfg.Server.Port,
		Handler:        api.App(cfg, sm),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	done := setupGracefulShutdown(logger, server, sm)

	logger.Info(fmt.Sprintf("Starting server (%s) on %s", cfg.Server.AppName, cfg.Server.Port))

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Failed to start server", gecho.Field("error", err))
		os.Exit(1)
	}
	<-done
}

// openStores picks the record store from STORE_DRIVER. The memory store keeps nothing across restarts.
func openStores() (*database.DB, *database.Stores) {
	if strings.EqualFold(cfg.Store.Driver, "memory") {
		logger.Warn("Using the in-memory store, data is lost on restart")
		return nil, database.NewMemoryStores()
	}

	if err := database.Initialize(); err != nil {
		logger.Fatal("Failed to initialize database", gecho.Field("error", err))
	}
	db := database.GetInstance()
	return db, database.NewBunStores(db, cfg.Database.WriteTimeout)
}

// setupGracefulShutdown drains the server, stops the jobs and waits for pending recomputes
func setupGracefulShutdown(logger *gecho.Logger, server *http.Server, sm *services.ServiceManager) <-chan struct{} {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})

	logger.Info("Graceful shutdown handler initialized")

	go func() {
		defer close(done)
		sig := <-c
		logger.Info("Received shutdown signal", gecho.Field("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("HTTP server shutdown failed", gecho.Field("error", err))
		}
		if err := sm.Shutdown(ctx); err != nil {
			logger.Error("Service shutdown failed", gecho.Field("error", err))
		}
		if err := database.CloseInstance(); err != nil {
			logger.Error("Failed to close database", gecho.Field("error", err))
		}
	}()

	return done
}
