package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"atlas-backend/infrastructure/config"
	"atlas-backend/infrastructure/di"
	"atlas-backend/interfaces/http/rest"
	v1 "atlas-backend/interfaces/http/rest/v1"

	"go.uber.org/zap"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	container, err := di.InitializeContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}

	// Background workers
	if container.OutboxProcessor != nil {
		container.OutboxProcessor.Start(ctx)
		defer container.OutboxProcessor.Stop()
	}
	if container.ConfigWatcher != nil {
		container.ConfigWatcher.Start()
		defer container.ConfigWatcher.Stop()
	}

	router := rest.NewRouter(
		cfg,
		container.CommandBus,
		container.QueryBus,
		container.TraceSessions,
		container.RateLimiter,
		container.Logger,
	)
	handler := router.Setup()

	srv := &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		container.Logger.Info("Starting server",
			zap.String("address", cfg.ServerAddress),
			zap.String("environment", cfg.Environment),
		)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			container.Logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Optional second listener for clients still on the deprecated v1 API
	var legacySrv *http.Server
	if cfg.LegacyAddress != "" {
		legacySrv = &http.Server{
			Addr:         cfg.LegacyAddress,
			Handler:      v1.NewRouter(cfg, container.QueryBus, container.Logger),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}
		go func() {
			container.Logger.Info("Starting legacy v1 server",
				zap.String("address", cfg.LegacyAddress),
			)
			if err := legacySrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				container.Logger.Fatal("Legacy server failed to start", zap.Error(err))
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	container.Logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		container.Logger.Error("Server shutdown error", zap.Error(err))
	}
	if legacySrv != nil {
		if err := legacySrv.Shutdown(shutdownCtx); err != nil {
			container.Logger.Error("Legacy server shutdown error", zap.Error(err))
		}
	}

	if err := container.Logger.Sync(); err != nil {
		log.Printf("Failed to sync logger: %v", err)
	}

	log.Println("Server stopped")
}
