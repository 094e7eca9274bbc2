package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/phonginreallife/rentdesk/db"
	"github.com/phonginreallife/rentdesk/internal/config"
	"github.com/phonginreallife/rentdesk/internal/logger"
	"github.com/phonginreallife/rentdesk/router"
	"github.com/phonginreallife/rentdesk/services"
	"github.com/phonginreallife/rentdesk/workers"
)

func main() {
	// Load Config
	if err := config.LoadConfig(os.Getenv("RENTDESK_CONFIG_PATH")); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zl, err := logger.NewLogger(config.App.LogLevel, config.App.LogFormat, "rentdesk-stubapi")
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	if config.App.JWTSecret == "" {
		zl.Fatal("RENTDESK_JWT_SECRET environment variable (or config) is required")
	}
	tokens, err := services.NewTokenService(config.App.JWTSecret, config.App.JWTTTL)
	if err != nil {
		zl.Fatal("Failed to create token service", zap.Error(err))
	}

	store := db.NewMemoryStore()
	if config.App.SeedDemo {
		if err := db.SeedDemoData(store, time.Now(), 0); err != nil {
			zl.Fatal("Failed to seed demo data", zap.Error(err))
		}
		zl.Info("Seeded demo data", zap.String("password", db.DemoPassword))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if config.App.ReconcileInterval > 0 {
		worker := workers.NewReconcileWorker(store, config.App.ReconcileInterval, zl)
		go worker.Start(ctx)
	}

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:              ":" + config.App.Port,
		Handler:           router.NewGinRouter(store, tokens, zl),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zl.Info("Stub API listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zl.Info("Shutting down stub API...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("Graceful shutdown failed", zap.Error(err))
	}
}
