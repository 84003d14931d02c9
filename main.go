package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	database "github.com/FACorreiaa/fogline/internal/db"
	"github.com/FACorreiaa/fogline/internal/observability/metrics"
	"github.com/FACorreiaa/fogline/internal/observability/tracer"
	"github.com/FACorreiaa/fogline/internal/pkg/config"
	"github.com/FACorreiaa/fogline/internal/pkg/logger"
	"github.com/FACorreiaa/fogline/internal/routes"
	"github.com/FACorreiaa/fogline/internal/server"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment")
	}

	if err := logger.Init(zapcore.InfoLevel, zap.String("service", "fogline")); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	l := logger.Log

	cfg, err := config.Load()
	if err != nil {
		l.Fatal("Failed to load configuration", zap.Error(err))
	}

	shutdownOtel, err := tracer.InitOtelProviders("fogline", ":"+cfg.MetricsPort)
	if err != nil {
		l.Fatal("Failed to initialize observability", zap.Error(err))
	}
	metrics.InitAppMetrics()

	dbCfg, err := database.NewDatabaseConfig(cfg, l)
	if err != nil {
		l.Fatal("Failed to build database config", zap.Error(err))
	}
	if err := database.RunMigrations(dbCfg.ConnectionURL, l); err != nil {
		l.Fatal("Failed to run migrations", zap.Error(err))
	}

	pool, err := database.Init(dbCfg.ConnectionURL, cfg.Repositories.Postgres, l)
	if err != nil {
		l.Fatal("Failed to initialize database pool", zap.Error(err))
	}
	defer pool.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if !database.WaitForDB(ctx, pool, l) {
		l.Fatal("Database is not reachable")
	}

	router, decayWorker := routes.SetupRouter(cfg, pool, l)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(gctx, ":"+cfg.ServerPort, router, l)
	})
	g.Go(func() error {
		decayWorker.Run(gctx)
		return nil
	})

	if err := g.Wait(); err != nil {
		l.Error("Server exited with error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := shutdownOtel(shutdownCtx); err != nil {
		l.Warn("Observability shutdown incomplete", zap.Error(err))
	}

	l.Info("Shutdown complete")
}
