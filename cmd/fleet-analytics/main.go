package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fleetify/fleet-analytics/internal/consumer"
	corecfg "github.com/fleetify/fleet-analytics/internal/core/config"
	"github.com/fleetify/fleet-analytics/internal/migrations"
	"github.com/fleetify/fleet-analytics/internal/query"
	"github.com/fleetify/fleet-analytics/internal/recompute"
	"github.com/fleetify/fleet-analytics/internal/server"
	"github.com/fleetify/fleet-analytics/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "fleet-analytics.yaml", "Path to configuration file")
	flag.Parse()

	// 0. Initialize Logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// 1. Load Configuration
	cfg, err := corecfg.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	slog.Info("Loaded config", "config", cfg)

	// 2. Initialize Storage (PostgreSQL)
	dbAdapter, err := postgres.NewAdapter(
		cfg.Database.DSN,
		cfg.Database.MaxOpenConns,
		cfg.Database.MaxIdleConns,
	)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer dbAdapter.Close()

	// 2.1. Run Database Migrations
	if err := migrations.RunMigrations(dbAdapter.DB(), cfg.Database.AutoMigrate); err != nil {
		slog.Error("Failed to run database migrations", "error", err)
		os.Exit(1)
	}

	// 3. Initialize Recompute Pipeline
	cacheStore := postgres.NewChartCacheAdapter(dbAdapter.DB())
	builder := recompute.NewBuilder(dbAdapter, recompute.Options{
		PredictDays:   cfg.Recompute.PredictDays,
		PredictMonths: cfg.Recompute.PredictMonths,
		MileageLimit:  cfg.Recompute.MileageLimit,
	})
	orchestrator := recompute.NewOrchestrator(builder, dbAdapter, cacheStore)

	// 4. Initialize Event Consumer
	eventConsumer := consumer.NewConsumer(consumer.Options{
		URL:              cfg.Queue.URL,
		Queue:            cfg.Queue.Queue,
		ReconnectBackoff: cfg.Queue.Backoff(),
	}, orchestrator)

	// 5. Initialize Query API
	querySvc := query.NewService(cacheStore, builder)

	// 6. Initialize Server
	srv := server.New(fmtAddr(cfg.Server.Host, cfg.Server.Port), dbAdapter.DB(), cfg.Server.Mode)
	querySvc.RegisterRoutes(srv.Engine)

	// 7. Start Services
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Consume mutation events in the background; the consumer reconnects
	// on broker failures until ctx is cancelled.
	go func() {
		if err := eventConsumer.Run(ctx); err != nil && err != context.Canceled {
			slog.Error("Consumer stopped with error", "error", err)
		}
	}()

	// Warm the cache in the background so cold starts serve from cache
	// as soon as possible without delaying the HTTP server.
	if cfg.Recompute.WarmOnStartup {
		go func() {
			if err := orchestrator.WarmCache(ctx); err != nil {
				slog.Error("Cache warm-up failed", "error", err)
			}
		}()
	} else {
		slog.Info("Cache warm-up disabled by config")
	}

	// Signal handler triggers the shutdown sequence below.
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		slog.Info("Signal received, shutting down...")
		cancel()
	}()

	// HTTP server blocks until ctx is cancelled.
	if err := srv.Run(ctx); err != nil {
		slog.Error("Server stopped with error", "error", err)
	}

	slog.Info("Shutdown complete")
}

func fmtAddr(host string, port int) string {
	return fmt.Sprintf("%s:%d", host, port)
}
