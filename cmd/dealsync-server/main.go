// Package main provides the HTTP API server for dealsync.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/openlot/dealsync-go/internal/browser"
	"github.com/openlot/dealsync-go/internal/config"
	"github.com/openlot/dealsync-go/internal/db"
	"github.com/openlot/dealsync-go/internal/metrics"
	"github.com/openlot/dealsync-go/internal/scrape"
	"github.com/openlot/dealsync-go/internal/server"
	"github.com/openlot/dealsync-go/internal/service"
)

// version is set at build time.
var version = "0.1.0"

// dueJobInterval is how often the server looks for scheduled jobs whose
// time has come.
const dueJobInterval = 30 * time.Second

func main() {
	wipeDB := flag.Bool("wipe", false, "wipe all data from database on startup (testing only)")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()

	logger, closeLogs := config.SetupLogger(cfg)
	slog.SetDefault(logger)
	defer func() {
		if err := closeLogs(); err != nil {
			slog.Error("failed to close log file", "error", err)
		}
	}()

	slog.Info("starting dealsync-server", "port", cfg.ServerPort, "version", version)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	dbClient, err := db.NewClient(ctx, db.Config{
		URL:       cfg.SurrealDBURL,
		Namespace: cfg.SurrealDBNamespace,
		Database:  cfg.SurrealDBDatabase,
		Username:  cfg.SurrealDBUser,
		Password:  cfg.SurrealDBPass,
		AuthLevel: cfg.SurrealDBAuthLevel,
	}, logger)
	cancel()
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(context.Background()); err != nil {
			slog.Error("failed to close database", "error", err)
		}
	}()

	initCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := dbClient.InitSchema(initCtx); err != nil {
		slog.Error("failed to initialize schema", "error", err)
		os.Exit(1)
	}
	if *wipeDB || os.Getenv("DEALSYNC_WIPE_DB") == "true" {
		if err := dbClient.WipeData(initCtx); err != nil {
			slog.Error("failed to wipe database", "error", err)
			os.Exit(1)
		}
	}

	fetcher, err := browser.NewRod(browser.Options{
		ControlURL:    cfg.BrowserURL,
		RenderTimeout: cfg.RenderTimeout,
		NetworkSettle: cfg.NetworkSettle,
		Logger:        logger,
	})
	if err != nil {
		slog.Error("failed to init browser", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := fetcher.Close(); err != nil {
			slog.Error("failed to close browser", "error", err)
		}
	}()

	profiles, err := scrape.LoadProfiles(cfg.SitesFile)
	if err != nil {
		slog.Error("failed to load site profiles", "error", err)
		os.Exit(1)
	}

	collector := metrics.NewCollector()
	dbClient.SetMetrics(collector)
	registry := scrape.NewRegistry(profiles, scrape.Deps{
		Fetcher: fetcher,
		Prober:  scrape.NewHTTPProber(cfg.ProbeTimeout),
		Metrics: collector,
		Logger:  logger,
	})
	scheduler := service.NewJobScheduler(dbClient, cfg.GraceWindow, logger)
	orchestrator := service.NewSyncOrchestrator(registry,
		service.NewDedupGate(dbClient, logger),
		scheduler,
		logger)

	srv := server.New(server.Options{
		Port:         cfg.ServerPort,
		AdminKey:     cfg.AdminKey,
		Version:      version,
		Orchestrator: orchestrator,
		Scheduler:    scheduler,
		Store:        dbClient,
		Metrics:      collector,
		Logger:       logger,
	})

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Background loops: the stuck sweep and the due-job runner are
	// independent of request handling.
	go scheduler.RunSweeper(runCtx, cfg.SweepInterval)
	go runDueJobs(runCtx, orchestrator, logger)

	if err := srv.Run(runCtx); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

func runDueJobs(ctx context.Context, orchestrator *service.SyncOrchestrator, logger *slog.Logger) {
	ticker := time.NewTicker(dueJobInterval)
	defer ticker.Stop()

	logger.Info("due-job runner started", "interval", dueJobInterval)
	for {
		select {
		case <-ctx.Done():
			logger.Info("due-job runner stopped")
			return
		case now := <-ticker.C:
			if err := orchestrator.RunDueJobs(ctx, now); err != nil && ctx.Err() == nil {
				logger.Error("due-job run failed", "error", err)
			}
		}
	}
}
