// Package cli provides the command-line interface for dealsync.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/openlot/dealsync-go/internal/browser"
	"github.com/openlot/dealsync-go/internal/config"
	"github.com/openlot/dealsync-go/internal/db"
	"github.com/openlot/dealsync-go/internal/metrics"
	"github.com/openlot/dealsync-go/internal/scrape"
	"github.com/openlot/dealsync-go/internal/service"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose bool

	// Global config, logger, and db client
	cfg       config.Config
	logger    *slog.Logger
	closeLogs func() error
	dbClient  *db.Client

	collector = metrics.NewCollector()

	// Lazy-initialized browser, only scrape commands pay for it
	fetcher *browser.Rod
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "dealsync",
	Short: "Dealer inventory scrape-and-sync pipeline",
	Long: `Dealsync scrapes vehicle listings from dealer sites and syncs them into
a deduplicated inventory store.

Listings are rendered in a headless browser, fields and image galleries are
extracted with per-site profiles, and every URL runs through a dedup gate
before persisting. Scrape jobs are tracked end to end, including a sweep
that flags jobs whose scheduled time passed without execution.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip DB connection for version and help commands
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		cfg = config.Load()
		if verbose {
			cfg.LogLevel = slog.LevelDebug
		}
		logger, closeLogs = config.SetupLogger(cfg)
		slog.SetDefault(logger)

		ctx := context.Background()
		dbCfg := db.Config{
			URL:       cfg.SurrealDBURL,
			Namespace: cfg.SurrealDBNamespace,
			Database:  cfg.SurrealDBDatabase,
			Username:  cfg.SurrealDBUser,
			Password:  cfg.SurrealDBPass,
			AuthLevel: cfg.SurrealDBAuthLevel,
		}

		var err error
		dbClient, err = db.NewClient(ctx, dbCfg, logger)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		dbClient.SetMetrics(collector)

		if err := dbClient.InitSchema(ctx); err != nil {
			return fmt.Errorf("initialize schema: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if fetcher != nil {
			if err := fetcher.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close browser: %v\n", err)
			}
		}
		if dbClient != nil {
			if err := dbClient.Close(context.Background()); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
			}
		}
		if closeLogs != nil {
			if err := closeLogs(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close log file: %v\n", err)
			}
		}
	},
}

// getScheduler builds the job scheduler against the connected store.
func getScheduler() *service.JobScheduler {
	return service.NewJobScheduler(dbClient, cfg.GraceWindow, logger)
}

// getOrchestrator wires the full scrape pipeline, launching the browser on
// first use.
func getOrchestrator() (*service.SyncOrchestrator, error) {
	if fetcher == nil {
		var err error
		fetcher, err = browser.NewRod(browser.Options{
			ControlURL:    cfg.BrowserURL,
			RenderTimeout: cfg.RenderTimeout,
			NetworkSettle: cfg.NetworkSettle,
			Logger:        logger,
		})
		if err != nil {
			return nil, fmt.Errorf("init browser: %w", err)
		}
	}

	profiles, err := scrape.LoadProfiles(cfg.SitesFile)
	if err != nil {
		return nil, fmt.Errorf("load site profiles: %w", err)
	}
	registry := scrape.NewRegistry(profiles, scrape.Deps{
		Fetcher: fetcher,
		Prober:  scrape.NewHTTPProber(cfg.ProbeTimeout),
		Metrics: collector,
		Logger:  logger,
	})

	return service.NewSyncOrchestrator(registry,
		service.NewDedupGate(dbClient, logger),
		getScheduler(),
		logger), nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(scrapeCmd)
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(jobsCmd)
	rootCmd.AddCommand(statsCmd)
}
