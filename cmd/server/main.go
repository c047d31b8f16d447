// FolioWatch keeps investment holdings priced: it periodically pulls fresh
// quotes from the equity and crypto providers, persists only material
// changes, records daily portfolio snapshots, and streams per-pass feedback
// to connected sessions.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/foliowatch/foliowatch/internal/clientdata"
	"github.com/foliowatch/foliowatch/internal/clients/coingecko"
	"github.com/foliowatch/foliowatch/internal/clients/finnhub"
	"github.com/foliowatch/foliowatch/internal/config"
	"github.com/foliowatch/foliowatch/internal/database"
	"github.com/foliowatch/foliowatch/internal/domain"
	"github.com/foliowatch/foliowatch/internal/feedback"
	"github.com/foliowatch/foliowatch/internal/modules/holdings"
	"github.com/foliowatch/foliowatch/internal/modules/settings"
	"github.com/foliowatch/foliowatch/internal/modules/snapshots"
	"github.com/foliowatch/foliowatch/internal/refdata"
	"github.com/foliowatch/foliowatch/internal/scheduler"
	"github.com/foliowatch/foliowatch/internal/server"
	syncengine "github.com/foliowatch/foliowatch/internal/sync"
	"github.com/foliowatch/foliowatch/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	log.Info().
		Int("port", cfg.Port).
		Str("data_dir", cfg.DataDir).
		Dur("server_pass_interval", cfg.ServerPassInterval).
		Msg("Starting FolioWatch")

	db, err := database.New(database.Config{
		Path: filepath.Join(cfg.DataDir, "foliowatch.db"),
		Name: "foliowatch",
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	// Repositories and services
	holdingsRepo := holdings.NewRepository(db.Conn(), log)
	holdingsSvc := holdings.NewService(holdingsRepo, log)
	snapshotsRepo := snapshots.NewRepository(db.Conn(), log)
	snapshotsSvc := snapshots.NewService(snapshotsRepo, holdingsRepo, log)
	settingsRepo := settings.NewRepository(db.Conn(), log)
	settingsSvc := settings.NewService(settingsRepo, cfg.AlertThresholdPercent, log)

	// Providers. Without a Finnhub key equity holdings fail per pass while
	// crypto keeps syncing.
	var equity domain.EquityProvider
	if cfg.FinnhubAPIKey != "" {
		equity = finnhub.NewClient(cfg.FinnhubBaseURL, cfg.FinnhubAPIKey, log)
	} else {
		log.Warn().Msg("FINNHUB_API_KEY not set, equity holdings will not sync")
	}
	crypto := coingecko.NewClient(cfg.CoingeckoBaseURL, log)

	cacheStore := clientdata.NewRepository(db.Conn())
	resolver := refdata.New(crypto, cacheStore, cfg.ReferenceCacheTTL, log)

	// Sync engine and drivers
	fetcher := syncengine.NewFetcher(equity, crypto, resolver, cfg.ProviderTimeout, log)
	engine := syncengine.NewEngine(
		holdingsRepo,
		holdingsRepo,
		fetcher,
		settingsSvc,
		syncengine.Tolerances{Price: cfg.PriceTolerance, Pct: cfg.PctTolerance},
		cfg.SyncMaxConcurrent,
		log,
	)
	fb := feedback.NewStateManager(log)

	sched := scheduler.New(log)
	syncJob := scheduler.NewPriceSyncJob(engine, holdingsRepo, snapshotsSvc, fb, log)
	if err := sched.AddJob(fmt.Sprintf("@every %s", cfg.ServerPassInterval), syncJob); err != nil {
		return fmt.Errorf("failed to register price sync job: %w", err)
	}
	sched.Start()
	defer sched.Stop()

	srv := server.New(server.Deps{
		Log:       log,
		DB:        db,
		Config:    cfg,
		Holdings:  holdingsSvc,
		Snapshots: snapshotsSvc,
		Settings:  settingsSvc,
		Engine:    engine,
		Feedback:  fb,
		Scheduler: sched,
		SyncJob:   syncJob,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	// Prime prices shortly after boot instead of waiting a full interval
	go warmup(sched, syncJob, log)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("server stopped unexpectedly: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info().Msg("Shutdown complete")
	return nil
}

// warmup runs the first sync pass right after startup.
func warmup(sched *scheduler.Scheduler, job scheduler.Job, log zerolog.Logger) {
	time.Sleep(2 * time.Second)
	if err := sched.RunNow(job); err != nil {
		log.Warn().Err(err).Msg("Startup sync failed, waiting for the scheduled pass")
	}
}
