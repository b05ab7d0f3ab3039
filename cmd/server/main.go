// Warden is a portfolio risk assessment and rebalancing server for crypto
// wealth management. It scores asset and portfolio risk from market data,
// enforces risk-profile allocation policies, and suggests rebalancing trades.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/wardenlabs/warden/internal/clientdata"
	"github.com/wardenlabs/warden/internal/clients/coingecko"
	"github.com/wardenlabs/warden/internal/config"
	"github.com/wardenlabs/warden/internal/database"
	"github.com/wardenlabs/warden/internal/events"
	"github.com/wardenlabs/warden/internal/modules/portfolio"
	portfoliohandlers "github.com/wardenlabs/warden/internal/modules/portfolio/handlers"
	"github.com/wardenlabs/warden/internal/modules/risk"
	riskhandlers "github.com/wardenlabs/warden/internal/modules/risk/handlers"
	"github.com/wardenlabs/warden/internal/modules/transactions"
	transactionhandlers "github.com/wardenlabs/warden/internal/modules/transactions/handlers"
	"github.com/wardenlabs/warden/internal/reliability"
	"github.com/wardenlabs/warden/internal/scheduler"
	"github.com/wardenlabs/warden/internal/server"
	"github.com/wardenlabs/warden/pkg/logger"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.DevMode})
	logger.SetGlobalLogger(log)

	log.Info().
		Int("port", cfg.Port).
		Str("data_dir", cfg.DataDir).
		Msg("Starting warden")

	// Databases
	portfolioDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "portfolio.db"),
		Profile: database.ProfileStandard,
		Name:    "portfolio",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open portfolio database")
	}
	defer portfolioDB.Close()

	cacheDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "client_data.db"),
		Profile: database.ProfileCache,
		Name:    "client_data",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open client data database")
	}
	defer cacheDB.Close()

	for _, db := range []*database.DB{portfolioDB, cacheDB} {
		if err := db.Migrate(); err != nil {
			log.Fatal().Err(err).Str("database", db.Name()).Msg("Migration failed")
		}
	}

	// Market data client with cache-backed fetches
	cacheRepo := clientdata.NewRepository(cacheDB.Conn())
	marketClient := coingecko.NewClient(cfg.CoinGeckoBaseURL, cacheRepo, log)

	// Event stream
	eventHub := events.NewHub(log)

	// Repositories and services
	pfRepo := portfolio.NewRepository(portfolioDB.Conn())
	invRepo := portfolio.NewInvestmentRepository(portfolioDB.Conn())
	txRepo := transactions.NewRepository(portfolioDB.Conn())

	riskService, err := risk.NewService(marketClient, risk.DefaultScoringPolicy(), cfg.MaxConcurrentFetches, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create risk service")
	}
	portfolioService := portfolio.NewService(pfRepo, invRepo, eventHub, log)
	transactionService := transactions.NewService(txRepo, pfRepo, invRepo, marketClient, log)

	// Background jobs
	sched := scheduler.New(log)

	if cfg.RiskSweepSchedule != "" {
		sweepJob := scheduler.NewRiskSweepJob(riskService, pfRepo, invRepo, eventHub, log)
		if err := sched.AddJob(cfg.RiskSweepSchedule, sweepJob); err != nil {
			log.Fatal().Err(err).Msg("Failed to register risk sweep job")
		}
	}

	if err := sched.AddJob("@hourly", scheduler.NewCacheExpiryJob(cacheRepo, log)); err != nil {
		log.Fatal().Err(err).Msg("Failed to register cache expiry job")
	}

	var backupService *reliability.BackupService
	if cfg.Backup.Enabled {
		store, err := reliability.NewObjectStore(context.Background(), cfg.Backup, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create backup object store")
		}
		backupService = reliability.NewBackupService(
			store,
			[]*database.DB{portfolioDB, cacheDB},
			cfg.DataDir,
			cfg.Backup.Retention,
			log,
		)
		if err := sched.AddJob(cfg.Backup.Schedule, scheduler.NewBackupJob(backupService, log)); err != nil {
			log.Fatal().Err(err).Msg("Failed to register backup job")
		}
	}

	sched.Start()
	defer sched.Stop()

	// HTTP server
	systemHandlers := server.NewSystemHandlers([]*database.DB{portfolioDB, cacheDB}, eventHub, backupService, log)

	srv := server.New(server.Config{
		Port:               cfg.Port,
		DevMode:            cfg.DevMode,
		Log:                log,
		RiskHandler:        riskhandlers.NewHandler(riskService, pfRepo, invRepo, log),
		PortfolioHandler:   portfoliohandlers.NewHandler(portfolioService, log),
		TransactionHandler: transactionhandlers.NewHandler(transactionService, log),
		SystemHandlers:     systemHandlers,
		EventHub:           eventHub,
	})

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for shutdown signal or server failure
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Error().Err(err).Msg("Server failed")
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}

	log.Info().Msg("Warden stopped")
}
