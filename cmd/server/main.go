// Package main is the entry point for the ledgerlens reconciliation monitor.
// The monitor polls an accounts backend's reconciliation endpoints, re-derives
// every variance from the stated totals, and serves checked snapshots plus a
// live event feed over HTTP.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jcalder/ledgerlens/internal/api"
	"github.com/jcalder/ledgerlens/internal/config"
	"github.com/jcalder/ledgerlens/internal/database"
	"github.com/jcalder/ledgerlens/internal/events"
	"github.com/jcalder/ledgerlens/internal/monitor"
	"github.com/jcalder/ledgerlens/internal/reconcile"
	"github.com/jcalder/ledgerlens/internal/respcache"
	"github.com/jcalder/ledgerlens/internal/scheduler"
	"github.com/jcalder/ledgerlens/internal/server"
	"github.com/jcalder/ledgerlens/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().
		Str("api_url", cfg.APIBaseURL).
		Int("port", cfg.Port).
		Msg("Starting ledgerlens")

	cacheDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "respcache.db"),
		Profile: database.ProfileCache,
		Name:    "respcache",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open cache database")
	}
	defer cacheDB.Close()

	cache := respcache.NewRepository(cacheDB.Conn())
	if err := cache.EnsureSchema(); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize cache schema")
	}

	client := api.New(cfg.APIBaseURL, cache, log)

	tolerances := reconcile.DefaultTolerances()
	for currency, value := range cfg.ToleranceOverrides {
		if err := tolerances.SetString(currency, value); err != nil {
			log.Fatal().Err(err).Str("currency", currency).Msg("Invalid tolerance override")
		}
	}
	checker := reconcile.NewChecker(tolerances, log)

	bus := events.NewBus(log)

	keys := []string{monitor.KeyPurchase, monitor.KeySales}
	for _, account := range cfg.BankAccounts {
		keys = append(keys, monitor.BankKey(account))
	}
	mon := monitor.New(client, checker, bus, keys, log)

	sched := scheduler.New(log)
	if err := sched.AddJob(cfg.PollSchedule, monitor.NewPollJob(mon, time.Minute)); err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.PollSchedule).Msg("Failed to register poll job")
	}
	if err := sched.AddJob("@every 10m", respcache.NewCleanupJob(cache, log)); err != nil {
		log.Fatal().Err(err).Msg("Failed to register cache cleanup job")
	}
	sched.Start()

	srv := server.New(server.Config{
		Log:     log,
		Port:    cfg.Port,
		DevMode: cfg.DevMode,
		Monitor: mon,
		Client:  client,
		Bus:     bus,
	})

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Prime the snapshots so the API has data before the first scheduled tick.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		mon.RefreshAll(ctx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")

	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
