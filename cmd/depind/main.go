package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"depinledger/config"
	"depinledger/core/events"
	"depinledger/core/journal"
	"depinledger/core/state"
	"depinledger/integrations/verifier"
	"depinledger/integrations/webhooks"
	"depinledger/native/settlement"
	"depinledger/observability/logging"
	"depinledger/observability/metrics"
	"depinledger/services/ledger/server"
	"depinledger/storage"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "./depind.toml", "path to depind configuration")
	flag.Parse()

	if err := run(cfgPath); err != nil {
		log.Fatalf("depind: %v", err)
	}
}

func run(cfgPath string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	keys, err := cfg.Validate()
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, logCloser, err := logging.Setup("depind", cfg.Log.Env, logging.FileConfig{
		Path:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	defer func() { _ = logCloser.Close() }()

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open state: %w", err)
	}
	defer func() { _ = db.Close() }()

	clock := clockwork.NewRealClock()
	settlementMetrics := metrics.Settlement()

	journalDB, err := journal.Open(cfg.Journal.Driver, cfg.Journal.DSN)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	store, err := journal.New(journalDB, clock, logger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()
	store.SetMetrics(settlementMetrics)

	proofs, err := verifier.New(cfg.Verifier.URL,
		verifier.WithRateLimit(cfg.Verifier.RequestsPerSecond, cfg.Verifier.Burst),
		verifier.WithTimeout(cfg.Verifier.Timeout()),
	)
	if err != nil {
		return fmt.Errorf("verifier: %w", err)
	}

	emitters := events.Fanout{store}
	if cfg.Webhook.URL != "" {
		dispatcher, err := webhooks.NewDispatcher(cfg.Webhook.URL, cfg.Webhook.Secret(),
			webhooks.WithEventTypes(cfg.Webhook.EventTypes...),
			webhooks.WithLogger(logger),
			webhooks.WithClock(clock),
		)
		if err != nil {
			return fmt.Errorf("webhooks: %w", err)
		}
		defer dispatcher.Close()
		emitters = append(emitters, dispatcher)
	}

	engine, err := settlement.NewEngine(state.NewManager(db, keys.ProgramID), proofs, settlement.Config{
		Program:                keys.ProgramID,
		CheckerTree:            keys.CheckerTree,
		WorkerTree:             keys.WorkerTree,
		LicenseAdmin:           keys.LicenseAdmin,
		CheckerRewardsLockDays: cfg.CheckerRewardsLockDays,
	})
	if err != nil {
		return err
	}
	engine.SetClock(clock)
	engine.SetLogger(logger)
	engine.SetMetrics(settlementMetrics)
	engine.SetEmitter(emitters)

	srv := server.New(server.Config{
		Ledger:   engine,
		Operator: engine,
		Journal:  store,
		Logger:   logger,
		Clock:    clock,
	})
	httpServer := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	stopCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errs := make(chan error, 1)
	go func() {
		logger.Info("depind listening",
			slog.String("address", cfg.ListenAddress),
			slog.String("program", keys.ProgramID.String()))
		errs <- httpServer.ListenAndServe()
	}()

	select {
	case <-stopCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			_ = httpServer.Close()
			return err
		}
		logger.Info("depind stopped")
		return nil
	case err := <-errs:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	}
}
