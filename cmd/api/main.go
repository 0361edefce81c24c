package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dan9191/bank-account/internal/account"
	"github.com/Dan9191/bank-account/internal/config"
	"github.com/Dan9191/bank-account/internal/files"
	"github.com/Dan9191/bank-account/internal/handler"
	"github.com/Dan9191/bank-account/internal/integrations/ledger"
	"github.com/Dan9191/bank-account/internal/repository"
	"github.com/Dan9191/bank-account/internal/scheduler"
	"github.com/Dan9191/bank-account/internal/service"
	"github.com/Dan9191/bank-account/internal/timers"
	"github.com/Dan9191/bank-account/internal/utils/email"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logLevel, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	source, closeSource, err := newBalanceSource(cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize balance source: %v", err)
	}
	defer closeSource()

	// Initialize layers
	svc := service.NewService(source, logger, cfg)
	snapshots := files.NewSnapshotStore(afero.NewOsFs(), cfg.SnapshotPath, cfg.SnapshotSecret)
	snap, err := snapshots.Load(ctx)
	if err != nil {
		logger.Fatalf("Failed to load snapshot %s: %v", cfg.SnapshotPath, err)
	}
	svc.Restore(snap)
	h := handler.NewHandler(svc, logger)

	sched := timers.NewCronScheduler()
	stopSync := timers.Stopper(timers.StopFunc(func() {}))
	if cfg.SyncInterval > 0 {
		var notifier scheduler.Notifier
		if cfg.AlertsEnabled() {
			notifier = email.NewSender(cfg, logger)
		}
		syncer := scheduler.NewSynchronizer(svc, sched, notifier, logger)
		stopSync = syncer.Start(ctx, 5*time.Second, cfg.SyncInterval)
	}

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler.NewRouter(h, cfg),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		logger.Infof("Starting server on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server shutdown failed: %v", err)
	}
	// no synchronization may change balances after the snapshot is taken
	stopSync.Stop()
	sched.Stop()
	if err := snapshots.Save(shutdownCtx, svc.Snapshot()); err != nil {
		logger.Errorf("Failed to save snapshot: %v", err)
		return
	}
	logger.Infof("Snapshot saved to %s", cfg.SnapshotPath)
}

// newBalanceSource builds the configured balance source and its cleanup function
func newBalanceSource(cfg *config.Config, logger *logrus.Logger) (account.BalanceSource, func(), error) {
	switch cfg.BalanceSource {
	case config.SourcePostgres:
		db, err := sql.Open("postgres", cfg.DBConn)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := db.Ping(); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to ping database: %w", err)
		}
		return repository.NewRepository(db), func() { db.Close() }, nil
	case config.SourceSOAP:
		return ledger.NewClient(cfg, logger), func() {}, nil
	default:
		logger.Warn("Using random balance source")
		return account.RandomSource{}, func() {}, nil
	}
}
