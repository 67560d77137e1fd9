package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ledgercore/internal/config"
	"ledgercore/internal/database"
	"ledgercore/internal/logger"
	"ledgercore/internal/services"
)

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	dbConfig, err := database.NewConfig()
	if err != nil {
		return fmt.Errorf("failed to load database configuration: %w", err)
	}

	dbManager, err := database.NewManager(dbConfig)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}

	if err := dbManager.Migrate(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	db := dbManager.DB()
	svcConfig := services.Config{
		ReconcileAcceptThreshold: appConfig.ReconcileAcceptThreshold,
		LargeAmountThreshold:     appConfig.LargeAmountThreshold,
	}
	eventService := services.NewEventService(db)
	entryService := services.NewEntryService(db, services.NewPropagationService(), eventService, svcConfig)
	recurrenceService := services.NewRecurrenceService(db, entryService, eventService)
	reconciliationService := services.NewReconciliationService(db, eventService, svcConfig)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Infow("sweeper started", "interval", appConfig.SweepInterval.String())

	ticker := time.NewTicker(appConfig.SweepInterval)
	defer ticker.Stop()

	// Run one pass immediately so a restart never waits a full interval.
	sweep(ctx, recurrenceService, reconciliationService)

	for {
		select {
		case <-ctx.Done():
			log.Info("sweeper shutting down")
			return nil
		case <-ticker.C:
			sweep(ctx, recurrenceService, reconciliationService)
		}
	}
}

// sweep runs one recurrence pass followed by a reconciliation pass over
// every bank account with unreconciled lines. Errors are logged and the
// next tick retries; the sweeper never dies on a bad batch.
func sweep(ctx context.Context, recurrence services.RecurrenceServicer, reconciliation services.ReconciliationServicer) {
	log := logger.Get()

	result, err := recurrence.Sweep(ctx, time.Now())
	if err != nil {
		log.Errorw("recurrence sweep failed", "error", err)
	} else {
		log.Infow("recurrence sweep completed",
			"executed", result.Executed,
			"suggested", result.Suggested,
			"failed", result.Failed,
		)
	}

	pending, err := reconciliation.PendingBankAccounts()
	if err != nil {
		log.Errorw("failed to list pending bank accounts", "error", err)
		return
	}
	for _, bankAccountID := range pending {
		if ctx.Err() != nil {
			return
		}
		batch, err := reconciliation.Reconcile(ctx, bankAccountID)
		if err != nil {
			log.Errorw("reconciliation failed", "bank_account_id", bankAccountID, "error", err)
			continue
		}
		log.Infow("reconciliation completed",
			"bank_account_id", bankAccountID,
			"reconciled", batch.ReconciledCount,
			"suggestions", len(batch.Suggestions),
		)
	}
}
