// Sync pass entrypoint, invoked by cron or by hand. Runs one store when
// -store is given, otherwise every active store.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"compareat-sync/internal/adapters/shopify"
	"compareat-sync/internal/app/usecases"
	"compareat-sync/internal/config"
	"compareat-sync/internal/db"
	"compareat-sync/internal/logging"
)

func main() {
	storeID := flag.String("store", "", "sync a single store by id")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("config error: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogFilePath, cfg.LogConsole)
	if err != nil {
		fmt.Printf("logging error: %v\n", err)
		os.Exit(1)
	}
	notifier := logging.NewTelegramNotifier(cfg.TelegramBot)

	handle, err := db.Open(cfg.DatabasePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("could not open database")
	}
	if err := handle.Migrate(); err != nil {
		logger.Fatal().Err(err).Msg("could not migrate database")
	}

	stores := db.NewStoreRepo(handle)
	history := db.NewHistoryRepo(handle)
	logs := db.NewSyncLogRepo(handle)

	// Runs left behind by a crashed process would otherwise stay
	// "running" forever.
	if reconciled, err := logs.ReconcileStale(cfg.Sync.StaleRunMaxAge); err != nil {
		logger.Warn().Err(err).Msg("stale run reconciliation failed")
	} else if reconciled > 0 {
		logger.Warn().Int64("runs", reconciled).Msg("reconciled abandoned runs")
	}

	factory := func(auth shopify.StoreAuth) usecases.CatalogClient {
		return shopify.NewClient(cfg.Shopify, auth, nil, logger)
	}
	runner := usecases.NewRunner(stores, history, logs, factory, cfg.Sync, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if *storeID != "" {
		entry, err := runner.RunSync(ctx, *storeID, db.TriggerManual)
		if err != nil {
			notifier.NotifyError(fmt.Sprintf("sync failed for store %s: %v", *storeID, err))
			logger.Error().Err(err).Msg("sync failed")
			os.Exit(1)
		}
		notifier.Notify(summarize(entry))
		return
	}

	results, err := runner.RunSyncAll(ctx, db.TriggerScheduler)
	if err != nil {
		notifier.NotifyError(fmt.Sprintf("sync pass failed: %v", err))
		logger.Error().Err(err).Msg("sync pass failed")
		os.Exit(1)
	}

	failed := 0
	for _, result := range results {
		if result.Err != nil {
			failed++
			notifier.NotifyError(fmt.Sprintf("store %s: %v", result.Store.Name, result.Err))
			continue
		}
		notifier.Notify(summarize(result.Log))
	}
	if failed > 0 {
		os.Exit(1)
	}
}

func summarize(entry db.SyncLog) string {
	return fmt.Sprintf(
		"sync %s for %s: products=%d set=%d cleared=%d unchanged=%d errors=%d",
		entry.Status,
		entry.StoreName,
		entry.ProductsProcessed,
		entry.PricesSet,
		entry.PricesCleared,
		entry.Unchanged,
		entry.MutationErrors,
	)
}
