package usecases

import (
	"context"

	"golang.org/x/sync/errgroup"

	"compareat-sync/internal/db"
)

// StoreResult pairs one store with the outcome of its sync attempt.
type StoreResult struct {
	Store db.Store
	Log   db.SyncLog
	Err   error
}

// RunSyncAll syncs every active store. Stores run as independent tasks
// with bounded concurrency; one store's failure never stops the others.
func (r *Runner) RunSyncAll(ctx context.Context, trigger db.TriggerType) ([]StoreResult, error) {
	stores, err := r.stores.Active()
	if err != nil {
		return nil, err
	}
	if len(stores) == 0 {
		r.logger.Info().Msg("no active stores to sync")
		return nil, nil
	}

	limit := r.cfg.MaxConcurrent
	if limit <= 0 {
		limit = 5
	}

	results := make([]StoreResult, len(stores))
	var group errgroup.Group
	group.SetLimit(limit)

	for i, store := range stores {
		i, store := i, store
		group.Go(func() error {
			entry, runErr := r.runStore(ctx, store, trigger)
			results[i] = StoreResult{Store: store, Log: entry, Err: runErr}
			return nil
		})
	}
	_ = group.Wait()

	succeeded := 0
	for _, result := range results {
		if result.Err == nil {
			succeeded++
		}
	}
	r.logger.Info().
		Int("stores", len(stores)).
		Int("succeeded", succeeded).
		Int("failed", len(stores)-succeeded).
		Msg("sync pass finished")

	return results, nil
}
