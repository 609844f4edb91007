package usecases

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"compareat-sync/internal/adapters/shopify"
	"compareat-sync/internal/config"
	"compareat-sync/internal/db"
	"compareat-sync/internal/pricing"
)

// ErrRunConflict is returned when a sync run is requested for a store that
// already has one open. The caller should let the running pass finish.
var ErrRunConflict = errors.New("a sync run is already open for this store")

// ErrStorePaused is returned when a manually requested store is paused.
var ErrStorePaused = errors.New("store is paused")

// CatalogClient is the slice of the Shopify adapter the orchestrator
// drives: the bulk export protocol plus price mutations.
type CatalogClient interface {
	shopify.BulkService
	shopify.MutationService
}

// ClientFactory builds a catalog client for one store's credentials. Each
// run gets its own client, and with it its own rate-limit budget.
type ClientFactory func(auth shopify.StoreAuth) CatalogClient

type Runner struct {
	stores    *db.StoreRepo
	history   *db.HistoryRepo
	logs      *db.SyncLogRepo
	newClient ClientFactory
	cfg       config.SyncConfig
	logger    zerolog.Logger
	leases    *leaseRegistry
	now       func() time.Time
}

func NewRunner(
	stores *db.StoreRepo,
	history *db.HistoryRepo,
	logs *db.SyncLogRepo,
	newClient ClientFactory,
	cfg config.SyncConfig,
	logger zerolog.Logger,
) *Runner {
	return &Runner{
		stores:    stores,
		history:   history,
		logs:      logs,
		newClient: newClient,
		cfg:       cfg,
		logger:    logger,
		leases:    newLeaseRegistry(),
		now:       time.Now,
	}
}

// RunSync executes a full sync pass for one store and returns its
// finalized log entry. A second call for the same store while a run is
// open fails with ErrRunConflict; other stores are unaffected.
func (r *Runner) RunSync(ctx context.Context, storeID string, trigger db.TriggerType) (db.SyncLog, error) {
	store, err := r.stores.Get(storeID)
	if err != nil {
		return db.SyncLog{}, err
	}
	if store.IsPaused {
		return db.SyncLog{}, fmt.Errorf("%w: %s", ErrStorePaused, store.Name)
	}
	return r.runStore(ctx, store, trigger)
}

func (r *Runner) runStore(ctx context.Context, store db.Store, trigger db.TriggerType) (db.SyncLog, error) {
	leaseOwner := uuid.NewString()
	ttl := r.cfg.StaleRunMaxAge
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}
	if !r.leases.acquire(store.ID, leaseOwner, ttl, r.now()) {
		return db.SyncLog{}, fmt.Errorf("%w: %s", ErrRunConflict, store.Name)
	}
	defer r.leases.release(store.ID, leaseOwner)

	return r.syncStore(ctx, store, trigger)
}

func (r *Runner) syncStore(ctx context.Context, store db.Store, trigger db.TriggerType) (db.SyncLog, error) {
	logger := r.logger.With().Str("store", store.Name).Logger()

	entry, err := r.logs.StartRun(store.ID, store.Name, trigger)
	if err != nil {
		return db.SyncLog{}, err
	}
	if err := r.stores.UpdateSyncStatus(store.ID, db.SyncRunning, nil); err != nil {
		logger.Warn().Err(err).Msg("could not mark store running")
	}
	logger.Info().Str("log", entry.ID).Msg("sync started")

	// A single reference instant for the whole run: every product in this
	// pass is judged against the same "now".
	now := r.now().UTC()

	counts := db.RunCounts{}

	fail := func(phase string, cause error) (db.SyncLog, error) {
		logger.Error().Err(cause).Str("phase", phase).Msg("sync failed")
		if err := r.logs.FinishRun(entry.ID, db.LogFailure, counts, cause.Error(), phase); err != nil {
			logger.Error().Err(err).Msg("could not finalize log")
		}
		if err := r.stores.UpdateSyncStatus(store.ID, db.SyncFailed, nil); err != nil {
			logger.Warn().Err(err).Msg("could not mark store failed")
		}
		finalized, getErr := r.logs.Get(entry.ID)
		if getErr != nil {
			return db.SyncLog{}, cause
		}
		return finalized, cause
	}

	client := r.newClient(shopify.StoreAuth{
		ShopDomain:  store.ShopDomain,
		AccessToken: store.APIToken,
	})

	salesCutoff := pricing.SalesCutoff(now)

	// Records older than the lookback can no longer influence a decision.
	if pruned, err := r.history.PruneBefore(store.ID, salesCutoff); err != nil {
		return fail("prune_history", err)
	} else if pruned > 0 {
		logger.Info().Int64("rows", pruned).Msg("pruned old sales history")
	}

	// First run fetches the full lookback window; later runs only need
	// orders since the last successful pass, history covers the rest.
	ordersSince := salesCutoff
	if store.LastSyncAt != nil && store.LastSyncAt.After(salesCutoff) {
		ordersSince = *store.LastSyncAt
	}

	orders, err := r.fetchOrders(ctx, client, ordersSince)
	if err != nil {
		return fail("fetch_orders", err)
	}
	logger.Info().Int("orders", len(orders)).Msg("orders fetched")

	if err := r.history.BulkRecordSales(store.ID, latestSales(orders)); err != nil {
		return fail("record_sales", err)
	}
	soldSet, err := r.history.SoldProductIDs(store.ID, salesCutoff)
	if err != nil {
		return fail("record_sales", err)
	}

	products, err := r.fetchProducts(ctx, client)
	if err != nil {
		return fail("fetch_products", err)
	}
	logger.Info().Int("products", len(products)).Msg("products fetched")

	counts.ProductsProcessed = len(products)

	updates := r.decide(now, products, soldSet, &counts)
	logger.Info().
		Int("set", counts.PricesSet).
		Int("cleared", counts.PricesCleared).
		Int("unchanged", counts.Unchanged).
		Msg("decisions made")

	errorDetail := r.mutate(ctx, client, logger, updates, &counts)
	if err := ctx.Err(); err != nil {
		return fail("mutate", err)
	}

	status := db.LogSuccess
	errMsg := ""
	if counts.MutationErrors > 0 {
		status = db.LogPartialFailure
		errMsg = fmt.Sprintf("%d variant updates failed", counts.MutationErrors)
	}

	if err := r.logs.FinishRun(entry.ID, status, counts, errMsg, errorDetail); err != nil {
		return fail("finalize", err)
	}
	if err := r.stores.UpdateSyncStatus(store.ID, db.SyncSuccess, &now); err != nil {
		logger.Warn().Err(err).Msg("could not mark store synced")
	}

	logger.Info().Str("status", string(status)).Msg("sync finished")
	return r.logs.Get(entry.ID)
}

func (r *Runner) fetchOrders(ctx context.Context, client CatalogClient, since time.Time) ([]shopify.ParsedOrder, error) {
	job, err := client.SubmitBulkQuery(ctx, shopify.OrdersBulkQuery(since))
	if err != nil {
		return nil, err
	}
	url, err := client.AwaitBulkResult(ctx, job, r.cfg.PollInterval, r.cfg.MaxBulkWait)
	if err != nil {
		return nil, err
	}
	if url == "" {
		return nil, nil
	}
	body, err := client.DownloadBulkResult(ctx, url)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	return shopify.ParseOrders(body)
}

func (r *Runner) fetchProducts(ctx context.Context, client CatalogClient) ([]shopify.ParsedProduct, error) {
	job, err := client.SubmitBulkQuery(ctx, shopify.ProductsBulkQuery())
	if err != nil {
		return nil, err
	}
	url, err := client.AwaitBulkResult(ctx, job, r.cfg.PollInterval, r.cfg.MaxBulkWait)
	if err != nil {
		return nil, err
	}
	if url == "" {
		return nil, nil
	}
	body, err := client.DownloadBulkResult(ctx, url)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	return shopify.ParseProducts(body)
}

// decide evaluates the rule engine per variant and collects the non-no-op
// targets grouped by product, the unit the mutation API works in.
func (r *Runner) decide(
	now time.Time,
	products []shopify.ParsedProduct,
	soldSet map[string]struct{},
	counts *db.RunCounts,
) map[string][]shopify.VariantPriceInput {
	updates := make(map[string][]shopify.VariantPriceInput)

	for _, product := range products {
		_, soldRecently := soldSet[product.ProductID]
		for _, variant := range product.Variants {
			decision := pricing.Evaluate(now, product.ProductID, product.CreatedAt, soldRecently, pricing.Variant{
				ID:             variant.ID,
				Price:          variant.Price,
				CompareAtPrice: variant.CompareAtPrice,
			})
			if decision.NoOp {
				counts.Unchanged++
				continue
			}
			if decision.Target == "" {
				counts.PricesCleared++
			} else {
				counts.PricesSet++
			}
			updates[product.ProductID] = append(updates[product.ProductID], shopify.VariantPriceInput{
				ID:             decision.VariantID,
				CompareAtPrice: decision.Target,
			})
		}
	}
	return updates
}

// mutate applies the decided updates. A rejected product batch is recorded
// and skipped; the rest of the run proceeds. Only context cancellation
// stops the loop early.
func (r *Runner) mutate(
	ctx context.Context,
	client CatalogClient,
	logger zerolog.Logger,
	updates map[string][]shopify.VariantPriceInput,
	counts *db.RunCounts,
) string {
	productIDs := make([]string, 0, len(updates))
	for productID := range updates {
		productIDs = append(productIDs, productID)
	}
	sort.Strings(productIDs)

	var detail []string
	for _, productID := range productIDs {
		if ctx.Err() != nil {
			return strings.Join(detail, "\n")
		}
		variants := updates[productID]
		err := client.UpdateVariantPrices(ctx, productID, variants)
		if err == nil {
			continue
		}
		if validation, ok := shopify.IsValidation(err); ok {
			counts.MutationErrors += len(validation.Errors)
			detail = append(detail, fmt.Sprintf("%s: %s", productID, validation.Error()))
			logger.Warn().Str("product", productID).Err(err).Msg("variant update rejected")
			continue
		}
		counts.MutationErrors += len(variants)
		detail = append(detail, fmt.Sprintf("%s: %s", productID, err.Error()))
		logger.Error().Str("product", productID).Err(err).Msg("variant update failed")
	}
	return strings.Join(detail, "\n")
}

// latestSales reduces parsed orders to one observation per product, at the
// most recent order date the product appeared in.
func latestSales(orders []shopify.ParsedOrder) []db.SaleObservation {
	latest := make(map[string]time.Time)
	for _, order := range orders {
		for _, productID := range order.ProductIDs {
			if existing, ok := latest[productID]; !ok || order.CreatedAt.After(existing) {
				latest[productID] = order.CreatedAt
			}
		}
	}
	observations := make([]db.SaleObservation, 0, len(latest))
	for productID, soldAt := range latest {
		observations = append(observations, db.SaleObservation{ProductID: productID, ObservedAt: soldAt})
	}
	return observations
}
