package db

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrLogNotFound = errors.New("sync log not found")

// RunCounts summarizes one finalized run.
type RunCounts struct {
	ProductsProcessed int
	PricesSet         int
	PricesCleared     int
	Unchanged         int
	MutationErrors    int
}

type SyncLogRepo struct {
	gdb *gorm.DB
}

func NewSyncLogRepo(h *Handle) *SyncLogRepo {
	return &SyncLogRepo{gdb: h.DB}
}

func (r *SyncLogRepo) StartRun(storeID, storeName string, trigger TriggerType) (SyncLog, error) {
	entry := SyncLog{
		ID:          uuid.NewString(),
		StoreID:     storeID,
		StoreName:   storeName,
		StartedAt:   time.Now().UTC(),
		Status:      LogRunning,
		TriggeredBy: trigger,
	}
	if err := r.gdb.Create(&entry).Error; err != nil {
		return SyncLog{}, err
	}
	return entry, nil
}

// FinishRun finalizes a running log entry. It is the only write path after
// StartRun; a finalized entry is never touched again.
func (r *SyncLogRepo) FinishRun(logID string, status LogStatus, counts RunCounts, errMsg, errDetail string) error {
	now := time.Now().UTC()
	result := r.gdb.Model(&SyncLog{}).
		Where("id = ? AND status = ?", logID, LogRunning).
		Updates(map[string]any{
			"finished_at":        now,
			"status":             status,
			"products_processed": counts.ProductsProcessed,
			"prices_set":         counts.PricesSet,
			"prices_cleared":     counts.PricesCleared,
			"unchanged":          counts.Unchanged,
			"mutation_errors":    counts.MutationErrors,
			"error_message":      errMsg,
			"error_detail":       errDetail,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrLogNotFound
	}
	return nil
}

func (r *SyncLogRepo) Get(logID string) (SyncLog, error) {
	var entry SyncLog
	err := r.gdb.First(&entry, "id = ?", logID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return SyncLog{}, ErrLogNotFound
	}
	if err != nil {
		return SyncLog{}, err
	}
	return entry, nil
}

func (r *SyncLogRepo) List(storeID string, limit int) ([]SyncLog, error) {
	if limit <= 0 {
		limit = 50
	}
	query := r.gdb.Order("started_at DESC").Limit(limit)
	if storeID != "" {
		query = query.Where("store_id = ?", storeID)
	}
	var entries []SyncLog
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// ReconcileStale finalizes running entries older than maxAge as failures.
// A run that old can only mean the process crashed mid-sync.
func (r *SyncLogRepo) ReconcileStale(maxAge time.Duration) (int64, error) {
	threshold := time.Now().UTC().Add(-maxAge)
	now := time.Now().UTC()
	result := r.gdb.Model(&SyncLog{}).
		Where("status = ? AND started_at < ?", LogRunning, threshold).
		Updates(map[string]any{
			"finished_at":   now,
			"status":        LogFailure,
			"error_message": "run abandoned: process exited before finalization",
		})
	return result.RowsAffected, result.Error
}
