package db

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SaleObservation is one (product, sold-at) pair extracted from order data.
type SaleObservation struct {
	ProductID  string
	ObservedAt time.Time
}

type HistoryRepo struct {
	gdb *gorm.DB
}

func NewHistoryRepo(h *Handle) *HistoryRepo {
	return &HistoryRepo{gdb: h.DB}
}

// RecordSale upserts last_sold_at for (storeID, productID), keeping the
// maximum of the stored and observed timestamps. Replaying an observation
// never regresses the record.
func (r *HistoryRepo) RecordSale(storeID, productID string, observedAt time.Time) error {
	return r.bulkRecord(r.gdb, storeID, []SaleObservation{{ProductID: productID, ObservedAt: observedAt}})
}

// BulkRecordSales applies RecordSale semantics for a batch of observations.
// Partial application on failure is acceptable: a re-run is idempotent.
func (r *HistoryRepo) BulkRecordSales(storeID string, observations []SaleObservation) error {
	if len(observations) == 0 {
		return nil
	}
	const chunk = 500
	for start := 0; start < len(observations); start += chunk {
		end := min(start+chunk, len(observations))
		if err := r.bulkRecord(r.gdb, storeID, observations[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (r *HistoryRepo) bulkRecord(gdb *gorm.DB, storeID string, observations []SaleObservation) error {
	rows := make([]SalesHistory, 0, len(observations))
	for _, obs := range observations {
		if obs.ProductID == "" {
			continue
		}
		rows = append(rows, SalesHistory{
			ID:         uuid.NewString(),
			StoreID:    storeID,
			ProductID:  obs.ProductID,
			LastSoldAt: obs.ObservedAt.UTC(),
		})
	}
	if len(rows) == 0 {
		return nil
	}
	return gdb.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "store_id"}, {Name: "product_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"last_sold_at": gorm.Expr("MAX(last_sold_at, excluded.last_sold_at)"),
		}),
	}).Create(&rows).Error
}

// WasSoldSince reports whether the product has a recorded sale at or after
// cutoff. The cutoff is inclusive.
func (r *HistoryRepo) WasSoldSince(storeID, productID string, cutoff time.Time) (bool, error) {
	var count int64
	err := r.gdb.Model(&SalesHistory{}).
		Where("store_id = ? AND product_id = ? AND last_sold_at >= ?", storeID, productID, cutoff.UTC()).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// SoldProductIDs returns the set of products sold at or after cutoff.
func (r *HistoryRepo) SoldProductIDs(storeID string, cutoff time.Time) (map[string]struct{}, error) {
	var ids []string
	err := r.gdb.Model(&SalesHistory{}).
		Where("store_id = ? AND last_sold_at >= ?", storeID, cutoff.UTC()).
		Pluck("product_id", &ids).Error
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

// PruneBefore drops history rows whose last sale predates cutoff. They can
// no longer influence a pricing decision.
func (r *HistoryRepo) PruneBefore(storeID string, cutoff time.Time) (int64, error) {
	result := r.gdb.Where("store_id = ? AND last_sold_at < ?", storeID, cutoff.UTC()).Delete(&SalesHistory{})
	return result.RowsAffected, result.Error
}
