package db

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrStoreNotFound = errors.New("store not found")

type StoreRepo struct {
	gdb *gorm.DB
}

func NewStoreRepo(h *Handle) *StoreRepo {
	return &StoreRepo{gdb: h.DB}
}

func (r *StoreRepo) Create(name, shopDomain, apiToken string) (Store, error) {
	name = strings.TrimSpace(name)
	shopDomain = strings.TrimSpace(shopDomain)
	apiToken = strings.TrimSpace(apiToken)
	if name == "" || shopDomain == "" || apiToken == "" {
		return Store{}, errors.New("store name, domain and api token are required")
	}

	store := Store{
		ID:             uuid.NewString(),
		Name:           name,
		ShopDomain:     shopDomain,
		APIToken:       apiToken,
		LastSyncStatus: SyncIdle,
	}
	if err := r.gdb.Create(&store).Error; err != nil {
		return Store{}, fmt.Errorf("create store: %w", err)
	}
	return store, nil
}

func (r *StoreRepo) Get(id string) (Store, error) {
	var store Store
	err := r.gdb.First(&store, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Store{}, ErrStoreNotFound
	}
	if err != nil {
		return Store{}, err
	}
	return store, nil
}

func (r *StoreRepo) List() ([]Store, error) {
	var stores []Store
	if err := r.gdb.Order("created_at").Find(&stores).Error; err != nil {
		return nil, err
	}
	return stores, nil
}

// Active returns the stores eligible for a scheduled sync pass.
func (r *StoreRepo) Active() ([]Store, error) {
	var stores []Store
	if err := r.gdb.Where("is_paused = ?", false).Order("created_at").Find(&stores).Error; err != nil {
		return nil, err
	}
	return stores, nil
}

func (r *StoreRepo) SetPaused(id string, paused bool) error {
	result := r.gdb.Model(&Store{}).Where("id = ?", id).Update("is_paused", paused)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStoreNotFound
	}
	return nil
}

// UpdateSyncStatus records the outcome of the latest run on the store row.
// lastSyncAt is only advanced on success.
func (r *StoreRepo) UpdateSyncStatus(id string, status SyncStatus, lastSyncAt *time.Time) error {
	updates := map[string]any{
		"last_sync_status": status,
		"updated_at":       time.Now().UTC(),
	}
	if lastSyncAt != nil {
		updates["last_sync_at"] = *lastSyncAt
	}
	result := r.gdb.Model(&Store{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStoreNotFound
	}
	return nil
}

// Delete removes a store together with its sync logs and sales history.
func (r *StoreRepo) Delete(id string) error {
	return r.gdb.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("store_id = ?", id).Delete(&SyncLog{}).Error; err != nil {
			return err
		}
		if err := tx.Where("store_id = ?", id).Delete(&SalesHistory{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&Store{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrStoreNotFound
		}
		return nil
	})
}
