package db

import "time"

// Store-level status of the most recent sync attempt.
type SyncStatus string

const (
	SyncIdle    SyncStatus = "idle"
	SyncRunning SyncStatus = "running"
	SyncSuccess SyncStatus = "success"
	SyncFailed  SyncStatus = "failed"
)

// Final status of one sync log entry.
type LogStatus string

const (
	LogRunning        LogStatus = "running"
	LogSuccess        LogStatus = "success"
	LogPartialFailure LogStatus = "partial_failure"
	LogFailure        LogStatus = "failure"
)

type TriggerType string

const (
	TriggerScheduler TriggerType = "scheduler"
	TriggerManual    TriggerType = "manual"
)

// Store is one Shopify store connection. The access token is stored as-is;
// encryption at rest is the host's concern.
type Store struct {
	ID             string `gorm:"primaryKey"`
	Name           string
	ShopDomain     string
	APIToken       string
	IsPaused       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
	LastSyncAt     *time.Time
	LastSyncStatus SyncStatus `gorm:"default:idle"`
}

// SalesHistory tracks the most recent observed sale per (store, product).
// last_sold_at only ever moves forward.
type SalesHistory struct {
	ID         string    `gorm:"primaryKey"`
	StoreID    string    `gorm:"uniqueIndex:uniq_store_product,priority:1;index:idx_store_sold,priority:1"`
	ProductID  string    `gorm:"uniqueIndex:uniq_store_product,priority:2"`
	LastSoldAt time.Time `gorm:"index:idx_store_sold,priority:2"`
}

func (SalesHistory) TableName() string { return "sales_history" }

// SyncLog is the append-only record of one sync run. It is written twice:
// once at start (status running) and once at finalization.
type SyncLog struct {
	ID          string `gorm:"primaryKey"`
	StoreID     string `gorm:"index"`
	StoreName   string
	StartedAt   time.Time
	FinishedAt  *time.Time
	Status      LogStatus   `gorm:"index;default:running"`
	TriggeredBy TriggerType `gorm:"default:manual"`

	ProductsProcessed int
	PricesSet         int
	PricesCleared     int
	Unchanged         int
	MutationErrors    int

	ErrorMessage string `gorm:"type:text"`
	ErrorDetail  string `gorm:"type:text"`
}
