package config

import "time"

type Config struct {
	DatabasePath string
	LogFilePath  string
	LogConsole   bool

	Shopify     ShopifyConfig
	Sync        SyncConfig
	TelegramBot TelegramBotConfig
}

// ShopifyConfig holds the API settings shared by every store client.
// The shop domain and access token come from the store record, not from here.
type ShopifyConfig struct {
	APIVersion string
	Timeout    time.Duration

	// GraphQL cost budget: bucket size and replenishment in points per
	// second, matching the API's advertised throttleStatus semantics.
	RateLimitBucket int
	RateLimitRefill int
}

type SyncConfig struct {
	PollInterval   time.Duration
	MaxBulkWait    time.Duration
	MaxConcurrent  int
	StaleRunMaxAge time.Duration
}

type TelegramBotConfig struct {
	ChatId string
	Token  string
}

func Load() (*Config, error) {
	dbPath := stringWithDefault("DATABASE_PATH", "./data/compareat.db")
	logPath := stringWithDefault("LOG_FILE", "./data/sync.log")

	apiVersion := stringWithDefault("SHOPIFY_API_VERSION", "2025-01")

	timeoutSec, err := intWithDefault("SHOPIFY_TIMEOUT_SECONDS", 60)
	if err != nil {
		return nil, err
	}
	bucket, err := intWithDefault("SHOPIFY_RATE_BUCKET", 1000)
	if err != nil {
		return nil, err
	}
	refill, err := intWithDefault("SHOPIFY_RATE_REFILL", 50)
	if err != nil {
		return nil, err
	}

	pollSec, err := intWithDefault("SYNC_POLL_SECONDS", 5)
	if err != nil {
		return nil, err
	}
	maxWaitMin, err := intWithDefault("SYNC_MAX_BULK_WAIT_MINUTES", 120)
	if err != nil {
		return nil, err
	}
	concurrent, err := intWithDefault("SYNC_MAX_CONCURRENT_STORES", 5)
	if err != nil {
		return nil, err
	}
	staleHours, err := intWithDefault("SYNC_STALE_RUN_HOURS", 6)
	if err != nil {
		return nil, err
	}

	return &Config{
		DatabasePath: dbPath,
		LogFilePath:  logPath,
		LogConsole:   boolWithDefault("LOG_CONSOLE", true),
		Shopify: ShopifyConfig{
			APIVersion:      apiVersion,
			Timeout:         time.Duration(timeoutSec) * time.Second,
			RateLimitBucket: bucket,
			RateLimitRefill: refill,
		},
		Sync: SyncConfig{
			PollInterval:   time.Duration(pollSec) * time.Second,
			MaxBulkWait:    time.Duration(maxWaitMin) * time.Minute,
			MaxConcurrent:  concurrent,
			StaleRunMaxAge: time.Duration(staleHours) * time.Hour,
		},
		TelegramBot: TelegramBotConfig{
			ChatId: stringWithDefault("TELEGRAM_CHAT_ID", ""),
			Token:  stringWithDefault("TELEGRAM_BOT_TOKEN", ""),
		},
	}, nil
}
