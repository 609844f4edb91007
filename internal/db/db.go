package db

import (
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Handle struct {
	DB   *gorm.DB
	Path string
}

func Open(dbPath string) (*Handle, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, err
	}
	gdb, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	return &Handle{DB: gdb, Path: dbPath}, nil
}

// OpenMemory opens a throwaway in-memory database, used by tests.
func OpenMemory() (*Handle, error) {
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	return &Handle{DB: gdb, Path: ":memory:"}, nil
}

func (h *Handle) Migrate() error {
	return h.DB.AutoMigrate(
		&Store{},
		&SalesHistory{},
		&SyncLog{},
	)
}
