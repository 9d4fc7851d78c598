package database

import (
	"fmt"
	"strings"
	"sync/atomic"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var memoryDBSeq atomic.Int64

// OpenMemory opens a migrated, private in-memory SQLite database. Used by tests and local tooling.
func OpenMemory(name string) (*gorm.DB, error) {
	name = strings.NewReplacer("/", "_", " ", "_").Replace(name)
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared&_busy_timeout=5000", name, memoryDBSeq.Add(1))

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite allows a single writer; one connection keeps transactions serialized.
	sqlDB.SetMaxOpenConns(1)

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}
