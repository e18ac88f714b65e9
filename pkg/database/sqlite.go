// backend/pkg/database/sqlite.go
package database

import (
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewSQLiteDB opens a file-backed SQLite database for local runs and tests.
// SQLite allows a single writer, so the pool is pinned to one connection;
// concurrent transactions queue on it instead of failing with SQLITE_BUSY.
func NewSQLiteDB(path string, silent bool) (*gorm.DB, error) {
	level := gormlogger.Warn
	if silent {
		level = gormlogger.Silent
	}
	db, err := gorm.Open(sqlite.Open(path+"?_foreign_keys=on&_busy_timeout=5000"), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(level),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}
