// Package db provides a GORM-based persistence layer for spellbooks.
// It uses the pure-Go SQLite driver so the database is a single local file.
package db

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/asteroid-belt/spellbook/internal/models"
)

// SchemaVersion is the current schema version. Schema changes are additive only.
const SchemaVersion = "1"

// DB wraps the GORM database connection with spellbook-specific operations.
type DB struct {
	*gorm.DB
	path string

	// mu serializes read-modify-write mutations of spellbook records.
	mu *sync.Mutex
}

// Config holds database configuration options.
type Config struct {
	Path        string
	Debug       bool
	MaxIdleConn int
	MaxOpenConn int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(path string) Config {
	return Config{
		Path:        path,
		Debug:       false,
		MaxIdleConn: 1,
		MaxOpenConn: 1,
	}
}

// New creates a new database connection and runs migrations.
func New(cfg Config) (*DB, error) {
	dir := filepath.Dir(cfg.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	logLevel := logger.Silent
	if cfg.Debug {
		logLevel = logger.Info
	}

	// DELETE journal mode: WAL has visibility issues with the pure-Go driver
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(DELETE)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)", cfg.Path)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 logger.Default.LogMode(logLevel),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConn)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConn)
	sqlDB.SetConnMaxLifetime(time.Hour)

	wrapped := &DB{DB: db, path: cfg.Path, mu: &sync.Mutex{}}

	if err := wrapped.migrate(); err != nil {
		_ = wrapped.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	if err := wrapped.seedMeta(); err != nil {
		_ = wrapped.Close()
		return nil, fmt.Errorf("seed meta: %w", err)
	}

	return wrapped, nil
}

// migrate runs GORM auto-migrations for all models.
func (db *DB) migrate() error {
	return db.AutoMigrate(
		&models.Spellbook{},
		&models.Meta{},
	)
}

// seedMeta inserts default metadata if not present.
func (db *DB) seedMeta() error {
	meta := models.Meta{Key: models.MetaSchemaVersion, Value: SchemaVersion}
	return db.Where("key = ?", meta.Key).FirstOrCreate(&meta).Error
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// Close closes the database connection.
func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Transaction executes a function within a database transaction.
// The callback receives a *DB wrapper that uses the transaction.
// If the callback returns an error, the transaction is rolled back.
func (d *DB) Transaction(ctx context.Context, fc func(tx *DB) error) error {
	return d.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fc(&DB{DB: tx, path: d.path, mu: d.mu})
	})
}

// Stats holds aggregate counts about the local database.
type Stats struct {
	TotalSpellbooks int64
	TotalEntries    int64
	SizeBytes       int64
}

// GetStats returns aggregate statistics about the database.
func (db *DB) GetStats(ctx context.Context) (*Stats, error) {
	books, err := db.ListSpellbooks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list spellbooks: %w", err)
	}

	stats := &Stats{TotalSpellbooks: int64(len(books))}
	for _, b := range books {
		stats.TotalEntries += int64(len(b.Spells))
	}

	if info, err := os.Stat(db.path); err == nil {
		stats.SizeBytes = info.Size()
	}

	return stats, nil
}
