// Package datastore opens and migrates the gazetteer database.
//
// Two backends are supported: SQLite (cgo mattn/go-sqlite3 or pure Go
// modernc.org/sqlite) and MySQL. Repositories in the repository subpackage
// work against the *gorm.DB returned by Manager.DB.
package datastore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/diana-archive/gazetteer/internal/conf"
	"github.com/diana-archive/gazetteer/internal/datastore/entities"
	"github.com/diana-archive/gazetteer/internal/errors"
	"github.com/diana-archive/gazetteer/internal/logger"
)

// Manager defines the interface for database lifecycle operations.
type Manager interface {
	// Initialize creates or updates the schema.
	Initialize() error
	// DB returns the underlying GORM database.
	DB() *gorm.DB
	// Path returns the database location (file path for SQLite, host:port/db for MySQL).
	Path() string
	// Ping checks that the database answers.
	Ping(ctx context.Context) error
	// Stats returns connection pool statistics.
	Stats() sql.DBStats
	// Close closes the database connection.
	Close() error
	// IsMySQL returns true if this is a MySQL manager.
	IsMySQL() bool
}

// Open returns the Manager for the configured backend. Initialize must be
// called before repositories are used on a fresh database.
func Open(settings *conf.DatabaseSettings) (Manager, error) {
	gormLogger := logger.NewGormLoggerAdapter(GetLogger(), settings.SlowQuery)

	switch strings.ToLower(settings.Type) {
	case "sqlite", "":
		return NewSQLiteManager(&SQLiteConfig{
			Path:        settings.SQLite.Path,
			Driver:      settings.SQLite.Driver,
			ForeignKeys: settings.ForeignKeys,
			Logger:      gormLogger,
		})
	case "mysql":
		return NewMySQLManager(&MySQLConfig{
			Host:         settings.MySQL.Host,
			Port:         settings.MySQL.Port,
			Username:     settings.MySQL.Username,
			Password:     settings.MySQL.Password,
			Database:     settings.MySQL.Database,
			MaxOpenConns: settings.MaxOpenConns,
			Logger:       gormLogger,
		})
	default:
		return nil, errors.Newf("unsupported database type %q", settings.Type).
			Component("datastore").
			Category(errors.CategoryConfiguration).
			Build()
	}
}

// migrate runs AutoMigrate for every model.
func migrate(db *gorm.DB) error {
	start := time.Now()
	if err := db.AutoMigrate(entities.All()...); err != nil {
		return errors.New(fmt.Errorf("failed to migrate schema: %w", err)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "auto_migrate").
			Build()
	}
	GetLogger().Info("schema migrated",
		logger.String("dialect", db.Dialector.Name()),
		logger.Duration("elapsed", time.Since(start)))
	return nil
}

func pingDB(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying database: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

func statsDB(db *gorm.DB) sql.DBStats {
	sqlDB, err := db.DB()
	if err != nil {
		return sql.DBStats{}
	}
	return sqlDB.Stats()
}

func closeDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying database: %w", err)
	}
	return sqlDB.Close()
}
