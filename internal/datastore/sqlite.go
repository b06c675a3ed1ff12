package datastore

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gorm_logger "gorm.io/gorm/logger"

	"github.com/diana-archive/gazetteer/internal/datastore/entities"
	"github.com/diana-archive/gazetteer/internal/logger"
)

// SQLite driver names as configured. The modernc driver registers itself as
// "sqlite", the mattn driver is opened as driverMattnUnicode.
const (
	DriverMattn   = "sqlite3" // cgo, github.com/mattn/go-sqlite3
	DriverModernc = "sqlite"  // pure Go, modernc.org/sqlite
)

// SQLiteConfig holds SQLite-specific configuration.
type SQLiteConfig struct {
	Path        string
	Driver      string
	ForeignKeys bool
	Logger      gorm_logger.Interface
}

// SQLiteManager handles the gazetteer database for SQLite.
type SQLiteManager struct {
	db     *gorm.DB
	dbPath string
}

// buildSQLiteDSN adds the recommended pragmas in the syntax of each driver.
func buildSQLiteDSN(path, driver string, foreignKeys bool) string {
	fk := "OFF"
	if foreignKeys {
		fk = "ON"
	}

	q := url.Values{}
	if driver == DriverModernc {
		q.Add("_pragma", "journal_mode(WAL)")
		q.Add("_pragma", "busy_timeout(5000)")
		q.Add("_pragma", fmt.Sprintf("foreign_keys(%s)", fk))
	} else {
		q.Set("_journal_mode", "WAL")
		q.Set("_busy_timeout", "5000")
		q.Set("_foreign_keys", fk)
	}
	return path + "?" + q.Encode()
}

// NewSQLiteManager opens (and creates if needed) the SQLite database file.
func NewSQLiteManager(cfg *SQLiteConfig) (*SQLiteManager, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverMattn
	}

	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}

	gormCfg := &gorm.Config{
		Logger:         cfg.Logger,
		TranslateError: true,
	}

	dialector := sqlite.Dialector{
		DriverName: sqlDriverName(driver),
		DSN:        buildSQLiteDSN(cfg.Path, driver, cfg.ForeignKeys),
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying database: %w", err)
	}
	// SQLite has a single writer
	sqlDB.SetMaxOpenConns(1)

	GetLogger().Info("opened sqlite database",
		logger.String("path", cfg.Path),
		logger.String("driver", driver),
		logger.Bool("foreign_keys", cfg.ForeignKeys))

	return &SQLiteManager{db: db, dbPath: cfg.Path}, nil
}

// Initialize migrates the schema and installs the evidence triggers.
func (m *SQLiteManager) Initialize() error {
	if err := migrate(m.db); err != nil {
		return err
	}
	return m.installEvidenceTriggers()
}

// installEvidenceTriggers clears evidence place links before a place row is
// deleted. SQLite only applies ON DELETE clauses defined at table creation
// and only with foreign_keys enabled, the trigger covers both gaps.
func (m *SQLiteManager) installEvidenceTriggers() error {
	for _, table := range []string{
		entities.TableImageEvidence,
		entities.TableTextEvidence,
		entities.TableDocumentEvidence,
	} {
		triggerSQL := fmt.Sprintf(`
			CREATE TRIGGER IF NOT EXISTS trg_places_delete_null_%[1]s
			BEFORE DELETE ON %[2]s
			FOR EACH ROW
			BEGIN
				UPDATE %[1]s SET place_id = NULL WHERE place_id = OLD.id;
			END`, table, entities.TablePlaces)
		if err := m.db.Exec(triggerSQL).Error; err != nil {
			return fmt.Errorf("failed to install trigger for %s: %w", table, err)
		}
	}
	return nil
}

// DB returns the underlying GORM database.
func (m *SQLiteManager) DB() *gorm.DB {
	return m.db
}

// Path returns the database file path.
func (m *SQLiteManager) Path() string {
	return m.dbPath
}

// Ping checks that the database answers.
func (m *SQLiteManager) Ping(ctx context.Context) error {
	return pingDB(ctx, m.db)
}

// Stats returns connection pool statistics.
func (m *SQLiteManager) Stats() sql.DBStats {
	return statsDB(m.db)
}

// Close closes the database connection.
func (m *SQLiteManager) Close() error {
	return closeDB(m.db)
}

// IsMySQL returns false for SQLite manager.
func (m *SQLiteManager) IsMySQL() bool {
	return false
}
