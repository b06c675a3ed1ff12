package datastore

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gorm_logger "gorm.io/gorm/logger"

	"github.com/diana-archive/gazetteer/internal/logger"
)

// MySQLConfig holds MySQL-specific configuration.
type MySQLConfig struct {
	Host         string
	Port         string
	Username     string
	Password     string
	Database     string
	MaxOpenConns int
	Logger       gorm_logger.Interface
}

// MySQLManager handles the gazetteer database for MySQL.
type MySQLManager struct {
	db     *gorm.DB
	config *MySQLConfig
}

// buildMySQLDSN formats the DSN with the go-sql-driver config so special
// characters in the password are escaped.
func buildMySQLDSN(cfg *MySQLConfig) string {
	dc := mysqldriver.NewConfig()
	dc.User = cfg.Username
	dc.Passwd = cfg.Password
	dc.Net = "tcp"
	dc.Addr = net.JoinHostPort(cfg.Host, cfg.Port)
	dc.DBName = cfg.Database
	dc.ParseTime = true
	dc.Loc = time.Local
	dc.Params = map[string]string{"charset": "utf8mb4"}
	return dc.FormatDSN()
}

// NewMySQLManager connects to MySQL and configures the connection pool.
func NewMySQLManager(cfg *MySQLConfig) (*MySQLManager, error) {
	gormCfg := &gorm.Config{
		Logger:         cfg.Logger,
		TranslateError: true,
	}

	db, err := gorm.Open(mysql.New(mysql.Config{
		DSN:                       buildMySQLDSN(cfg),
		DefaultStringSize:         255,
		SkipInitializeWithVersion: false,
	}), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying database: %w", err)
	}

	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 10
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(max(maxOpen/2, 1))
	sqlDB.SetConnMaxLifetime(time.Hour)

	GetLogger().Info("connected to mysql",
		logger.String("address", net.JoinHostPort(cfg.Host, cfg.Port)),
		logger.String("database", cfg.Database),
		logger.Int("max_open_conns", maxOpen))

	return &MySQLManager{db: db, config: cfg}, nil
}

// Initialize migrates the schema. MySQL enforces ON DELETE clauses natively.
func (m *MySQLManager) Initialize() error {
	return migrate(m.db)
}

// DB returns the underlying GORM database.
func (m *MySQLManager) DB() *gorm.DB {
	return m.db
}

// Path returns host:port/database.
func (m *MySQLManager) Path() string {
	return fmt.Sprintf("%s/%s", net.JoinHostPort(m.config.Host, m.config.Port), m.config.Database)
}

// Ping checks that the database answers.
func (m *MySQLManager) Ping(ctx context.Context) error {
	return pingDB(ctx, m.db)
}

// Stats returns connection pool statistics.
func (m *MySQLManager) Stats() sql.DBStats {
	return statsDB(m.db)
}

// Close closes the database connection.
func (m *MySQLManager) Close() error {
	return closeDB(m.db)
}

// IsMySQL returns true for MySQL manager.
func (m *MySQLManager) IsMySQL() bool {
	return true
}
