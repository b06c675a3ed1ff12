// config.go: settings struct for the gazetteer and the functions that load it.
package conf

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/diana-archive/gazetteer/internal/errors"
	"github.com/diana-archive/gazetteer/internal/logger"
)

// EnvPrefix prefixes every environment override, GAZETTEER_DATABASE_TYPE=mysql
const EnvPrefix = "GAZETTEER"

// RateLimitSettings controls the per client request limiter of the HTTP API
type RateLimitSettings struct {
	Enabled           bool    // true to enable the limiter
	RequestsPerSecond float64 // sustained rate per client ip
	Burst             int     // bucket size
	ExpiresIn         time.Duration
}

// MapSettings are the default map viewport handed to clients
type MapSettings struct {
	Latitude  float64
	Longitude float64
	Zoom      int
}

// WebServerSettings contains settings for the HTTP API
type WebServerSettings struct {
	Enabled         bool
	Port            string
	ReadOnly        bool     // disables DELETE routes
	BodyLimit       string   // echo body limit, e.g. "1M"
	AllowedOrigins  []string // CORS origins, empty means "*"
	ShutdownTimeout time.Duration
	RateLimit       RateLimitSettings
	Map             MapSettings
}

// SQLiteSettings selects the SQLite file and driver
type SQLiteSettings struct {
	Path   string // database file path
	Driver string // "sqlite3" (cgo, mattn) or "sqlite" (pure Go, modernc)
}

// MySQLSettings contains MySQL connection parameters
type MySQLSettings struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
}

// DatabaseSettings selects and configures the storage backend
type DatabaseSettings struct {
	Type         string // "sqlite" or "mysql"
	SQLite       SQLiteSettings
	MySQL        MySQLSettings
	SlowQuery    time.Duration // queries slower than this are logged at warn, 0 disables
	MaxOpenConns int
	ForeignKeys  bool // sqlite only, PRAGMA foreign_keys
}

// RedisSettings configures the redis cache backend
type RedisSettings struct {
	Addr     string
	Password string
	DB       int
}

// CacheSettings configures the search result cache
type CacheSettings struct {
	Backend         string // "memory", "redis" or "none"
	TTL             time.Duration
	CleanupInterval time.Duration // memory backend only
	Redis           RedisSettings
}

// SearchSettings contains search engine defaults and limits
type SearchSettings struct {
	DefaultPageSize int
	MaxPageSize     int
	DefaultDepth    int // expansion depth of search results
	DetailDepth     int // expansion depth of single place lookups
	Cache           CacheSettings
}

// SentrySettings configures error reporting
type SentrySettings struct {
	Enabled     bool
	DSN         string
	Environment string
}

// TelemetrySettings toggles prometheus metrics and Sentry
type TelemetrySettings struct {
	Metrics bool
	Sentry  SentrySettings
}

// ImportSettings controls the GeoJSON importer
type ImportSettings struct {
	SeedFile      string            // optional YAML reference data seed
	Informant     string            // custom id of the informant credited for imported names
	InformantNote string            // note stored on that informant when it is created
	Comment       string            // comment stored on newly created places
	NameNote      string            // note stored on imported names
	NameKeys      map[string]string // feature property -> language abbreviation
	Workers       int               // concurrent file parsers
}

// Settings contains all configuration options for the gazetteer.
type Settings struct {
	Debug     bool                 // true to enable debug mode
	Logging   logger.LoggingConfig // logging configuration
	WebServer WebServerSettings
	Database  DatabaseSettings
	Search    SearchSettings
	Telemetry TelemetrySettings
	Import    ImportSettings
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
	configFile       string
)

// SetConfigFile makes Load read exactly this file instead of searching the default paths.
func SetConfigFile(path string) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()
	configFile = path
}

// Load reads the configuration file, .env and environment variables into Settings.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, errors.New(fmt.Errorf("error initializing viper: %w", err)).
			Component("configuration").
			Category(errors.CategoryConfiguration).
			Build()
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, errors.New(fmt.Errorf("error unmarshaling config into struct: %w", err)).
			Component("configuration").
			Category(errors.CategoryConfiguration).
			Build()
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, errors.New(fmt.Errorf("error validating settings: %w", err)).
			Component("configuration").
			Category(errors.CategoryValidation).
			Build()
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper sets defaults, binds the environment and reads the config file if there is one.
func initViper() error {
	// .env is optional and never overrides variables already set
	if err := godotenv.Load(); err != nil && !isNotExist(err) {
		return fmt.Errorf("error reading .env file: %w", err)
	}

	setDefaultConfig()

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		for _, path := range GetDefaultConfigPaths() {
			viper.AddConfigPath(path)
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			// run on defaults and environment
			return nil
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// GetSettings returns the current settings instance
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// ConfigFileUsed returns the path of the file Load read, empty when running on defaults.
func ConfigFileUsed() string {
	return viper.ConfigFileUsed()
}
