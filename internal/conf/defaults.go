// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"

	"github.com/diana-archive/gazetteer/internal/logger"
)

// Defaults shared with the search engine and importer
const (
	DefaultPageSize    = 20
	MaxPageSize        = 100
	DefaultDetailDepth = 2

	DefaultMapLatitude  = -1.985070
	DefaultMapLongitude = 30.031855
	DefaultMapZoom      = 13

	DefaultImportInformant = "OSM"
	DefaultInformantNote   = "The OSM informant represents the crowd of informants contributing to the Open Street Map."
	DefaultImportComment   = "This place was originally automatically uploaded from Open Street Map source data."
	DefaultNameNote        = "Name crowd-sourced from Open Street Map."
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("logging.default_level", logger.DefaultLogLevel)
	viper.SetDefault("logging.timezone", "Local")
	viper.SetDefault("logging.console.enabled", logger.DefaultConsoleEnabled)
	viper.SetDefault("logging.console.level", logger.DefaultLogLevel)
	viper.SetDefault("logging.file_output.enabled", logger.DefaultFileEnabled)
	viper.SetDefault("logging.file_output.path", logger.DefaultLogPath)
	viper.SetDefault("logging.file_output.level", logger.DefaultLogLevel)
	viper.SetDefault("logging.module_levels", map[string]string{})

	viper.SetDefault("webserver.enabled", true)
	viper.SetDefault("webserver.port", "8080")
	viper.SetDefault("webserver.readonly", true)
	viper.SetDefault("webserver.bodylimit", "1M")
	viper.SetDefault("webserver.allowedorigins", []string{})
	viper.SetDefault("webserver.shutdowntimeout", 10*time.Second)
	viper.SetDefault("webserver.ratelimit.enabled", true)
	viper.SetDefault("webserver.ratelimit.requestspersecond", 20.0)
	viper.SetDefault("webserver.ratelimit.burst", 40)
	viper.SetDefault("webserver.ratelimit.expiresin", 3*time.Minute)
	viper.SetDefault("webserver.map.latitude", DefaultMapLatitude)
	viper.SetDefault("webserver.map.longitude", DefaultMapLongitude)
	viper.SetDefault("webserver.map.zoom", DefaultMapZoom)

	viper.SetDefault("database.type", "sqlite")
	viper.SetDefault("database.sqlite.path", "gazetteer.db")
	viper.SetDefault("database.sqlite.driver", "sqlite3")
	viper.SetDefault("database.mysql.host", "localhost")
	viper.SetDefault("database.mysql.port", "3306")
	viper.SetDefault("database.mysql.username", "gazetteer")
	viper.SetDefault("database.mysql.password", "")
	viper.SetDefault("database.mysql.database", "gazetteer")
	viper.SetDefault("database.slowquery", 200*time.Millisecond)
	viper.SetDefault("database.maxopenconns", 10)
	viper.SetDefault("database.foreignkeys", true)

	viper.SetDefault("search.defaultpagesize", DefaultPageSize)
	viper.SetDefault("search.maxpagesize", MaxPageSize)
	viper.SetDefault("search.defaultdepth", 0)
	viper.SetDefault("search.detaildepth", DefaultDetailDepth)
	viper.SetDefault("search.cache.backend", "memory")
	viper.SetDefault("search.cache.ttl", 5*time.Minute)
	viper.SetDefault("search.cache.cleanupinterval", 10*time.Minute)
	viper.SetDefault("search.cache.redis.addr", "localhost:6379")
	viper.SetDefault("search.cache.redis.password", "")
	viper.SetDefault("search.cache.redis.db", 0)

	viper.SetDefault("telemetry.metrics", true)
	viper.SetDefault("telemetry.sentry.enabled", false)
	viper.SetDefault("telemetry.sentry.dsn", "")
	viper.SetDefault("telemetry.sentry.environment", "production")

	viper.SetDefault("import.seedfile", "")
	viper.SetDefault("import.informant", DefaultImportInformant)
	viper.SetDefault("import.informantnote", DefaultInformantNote)
	viper.SetDefault("import.comment", DefaultImportComment)
	viper.SetDefault("import.namenote", DefaultNameNote)
	viper.SetDefault("import.namekeys", map[string]string{
		"name":    "en",
		"name:en": "en",
		"name:fr": "fr",
		"name:rw": "rw",
		"name:sw": "sw",
	})
	viper.SetDefault("import.workers", 4)
}
