// conf/validate.go

package conf

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	ve.Errors = append(ve.Errors, validateWebServerSettings(&settings.WebServer)...)
	ve.Errors = append(ve.Errors, validateDatabaseSettings(&settings.Database)...)
	ve.Errors = append(ve.Errors, validateSearchSettings(&settings.Search)...)
	ve.Errors = append(ve.Errors, validateTelemetrySettings(&settings.Telemetry)...)
	ve.Errors = append(ve.Errors, validateImportSettings(&settings.Import)...)

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateWebServerSettings(settings *WebServerSettings) []string {
	var errs []string

	if settings.Enabled {
		port, err := strconv.Atoi(settings.Port)
		if err != nil || port < 1 || port > 65535 {
			errs = append(errs, fmt.Sprintf("webserver port %q must be a number between 1 and 65535", settings.Port))
		}
	}

	if settings.RateLimit.Enabled {
		if settings.RateLimit.RequestsPerSecond <= 0 {
			errs = append(errs, "webserver rate limit requests per second must be positive")
		}
		if settings.RateLimit.Burst < 1 {
			errs = append(errs, "webserver rate limit burst must be at least 1")
		}
	}

	if settings.Map.Latitude < -90 || settings.Map.Latitude > 90 {
		errs = append(errs, "map latitude must be between -90 and 90")
	}
	if settings.Map.Longitude < -180 || settings.Map.Longitude > 180 {
		errs = append(errs, "map longitude must be between -180 and 180")
	}

	for _, origin := range settings.AllowedOrigins {
		if origin == "*" {
			continue
		}
		if u, err := url.Parse(origin); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Sprintf("allowed origin %q is not a valid origin URL", origin))
		}
	}

	return errs
}

func validateDatabaseSettings(settings *DatabaseSettings) []string {
	var errs []string

	switch strings.ToLower(settings.Type) {
	case "sqlite":
		if settings.SQLite.Path == "" {
			errs = append(errs, "sqlite path must not be empty")
		}
		switch settings.SQLite.Driver {
		case "sqlite3", "sqlite":
		default:
			errs = append(errs, fmt.Sprintf("sqlite driver %q must be sqlite3 or sqlite", settings.SQLite.Driver))
		}
	case "mysql":
		if settings.MySQL.Host == "" || settings.MySQL.Database == "" {
			errs = append(errs, "mysql host and database must not be empty")
		}
		if settings.MySQL.Username == "" {
			errs = append(errs, "mysql username must not be empty")
		}
	default:
		errs = append(errs, fmt.Sprintf("database type %q must be sqlite or mysql", settings.Type))
	}

	if settings.SlowQuery < 0 {
		errs = append(errs, "database slow query threshold must not be negative")
	}

	return errs
}

func validateSearchSettings(settings *SearchSettings) []string {
	var errs []string

	if settings.MaxPageSize < 1 {
		errs = append(errs, "search max page size must be at least 1")
	}
	if settings.DefaultPageSize < 1 || settings.DefaultPageSize > settings.MaxPageSize {
		errs = append(errs, "search default page size must be between 1 and the max page size")
	}
	if settings.DefaultDepth < 0 || settings.DefaultDepth > 2 {
		errs = append(errs, "search default depth must be between 0 and 2")
	}
	if settings.DetailDepth < 0 || settings.DetailDepth > 2 {
		errs = append(errs, "search detail depth must be between 0 and 2")
	}

	switch settings.Cache.Backend {
	case "memory", "none":
	case "redis":
		if settings.Cache.Redis.Addr == "" {
			errs = append(errs, "redis cache address must not be empty")
		}
	default:
		errs = append(errs, fmt.Sprintf("cache backend %q must be memory, redis or none", settings.Cache.Backend))
	}

	return errs
}

func validateTelemetrySettings(settings *TelemetrySettings) []string {
	if settings.Sentry.Enabled && settings.Sentry.DSN == "" {
		return []string{"sentry dsn must be set when sentry is enabled"}
	}
	return nil
}

func validateImportSettings(settings *ImportSettings) []string {
	var errs []string

	if settings.Informant == "" {
		errs = append(errs, "import informant must not be empty")
	}
	if len(settings.NameKeys) == 0 {
		errs = append(errs, "import name keys must map at least one property to a language")
	}
	if settings.Workers < 1 {
		errs = append(errs, "import workers must be at least 1")
	}

	return errs
}
