package conf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validSettings() *Settings {
	return &Settings{
		WebServer: WebServerSettings{
			Enabled:   true,
			Port:      "8080",
			RateLimit: RateLimitSettings{Enabled: true, RequestsPerSecond: 10, Burst: 20},
			Map:       MapSettings{Latitude: DefaultMapLatitude, Longitude: DefaultMapLongitude},
		},
		Database: DatabaseSettings{
			Type:      "sqlite",
			SQLite:    SQLiteSettings{Path: "gazetteer.db", Driver: "sqlite3"},
			SlowQuery: time.Second,
		},
		Search: SearchSettings{
			DefaultPageSize: 20,
			MaxPageSize:     100,
			DetailDepth:     2,
			Cache:           CacheSettings{Backend: "memory"},
		},
		Import: ImportSettings{
			Informant: "OSM",
			NameKeys:  map[string]string{"name": "en"},
			Workers:   1,
		},
	}
}

func TestValidateSettings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(s *Settings)
		wantErr string
	}{
		{"valid", func(*Settings) {}, ""},
		{"bad port", func(s *Settings) { s.WebServer.Port = "http" }, "webserver port"},
		{"port ignored when disabled", func(s *Settings) { s.WebServer.Enabled = false; s.WebServer.Port = "" }, ""},
		{"zero burst", func(s *Settings) { s.WebServer.RateLimit.Burst = 0 }, "burst"},
		{"latitude", func(s *Settings) { s.WebServer.Map.Latitude = 91 }, "latitude"},
		{"origin", func(s *Settings) { s.WebServer.AllowedOrigins = []string{"not a url"} }, "allowed origin"},
		{"wildcard origin", func(s *Settings) { s.WebServer.AllowedOrigins = []string{"*"} }, ""},
		{"db type", func(s *Settings) { s.Database.Type = "postgres" }, "database type"},
		{"sqlite driver", func(s *Settings) { s.Database.SQLite.Driver = "cgo" }, "sqlite driver"},
		{"mysql without host", func(s *Settings) { s.Database.Type = "mysql" }, "mysql host"},
		{"page size above max", func(s *Settings) { s.Search.DefaultPageSize = 101 }, "default page size"},
		{"depth", func(s *Settings) { s.Search.DetailDepth = 3 }, "detail depth"},
		{"cache backend", func(s *Settings) { s.Search.Cache.Backend = "memcached" }, "cache backend"},
		{"redis without addr", func(s *Settings) { s.Search.Cache.Backend = "redis" }, "redis cache address"},
		{"sentry without dsn", func(s *Settings) { s.Telemetry.Sentry.Enabled = true }, "sentry dsn"},
		{"no name keys", func(s *Settings) { s.Import.NameKeys = nil }, "name keys"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := validSettings()
			tt.mutate(s)

			err := ValidateSettings(s)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
