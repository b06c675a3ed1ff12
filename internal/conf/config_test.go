package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetViper isolates tests from the global viper state and any config.yaml in the working tree.
func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Chdir(t.TempDir())
	SetConfigFile("")
	t.Cleanup(func() {
		viper.Reset()
		SetConfigFile("")
	})
}

func TestLoadDefaults(t *testing.T) {
	resetViper(t)

	settings, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", settings.Database.Type)
	assert.Equal(t, "sqlite3", settings.Database.SQLite.Driver)
	assert.Equal(t, 200*time.Millisecond, settings.Database.SlowQuery)
	assert.Equal(t, DefaultPageSize, settings.Search.DefaultPageSize)
	assert.Equal(t, MaxPageSize, settings.Search.MaxPageSize)
	assert.Equal(t, DefaultDetailDepth, settings.Search.DetailDepth)
	assert.InDelta(t, DefaultMapLatitude, settings.WebServer.Map.Latitude, 1e-9)
	assert.InDelta(t, DefaultMapLongitude, settings.WebServer.Map.Longitude, 1e-9)
	assert.True(t, settings.WebServer.ReadOnly)
	assert.Equal(t, "en", settings.Import.NameKeys["name"])
	assert.Equal(t, "fr", settings.Import.NameKeys["name:fr"])
	require.NotNil(t, settings.Logging.Console)
	assert.True(t, settings.Logging.Console.Enabled)
	assert.Same(t, settings, GetSettings())
}

func TestLoadConfigFileAndEnvOverride(t *testing.T) {
	resetViper(t)

	path := filepath.Join(t.TempDir(), "gazetteer.yaml")
	yaml := `
database:
  type: mysql
  mysql:
    host: db.internal
    username: reader
    database: atlas
search:
  defaultpagesize: 50
  cache:
    backend: none
logging:
  module_levels:
    datastore: trace
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	SetConfigFile(path)
	t.Setenv("GAZETTEER_SEARCH_MAXPAGESIZE", "60")

	settings, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "mysql", settings.Database.Type)
	assert.Equal(t, "db.internal", settings.Database.MySQL.Host)
	assert.Equal(t, "3306", settings.Database.MySQL.Port)
	assert.Equal(t, 50, settings.Search.DefaultPageSize)
	assert.Equal(t, 60, settings.Search.MaxPageSize)
	assert.Equal(t, "none", settings.Search.Cache.Backend)
	assert.Equal(t, "trace", settings.Logging.ModuleLevels["datastore"])
	assert.Equal(t, path, ConfigFileUsed())
}

func TestLoadDotEnv(t *testing.T) {
	resetViper(t)

	require.NoError(t, os.WriteFile(".env", []byte("GAZETTEER_WEBSERVER_PORT=9191\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("GAZETTEER_WEBSERVER_PORT") })

	settings, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9191", settings.WebServer.Port)
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	resetViper(t)
	t.Setenv("GAZETTEER_DATABASE_TYPE", "postgres")

	_, err := Load()
	require.Error(t, err)

	var ve ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Errors[0], "postgres")
}
