// Package testutil provides shared test helpers for the gazetteer packages.
package testutil

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/diana-archive/gazetteer/internal/datastore"
)

// DefaultTestTimeout is the standard timeout for async test operations.
const DefaultTestTimeout = 5 * time.Second

// NewSQLite opens a migrated SQLite database in a temp dir. The database is
// closed when the test ends.
func NewSQLite(t *testing.T, name string) datastore.Manager {
	t.Helper()

	m, err := datastore.NewSQLiteManager(&datastore.SQLiteConfig{
		Path:        filepath.Join(t.TempDir(), name+".db"),
		ForeignKeys: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	require.NoError(t, m.Initialize())
	return m
}

// WaitForChannel waits for a signal on ch or fails after timeout.
func WaitForChannel[T any](t *testing.T, ch <-chan T, timeout time.Duration, msg string) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(timeout):
		require.Fail(t, msg)
	}
	var zero T
	return zero
}
