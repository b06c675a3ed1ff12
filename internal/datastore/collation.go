package datastore

import (
	"database/sql"
	"database/sql/driver"
	"strings"

	"github.com/mattn/go-sqlite3"
	moderncsqlite "modernc.org/sqlite"
)

// driverMattnUnicode is the database/sql name of the mattn driver with the
// Unicode lower() function installed on every connection.
const driverMattnUnicode = "sqlite3_gazetteer"

// FoldCase is the case folding of case-insensitive text comparisons. The
// SQLite lower() function applies the same folding, so a value folded in Go
// compares equal to LOWER(column) on every backend.
func FoldCase(s string) string {
	return strings.ToLower(s)
}

// SQLite's built-in lower() only folds ASCII. Both drivers get it replaced.
func init() {
	sql.Register(driverMattnUnicode, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("lower", lowerValue, true)
		},
	})

	moderncsqlite.MustRegisterDeterministicScalarFunction("lower", 1,
		func(_ *moderncsqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
			return lowerValue(args[0]), nil
		})
}

// lowerValue folds text and blob values, NULL stays NULL and numbers pass through.
func lowerValue(v any) any {
	switch s := v.(type) {
	case string:
		return FoldCase(s)
	case []byte:
		// mattn hands NULL over as a nil slice
		if s == nil {
			return nil
		}
		return FoldCase(string(s))
	default:
		return v
	}
}

// sqlDriverName maps a configured SQLite driver to its registered name.
func sqlDriverName(driver string) string {
	if driver == DriverMattn {
		return driverMattnUnicode
	}
	return driver
}
