package datastore

import (
	"fmt"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
	"modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/diana-archive/gazetteer/internal/errors"
)

// Constraint violations, independent of the database driver.
var (
	ErrDuplicateKey        = errors.NewStd("duplicate key")
	ErrForeignKeyViolation = errors.NewStd("foreign key violation")
)

// MySQL server error numbers.
const (
	mysqlErrDupEntry        = 1062
	mysqlErrRowIsReferenced = 1451
	mysqlErrNoReferencedRow = 1452
)

// TranslateError maps driver constraint errors to ErrDuplicateKey or
// ErrForeignKeyViolation. Other errors are returned unchanged.
//
// GORM's TranslateError option covers mattn and MySQL; the modernc driver
// and raw Exec paths still need the explicit checks below.
func TranslateError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, ErrDuplicateKey), errors.Is(err, ErrForeignKeyViolation):
		return err
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %w", ErrDuplicateKey, err)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return fmt.Errorf("%w: %w", ErrForeignKeyViolation, err)
	}

	var mattnErr sqlite3.Error
	if errors.As(err, &mattnErr) && mattnErr.Code == sqlite3.ErrConstraint {
		switch mattnErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return fmt.Errorf("%w: %w", ErrDuplicateKey, err)
		case sqlite3.ErrConstraintForeignKey:
			return fmt.Errorf("%w: %w", ErrForeignKeyViolation, err)
		}
	}

	var moderncErr *sqlite.Error
	if errors.As(err, &moderncErr) {
		switch moderncErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_UNIQUE, sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%w: %w", ErrDuplicateKey, err)
		case sqlite3lib.SQLITE_CONSTRAINT_FOREIGNKEY:
			return fmt.Errorf("%w: %w", ErrForeignKeyViolation, err)
		}
	}

	var mysqlErr *mysqldriver.MySQLError
	if errors.As(err, &mysqlErr) {
		switch mysqlErr.Number {
		case mysqlErrDupEntry:
			return fmt.Errorf("%w: %w", ErrDuplicateKey, err)
		case mysqlErrRowIsReferenced, mysqlErrNoReferencedRow:
			return fmt.Errorf("%w: %w", ErrForeignKeyViolation, err)
		}
	}

	return err
}

// IsConstraintError reports whether err is a duplicate key or foreign key violation.
func IsConstraintError(err error) bool {
	err = TranslateError(err)
	return errors.Is(err, ErrDuplicateKey) || errors.Is(err, ErrForeignKeyViolation)
}
