package repository

import (
	"fmt"

	"github.com/diana-archive/gazetteer/internal/errors"
)

// ErrNotFound is wrapped by every entity specific not found error.
var ErrNotFound = errors.NewStd("not found")

// Sentinel errors for repository operations.
var (
	// ErrPlaceNotFound indicates the requested place does not exist.
	ErrPlaceNotFound = fmt.Errorf("place %w", ErrNotFound)

	// ErrNameNotFound indicates the requested name does not exist.
	ErrNameNotFound = fmt.Errorf("name %w", ErrNotFound)

	// ErrLanguageNotFound indicates the requested language does not exist.
	ErrLanguageNotFound = fmt.Errorf("language %w", ErrNotFound)

	// ErrPeriodNotFound indicates the requested period does not exist.
	ErrPeriodNotFound = fmt.Errorf("period %w", ErrNotFound)

	// ErrPlaceTypeNotFound indicates the requested place type does not exist.
	ErrPlaceTypeNotFound = fmt.Errorf("place type %w", ErrNotFound)

	// ErrInformantNotFound indicates the requested informant does not exist.
	ErrInformantNotFound = fmt.Errorf("informant %w", ErrNotFound)

	// ErrAuthorNotFound indicates the requested author does not exist.
	ErrAuthorNotFound = fmt.Errorf("author %w", ErrNotFound)

	// ErrEvidenceNotFound indicates the requested evidence record does not exist.
	ErrEvidenceNotFound = fmt.Errorf("evidence %w", ErrNotFound)

	// ErrReferencedEntityDeleteBlocked indicates a delete refused because other rows reference the entity.
	ErrReferencedEntityDeleteBlocked = errors.NewStd("referenced entity delete blocked")

	// ErrConflict indicates a unique natural key is already taken.
	ErrConflict = errors.NewStd("conflict")

	// ErrInvalidEvidenceKind indicates an evidence kind other than image, text or document.
	ErrInvalidEvidenceKind = errors.NewStd("invalid evidence kind")

	// ErrInvalidInput indicates invalid input parameters.
	ErrInvalidInput = errors.NewStd("invalid input")
)

// deleteBlocked builds the error returned when references prevent a delete.
func deleteBlocked(entity string, id uint, references int64, referencedBy string) error {
	return errors.New(fmt.Errorf("%w: %s %d is referenced by %d %s",
		ErrReferencedEntityDeleteBlocked, entity, id, references, referencedBy)).
		Component("datastore.repository").
		Category(errors.CategoryConflict).
		Context("entity", entity).
		Context("id", id).
		Context("references", references).
		Build()
}
