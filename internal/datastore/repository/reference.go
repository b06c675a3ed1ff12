package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/diana-archive/gazetteer/internal/datastore/entities"
)

// ReferenceRepository provides access to the shared reference data:
// languages, periods, place types, informants and authors.
type ReferenceRepository interface {
	// CreateLanguage inserts a language. Returns ErrConflict on a duplicate abbreviation.
	CreateLanguage(ctx context.Context, lang *entities.Language) error
	// GetLanguage retrieves a language by ID. Returns ErrLanguageNotFound if not found.
	GetLanguage(ctx context.Context, id uint) (*entities.Language, error)
	// GetOrCreateLanguage looks a language up by abbreviation, creating it with name if missing.
	GetOrCreateLanguage(ctx context.Context, name, abbreviation string) (*entities.Language, error)
	// ListLanguages returns all languages ordered by name.
	ListLanguages(ctx context.Context) ([]*entities.Language, error)
	// DeleteLanguage removes an unreferenced language.
	// Returns ErrReferencedEntityDeleteBlocked while any name uses it.
	DeleteLanguage(ctx context.Context, id uint) error

	CreatePeriod(ctx context.Context, period *entities.Period) error
	GetPeriod(ctx context.Context, id uint) (*entities.Period, error)
	GetOrCreatePeriod(ctx context.Context, text string) (*entities.Period, error)
	ListPeriods(ctx context.Context) ([]*entities.Period, error)
	// DeletePeriod removes an unreferenced period.
	// Returns ErrReferencedEntityDeleteBlocked while any name uses it.
	DeletePeriod(ctx context.Context, id uint) error

	CreatePlaceType(ctx context.Context, placeType *entities.PlaceType) error
	GetPlaceType(ctx context.Context, id uint) (*entities.PlaceType, error)
	GetOrCreatePlaceType(ctx context.Context, text string) (*entities.PlaceType, error)
	ListPlaceTypes(ctx context.Context) ([]*entities.PlaceType, error)
	// DeletePlaceType removes an unreferenced place type.
	// Returns ErrReferencedEntityDeleteBlocked while any place uses it.
	DeletePlaceType(ctx context.Context, id uint) error

	CreateInformant(ctx context.Context, informant *entities.Informant) error
	GetInformant(ctx context.Context, id uint) (*entities.Informant, error)
	// GetOrCreateInformant looks an informant up by custom id. A new informant gets note.
	GetOrCreateInformant(ctx context.Context, customID string, note *string) (*entities.Informant, error)
	ListInformants(ctx context.Context) ([]*entities.Informant, error)
	// DeleteInformant detaches the informant from names and evidence, then removes it.
	DeleteInformant(ctx context.Context, id uint) error

	CreateAuthor(ctx context.Context, author *entities.Author) error
	GetAuthor(ctx context.Context, id uint) (*entities.Author, error)
	ListAuthors(ctx context.Context) ([]*entities.Author, error)
	// DeleteAuthor detaches the author from evidence, then removes it.
	DeleteAuthor(ctx context.Context, id uint) error

	// WithTx returns a repository running on tx.
	WithTx(tx *gorm.DB) ReferenceRepository
}
