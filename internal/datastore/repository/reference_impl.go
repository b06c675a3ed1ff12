package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/diana-archive/gazetteer/internal/datastore"
	"github.com/diana-archive/gazetteer/internal/datastore/entities"
	"github.com/diana-archive/gazetteer/internal/errors"
)

// referenceRepository implements ReferenceRepository.
type referenceRepository struct {
	db *gorm.DB
}

// NewReferenceRepository creates a new ReferenceRepository.
func NewReferenceRepository(db *gorm.DB) ReferenceRepository {
	return &referenceRepository{db: db}
}

func (r *referenceRepository) WithTx(tx *gorm.DB) ReferenceRepository {
	return &referenceRepository{db: tx}
}

// getByID loads one row of T or returns notFound.
func getByID[T any](ctx context.Context, db *gorm.DB, id uint, notFound error) (*T, error) {
	var row T
	err := db.WithContext(ctx).First(&row, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// listOrdered loads all rows of T in the given order.
func listOrdered[T any](ctx context.Context, db *gorm.DB, order string) ([]*T, error) {
	var rows []*T
	err := db.WithContext(ctx).Order(order).Find(&rows).Error
	return rows, err
}

// createRow inserts row, mapping duplicate keys to ErrConflict.
func createRow(ctx context.Context, db *gorm.DB, row any) error {
	err := db.WithContext(ctx).Create(row).Error
	if err == nil {
		return nil
	}
	err = datastore.TranslateError(err)
	if errors.Is(err, datastore.ErrDuplicateKey) {
		return fmt.Errorf("%w: %w", ErrConflict, err)
	}
	return err
}

// getOrCreate finds a row by where/args or creates it from fresh.
// A concurrent insert of the same key is resolved by re-reading.
func getOrCreate[T any](ctx context.Context, db *gorm.DB, fresh *T, where string, args ...any) (*T, error) {
	var row T
	err := db.WithContext(ctx).Where(where, args...).First(&row).Error
	if err == nil {
		return &row, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	createErr := db.WithContext(ctx).Create(fresh).Error
	if createErr != nil {
		// Another writer may have created it; if the re-read fails too, report the create error.
		if findErr := db.WithContext(ctx).Where(where, args...).First(&row).Error; findErr != nil {
			return nil, createErr
		}
		return &row, nil
	}
	return fresh, nil
}

// protectedDelete deletes the row of model with id unless countRefs finds references.
func protectedDelete(ctx context.Context, db *gorm.DB, model any, id uint, entity, referencedBy string,
	countRefs func(tx *gorm.DB) (int64, error), notFound error) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		refs, err := countRefs(tx)
		if err != nil {
			return err
		}
		if refs > 0 {
			return deleteBlocked(entity, id, refs, referencedBy)
		}

		result := tx.Delete(model, id)
		if result.Error != nil {
			if errors.Is(datastore.TranslateError(result.Error), datastore.ErrForeignKeyViolation) {
				return deleteBlocked(entity, id, 1, "rows")
			}
			return result.Error
		}
		if result.RowsAffected == 0 {
			return notFound
		}
		return nil
	})
}

func countWhere(tx *gorm.DB, table, where string, args ...any) (int64, error) {
	var n int64
	err := tx.Table(table).Where(where, args...).Count(&n).Error
	return n, err
}

// Languages

func (r *referenceRepository) CreateLanguage(ctx context.Context, lang *entities.Language) error {
	return createRow(ctx, r.db, lang)
}

func (r *referenceRepository) GetLanguage(ctx context.Context, id uint) (*entities.Language, error) {
	return getByID[entities.Language](ctx, r.db, id, ErrLanguageNotFound)
}

func (r *referenceRepository) GetOrCreateLanguage(ctx context.Context, name, abbreviation string) (*entities.Language, error) {
	if abbreviation == "" {
		return nil, fmt.Errorf("%w: language abbreviation is required", ErrInvalidInput)
	}
	return getOrCreate(ctx, r.db,
		&entities.Language{Name: &name, Abbreviation: &abbreviation},
		"abbreviation = ?", abbreviation)
}

func (r *referenceRepository) ListLanguages(ctx context.Context) ([]*entities.Language, error) {
	return listOrdered[entities.Language](ctx, r.db, "name ASC, id ASC")
}

func (r *referenceRepository) DeleteLanguage(ctx context.Context, id uint) error {
	return protectedDelete(ctx, r.db, &entities.Language{}, id, "language", "names",
		func(tx *gorm.DB) (int64, error) {
			return countWhere(tx, entities.TableNameLanguages, "language_id = ?", id)
		}, ErrLanguageNotFound)
}

// Periods

func (r *referenceRepository) CreatePeriod(ctx context.Context, period *entities.Period) error {
	return createRow(ctx, r.db, period)
}

func (r *referenceRepository) GetPeriod(ctx context.Context, id uint) (*entities.Period, error) {
	return getByID[entities.Period](ctx, r.db, id, ErrPeriodNotFound)
}

func (r *referenceRepository) GetOrCreatePeriod(ctx context.Context, text string) (*entities.Period, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: period text is required", ErrInvalidInput)
	}
	return getOrCreate(ctx, r.db, &entities.Period{Text: text}, "text = ?", text)
}

func (r *referenceRepository) ListPeriods(ctx context.Context) ([]*entities.Period, error) {
	return listOrdered[entities.Period](ctx, r.db, "start_year ASC, text ASC")
}

func (r *referenceRepository) DeletePeriod(ctx context.Context, id uint) error {
	return protectedDelete(ctx, r.db, &entities.Period{}, id, "period", "names",
		func(tx *gorm.DB) (int64, error) {
			return countWhere(tx, entities.TableNames, "period_id = ?", id)
		}, ErrPeriodNotFound)
}

// Place types

func (r *referenceRepository) CreatePlaceType(ctx context.Context, placeType *entities.PlaceType) error {
	return createRow(ctx, r.db, placeType)
}

func (r *referenceRepository) GetPlaceType(ctx context.Context, id uint) (*entities.PlaceType, error) {
	return getByID[entities.PlaceType](ctx, r.db, id, ErrPlaceTypeNotFound)
}

func (r *referenceRepository) GetOrCreatePlaceType(ctx context.Context, text string) (*entities.PlaceType, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: place type text is required", ErrInvalidInput)
	}
	return getOrCreate(ctx, r.db, &entities.PlaceType{Text: text}, "text = ?", text)
}

func (r *referenceRepository) ListPlaceTypes(ctx context.Context) ([]*entities.PlaceType, error) {
	return listOrdered[entities.PlaceType](ctx, r.db, "text ASC")
}

func (r *referenceRepository) DeletePlaceType(ctx context.Context, id uint) error {
	return protectedDelete(ctx, r.db, &entities.PlaceType{}, id, "place type", "places",
		func(tx *gorm.DB) (int64, error) {
			return countWhere(tx, entities.TablePlaces, "place_type_id = ?", id)
		}, ErrPlaceTypeNotFound)
}

// Informants

func (r *referenceRepository) CreateInformant(ctx context.Context, informant *entities.Informant) error {
	if informant.Gender == "" {
		informant.Gender = entities.GenderUnknown
	}
	if !informant.Gender.Valid() {
		return fmt.Errorf("%w: unknown gender %q", ErrInvalidInput, informant.Gender)
	}
	return createRow(ctx, r.db, informant)
}

func (r *referenceRepository) GetInformant(ctx context.Context, id uint) (*entities.Informant, error) {
	return getByID[entities.Informant](ctx, r.db, id, ErrInformantNotFound)
}

func (r *referenceRepository) GetOrCreateInformant(ctx context.Context, customID string, note *string) (*entities.Informant, error) {
	if customID == "" {
		return nil, fmt.Errorf("%w: informant custom id is required", ErrInvalidInput)
	}
	return getOrCreate(ctx, r.db,
		&entities.Informant{CustomID: &customID, Note: note, Gender: entities.GenderUnknown},
		"custom_id = ?", customID)
}

func (r *referenceRepository) ListInformants(ctx context.Context) ([]*entities.Informant, error) {
	return listOrdered[entities.Informant](ctx, r.db, "id ASC")
}

// informantJoins lists every join table with an informant_id column.
var informantJoins = []string{
	entities.TableNameInformants,
	entities.TableImageEvidenceInformants,
	entities.TableTextEvidenceInformants,
	entities.TableDocumentEvidenceInformants,
}

func (r *referenceRepository) DeleteInformant(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, join := range informantJoins {
			if err := tx.Exec(fmt.Sprintf("DELETE FROM %s WHERE informant_id = ?", join), id).Error; err != nil {
				return err
			}
		}
		result := tx.Delete(&entities.Informant{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrInformantNotFound
		}
		return nil
	})
}

// Authors

func (r *referenceRepository) CreateAuthor(ctx context.Context, author *entities.Author) error {
	return createRow(ctx, r.db, author)
}

func (r *referenceRepository) GetAuthor(ctx context.Context, id uint) (*entities.Author, error) {
	return getByID[entities.Author](ctx, r.db, id, ErrAuthorNotFound)
}

func (r *referenceRepository) ListAuthors(ctx context.Context) ([]*entities.Author, error) {
	return listOrdered[entities.Author](ctx, r.db, "name ASC, id ASC")
}

var authorJoins = []string{
	entities.TableImageEvidenceAuthors,
	entities.TableTextEvidenceAuthors,
	entities.TableDocumentEvidenceAuthors,
}

func (r *referenceRepository) DeleteAuthor(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, join := range authorJoins {
			if err := tx.Exec(fmt.Sprintf("DELETE FROM %s WHERE author_id = ?", join), id).Error; err != nil {
				return err
			}
		}
		result := tx.Delete(&entities.Author{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrAuthorNotFound
		}
		return nil
	})
}
