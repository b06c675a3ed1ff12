package repository

import (
	"context"
	"fmt"
	"slices"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/diana-archive/gazetteer/internal/datastore"
	"github.com/diana-archive/gazetteer/internal/datastore/entities"
	"github.com/diana-archive/gazetteer/internal/errors"
)

// maxIDsPerQuery bounds IN lists to stay below SQLite's parameter limit.
const maxIDsPerQuery = 500

// evidenceTables lists the tables carrying a nullable place_id.
var evidenceTables = []string{
	entities.TableImageEvidence,
	entities.TableTextEvidence,
	entities.TableDocumentEvidence,
}

// placeRepository implements PlaceRepository.
type placeRepository struct {
	db *gorm.DB
}

// NewPlaceRepository creates a new PlaceRepository.
func NewPlaceRepository(db *gorm.DB) PlaceRepository {
	return &placeRepository{db: db}
}

func (r *placeRepository) WithTx(tx *gorm.DB) PlaceRepository {
	return &placeRepository{db: tx}
}

func orderByID(db *gorm.DB) *gorm.DB {
	return db.Order("id ASC")
}

// ClampDepth limits depth to DepthFlat..DepthFull.
func ClampDepth(depth int) int {
	return min(max(depth, DepthFlat), DepthFull)
}

// preloadDepth adds the preloads for the requested expansion depth.
// Names are always loaded, they make up the place label.
func preloadDepth(db *gorm.DB, depth int) *gorm.DB {
	db = db.Preload("Names", orderByID)

	if depth >= DepthRelations {
		db = db.Preload("PlaceType").
			Preload("Images", orderByID).
			Preload("Texts", orderByID).
			Preload("Documents", orderByID)
	}

	if depth >= DepthFull {
		db = db.Preload("Names.Languages", orderByID).
			Preload("Names.Period").
			Preload("Names.Informants", orderByID)
		for _, rel := range []string{"Images", "Texts", "Documents"} {
			db = db.Preload(rel+".Authors", orderByID).
				Preload(rel+".Informants", orderByID)
		}
	}

	return db
}

// Create inserts a place together with its names.
func (r *placeRepository) Create(ctx context.Context, place *entities.Place) error {
	if place.PlaceTypeID == 0 && place.PlaceType == nil {
		return fmt.Errorf("%w: place type is required", ErrInvalidInput)
	}

	err := r.db.WithContext(ctx).Create(place).Error
	if err != nil {
		return r.wrapWriteError(err, "create")
	}
	return nil
}

// Update writes the attributes of an existing place.
func (r *placeRepository) Update(ctx context.Context, place *entities.Place) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&entities.Place{}).Where("id = ?", place.ID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrPlaceNotFound
		}

		err := tx.Omit(clause.Associations, "created_at").Save(place).Error
		if err != nil {
			return r.wrapWriteError(err, "update")
		}
		return nil
	})
}

// GetByID retrieves a place expanded to depth.
func (r *placeRepository) GetByID(ctx context.Context, id uint, depth int) (*entities.Place, error) {
	var place entities.Place
	err := preloadDepth(r.db.WithContext(ctx), ClampDepth(depth)).First(&place, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPlaceNotFound
	}
	if err != nil {
		return nil, err
	}
	return &place, nil
}

// GetMany retrieves places in the order of ids.
func (r *placeRepository) GetMany(ctx context.Context, ids []uint, depth int) ([]*entities.Place, error) {
	if len(ids) == 0 {
		return []*entities.Place{}, nil
	}
	depth = ClampDepth(depth)

	byID := make(map[uint]*entities.Place, len(ids))
	for chunk := range slices.Chunk(ids, maxIDsPerQuery) {
		var places []*entities.Place
		if err := preloadDepth(r.db.WithContext(ctx), depth).
			Where("id IN ?", chunk).
			Find(&places).Error; err != nil {
			return nil, err
		}
		for _, p := range places {
			byID[p.ID] = p
		}
	}

	result := make([]*entities.Place, 0, len(byID))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			result = append(result, p)
		}
	}
	return result, nil
}

// GetBySourceRef retrieves a place by its import natural key.
func (r *placeRepository) GetBySourceRef(ctx context.Context, sourceRef string) (*entities.Place, error) {
	var place entities.Place
	err := r.db.WithContext(ctx).
		Preload("Names", orderByID).
		Preload("Names.Languages").
		Where("source_ref = ?", sourceRef).
		First(&place).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPlaceNotFound
	}
	if err != nil {
		return nil, err
	}
	return &place, nil
}

// AddName attaches a new name to a place.
func (r *placeRepository) AddName(ctx context.Context, placeID uint, name *entities.Name) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&entities.Place{}).Where("id = ?", placeID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrPlaceNotFound
		}

		name.PlaceID = placeID
		if err := tx.Create(name).Error; err != nil {
			return r.wrapWriteError(err, "add_name")
		}
		return nil
	})
}

// DeleteName removes a name and its join rows.
func (r *placeRepository) DeleteName(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, join := range []string{entities.TableNameLanguages, entities.TableNameInformants} {
			if err := tx.Exec(fmt.Sprintf("DELETE FROM %s WHERE name_id = ?", join), id).Error; err != nil {
				return err
			}
		}

		result := tx.Delete(&entities.Name{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNameNotFound
		}
		return nil
	})
}

// Delete removes a place, its names, and clears evidence links.
func (r *placeRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Join rows first, foreign keys on name_languages/name_informants have no cascade.
		for _, join := range []string{entities.TableNameLanguages, entities.TableNameInformants} {
			stmt := fmt.Sprintf("DELETE FROM %s WHERE name_id IN (SELECT id FROM %s WHERE place_id = ?)",
				join, entities.TableNames)
			if err := tx.Exec(stmt, id).Error; err != nil {
				return err
			}
		}

		if err := tx.Where("place_id = ?", id).Delete(&entities.Name{}).Error; err != nil {
			return err
		}

		for _, table := range evidenceTables {
			if err := tx.Table(table).Where("place_id = ?", id).Update("place_id", nil).Error; err != nil {
				return err
			}
		}

		result := tx.Delete(&entities.Place{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrPlaceNotFound
		}
		return nil
	})
}

// Count returns the total number of places.
func (r *placeRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.Place{}).Count(&count).Error
	return count, err
}

// wrapWriteError maps constraint violations to repository sentinels.
func (r *placeRepository) wrapWriteError(err error, operation string) error {
	err = datastore.TranslateError(err)
	switch {
	case errors.Is(err, datastore.ErrDuplicateKey):
		return fmt.Errorf("%w: %w", ErrConflict, err)
	case errors.Is(err, datastore.ErrForeignKeyViolation):
		return fmt.Errorf("%w: place %s references a missing row: %w", ErrInvalidInput, operation, err)
	}
	return err
}
