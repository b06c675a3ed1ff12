package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/diana-archive/gazetteer/internal/datastore/entities"
)

// Expansion depths for place loading.
const (
	// DepthFlat loads place attributes and name texts (for the label).
	DepthFlat = 0
	// DepthRelations adds the place type, names and linked evidence.
	DepthRelations = 1
	// DepthFull adds languages, period and informants of names and the
	// authors and informants of evidence.
	DepthFull = 2
)

// PlaceRepository provides access to places and the names they own.
type PlaceRepository interface {
	// Create inserts a place together with its names.
	// Languages, periods and informants referenced by the names must exist.
	Create(ctx context.Context, place *entities.Place) error

	// Update writes the attributes of an existing place. Names and evidence links are left untouched.
	// Returns ErrPlaceNotFound if not found.
	Update(ctx context.Context, place *entities.Place) error

	// GetByID retrieves a place expanded to depth (clamped to 0..2).
	// Returns ErrPlaceNotFound if not found.
	GetByID(ctx context.Context, id uint, depth int) (*entities.Place, error)

	// GetMany retrieves places in the order of ids, expanded to depth.
	// Unknown ids are skipped. Large id sets are chunked.
	GetMany(ctx context.Context, ids []uint, depth int) ([]*entities.Place, error)

	// GetBySourceRef retrieves a place by its import natural key.
	// Returns ErrPlaceNotFound if not found.
	GetBySourceRef(ctx context.Context, sourceRef string) (*entities.Place, error)

	// AddName attaches a new name to a place.
	// Returns ErrPlaceNotFound if the place does not exist.
	AddName(ctx context.Context, placeID uint, name *entities.Name) error

	// DeleteName removes a name and its language and informant links.
	// Returns ErrNameNotFound if not found.
	DeleteName(ctx context.Context, id uint) error

	// Delete removes a place and its names and clears the place link of all evidence.
	// Returns ErrPlaceNotFound if not found.
	Delete(ctx context.Context, id uint) error

	// Count returns the total number of places.
	Count(ctx context.Context) (int64, error)

	// WithTx returns a repository running on tx.
	WithTx(tx *gorm.DB) PlaceRepository
}
