package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/diana-archive/gazetteer/internal/datastore/entities"
)

// EvidenceRepository provides access to image, text and document evidence.
// Kinds are the entities.Kind* names.
type EvidenceRepository interface {
	// Create inserts an evidence record with its author and informant links.
	Create(ctx context.Context, evidence entities.Evidence) error

	// Get retrieves one evidence record with authors and informants.
	// Returns ErrEvidenceNotFound if not found, ErrInvalidEvidenceKind for an unknown kind.
	Get(ctx context.Context, kind string, id uint) (entities.Evidence, error)

	// LinkPlace sets the place of an evidence record.
	// Returns ErrPlaceNotFound if the place does not exist.
	LinkPlace(ctx context.Context, kind string, id, placeID uint) error

	// UnlinkPlace clears the place of an evidence record without deleting it.
	UnlinkPlace(ctx context.Context, kind string, id uint) error

	// ListForPlaces returns all evidence of every kind linked to the given places,
	// grouped by place id.
	ListForPlaces(ctx context.Context, placeIDs []uint) (map[uint][]entities.Evidence, error)

	// Delete removes an evidence record and its author and informant links.
	Delete(ctx context.Context, kind string, id uint) error

	// WithTx returns a repository running on tx.
	WithTx(tx *gorm.DB) EvidenceRepository
}
