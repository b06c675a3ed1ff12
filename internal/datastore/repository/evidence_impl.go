package repository

import (
	"context"
	"fmt"
	"slices"

	"gorm.io/gorm"

	"github.com/diana-archive/gazetteer/internal/datastore/entities"
	"github.com/diana-archive/gazetteer/internal/errors"
)

// evidenceKind describes the storage of one evidence kind.
type evidenceKind struct {
	table          string
	authorsJoin    string
	informantsJoin string
	newRecord      func() entities.Evidence
}

var evidenceKinds = map[string]evidenceKind{
	entities.KindImage: {
		table:          entities.TableImageEvidence,
		authorsJoin:    entities.TableImageEvidenceAuthors,
		informantsJoin: entities.TableImageEvidenceInformants,
		newRecord:      func() entities.Evidence { return &entities.ImageEvidence{} },
	},
	entities.KindText: {
		table:          entities.TableTextEvidence,
		authorsJoin:    entities.TableTextEvidenceAuthors,
		informantsJoin: entities.TableTextEvidenceInformants,
		newRecord:      func() entities.Evidence { return &entities.TextEvidence{} },
	},
	entities.KindDocument: {
		table:          entities.TableDocumentEvidence,
		authorsJoin:    entities.TableDocumentEvidenceAuthors,
		informantsJoin: entities.TableDocumentEvidenceInformants,
		newRecord:      func() entities.Evidence { return &entities.DocumentEvidence{} },
	},
}

// evidenceKindOrder fixes the iteration order for ListForPlaces.
var evidenceKindOrder = []string{entities.KindImage, entities.KindText, entities.KindDocument}

func lookupKind(kind string) (evidenceKind, error) {
	k, ok := evidenceKinds[kind]
	if !ok {
		return evidenceKind{}, fmt.Errorf("%w: %q", ErrInvalidEvidenceKind, kind)
	}
	return k, nil
}

// evidenceRepository implements EvidenceRepository.
type evidenceRepository struct {
	db *gorm.DB
}

// NewEvidenceRepository creates a new EvidenceRepository.
func NewEvidenceRepository(db *gorm.DB) EvidenceRepository {
	return &evidenceRepository{db: db}
}

func (r *evidenceRepository) WithTx(tx *gorm.DB) EvidenceRepository {
	return &evidenceRepository{db: tx}
}

// Create inserts an evidence record.
func (r *evidenceRepository) Create(ctx context.Context, evidence entities.Evidence) error {
	if _, err := lookupKind(evidence.Kind()); err != nil {
		return err
	}
	return createRow(ctx, r.db, evidence)
}

// Get retrieves one evidence record.
func (r *evidenceRepository) Get(ctx context.Context, kind string, id uint) (entities.Evidence, error) {
	k, err := lookupKind(kind)
	if err != nil {
		return nil, err
	}

	record := k.newRecord()
	err = r.db.WithContext(ctx).
		Preload("Authors", orderByID).
		Preload("Informants", orderByID).
		First(record, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrEvidenceNotFound
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

// LinkPlace sets the place of an evidence record.
func (r *evidenceRepository) LinkPlace(ctx context.Context, kind string, id, placeID uint) error {
	k, err := lookupKind(kind)
	if err != nil {
		return err
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&entities.Place{}).Where("id = ?", placeID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrPlaceNotFound
		}
		return setPlace(tx, k.table, id, &placeID)
	})
}

// UnlinkPlace clears the place of an evidence record.
func (r *evidenceRepository) UnlinkPlace(ctx context.Context, kind string, id uint) error {
	k, err := lookupKind(kind)
	if err != nil {
		return err
	}
	return setPlace(r.db.WithContext(ctx), k.table, id, nil)
}

func setPlace(db *gorm.DB, table string, id uint, placeID *uint) error {
	result := db.Table(table).Where("id = ?", id).Update("place_id", placeID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		// SQLite counts matched rows, MySQL changed rows; confirm the record exists.
		var count int64
		if err := db.Table(table).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrEvidenceNotFound
		}
	}
	return nil
}

// ListForPlaces returns all evidence linked to the given places.
func (r *evidenceRepository) ListForPlaces(ctx context.Context, placeIDs []uint) (map[uint][]entities.Evidence, error) {
	result := make(map[uint][]entities.Evidence, len(placeIDs))
	if len(placeIDs) == 0 {
		return result, nil
	}

	for _, kind := range evidenceKindOrder {
		for chunk := range slices.Chunk(placeIDs, maxIDsPerQuery) {
			records, err := r.listKind(ctx, kind, chunk)
			if err != nil {
				return nil, err
			}
			for _, e := range records {
				if pid := e.LinkedPlaceID(); pid != nil {
					result[*pid] = append(result[*pid], e)
				}
			}
		}
	}
	return result, nil
}

func (r *evidenceRepository) listKind(ctx context.Context, kind string, placeIDs []uint) ([]entities.Evidence, error) {
	db := r.db.WithContext(ctx).Where("place_id IN ?", placeIDs).Order("id ASC")

	var out []entities.Evidence
	switch kind {
	case entities.KindImage:
		var rows []*entities.ImageEvidence
		if err := db.Find(&rows).Error; err != nil {
			return nil, err
		}
		for _, row := range rows {
			out = append(out, row)
		}
	case entities.KindText:
		var rows []*entities.TextEvidence
		if err := db.Find(&rows).Error; err != nil {
			return nil, err
		}
		for _, row := range rows {
			out = append(out, row)
		}
	case entities.KindDocument:
		var rows []*entities.DocumentEvidence
		if err := db.Find(&rows).Error; err != nil {
			return nil, err
		}
		for _, row := range rows {
			out = append(out, row)
		}
	}
	return out, nil
}

// Delete removes an evidence record and its join rows.
func (r *evidenceRepository) Delete(ctx context.Context, kind string, id uint) error {
	k, err := lookupKind(kind)
	if err != nil {
		return err
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, join := range []string{k.authorsJoin, k.informantsJoin} {
			if err := tx.Exec(fmt.Sprintf("DELETE FROM %s WHERE evidence_id = ?", join), id).Error; err != nil {
				return err
			}
		}
		result := tx.Table(k.table).Where("id = ?", id).Delete(k.newRecord())
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrEvidenceNotFound
		}
		return nil
	})
}
