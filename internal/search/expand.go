package search

import (
	"context"

	"gorm.io/gorm"

	"github.com/diana-archive/gazetteer/internal/datastore/entities"
)

// expand loads the places of a page in id order, preloading relations to depth.
func (s *Service) expand(ctx context.Context, tx *gorm.DB, ids []uint, depth int) ([]*entities.Place, error) {
	return s.places.WithTx(tx).GetMany(ctx, ids, depth)
}

// EvidenceOf lists the evidence linked to p: images, then texts, then
// documents. It is empty below depth 1, where evidence is not loaded.
func EvidenceOf(p *entities.Place) []entities.Evidence {
	out := make([]entities.Evidence, 0, len(p.Images)+len(p.Texts)+len(p.Documents))
	for i := range p.Images {
		out = append(out, &p.Images[i])
	}
	for i := range p.Texts {
		out = append(out, &p.Texts[i])
	}
	for i := range p.Documents {
		out = append(out, &p.Documents[i])
	}
	return out
}
