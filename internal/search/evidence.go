package search

import (
	"context"
	"slices"
	"strings"

	"gorm.io/gorm"

	"github.com/diana-archive/gazetteer/internal/datastore/entities"
)

// EvidenceKind selects the evidence records a search is restricted to.
type EvidenceKind int

const (
	EvidenceNone EvidenceKind = iota
	EvidenceImage
	EvidenceText
	EvidenceDocument
)

func (k EvidenceKind) String() string {
	switch k {
	case EvidenceImage:
		return entities.KindImage
	case EvidenceText:
		return entities.KindText
	case EvidenceDocument:
		return entities.KindDocument
	default:
		return "none"
	}
}

// ParseEvidenceKind parses a source selector. Empty and "none" select no
// restriction.
func ParseEvidenceKind(s string) (EvidenceKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return EvidenceNone, nil
	case entities.KindImage:
		return EvidenceImage, nil
	case entities.KindText:
		return EvidenceText, nil
	case entities.KindDocument:
		return EvidenceDocument, nil
	}
	return EvidenceNone, invalidValue(ParamSource, s, "expected image, text or document")
}

// IDSet is a set of place ids. A nil IDSet returned by a resolver means the
// resolver applied no constraint.
type IDSet map[uint]struct{}

// NewIDSet returns a set holding ids.
func NewIDSet(ids ...uint) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s IDSet) Has(id uint) bool {
	_, ok := s[id]
	return ok
}

func (s IDSet) Len() int { return len(s) }

// Sorted returns the ids in ascending order.
func (s IDSet) Sorted() []uint {
	ids := make([]uint, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Intersect returns the ids present in both sets. A nil operand is the
// universe, so nil.Intersect(x) is x.
func (s IDSet) Intersect(o IDSet) IDSet {
	if s == nil {
		return o
	}
	if o == nil {
		return s
	}
	small, large := s, o
	if len(large) < len(small) {
		small, large = large, small
	}
	out := make(IDSet, len(small))
	for id := range small {
		if large.Has(id) {
			out[id] = struct{}{}
		}
	}
	return out
}

// EvidenceResolver resolves the places linked to evidence of one kind.
type EvidenceResolver interface {
	// ResolvePlaceIDs returns the distinct ids of places linked to at least
	// one evidence record of the resolver's kind, where the place satisfies
	// the place criteria and, when an informant is given, the evidence record
	// itself has a matching informant. A nil set means no constraint.
	ResolvePlaceIDs(ctx context.Context, tx *gorm.DB, c Criteria, mode MatchMode) (IDSet, error)
}

// kindResolver resolves place ids through one evidence table.
type kindResolver struct {
	table          string
	informantsJoin string
}

func (r kindResolver) ResolvePlaceIDs(ctx context.Context, tx *gorm.DB, c Criteria, mode MatchMode) (IDSet, error) {
	q := tx.WithContext(ctx).
		Table(r.table + " AS e").
		Joins("JOIN " + entities.TablePlaces + " ON " + placeIDColumn + " = e.place_id")

	// Place criteria constrain the linked place. The informant criterion
	// constrains the evidence record instead.
	for _, scope := range BuildScopes(c.withoutInformant(), mode) {
		q = scope(q)
	}
	if c.Informant != nil {
		sql, args := informantOnEvidence(r.informantsJoin, "e.id", *c.Informant)
		q = q.Where(sql, args...)
	}

	var ids []uint
	if err := q.Distinct().Pluck("e.place_id", &ids).Error; err != nil {
		return nil, err
	}
	return NewIDSet(ids...), nil
}

// noneResolver is the identity resolver used when no evidence kind is selected.
type noneResolver struct{}

func (noneResolver) ResolvePlaceIDs(context.Context, *gorm.DB, Criteria, MatchMode) (IDSet, error) {
	return nil, nil
}

var resolvers = map[EvidenceKind]EvidenceResolver{
	EvidenceNone:     noneResolver{},
	EvidenceImage:    kindResolver{table: entities.TableImageEvidence, informantsJoin: entities.TableImageEvidenceInformants},
	EvidenceText:     kindResolver{table: entities.TableTextEvidence, informantsJoin: entities.TableTextEvidenceInformants},
	EvidenceDocument: kindResolver{table: entities.TableDocumentEvidence, informantsJoin: entities.TableDocumentEvidenceInformants},
}

// ResolverFor returns the resolver of kind.
func ResolverFor(kind EvidenceKind) EvidenceResolver {
	if r, ok := resolvers[kind]; ok {
		return r
	}
	return noneResolver{}
}
