package api

import (
	"time"

	"github.com/paulmach/orb/geojson"

	"github.com/diana-archive/gazetteer/internal/datastore/entities"
	"github.com/diana-archive/gazetteer/internal/search"
)

// FeatureCollection is a page of places rendered as GeoJSON.
type FeatureCollection struct {
	Type     string     `json:"type"`
	Features []*Feature `json:"features"`
	Count    int64      `json:"count"`
	Page     int        `json:"page"`
	PageSize int        `json:"page_size"`
	Pages    int        `json:"pages"`
}

// Feature is a single place. Geometry is null for places without one.
type Feature struct {
	Type       string            `json:"type"`
	ID         uint              `json:"id"`
	Geometry   *geojson.Geometry `json:"geometry"`
	Properties PlaceProperties   `json:"properties"`
}

// PlaceProperties are the attributes of a place. Relations are only present
// when the requested depth loaded them.
type PlaceProperties struct {
	Label       string    `json:"label"`
	PlaceType   *string   `json:"place_type,omitempty"`
	Description *string   `json:"description"`
	Comment     *string   `json:"comment"`
	IsIconic    bool      `json:"is_iconic"`
	IsExisting  bool      `json:"is_existing"`
	IsPrivate   bool      `json:"is_private"`
	Corrected   bool      `json:"corrected"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Names    []NameDTO     `json:"names,omitempty"`
	Evidence []EvidenceDTO `json:"evidence,omitempty"`
}

// NameDTO is one attested name.
type NameDTO struct {
	ID         uint           `json:"id"`
	Text       *string        `json:"text"`
	Display    string         `json:"display"`
	Note       *string        `json:"note,omitempty"`
	Period     *PeriodDTO     `json:"period,omitempty"`
	Languages  []LanguageDTO  `json:"languages,omitempty"`
	Informants []InformantDTO `json:"informants,omitempty"`
}

// LanguageDTO is a language of a name.
type LanguageDTO struct {
	ID           uint    `json:"id"`
	Name         *string `json:"name"`
	Abbreviation *string `json:"abbreviation"`
}

// PeriodDTO is a periodization of a name.
type PeriodDTO struct {
	ID        uint    `json:"id"`
	Text      string  `json:"text"`
	StartYear *uint16 `json:"start_year,omitempty"`
	EndYear   *uint16 `json:"end_year,omitempty"`
}

// PlaceTypeDTO is a place classification.
type PlaceTypeDTO struct {
	ID   uint   `json:"id"`
	Text string `json:"text"`
}

// InformantDTO identifies an informant. Personal attributes are left out.
type InformantDTO struct {
	ID       uint    `json:"id"`
	CustomID *string `json:"custom_id"`
}

// EvidenceDTO is a linked image, text or document.
type EvidenceDTO struct {
	ID    uint   `json:"id"`
	Kind  string `json:"kind"`
	Title string `json:"title"`
}

// MapDefaults is the initial map viewport.
type MapDefaults struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Zoom      int     `json:"zoom"`
}

// NewFeatureCollection renders a search result page as GeoJSON.
func NewFeatureCollection(res *search.Result) *FeatureCollection {
	fc := &FeatureCollection{
		Type:     "FeatureCollection",
		Features: make([]*Feature, 0, len(res.Places)),
		Count:    res.Count,
		Page:     res.Page,
		PageSize: res.PageSize,
		Pages:    res.Pages,
	}
	for _, p := range res.Places {
		fc.Features = append(fc.Features, newFeature(p))
	}
	return fc
}

func newFeature(p *entities.Place) *Feature {
	f := &Feature{
		Type: "Feature",
		ID:   p.ID,
		Properties: PlaceProperties{
			Label:       p.Label(),
			Description: p.Description,
			Comment:     p.Comment,
			IsIconic:    p.IsIconic,
			IsExisting:  p.IsExisting,
			IsPrivate:   p.IsPrivate,
			Corrected:   p.Corrected,
			CreatedAt:   p.CreatedAt,
			UpdatedAt:   p.UpdatedAt,
		},
	}
	if p.Geometry.Valid() {
		f.Geometry = geojson.NewGeometry(p.Geometry.Geometry)
	}
	if p.PlaceType != nil {
		f.Properties.PlaceType = &p.PlaceType.Text
	}

	for i := range p.Names {
		f.Properties.Names = append(f.Properties.Names, newNameDTO(&p.Names[i]))
	}
	for _, e := range search.EvidenceOf(p) {
		f.Properties.Evidence = append(f.Properties.Evidence, EvidenceDTO{
			ID:    e.EvidenceID(),
			Kind:  e.Kind(),
			Title: e.EvidenceTitle(),
		})
	}
	return f
}

func newNameDTO(n *entities.Name) NameDTO {
	dto := NameDTO{
		ID:      n.ID,
		Text:    n.Text,
		Display: n.String(),
		Note:    n.Note,
	}
	if n.Period != nil {
		p := newPeriodDTO(n.Period)
		dto.Period = &p
	}
	for i := range n.Languages {
		dto.Languages = append(dto.Languages, newLanguageDTO(&n.Languages[i]))
	}
	for i := range n.Informants {
		dto.Informants = append(dto.Informants, InformantDTO{
			ID:       n.Informants[i].ID,
			CustomID: n.Informants[i].CustomID,
		})
	}
	return dto
}

func newLanguageDTO(l *entities.Language) LanguageDTO {
	return LanguageDTO{ID: l.ID, Name: l.Name, Abbreviation: l.Abbreviation}
}

func newPeriodDTO(p *entities.Period) PeriodDTO {
	return PeriodDTO{ID: p.ID, Text: p.Text, StartYear: p.StartYear, EndYear: p.EndYear}
}
