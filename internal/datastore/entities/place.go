package entities

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Place is a catalogued place of interest: a street, a building or any named location.
type Place struct {
	ID uint `gorm:"primaryKey"`

	// Geometry is optional. The envelope columns mirror its bound and are
	// NULL when the geometry is NULL.
	Geometry Geometry
	MinLon   *float64 `gorm:"index:idx_places_envelope,priority:1"`
	MinLat   *float64 `gorm:"index:idx_places_envelope,priority:2"`
	MaxLon   *float64 `gorm:"index:idx_places_envelope,priority:3"`
	MaxLat   *float64 `gorm:"index:idx_places_envelope,priority:4"`

	Description *string `gorm:"type:text"`
	Comment     *string `gorm:"type:text"`

	PlaceTypeID uint `gorm:"not null;index"`

	IsIconic   bool `gorm:"not null;default:false"`
	IsExisting bool `gorm:"not null;default:false"`
	IsPrivate  bool `gorm:"not null;default:false"`
	Corrected  bool `gorm:"not null;default:false;index"`

	// SourceRef is the natural key used by the importer (OSM id or geometry hash).
	SourceRef *string `gorm:"type:varchar(255);uniqueIndex"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	// Relationships (for preloading)
	PlaceType *PlaceType         `gorm:"foreignKey:PlaceTypeID;constraint:OnDelete:RESTRICT,OnUpdate:CASCADE"`
	Names     []Name             `gorm:"foreignKey:PlaceID;constraint:OnDelete:CASCADE"`
	Images    []ImageEvidence    `gorm:"foreignKey:PlaceID;constraint:OnDelete:SET NULL"`
	Texts     []TextEvidence     `gorm:"foreignKey:PlaceID;constraint:OnDelete:SET NULL"`
	Documents []DocumentEvidence `gorm:"foreignKey:PlaceID;constraint:OnDelete:SET NULL"`
}

// TableName returns the table name for GORM.
func (Place) TableName() string {
	return TablePlaces
}

// BeforeSave keeps the envelope columns in sync with the geometry.
func (p *Place) BeforeSave(_ *gorm.DB) error {
	p.SyncEnvelope()
	return nil
}

// SyncEnvelope recomputes MinLon/MinLat/MaxLon/MaxLat from the geometry.
func (p *Place) SyncEnvelope() {
	if !p.Geometry.Valid() {
		p.MinLon, p.MinLat, p.MaxLon, p.MaxLat = nil, nil, nil, nil
		return
	}
	b := p.Geometry.Bound()
	p.MinLon, p.MinLat = &b.Min[0], &b.Min[1]
	p.MaxLon, p.MaxLat = &b.Max[0], &b.Max[1]
}

// Label is the display string of a place: its name texts joined by ", ".
// Names without text are skipped.
func (p *Place) Label() string {
	texts := make([]string, 0, len(p.Names))
	for i := range p.Names {
		if t := p.Names[i].Text; t != nil && *t != "" {
			texts = append(texts, *t)
		}
	}
	return strings.Join(texts, ", ")
}
