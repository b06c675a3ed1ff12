package entities

import "time"

// Evidence kind names, as used by the source filter and in API output.
const (
	KindImage    = "image"
	KindText     = "text"
	KindDocument = "document"
)

// Evidence is the shape shared by the three evidence kinds.
type Evidence interface {
	EvidenceID() uint
	EvidenceTitle() string
	Kind() string
	LinkedPlaceID() *uint
}

// ImageEvidence is an image (scan, photograph) substantiating a place.
type ImageEvidence struct {
	ID          uint    `gorm:"primaryKey"`
	Title       *string `gorm:"type:varchar(1024)"`
	FilePath    string  `gorm:"type:varchar(1024);not null"`
	Description *string `gorm:"type:text"`
	PlaceID     *uint   `gorm:"index"`

	CreatedAt time.Time `gorm:"autoCreateTime"`

	Authors    []Author    `gorm:"many2many:image_evidence_authors;joinForeignKey:EvidenceID;joinReferences:AuthorID"`
	Informants []Informant `gorm:"many2many:image_evidence_informants;joinForeignKey:EvidenceID;joinReferences:InformantID"`
}

// TableName returns the table name for GORM.
func (ImageEvidence) TableName() string { return TableImageEvidence }

func (e *ImageEvidence) EvidenceID() uint      { return e.ID }
func (e *ImageEvidence) EvidenceTitle() string { return deref(e.Title) }
func (e *ImageEvidence) Kind() string          { return KindImage }
func (e *ImageEvidence) LinkedPlaceID() *uint  { return e.PlaceID }

// TextEvidence is a transcribed text, e.g. an interview or an archival excerpt.
type TextEvidence struct {
	ID      uint    `gorm:"primaryKey"`
	Title   *string `gorm:"type:varchar(1024)"`
	Body    *string `gorm:"type:text"`
	PlaceID *uint   `gorm:"index"`

	CreatedAt time.Time `gorm:"autoCreateTime"`

	Authors    []Author    `gorm:"many2many:text_evidence_authors;joinForeignKey:EvidenceID;joinReferences:AuthorID"`
	Informants []Informant `gorm:"many2many:text_evidence_informants;joinForeignKey:EvidenceID;joinReferences:InformantID"`
}

// TableName returns the table name for GORM.
func (TextEvidence) TableName() string { return TableTextEvidence }

func (e *TextEvidence) EvidenceID() uint      { return e.ID }
func (e *TextEvidence) EvidenceTitle() string { return deref(e.Title) }
func (e *TextEvidence) Kind() string          { return KindText }
func (e *TextEvidence) LinkedPlaceID() *uint  { return e.PlaceID }

// DocumentEvidence is a document file (PDF, scan) with a description.
type DocumentEvidence struct {
	ID          uint    `gorm:"primaryKey"`
	Title       *string `gorm:"type:varchar(1024)"`
	FilePath    string  `gorm:"type:varchar(1024);not null"`
	Description *string `gorm:"type:text"`
	PlaceID     *uint   `gorm:"index"`

	CreatedAt time.Time `gorm:"autoCreateTime"`

	Authors    []Author    `gorm:"many2many:document_evidence_authors;joinForeignKey:EvidenceID;joinReferences:AuthorID"`
	Informants []Informant `gorm:"many2many:document_evidence_informants;joinForeignKey:EvidenceID;joinReferences:InformantID"`
}

// TableName returns the table name for GORM.
func (DocumentEvidence) TableName() string { return TableDocumentEvidence }

func (e *DocumentEvidence) EvidenceID() uint      { return e.ID }
func (e *DocumentEvidence) EvidenceTitle() string { return deref(e.Title) }
func (e *DocumentEvidence) Kind() string          { return KindDocument }
func (e *DocumentEvidence) LinkedPlaceID() *uint  { return e.PlaceID }

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
