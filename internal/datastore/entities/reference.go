package entities

import "time"

// Language of a Name, e.g. "Kinyarwanda" / "rw".
type Language struct {
	ID           uint    `gorm:"primaryKey"`
	Name         *string `gorm:"type:varchar(512)"`
	Abbreviation *string `gorm:"type:varchar(8);uniqueIndex"`
}

// TableName returns the table name for GORM.
func (Language) TableName() string {
	return TableLanguages
}

// Period is an approximate periodization of a Name, e.g. "colonial".
type Period struct {
	ID        uint    `gorm:"primaryKey"`
	Text      string  `gorm:"type:varchar(255);not null;uniqueIndex"`
	StartYear *uint16 `gorm:"type:smallint"`
	EndYear   *uint16 `gorm:"type:smallint"`
}

// TableName returns the table name for GORM.
func (Period) TableName() string {
	return TablePeriods
}

// PlaceType classifies a Place, e.g. "street" or "building".
type PlaceType struct {
	ID   uint   `gorm:"primaryKey"`
	Text string `gorm:"type:varchar(255);not null;uniqueIndex"`
}

// TableName returns the table name for GORM.
func (PlaceType) TableName() string {
	return TablePlaceTypes
}

// Gender of an informant.
type Gender string

const (
	GenderFemale  Gender = "female"
	GenderMale    Gender = "male"
	GenderOther   Gender = "other"
	GenderUnknown Gender = "unknown"
)

// Valid reports whether g is one of the known genders.
func (g Gender) Valid() bool {
	switch g {
	case GenderFemale, GenderMale, GenderOther, GenderUnknown:
		return true
	}
	return false
}

// Informant is a person or an aggregate source (such as OSM) attesting names and evidence.
type Informant struct {
	ID       uint    `gorm:"primaryKey"`
	CustomID *string `gorm:"type:varchar(256);uniqueIndex"`
	Age      *uint16 `gorm:"type:smallint"`
	Note     *string `gorm:"type:text"`
	Gender   Gender  `gorm:"type:varchar(10);not null;default:unknown"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// TableName returns the table name for GORM.
func (Informant) TableName() string {
	return TableInformants
}

// Author of text, image or document evidence.
type Author struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"type:varchar(2028);not null"`
}

// TableName returns the table name for GORM.
func (Author) TableName() string {
	return TableAuthors
}
