package entities

import (
	"strings"
	"time"
)

// Name is an attested name of a Place. Text may be NULL for an attested but
// unnamed record.
type Name struct {
	ID       uint    `gorm:"primaryKey"`
	PlaceID  uint    `gorm:"not null;index"`
	Text     *string `gorm:"type:varchar(2028)"`
	Note     *string `gorm:"type:text"`
	PeriodID *uint   `gorm:"index"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	Period     *Period     `gorm:"foreignKey:PeriodID;constraint:OnDelete:RESTRICT,OnUpdate:CASCADE"`
	Languages  []Language  `gorm:"many2many:name_languages"`
	Informants []Informant `gorm:"many2many:name_informants"`
}

// TableName returns the table name for GORM.
func (Name) TableName() string {
	return TableNames
}

// String renders the name text followed by the language abbreviations,
// e.g. "Avenue de la Paix (fr), (en)".
func (n *Name) String() string {
	var sb strings.Builder
	if n.Text != nil {
		sb.WriteString(*n.Text)
	}

	abbrs := make([]string, 0, len(n.Languages))
	for i := range n.Languages {
		if a := n.Languages[i].Abbreviation; a != nil && *a != "" {
			abbrs = append(abbrs, "("+*a+")")
		}
	}
	if len(abbrs) > 0 {
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(strings.Join(abbrs, ", "))
	}
	return sb.String()
}
