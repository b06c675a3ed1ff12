package entities

import (
	"database/sql/driver"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"

	"github.com/diana-archive/gazetteer/internal/errors"
)

// ErrInvalidGeometry is returned when a stored geometry cannot be decoded.
var ErrInvalidGeometry = errors.NewStd("invalid geometry")

// Geometry is a nullable orb.Geometry persisted as GeoJSON text.
// The zero value is a NULL geometry.
type Geometry struct {
	orb.Geometry
}

// NewGeometry wraps g. A nil g gives a NULL geometry.
func NewGeometry(g orb.Geometry) Geometry {
	return Geometry{Geometry: g}
}

// Valid reports whether a geometry is set.
func (g Geometry) Valid() bool {
	return g.Geometry != nil
}

// Scan implements sql.Scanner.
func (g *Geometry) Scan(value any) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		g.Geometry = nil
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("%w: unsupported column type %T", ErrInvalidGeometry, value)
	}

	if len(data) == 0 {
		g.Geometry = nil
		return nil
	}

	decoded, err := geojson.UnmarshalGeometry(data)
	if err != nil {
		return fmt.Errorf("%w: decode geojson: %w", ErrInvalidGeometry, err)
	}
	g.Geometry = decoded.Geometry()
	return nil
}

// Value implements driver.Valuer.
func (g Geometry) Value() (driver.Value, error) {
	if g.Geometry == nil {
		return nil, nil
	}
	data, err := geojson.NewGeometry(g.Geometry).MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("geometry: encode geojson: %w", err)
	}
	return string(data), nil
}

// GormDataType implements schema.GormDataTypeInterface.
func (Geometry) GormDataType() string {
	return "text"
}

// GormDBDataType picks a column type large enough for city-scale polygons.
func (Geometry) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	if db.Dialector.Name() == "mysql" {
		return "LONGTEXT"
	}
	return "TEXT"
}
