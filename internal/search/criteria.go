package search

import (
	"maps"
	"slices"
	"strconv"
	"strings"
)

// MatchMode selects how text criteria (period, place type) compare.
type MatchMode int

const (
	// MatchSubstring is a case-insensitive substring match. It is the default.
	MatchSubstring MatchMode = iota
	// MatchExact is a case-insensitive equality match, kept for legacy clients.
	MatchExact
)

func (m MatchMode) String() string {
	if m == MatchExact {
		return "exact"
	}
	return "substring"
}

// criterionKind tells the filter builder which predicate a key produces.
type criterionKind int

const (
	kindField     criterionKind = iota // direct column of places
	kindLanguage                       // name -> language name or abbreviation, exact
	kindPeriod                         // name -> period text, per MatchMode
	kindPlaceType                      // place type text, per MatchMode
	kindInformant                      // text/document evidence informant custom id, substring
	kindHasNoName                      // zero names
)

// valueType is the coercion applied to a raw value.
type valueType int

const (
	valueUint valueType = iota
	valueBool
	valueText
)

type criterionDef struct {
	kind   criterionKind
	column string // for kindField
	value  valueType
	in     bool // key is the __in variant
	alias  string
}

// inSuffix marks the set membership variant of a direct field criterion.
const inSuffix = "__in"

// directFields are the stored place columns filterable by equality and by set membership.
var directFields = []struct {
	key   string
	value valueType
}{
	{"id", valueUint},
	{"place_type_id", valueUint},
	{"corrected", valueBool},
	{"is_iconic", valueBool},
	{"is_existing", valueBool},
	{"is_private", valueBool},
	{"description", valueText},
	{"comment", valueText},
}

// criteriaTable is the full list of recognized criterion keys.
var criteriaTable = buildCriteriaTable()

func buildCriteriaTable() map[string]criterionDef {
	t := map[string]criterionDef{
		"language":    {kind: kindLanguage, value: valueText},
		"period_name": {kind: kindPeriod, value: valueText},
		"time":        {kind: kindPeriod, value: valueText, alias: "period_name"},
		"place_type":  {kind: kindPlaceType, value: valueText},
		"text":        {kind: kindPlaceType, value: valueText, alias: "place_type"},
		"informant":   {kind: kindInformant, value: valueText},
		"has_no_name": {kind: kindHasNoName, value: valueBool},
	}
	for _, f := range directFields {
		t[f.key] = criterionDef{kind: kindField, column: f.key, value: f.value}
		t[f.key+inSuffix] = criterionDef{kind: kindField, column: f.key, value: f.value, in: true}
	}
	return t
}

// IsCriterion reports whether key is a recognized criterion name.
func IsCriterion(key string) bool {
	_, ok := criteriaTable[key]
	return ok
}

// CriterionKeys returns all recognized criterion names, sorted.
func CriterionKeys() []string {
	return slices.Sorted(maps.Keys(criteriaTable))
}

// FieldFilter is an equality or set membership test on a places column.
type FieldFilter struct {
	Column string
	Values []any
	In     bool
}

// Criteria is a validated set of filter criteria. Nil fields are unconstrained.
type Criteria struct {
	Fields    []FieldFilter
	Language  *string
	Period    *string
	PlaceType *string
	Informant *string
	HasNoName *bool
}

// Count returns the number of active criteria.
func (c Criteria) Count() int {
	n := len(c.Fields)
	for _, set := range []bool{c.Language != nil, c.Period != nil, c.PlaceType != nil, c.Informant != nil, c.HasNoName != nil} {
		if set {
			n++
		}
	}
	return n
}

// IsEmpty reports whether no criterion is set.
func (c Criteria) IsEmpty() bool {
	return c.Count() == 0
}

// withoutInformant returns a copy with the informant criterion removed.
func (c Criteria) withoutInformant() Criteria {
	c.Informant = nil
	return c
}

// Parse validates raw criteria. Keys are processed in sorted order so the
// same input always produces the same Criteria and the same first error.
func Parse(raw map[string]string) (Criteria, error) {
	var c Criteria

	for _, key := range slices.Sorted(maps.Keys(raw)) {
		value := strings.TrimSpace(raw[key])

		def, ok := criteriaTable[key]
		if !ok {
			return Criteria{}, invalidKey(key)
		}
		if value == "" {
			return Criteria{}, missingParameter(key, "value is empty")
		}
		if def.alias != "" {
			if other, dup := raw[def.alias]; dup && strings.TrimSpace(other) != value {
				return Criteria{}, invalidValue(key, value, "conflicts with "+def.alias)
			}
		}

		switch def.kind {
		case kindField:
			ff, err := parseField(key, value, def)
			if err != nil {
				return Criteria{}, err
			}
			c.Fields = append(c.Fields, ff)
		case kindLanguage:
			c.Language = &value
		case kindPeriod:
			c.Period = &value
		case kindPlaceType:
			c.PlaceType = &value
		case kindInformant:
			c.Informant = &value
		case kindHasNoName:
			b, err := parseBool(value)
			if err != nil {
				return Criteria{}, invalidValue(key, value, "expected a boolean")
			}
			c.HasNoName = &b
		}
	}

	return c, nil
}

func parseField(key, value string, def criterionDef) (FieldFilter, error) {
	raws := []string{value}
	if def.in {
		raws = raws[:0]
		for part := range strings.SplitSeq(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				raws = append(raws, part)
			}
		}
		if len(raws) == 0 {
			return FieldFilter{}, missingParameter(key, "no values in list")
		}
	}

	values := make([]any, 0, len(raws))
	for _, r := range raws {
		v, err := coerce(r, def.value)
		if err != nil {
			return FieldFilter{}, invalidValue(key, r, err.Error())
		}
		values = append(values, v)
	}

	return FieldFilter{Column: def.column, Values: values, In: def.in}, nil
}

func coerce(raw string, vt valueType) (any, error) {
	switch vt {
	case valueUint:
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return nil, errExpectedInteger
		}
		return uint(n), nil
	case valueBool:
		b, err := parseBool(raw)
		if err != nil {
			return nil, errExpectedBoolean
		}
		return b, nil
	default:
		return raw, nil
	}
}

var (
	errExpectedInteger = coercionError("expected a non-negative integer")
	errExpectedBoolean = coercionError("expected a boolean")
)

type coercionError string

func (e coercionError) Error() string { return string(e) }

// parseBool accepts the strconv forms plus yes/no.
func parseBool(raw string) (bool, error) {
	switch strings.ToLower(raw) {
	case "yes", "y", "on":
		return true, nil
	case "no", "n", "off":
		return false, nil
	}
	return strconv.ParseBool(raw)
}
