package search

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/diana-archive/gazetteer/internal/datastore"
	"github.com/diana-archive/gazetteer/internal/datastore/entities"
)

// placeIDColumn is the outer column the EXISTS subqueries correlate with.
const placeIDColumn = entities.TablePlaces + ".id"

// likeEscape is the LIKE escape character. '!' needs no quoting in either
// SQLite or MySQL string literals.
const likeEscape = "!"

var likeEscaper = strings.NewReplacer(likeEscape, likeEscape+likeEscape, "%", likeEscape+"%", "_", likeEscape+"_")

// containsPattern folds s and wraps it for a LIKE substring match.
// Values are folded with datastore.FoldCase, the folding LOWER applies on
// every backend.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(datastore.FoldCase(s)) + "%"
}

// textMatch returns the SQL comparison of the lowercased column with value.
func textMatch(column string, value string, mode MatchMode) (string, any) {
	if mode == MatchExact {
		return fmt.Sprintf("LOWER(%s) = ?", column), datastore.FoldCase(value)
	}
	return fmt.Sprintf("LOWER(%s) LIKE ? ESCAPE '%s'", column, likeEscape), containsPattern(value)
}

// Scope is a composable GORM query modifier over places.
type Scope = func(*gorm.DB) *gorm.DB

// fieldScope filters a direct places column by equality or membership.
func fieldScope(f FieldFilter) Scope {
	column := entities.TablePlaces + "." + f.Column
	return func(db *gorm.DB) *gorm.DB {
		if f.In {
			return db.Where(column+" IN ?", f.Values)
		}
		return db.Where(column+" = ?", f.Values[0])
	}
}

// languageExists selects places with at least one name having at least one
// language whose name or abbreviation equals value, case-insensitive.
func languageExists(placeID, value string) (string, []any) {
	v := datastore.FoldCase(value)
	sql := fmt.Sprintf(`EXISTS (SELECT 1 FROM %s n
		JOIN %s nl ON nl.name_id = n.id
		JOIN %s l ON l.id = nl.language_id
		WHERE n.place_id = %s AND (LOWER(l.name) = ? OR LOWER(l.abbreviation) = ?))`,
		entities.TableNames, entities.TableNameLanguages, entities.TableLanguages, placeID)
	return sql, []any{v, v}
}

// periodExists selects places with at least one name whose period text matches.
func periodExists(placeID, value string, mode MatchMode) (string, []any) {
	cond, arg := textMatch("pe.text", value, mode)
	sql := fmt.Sprintf(`EXISTS (SELECT 1 FROM %s n
		JOIN %s pe ON pe.id = n.period_id
		WHERE n.place_id = %s AND %s)`,
		entities.TableNames, entities.TablePeriods, placeID, cond)
	return sql, []any{arg}
}

// placeTypeMatches selects places whose type text matches.
func placeTypeMatches(placeTypeID, value string, mode MatchMode) (string, []any) {
	cond, arg := textMatch("pt.text", value, mode)
	sql := fmt.Sprintf(`EXISTS (SELECT 1 FROM %s pt WHERE pt.id = %s AND %s)`,
		entities.TablePlaceTypes, placeTypeID, cond)
	return sql, []any{arg}
}

// informantEvidence lists the evidence kinds the informant criterion searches
// when no evidence kind is selected.
var informantEvidence = []struct {
	table, join string
}{
	{entities.TableTextEvidence, entities.TableTextEvidenceInformants},
	{entities.TableDocumentEvidence, entities.TableDocumentEvidenceInformants},
}

// informantOnEvidence is the predicate on one evidence row (alias ev) having
// an informant whose custom id contains value.
func informantOnEvidence(join, evidenceID, value string) (string, []any) {
	sql := fmt.Sprintf(`EXISTS (SELECT 1 FROM %s ei
		JOIN %s i ON i.id = ei.informant_id
		WHERE ei.evidence_id = %s AND LOWER(i.custom_id) LIKE ? ESCAPE '%s')`,
		join, entities.TableInformants, evidenceID, likeEscape)
	return sql, []any{containsPattern(value)}
}

// informantExists selects places with text or document evidence attested by
// a matching informant.
func informantExists(placeID, value string) (string, []any) {
	clauses := make([]string, 0, len(informantEvidence))
	var args []any
	for _, ev := range informantEvidence {
		inner, innerArgs := informantOnEvidence(ev.join, "ev.id", value)
		clauses = append(clauses, fmt.Sprintf(`EXISTS (SELECT 1 FROM %s ev WHERE ev.place_id = %s AND %s)`,
			ev.table, placeID, inner))
		args = append(args, innerArgs...)
	}
	return "(" + strings.Join(clauses, " OR ") + ")", args
}

// namesExist selects places with at least one name.
func namesExist(placeID string) string {
	return fmt.Sprintf(`EXISTS (SELECT 1 FROM %s n WHERE n.place_id = %s)`, entities.TableNames, placeID)
}

// nameTextContains selects places with a name whose text contains value.
func nameTextContains(placeID, value string) (string, []any) {
	sql := fmt.Sprintf(`EXISTS (SELECT 1 FROM %s n WHERE n.place_id = %s AND LOWER(n.text) LIKE ? ESCAPE '%s')`,
		entities.TableNames, placeID, likeEscape)
	return sql, []any{containsPattern(value)}
}

func whereScope(sql string, args []any) Scope {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(sql, args...)
	}
}

// BuildScopes translates criteria into scopes over the places table.
// Scopes combine with AND. The queries use EXISTS subqueries only, so the
// outer query never fans out and needs no DISTINCT.
func BuildScopes(c Criteria, mode MatchMode) []Scope {
	scopes := make([]Scope, 0, c.Count())

	for _, f := range c.Fields {
		scopes = append(scopes, fieldScope(f))
	}
	if c.Language != nil {
		scopes = append(scopes, whereScope(languageExists(placeIDColumn, *c.Language)))
	}
	if c.Period != nil {
		scopes = append(scopes, whereScope(periodExists(placeIDColumn, *c.Period, mode)))
	}
	if c.PlaceType != nil {
		scopes = append(scopes, whereScope(placeTypeMatches(entities.TablePlaces+".place_type_id", *c.PlaceType, mode)))
	}
	if c.Informant != nil {
		scopes = append(scopes, whereScope(informantExists(placeIDColumn, *c.Informant)))
	}
	if c.HasNoName != nil {
		sql := namesExist(placeIDColumn)
		if *c.HasNoName {
			sql = "NOT " + sql
		}
		scopes = append(scopes, whereScope(sql, nil))
	}

	return scopes
}

// FreeTextScope requires a name containing text.
func FreeTextScope(text string) Scope {
	return whereScope(nameTextContains(placeIDColumn, text))
}
