package entities

// Table name constants, shared by the repositories and the search scopes
// that write raw EXISTS subqueries.
const (
	TablePlaces     = "places"
	TableNames      = "names"
	TableLanguages  = "languages"
	TablePeriods    = "periods"
	TablePlaceTypes = "place_types"
	TableInformants = "informants"
	TableAuthors    = "authors"

	TableImageEvidence    = "image_evidence"
	TableTextEvidence     = "text_evidence"
	TableDocumentEvidence = "document_evidence"

	// Join tables
	TableNameLanguages              = "name_languages"
	TableNameInformants             = "name_informants"
	TableImageEvidenceAuthors       = "image_evidence_authors"
	TableImageEvidenceInformants    = "image_evidence_informants"
	TableTextEvidenceAuthors        = "text_evidence_authors"
	TableTextEvidenceInformants     = "text_evidence_informants"
	TableDocumentEvidenceAuthors    = "document_evidence_authors"
	TableDocumentEvidenceInformants = "document_evidence_informants"
)

// All returns every model in migration order.
func All() []any {
	return []any{
		&Language{},
		&Period{},
		&PlaceType{},
		&Informant{},
		&Author{},
		&Place{},
		&Name{},
		&ImageEvidence{},
		&TextEvidence{},
		&DocumentEvidence{},
	}
}
