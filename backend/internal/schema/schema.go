package schema

// The canonical entity/relationship catalogue is the single source of truth
// for both the extraction prompt and the graph loader's validation, so the
// two can never drift apart.

// Canonical entity types
const (
	EntityPatient    = "Patient"
	EntityDiagnosis  = "Diagnosis"
	EntityMedication = "Medication"
	EntityProvider   = "Provider"
	EntityFacility   = "Facility"
	EntityProcedure  = "Procedure"
)

// Canonical relationship types
const (
	RelHasDiagnosis = "HAS_DIAGNOSIS"
	RelPrescribed   = "PRESCRIBED"
	RelPerformed    = "PERFORMED"
	RelVisited      = "VISITED"
	RelReferredTo   = "REFERRED_TO"
	RelOrdered      = "ORDERED"
	RelTreats       = "TREATS"
	RelWorksAt      = "WORKS_AT"
	RelRequiresPA   = "REQUIRES_PA"
	RelEnrolledIn   = "ENROLLED_IN"

	// RelFallback is the generic edge type used when an extracted
	// relationship type has no canonical mapping. The original label is
	// preserved on the edge as originalType.
	RelFallback = "RELATED_TO"
)

// Provenance constants stamped on every node and edge written by the pipeline,
// distinguishing extracted data from structured ETL ingestion.
const (
	ExtractionSource = "graphrag-pipeline"
)

// EntityDefinition describes one canonical entity type for the extraction prompt
type EntityDefinition struct {
	Type           string
	Description    string
	AttributeHints []string
}

// RelationshipDefinition describes one canonical relationship type
type RelationshipDefinition struct {
	Type        string
	Description string
}

var entityCatalogue = []EntityDefinition{
	{
		Type:           EntityPatient,
		Description:    "A person receiving care. Use the full name as mentioned in the text.",
		AttributeHints: []string{"mrn", "dateOfBirth", "gender", "insurancePlan"},
	},
	{
		Type:           EntityDiagnosis,
		Description:    "A medical condition or disease. Prefer the condition name; include ICD-10 codes when present.",
		AttributeHints: []string{"icd10Code", "status", "onsetDate", "severity"},
	},
	{
		Type:           EntityMedication,
		Description:    "A drug or therapeutic substance. Include RxNorm codes, dosage and frequency when present.",
		AttributeHints: []string{"rxnormCode", "dosage", "frequency", "route"},
	},
	{
		Type:           EntityProvider,
		Description:    "A clinician: physician, nurse practitioner, specialist. Include NPI numbers and specialty when present.",
		AttributeHints: []string{"npi", "specialty", "credentials"},
	},
	{
		Type:           EntityFacility,
		Description:    "A care-delivery location: hospital, clinic, pharmacy, lab.",
		AttributeHints: []string{"facilityType", "address"},
	},
	{
		Type:           EntityProcedure,
		Description:    "A clinical procedure, test or intervention. Include CPT codes and dates when present.",
		AttributeHints: []string{"cptCode", "performedDate", "result"},
	},
}

var relationshipCatalogue = []RelationshipDefinition{
	{Type: RelHasDiagnosis, Description: "Patient has been diagnosed with a condition"},
	{Type: RelPrescribed, Description: "Patient was prescribed a medication"},
	{Type: RelPerformed, Description: "Provider or facility performed a procedure"},
	{Type: RelVisited, Description: "Patient visited a provider or facility"},
	{Type: RelReferredTo, Description: "Patient was referred to a provider or facility"},
	{Type: RelOrdered, Description: "Provider ordered a procedure or medication"},
	{Type: RelTreats, Description: "Medication or procedure treats a diagnosis"},
	{Type: RelWorksAt, Description: "Provider works at a facility"},
	{Type: RelRequiresPA, Description: "Medication or procedure requires prior authorization"},
	{Type: RelEnrolledIn, Description: "Patient is enrolled in a care program or plan"},
}

var entityTypeSet = func() map[string]bool {
	set := make(map[string]bool, len(entityCatalogue))
	for _, def := range entityCatalogue {
		set[def.Type] = true
	}
	return set
}()

var relationshipTypeSet = func() map[string]bool {
	set := make(map[string]bool, len(relationshipCatalogue))
	for _, def := range relationshipCatalogue {
		set[def.Type] = true
	}
	return set
}()

// EntityCatalogue returns the canonical entity definitions in prompt order
func EntityCatalogue() []EntityDefinition {
	return entityCatalogue
}

// RelationshipCatalogue returns the canonical relationship definitions
func RelationshipCatalogue() []RelationshipDefinition {
	return relationshipCatalogue
}

// EntityTypes returns the canonical entity type names
func EntityTypes() []string {
	types := make([]string, 0, len(entityCatalogue))
	for _, def := range entityCatalogue {
		types = append(types, def.Type)
	}
	return types
}

// RelationshipTypes returns the canonical relationship type names
func RelationshipTypes() []string {
	types := make([]string, 0, len(relationshipCatalogue))
	for _, def := range relationshipCatalogue {
		types = append(types, def.Type)
	}
	return types
}

// ValidEntityType reports whether label is one of the six canonical entity types
func ValidEntityType(label string) bool {
	return entityTypeSet[label]
}

// CanonicalRelationship maps an extracted relationship type onto the canonical
// set. Matching is case-sensitive exact match: "Has_Diagnosis" does not match
// HAS_DIAGNOSIS and falls back to RELATED_TO like any other unmapped label, so
// an unmapped type can never silently coerce into a different canonical type.
// The second return value is false when the fallback applies.
func CanonicalRelationship(relType string) (string, bool) {
	if relationshipTypeSet[relType] {
		return relType, true
	}
	return RelFallback, false
}
