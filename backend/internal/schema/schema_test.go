package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidEntityType(t *testing.T) {
	for _, label := range []string{"Patient", "Diagnosis", "Medication", "Provider", "Facility", "Procedure"} {
		assert.True(t, ValidEntityType(label), "expected %s to be canonical", label)
	}

	assert.False(t, ValidEntityType("patient"), "entity types are case-sensitive")
	assert.False(t, ValidEntityType("Insurer"))
	assert.False(t, ValidEntityType(""))
}

func TestCanonicalRelationship_ExactMatch(t *testing.T) {
	for _, relType := range RelationshipTypes() {
		mapped, ok := CanonicalRelationship(relType)
		assert.True(t, ok)
		assert.Equal(t, relType, mapped)
	}
}

func TestCanonicalRelationship_Fallback(t *testing.T) {
	tests := []struct {
		name    string
		relType string
	}{
		{"unknown label", "FOO_BAR"},
		{"case mismatch", "Has_Diagnosis"},
		{"lowercase", "prescribed"},
		{"empty", ""},
		{"near miss", "HAS_DIAGNOSES"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mapped, ok := CanonicalRelationship(tt.relType)
			assert.False(t, ok)
			assert.Equal(t, RelFallback, mapped)
		})
	}
}

func TestCatalogueConsistency(t *testing.T) {
	assert.Len(t, EntityTypes(), 6)
	assert.Len(t, RelationshipTypes(), 10)

	// Every catalogue entry must validate against its own registry
	for _, def := range EntityCatalogue() {
		assert.True(t, ValidEntityType(def.Type))
		assert.NotEmpty(t, def.Description)
	}
	for _, def := range RelationshipCatalogue() {
		_, ok := CanonicalRelationship(def.Type)
		assert.True(t, ok)
		assert.NotEmpty(t, def.Description)
	}

	// The fallback type is deliberately not part of the canonical set
	assert.NotContains(t, RelationshipTypes(), RelFallback)
}
