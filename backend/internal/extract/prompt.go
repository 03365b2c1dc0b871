package extract

import (
	"fmt"
	"strings"

	"arthur-graph/backend/internal/schema"
)

// buildSystemPrompt assembles the extraction instructions from the schema
// registry. entityTypes narrows the catalogue when the caller only wants a
// subset; nil means all six canonical types.
func buildSystemPrompt(entityTypes map[string]bool) string {
	var b strings.Builder

	b.WriteString("You are a clinical knowledge extraction engine. ")
	b.WriteString("Extract entities and relationships from the clinical text you are given.\n\n")

	b.WriteString("ENTITY TYPES:\n")
	for _, def := range schema.EntityCatalogue() {
		if entityTypes != nil && !entityTypes[def.Type] {
			continue
		}
		fmt.Fprintf(&b, "- %s: %s", def.Type, def.Description)
		if len(def.AttributeHints) > 0 {
			fmt.Fprintf(&b, " Useful attributes: %s.", strings.Join(def.AttributeHints, ", "))
		}
		b.WriteString("\n")
	}

	b.WriteString("\nRELATIONSHIP TYPES:\n")
	for _, def := range schema.RelationshipCatalogue() {
		fmt.Fprintf(&b, "- %s: %s\n", def.Type, def.Description)
	}

	b.WriteString(`
GUIDELINES:
- Extract every entity mentioned, even when the mention is incomplete.
- Prefer standard codes (ICD-10, RxNorm, CPT, NPI) when they appear in the text.
- Preserve temporal information (dates, durations) as attributes.
- When a mention is uncertain, extract it anyway and record an "uncertainty" attribute instead of omitting it.
- Relationship source and target must exactly match an extracted entity name.
- Use one of the relationship types above whenever it fits; otherwise propose a short UPPER_SNAKE_CASE label.

Respond with a single JSON object and nothing else, in exactly this shape:
{
  "entities": [{"name": "...", "type": "...", "attributes": {"key": "value"}}],
  "relationships": [{"source": "...", "target": "...", "type": "...", "attributes": {"key": "value"}}],
  "summary": "one-sentence summary of the document"
}
`)

	return b.String()
}
