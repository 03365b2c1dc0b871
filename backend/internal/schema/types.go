package schema

// Entity is a named mention extracted from clinical text, prior to graph
// persistence. Identity is (Type, Name); no surrogate ID is assigned at
// extraction time.
type Entity struct {
	Name       string            `json:"name"`
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Relationship links two extracted entities by name. Type is whatever label
// the extractor proposed; reconciliation against the canonical set happens at
// load time, not here.
type Relationship struct {
	Source     string            `json:"source"`
	Target     string            `json:"target"`
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// ExtractedKnowledge is the atomic unit of extraction output for one document
type ExtractedKnowledge struct {
	Entities      []Entity       `json:"entities"`
	Relationships []Relationship `json:"relationships"`
	Summary       string         `json:"summary,omitempty"`
}
