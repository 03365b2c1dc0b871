package graph

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"arthur-graph/backend/internal/schema"
)

// NodeSpec describes one typed node upsert. Identity is (Label, Name); the
// merge is idempotent, re-upserting the same mention updates attributes
// instead of duplicating the node.
type NodeSpec struct {
	Label          string
	Name           string
	Attributes     map[string]string
	SourceDocument string
}

// EdgeSpec describes one edge merge between two existing nodes matched by
// name. Label must already be canonical (or the fallback type); OriginalType
// carries the extractor's proposed label when the fallback applies.
type EdgeSpec struct {
	SourceName   string
	TargetName   string
	Label        string
	OriginalType string
	Attributes   map[string]string
}

// MergeNode upserts a node keyed by (label, name), merging attributes and
// stamping provenance. extractedAt is set once on creation; lastUpdated is
// refreshed on every merge.
func (s *Store) MergeNode(ctx context.Context, spec NodeSpec) error {
	if !schema.ValidEntityType(spec.Label) {
		return fmt.Errorf("invalid entity type: %q", spec.Label)
	}

	props := make(map[string]interface{}, len(spec.Attributes))
	for k, v := range spec.Attributes {
		props[k] = v
	}
	if spec.SourceDocument != "" {
		props["sourceDocument"] = spec.SourceDocument
	}

	// Label is validated against the canonical set above, so interpolation
	// cannot inject Cypher.
	cypher := fmt.Sprintf(`
		MERGE (n:`+"`%s`"+` {name: $name})
		ON CREATE SET n.extractedAt = datetime(),
		              n.extractionSource = $extractionSource
		SET n += $props,
		    n.lastUpdated = datetime()
		RETURN n.name AS name
	`, spec.Label)

	_, err := s.Write(ctx, cypher, map[string]interface{}{
		"name":             spec.Name,
		"extractionSource": schema.ExtractionSource,
		"props":            props,
	})
	return err
}

// MergeEdge merges a typed edge between two nodes matched by name, regardless
// of label. Returns false (and no error) when either endpoint does not exist:
// the MATCH clauses never create nodes as a side effect, so a dangling edge
// fails to persist rather than fabricating its endpoints.
func (s *Store) MergeEdge(ctx context.Context, spec EdgeSpec) (bool, error) {
	if s.dynamicEdgeSupport(ctx) {
		return s.mergeEdgeDynamic(ctx, spec)
	}
	return s.mergeEdgeCanonical(ctx, spec)
}

var apocProbe struct {
	once      sync.Once
	available bool
}

// dynamicEdgeSupport probes once for APOC availability and caches the answer
// for the process lifetime.
func (s *Store) dynamicEdgeSupport(ctx context.Context) bool {
	apocProbe.once.Do(func() {
		_, err := s.Read(ctx, "RETURN apoc.version() AS version", nil)
		apocProbe.available = err == nil
		s.logger.Info("Dynamic edge support probed",
			zap.Bool("apoc_available", apocProbe.available),
		)
	})
	return apocProbe.available
}

func edgeProps(spec EdgeSpec) map[string]interface{} {
	props := make(map[string]interface{}, len(spec.Attributes)+1)
	for k, v := range spec.Attributes {
		props[k] = v
	}
	if spec.OriginalType != "" {
		props["originalType"] = spec.OriginalType
	}
	return props
}

// mergeEdgeDynamic merges the edge with APOC, passing the relationship type
// as a parameter in a single call.
func (s *Store) mergeEdgeDynamic(ctx context.Context, spec EdgeSpec) (bool, error) {
	cypher := `
		MATCH (a {name: $source})
		MATCH (b {name: $target})
		WITH a, b LIMIT 1
		CALL apoc.merge.relationship(
			a, $relType, {},
			apoc.map.merge($props, {extractedAt: datetime(), extractionSource: $extractionSource}),
			b, $props
		) YIELD rel
		RETURN type(rel) AS relType
	`

	rows, err := s.Write(ctx, cypher, map[string]interface{}{
		"source":           spec.SourceName,
		"target":           spec.TargetName,
		"relType":          spec.Label,
		"props":            edgeProps(spec),
		"extractionSource": schema.ExtractionSource,
	})
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

// mergeEdgeCanonical merges the edge with plain Cypher. The relationship type
// cannot be parameterized without APOC, but Label is always drawn from the
// fixed canonical table (or the fallback type), so interpolation is safe.
func (s *Store) mergeEdgeCanonical(ctx context.Context, spec EdgeSpec) (bool, error) {
	if _, ok := schema.CanonicalRelationship(spec.Label); !ok && spec.Label != schema.RelFallback {
		return false, fmt.Errorf("refusing to merge edge with unmapped label: %q", spec.Label)
	}

	cypher := fmt.Sprintf(`
		MATCH (a {name: $source})
		MATCH (b {name: $target})
		WITH a, b LIMIT 1
		MERGE (a)-[r:`+"`%s`"+`]->(b)
		ON CREATE SET r.extractedAt = datetime(),
		              r.extractionSource = $extractionSource
		SET r += $props
		RETURN type(r) AS relType
	`, spec.Label)

	rows, err := s.Write(ctx, cypher, map[string]interface{}{
		"source":           spec.SourceName,
		"target":           spec.TargetName,
		"props":            edgeProps(spec),
		"extractionSource": schema.ExtractionSource,
	})
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}
