package load

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"arthur-graph/backend/internal/graph"
	"arthur-graph/backend/internal/schema"
	"arthur-graph/backend/pkg/logger"
)

// Store is the slice of the graph adapter the loader needs
type Store interface {
	MergeNode(ctx context.Context, spec graph.NodeSpec) error
	MergeEdge(ctx context.Context, spec graph.EdgeSpec) (bool, error)
}

// Loader persists extracted knowledge records into the graph store, handling
// type validation, deduplication by (type, name) identity and relationship
// type fallback.
type Loader struct {
	store  Store
	logger *zap.Logger
}

// NewLoader creates a new graph loader
func NewLoader(store Store) *Loader {
	return &Loader{
		store:  store,
		logger: logger.Get(),
	}
}

// Result reports one load call. Per-item failures land in Errors; the call
// itself only fails on infrastructure errors.
type Result struct {
	EntitiesCreated      int      `json:"entitiesCreated"`
	RelationshipsCreated int      `json:"relationshipsCreated"`
	Errors               []string `json:"errors"`
}

// Option configures a single load call
type Option func(*options)

type options struct {
	sourceDocument string
}

// WithSourceDocument stamps the originating document identifier onto every
// node written by this call.
func WithSourceDocument(id string) Option {
	return func(o *options) {
		o.sourceDocument = id
	}
}

// Load persists one knowledge record. Entities are upserted before
// relationships so every edge's endpoints exist by the time the edge is
// merged; this ordering is a correctness requirement. Each item is attempted
// independently: one malformed relationship must not discard an otherwise
// valid batch of entities.
func (l *Loader) Load(ctx context.Context, knowledge *schema.ExtractedKnowledge, opts ...Option) (*Result, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	result := &Result{Errors: []string{}}
	if knowledge == nil {
		return result, nil
	}

	for _, entity := range knowledge.Entities {
		if !schema.ValidEntityType(entity.Type) {
			result.Errors = append(result.Errors,
				fmt.Sprintf("entity %q: invalid type %q, expected one of %v", entity.Name, entity.Type, schema.EntityTypes()))
			continue
		}

		err := l.store.MergeNode(ctx, graph.NodeSpec{
			Label:          entity.Type,
			Name:           entity.Name,
			Attributes:     entity.Attributes,
			SourceDocument: o.sourceDocument,
		})
		if err != nil {
			// Store-level failures are infrastructure problems, not bad items
			return result, err
		}
		result.EntitiesCreated++
	}

	for _, rel := range knowledge.Relationships {
		label, canonical := schema.CanonicalRelationship(rel.Type)

		spec := graph.EdgeSpec{
			SourceName: rel.Source,
			TargetName: rel.Target,
			Label:      label,
			Attributes: rel.Attributes,
		}
		if !canonical {
			spec.OriginalType = rel.Type
		}

		created, err := l.store.MergeEdge(ctx, spec)
		if err != nil {
			return result, err
		}
		if !created {
			result.Errors = append(result.Errors,
				fmt.Sprintf("relationship %s-[%s]->%s: source or target node not found", rel.Source, rel.Type, rel.Target))
			continue
		}
		result.RelationshipsCreated++
	}

	l.logger.Debug("Knowledge record loaded",
		zap.Int("entities", result.EntitiesCreated),
		zap.Int("relationships", result.RelationshipsCreated),
		zap.Int("item_errors", len(result.Errors)),
		zap.String("source_document", o.sourceDocument),
	)

	return result, nil
}
