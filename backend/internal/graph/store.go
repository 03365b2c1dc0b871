package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	apperrors "arthur-graph/backend/pkg/errors"
	"arthur-graph/backend/pkg/logger"
)

// Store handles all Neo4j database operations. The core pipeline treats
// Cypher statements as opaque strings; this adapter is the only place that
// talks to the driver. The driver is injected so connection lifecycle stays
// with the process entry point.
type Store struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *zap.Logger
}

// NewStore creates a new graph store adapter
func NewStore(driver neo4j.DriverWithContext, database string) *Store {
	return &Store{
		driver:   driver,
		database: database,
		logger:   logger.Get(),
	}
}

// Close closes the Neo4j driver connection
func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

// Ping verifies connectivity to the graph store
func (s *Store) Ping(ctx context.Context) error {
	if err := s.driver.VerifyConnectivity(ctx); err != nil {
		return apperrors.NewGraphConnectionFailed(s.driver.Target().Host, err)
	}
	return nil
}

// Read executes a read-only Cypher statement and returns all result rows
func (s *Store) Read(ctx context.Context, cypher string, params map[string]interface{}) ([]map[string]interface{}, error) {
	return s.run(ctx, neo4j.AccessModeRead, cypher, params)
}

// Write executes a Cypher statement in a write session and returns all result rows
func (s *Store) Write(ctx context.Context, cypher string, params map[string]interface{}) ([]map[string]interface{}, error) {
	return s.run(ctx, neo4j.AccessModeWrite, cypher, params)
}

func (s *Store) run(ctx context.Context, mode neo4j.AccessMode, cypher string, params map[string]interface{}) ([]map[string]interface{}, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   mode,
		DatabaseName: s.database,
	})
	defer session.Close(ctx)

	result, err := session.Run(ctx, cypher, params)
	if err != nil {
		return nil, apperrors.NewGraphQueryFailed(cypher, err)
	}

	records, err := result.Collect(ctx)
	if err != nil {
		return nil, apperrors.NewGraphQueryFailed(cypher, err)
	}

	rows := make([]map[string]interface{}, 0, len(records))
	for _, record := range records {
		rows = append(rows, record.AsMap())
	}
	return rows, nil
}

// SchemaInfo is a live snapshot of the graph's shape, used to ground
// text-to-query translation in what actually exists rather than a static
// schema document.
type SchemaInfo struct {
	Labels            []string            `json:"labels"`
	RelationshipTypes []string            `json:"relationshipTypes"`
	SampleProperties  map[string][]string `json:"sampleProperties"`
}

// Stats summarizes the current graph contents
type Stats struct {
	NodeCount         int64    `json:"nodeCount"`
	RelationshipCount int64    `json:"relationshipCount"`
	Labels            []string `json:"labels"`
	RelationshipTypes []string `json:"relationshipTypes"`
}

/// Schema introspects the live graph: node labels, relationship types and a
// sample of property keys per label.
func (s *Store) Schema(ctx context.Context) (*SchemaInfo, error) {
	labels, err := s.collectStrings(ctx, "CALL db.labels() YIELD label RETURN label", "label")
	if err != nil {
		return nil, err
	}

	relTypes, err := s.collectStrings(ctx, "CALL db.relationshipTypes() YIELD relationshipType RETURN relationshipType", "relationshipType")
	if err != nil {
		return nil, err
	}

	info := &SchemaInfo{
		Labels:            labels,
		RelationshipTypes: relTypes,
		SampleProperties:  make(map[string][]string, len(labels)),
	}

	for _, label := range labels {
		// Label comes from db.labels(), not user input, so interpolation is safe
		cypher := fmt.Sprintf("MATCH (n:`%s`) WITH n LIMIT 25 UNWIND keys(n) AS key RETURN DISTINCT key", label)
		keys, err := s.collectStrings(ctx, cypher, "key")
		if err != nil {
			return nil, err
		}
		info.SampleProperties[label] = keys
	}

	return info, nil
}

// Stats returns node/relationship counts and type inventories
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	rows, err := s.Read(ctx, "MATCH (n) RETURN count(n) AS nodes", nil)
	if err != nil {
		return nil, err
	}
	nodeCount := int64FromRow(rows, "nodes")

	rows, err = s.Read(ctx, "MATCH ()-[r]->() RETURN count(r) AS rels", nil)
	if err != nil {
		return nil, err
	}
	relCount := int64FromRow(rows, "rels")

	info, err := s.Schema(ctx)
	if err != nil {
		return nil, err
	}

	return &Stats{
		NodeCount:         nodeCount,
		RelationshipCount: relCount,
		Labels:            info.Labels,
		RelationshipTypes: info.RelationshipTypes,
	}, nil
}

func (s *Store) collectStrings(ctx context.Context, cypher, key string) ([]string, error) {
	rows, err := s.Read(ctx, cypher, nil)
	if err != nil {
		return nil, err
	}
	values := make([]string, 0, len(rows))
	for _, row := range rows {
		if str, ok := row[key].(string); ok {
			values = append(values, str)
		}
	}
	return values, nil
}
