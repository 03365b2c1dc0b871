package graph

import (
	"context"
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"arthur-graph/backend/internal/schema"
)

// These tests require a running Neo4j instance
// Set NEO4J_URI, NEO4J_USER, NEO4J_PASSWORD environment variables
func TestStore_MergeNode_Idempotent(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	ctx := context.Background()
	store, cleanup := createTestStore(t)
	defer cleanup()

	name := "test-patient-" + time.Now().Format("20060102150405")
	defer deleteTestNode(ctx, store, name)

	spec := NodeSpec{
		Label:      schema.EntityPatient,
		Name:       name,
		Attributes: map[string]string{"mrn": "123"},
	}
	if err := store.MergeNode(ctx, spec); err != nil {
		t.Fatalf("first MergeNode failed: %v", err)
	}

	// Second upsert with an additional attribute must merge, not duplicate
	spec.Attributes = map[string]string{"mrn": "123", "gender": "F"}
	if err := store.MergeNode(ctx, spec); err != nil {
		t.Fatalf("second MergeNode failed: %v", err)
	}

	rows, err := store.Read(ctx,
		"MATCH (n:Patient {name: $name}) RETURN count(n) AS c, collect(n.mrn)[0] AS mrn, collect(n.extractionSource)[0] AS src",
		map[string]interface{}{"name": name})
	if err != nil {
		t.Fatalf("verification query failed: %v", err)
	}
	if got := int64FromRow(rows, "c"); got != 1 {
		t.Errorf("expected exactly 1 node, got %d", got)
	}
	if mrn := StringFromRow(rows[0], "mrn", ""); mrn != "123" {
		t.Errorf("expected merged mrn '123', got %q", mrn)
	}
	if src := StringFromRow(rows[0], "src", ""); src != schema.ExtractionSource {
		t.Errorf("expected provenance %q, got %q", schema.ExtractionSource, src)
	}
}

func TestStore_MergeNode_InvalidLabel(t *testing.T) {
	store := NewStore(nil, "neo4j")
	err := store.MergeNode(context.Background(), NodeSpec{Label: "Insurer", Name: "x"})
	if err == nil {
		t.Fatal("expected error for non-canonical label")
	}
}

func TestStore_MergeEdge_MissingEndpoint(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	ctx := context.Background()
	store, cleanup := createTestStore(t)
	defer cleanup()

	name := "test-orphan-" + time.Now().Format("20060102150405")
	defer deleteTestNode(ctx, store, name)

	if err := store.MergeNode(ctx, NodeSpec{Label: schema.EntityPatient, Name: name}); err != nil {
		t.Fatalf("MergeNode failed: %v", err)
	}

	created, err := store.MergeEdge(ctx, EdgeSpec{
		SourceName: name,
		TargetName: "no-such-node-" + name,
		Label:      schema.RelPrescribed,
	})
	if err != nil {
		t.Fatalf("MergeEdge returned infrastructure error: %v", err)
	}
	if created {
		t.Error("edge with missing endpoint must not be created")
	}

	// The missing endpoint must not have been created as a side effect
	rows, err := store.Read(ctx,
		"MATCH (n {name: $name}) RETURN count(n) AS c",
		map[string]interface{}{"name": "no-such-node-" + name})
	if err != nil {
		t.Fatalf("verification query failed: %v", err)
	}
	if got := int64FromRow(rows, "c"); got != 0 {
		t.Errorf("dangling endpoint was created, count=%d", got)
	}
}

func TestStore_MergeEdge_FallbackLabel(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	ctx := context.Background()
	store, cleanup := createTestStore(t)
	defer cleanup()

	stamp := time.Now().Format("20060102150405")
	src := "test-src-" + stamp
	dst := "test-dst-" + stamp
	defer deleteTestNode(ctx, store, src)
	defer deleteTestNode(ctx, store, dst)

	if err := store.MergeNode(ctx, NodeSpec{Label: schema.EntityPatient, Name: src}); err != nil {
		t.Fatalf("MergeNode failed: %v", err)
	}
	if err := store.MergeNode(ctx, NodeSpec{Label: schema.EntityMedication, Name: dst}); err != nil {
		t.Fatalf("MergeNode failed: %v", err)
	}

	created, err := store.MergeEdge(ctx, EdgeSpec{
		SourceName:   src,
		TargetName:   dst,
		Label:        schema.RelFallback,
		OriginalType: "FOO_BAR",
	})
	if err != nil {
		t.Fatalf("MergeEdge failed: %v", err)
	}
	if !created {
		t.Fatal("expected fallback edge to be created")
	}

	rows, err := store.Read(ctx,
		"MATCH ({name: $src})-[r:RELATED_TO]->({name: $dst}) RETURN r.originalType AS orig",
		map[string]interface{}{"src": src, "dst": dst})
	if err != nil {
		t.Fatalf("verification query failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 RELATED_TO edge, got %d", len(rows))
	}
	if orig := StringFromRow(rows[0], "orig", ""); orig != "FOO_BAR" {
		t.Errorf("expected originalType 'FOO_BAR', got %q", orig)
	}
}

func createTestStore(t *testing.T) (*Store, func()) {
	t.Helper()

	uri := "bolt://localhost:7687"
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth("neo4j", "password", ""))
	if err != nil {
		t.Fatalf("failed to create driver: %v", err)
	}

	ctx := context.Background()
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		t.Skipf("Neo4j not reachable at %s: %v", uri, err)
	}

	store := NewStore(driver, "neo4j")
	return store, func() { driver.Close(ctx) }
}

func deleteTestNode(ctx context.Context, store *Store, name string) {
	_, _ = store.Write(ctx, "MATCH (n {name: $name}) DETACH DELETE n", map[string]interface{}{"name": name})
}
