package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"arthur-graph/backend/internal/batch"
	"arthur-graph/backend/internal/extract"
	"arthur-graph/backend/internal/graph"
	"arthur-graph/backend/internal/ingest"
	"arthur-graph/backend/internal/load"
	"arthur-graph/backend/pkg/config"
	"arthur-graph/backend/pkg/logger"
)

func main() {
	dir := flag.String("dir", "", "directory of clinical documents (.txt, .md, .html)")
	parallel := flag.Int("parallel", 0, "documents processed concurrently per window (default from config)")
	stampSource := flag.Bool("stamp-source", true, "stamp each node with its originating document ID")
	flag.Parse()

	if *dir == "" {
		fmt.Fprintln(os.Stderr, "usage: ingest -dir <documents-dir> [-parallel n] [-stamp-source=false]")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load configuration: %v", err))
	}

	if err := logger.Init(cfg.Env); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()

	docs, err := ingest.ReadDirectory(*dir)
	if err != nil {
		log.Fatal("Failed to read documents", zap.Error(err))
	}
	if len(docs) == 0 {
		log.Fatal("No ingestable documents found", zap.String("dir", *dir))
	}

	driver, err := neo4j.NewDriverWithContext(
		cfg.Neo4jURI,
		neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPassword, ""),
	)
	if err != nil {
		log.Fatal("Failed to create Neo4j driver", zap.Error(err))
	}
	defer driver.Close(context.Background())

	ctx := context.Background()
	if err := driver.VerifyConnectivity(ctx); err != nil {
		log.Fatal("Failed to verify Neo4j connectivity", zap.Error(err))
	}

	store := graph.NewStore(driver, cfg.Neo4jDatabase)
	extractor := extract.NewExtractor(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.ModelID)
	loader := load.NewLoader(store)
	processor := batch.NewProcessor(extractor, loader)

	workers := cfg.ExtractParallel
	if *parallel > 0 {
		workers = *parallel
	}

	report, err := processor.ProcessBatch(ctx, docs,
		batch.WithParallel(workers),
		batch.WithWindowDelay(cfg.WindowDelay),
		batch.WithSourceStamping(*stampSource),
		batch.WithProgress(func(completed, total int) {
			log.Info("Progress", zap.Int("completed", completed), zap.Int("total", total))
		}),
	)
	if err != nil {
		log.Fatal("Batch processing aborted", zap.Error(err))
	}

	fmt.Printf("Run %s: %d documents, %d entities, %d relationships, %d failed\n",
		report.RunID, report.TotalDocuments, report.TotalEntities, report.TotalRelationships, len(report.Errors))
	for _, docErr := range report.Errors {
		fmt.Printf("  FAILED %s: %s\n", docErr.DocumentID, docErr.Error)
	}

	if len(report.Errors) == report.TotalDocuments {
		os.Exit(1)
	}
}
