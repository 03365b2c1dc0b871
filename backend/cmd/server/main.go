package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"arthur-graph/backend/internal/batch"
	"arthur-graph/backend/internal/extract"
	"arthur-graph/backend/internal/gaps"
	"arthur-graph/backend/internal/graph"
	"arthur-graph/backend/internal/load"
	"arthur-graph/backend/internal/translate"
	"arthur-graph/backend/pkg/config"
	"arthur-graph/backend/pkg/logger"
)

func main() {
	// Load configuration first so the logger matches the environment
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load configuration: %v", err))
	}

	if err := logger.Init(cfg.Env); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting knowledge graph API server...")

	// The driver lifecycle is owned here, not by the components
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

	// Initialize dependencies
	store := graph.NewStore(driver, cfg.Neo4jDatabase)
	extractor := extract.NewExtractor(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.ModelID)
	loader := load.NewLoader(store)
	processor := batch.NewProcessor(extractor, loader)
	translator := translate.NewTranslator(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.ModelID, store,
		translate.WithProbeTimeout(cfg.ProbeTimeout))
	detector := gaps.NewDetector(store, cfg.GapLookbackDays)

	// Setup Gin router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(ginLogger(log))
	router.Use(gin.Recovery())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Care gap reporting
	gapsHandler := makeGapsHandler(detector, log)
	router.GET("/gaps", gapsHandler)
	router.POST("/gaps", gapsHandler)

	// API routes
	api := router.Group("/api")
	{
		// Ask a question over the knowledge graph (dashboard path: degrades
		// to a templated response when the graph is unreachable)
		api.POST("/query", func(c *gin.Context) {
			var req struct {
				Question string `json:"question" binding:"required"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}

			answer, err := translator.QueryWithFallback(c.Request.Context(), req.Question)
			if err != nil {
				log.Error("Failed to answer question", zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to answer question"})
				return
			}

			c.JSON(http.StatusOK, answer)
		})

		// Extract and load a batch of documents
		api.POST("/extract", func(c *gin.Context) {
			var req struct {
				Documents []batch.Document `json:"documents" binding:"required"`
				Parallel  int              `json:"parallel"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}

			opts := []batch.Option{batch.WithWindowDelay(cfg.WindowDelay)}
			if req.Parallel > 0 {
				opts = append(opts, batch.WithParallel(req.Parallel))
			} else {
				opts = append(opts, batch.WithParallel(cfg.ExtractParallel))
			}

			report, err := processor.ProcessBatch(c.Request.Context(), req.Documents, opts...)
			if err != nil {
				log.Error("Batch processing aborted", zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Batch processing aborted"})
				return
			}

			c.JSON(http.StatusOK, report)
		})

		// Graph introspection for the dashboard
		api.GET("/graph/stats", func(c *gin.Context) {
			stats, err := store.Stats(c.Request.Context())
			if err != nil {
				log.Error("Failed to fetch graph stats", zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch graph stats"})
				return
			}
			c.JSON(http.StatusOK, stats)
		})

		api.GET("/graph/schema", func(c *gin.Context) {
			info, err := store.Schema(c.Request.Context())
			if err != nil {
				log.Error("Failed to fetch graph schema", zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch graph schema"})
				return
			}
			c.JSON(http.StatusOK, info)
		})
	}

	// Start server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	log.Info("Server started", zap.String("port", cfg.Port))

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
}

// makeGapsHandler serves the care-gap report, optionally filtered by
// patientId, priority or gapType query parameters.
func makeGapsHandler(detector *gaps.Detector, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		var summary *gaps.Summary
		var err error
		switch {
		case c.Query("patientId") != "":
			summary, err = detector.GapsForPatient(ctx, c.Query("patientId"))
		case c.Query("priority") != "":
			summary, err = detector.GapsByPriority(ctx, c.Query("priority"))
		case c.Query("gapType") != "":
			summary, err = detector.GapsByType(ctx, c.Query("gapType"))
		default:
			summary, err = detector.DetectAllGaps(ctx)
		}

		if err != nil {
			log.Error("Gap detection failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error":   "Gap detection failed",
				"details": err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success":     true,
			"totalGaps":   summary.TotalGaps,
			"gaps":        summary.Gaps,
			"generatedAt": summary.GeneratedAt,
		})
	}
}

// ginLogger is a custom logger middleware for Gin
func ginLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		if raw != "" {
			path = path + "?" + raw
		}

		log.Info("HTTP Request",
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Duration("latency", latency),
			zap.String("ip", c.ClientIP()),
		)
	}
}
