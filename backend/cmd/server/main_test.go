package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arthur-graph/backend/internal/gaps"
	"arthur-graph/backend/pkg/logger"
)

type stubGapStore struct {
	rows []map[string]interface{}
}

func (s *stubGapStore) Read(ctx context.Context, cypher string, params map[string]interface{}) ([]map[string]interface{}, error) {
	return s.rows, nil
}

func TestHealthEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/health", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var response map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Equal(t, "ok", response["status"])
}

func TestGapsEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)

	detector := gaps.NewDetector(&stubGapStore{rows: []map[string]interface{}{
		{"patient": "John Smith", "diagnosis": "Type 2 Diabetes"},
	}}, 90)

	router := gin.New()
	handler := makeGapsHandler(detector, logger.Get())
	router.GET("/gaps", handler)
	router.POST("/gaps", handler)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/gaps", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Success     bool              `json:"success"`
		TotalGaps   int               `json:"totalGaps"`
		Gaps        []gaps.GroupResult `json:"gaps"`
		GeneratedAt string            `json:"generatedAt"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.True(t, response.Success)
	assert.Equal(t, len(gaps.Definitions()), response.TotalGaps, "stub returns one row per rule")
	assert.Len(t, response.Gaps, len(gaps.Definitions()))
	assert.NotEmpty(t, response.GeneratedAt)
}

func TestGapsEndpoint_UnknownPriority(t *testing.T) {
	gin.SetMode(gin.TestMode)

	detector := gaps.NewDetector(&stubGapStore{}, 90)
	router := gin.New()
	router.GET("/gaps", makeGapsHandler(detector, logger.Get()))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/gaps?priority=urgent", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, false, response["success"])
	assert.NotEmpty(t, response["error"])
}

func TestQueryEndpoint_InvalidRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	// Mock endpoint mirroring the binding contract
	router.POST("/api/query", func(c *gin.Context) {
		var req struct {
			Question string `json:"question" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"answer": "response"})
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/query", bytes.NewBuffer([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExtractEndpoint_InvalidRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	router.POST("/api/extract", func(c *gin.Context) {
		var req struct {
			Documents []struct {
				ID   string `json:"id"`
				Text string `json:"text"`
			} `json:"documents" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"totalDocuments": len(req.Documents)})
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/extract", bytes.NewBuffer([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
