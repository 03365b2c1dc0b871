package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// App
	Port string
	Env  string

	// Neo4j
	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword string
	Neo4jDatabase string

	// AI
	LLMBaseURL string
	LLMAPIKey  string
	ModelID    string

	// Extraction pipeline
	ExtractParallel  int           // Documents processed concurrently per batch window
	WindowDelay      time.Duration // Pause between batch windows (rate limiting)
	GapLookbackDays  int           // Default lookback window for gap detection rules
	ProbeTimeout     time.Duration // Timeout for the optional live-backend probe on the dashboard query path
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		Env:             getEnv("ENV", "development"),
		Neo4jURI:        getEnv("NEO4J_URI", "bolt://localhost:7687"),
		Neo4jUser:       getEnv("NEO4J_USER", "neo4j"),
		Neo4jPassword:   getEnv("NEO4J_PASSWORD", "password"),
		Neo4jDatabase:   getEnv("NEO4J_DATABASE", "neo4j"),
		LLMBaseURL:      getEnv("LLM_BASE_URL", "https://api.openai.com"),
		LLMAPIKey:       getEnv("LLM_API_KEY", ""),
		ModelID:         getEnv("MODEL_ID", "gpt-4o-mini"),
		ExtractParallel: getEnvInt("EXTRACT_PARALLEL", 1),
		WindowDelay:     time.Duration(getEnvInt("BATCH_WINDOW_DELAY_MS", 500)) * time.Millisecond,
		GapLookbackDays: getEnvInt("GAP_LOOKBACK_DAYS", 90),
		ProbeTimeout:    time.Duration(getEnvInt("BACKEND_PROBE_TIMEOUT_MS", 1000)) * time.Millisecond,
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set
func (c *Config) Validate() error {
	if c.Neo4jURI == "" {
		return fmt.Errorf("NEO4J_URI is required")
	}
	if c.Neo4jUser == "" {
		return fmt.Errorf("NEO4J_USER is required")
	}
	if c.Neo4jPassword == "" {
		return fmt.Errorf("NEO4J_PASSWORD is required")
	}
	if c.LLMBaseURL == "" {
		return fmt.Errorf("LLM_BASE_URL is required")
	}
	if c.ModelID == "" {
		return fmt.Errorf("MODEL_ID is required")
	}
	if c.ExtractParallel < 1 {
		return fmt.Errorf("EXTRACT_PARALLEL must be at least 1")
	}
	// LLM API key is optional when pointing at a local gateway
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}
