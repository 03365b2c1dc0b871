package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"arthur-graph/backend/internal/schema"
	apperrors "arthur-graph/backend/pkg/errors"
	"arthur-graph/backend/pkg/logger"
)

// Extractor converts free-text clinical documents into structured knowledge
// records by prompting a structured-output-capable model against the schema
// registry's catalogue. It performs no graph writes.
type Extractor struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewExtractor creates a new extractor against an OpenAI-compatible endpoint
func NewExtractor(baseURL, apiKey, modelID string) *Extractor {
	// Local gateways accept any key
	if apiKey == "" {
		apiKey = "dummy-key"
	}

	config := openai.DefaultConfig(apiKey)
	config.BaseURL = baseURL + "/v1"

	return &Extractor{
		client: openai.NewClientWithConfig(config),
		model:  modelID,
		logger: logger.Get(),
	}
}

// Option configures a single extraction call
type Option func(*options)

type options struct {
	entityTypes map[string]bool
}

// WithEntityTypes restricts extraction to a subset of the canonical entity types
func WithEntityTypes(types ...string) Option {
	return func(o *options) {
		o.entityTypes = make(map[string]bool, len(types))
		for _, t := range types {
			o.entityTypes[t] = true
		}
	}
}

// Extract runs one extraction call over a single document. The model is
// invoked at its most deterministic setting because downstream deduplication
// assumes stable entity naming across re-runs of the same input. Any model or
// parse failure surfaces as ErrExtractionFailed; there are no partial results.
func (e *Extractor) Extract(ctx context.Context, text string, opts ...Option) (*schema.ExtractedKnowledge, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if strings.TrimSpace(text) == "" {
		return nil, apperrors.NewExtractionFailed(e.model, fmt.Errorf("empty document text"))
	}

	req := openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: buildSystemPrompt(o.entityTypes),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: text,
			},
		},
		// An exact zero is dropped by the client's omitempty encoding and the
		// server default applies instead, so the smallest encodable value
		// stands in for zero.
		Temperature: 1e-8,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	resp, err := e.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, apperrors.NewExtractionFailed(e.model, err)
	}
	if len(resp.Choices) == 0 {
		return nil, apperrors.NewExtractionFailed(e.model, apperrors.ErrModelEmptyResponse)
	}

	knowledge, err := parseKnowledge(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, apperrors.NewExtractionFailed(e.model, err)
	}

	e.logger.Debug("Extraction complete",
		zap.String("model", e.model),
		zap.Int("entities", len(knowledge.Entities)),
		zap.Int("relationships", len(knowledge.Relationships)),
	)

	return knowledge, nil
}

// parseKnowledge parses model output strictly against the ExtractedKnowledge
// schema. A partially parsed record risks silently dropping clinically
// relevant entities, so any deviation is a hard failure.
func parseKnowledge(content string) (*schema.ExtractedKnowledge, error) {
	content = strings.TrimSpace(content)
	// Some gateways wrap JSON mode output in a markdown fence
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	decoder := json.NewDecoder(bytes.NewReader([]byte(content)))
	decoder.DisallowUnknownFields()

	var knowledge schema.ExtractedKnowledge
	if err := decoder.Decode(&knowledge); err != nil {
		return nil, fmt.Errorf("output does not conform to knowledge schema: %w", err)
	}

	if knowledge.Entities == nil {
		return nil, fmt.Errorf("output missing entities field")
	}
	for i, ent := range knowledge.Entities {
		if ent.Name == "" || ent.Type == "" {
			return nil, fmt.Errorf("entity %d missing name or type", i)
		}
	}
	for i, rel := range knowledge.Relationships {
		if rel.Source == "" || rel.Target == "" || rel.Type == "" {
			return nil, fmt.Errorf("relationship %d missing source, target or type", i)
		}
	}

	return &knowledge, nil
}
