package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"arthur-graph/backend/internal/graph"
	apperrors "arthur-graph/backend/pkg/errors"
	"arthur-graph/backend/pkg/logger"
)

// Store is the slice of the graph adapter the translator needs
type Store interface {
	Read(ctx context.Context, cypher string, params map[string]interface{}) ([]map[string]interface{}, error)
	Schema(ctx context.Context) (*graph.SchemaInfo, error)
	Ping(ctx context.Context) error
}

// Translator converts natural-language questions into Cypher against the live
// graph schema, executes them, and produces natural-language answers. The raw
// query is always returned alongside the answer: on clinical and financial
// data every answer must be traceable to the exact query that produced it.
type Translator struct {
	client       *openai.Client
	model        string
	store        Store
	probeTimeout time.Duration
	logger       *zap.Logger
}

// Option configures the translator
type Option func(*Translator)

// WithProbeTimeout sets the timeout for the optional live-backend probe used
// by the dashboard fallback path (default 1s).
func WithProbeTimeout(d time.Duration) Option {
	return func(t *Translator) {
		if d > 0 {
			t.probeTimeout = d
		}
	}
}

// NewTranslator creates a new text-to-query translator
func NewTranslator(baseURL, apiKey, modelID string, store Store, opts ...Option) *Translator {
	if apiKey == "" {
		apiKey = "dummy-key"
	}
	config := openai.DefaultConfig(apiKey)
	config.BaseURL = baseURL + "/v1"

	t := &Translator{
		client:       openai.NewClientWithConfig(config),
		model:        modelID,
		store:        store,
		probeTimeout: time.Second,
		logger:       logger.Get(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Answer is the result of one translated query
type Answer struct {
	Answer      string `json:"answer"`
	CypherQuery string `json:"cypherQuery,omitempty"`
	Fallback    bool   `json:"fallback,omitempty"`
}

type generatedQuery struct {
	Cypher      string `json:"cypher"`
	Explanation string `json:"explanation"`
}

// Query answers a natural-language question over the graph. The generated
// query gets at most one regeneration attempt when execution fails; after
// that the failure surfaces as ErrTranslationFailed with the offending query
// attached. There is no silent fallback on this path.
func (t *Translator) Query(ctx context.Context, question string) (*Answer, error) {
	schemaInfo, err := t.store.Schema(ctx)
	if err != nil {
		return nil, apperrors.NewTranslationFailed(question, "", err)
	}

	gen, err := t.generateQuery(ctx, question, schemaInfo, "", nil)
	if err != nil {
		return nil, apperrors.NewTranslationFailed(question, "", err)
	}

	rows, execErr := t.execute(ctx, gen.Cypher)
	if execErr != nil {
		// One bounded regeneration attempt, feeding the failure back
		regen, err := t.generateQuery(ctx, question, schemaInfo, gen.Cypher, execErr)
		if err != nil {
			return nil, apperrors.NewTranslationFailed(question, gen.Cypher, err)
		}
		gen = regen
		rows, execErr = t.execute(ctx, gen.Cypher)
		if execErr != nil {
			return nil, apperrors.NewTranslationFailed(question, gen.Cypher, execErr)
		}
	}

	answer, err := t.summarize(ctx, question, gen, rows)
	if err != nil {
		return nil, apperrors.NewTranslationFailed(question, gen.Cypher, err)
	}

	t.logger.Debug("Question answered",
		zap.String("question", question),
		zap.String("cypher", gen.Cypher),
		zap.Int("rows", len(rows)),
	)

	return &Answer{Answer: answer, CypherQuery: gen.Cypher}, nil
}

// QueryWithFallback is the dashboard-facing path: it probes the store first
// and degrades to a templated response when the optional live backend is not
// reachable within the probe timeout. The fallback is flagged explicitly so
// it can never be mistaken for a grounded answer.
func (t *Translator) QueryWithFallback(ctx context.Context, question string) (*Answer, error) {
	probeCtx, cancel := context.WithTimeout(ctx, t.probeTimeout)
	defer cancel()

	if err := t.store.Ping(probeCtx); err != nil {
		t.logger.Warn("Knowledge graph unreachable, returning templated response",
			zap.Error(err),
			zap.Duration("probe_timeout", t.probeTimeout),
		)
		return &Answer{
			Answer:   "The knowledge graph is currently unavailable, so this question cannot be answered from live data. Please retry shortly or contact your care-operations administrator.",
			Fallback: true,
		}, nil
	}

	return t.Query(ctx, question)
}

func (t *Translator) generateQuery(ctx context.Context, question string, schemaInfo *graph.SchemaInfo, failedQuery string, failure error) (*generatedQuery, error) {
	prompt := buildGenerationPrompt(schemaInfo)

	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: prompt},
		{Role: openai.ChatMessageRoleUser, Content: question},
	}
	if failedQuery != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: fmt.Sprintf("The previous query failed. Query:\n%s\nError: %v\nGenerate a corrected query.", failedQuery, failure),
		})
	}

	resp, err := t.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       t.model,
		Messages:    messages,
		Temperature: 1e-8,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, apperrors.ErrModelEmptyResponse
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var gen generatedQuery
	if err := json.Unmarshal([]byte(content), &gen); err != nil {
		return nil, fmt.Errorf("model did not return a query object: %w", err)
	}
	if strings.TrimSpace(gen.Cypher) == "" {
		return nil, fmt.Errorf("model returned an empty query")
	}
	return &gen, nil
}

var writeClausePattern = regexp.MustCompile(`(?i)\b(CREATE|MERGE|DELETE|DETACH|SET|REMOVE|DROP|FOREACH)\b|\bLOAD\s+CSV\b`)

func (t *Translator) execute(ctx context.Context, cypher string) ([]map[string]interface{}, error) {
	// Generated queries are read-only by contract; a mutating clause means
	// the model ignored its instructions.
	if writeClausePattern.MatchString(cypher) {
		return nil, fmt.Errorf("generated query contains a write clause")
	}
	return t.store.Read(ctx, cypher, nil)
}

func (t *Translator) summarize(ctx context.Context, question string, gen *generatedQuery, rows []map[string]interface{}) (string, error) {
	if len(rows) == 0 {
		return "No matching records were found in the knowledge graph for this question.", nil
	}

	// Keep the summarization context bounded
	sample := rows
	if len(sample) > 50 {
		sample = sample[:50]
	}
	rowsJSON, err := json.Marshal(sample)
	if err != nil {
		return "", err
	}

	resp, err := t.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: t.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleSystem,
				Content: "You summarize query results from a healthcare knowledge graph. " +
					"Answer the user's question in plain language using only the rows provided. " +
					"Do not invent data that is not in the rows.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf("Question: %s\nExpected result shape: %s\nRows (%d total, showing %d): %s", question, gen.Explanation, len(rows), len(sample), rowsJSON),
			},
		},
		Temperature: 1e-8,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", apperrors.ErrModelEmptyResponse
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func buildGenerationPrompt(schemaInfo *graph.SchemaInfo) string {
	var b strings.Builder
	b.WriteString("You translate natural-language questions into a single read-only Cypher query over a healthcare knowledge graph.\n\n")

	b.WriteString("NODE LABELS: ")
	b.WriteString(strings.Join(schemaInfo.Labels, ", "))
	b.WriteString("\nRELATIONSHIP TYPES: ")
	b.WriteString(strings.Join(schemaInfo.RelationshipTypes, ", "))
	b.WriteString("\nPROPERTIES PER LABEL:\n")
	for _, label := range schemaInfo.Labels {
		if props := schemaInfo.SampleProperties[label]; len(props) > 0 {
			fmt.Fprintf(&b, "- %s: %s\n", label, strings.Join(props, ", "))
		}
	}

	b.WriteString(`
RULES:
- Use only the labels, relationship types and properties listed above.
- The query must be read-only: MATCH/OPTIONAL MATCH/WHERE/RETURN/ORDER BY/LIMIT only.
- Nodes are keyed by their "name" property.
- Limit results to at most 100 rows.

Respond with a single JSON object and nothing else:
{"cypher": "the query", "explanation": "one sentence describing the expected result shape"}
`)
	return b.String()
}
