package extract

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newMockLLM returns an httptest server speaking the chat-completions wire
// format, answering every request with the given message content.
func newMockLLM(t *testing.T, status int, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)

		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req["model"])

		if status != http.StatusOK {
			w.WriteHeader(status)
			w.Write([]byte(`{"error": {"message": "upstream failure"}}`))
			return
		}

		resp := map[string]interface{}{
			"id":      "chatcmpl-test",
			"object":  "chat.completion",
			"model":   "test-model",
			"choices": []map[string]interface{}{
				{
					"index":         0,
					"finish_reason": "stop",
					"message": map[string]interface{}{
						"role":    "assistant",
						"content": content,
					},
				},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestExtract_Success(t *testing.T) {
	output := `{
		"entities": [
			{"name": "John Smith", "type": "Patient", "attributes": {}},
			{"name": "Metformin", "type": "Medication", "attributes": {"dosage": "500mg"}},
			{"name": "Dr. Chen", "type": "Provider", "attributes": {}}
		],
		"relationships": [
			{"source": "John Smith", "target": "Metformin", "type": "PRESCRIBED"}
		],
		"summary": "Metformin prescription for John Smith."
	}`
	server := newMockLLM(t, http.StatusOK, output)
	defer server.Close()

	extractor := NewExtractor(server.URL, "test-key", "test-model")
	knowledge, err := extractor.Extract(context.Background(), "Patient John Smith was prescribed Metformin by Dr. Chen.")
	require.NoError(t, err)

	require.Len(t, knowledge.Entities, 3)
	assert.Equal(t, "John Smith", knowledge.Entities[0].Name)
	assert.Equal(t, "Patient", knowledge.Entities[0].Type)
	assert.Equal(t, "500mg", knowledge.Entities[1].Attributes["dosage"])

	require.Len(t, knowledge.Relationships, 1)
	assert.Equal(t, "PRESCRIBED", knowledge.Relationships[0].Type)
	assert.Equal(t, "John Smith", knowledge.Relationships[0].Source)
	assert.Equal(t, "Metformin", knowledge.Relationships[0].Target)
	assert.NotEmpty(t, knowledge.Summary)
}

func TestExtract_ModelError(t *testing.T) {
	server := newMockLLM(t, http.StatusInternalServerError, "")
	defer server.Close()

	extractor := NewExtractor(server.URL, "test-key", "test-model")
	_, err := extractor.Extract(context.Background(), "some clinical text")
	require.Error(t, err)
}

func TestExtract_MalformedOutput(t *testing.T) {
	server := newMockLLM(t, http.StatusOK, "I found a patient named John Smith.")
	defer server.Close()

	extractor := NewExtractor(server.URL, "test-key", "test-model")
	_, err := extractor.Extract(context.Background(), "some clinical text")
	require.Error(t, err, "non-JSON output must fail, never a best-effort partial result")
}

func TestExtract_EmptyText(t *testing.T) {
	extractor := NewExtractor("http://localhost:0", "test-key", "test-model")
	_, err := extractor.Extract(context.Background(), "   ")
	require.Error(t, err)
}

func TestParseKnowledge(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr bool
	}{
		{
			name:    "valid minimal",
			content: `{"entities": [], "relationships": []}`,
			wantErr: false,
		},
		{
			name:    "markdown fenced",
			content: "```json\n{\"entities\": [{\"name\": \"A\", \"type\": \"Patient\"}], \"relationships\": []}\n```",
			wantErr: false,
		},
		{
			name:    "missing entities field",
			content: `{"relationships": []}`,
			wantErr: true,
		},
		{
			name:    "unknown field",
			content: `{"entities": [], "relationships": [], "nodes": []}`,
			wantErr: true,
		},
		{
			name:    "entity missing type",
			content: `{"entities": [{"name": "A"}], "relationships": []}`,
			wantErr: true,
		},
		{
			name:    "relationship missing target",
			content: `{"entities": [], "relationships": [{"source": "A", "type": "TREATS"}]}`,
			wantErr: true,
		},
		{
			name:    "not json",
			content: "hello",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseKnowledge(tt.content)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBuildSystemPrompt(t *testing.T) {
	prompt := buildSystemPrompt(nil)
	for _, want := range []string{"Patient", "Medication", "PRESCRIBED", "HAS_DIAGNOSIS", "ICD-10", "uncertainty"} {
		assert.Contains(t, prompt, want)
	}

	narrowed := buildSystemPrompt(map[string]bool{"Patient": true})
	assert.Contains(t, narrowed, "- Patient:")
	assert.False(t, strings.Contains(narrowed, "- Medication:"), "narrowed prompt should omit excluded entity types")
}
