package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/OFFIS-RIT/kiwi/graphrag/pkg/ai"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeChatServer(t *testing.T, content string, seen *map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chat", r.URL.Path)
		if seen != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(seen))
		}
		w.Header().Set("Content-Type", "application/x-ndjson")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model":             "test-model",
			"message":           map[string]any{"role": "assistant", "content": content},
			"done":              true,
			"prompt_eval_count": 11,
			"eval_count":        4,
			"total_duration":    2_000_000_000,
		})
	}))
}

func newTestClient(t *testing.T, url string) *GraphOllamaClient {
	t.Helper()
	c, err := NewGraphOllamaClient(NewGraphOllamaClientParams{
		DescriptionModel:      "describe-model",
		ExtractionModel:       "extract-model",
		BaseURL:               url,
		MaxConcurrentRequests: 2,
	})
	require.NoError(t, err)
	return c
}

func TestGenerateCompletion(t *testing.T) {
	var body map[string]any
	srv := fakeChatServer(t, "an answer", &body)
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	got, err := c.GenerateCompletion(context.Background(), "question", ai.WithSystemPrompts("be brief"))
	require.NoError(t, err)
	assert.Equal(t, "an answer", got)
	assert.Equal(t, "describe-model", body["model"])
	assert.Equal(t, false, body["stream"])

	msgs, ok := body["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "question", msgs[1].(map[string]any)["content"])

	m := c.GetMetrics()
	assert.Equal(t, 1, m.Requests)
	assert.Equal(t, 15, m.TotalTokens)
	assert.Equal(t, int64(2000), m.DurationMs)

	c.ResetMetrics()
	assert.Equal(t, ai.ModelMetrics{}, c.GetMetrics())
}

func TestGenerateCompletionWithFormat(t *testing.T) {
	type answer struct {
		Names []string `json:"names"`
	}

	var body map[string]any
	srv := fakeChatServer(t, "```json\n{\"names\":[\"ALICE\",\"BOB\"]}\n```", &body)
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	var out answer
	err := c.GenerateCompletionWithFormat(context.Background(), "names", "", "who?", &out)
	require.NoError(t, err)
	assert.Equal(t, []string{"ALICE", "BOB"}, out.Names)
	assert.Equal(t, "extract-model", body["model"])

	format, ok := body["format"].(map[string]any)
	require.True(t, ok, "format should carry the json schema")
	assert.Equal(t, "object", format["type"])
}

func TestGenerateCompletionWithFormatRejectsNonPointer(t *testing.T) {
	c := newTestClient(t, "http://127.0.0.1:1")
	var out struct{}
	err := c.GenerateCompletionWithFormat(context.Background(), "x", "", "p", out)
	assert.Error(t, err)
	err = c.GenerateCompletionWithFormat(context.Background(), "x", "", "p", nil)
	assert.Error(t, err)
}

func TestGenerateChatDefaultsRoleToUser(t *testing.T) {
	var body map[string]any
	srv := fakeChatServer(t, "reply", &body)
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	got, err := c.GenerateChat(context.Background(), []ai.ChatMessage{
		{Message: "hello"},
		{Role: "assistant", Message: "hi"},
		{Role: "user", Message: "again"},
	})
	require.NoError(t, err)
	assert.Equal(t, "reply", got)

	msgs := body["messages"].([]any)
	require.Len(t, msgs, 3)
	assert.Equal(t, "user", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "assistant", msgs[1].(map[string]any)["role"])
}

func TestContextTokensEstimate(t *testing.T) {
	c := newTestClient(t, "")
	assert.Equal(t, responseTokenReserve, c.contextTokens(""))
	assert.Equal(t, 100+responseTokenReserve, c.contextTokens(string(make([]byte, 400))))
}

func TestHeaderTransportSetsAuthorization(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model":   "m",
			"message": map[string]any{"role": "assistant", "content": "ok"},
			"done":    true,
		})
	}))
	defer srv.Close()

	c, err := NewGraphOllamaClient(NewGraphOllamaClientParams{
		DescriptionModel: "m",
		BaseURL:          srv.URL,
		ApiKey:           "secret",
	})
	require.NoError(t, err)
	_, err = c.GenerateCompletion(context.Background(), "ping")
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret", auth)
}
