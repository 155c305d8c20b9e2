package config

import (
	"errors"
	"testing"
	"time"

	"github.com/OFFIS-RIT/kiwi/graphrag/pkg/query"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configKeys = []string{
	"PORT", "DEBUG", "LOG_FORMAT",
	"AI_ADAPTER", "AI_CHAT_URL", "AI_CHAT_KEY", "OPENAI_API_KEY",
	"AI_CHAT_EXTRACT_MODEL", "AI_CHAT_DESCRIBE_MODEL", "AI_QUERY_MODEL", "AI_QUERY_THINKING",
	"AI_PARALLEL_REQ", "AI_MAX_RETRIES", "AI_REQUEST_TIMEOUT",
	"CHUNK_SIZE", "GRAPH_AUTO_CREATE_NODES", "QUERY_STRATEGY",
	"COMMUNITY_RESOLUTION", "COMMUNITY_SEED", "UPLOAD_LIMIT",
	"RABBITMQ_HOST", "RABBITMQ_PORT", "RABBITMQ_USER", "RABBITMQ_PASSWORD",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configKeys {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, AdapterOpenAI, cfg.AI.Adapter)
	assert.Equal(t, "sk-test", cfg.AI.ChatKey)
	assert.Equal(t, 10, cfg.AI.ParallelReq)
	assert.Equal(t, 3, cfg.AI.MaxRetries)
	assert.Equal(t, 60*time.Second, cfg.AI.RequestTimeout)
	assert.Empty(t, cfg.AI.QueryModel)
	assert.Empty(t, cfg.AI.QueryThinking)
	assert.Equal(t, 1000, cfg.ChunkSize)
	assert.False(t, cfg.AutoCreateNodes)
	assert.Equal(t, query.StrategyCommunity, cfg.QueryStrategy)
	assert.Equal(t, 1.0, cfg.CommunityResolution)
	assert.Equal(t, uint64(42), cfg.CommunitySeed)
	assert.Equal(t, "50M", cfg.UploadLimit)
	assert.False(t, cfg.RabbitMQ.Enabled())
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("AI_CHAT_KEY", "primary")
	t.Setenv("OPENAI_API_KEY", "fallback")
	t.Setenv("AI_REQUEST_TIMEOUT", "15")
	t.Setenv("QUERY_STRATEGY", "Subgraph")
	t.Setenv("GRAPH_AUTO_CREATE_NODES", "true")
	t.Setenv("RABBITMQ_HOST", "mq")
	t.Setenv("RABBITMQ_USER", "guest")
	t.Setenv("RABBITMQ_PASSWORD", "secret")
	t.Setenv("AI_QUERY_MODEL", "gpt-4o")
	t.Setenv("AI_QUERY_THINKING", "high")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "primary", cfg.AI.ChatKey)
	assert.Equal(t, 15*time.Second, cfg.AI.RequestTimeout)
	assert.Equal(t, "gpt-4o", cfg.AI.QueryModel)
	assert.Equal(t, "high", cfg.AI.QueryThinking)
	assert.Equal(t, query.StrategySubgraph, cfg.QueryStrategy)
	assert.True(t, cfg.AutoCreateNodes)
	assert.True(t, cfg.RabbitMQ.Enabled())
	assert.Equal(t, "amqp://guest:secret@mq:5672/", cfg.RabbitMQ.URL())
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		key  string
	}{
		{name: "missing credential", env: map[string]string{}, key: "AI_CHAT_KEY"},
		{name: "unknown adapter", env: map[string]string{"AI_ADAPTER": "bard"}, key: "AI_ADAPTER"},
		{name: "unknown strategy", env: map[string]string{"OPENAI_API_KEY": "k", "QUERY_STRATEGY": "vector"}, key: "QUERY_STRATEGY"},
		{name: "zero chunk size", env: map[string]string{"OPENAI_API_KEY": "k", "CHUNK_SIZE": "0"}, key: "CHUNK_SIZE"},
		{name: "zero parallelism", env: map[string]string{"OPENAI_API_KEY": "k", "AI_PARALLEL_REQ": "0"}, key: "AI_PARALLEL_REQ"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			var cfgErr *ConfigurationError
			require.True(t, errors.As(err, &cfgErr), "got %v", err)
			assert.Equal(t, tt.key, cfgErr.Key)
		})
	}
}

func TestLoadOllamaWithoutKey(t *testing.T) {
	clearEnv(t)
	t.Setenv("AI_ADAPTER", "ollama")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, AdapterOllama, cfg.AI.Adapter)
}
