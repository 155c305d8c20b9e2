// Package config assembles the service configuration from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/OFFIS-RIT/kiwi/graphrag/internal/util"
	"github.com/OFFIS-RIT/kiwi/graphrag/pkg/query"
)

// ConfigurationError reports an invalid or missing setting. The service
// must not start serving after one.
type ConfigurationError struct {
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration %s: %s", e.Key, e.Reason)
}

const (
	AdapterOpenAI = "openai"
	AdapterOllama = "ollama"
)

type AIConfig struct {
	Adapter        string
	ChatURL        string
	ChatKey        string
	ExtractModel   string
	DescribeModel  string
	QueryModel     string
	QueryThinking  string
	ParallelReq    int
	MaxRetries     int
	RequestTimeout time.Duration

	// TokenEncoder is an optional tiktoken encoding for the ollama adapter.
	TokenEncoder string
}

type RabbitMQConfig struct {
	Host     string
	Port     string
	User     string
	Password string
}

// Enabled reports whether status events should be published.
func (r RabbitMQConfig) Enabled() bool {
	return r.Host != ""
}

// URL returns the amqp connection url.
func (r RabbitMQConfig) URL() string {
	port := r.Port
	if port == "" {
		port = "5672"
	}
	return fmt.Sprintf("amqp://%s:%s@%s:%s/", r.User, r.Password, r.Host, port)
}

type Config struct {
	Port      string
	Debug     bool
	LogFormat string

	AI AIConfig

	ChunkSize           int
	AutoCreateNodes     bool
	QueryStrategy       query.Strategy
	CommunityResolution float64
	CommunitySeed       uint64
	UploadLimit         string

	RabbitMQ RabbitMQConfig
}

// Load reads the environment. Call util.LoadEnv first to pick up a .env
// file.
func Load() (*Config, error) {
	cfg := &Config{
		Port:      util.GetEnvString("PORT", "8080"),
		Debug:     util.GetEnvBool("DEBUG", false),
		LogFormat: util.GetEnvString("LOG_FORMAT", "text"),

		AI: AIConfig{
			Adapter:        strings.ToLower(util.GetEnvString("AI_ADAPTER", AdapterOpenAI)),
			ChatURL:        util.GetEnv("AI_CHAT_URL"),
			ChatKey:        util.GetEnvFirst("AI_CHAT_KEY", "OPENAI_API_KEY"),
			ExtractModel:   util.GetEnvString("AI_CHAT_EXTRACT_MODEL", "gpt-4o-mini"),
			DescribeModel:  util.GetEnvString("AI_CHAT_DESCRIBE_MODEL", "gpt-4o-mini"),
			QueryModel:     util.GetEnv("AI_QUERY_MODEL"),
			QueryThinking:  util.GetEnv("AI_QUERY_THINKING"),
			ParallelReq:    util.GetEnvInt("AI_PARALLEL_REQ", 10),
			MaxRetries:     util.GetEnvInt("AI_MAX_RETRIES", 3),
			RequestTimeout: util.GetEnvDuration("AI_REQUEST_TIMEOUT", 60*time.Second),
			TokenEncoder:   util.GetEnv("AI_TOKEN_ENCODER"),
		},

		ChunkSize:           util.GetEnvInt("CHUNK_SIZE", 1000),
		AutoCreateNodes:     util.GetEnvBool("GRAPH_AUTO_CREATE_NODES", false),
		CommunityResolution: util.GetEnvNumeric("COMMUNITY_RESOLUTION", 1.0),
		CommunitySeed:       uint64(util.GetEnvInt("COMMUNITY_SEED", 42)),
		UploadLimit:         util.GetEnvString("UPLOAD_LIMIT", "50M"),

		RabbitMQ: RabbitMQConfig{
			Host:     util.GetEnv("RABBITMQ_HOST"),
			Port:     util.GetEnv("RABBITMQ_PORT"),
			User:     util.GetEnv("RABBITMQ_USER"),
			Password: util.GetEnv("RABBITMQ_PASSWORD"),
		},
	}

	strategy, err := query.ParseStrategy(util.GetEnvString("QUERY_STRATEGY", string(query.StrategyCommunity)))
	if err != nil {
		return nil, &ConfigurationError{Key: "QUERY_STRATEGY", Reason: err.Error()}
	}
	cfg.QueryStrategy = strategy

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.AI.Adapter {
	case AdapterOpenAI:
		if c.AI.ChatKey == "" {
			return &ConfigurationError{Key: "AI_CHAT_KEY", Reason: "no oracle credential, set AI_CHAT_KEY or OPENAI_API_KEY"}
		}
	case AdapterOllama:
	default:
		return &ConfigurationError{Key: "AI_ADAPTER", Reason: fmt.Sprintf("unknown adapter %q", c.AI.Adapter)}
	}

	if c.ChunkSize <= 0 {
		return &ConfigurationError{Key: "CHUNK_SIZE", Reason: "must be positive"}
	}
	if c.AI.ParallelReq <= 0 {
		return &ConfigurationError{Key: "AI_PARALLEL_REQ", Reason: "must be positive"}
	}
	if c.AI.MaxRetries < 0 {
		return &ConfigurationError{Key: "AI_MAX_RETRIES", Reason: "must not be negative"}
	}
	if c.CommunityResolution <= 0 {
		return &ConfigurationError{Key: "COMMUNITY_RESOLUTION", Reason: "must be positive"}
	}
	return nil
}
