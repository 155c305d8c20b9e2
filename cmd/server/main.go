package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/OFFIS-RIT/kiwi/graphrag/internal/config"
	"github.com/OFFIS-RIT/kiwi/graphrag/internal/metrics"
	"github.com/OFFIS-RIT/kiwi/graphrag/internal/queue"
	"github.com/OFFIS-RIT/kiwi/graphrag/internal/server"
	"github.com/OFFIS-RIT/kiwi/graphrag/internal/util"
	"github.com/OFFIS-RIT/kiwi/graphrag/pkg/ai"
	oai "github.com/OFFIS-RIT/kiwi/graphrag/pkg/ai/ollama"
	gai "github.com/OFFIS-RIT/kiwi/graphrag/pkg/ai/openai"
	"github.com/OFFIS-RIT/kiwi/graphrag/pkg/community"
	"github.com/OFFIS-RIT/kiwi/graphrag/pkg/graph"
	"github.com/OFFIS-RIT/kiwi/graphrag/pkg/logger"
	"github.com/OFFIS-RIT/kiwi/graphrag/pkg/logger/console"
	"github.com/OFFIS-RIT/kiwi/graphrag/pkg/query/base"
	"github.com/OFFIS-RIT/kiwi/graphrag/pkg/session"
	"github.com/OFFIS-RIT/kiwi/graphrag/pkg/store/memory"
)

func main() {
	util.LoadEnv()

	cfg, err := config.Load()
	if err != nil {
		logger.Init(console.NewConsoleLogger(console.ConsoleLoggerParams{}))
		var cfgErr *config.ConfigurationError
		if errors.As(err, &cfgErr) {
			logger.Fatal("Invalid configuration", "key", cfgErr.Key, "err", cfgErr.Reason)
		}
		logger.Fatal("Failed to load configuration", "err", err)
	}

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug:  cfg.Debug,
		Format: cfg.LogFormat,
	})
	logger.Init(consoleLogger)

	aiClient, err := newAIClient(cfg.AI)
	if err != nil {
		logger.Fatal("Failed to create AI client", "adapter", cfg.AI.Adapter, "err", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.AI.Adapter == config.AdapterOllama {
		if err := ai.Preload(ctx, aiClient, cfg.AI.ExtractModel, cfg.AI.DescribeModel, cfg.AI.QueryModel); err != nil {
			logger.Warn("[AI] Failed to preload models", "err", err)
		}
	}

	m := metrics.NewMetrics()
	m.RegisterOracle(aiClient)
	notifiers := []session.StatusNotifier{m}

	if cfg.RabbitMQ.Enabled() {
		conn, err := queue.Init(cfg.RabbitMQ.URL())
		if err != nil {
			logger.Fatal("Failed to connect to RabbitMQ", "err", err)
		}
		defer conn.Close()

		ch, err := conn.Channel()
		if err != nil {
			logger.Fatal("Failed to open channel", "err", err)
		}
		publisher, err := queue.NewStatusPublisher(ch)
		if err != nil {
			logger.Fatal("Failed to set up status publisher", "err", err)
		}
		notifiers = append(notifiers, publisher)
	}

	s := session.NewSession(session.NewSessionParams{
		Storage: memory.NewGraphMemoryStorage(memory.NewGraphMemoryStorageParams{
			AutoCreateNodes: cfg.AutoCreateNodes,
		}),
		AIClient: aiClient,
		GraphClient: graph.NewGraphClient(graph.NewGraphClientParams{
			ChunkSize:          cfg.ChunkSize,
			ParallelAiRequests: cfg.AI.ParallelReq,
			MaxRetries:         cfg.AI.MaxRetries,
			RequestTimeout:     cfg.AI.RequestTimeout,
		}),
		Strategy:     cfg.QueryStrategy,
		QueryOptions: queryOptions(cfg.AI),
		Partition: community.PartitionOptions{
			Resolution: cfg.CommunityResolution,
			Seed:       cfg.CommunitySeed,
		},
		Notifiers: notifiers,
	})
	defer s.Close()

	e := server.NewServer(server.NewServerParams{
		Session:     s,
		Metrics:     m,
		UploadLimit: cfg.UploadLimit,
	})
	if err := server.Run(ctx, e, ":"+cfg.Port); err != nil {
		logger.Error("Server stopped", "err", err)
	}
}

func queryOptions(cfg config.AIConfig) []base.QueryOption {
	var opts []base.QueryOption
	if cfg.QueryModel != "" {
		opts = append(opts, base.WithModel(cfg.QueryModel))
	}
	if cfg.QueryThinking != "" {
		opts = append(opts, base.WithThinking(cfg.QueryThinking))
	}
	return opts
}

func newAIClient(cfg config.AIConfig) (ai.GraphAIClient, error) {
	switch cfg.Adapter {
	case config.AdapterOllama:
		return oai.NewGraphOllamaClient(oai.NewGraphOllamaClientParams{
			DescriptionModel: cfg.DescribeModel,
			ExtractionModel:  cfg.ExtractModel,
			TokenEncoder:     cfg.TokenEncoder,

			BaseURL: cfg.ChatURL,
			ApiKey:  cfg.ChatKey,

			MaxConcurrentRequests: int64(cfg.ParallelReq),
		})
	default:
		return gai.NewGraphOpenAIClient(gai.NewGraphOpenAIClientParams{
			DescriptionModel: cfg.DescribeModel,
			ExtractionModel:  cfg.ExtractModel,

			ChatURL: cfg.ChatURL,
			ChatKey: cfg.ChatKey,
		}), nil
	}
}
