package base

import (
	"context"
	"fmt"

	"github.com/OFFIS-RIT/kiwi/graphrag/pkg/ai"
	"github.com/OFFIS-RIT/kiwi/graphrag/pkg/graph"
	"github.com/OFFIS-RIT/kiwi/graphrag/pkg/logger"
	"github.com/OFFIS-RIT/kiwi/graphrag/pkg/query"
	"github.com/OFFIS-RIT/kiwi/graphrag/pkg/store"
)

type queryOptions struct {
	Model    string
	Thinking string
}

// QueryOption is a functional option for configuring query behavior.
type QueryOption func(*queryOptions)

// WithModel returns a QueryOption that specifies which AI model to use
// for generating responses.
func WithModel(model string) QueryOption {
	return func(o *queryOptions) {
		o.Model = model
	}
}

// WithThinking returns a QueryOption that enables extended thinking mode.
func WithThinking(thinking string) QueryOption {
	return func(o *queryOptions) {
		o.Thinking = thinking
	}
}

// BaseQueryClient implements query.GraphQueryClient over a GraphStorage
// with one of the two query strategies.
type BaseQueryClient struct {
	aiClient    ai.GraphAIClient
	storage     store.GraphStorage
	graphClient *graph.GraphClient
	communities query.CommunitySource
	strategy    query.Strategy
	options     queryOptions
}

// NewBaseQueryClientParams configures a BaseQueryClient. Communities is
// required for query.StrategyCommunity; GraphClient supplies query entity
// extraction as well as the call policy and concurrency.
type NewBaseQueryClientParams struct {
	AIClient    ai.GraphAIClient
	Storage     store.GraphStorage
	GraphClient *graph.GraphClient
	Communities query.CommunitySource
	Strategy    query.Strategy
}

// NewBaseQueryClient creates a query client.
//
// Example:
//
//	client := base.NewBaseQueryClient(base.NewBaseQueryClientParams{
//		AIClient:    aiClient,
//		Storage:     storage,
//		GraphClient: graphClient,
//		Communities: session,
//		Strategy:    query.StrategyCommunity,
//	})
//	answer, err := client.Query(ctx, "Who works for Acme?")
func NewBaseQueryClient(params NewBaseQueryClientParams, opts ...QueryOption) *BaseQueryClient {
	options := queryOptions{}
	for _, o := range opts {
		o(&options)
	}
	strategy := params.Strategy
	if strategy == "" {
		strategy = query.StrategyCommunity
	}

	return &BaseQueryClient{
		aiClient:    params.AIClient,
		storage:     params.Storage,
		graphClient: params.GraphClient,
		communities: params.Communities,
		strategy:    strategy,
		options:     options,
	}
}

// Strategy returns the strategy this client answers with.
func (c *BaseQueryClient) Strategy() query.Strategy {
	return c.strategy
}

// Query answers q with the configured strategy.
func (c *BaseQueryClient) Query(ctx context.Context, q string) (string, error) {
	logger.Info("[Query] Processing query", "strategy", c.strategy, "query", q)

	switch c.strategy {
	case query.StrategySubgraph:
		return c.QuerySubgraph(ctx, q)
	case query.StrategyCommunity:
		return c.QueryCommunities(ctx, q)
	default:
		return "", fmt.Errorf("unknown query strategy %q", c.strategy)
	}
}

// answer runs one QueryPrompt chat turn over contextText.
func (c *BaseQueryClient) answer(ctx context.Context, op string, contextText string, q string) (string, error) {
	generateOpts := []ai.GenerateOption{
		ai.WithSystemPrompts(ai.QuerySystemPrompt),
	}
	if c.options.Model != "" {
		generateOpts = append(generateOpts, ai.WithModel(c.options.Model))
	}
	if c.options.Thinking != "" {
		generateOpts = append(generateOpts, ai.WithThinking(c.options.Thinking))
	}

	messages := []ai.ChatMessage{
		{Role: "user", Message: fmt.Sprintf(ai.QueryPrompt, contextText, q)},
	}

	return ai.Chat(
		ctx,
		c.aiClient,
		c.graphClient.Policy(),
		op,
		messages,
		generateOpts...,
	)
}
