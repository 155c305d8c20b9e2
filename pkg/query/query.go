package query

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFinalized is returned by community queries before the first
	// successful finalization.
	ErrNotFinalized = errors.New("graph has not been finalized")
	// ErrStaleCommunities is returned by community queries when the graph
	// changed after the last finalization.
	ErrStaleCommunities = errors.New("graph changed since last finalization")
)

// Strategy selects how a query gathers its context.
type Strategy string

const (
	// StrategyCommunity answers once per community summary and then
	// synthesizes a global answer from the partial answers.
	StrategyCommunity Strategy = "community"
	// StrategySubgraph answers from the neighbourhood of the entities named
	// in the query.
	StrategySubgraph Strategy = "subgraph"
)

// ParseStrategy maps a configuration value to a Strategy. The empty string
// selects StrategyCommunity.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", StrategyCommunity:
		return StrategyCommunity, nil
	case StrategySubgraph:
		return StrategySubgraph, nil
	default:
		return "", fmt.Errorf("unknown query strategy %q", s)
	}
}

// CommunitySource provides the community summaries of the current
// finalization. Implementations return ErrNotFinalized or
// ErrStaleCommunities when no usable summaries exist.
type CommunitySource interface {
	CommunitySummaries() (map[int]string, error)
}

// GraphQueryClient answers natural language questions over the graph.
type GraphQueryClient interface {
	Query(ctx context.Context, query string) (string, error)
}
