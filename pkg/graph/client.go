package graph

import (
	"time"

	"github.com/OFFIS-RIT/kiwi/graphrag/internal/util"
	"github.com/OFFIS-RIT/kiwi/graphrag/pkg/ai"
)

// GraphClient turns documents into graph elements. It holds the chunking
// and oracle call settings; the AI client and the storage are passed per call.
//
// A GraphClient should be created using NewGraphClient.
type GraphClient struct {
	chunkSize          int
	parallelAiRequests int
	policy             ai.CallPolicy
}

// NewGraphClientParams defines the configuration parameters for creating
// a new GraphClient.
//
// ChunkSize bounds chunk length in characters.
// ParallelAiRequests controls how many extraction calls run concurrently.
// MaxRetries, RequestTimeout and Backoff apply to every single oracle call.
// A zero Backoff uses 500ms doubling up to 5s.
type NewGraphClientParams struct {
	ChunkSize          int
	ParallelAiRequests int
	MaxRetries         int
	RequestTimeout     time.Duration
	Backoff            util.Backoff
}

// NewGraphClient creates and returns a new GraphClient configured with
// the provided parameters.
//
// Example:
//
//	client := graph.NewGraphClient(graph.NewGraphClientParams{
//		ChunkSize:          1000,
//		ParallelAiRequests: 10,
//		MaxRetries:         3,
//		RequestTimeout:     time.Minute,
//	})
func NewGraphClient(params NewGraphClientParams) *GraphClient {
	chunkSize := params.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	parallel := params.ParallelAiRequests
	if parallel <= 0 {
		parallel = 1
	}
	maxRetries := params.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	backoff := params.Backoff
	if backoff == (util.Backoff{}) {
		backoff = util.Backoff{
			Initial: 500 * time.Millisecond,
			Max:     5 * time.Second,
		}
	}

	return &GraphClient{
		chunkSize:          chunkSize,
		parallelAiRequests: parallel,
		policy: ai.CallPolicy{
			MaxRetries: maxRetries,
			Timeout:    params.RequestTimeout,
			Backoff:    backoff,
		},
	}
}

// Policy returns the retry and timeout policy applied to oracle calls.
func (g *GraphClient) Policy() ai.CallPolicy {
	return g.policy
}

// ParallelAiRequests returns the configured oracle concurrency.
func (g *GraphClient) ParallelAiRequests() int {
	return g.parallelAiRequests
}
