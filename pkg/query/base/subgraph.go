package base

import (
	"context"

	"github.com/OFFIS-RIT/kiwi/graphrag/pkg/logger"
	"github.com/OFFIS-RIT/kiwi/graphrag/pkg/retriever"
)

// QuerySubgraph extracts the entities named in q, collects their one-hop
// neighbourhood and answers from the rendered subgraph. An extraction
// failure or an empty neighbourhood still yields an answer.
func (c *BaseQueryClient) QuerySubgraph(ctx context.Context, q string) (string, error) {
	var seeds []string
	entities, relations, err := c.graphClient.ExtractQueryEntities(ctx, c.aiClient, q)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		logger.Warn("[Query] Query entity extraction failed, answering without graph context", "err", err)
	} else {
		seeds = append(seeds, entities...)
		for _, r := range relations {
			seeds = append(seeds, r.Source, r.Target)
		}
	}

	sg := retriever.RelevantSubgraph(c.storage, seeds)
	logger.Debug("[Query] Retrieved subgraph", "seeds", len(seeds), "nodes", len(sg.Nodes), "edges", len(sg.Edges))

	return c.answer(ctx, "answer_subgraph", retriever.RenderContext(sg), q)
}
