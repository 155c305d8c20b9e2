package graph

import (
	"context"
	"errors"
	"fmt"

	"github.com/OFFIS-RIT/kiwi/graphrag/pkg/ai"
	"github.com/OFFIS-RIT/kiwi/graphrag/pkg/common"
	"github.com/OFFIS-RIT/kiwi/graphrag/pkg/loader"
	"github.com/OFFIS-RIT/kiwi/graphrag/pkg/logger"
	"github.com/OFFIS-RIT/kiwi/graphrag/pkg/store"

	"golang.org/x/sync/errgroup"
)

// ChunkResult is the extraction outcome for one chunk. Err is set when the
// chunk failed; Elements is then empty.
type ChunkResult struct {
	Index    int
	UnitID   string
	Elements []common.Element
	Err      error
}

// IngestResult summarizes how a document changed the graph.
type IngestResult struct {
	Chunks               int `json:"chunks"`
	FailedChunks         int `json:"failed_chunks"`
	Entities             int `json:"entities"`
	Relationships        int `json:"relationships"`
	SkippedRelationships int `json:"skipped_relationships"`
}

// ExtractDocument runs chunking and parallel extraction without touching
// any graph. The results are ordered by chunk index.
func (g *GraphClient) ExtractDocument(
	ctx context.Context,
	file loader.GraphFile,
	aiClient ai.GraphAIClient,
) ([]ChunkResult, error) {
	units, err := getUnitsFromText(ctx, file, g.chunkSize)
	if err != nil {
		return nil, fmt.Errorf("failed to extract units from input text: %w", err)
	}
	logger.Info("[Graph] Processing document", "file", file.FilePath, "chunks", len(units))

	results := make([]ChunkResult, len(units))

	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.parallelAiRequests)
	for i, unit := range units {
		eg.Go(func() error {
			elements, err := g.ExtractElements(gCtx, aiClient, unit.text)
			var extractErr *ExtractionError
			if errors.As(err, &extractErr) {
				extractErr.Chunk = unit.index
			}
			results[i] = ChunkResult{
				Index:    unit.index,
				UnitID:   unit.id,
				Elements: elements,
				Err:      err,
			}
			return nil
		})
	}
	_ = eg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return results, nil
}

// ApplyChunks writes the elements of results into storage, chunk by chunk
// and in element order. Relationships with a missing endpoint are skipped.
func ApplyChunks(results []ChunkResult, storage store.GraphStorage) IngestResult {
	res := IngestResult{Chunks: len(results)}

	for _, chunk := range results {
		if chunk.Err != nil {
			res.FailedChunks++
			logger.Error("[Graph] Chunk extraction failed", "chunk", chunk.Index, "unit", chunk.UnitID, "err", chunk.Err)
			continue
		}

		for _, el := range chunk.Elements {
			switch el.Kind {
			case common.ElementEntity:
				if err := storage.UpsertEntity(el.Entity.ID, el.Entity.Attributes()); err != nil {
					logger.Warn("[Graph] Skipping entity", "chunk", chunk.Index, "id", el.Entity.ID, "err", err)
					continue
				}
				res.Entities++
			case common.ElementRelationship:
				r := el.Relationship
				if err := storage.UpsertRelationship(r.Source, r.Target, r.Type, r.Attributes()); err != nil {
					res.SkippedRelationships++
					logger.Warn("[Graph] Skipping relationship", "chunk", chunk.Index, "source", r.Source, "target", r.Target, "err", err)
					continue
				}
				res.Relationships++
			}
		}
	}

	nodes, edges := storage.Counts()
	logger.Info(
		"[Graph] Applied chunks",
		"chunks", res.Chunks,
		"failed", res.FailedChunks,
		"nodes", nodes,
		"edges", edges,
	)

	return res
}
