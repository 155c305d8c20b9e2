package base

import (
	"context"
	"errors"
	"maps"
	"slices"
	"strings"

	"github.com/OFFIS-RIT/kiwi/graphrag/pkg/logger"

	"golang.org/x/sync/errgroup"
)

var errNoCommunitySource = errors.New("community strategy requires a community source")

// QueryCommunities answers q once against every non-empty community
// summary, then synthesizes the final answer from the partial answers
// joined in community id order. Failed partial answers are dropped; the
// query only fails when all of them fail or the synthesis fails.
func (c *BaseQueryClient) QueryCommunities(ctx context.Context, q string) (string, error) {
	if c.communities == nil {
		return "", errNoCommunitySource
	}
	summaries, err := c.communities.CommunitySummaries()
	if err != nil {
		return "", err
	}

	var ids []int
	for _, id := range slices.Sorted(maps.Keys(summaries)) {
		if strings.TrimSpace(summaries[id]) != "" {
			ids = append(ids, id)
		}
	}

	answers := make([]string, len(ids))
	errs := make([]error, len(ids))

	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(c.graphClient.ParallelAiRequests())
	for i, id := range ids {
		eg.Go(func() error {
			answers[i], errs[i] = c.answer(gCtx, "answer_community", summaries[id], q)
			if errs[i] != nil {
				logger.Warn("[Query] Community answer failed", "community", id, "err", errs[i])
			}
			return nil
		})
	}
	_ = eg.Wait()

	if err := ctx.Err(); err != nil {
		return "", err
	}

	partial := make([]string, 0, len(ids))
	var firstErr error
	for i := range ids {
		if errs[i] != nil {
			if firstErr == nil {
				firstErr = errs[i]
			}
			continue
		}
		partial = append(partial, answers[i])
	}
	if len(ids) > 0 && len(partial) == 0 {
		return "", firstErr
	}

	logger.Debug("[Query] Synthesizing answer", "communities", len(ids), "answers", len(partial))

	return c.answer(ctx, "answer_global", strings.Join(partial, "\n"), q)
}
