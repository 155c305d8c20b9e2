package community

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/OFFIS-RIT/kiwi/graphrag/internal/util"
	"github.com/OFFIS-RIT/kiwi/graphrag/pkg/ai"
	"github.com/OFFIS-RIT/kiwi/graphrag/pkg/logger"
	"github.com/OFFIS-RIT/kiwi/graphrag/pkg/store"

	"golang.org/x/sync/errgroup"
)

// ElementSummaries holds one summary per node id and per edge key
// (store.EdgeKey). A failed summary is stored as "".
type ElementSummaries struct {
	Nodes map[string]string
	Edges map[string]string
}

// Summarizer produces element and community summaries with bounded
// parallelism. Every oracle call is isolated: a failure only empties the
// summary of that one item.
type Summarizer struct {
	client   ai.GraphAIClient
	policy   ai.CallPolicy
	parallel int
}

type NewSummarizerParams struct {
	AIClient           ai.GraphAIClient
	Policy             ai.CallPolicy
	ParallelAiRequests int
}

func NewSummarizer(params NewSummarizerParams) *Summarizer {
	parallel := params.ParallelAiRequests
	if parallel <= 0 {
		parallel = 1
	}
	return &Summarizer{
		client:   params.AIClient,
		policy:   params.Policy,
		parallel: parallel,
	}
}

func (s *Summarizer) summarize(ctx context.Context, op string, prompt string) string {
	res, err := ai.Complete(ctx, s.client, s.policy, op, prompt, ai.WithSystemPrompts(ai.SummarizeSystemPrompt))
	if err != nil {
		logger.Error("[Community] Summary failed", "op", op, "err", err)
		return ""
	}
	return util.CollapseWhitespace(res)
}

// SummarizeElements asks the oracle for one summary per node and per edge.
func (s *Summarizer) SummarizeElements(ctx context.Context, storage store.GraphStorage) ElementSummaries {
	nodes := storage.Nodes()
	edges := storage.Edges()

	out := ElementSummaries{
		Nodes: make(map[string]string, len(nodes)),
		Edges: make(map[string]string, len(edges)),
	}
	var mu sync.Mutex

	logger.Debug("[Community] Generating element summaries", "nodes", len(nodes), "edges", len(edges))

	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(s.parallel)
	for _, n := range nodes {
		eg.Go(func() error {
			prompt := fmt.Sprintf(ai.SummarizeEntityPrompt, n.Label(), nodeFacts(n, storage))
			summary := s.summarize(gCtx, "summarize_entity", prompt)
			mu.Lock()
			out.Nodes[n.ID] = summary
			mu.Unlock()
			return nil
		})
	}
	for _, e := range edges {
		eg.Go(func() error {
			prompt := fmt.Sprintf(ai.SummarizeRelationshipPrompt, labelOf(storage, e.Source), labelOf(storage, e.Target), edgeFacts(e))
			summary := s.summarize(gCtx, "summarize_relationship", prompt)
			mu.Lock()
			out.Edges[e.Key()] = summary
			mu.Unlock()
			return nil
		})
	}
	_ = eg.Wait()

	return out
}

// SummarizeCommunities writes one summary per distinct community id in
// partition from the summaries of its members and of the edges that lie
// entirely inside it.
func (s *Summarizer) SummarizeCommunities(
	ctx context.Context,
	partition map[string]int,
	storage store.GraphStorage,
	summaries ElementSummaries,
) map[int]string {
	members := make(map[int][]string)
	for id, c := range partition {
		members[c] = append(members[c], id)
	}
	communityIDs := slices.Sorted(maps.Keys(members))

	out := make(map[int]string, len(communityIDs))
	var mu sync.Mutex

	logger.Debug("[Community] Generating community summaries", "communities", len(communityIDs))

	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(s.parallel)
	for _, c := range communityIDs {
		ids := members[c]
		slices.Sort(ids)
		eg.Go(func() error {
			text := communityText(ids, partition, c, storage, summaries)
			summary := s.summarize(gCtx, "summarize_community", fmt.Sprintf(ai.SummarizeCommunityPrompt, text))
			mu.Lock()
			out[c] = summary
			mu.Unlock()
			return nil
		})
	}
	_ = eg.Wait()

	return out
}

func labelOf(storage store.GraphStorage, id string) string {
	if n, ok := storage.Node(id); ok {
		return n.Label()
	}
	return id
}

func nodeFacts(n store.Node, storage store.GraphStorage) string {
	var b strings.Builder
	if t := n.Attributes["type"]; t != "" {
		fmt.Fprintf(&b, "Type: %s\n", t)
	}
	if d := n.Attributes["description"]; d != "" {
		fmt.Fprintf(&b, "Description: %s\n", d)
	}
	for _, e := range storage.IncidentEdges(n.ID) {
		fmt.Fprintf(&b, "- %s %s\n", e.Type, labelOf(storage, e.Other(n.ID)))
	}
	return strings.TrimSpace(b.String())
}

func edgeFacts(e store.Edge) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Relation: %s\n", e.Type)
	if d := e.Attributes["description"]; d != "" {
		fmt.Fprintf(&b, "Description: %s\n", d)
	}
	fmt.Fprintf(&b, "Mentions: %d", e.Weight)
	return b.String()
}

func communityText(
	ids []string,
	partition map[string]int,
	c int,
	storage store.GraphStorage,
	summaries ElementSummaries,
) string {
	var b strings.Builder
	for _, id := range ids {
		summary := summaries.Nodes[id]
		if summary == "" {
			summary = "(no summary)"
		}
		fmt.Fprintf(&b, "%s: %s\n", labelOf(storage, id), summary)
	}
	for _, id := range ids {
		for _, e := range storage.IncidentEdges(id) {
			other := e.Other(id)
			if other < id || partition[other] != c {
				continue
			}
			if summary := summaries.Edges[e.Key()]; summary != "" {
				fmt.Fprintf(&b, "%s - %s: %s\n", labelOf(storage, e.Source), labelOf(storage, e.Target), summary)
			}
		}
	}
	return strings.TrimSpace(b.String())
}
