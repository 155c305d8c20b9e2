package community

import (
	"cmp"
	"context"
	"math/rand/v2"
	"slices"

	"github.com/OFFIS-RIT/kiwi/graphrag/pkg/logger"
	"github.com/OFFIS-RIT/kiwi/graphrag/pkg/store"

	louvain "gonum.org/v1/gonum/graph/community"
	"gonum.org/v1/gonum/graph/simple"
)

// PartitionOptions tunes the Louvain run. The zero value uses resolution 1
// and seed 0.
type PartitionOptions struct {
	Resolution float64
	Seed       uint64
}

// Partition assigns every node of storage to a community using Louvain
// modularity optimisation over the weighted edges. Community ids start at 1
// and are ordered by the smallest member id of each community, so the same
// graph and seed always yield the same assignment.
func Partition(ctx context.Context, storage store.GraphStorage, opts PartitionOptions) (map[string]int, error) {
	nodes := storage.Nodes()
	if len(nodes) == 0 {
		logger.Warn("[Community] No nodes in graph, skipping community detection")
		return map[string]int{}, nil
	}

	resolution := opts.Resolution
	if resolution <= 0 {
		resolution = 1
	}

	ids := make([]string, len(nodes))
	index := make(map[string]int64, len(nodes))
	g := simple.NewWeightedUndirectedGraph(0, 0)
	for i, n := range nodes {
		ids[i] = n.ID
		index[n.ID] = int64(i)
		g.AddNode(simple.Node(i))
	}
	for _, e := range storage.Edges() {
		from, okFrom := index[e.Source]
		to, okTo := index[e.Target]
		if !okFrom || !okTo || from == to {
			continue
		}
		g.SetWeightedEdge(g.NewWeightedEdge(simple.Node(from), simple.Node(to), float64(e.Weight)))
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reduced := louvain.Modularize(g, resolution, rand.NewPCG(opts.Seed, opts.Seed))

	groups := make([][]int64, 0)
	for _, members := range reduced.Communities() {
		if len(members) == 0 {
			continue
		}
		group := make([]int64, len(members))
		for i, m := range members {
			group[i] = m.ID()
		}
		slices.Sort(group)
		groups = append(groups, group)
	}
	slices.SortFunc(groups, func(a, b []int64) int {
		return cmp.Compare(a[0], b[0])
	})

	partition := make(map[string]int, len(nodes))
	for i, group := range groups {
		for _, id := range group {
			partition[ids[id]] = i + 1
		}
	}

	logger.Info("[Community] Partitioned graph", "nodes", len(nodes), "communities", len(groups))

	return partition, nil
}
