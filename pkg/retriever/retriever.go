// Package retriever selects the part of the graph that is relevant to a
// query and renders it as plain text context.
package retriever

import (
	"maps"
	"slices"
	"strings"

	"github.com/OFFIS-RIT/kiwi/graphrag/pkg/store"
)

// Subgraph is an induced subgraph: Nodes holds ids in sorted order and
// Edges every stored edge with both endpoints in Nodes.
type Subgraph struct {
	Nodes []store.Node
	Edges []store.Edge
}

// RelevantSubgraph returns the subgraph induced by the seeds present in
// storage and their direct neighbours. Unknown seeds are ignored.
func RelevantSubgraph(storage store.GraphStorage, seeds []string) Subgraph {
	selected := make(map[string]struct{})
	for _, seed := range seeds {
		if !storage.HasNode(seed) {
			continue
		}
		selected[seed] = struct{}{}
		neighbors, err := storage.Neighbors(seed)
		if err != nil {
			continue
		}
		for _, n := range neighbors {
			selected[n] = struct{}{}
		}
	}

	var sg Subgraph
	edges := make(map[string]store.Edge)
	for _, id := range slices.Sorted(maps.Keys(selected)) {
		node, ok := storage.Node(id)
		if !ok {
			continue
		}
		sg.Nodes = append(sg.Nodes, node)
		for _, e := range storage.IncidentEdges(id) {
			if _, in := selected[e.Other(id)]; in {
				edges[e.Key()] = e
			}
		}
	}
	for _, key := range slices.Sorted(maps.Keys(edges)) {
		sg.Edges = append(sg.Edges, edges[key])
	}

	return sg
}

// RenderContext writes one block per node in id order:
//
//	Entity: <id>
//	- <relation> <neighbour>
//
// with one line per incident edge of the subgraph, neighbours sorted.
func RenderContext(sg Subgraph) string {
	incident := make(map[string][]store.Edge, len(sg.Nodes))
	for _, e := range sg.Edges {
		incident[e.Source] = append(incident[e.Source], e)
		incident[e.Target] = append(incident[e.Target], e)
	}

	var b strings.Builder
	for _, n := range sg.Nodes {
		b.WriteString("Entity: ")
		b.WriteString(n.ID)
		b.WriteByte('\n')

		edges := incident[n.ID]
		slices.SortFunc(edges, func(x, y store.Edge) int {
			return strings.Compare(x.Other(n.ID), y.Other(n.ID))
		})
		for _, e := range edges {
			b.WriteString("- ")
			b.WriteString(e.Type)
			b.WriteByte(' ')
			b.WriteString(e.Other(n.ID))
			b.WriteByte('\n')
		}
	}

	return b.String()
}
