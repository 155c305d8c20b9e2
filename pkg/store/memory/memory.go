package memory

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/OFFIS-RIT/kiwi/graphrag/pkg/store"
)

type node struct {
	attrs     map[string]string
	community int
}

type edge struct {
	source  string
	target  string
	relType string
	weight  int
	attrs   map[string]string
}

// GraphMemoryStorage implements store.GraphStorage in process memory.
//
// A GraphMemoryStorage should be created using NewGraphMemoryStorage.
type GraphMemoryStorage struct {
	autoCreateNodes bool

	mu        sync.RWMutex
	nodes     map[string]*node
	edges     map[string]*edge
	adjacency map[string]map[string]struct{}
	version   uint64
}

// NewGraphMemoryStorageParams configures a GraphMemoryStorage.
//
// AutoCreateNodes makes UpsertRelationship create missing endpoints instead
// of failing with a DanglingReferenceError.
type NewGraphMemoryStorageParams struct {
	AutoCreateNodes bool
}

// NewGraphMemoryStorage creates an empty graph.
func NewGraphMemoryStorage(params NewGraphMemoryStorageParams) *GraphMemoryStorage {
	return &GraphMemoryStorage{
		autoCreateNodes: params.AutoCreateNodes,
		nodes:           make(map[string]*node),
		edges:           make(map[string]*edge),
		adjacency:       make(map[string]map[string]struct{}),
	}
}

// UpsertEntity inserts node id or merges attrs into it. The version only
// moves when the node is new or an attribute value changes.
func (s *GraphMemoryStorage) UpsertEntity(id string, attrs map[string]string) error {
	if id == "" {
		return fmt.Errorf("%w: entity without id", store.ErrInvalidElement)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.upsertNodeLocked(id, attrs) {
		s.version++
	}
	return nil
}

func (s *GraphMemoryStorage) upsertNodeLocked(id string, attrs map[string]string) bool {
	n, ok := s.nodes[id]
	if !ok {
		n = &node{attrs: make(map[string]string, len(attrs))}
		s.nodes[id] = n
		s.adjacency[id] = make(map[string]struct{})
	}
	changed := !ok
	for k, v := range attrs {
		if old, exists := n.attrs[k]; !exists || old != v {
			n.attrs[k] = v
			changed = true
		}
	}
	return changed
}

// UpsertRelationship creates the undirected edge source-target with weight 1
// or, if it already exists, increments its weight and merges attrs. The
// relation type set on creation is kept; an empty type is filled in by a
// later non-empty one.
func (s *GraphMemoryStorage) UpsertRelationship(source, target, relType string, attrs map[string]string) error {
	if source == "" || target == "" {
		return fmt.Errorf("%w: relationship without endpoints", store.ErrInvalidElement)
	}
	if source == target {
		return fmt.Errorf("%w: relationship %q points at itself", store.ErrInvalidElement, source)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var missing []string
	for _, id := range []string{source, target} {
		if _, ok := s.nodes[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		if !s.autoCreateNodes {
			slices.Sort(missing)
			return &store.DanglingReferenceError{Source: source, Target: target, Missing: missing}
		}
		for _, id := range missing {
			s.upsertNodeLocked(id, map[string]string{"name": id})
		}
	}

	a, b := store.CanonicalPair(source, target)
	key := store.EdgeKey(a, b)
	e, ok := s.edges[key]
	if !ok {
		e = &edge{source: a, target: b, relType: relType, attrs: make(map[string]string, len(attrs))}
		s.edges[key] = e
		s.adjacency[a][b] = struct{}{}
		s.adjacency[b][a] = struct{}{}
	} else if e.relType == "" {
		e.relType = relType
	}
	e.weight++
	maps.Copy(e.attrs, attrs)
	s.version++

	return nil
}

// Snapshot exports nodes sorted by id and edges sorted by endpoints. Both
// lists are read under one lock, so every edge endpoint is a listed node.
func (s *GraphMemoryStorage) Snapshot() store.Snapshot {
	s.mu.RLock()
	nodes := s.nodesLocked()
	edges := s.edgesLocked()
	s.mu.RUnlock()

	snap := store.Snapshot{
		Nodes: make([]store.SnapshotNode, 0, len(nodes)),
		Edges: make([]store.SnapshotEdge, 0, len(edges)),
	}
	for _, n := range nodes {
		snap.Nodes = append(snap.Nodes, store.SnapshotNode{
			ID:        n.ID,
			Label:     n.Label(),
			Community: n.Community,
		})
	}
	for _, e := range edges {
		snap.Edges = append(snap.Edges, store.SnapshotEdge{
			From:   e.Source,
			To:     e.Target,
			Label:  e.Type,
			Weight: e.Weight,
		})
	}
	return snap
}

// Neighbors returns the sorted ids adjacent to id.
func (s *GraphMemoryStorage) Neighbors(id string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	adj, ok := s.adjacency[id]
	if !ok {
		return nil, &store.NotFoundError{ID: id}
	}
	return slices.Sorted(maps.Keys(adj)), nil
}

func (s *GraphMemoryStorage) Node(id string) (store.Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.nodes[id]
	if !ok {
		return store.Node{}, false
	}
	return exportNode(id, n), true
}

func (s *GraphMemoryStorage) Edge(a, b string) (store.Edge, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.edges[store.EdgeKey(a, b)]
	if !ok {
		return store.Edge{}, false
	}
	return exportEdge(e), true
}

func (s *GraphMemoryStorage) HasNode(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.nodes[id]
	return ok
}

func (s *GraphMemoryStorage) Nodes() []store.Node {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.nodesLocked()
}

func (s *GraphMemoryStorage) nodesLocked() []store.Node {
	out := make([]store.Node, 0, len(s.nodes))
	for _, id := range slices.Sorted(maps.Keys(s.nodes)) {
		out = append(out, exportNode(id, s.nodes[id]))
	}
	return out
}

func (s *GraphMemoryStorage) Edges() []store.Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.edgesLocked()
}

func (s *GraphMemoryStorage) edgesLocked() []store.Edge {
	out := make([]store.Edge, 0, len(s.edges))
	for _, key := range slices.Sorted(maps.Keys(s.edges)) {
		out = append(out, exportEdge(s.edges[key]))
	}
	return out
}

// IncidentEdges returns the edges touching id, ordered by the neighbour id.
func (s *GraphMemoryStorage) IncidentEdges(id string) []store.Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()

	adj := s.adjacency[id]
	out := make([]store.Edge, 0, len(adj))
	for _, other := range slices.Sorted(maps.Keys(adj)) {
		out = append(out, exportEdge(s.edges[store.EdgeKey(id, other)]))
	}
	return out
}

func (s *GraphMemoryStorage) Counts() (int, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.nodes), len(s.edges)
}

func (s *GraphMemoryStorage) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.version
}

func (s *GraphMemoryStorage) SetCommunities(assignment map[string]int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, n := range s.nodes {
		n.community = assignment[id]
	}
}

func exportNode(id string, n *node) store.Node {
	return store.Node{
		ID:         id,
		Attributes: store.CloneAttributes(n.attrs),
		Community:  n.community,
	}
}

func exportEdge(e *edge) store.Edge {
	return store.Edge{
		Source:     e.source,
		Target:     e.target,
		Type:       e.relType,
		Weight:     e.weight,
		Attributes: store.CloneAttributes(e.attrs),
	}
}
