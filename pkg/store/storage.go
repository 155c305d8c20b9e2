package store

import (
	"maps"
	"strings"
)

// Node is an entity in the graph. Community is 0 until a partition has
// been applied.
type Node struct {
	ID         string            `json:"id"`
	Attributes map[string]string `json:"attributes"`
	Community  int               `json:"community,omitempty"`
}

// Label returns the display name of the node, falling back to its id.
func (n Node) Label() string {
	if name := strings.TrimSpace(n.Attributes["name"]); name != "" {
		return name
	}
	return n.ID
}

// Edge is an undirected, weighted relationship. Source and Target are kept
// in canonical order (Source < Target).
type Edge struct {
	Source     string            `json:"source"`
	Target     string            `json:"target"`
	Type       string            `json:"type"`
	Weight     int               `json:"weight"`
	Attributes map[string]string `json:"attributes"`
}

// Key returns the canonical key of the edge.
func (e Edge) Key() string {
	return EdgeKey(e.Source, e.Target)
}

// Other returns the endpoint of e that is not id.
func (e Edge) Other(id string) string {
	if e.Source == id {
		return e.Target
	}
	return e.Source
}

// CanonicalPair orders two endpoint ids so that the pair is independent of direction.
func CanonicalPair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}

// EdgeKey returns the key shared by (a, b) and (b, a).
func EdgeKey(a, b string) string {
	a, b = CanonicalPair(a, b)
	return a + "|" + b
}

// SnapshotNode is the presentation form of a node.
type SnapshotNode struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	Community int    `json:"community,omitempty"`
}

// SnapshotEdge is the presentation form of an edge.
type SnapshotEdge struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Label  string `json:"label"`
	Weight int    `json:"weight"`
}

// Snapshot is a detached, read-only export of the graph.
type Snapshot struct {
	Nodes []SnapshotNode `json:"nodes"`
	Edges []SnapshotEdge `json:"edges"`
}

// GraphStorage is the mutable knowledge graph. Implementations must be safe
// for concurrent readers; callers serialize writers.
//
// Reads return copies. Mutating a returned Node or Edge never changes the
// stored graph.
type GraphStorage interface {
	UpsertEntity(id string, attrs map[string]string) error
	UpsertRelationship(source, target, relType string, attrs map[string]string) error

	Snapshot() Snapshot
	Neighbors(id string) ([]string, error)

	Node(id string) (Node, bool)
	Edge(a, b string) (Edge, bool)
	HasNode(id string) bool
	Nodes() []Node
	Edges() []Edge
	IncidentEdges(id string) []Edge
	Counts() (nodes int, edges int)

	// Version increases with every change to nodes or edges.
	Version() uint64

	// SetCommunities stores a partition on the nodes. Nodes missing from
	// assignment are reset to 0. It does not change Version.
	SetCommunities(assignment map[string]int)
}

// CloneAttributes returns a copy of attrs that is never nil.
func CloneAttributes(attrs map[string]string) map[string]string {
	out := make(map[string]string, len(attrs))
	maps.Copy(out, attrs)
	return out
}
