package memory

import (
	"errors"
	"fmt"
	"testing"

	"github.com/OFFIS-RIT/kiwi/graphrag/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStrict() *GraphMemoryStorage {
	return NewGraphMemoryStorage(NewGraphMemoryStorageParams{})
}

func TestUpsertEntityIdempotent(t *testing.T) {
	s := newStrict()
	attrs := map[string]string{"name": "Alpha"}

	require.NoError(t, s.UpsertEntity("A", attrs))
	v := s.Version()
	require.NoError(t, s.UpsertEntity("A", attrs))

	nodes, edges := s.Counts()
	assert.Equal(t, 1, nodes)
	assert.Equal(t, 0, edges)
	assert.Equal(t, v, s.Version(), "identical upsert must not change the graph")

	n, ok := s.Node("A")
	require.True(t, ok)
	assert.Equal(t, map[string]string{"name": "Alpha"}, n.Attributes)
}

func TestUpsertEntityMergesAttributes(t *testing.T) {
	s := newStrict()
	require.NoError(t, s.UpsertEntity("A", map[string]string{"name": "Alpha", "type": "ORG"}))
	require.NoError(t, s.UpsertEntity("A", map[string]string{"name": "Alpha Inc", "description": "x"}))

	n, _ := s.Node("A")
	assert.Equal(t, map[string]string{"name": "Alpha Inc", "type": "ORG", "description": "x"}, n.Attributes)
	assert.Equal(t, "Alpha Inc", n.Label())
}

func TestUpsertEntityRejectsEmptyID(t *testing.T) {
	err := newStrict().UpsertEntity("", nil)
	assert.ErrorIs(t, err, store.ErrInvalidElement)
}

func TestUpsertRelationshipNoDuplicates(t *testing.T) {
	s := newStrict()
	require.NoError(t, s.UpsertEntity("A", nil))
	require.NoError(t, s.UpsertEntity("B", nil))

	calls := []struct{ src, dst string }{
		{"A", "B"}, {"B", "A"}, {"A", "B"}, {"B", "A"}, {"A", "B"},
	}
	for i, c := range calls {
		require.NoError(t, s.UpsertRelationship(c.src, c.dst, "relatedTo", map[string]string{"n": fmt.Sprint(i)}))
	}

	_, edges := s.Counts()
	assert.Equal(t, 1, edges)

	e, ok := s.Edge("B", "A")
	require.True(t, ok)
	assert.Equal(t, len(calls), e.Weight)
	assert.Equal(t, "A", e.Source)
	assert.Equal(t, "B", e.Target)
	assert.Equal(t, "relatedTo", e.Type)
	assert.Equal(t, "4", e.Attributes["n"], "attributes merge-overwrite")
}

func TestUpsertRelationshipKeepsFirstType(t *testing.T) {
	s := newStrict()
	require.NoError(t, s.UpsertEntity("A", nil))
	require.NoError(t, s.UpsertEntity("B", nil))
	require.NoError(t, s.UpsertEntity("C", nil))

	require.NoError(t, s.UpsertRelationship("A", "B", "owns", nil))
	require.NoError(t, s.UpsertRelationship("B", "A", "sold", nil))
	require.NoError(t, s.UpsertRelationship("A", "C", "", nil))
	require.NoError(t, s.UpsertRelationship("C", "A", "knows", nil))

	ab, _ := s.Edge("A", "B")
	ac, _ := s.Edge("A", "C")
	assert.Equal(t, "owns", ab.Type)
	assert.Equal(t, "knows", ac.Type)
}

func TestUpsertRelationshipDangling(t *testing.T) {
	s := newStrict()
	require.NoError(t, s.UpsertEntity("A", nil))
	v := s.Version()

	err := s.UpsertRelationship("A", "Z", "knows", nil)

	var dangling *store.DanglingReferenceError
	require.ErrorAs(t, err, &dangling)
	assert.ErrorIs(t, err, store.ErrDanglingReference)
	assert.Equal(t, []string{"Z"}, dangling.Missing)
	assert.False(t, s.HasNode("Z"))
	assert.Equal(t, v, s.Version())

	_, edges := s.Counts()
	assert.Equal(t, 0, edges)
}

func TestUpsertRelationshipAutoCreate(t *testing.T) {
	s := NewGraphMemoryStorage(NewGraphMemoryStorageParams{AutoCreateNodes: true})

	require.NoError(t, s.UpsertRelationship("A", "B", "knows", nil))

	nodes, edges := s.Counts()
	assert.Equal(t, 2, nodes)
	assert.Equal(t, 1, edges)
	n, _ := s.Node("B")
	assert.Equal(t, "B", n.Label())
}

func TestUpsertRelationshipSelfLoop(t *testing.T) {
	s := newStrict()
	require.NoError(t, s.UpsertEntity("A", nil))
	assert.ErrorIs(t, s.UpsertRelationship("A", "A", "is", nil), store.ErrInvalidElement)
}

func TestNeighbors(t *testing.T) {
	s := newStrict()
	for _, id := range []string{"A", "B", "C", "D"} {
		require.NoError(t, s.UpsertEntity(id, nil))
	}
	require.NoError(t, s.UpsertRelationship("C", "A", "x", nil))
	require.NoError(t, s.UpsertRelationship("A", "B", "y", nil))

	got, err := s.Neighbors("A")
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "C"}, got)

	got, err = s.Neighbors("D")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = s.Neighbors("missing")
	var nf *store.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "missing", nf.ID)
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestSnapshotIsDetached(t *testing.T) {
	s := newStrict()
	require.NoError(t, s.UpsertEntity("A", map[string]string{"name": "Alpha"}))
	require.NoError(t, s.UpsertEntity("B", nil))
	require.NoError(t, s.UpsertRelationship("A", "B", "relatedTo", nil))
	s.SetCommunities(map[string]int{"A": 1, "B": 1})

	snap := s.Snapshot()
	assert.Equal(t, []store.SnapshotNode{
		{ID: "A", Label: "Alpha", Community: 1},
		{ID: "B", Label: "B", Community: 1},
	}, snap.Nodes)
	assert.Equal(t, []store.SnapshotEdge{{From: "A", To: "B", Label: "relatedTo", Weight: 1}}, snap.Edges)

	snap.Nodes[0].Label = "changed"
	n, _ := s.Node("A")
	n.Attributes["name"] = "changed"

	again, _ := s.Node("A")
	assert.Equal(t, "Alpha", again.Label())
	assert.Equal(t, "Alpha", s.Snapshot().Nodes[0].Label)
}

func TestSnapshotConsistentUnderWrites(t *testing.T) {
	s := NewGraphMemoryStorage(NewGraphMemoryStorageParams{AutoCreateNodes: true})

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 500; i++ {
			_ = s.UpsertRelationship(fmt.Sprintf("N%d", i), fmt.Sprintf("N%d", i+1), "next", nil)
		}
	}()

	for finished := false; !finished; {
		select {
		case <-done:
			finished = true
		default:
		}
		snap := s.Snapshot()
		ids := make(map[string]bool, len(snap.Nodes))
		for _, n := range snap.Nodes {
			ids[n.ID] = true
		}
		for _, e := range snap.Edges {
			require.True(t, ids[e.From], "edge %s-%s without node %s", e.From, e.To, e.From)
			require.True(t, ids[e.To], "edge %s-%s without node %s", e.From, e.To, e.To)
		}
	}
}

func TestSetCommunitiesNilClearsAssignment(t *testing.T) {
	s := newStrict()
	require.NoError(t, s.UpsertEntity("A", nil))
	s.SetCommunities(map[string]int{"A": 3})

	s.SetCommunities(nil)
	n, ok := s.Node("A")
	require.True(t, ok)
	assert.Equal(t, 0, n.Community)
}

func TestSetCommunitiesResetsMissingAndKeepsVersion(t *testing.T) {
	s := newStrict()
	require.NoError(t, s.UpsertEntity("A", nil))
	require.NoError(t, s.UpsertEntity("B", nil))
	v := s.Version()

	s.SetCommunities(map[string]int{"A": 2, "B": 3})
	s.SetCommunities(map[string]int{"A": 1})

	a, _ := s.Node("A")
	b, _ := s.Node("B")
	assert.Equal(t, 1, a.Community)
	assert.Equal(t, 0, b.Community)
	assert.Equal(t, v, s.Version())
}

func TestIncidentEdgesOrdered(t *testing.T) {
	s := newStrict()
	for _, id := range []string{"A", "B", "C"} {
		require.NoError(t, s.UpsertEntity(id, nil))
	}
	require.NoError(t, s.UpsertRelationship("C", "B", "z", nil))
	require.NoError(t, s.UpsertRelationship("B", "A", "y", nil))

	edges := s.IncidentEdges("B")
	require.Len(t, edges, 2)
	assert.Equal(t, "A", edges[0].Other("B"))
	assert.Equal(t, "C", edges[1].Other("B"))
	assert.Empty(t, s.IncidentEdges("missing"))
}
