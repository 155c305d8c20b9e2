package session

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/OFFIS-RIT/kiwi/graphrag/internal/util"
	"github.com/OFFIS-RIT/kiwi/graphrag/pkg/ai/aitest"
	"github.com/OFFIS-RIT/kiwi/graphrag/pkg/community"
	"github.com/OFFIS-RIT/kiwi/graphrag/pkg/graph"
	"github.com/OFFIS-RIT/kiwi/graphrag/pkg/loader"
	loaderio "github.com/OFFIS-RIT/kiwi/graphrag/pkg/loader/io"
	"github.com/OFFIS-RIT/kiwi/graphrag/pkg/query"
	"github.com/OFFIS-RIT/kiwi/graphrag/pkg/store/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu       sync.Mutex
	statuses []GraphStatus
}

func (n *recordingNotifier) NotifyStatus(ctx context.Context, st GraphStatus) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.statuses = append(n.statuses, st)
	return nil
}

func (n *recordingNotifier) all() []GraphStatus {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]GraphStatus(nil), n.statuses...)
}

const twoPeople = `{
	"entities": [
		{"name": "Alice", "type": "PERSON", "description": "Engineer."},
		{"name": "Bob", "type": "PERSON", "description": "Manager."}
	],
	"relationships": [
		{"source": "Alice", "target": "Bob", "type": "relatedTo", "description": "Colleagues."}
	]
}`

func newFake() *aitest.FakeClient {
	return &aitest.FakeClient{
		Structured: func(ctx context.Context, prompt string) (string, error) {
			return twoPeople, nil
		},
		Complete: func(ctx context.Context, prompt string) (string, error) {
			if strings.HasPrefix(prompt, "Context: ") {
				return "answer", nil
			}
			return "summary", nil
		},
	}
}

func newTestSession(t *testing.T, client *aitest.FakeClient, notifiers ...StatusNotifier) *Session {
	t.Helper()
	s := NewSession(NewSessionParams{
		Storage:  memory.NewGraphMemoryStorage(memory.NewGraphMemoryStorageParams{}),
		AIClient: client,
		GraphClient: graph.NewGraphClient(graph.NewGraphClientParams{
			ChunkSize:          1000,
			ParallelAiRequests: 2,
			MaxRetries:         1,
			Backoff:            util.Backoff{Initial: time.Millisecond, Max: time.Millisecond},
		}),
		Strategy:  query.StrategyCommunity,
		Partition: community.PartitionOptions{Resolution: 1, Seed: 42},
		Notifiers: notifiers,
	})
	t.Cleanup(s.Close)
	return s
}

func doc(text string) loader.GraphFile {
	return loader.NewGraphDocumentFile(loader.NewGraphFileParams{
		ID:       "doc",
		FilePath: "doc.txt",
		Loader:   loaderio.NewBytesGraphFileLoader([]byte(text)),
	})
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("finalization did not finish")
	}
}

func TestSessionLifecycle(t *testing.T) {
	notifier := &recordingNotifier{}
	s := newTestSession(t, newFake(), notifier)

	assert.Equal(t, StatusNotStarted, s.Status().Status)

	res, err := s.Ingest(context.Background(), doc("Alice works with Bob."))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Chunks)

	_, err = s.Query(context.Background(), "Who is Alice?")
	assert.ErrorIs(t, err, query.ErrNotFinalized)

	waitDone(t, s.StartFinalize())

	st := s.Status()
	assert.Equal(t, StatusCompleted, st.Status)
	assert.Equal(t, 100, st.Progress)
	assert.Equal(t, "Graph finalization completed", st.Message)
	assert.NotEmpty(t, st.JobID)

	var progress []int
	var messages []string
	for _, n := range notifier.all() {
		progress = append(progress, n.Progress)
		messages = append(messages, n.Message)
	}
	assert.Equal(t, []int{25, 50, 75, 100}, progress)
	assert.Equal(t, []string{
		"Creating element summaries",
		"Creating communities",
		"Creating community summaries",
		"Graph finalization completed",
	}, messages)

	summaries, err := s.CommunitySummaries()
	require.NoError(t, err)
	assert.Equal(t, map[int]string{1: "summary"}, summaries)

	snap := s.Graph()
	require.Len(t, snap.Nodes, 2)
	assert.Equal(t, 1, snap.Nodes[0].Community)

	answer, err := s.Query(context.Background(), "Who is Alice?")
	require.NoError(t, err)
	assert.Equal(t, "answer", answer)
}

func TestSessionIngestAfterFinalizeInvalidates(t *testing.T) {
	client := newFake()
	s := newTestSession(t, client)

	_, err := s.Ingest(context.Background(), doc("Alice works with Bob."))
	require.NoError(t, err)
	waitDone(t, s.StartFinalize())
	require.Equal(t, StatusCompleted, s.Status().Status)

	_, err = s.Ingest(context.Background(), doc("Alice met Bob again."))
	require.NoError(t, err)

	st := s.Status()
	assert.Equal(t, StatusNotStarted, st.Status)
	assert.Equal(t, "Graph changed since last finalization", st.Message)

	for _, n := range s.Graph().Nodes {
		assert.Equal(t, 0, n.Community, n.ID)
	}

	_, err = s.Query(context.Background(), "q")
	assert.ErrorIs(t, err, query.ErrStaleCommunities)

	waitDone(t, s.StartFinalize())
	_, err = s.Query(context.Background(), "q")
	assert.NoError(t, err)
}

func TestSessionFinalizeCollapsesConcurrentTriggers(t *testing.T) {
	release := make(chan struct{})
	client := newFake()
	client.Complete = func(ctx context.Context, prompt string) (string, error) {
		<-release
		return "summary", nil
	}
	notifier := &recordingNotifier{}
	s := newTestSession(t, client, notifier)

	_, err := s.Ingest(context.Background(), doc("Alice works with Bob."))
	require.NoError(t, err)

	first := s.StartFinalize()
	second := s.StartFinalize()
	close(release)
	waitDone(t, first)
	waitDone(t, second)

	completed := 0
	for _, st := range notifier.all() {
		if st.Status == StatusCompleted {
			completed++
		}
	}
	assert.Equal(t, 1, completed)
}

func TestSessionFinalizeEmptyGraph(t *testing.T) {
	s := newTestSession(t, newFake())

	waitDone(t, s.StartFinalize())
	assert.Equal(t, StatusCompleted, s.Status().Status)

	summaries, err := s.CommunitySummaries()
	require.NoError(t, err)
	assert.Empty(t, summaries)
}

func TestSessionCloseAbortsFinalize(t *testing.T) {
	started := make(chan struct{})
	var once sync.Once
	client := newFake()
	client.Complete = func(ctx context.Context, prompt string) (string, error) {
		once.Do(func() { close(started) })
		<-ctx.Done()
		return "", ctx.Err()
	}
	s := newTestSession(t, client)

	_, err := s.Ingest(context.Background(), doc("Alice works with Bob."))
	require.NoError(t, err)

	done := s.StartFinalize()
	<-started
	s.Close()
	waitDone(t, done)

	st := s.Status()
	assert.Equal(t, StatusError, st.Status)
	assert.Equal(t, -1, st.Progress)
	assert.True(t, strings.HasPrefix(st.Message, "Error: "), st.Message)
}

func TestSessionIngestDuringFinalize(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	client := newFake()
	client.Complete = func(ctx context.Context, prompt string) (string, error) {
		once.Do(func() { close(started) })
		<-release
		return "summary", nil
	}
	notifier := &recordingNotifier{}
	s := newTestSession(t, client, notifier)

	_, err := s.Ingest(context.Background(), doc("Alice works with Bob."))
	require.NoError(t, err)

	done := s.StartFinalize()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	res, err := s.Ingest(ctx, doc("Alice met Bob again."))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Relationships)

	close(release)
	waitDone(t, done)

	st := s.Status()
	assert.Equal(t, StatusNotStarted, st.Status)
	assert.Equal(t, 0, st.Progress)
	assert.Equal(t, "Graph changed since last finalization", st.Message)
	for _, n := range notifier.all() {
		assert.NotEqual(t, StatusCompleted, n.Status)
	}

	_, err = s.CommunitySummaries()
	assert.ErrorIs(t, err, query.ErrStaleCommunities)
	for _, n := range s.Graph().Nodes {
		assert.Equal(t, 0, n.Community, n.ID)
	}

	waitDone(t, s.StartFinalize())
	assert.Equal(t, StatusCompleted, s.Status().Status)
}

func TestSessionIngestHonoursContextWhileWaiting(t *testing.T) {
	s := newTestSession(t, newFake())

	require.NoError(t, s.writeSem.Acquire(context.Background(), 1))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := s.Ingest(ctx, doc("Alice works with Bob."))
	s.writeSem.Release(1)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, s.Graph().Nodes)
}
