// Package session owns the knowledge graph of one running service: it
// serializes graph writes, runs finalization in the background and keeps
// the derived community state that queries read.
package session

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/OFFIS-RIT/kiwi/graphrag/pkg/ai"
	"github.com/OFFIS-RIT/kiwi/graphrag/pkg/community"
	"github.com/OFFIS-RIT/kiwi/graphrag/pkg/graph"
	"github.com/OFFIS-RIT/kiwi/graphrag/pkg/loader"
	"github.com/OFFIS-RIT/kiwi/graphrag/pkg/logger"
	"github.com/OFFIS-RIT/kiwi/graphrag/pkg/query"
	"github.com/OFFIS-RIT/kiwi/graphrag/pkg/query/base"
	"github.com/OFFIS-RIT/kiwi/graphrag/pkg/store"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
)

// derivedState is computed by finalization from the graph at version.
type derivedState struct {
	version            uint64
	communitySummaries map[int]string
}

// Session is safe for concurrent use. Create it with NewSession and call
// Close on shutdown to stop a running finalization.
type Session struct {
	storage     store.GraphStorage
	aiClient    ai.GraphAIClient
	graphClient *graph.GraphClient
	summarizer  *community.Summarizer
	partition   community.PartitionOptions
	queryClient *base.BaseQueryClient
	notifiers   []StatusNotifier

	// writeSem serializes graph mutations and the start and commit steps
	// of finalization.
	writeSem *semaphore.Weighted

	mu      sync.RWMutex
	status  GraphStatus
	derived *derivedState

	group singleflight.Group
	jobs  sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
}

type NewSessionParams struct {
	Storage      store.GraphStorage
	AIClient     ai.GraphAIClient
	GraphClient  *graph.GraphClient
	Strategy     query.Strategy
	Partition    community.PartitionOptions
	Notifiers    []StatusNotifier
	QueryOptions []base.QueryOption
}

func NewSession(params NewSessionParams) *Session {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Session{
		storage:     params.Storage,
		aiClient:    params.AIClient,
		graphClient: params.GraphClient,
		summarizer: community.NewSummarizer(community.NewSummarizerParams{
			AIClient:           params.AIClient,
			Policy:             params.GraphClient.Policy(),
			ParallelAiRequests: params.GraphClient.ParallelAiRequests(),
		}),
		partition: params.Partition,
		notifiers: params.Notifiers,
		writeSem:  semaphore.NewWeighted(1),
		status: GraphStatus{
			Status:    StatusNotStarted,
			UpdatedAt: time.Now(),
		},
		ctx:    ctx,
		cancel: cancel,
	}
	s.queryClient = base.NewBaseQueryClient(base.NewBaseQueryClientParams{
		AIClient:    params.AIClient,
		Storage:     params.Storage,
		GraphClient: params.GraphClient,
		Communities: s,
		Strategy:    params.Strategy,
	}, params.QueryOptions...)

	return s
}

// Close cancels a running finalization and waits for it to stop.
func (s *Session) Close() {
	s.cancel()
	s.jobs.Wait()
}

// Ingest extracts elements from file and adds them to the graph. Extraction
// runs without holding the write lock; applying the elements does. Waiting
// for the lock honours ctx.
func (s *Session) Ingest(ctx context.Context, file loader.GraphFile) (graph.IngestResult, error) {
	results, err := s.graphClient.ExtractDocument(ctx, file, s.aiClient)
	if err != nil {
		return graph.IngestResult{}, err
	}

	if err := s.writeSem.Acquire(ctx, 1); err != nil {
		return graph.IngestResult{}, err
	}
	defer s.writeSem.Release(1)
	if err := ctx.Err(); err != nil {
		return graph.IngestResult{}, err
	}

	before := s.storage.Version()
	res := graph.ApplyChunks(results, s.storage)
	if s.storage.Version() != before {
		s.invalidate()
	}

	return res, nil
}

// invalidate clears the community assignment and moves a completed
// finalization back to not started. The caller holds writeSem.
func (s *Session) invalidate() {
	s.storage.SetCommunities(nil)

	s.mu.Lock()
	if s.status.Status != StatusCompleted {
		s.mu.Unlock()
		return
	}
	s.status = GraphStatus{
		Status:    StatusNotStarted,
		Message:   msgGraphChanged,
		UpdatedAt: time.Now(),
	}
	st := s.status
	s.mu.Unlock()

	s.notify(st)
}

// Graph returns a copy of the current graph.
func (s *Session) Graph() store.Snapshot {
	return s.storage.Snapshot()
}

// Status returns the current finalization status.
func (s *Session) Status() GraphStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Strategy returns the query strategy in use.
func (s *Session) Strategy() query.Strategy {
	return s.queryClient.Strategy()
}

// Query answers q with the configured strategy.
func (s *Session) Query(ctx context.Context, q string) (string, error) {
	return s.queryClient.Query(ctx, q)
}

// CommunitySummaries implements query.CommunitySource.
func (s *Session) CommunitySummaries() (map[int]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.derived == nil {
		return nil, query.ErrNotFinalized
	}
	if s.derived.version != s.storage.Version() {
		return nil, query.ErrStaleCommunities
	}
	return maps.Clone(s.derived.communitySummaries), nil
}

// StartFinalize starts finalization in the background. A call while a run
// is in flight joins that run instead of starting another one. The
// returned channel is closed when the run ends.
func (s *Session) StartFinalize() <-chan struct{} {
	ch := s.group.DoChan("finalize", func() (any, error) {
		s.finalize(s.ctx)
		return nil, nil
	})

	done := make(chan struct{})
	s.jobs.Add(1)
	go func() {
		defer s.jobs.Done()
		defer close(done)
		<-ch
	}()
	return done
}

func (s *Session) setStatus(status Status, progress int, message string, jobID string) {
	s.mu.Lock()
	s.status = GraphStatus{
		Status:    status,
		Progress:  progress,
		Message:   message,
		JobID:     jobID,
		UpdatedAt: time.Now(),
	}
	st := s.status
	s.mu.Unlock()

	s.notify(st)
}

func (s *Session) notify(st GraphStatus) {
	for _, n := range s.notifiers {
		if err := n.NotifyStatus(s.ctx, st); err != nil {
			logger.Warn("[Session] Status notification failed", "status", st.Status, "err", err)
		}
	}
}

func (s *Session) finalize(ctx context.Context) {
	jobID, err := gonanoid.New()
	if err != nil {
		jobID = ""
	}
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			logger.Error("[Session] Finalization panicked", "job", jobID, "panic", r)
			s.setStatus(StatusError, -1, fmt.Sprintf("Error: %v", r), jobID)
		}
	}()

	if err := s.run(ctx, jobID); err != nil {
		logger.Error("[Session] Finalization failed", "job", jobID, "err", err)
		s.setStatus(StatusError, -1, fmt.Sprintf("Error: %v", err), jobID)
		return
	}

	usage := s.aiClient.GetMetrics()
	logger.Info(
		"[Session] Finalization ended",
		"job", jobID,
		"duration", time.Since(start),
		"requests", usage.Requests,
		"total_tokens", usage.TotalTokens,
	)
}

// run reads the graph without holding writeSem, so uploads proceed while
// it works. The result is committed only if the graph is still at the
// version the run started from.
func (s *Session) run(ctx context.Context, jobID string) error {
	if err := s.writeSem.Acquire(ctx, 1); err != nil {
		return err
	}
	version := s.storage.Version()
	nodes, edges := s.storage.Counts()
	s.writeSem.Release(1)

	logger.Info("[Session] Finalizing graph", "job", jobID, "version", version, "nodes", nodes, "edges", edges)

	partition, communitySummaries, err := s.runFinalize(ctx, jobID)
	if err != nil {
		return err
	}

	if err := s.writeSem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer s.writeSem.Release(1)

	s.mu.Lock()
	s.derived = &derivedState{
		version:            version,
		communitySummaries: communitySummaries,
	}
	s.mu.Unlock()

	if current := s.storage.Version(); current != version {
		logger.Warn("[Session] Graph changed during finalization", "job", jobID, "started", version, "current", current)
		s.storage.SetCommunities(nil)
		s.setStatus(StatusNotStarted, 0, msgGraphChanged, jobID)
		return nil
	}

	s.storage.SetCommunities(partition)
	s.setStatus(StatusCompleted, 100, msgCompleted, jobID)
	return nil
}

// runFinalize is the pipeline: element summaries, partition, community
// summaries.
func (s *Session) runFinalize(ctx context.Context, jobID string) (map[string]int, map[int]string, error) {
	s.setStatus(StatusInProgress, 25, msgElementSummaries, jobID)
	elementSummaries := s.summarizer.SummarizeElements(ctx, s.storage)
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	s.setStatus(StatusInProgress, 50, msgCommunities, jobID)
	partition, err := community.Partition(ctx, s.storage, s.partition)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to detect communities: %w", err)
	}

	s.setStatus(StatusInProgress, 75, msgCommunitySummaries, jobID)
	communitySummaries := s.summarizer.SummarizeCommunities(ctx, partition, s.storage, elementSummaries)
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	return partition, communitySummaries, nil
}
