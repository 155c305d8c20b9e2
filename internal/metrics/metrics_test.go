package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/OFFIS-RIT/kiwi/graphrag/pkg/ai/aitest"
	"github.com/OFFIS-RIT/kiwi/graphrag/pkg/graph"
	"github.com/OFFIS-RIT/kiwi/graphrag/pkg/session"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestObserveIngest(t *testing.T) {
	m := NewMetrics()
	m.ObserveIngest(graph.IngestResult{Chunks: 3, FailedChunks: 1, Entities: 4, Relationships: 2, SkippedRelationships: 1})
	m.ObserveIngest(graph.IngestResult{Chunks: 1})

	assert.Equal(t, 4.0, testutil.ToFloat64(m.ingestedChunks))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failedChunks))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.ingestedEntities))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.skippedRelationships))
}

func TestNotifyStatus(t *testing.T) {
	m := NewMetrics()
	ctx := context.Background()

	require.NoError(t, m.NotifyStatus(ctx, session.GraphStatus{Status: session.StatusInProgress, Progress: 50}))
	assert.Equal(t, 50.0, testutil.ToFloat64(m.finalizeProgress))

	require.NoError(t, m.NotifyStatus(ctx, session.GraphStatus{Status: session.StatusCompleted, Progress: 100}))
	require.NoError(t, m.NotifyStatus(ctx, session.GraphStatus{Status: session.StatusError, Progress: -1}))

	assert.Equal(t, -1.0, testutil.ToFloat64(m.finalizeProgress))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.finalizeTotal.WithLabelValues("Completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.finalizeTotal.WithLabelValues("Error")))
}

func TestRegisterOracle(t *testing.T) {
	client := &aitest.FakeClient{}
	_, err := client.GenerateCompletion(context.Background(), "0123456789")
	require.NoError(t, err)

	m := NewMetrics()
	m.RegisterOracle(client)
	m.ObserveRequest(http.MethodPost, "/query", http.StatusOK, 20*time.Millisecond)

	body := scrape(t, m)
	assert.Contains(t, body, "graphrag_oracle_requests_total 1")
	assert.Contains(t, body, "graphrag_oracle_input_tokens_total 10")
	assert.Contains(t, body, "graphrag_oracle_output_tokens_total 0")
	assert.Contains(t, body, `graphrag_http_requests_total{code="200",method="POST",route="/query"} 1`)
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.ObserveRequest(http.MethodGet, "/graph", http.StatusOK, time.Millisecond)
	m.ObserveIngest(graph.IngestResult{Chunks: 1})
	m.RegisterOracle(&aitest.FakeClient{})
	assert.NoError(t, m.NotifyStatus(context.Background(), session.GraphStatus{}))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
