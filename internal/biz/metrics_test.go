package biz

import (
	"context"
	"os"
	"sync"
	"testing"

	"StarPort/internal/model"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordedEvent captures one repo write made by the metrics worker.
type recordedEvent struct {
	kind           string
	subjectID      int
	searchType     string
	query          string
	responseTimeMs float64
	resultCount    int
}

// fakeQueryLogRepo is an in-memory QueryLogRepo for usecase tests.
type fakeQueryLogRepo struct {
	mu     sync.Mutex
	events []recordedEvent

	// optional hooks
	recordStarted chan struct{}
	blockRecords  chan struct{}
	computeErr    error

	computed    *model.QueryStatistics
	cached      *model.QueryStatistics
	computeCnt  int
	cacheWrites int
}

func (f *fakeQueryLogRepo) RecordQuery(ctx context.Context, personID int, responseTimeMs float64) error {
	if f.recordStarted != nil {
		f.recordStarted <- struct{}{}
	}
	if f.blockRecords != nil {
		<-f.blockRecords
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedEvent{kind: "person", subjectID: personID, responseTimeMs: responseTimeMs})
	return nil
}

func (f *fakeQueryLogRepo) RecordFilmQuery(ctx context.Context, filmID int, responseTimeMs float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedEvent{kind: "film", subjectID: filmID, responseTimeMs: responseTimeMs})
	return nil
}

func (f *fakeQueryLogRepo) RecordSearchQuery(ctx context.Context, searchType, query string, responseTimeMs float64, resultCount int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedEvent{
		kind:           "search",
		searchType:     searchType,
		query:          query,
		responseTimeMs: responseTimeMs,
		resultCount:    resultCount,
	})
	return nil
}

func (f *fakeQueryLogRepo) ComputeStatistics(ctx context.Context) (*model.QueryStatistics, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.computeCnt++
	if f.computeErr != nil {
		return nil, f.computeErr
	}
	return f.computed, nil
}

func (f *fakeQueryLogRepo) GetCachedStatistics(ctx context.Context) (*model.QueryStatistics, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cached, nil
}

func (f *fakeQueryLogRepo) CacheStatistics(ctx context.Context, stats *model.QueryStatistics) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cached = stats
	f.cacheWrites++
	return nil
}

func (f *fakeQueryLogRepo) recorded() []recordedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]recordedEvent, len(f.events))
	copy(out, f.events)
	return out
}

// Test that queued events reach the repo and Stop drains the queue
func TestMetricsRecorder_RecordsEvents(t *testing.T) {
	repo := &fakeQueryLogRepo{}
	logger := log.NewStdLogger(os.Stdout)

	recorder := NewMetricsRecorder(repo, 16, logger)

	recorder.RecordPersonQuery(1, 120.5)
	recorder.RecordFilmQuery(4, 80.0)
	recorder.RecordSearchQuery("people", "Luke", 50.0, 3)

	recorder.Stop()

	events := repo.recorded()
	require.Len(t, events, 3)
	assert.Equal(t, recordedEvent{kind: "person", subjectID: 1, responseTimeMs: 120.5}, events[0])
	assert.Equal(t, recordedEvent{kind: "film", subjectID: 4, responseTimeMs: 80.0}, events[1])
	assert.Equal(t, recordedEvent{kind: "search", searchType: "people", query: "Luke", responseTimeMs: 50.0, resultCount: 3}, events[2])
}

// Test that a full queue drops new events instead of blocking the caller
func TestMetricsRecorder_DropsWhenFull(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 4)
	repo := &fakeQueryLogRepo{blockRecords: release, recordStarted: started}
	logger := log.NewStdLogger(os.Stdout)

	recorder := NewMetricsRecorder(repo, 1, logger)

	// First event occupies the worker, second fills the queue slot
	recorder.RecordPersonQuery(1, 10.0)
	<-started
	recorder.RecordPersonQuery(2, 20.0)

	// Queue is full now; this one is dropped without blocking
	recorder.RecordPersonQuery(3, 30.0)

	close(release)
	recorder.Stop()

	events := repo.recorded()
	require.Len(t, events, 2)
	assert.Equal(t, 1, events[0].subjectID)
	assert.Equal(t, 2, events[1].subjectID)
}

// Test that Stop is idempotent
func TestMetricsRecorder_StopTwice(t *testing.T) {
	repo := &fakeQueryLogRepo{}
	logger := log.NewStdLogger(os.Stdout)

	recorder := NewMetricsRecorder(repo, 4, logger)
	recorder.RecordFilmQuery(1, 5.0)

	recorder.Stop()
	recorder.Stop()

	assert.Len(t, repo.recorded(), 1)
}
