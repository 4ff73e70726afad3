package biz

import (
	"context"
	"sync"
	"time"

	"github.com/go-kratos/kratos/v2/log"
)

// metricEvent is one queued metrics record.
type metricEvent struct {
	kind           string // "person", "film", or "search"
	subjectID      int
	searchType     string
	query          string
	responseTimeMs float64
	resultCount    int
}

// MetricsRecorder appends one event per served request to the query log,
// decoupled from the request path by a bounded queue and a single worker
// goroutine. Recording is best-effort: a full queue drops the event with a
// warning, and persistence failures are logged, never propagated.
type MetricsRecorder struct {
	repo   QueryLogRepo
	queue  chan metricEvent
	logger *log.Helper

	stopOnce sync.Once
	done     chan struct{}
}

// NewMetricsRecorder creates a MetricsRecorder and starts its worker.
// queueSize bounds the in-flight events; values < 1 fall back to 1024.
func NewMetricsRecorder(repo QueryLogRepo, queueSize int, logger log.Logger) *MetricsRecorder {
	if queueSize < 1 {
		queueSize = 1024
	}

	r := &MetricsRecorder{
		repo:   repo,
		queue:  make(chan metricEvent, queueSize),
		logger: log.NewHelper(logger),
		done:   make(chan struct{}),
	}

	go r.run()

	return r
}

// RecordPersonQuery records a person detail query. Never blocks.
func (r *MetricsRecorder) RecordPersonQuery(personID int, responseTimeMs float64) {
	r.enqueue(metricEvent{kind: "person", subjectID: personID, responseTimeMs: responseTimeMs})
}

// RecordFilmQuery records a film query. Never blocks.
func (r *MetricsRecorder) RecordFilmQuery(filmID int, responseTimeMs float64) {
	r.enqueue(metricEvent{kind: "film", subjectID: filmID, responseTimeMs: responseTimeMs})
}

// RecordSearchQuery records a search query. Never blocks.
func (r *MetricsRecorder) RecordSearchQuery(searchType, query string, responseTimeMs float64, resultCount int) {
	r.enqueue(metricEvent{
		kind:           "search",
		searchType:     searchType,
		query:          query,
		responseTimeMs: responseTimeMs,
		resultCount:    resultCount,
	})
}

// enqueue submits an event, dropping it when the queue is full.
func (r *MetricsRecorder) enqueue(ev metricEvent) {
	select {
	case r.queue <- ev:
	default:
		r.logger.Warnw("msg", "metrics queue full, dropping event", "kind", ev.kind)
	}
}

// Stop drains the queue and stops the worker. Safe to call more than once.
func (r *MetricsRecorder) Stop() {
	r.stopOnce.Do(func() {
		close(r.queue)
		<-r.done
	})
}

func (r *MetricsRecorder) run() {
	defer close(r.done)

	for ev := range r.queue {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)

		var err error
		switch ev.kind {
		case "person":
			err = r.repo.RecordQuery(ctx, ev.subjectID, ev.responseTimeMs)
		case "film":
			err = r.repo.RecordFilmQuery(ctx, ev.subjectID, ev.responseTimeMs)
		case "search":
			err = r.repo.RecordSearchQuery(ctx, ev.searchType, ev.query, ev.responseTimeMs, ev.resultCount)
		}

		cancel()

		if err != nil {
			r.logger.Warnw("msg", "failed to record metric", "kind", ev.kind, "error", err)
		}
	}
}
