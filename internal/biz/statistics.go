package biz

import (
	"context"

	"StarPort/internal/model"

	"github.com/go-kratos/kratos/v2/log"
)

// QueryLogRepo abstracts the Redis-backed query log, sorted counters, and
// statistics cache. Implemented in the data layer.
type QueryLogRepo interface {
	// RecordQuery appends a person detail-query entry and increments the
	// person's counter.
	RecordQuery(ctx context.Context, personID int, responseTimeMs float64) error

	// RecordFilmQuery appends a film-query entry and increments the film's
	// counter.
	RecordFilmQuery(ctx context.Context, filmID int, responseTimeMs float64) error

	// RecordSearchQuery appends a search-query entry and increments the
	// normalized "type:query" counter member.
	RecordSearchQuery(ctx context.Context, searchType, query string, responseTimeMs float64, resultCount int) error

	// ComputeStatistics streams the logs and counters and builds a fresh
	// report. Store read failures propagate to the caller.
	ComputeStatistics(ctx context.Context) (*model.QueryStatistics, error)

	// GetCachedStatistics returns the cached report, or (nil, nil) on a
	// cache miss.
	GetCachedStatistics(ctx context.Context) (*model.QueryStatistics, error)

	// CacheStatistics overwrites the cached report with the configured TTL.
	CacheStatistics(ctx context.Context, stats *model.QueryStatistics) error
}

// StatisticsUsecase produces query-statistics reports with a read-through
// cache. Concurrent recomputes race benignly: both are pure functions of the
// logs' current content and the last cache write wins.
type StatisticsUsecase struct {
	repo   QueryLogRepo
	logger *log.Helper
}

// NewStatisticsUsecase creates a new StatisticsUsecase.
func NewStatisticsUsecase(repo QueryLogRepo, logger log.Logger) *StatisticsUsecase {
	return &StatisticsUsecase{
		repo:   repo,
		logger: log.NewHelper(logger),
	}
}

// GetStatistics returns the cached report verbatim when present, otherwise
// recomputes and caches a fresh one.
func (uc *StatisticsUsecase) GetStatistics(ctx context.Context) (*model.QueryStatistics, error) {
	cached, err := uc.repo.GetCachedStatistics(ctx)
	if err != nil {
		return nil, err
	}
	if cached != nil {
		uc.logger.Debug("statistics cache hit")
		return cached, nil
	}

	uc.logger.Debug("statistics cache miss, recomputing")
	return uc.Recompute(ctx)
}

// Recompute builds a fresh report and unconditionally overwrites the cache.
func (uc *StatisticsUsecase) Recompute(ctx context.Context) (*model.QueryStatistics, error) {
	stats, err := uc.repo.ComputeStatistics(ctx)
	if err != nil {
		return nil, err
	}

	if err := uc.repo.CacheStatistics(ctx, stats); err != nil {
		return nil, err
	}

	return stats, nil
}
