package data

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"StarPort/internal/biz"
	"StarPort/internal/conf"
	"StarPort/internal/model"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/redis/go-redis/v9"
)

// statsBatchSize bounds how many log entries one LRANGE call reads, so
// recomputation never loads an entire log into memory.
const statsBatchSize = 1000

// logEntry is one append-only query log record. Person entries carry
// PersonID, film entries FilmID, search entries SearchType/Query/ResultCount.
type logEntry struct {
	PersonID       int     `json:"person_id,omitempty"`
	FilmID         int     `json:"film_id,omitempty"`
	SearchType     string  `json:"search_type,omitempty"`
	Query          string  `json:"query,omitempty"`
	ResultCount    int     `json:"result_count,omitempty"`
	ResponseTimeMs float64 `json:"response_time_ms"`
	Timestamp      string  `json:"timestamp"`
	Hour           int     `json:"hour"`
}

// QueryLogRepo is the Redis implementation of biz.QueryLogRepo: three
// append-only lists paired with sorted-set counters, plus a TTL cache for
// the computed report.
type QueryLogRepo struct {
	rdb    *redis.Client
	conf   *conf.Statistics
	logger *log.Helper
}

var _ biz.QueryLogRepo = (*QueryLogRepo)(nil)

// NewQueryLogRepo creates a new query log repository.
func NewQueryLogRepo(c *conf.Statistics, rdb *redis.Client, logger log.Logger) *QueryLogRepo {
	return &QueryLogRepo{
		rdb:    rdb,
		conf:   c,
		logger: log.NewHelper(logger),
	}
}

// RecordQuery appends a person detail-query entry and increments the
// person's sorted counter.
func (r *QueryLogRepo) RecordQuery(ctx context.Context, personID int, responseTimeMs float64) error {
	now := time.Now()
	entry := logEntry{
		PersonID:       personID,
		ResponseTimeMs: responseTimeMs,
		Timestamp:      now.Format(time.RFC3339),
		Hour:           now.Hour(),
	}

	return r.appendEntry(ctx, r.conf.QueryLogKey, r.conf.QueryCountsKey, strconv.Itoa(personID), entry)
}

// RecordFilmQuery appends a film-query entry and increments the film's
// sorted counter.
func (r *QueryLogRepo) RecordFilmQuery(ctx context.Context, filmID int, responseTimeMs float64) error {
	now := time.Now()
	entry := logEntry{
		FilmID:         filmID,
		ResponseTimeMs: responseTimeMs,
		Timestamp:      now.Format(time.RFC3339),
		Hour:           now.Hour(),
	}

	return r.appendEntry(ctx, r.conf.FilmQueryLogKey, r.conf.FilmQueryCountsKey, strconv.Itoa(filmID), entry)
}

// RecordSearchQuery appends a search-query entry and increments the
// "type:query" counter member. The query is lowercased and trimmed so
// queries differing only in case or whitespace share one ranked bucket.
func (r *QueryLogRepo) RecordSearchQuery(ctx context.Context, searchType, query string, responseTimeMs float64, resultCount int) error {
	now := time.Now()
	entry := logEntry{
		SearchType:     searchType,
		Query:          query,
		ResultCount:    resultCount,
		ResponseTimeMs: responseTimeMs,
		Timestamp:      now.Format(time.RFC3339),
		Hour:           now.Hour(),
	}

	member := searchType + ":" + strings.ToLower(strings.TrimSpace(query))

	return r.appendEntry(ctx, r.conf.SearchLogKey, r.conf.SearchCountsKey, member, entry)
}

func (r *QueryLogRepo) appendEntry(ctx context.Context, logKey, countsKey, member string, entry logEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal log entry: %w", err)
	}

	if err := r.rdb.RPush(ctx, logKey, data).Err(); err != nil {
		return fmt.Errorf("failed to append to %s: %w", logKey, err)
	}

	if err := r.rdb.ZIncrBy(ctx, countsKey, 1, member).Err(); err != nil {
		return fmt.Errorf("failed to increment %s member %s: %w", countsKey, member, err)
	}

	return nil
}

// ComputeStatistics builds a fresh report from the counters and logs.
// Store read failures propagate to the caller; nothing is silently zeroed.
func (r *QueryLogRepo) ComputeStatistics(ctx context.Context) (*model.QueryStatistics, error) {
	r.logger.Info("computing statistics from Redis")

	totalDetailQueries, err := r.sumCounter(ctx, r.conf.QueryCountsKey)
	if err != nil {
		return nil, err
	}

	totalFilmQueries, err := r.sumCounter(ctx, r.conf.FilmQueryCountsKey)
	if err != nil {
		return nil, err
	}

	totalSearchQueries, err := r.sumCounter(ctx, r.conf.SearchCountsKey)
	if err != nil {
		return nil, err
	}

	totalQueries := totalDetailQueries + totalFilmQueries + totalSearchQueries

	topSearchQueries, err := r.topSearchQueries(ctx, totalSearchQueries)
	if err != nil {
		return nil, err
	}

	var (
		totalResponseTime float64
		entryCount        int64
		hourCounts        [24]int64
	)

	for _, logKey := range []string{r.conf.QueryLogKey, r.conf.FilmQueryLogKey, r.conf.SearchLogKey} {
		if err := r.scanLog(ctx, logKey, func(entry *logEntry) {
			totalResponseTime += entry.ResponseTimeMs
			if entry.Hour >= 0 && entry.Hour < 24 {
				hourCounts[entry.Hour]++
			}
			entryCount++
		}); err != nil {
			return nil, err
		}
	}

	popularHours := make([]*model.PopularHour, 24)
	for h := 0; h < 24; h++ {
		popularHours[h] = &model.PopularHour{Hour: h, TotalCount: hourCounts[h]}
	}

	average := 0.0
	if entryCount > 0 {
		average = round2(totalResponseTime / float64(entryCount))
	}

	stats := &model.QueryStatistics{
		AverageResponseTimeMs: average,
		PopularHours:          popularHours,
		TotalQueries:          totalQueries,
		TopSearchQueries:      topSearchQueries,
		ComputedAt:            time.Now().Format(time.RFC3339),
	}

	r.logger.Infow("msg", "statistics computed",
		"total_queries", totalQueries,
		"entry_count", entryCount)

	return stats, nil
}

// GetCachedStatistics returns the cached report, or (nil, nil) on a miss.
func (r *QueryLogRepo) GetCachedStatistics(ctx context.Context) (*model.QueryStatistics, error) {
	cached, err := r.rdb.Get(ctx, r.conf.CacheKey).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read statistics cache: %w", err)
	}

	var stats model.QueryStatistics
	if err := json.Unmarshal([]byte(cached), &stats); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached statistics: %w", err)
	}

	return &stats, nil
}

// CacheStatistics overwrites the cached report with the configured TTL.
func (r *QueryLogRepo) CacheStatistics(ctx context.Context, stats *model.QueryStatistics) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to marshal statistics: %w", err)
	}

	if err := r.rdb.Set(ctx, r.conf.CacheKey, data, r.conf.CacheTtl.AsDuration()).Err(); err != nil {
		return fmt.Errorf("failed to cache statistics: %w", err)
	}

	return nil
}

// sumCounter sums all scores of a sorted counter.
func (r *QueryLogRepo) sumCounter(ctx context.Context, countsKey string) (int64, error) {
	members, err := r.rdb.ZRevRangeWithScores(ctx, countsKey, 0, -1).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read counter %s: %w", countsKey, err)
	}

	var total int64
	for _, m := range members {
		total += int64(m.Score)
	}

	return total, nil
}

// topSearchQueries reads the top 5 search counter members. Each member
// encodes "searchType:query"; the split is on the first colon so queries
// containing colons survive intact.
func (r *QueryLogRepo) topSearchQueries(ctx context.Context, totalSearchQueries int64) ([]*model.TopSearchQuery, error) {
	members, err := r.rdb.ZRevRangeWithScores(ctx, r.conf.SearchCountsKey, 0, 4).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read top search queries: %w", err)
	}

	top := make([]*model.TopSearchQuery, 0, len(members))
	for _, m := range members {
		member, _ := m.Member.(string)
		searchType, query, _ := strings.Cut(member, ":")

		count := int64(m.Score)
		percentage := 0.0
		if totalSearchQueries > 0 {
			percentage = round2(float64(count) / float64(totalSearchQueries) * 100)
		}

		top = append(top, &model.TopSearchQuery{
			SearchType: searchType,
			Query:      query,
			Count:      count,
			Percentage: percentage,
		})
	}

	return top, nil
}

// scanLog streams a log list in fixed-size batches.
func (r *QueryLogRepo) scanLog(ctx context.Context, logKey string, visit func(*logEntry)) error {
	length, err := r.rdb.LLen(ctx, logKey).Result()
	if err != nil {
		return fmt.Errorf("failed to read length of %s: %w", logKey, err)
	}

	for offset := int64(0); offset < length; offset += statsBatchSize {
		entries, err := r.rdb.LRange(ctx, logKey, offset, offset+statsBatchSize-1).Result()
		if err != nil {
			return fmt.Errorf("failed to read %s at offset %d: %w", logKey, offset, err)
		}

		for _, raw := range entries {
			var entry logEntry
			if err := json.Unmarshal([]byte(raw), &entry); err != nil {
				return fmt.Errorf("failed to unmarshal entry in %s: %w", logKey, err)
			}
			visit(&entry)
		}
	}

	return nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
