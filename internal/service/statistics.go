package service

import (
	"StarPort/internal/biz"
	"StarPort/internal/data"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport/http"
)

// statisticsCircuits are the circuit keys surfaced by the diagnostics
// endpoint: the list endpoints the proxy always exercises.
var statisticsCircuits = []string{
	"swapi:circuit:people",
	"swapi:circuit:films",
}

// StatisticsService serves the query-statistics report and circuit
// diagnostics.
type StatisticsService struct {
	uc      *biz.StatisticsUsecase
	breaker *data.CircuitBreakerStore
	logger  *log.Helper
}

// NewStatisticsService creates a new StatisticsService instance.
func NewStatisticsService(uc *biz.StatisticsUsecase, breaker *data.CircuitBreakerStore, logger log.Logger) *StatisticsService {
	return &StatisticsService{
		uc:      uc,
		breaker: breaker,
		logger:  log.NewHelper(logger),
	}
}

// RegisterRoutes attaches the statistics and health routes.
func (s *StatisticsService) RegisterRoutes(srv *http.Server) {
	r := srv.Route("/")
	r.GET("/api/statistics", s.GetStatistics)
	r.GET("/api/statistics/circuits", s.GetCircuitStatistics)
	r.GET("/health", s.Health)
}

// GetStatistics handles GET /api/statistics: cached report or a fresh
// recomputation on cache miss.
func (s *StatisticsService) GetStatistics(ctx http.Context) error {
	stats, err := s.uc.GetStatistics(ctx)
	if err != nil {
		s.logger.Errorw("msg", "failed to get statistics", "error", err)
		return mapDomainError(err)
	}

	return ctx.Result(200, &dataResponse{Data: stats})
}

// GetCircuitStatistics handles GET /api/statistics/circuits: a snapshot of
// the upstream circuit breakers.
func (s *StatisticsService) GetCircuitStatistics(ctx http.Context) error {
	circuits := make(map[string]any, len(statisticsCircuits))
	for _, key := range statisticsCircuits {
		stats, err := s.breaker.Statistics(ctx, key)
		if err != nil {
			s.logger.Errorw("msg", "failed to read circuit statistics", "circuit", key, "error", err)
			return mapDomainError(err)
		}
		circuits[key] = stats
	}

	return ctx.Result(200, &dataResponse{Data: circuits})
}

// Health handles GET /health.
func (s *StatisticsService) Health(ctx http.Context) error {
	return ctx.Result(200, map[string]string{"status": "ok"})
}
