// Package biz contains business logic layer implementations.
// This layer holds the core business rules and domain models.
package biz

import (
	"StarPort/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
)

// ProviderSet is biz providers.
var ProviderSet = wire.NewSet(
	NewStarwarsUsecase,
	NewStatisticsUsecase,
	ProvideMetricsRecorder,
)

// ProvideMetricsRecorder builds the MetricsRecorder from configuration.
// The cleanup drains the queue on shutdown so buffered events still land.
func ProvideMetricsRecorder(repo QueryLogRepo, c *conf.Statistics, logger log.Logger) (*MetricsRecorder, func()) {
	queueSize := 0
	if c != nil {
		queueSize = int(c.MetricsQueueSize)
	}
	recorder := NewMetricsRecorder(repo, queueSize, logger)
	return recorder, recorder.Stop
}
