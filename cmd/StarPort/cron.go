package main

import (
	"context"
	"time"

	"StarPort/internal/biz"
	"StarPort/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/robfig/cron/v3"
)

// StartStatisticsCron schedules the background statistics recomputation so
// the cached report stays warm between requests. The cron spec (with a
// seconds field) comes from configuration; an empty spec disables the job.
// The returned cleanup stops the scheduler.
func StartStatisticsCron(uc *biz.StatisticsUsecase, c *conf.Statistics, logger log.Logger) (*cron.Cron, func()) {
	helper := log.NewHelper(logger)

	cronJob := cron.New(cron.WithSeconds())

	spec := ""
	if c != nil {
		spec = c.RecomputeCron
	}
	if spec == "" {
		helper.Info("statistics recompute cron disabled")
		return cronJob, func() { cronJob.Stop() }
	}

	_, err := cronJob.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		if _, err := uc.Recompute(ctx); err != nil {
			helper.Errorw("msg", "scheduled statistics recompute failed", "error", err)
		} else {
			helper.Debug("scheduled statistics recompute completed")
		}
	})
	if err != nil {
		helper.Errorw("msg", "failed to register statistics cron job", "spec", spec, "error", err)
		return cronJob, func() { cronJob.Stop() }
	}

	cronJob.Start()
	helper.Infow("msg", "statistics recompute cron started", "spec", spec)

	return cronJob, func() {
		<-cronJob.Stop().Done()
	}
}
