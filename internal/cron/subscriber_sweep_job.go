package cron

import (
	"context"
	"fmt"

	"github.com/jordanvales/threadswap-backend/internal/notifications"
	"github.com/jordanvales/threadswap-backend/pkg/logger"
)

type subscriberSweeper interface {
	Sweep(ctx context.Context) (notifications.SweepResult, error)
}

type SubscriberSweepJobParams struct {
	Logger  *logger.Logger
	Sweeper subscriberSweeper
}

// NewSubscriberSweepJob wraps the push-subscriber sweep so the cron worker can
// run it on its daily cycle.
func NewSubscriberSweepJob(params SubscriberSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Sweeper == nil {
		return nil, fmt.Errorf("sweeper required")
	}
	return &subscriberSweepJob{
		logg:    params.Logger,
		sweeper: params.Sweeper,
	}, nil
}

type subscriberSweepJob struct {
	logg    *logger.Logger
	sweeper subscriberSweeper
}

func (j *subscriberSweepJob) Name() string { return "subscriber-sweep" }

func (j *subscriberSweepJob) Run(ctx context.Context) error {
	result, err := j.sweeper.Sweep(ctx)
	if err != nil {
		return fmt.Errorf("subscriber sweep: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"rows_removed": result.Removed,
		"batches":      result.Batches,
	})
	j.logg.Info(logCtx, "subscriber sweep complete")
	return nil
}
