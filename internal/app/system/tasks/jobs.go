// internal/app/system/tasks/jobs.go
package tasks

import (
	"context"
	"time"

	"github.com/bloomcycle/bloom/internal/app/calendar"
	checkinstore "github.com/bloomcycle/bloom/internal/app/store/checkins"
	"go.uber.org/zap"
)

// StalePromptJob dismisses daily prompts left pending from earlier days, so
// a prompt never carries over to the next day.
func StalePromptJob(checkIns *checkinstore.Store, clock calendar.Clock, logger *zap.Logger) Job {
	return Job{
		Name:     "stale-prompt-cleanup",
		Interval: 1 * time.Hour,
		Run: func(ctx context.Context) error {
			today := calendar.FormatDate(clock.Now())
			n, err := checkIns.DismissStale(ctx, today)
			if err != nil {
				return err
			}
			if n > 0 {
				logger.Info("dismissed stale daily prompts",
					zap.Int64("dismissed", n),
					zap.String("before", today))
			}
			return nil
		},
	}
}
