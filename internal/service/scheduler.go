package service

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

func NewScheduler() (gocron.Scheduler, error) {
	return gocron.NewScheduler(gocron.WithLocation(time.UTC))
}

type ReleasePruner interface {
	PruneReleases(ctx context.Context, before time.Time) (int64, error)
}

// SchedulePrune registers a daily job deleting finished releases older than
// retention. A zero retention keeps history forever and schedules nothing.
func SchedulePrune(
	s gocron.Scheduler,
	pruner ReleasePruner,
	retention time.Duration,
	log *zap.Logger,
) (gocron.Job, error) {
	if retention <= 0 {
		return nil, nil
	}
	return s.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(3, 0, 0))),
		gocron.NewTask(func() {
			n, err := pruner.PruneReleases(context.Background(), time.Now().Add(-retention))
			if err != nil {
				log.Error("err pruning release history", zap.Error(err))
				return
			}
			log.Info("pruned release history", zap.Int64("deleted", n))
		}),
		gocron.WithName("prune-releases"),
	)
}
