package execution

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/riverqueue/river"
)

type ExpireOffersArgs struct{}

func (ExpireOffersArgs) Kind() string { return "expire_offers" }

// Sweeper flips pending offers past their expiry.
type Sweeper interface {
	ExpireStale(ctx context.Context, now time.Time) (int, error)
}

type ExpireOffersWorker struct {
	river.WorkerDefaults[ExpireOffersArgs]
	sweeper Sweeper
	logger  *slog.Logger
	now     func() time.Time
}

func NewExpireOffersWorker(s Sweeper, logger *slog.Logger) *ExpireOffersWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExpireOffersWorker{sweeper: s, logger: logger, now: time.Now}
}

func (w *ExpireOffersWorker) Work(ctx context.Context, _ *river.Job[ExpireOffersArgs]) error {
	n, err := w.sweeper.ExpireStale(ctx, w.now())
	if err != nil {
		return fmt.Errorf("expire offers: %w", err)
	}
	if n > 0 {
		w.logger.Info("expired stale offers", "count", n)
	}
	return nil
}

// PeriodicJobs schedules the offer-expiry sweep every interval.
func PeriodicJobs(interval time.Duration) []*river.PeriodicJob {
	return []*river.PeriodicJob{
		river.NewPeriodicJob(
			river.PeriodicInterval(interval),
			func() (river.JobArgs, *river.InsertOpts) {
				return ExpireOffersArgs{}, nil
			},
			&river.PeriodicJobOpts{RunOnStart: true},
		),
	}
}
