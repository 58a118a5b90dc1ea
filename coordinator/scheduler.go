package coordinator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/absmach/flcoord/pkg/cron"
)

// Scheduler triggers round starts and aggregations on cron schedules.
// Either schedule may be empty, leaving that trigger to operators.
type Scheduler struct {
	svc       Service
	start     *cron.CronSchedule
	aggregate *cron.CronSchedule
	logger    *slog.Logger
	stopChan  chan struct{}
	stopOnce  sync.Once
}

func NewScheduler(svc Service, startExpr, aggregateExpr string, logger *slog.Logger) (*Scheduler, error) {
	s := &Scheduler{
		svc:      svc,
		logger:   logger,
		stopChan: make(chan struct{}),
	}

	var err error
	if startExpr != "" {
		if s.start, err = cron.ParseCronExpression(startExpr); err != nil {
			return nil, err
		}
	}
	if aggregateExpr != "" {
		if s.aggregate, err = cron.ParseCronExpression(aggregateExpr); err != nil {
			return nil, err
		}
	}

	return s, nil
}

func (s *Scheduler) Enabled() bool {
	return s.start != nil || s.aggregate != nil
}

// Start blocks until ctx is done or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	var wg sync.WaitGroup

	if s.start != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.run(ctx, "start-round", s.start, func(ctx context.Context) error {
				_, err := s.svc.StartRound(ctx)

				return err
			})
		}()
	}
	if s.aggregate != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.run(ctx, "aggregate-round", s.aggregate, func(ctx context.Context) error {
				_, err := s.svc.CloseCollectionAndAggregate(ctx)

				return err
			})
		}()
	}

	s.logger.Info("Round scheduler started",
		slog.String("start_schedule", s.start.String()),
		slog.String("aggregate_schedule", s.aggregate.String()),
	)

	select {
	case <-ctx.Done():
		s.Stop()
		wg.Wait()

		return ctx.Err()
	case <-s.stopChan:
		wg.Wait()

		return nil
	}
}

func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
}

func (s *Scheduler) run(ctx context.Context, name string, schedule *cron.CronSchedule, job func(context.Context) error) {
	for {
		next := schedule.Next(time.Now())
		timer := time.NewTimer(time.Until(next))

		select {
		case <-ctx.Done():
			timer.Stop()

			return
		case <-s.stopChan:
			timer.Stop()

			return
		case <-timer.C:
		}

		// Round-level failures are expected (nobody online, nothing submitted)
		// and must not stop the schedule.
		if err := job(ctx); err != nil {
			s.logger.Warn("Scheduled job failed", slog.String("job", name), slog.Any("error", err))

			continue
		}
		s.logger.Info("Scheduled job completed", slog.String("job", name))
	}
}
