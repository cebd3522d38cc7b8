package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/loyalty-service/internal/service"
)

// DailyRunner is the part of the daily run service the scheduler needs.
type DailyRunner interface {
	Trigger(ctx context.Context, today time.Time) ([]service.CustomerOutcome, error)
}

// DailyScheduler triggers the daily run once per calendar day at a fixed
// hour in the configured location.
type DailyScheduler struct {
	runner   DailyRunner
	location *time.Location
	hour     int
	logger   *zap.Logger
	now      func() time.Time
	after    func(time.Duration) <-chan time.Time
}

// NewDailyScheduler builds a scheduler.
func NewDailyScheduler(runner DailyRunner, location *time.Location, hour int, logger *zap.Logger) *DailyScheduler {
	if location == nil {
		location = time.UTC
	}
	if hour < 0 || hour > 23 {
		hour = 9
	}
	return &DailyScheduler{
		runner:   runner,
		location: location,
		hour:     hour,
		logger:   logger.Named("scheduler"),
		now:      time.Now,
		after:    time.After,
	}
}

// NextRun returns the first scheduled instant strictly after from.
func (s *DailyScheduler) NextRun(from time.Time) time.Time {
	local := from.In(s.location)
	next := time.Date(local.Year(), local.Month(), local.Day(), s.hour, 0, 0, 0, s.location)
	if !next.After(local) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Start blocks, running the daily cycle at each scheduled instant until ctx is done.
func (s *DailyScheduler) Start(ctx context.Context) {
	for ctx.Err() == nil {
		next := s.NextRun(s.now())
		s.logger.Info("next daily run scheduled", zap.Time("at", next))

		select {
		case <-ctx.Done():
			return
		case <-s.after(next.Sub(s.now())):
		}

		today := s.now().In(s.location)
		outcomes, err := s.runner.Trigger(ctx, today)
		if err != nil {
			s.logger.Error("scheduled daily run failed", zap.Error(err))
			continue
		}
		s.logger.Info("scheduled daily run finished", zap.Int("customers", len(outcomes)))
	}
}
