package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/loyalty-service/internal/service"
)

type runnerFunc func(ctx context.Context, today time.Time) ([]service.CustomerOutcome, error)

func (f runnerFunc) Trigger(ctx context.Context, today time.Time) ([]service.CustomerOutcome, error) {
	return f(ctx, today)
}

func TestNextRun(t *testing.T) {
	sydney, err := time.LoadLocation("Australia/Sydney")
	require.NoError(t, err)
	s := NewDailyScheduler(nil, sydney, 9, zap.NewNop())

	before := time.Date(2024, time.January, 23, 8, 59, 0, 0, sydney)
	assert.Equal(t, time.Date(2024, time.January, 23, 9, 0, 0, 0, sydney), s.NextRun(before))

	at := time.Date(2024, time.January, 23, 9, 0, 0, 0, sydney)
	assert.Equal(t, time.Date(2024, time.January, 24, 9, 0, 0, 0, sydney), s.NextRun(at))

	utcEvening := time.Date(2024, time.January, 22, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, time.January, 23, 9, 0, 0, 0, sydney), s.NextRun(utcEvening))
}

func TestNewDailySchedulerClampsHour(t *testing.T) {
	s := NewDailyScheduler(nil, nil, 42, zap.NewNop())
	assert.Equal(t, 9, s.hour)
	assert.Equal(t, time.UTC, s.location)
}

func TestStartTriggersRunsUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var days []time.Time
	runner := runnerFunc(func(_ context.Context, today time.Time) ([]service.CustomerOutcome, error) {
		days = append(days, today)
		if len(days) == 2 {
			cancel()
			return nil, errors.New("store down")
		}
		return nil, nil
	})

	s := NewDailyScheduler(runner, time.UTC, 9, zap.NewNop())
	now := time.Date(2024, time.January, 23, 8, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	s.after = func(d time.Duration) <-chan time.Time {
		now = now.Add(d)
		ch := make(chan time.Time, 1)
		ch <- now
		return ch
	}

	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}

	require.Len(t, days, 2)
	assert.Equal(t, time.Date(2024, time.January, 23, 9, 0, 0, 0, time.UTC), days[0])
	assert.Equal(t, time.Date(2024, time.January, 24, 9, 0, 0, 0, time.UTC), days[1])
}
