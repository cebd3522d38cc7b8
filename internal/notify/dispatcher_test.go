package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type scriptedChannel struct {
	name    ChannelName
	mu      sync.Mutex
	calls   int
	results []error
	block   bool
}

func (c *scriptedChannel) Name() ChannelName { return c.name }

func (c *scriptedChannel) Deliver(ctx context.Context, _ Message) error {
	c.mu.Lock()
	idx := c.calls
	c.calls++
	c.mu.Unlock()

	if c.block {
		<-ctx.Done()
		return &TransientError{Reason: "timed out", Err: ctx.Err()}
	}
	if idx < len(c.results) {
		return c.results[idx]
	}
	return nil
}

type fakeSleeper struct {
	delays []time.Duration
}

func (s *fakeSleeper) sleep(_ context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return nil
}

type countingRecorder struct {
	attempts   map[bool]int
	deliveries map[bool]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{attempts: map[bool]int{}, deliveries: map[bool]int{}}
}

func (r *countingRecorder) RecordNotificationAttempt(_ string, success bool) { r.attempts[success]++ }
func (r *countingRecorder) RecordNotificationDelivery(_ string, success bool) { r.deliveries[success]++ }

func transient() error { return &TransientError{StatusCode: 503, Reason: "unavailable"} }

func TestSendGivesUpAfterMaxAttempts(t *testing.T) {
	ch := &scriptedChannel{name: ChannelEmail, results: []error{transient(), transient(), transient()}}
	sleeper := &fakeSleeper{}
	rec := newCountingRecorder()
	d := NewDispatcher(RetryPolicy{MaxAttempts: 3, BackoffBase: 2}, zap.NewNop(), WithSleeper(sleeper.sleep), WithRecorder(rec))

	got := d.Send(context.Background(), ch, Message{TemplateID: "tpl"})

	assert.False(t, got.Success)
	assert.Equal(t, 3, got.Attempts)
	assert.Equal(t, 3, ch.calls)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, sleeper.delays)
	assert.Contains(t, got.LastError, "unavailable")
	assert.Equal(t, 3, rec.attempts[false])
	assert.Equal(t, 1, rec.deliveries[false])
}

func TestSendStopsOnSuccess(t *testing.T) {
	ch := &scriptedChannel{name: ChannelSMS, results: []error{transient(), nil}}
	sleeper := &fakeSleeper{}
	d := NewDispatcher(RetryPolicy{}, zap.NewNop(), WithSleeper(sleeper.sleep))

	got := d.Send(context.Background(), ch, Message{TemplateID: "tpl"})

	assert.True(t, got.Success)
	assert.Equal(t, 2, got.Attempts)
	assert.Empty(t, got.LastError)
	assert.Equal(t, []time.Duration{2 * time.Second}, sleeper.delays)
}

func TestSendDoesNotRetryPermanentErrors(t *testing.T) {
	ch := &scriptedChannel{name: ChannelEmail, results: []error{&PermanentError{Reason: "template missing"}}}
	sleeper := &fakeSleeper{}
	d := NewDispatcher(RetryPolicy{MaxAttempts: 3}, zap.NewNop(), WithSleeper(sleeper.sleep))

	got := d.Send(context.Background(), ch, Message{})

	assert.False(t, got.Success)
	assert.Equal(t, 1, got.Attempts)
	assert.Empty(t, sleeper.delays)
	assert.Equal(t, "template missing", got.LastError)
}

func TestSendBoundsEachAttempt(t *testing.T) {
	ch := &scriptedChannel{name: ChannelSMS, block: true}
	sleeper := &fakeSleeper{}
	d := NewDispatcher(RetryPolicy{MaxAttempts: 2, AttemptTimeout: 20 * time.Millisecond}, zap.NewNop(), WithSleeper(sleeper.sleep))

	start := time.Now()
	got := d.Send(context.Background(), ch, Message{})

	assert.False(t, got.Success)
	assert.Equal(t, 2, got.Attempts)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Contains(t, got.LastError, context.DeadlineExceeded.Error())
}

func TestSendStopsWhenContextCancelledDuringBackoff(t *testing.T) {
	ch := &scriptedChannel{name: ChannelEmail, results: []error{transient(), transient(), transient()}}
	ctx, cancel := context.WithCancel(context.Background())
	d := NewDispatcher(RetryPolicy{MaxAttempts: 3}, zap.NewNop(), WithSleeper(func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}))

	got := d.Send(ctx, ch, Message{})

	assert.False(t, got.Success)
	assert.Equal(t, 1, got.Attempts)
	assert.Equal(t, context.Canceled.Error(), got.LastError)
}

func TestRetryPolicyDelay(t *testing.T) {
	p := RetryPolicy{BackoffBase: 3}
	assert.Equal(t, 3*time.Second, p.Delay(1))
	assert.Equal(t, 9*time.Second, p.Delay(2))

	def := NewDispatcher(RetryPolicy{}, zap.NewNop()).Policy()
	require.Equal(t, 3, def.MaxAttempts)
	assert.Equal(t, 2, def.BackoffBase)
	assert.Equal(t, 10*time.Second, def.AttemptTimeout)
}

func TestSendWaitsForRateLimit(t *testing.T) {
	ch := &scriptedChannel{name: ChannelSMS}
	d := NewDispatcher(RetryPolicy{}, zap.NewNop(), WithRateLimit(60))

	for i := 0; i < 6; i++ {
		assert.True(t, d.Send(context.Background(), ch, Message{}).Success)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	got := d.Send(ctx, ch, Message{})
	assert.False(t, got.Success)
	assert.Zero(t, got.Attempts)
	assert.Equal(t, 6, ch.calls)
}
