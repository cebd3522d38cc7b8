package notify

import (
	"context"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	defaultMaxAttempts    = 3
	defaultBackoffBase    = 2
	defaultAttemptTimeout = 10 * time.Second
)

// RetryPolicy bounds delivery attempts.
type RetryPolicy struct {
	MaxAttempts    int
	BackoffBase    int
	AttemptTimeout time.Duration
}

// Delay returns the pause before retry number attempt (1-based): base^attempt seconds.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	return time.Duration(math.Pow(float64(p.BackoffBase), float64(attempt))) * time.Second
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = defaultMaxAttempts
	}
	if p.BackoffBase <= 1 {
		p.BackoffBase = defaultBackoffBase
	}
	if p.AttemptTimeout <= 0 {
		p.AttemptTimeout = defaultAttemptTimeout
	}
	return p
}

// Delivery is the outcome of one Send call.
type Delivery struct {
	Channel   ChannelName `json:"channel"`
	Success   bool        `json:"success"`
	Attempts  int         `json:"attempts"`
	LastError string      `json:"error,omitempty"`
}

// Recorder observes delivery attempts; observability.Metrics satisfies it.
type Recorder interface {
	RecordNotificationAttempt(channel string, success bool)
	RecordNotificationDelivery(channel string, success bool)
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Dispatcher sends messages with bounded retry and exponential backoff.
type Dispatcher struct {
	policy   RetryPolicy
	logger   *zap.Logger
	recorder Recorder
	sleep    Sleeper

	// per-channel limiters, created lazily when perMinute > 0
	mu        sync.Mutex
	limiters  map[ChannelName]*rate.Limiter
	perMinute int
}

// DispatcherOption customizes a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithSleeper replaces the wait between attempts.
func WithSleeper(s Sleeper) DispatcherOption {
	return func(d *Dispatcher) { d.sleep = s }
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) DispatcherOption {
	return func(d *Dispatcher) { d.recorder = r }
}

// WithRateLimit caps outbound calls per channel. Attempts wait for a token
// instead of failing, so the limit only stretches a daily run.
func WithRateLimit(perMinute int) DispatcherOption {
	return func(d *Dispatcher) { d.perMinute = perMinute }
}

// NewDispatcher builds a dispatcher for the given policy.
func NewDispatcher(policy RetryPolicy, logger *zap.Logger, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		policy: policy.withDefaults(),
		logger: logger.Named("dispatcher"),
		sleep:  sleepContext,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Policy returns the effective retry policy.
func (d *Dispatcher) Policy() RetryPolicy {
	return d.policy
}

// Send delivers msg over ch. It never returns an error: failures are
// reported through Delivery and logged with the last reason.
func (d *Dispatcher) Send(ctx context.Context, ch Channel, msg Message) Delivery {
	result := Delivery{Channel: ch.Name()}
	logger := d.logger.With(zap.String("channel", string(ch.Name())), zap.String("template_id", msg.TemplateID))

	for attempt := 1; attempt <= d.policy.MaxAttempts; attempt++ {
		if err := d.wait(ctx, ch.Name()); err != nil {
			result.LastError = err.Error()
			break
		}
		result.Attempts = attempt

		attemptCtx, cancel := context.WithTimeout(ctx, d.policy.AttemptTimeout)
		err := ch.Deliver(attemptCtx, msg)
		cancel()

		if d.recorder != nil {
			d.recorder.RecordNotificationAttempt(string(ch.Name()), err == nil)
		}
		if err == nil {
			result.Success = true
			result.LastError = ""
			logger.Info("notification delivered", zap.Int("attempt", attempt))
			break
		}

		result.LastError = err.Error()
		logger.Warn("notification attempt failed", zap.Int("attempt", attempt), zap.Error(err))

		if IsPermanent(err) || attempt == d.policy.MaxAttempts {
			break
		}

		delay := d.policy.Delay(attempt)
		if err := d.sleep(ctx, delay); err != nil {
			result.LastError = err.Error()
			break
		}
	}

	if !result.Success {
		logger.Error("notification delivery failed",
			zap.Int("attempts", result.Attempts),
			zap.String("reason", result.LastError))
	}
	if d.recorder != nil {
		d.recorder.RecordNotificationDelivery(string(ch.Name()), result.Success)
	}
	return result
}

func (d *Dispatcher) wait(ctx context.Context, name ChannelName) error {
	if d.perMinute <= 0 {
		return nil
	}
	d.mu.Lock()
	limiter, ok := d.limiters[name]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(float64(d.perMinute)/60.0), max(1, d.perMinute/10))
		if d.limiters == nil {
			d.limiters = make(map[ChannelName]*rate.Limiter)
		}
		d.limiters[name] = limiter
	}
	d.mu.Unlock()
	return limiter.Wait(ctx)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
