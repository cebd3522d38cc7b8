package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spec-kit/loyalty-service/internal/domain"
	"github.com/spec-kit/loyalty-service/internal/events"
	"github.com/spec-kit/loyalty-service/internal/lifecycle"
	"github.com/spec-kit/loyalty-service/internal/lock"
	"github.com/spec-kit/loyalty-service/internal/repository"
)

// Skip reasons reported in CustomerOutcome.
const (
	SkipInvalidBirthday  = "invalid_birthday"
	SkipAlreadyProcessed = "already_processed"
)

// ErrRunInProgress is returned when another run holds the lease for the day.
var ErrRunInProgress = errors.New("daily run already in progress")

// ReminderOutcome reports the per-channel result of one reminder.
type ReminderOutcome struct {
	Template   domain.TemplateKey `json:"template"`
	Email      bool               `json:"email"`
	SMS        bool               `json:"sms"`
	EmailError string             `json:"email_error,omitempty"`
	SMSError   string             `json:"sms_error,omitempty"`
}

// CustomerOutcome is the daily-run result for one customer.
type CustomerOutcome struct {
	CustomerID     string                                  `json:"customer_id"`
	VoucherUpdated bool                                    `json:"voucher_updated"`
	VoucherCode    domain.VoucherCode                      `json:"voucher_code,omitempty"`
	Reminders      map[domain.ReminderKind]ReminderOutcome `json:"reminders"`
	Skipped        bool                                    `json:"skipped,omitempty"`
	SkipReason     string                                  `json:"skip_reason,omitempty"`
	Error          string                                  `json:"error,omitempty"`
}

// RunMetrics observes daily-run outcomes.
type RunMetrics interface {
	RecordDailyRunCustomer(outcome string)
}

// DailyRunService evaluates every customer once per day and carries out the
// due voucher regenerations and reminders.
type DailyRunService struct {
	customers     repository.CustomerRepository
	allocator     VoucherAllocator
	notifications *NotificationService
	dispatcher    events.Dispatcher
	locker        lock.Locker
	lockTTL       time.Duration
	workers       int
	metrics       RunMetrics
	logger        *zap.Logger
}

// DailyRunDependencies bundles collaborators for DailyRunService.
type DailyRunDependencies struct {
	Customers     repository.CustomerRepository
	Allocator     VoucherAllocator
	Notifications *NotificationService
	Events        events.Dispatcher
	Locker        lock.Locker
	LockTTL       time.Duration
	Workers       int
	Metrics       RunMetrics
}

// NewDailyRunService builds the orchestrator.
func NewDailyRunService(deps DailyRunDependencies, logger *zap.Logger) *DailyRunService {
	workers := deps.Workers
	if workers <= 0 {
		workers = 1
	}
	locker := deps.Locker
	if locker == nil {
		locker = lock.NewLocalLocker()
	}
	ttl := deps.LockTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &DailyRunService{
		customers:     deps.Customers,
		allocator:     deps.Allocator,
		notifications: deps.Notifications,
		dispatcher:    deps.Events,
		locker:        locker,
		lockTTL:       ttl,
		workers:       workers,
		metrics:       deps.Metrics,
		logger:        logger.Named("daily-run"),
	}
}

// Trigger runs RunOnce under the per-day lease so concurrent triggers for the
// same date, from this or another instance, do not overlap.
func (s *DailyRunService) Trigger(ctx context.Context, today time.Time) ([]CustomerOutcome, error) {
	today = domain.DateOf(today)
	release, err := s.locker.Acquire(ctx, "daily-run:"+today.Format(time.DateOnly), s.lockTTL)
	if errors.Is(err, lock.ErrHeld) {
		return nil, ErrRunInProgress
	}
	if err != nil {
		return nil, &PersistenceError{Op: "acquire daily-run lease", Err: err}
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("failed to release daily-run lease", zap.Error(err))
		}
	}()
	return s.RunOnce(ctx, today)
}

// RunOnce evaluates the full customer snapshot for today. A customer that
// cannot be evaluated is skipped; a store failure aborts the run and the
// outcomes gathered so far are returned with the error.
func (s *DailyRunService) RunOnce(ctx context.Context, today time.Time) ([]CustomerOutcome, error) {
	today = domain.DateOf(today)
	logger := s.logger.With(zap.String("date", today.Format(time.DateOnly)))
	logger.Info("starting daily run")

	snapshot, err := s.customers.ListAll(ctx)
	if err != nil {
		return nil, &PersistenceError{Op: "list customers", Err: err}
	}

	outcomes := make([]*CustomerOutcome, len(snapshot))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i := range snapshot {
		if gctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			outcome, err := s.processCustomer(gctx, today, snapshot[i])
			outcomes[i] = outcome
			return err
		})
	}
	runErr := g.Wait()

	results := make([]CustomerOutcome, 0, len(snapshot))
	skipped := 0
	for _, outcome := range outcomes {
		if outcome == nil {
			continue
		}
		if outcome.Skipped {
			skipped++
		}
		results = append(results, *outcome)
	}
	if runErr == nil && len(results) < len(snapshot) {
		runErr = ctx.Err()
	}

	s.publish(ctx, events.Event{
		Type: events.EventDailyRunCompleted,
		Payload: events.DailyRunCompletedPayload{
			Date:      today.Format(time.DateOnly),
			Processed: len(results),
			Skipped:   skipped,
			Failed:    runErr != nil,
		},
	})

	if runErr != nil {
		logger.Error("daily run aborted", zap.Int("processed", len(results)), zap.Error(runErr))
		return results, runErr
	}
	logger.Info("daily run completed", zap.Int("processed", len(results)), zap.Int("skipped", skipped))
	return results, nil
}

// processCustomer returns a nil outcome only when the customer was not
// started. Once a delivery has been attempted the outcome is always written
// and returned, even if ctx is cancelled meanwhile, so a re-run the same day
// does not send it again.
func (s *DailyRunService) processCustomer(ctx context.Context, today time.Time, c domain.Customer) (*CustomerOutcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	outcome := &CustomerOutcome{
		CustomerID:  c.ID,
		VoucherCode: c.VoucherCode,
		Reminders:   map[domain.ReminderKind]ReminderOutcome{},
	}
	logger := s.logger.With(zap.String("customer_id", c.ID))

	if c.ProcessedOn(today) {
		outcome.Skipped = true
		outcome.SkipReason = SkipAlreadyProcessed
		s.record(SkipAlreadyProcessed)
		return outcome, nil
	}

	decision, err := lifecycle.Evaluate(today, c)
	if err != nil {
		var invalid *lifecycle.InvalidDateError
		if !errors.As(err, &invalid) {
			outcome.Error = err.Error()
			return outcome, err
		}
		logger.Error("invalid birthday, skipping customer", zap.Error(err))
		outcome.Skipped = true
		outcome.SkipReason = SkipInvalidBirthday
		outcome.Error = err.Error()
		s.record(SkipInvalidBirthday)
		s.publish(ctx, events.Event{
			Type:       events.EventCustomerSkipped,
			CustomerID: c.ID,
			Payload:    events.CustomerSkippedPayload{Reason: err.Error()},
		})
		return outcome, nil
	}

	if !decision.HasActions() {
		s.record("no_action")
		return outcome, nil
	}

	write := repository.DailyOutcome{CustomerID: c.ID, ProcessedOn: today}

	if decision.VoucherDue {
		code, err := s.allocator.Allocate(ctx)
		if err != nil {
			perr := &PersistenceError{Op: "allocate voucher", Err: err}
			outcome.Error = perr.Error()
			return outcome, perr
		}
		decision.NewVoucherCode = code
		write.VoucherCode = &code
		outcome.VoucherUpdated = true
		outcome.VoucherCode = code
		s.notifications.RenderVoucher(c.Name, code)
		logger.Info("voucher regenerated", zap.String("old_code", c.VoucherCode.String()), zap.String("new_code", code.String()))
	}

	for _, reminder := range decision.DueReminders {
		key := domain.TemplateKeyFor(reminder)
		logger.Info("sending reminder", zap.String("kind", string(reminder.Kind)), zap.String("template", string(key)))

		result := s.notifications.Notify(ctx, NotifyRequest{
			Recipient:   recipientOf(c),
			VoucherCode: outcome.VoucherCode,
			Template:    key,
		})
		outcome.Reminders[reminder.Kind] = ReminderOutcome{
			Template:   key,
			Email:      result.Email.Success,
			SMS:        result.SMS.Success,
			EmailError: result.Email.LastError,
			SMSError:   result.SMS.LastError,
		}
		emailSent, smsSent := result.Email.Success, result.SMS.Success
		write.EmailSent = &emailSent
		write.SMSSent = &smsSent
	}

	if err := s.customers.RecordDailyOutcome(context.WithoutCancel(ctx), write); err != nil {
		perr := &PersistenceError{Op: "record daily outcome", Err: err}
		outcome.Error = perr.Error()
		return outcome, perr
	}
	if ctx.Err() != nil {
		logger.Warn("run cancelled while processing customer; outcome recorded", zap.Error(ctx.Err()))
	}

	if outcome.VoucherUpdated {
		s.publish(ctx, events.Event{
			Type:       events.EventVoucherIssued,
			CustomerID: c.ID,
			Payload:    events.VoucherIssuedPayload{OldCode: c.VoucherCode, NewCode: outcome.VoucherCode},
		})
	}
	for kind, r := range outcome.Reminders {
		s.publish(ctx, events.Event{
			Type:       events.EventReminderSent,
			CustomerID: c.ID,
			Payload:    events.ReminderSentPayload{Kind: kind, Template: r.Template, EmailSent: r.Email, SMSSent: r.SMS},
		})
	}
	s.record("acted")
	return outcome, nil
}

func (s *DailyRunService) record(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordDailyRunCustomer(outcome)
	}
}

func (s *DailyRunService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed", zap.String("event", string(event.Type)), zap.Error(err))
	}
}
