package service

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/loyalty-service/internal/config"
	"github.com/spec-kit/loyalty-service/internal/domain"
	"github.com/spec-kit/loyalty-service/internal/events"
	"github.com/spec-kit/loyalty-service/internal/notify"
	"github.com/spec-kit/loyalty-service/internal/repository"
	"github.com/spec-kit/loyalty-service/internal/voucher"
)

type recordingChannel struct {
	name notify.ChannelName
	fail bool

	mu       sync.Mutex
	messages []notify.Message
}

func (c *recordingChannel) Name() notify.ChannelName { return c.name }

func (c *recordingChannel) Deliver(_ context.Context, msg notify.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, msg)
	if c.fail {
		return &notify.TransientError{StatusCode: 500, Reason: "provider down"}
	}
	return nil
}

func (c *recordingChannel) sent() []notify.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]notify.Message(nil), c.messages...)
}

func testTemplates() config.Templates {
	templates := config.Templates{}
	for _, key := range domain.RequiredTemplateKeys {
		templates[key] = config.TemplatePair{Email: "email-" + string(key), SMS: "sms-" + string(key)}
	}
	return templates
}

type fixture struct {
	repo          *repository.MemoryCustomerRepository
	allocator     *voucher.Allocator
	email         *recordingChannel
	sms           *recordingChannel
	notifications *NotificationService
	bus           events.Dispatcher
	published     *[]events.Event
	voucherDir    string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zap.NewNop()

	f := &fixture{
		repo:  repository.NewMemoryCustomerRepository(),
		email: &recordingChannel{name: notify.ChannelEmail},
		sms:   &recordingChannel{name: notify.ChannelSMS},
		bus:   events.NewInMemoryDispatcher(),
	}
	f.allocator = voucher.NewAllocator(f.repo, "TWC", logger, nil)

	var mu sync.Mutex
	published := []events.Event{}
	f.published = &published
	for _, et := range []events.EventType{
		events.EventCustomerSignedUp,
		events.EventVoucherIssued,
		events.EventReminderSent,
		events.EventCustomerSkipped,
		events.EventDailyRunCompleted,
	} {
		f.bus.Subscribe(et, func(_ context.Context, e events.Event) error {
			mu.Lock()
			defer mu.Unlock()
			published = append(published, e)
			return nil
		})
	}

	f.withNotifications(t, testTemplates(), logger, func(context.Context, time.Duration) error { return nil })
	return f
}

// withNotifications rebuilds the notification service around the fixture's
// channels with the given templates, logger and backoff sleeper.
func (f *fixture) withNotifications(t *testing.T, templates config.Templates, logger *zap.Logger, sleep notify.Sleeper) {
	t.Helper()
	dispatcher := notify.NewDispatcher(notify.RetryPolicy{MaxAttempts: 3}, logger, notify.WithSleeper(sleep))
	f.voucherDir = t.TempDir()
	f.notifications = NewNotificationService(NotificationDependencies{
		Dispatcher:   dispatcher,
		Email:        f.email,
		SMS:          f.sms,
		Templates:    templates,
		Renderer:     voucher.NewImageRenderer("", f.voucherDir, "https://cafe.example/images", logger),
		PhonePattern: regexp.MustCompile(`^\+?61\d{9}$`),
	}, logger)
}

func (f *fixture) eventsOf(et events.EventType) []events.Event {
	var out []events.Event
	for _, e := range *f.published {
		if e.Type == et {
			out = append(out, e)
		}
	}
	return out
}

func (f *fixture) addCustomer(t *testing.T, email string, signup string, month time.Month, day int) *domain.Customer {
	t.Helper()
	signupDate, err := domain.ParseDate(signup)
	require.NoError(t, err)
	code, err := f.allocator.Allocate(context.Background())
	require.NoError(t, err)
	c := &domain.Customer{
		Name:        "Sam",
		Email:       email,
		PhoneNumber: "+61412345678",
		BirthDay:    day,
		BirthMonth:  month,
		SignupDate:  signupDate,
		VoucherCode: code,
	}
	require.NoError(t, f.repo.Create(context.Background(), c))
	return c
}

var errStoreDown = errors.New("store down")

// flakyRepository fails RecordDailyOutcome for one customer.
type flakyRepository struct {
	*repository.MemoryCustomerRepository
	failFor string
}

func (r *flakyRepository) RecordDailyOutcome(ctx context.Context, o repository.DailyOutcome) error {
	if o.CustomerID == r.failFor {
		return errStoreDown
	}
	return r.MemoryCustomerRepository.RecordDailyOutcome(ctx, o)
}
