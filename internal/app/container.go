// Package app assembles the service graph shared by the HTTP server and the CLI.
package app

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/loyalty-service/internal/auth"
	"github.com/spec-kit/loyalty-service/internal/config"
	"github.com/spec-kit/loyalty-service/internal/events"
	"github.com/spec-kit/loyalty-service/internal/lock"
	"github.com/spec-kit/loyalty-service/internal/notify"
	"github.com/spec-kit/loyalty-service/internal/observability"
	"github.com/spec-kit/loyalty-service/internal/persistence"
	"github.com/spec-kit/loyalty-service/internal/repository"
	"github.com/spec-kit/loyalty-service/internal/service"
	"github.com/spec-kit/loyalty-service/internal/voucher"
)

// Container holds wired services and the connections they depend on.
type Container struct {
	Config   *config.Config
	Logger   *zap.Logger
	Metrics  *observability.Metrics
	Postgres *persistence.Postgres
	Redis    *persistence.Redis
	Location *time.Location

	Customers     repository.CustomerRepository
	Allocator     *voucher.Allocator
	Events        events.Dispatcher
	Notifications *service.NotificationService
	Signup        *service.SignupService
	DailyRun      *service.DailyRunService
	Lookup        *service.LookupService
	Tokens        *auth.TokenManager
}

// Build connects to the configured stores and wires every service.
// Without POSTGRES_DSN customers live in memory; without REDIS_ADDR the
// daily-run lease is process local.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Container, error) {
	location, err := cfg.App.Location()
	if err != nil {
		return nil, fmt.Errorf("resolve timezone: %w", err)
	}
	phonePattern, err := regexp.Compile(cfg.Notification.PhonePattern)
	if err != nil {
		return nil, fmt.Errorf("compile CONTACT_PHONE_PATTERN: %w", err)
	}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, cfg.App.Name, logger)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	var customers repository.CustomerRepository
	if pg.Configured() {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.Pool, cfg.Postgres.MigrationsDir, logger); err != nil {
				pg.Close()
				return nil, fmt.Errorf("run migrations: %w", err)
			}
		}
		customers = repository.NewCustomerRepository(pg.Pool)
	} else {
		customers = repository.NewMemoryCustomerRepository()
	}

	rdb, err := persistence.NewRedis(cfg.Redis, logger)
	if err != nil {
		pg.Close()
		return nil, fmt.Errorf("configure redis: %w", err)
	}
	var locker lock.Locker = lock.NewLocalLocker()
	if rdb.Configured() {
		locker = lock.NewRedisLocker(rdb.Client, cfg.App.Name+":")
	}

	metrics := observability.NewMetrics()
	allocator := voucher.NewAllocator(customers, cfg.Voucher.Prefix, logger, metrics.RecordVoucherAllocated)
	renderer := voucher.NewImageRenderer(cfg.Voucher.BaseImagePath, cfg.Voucher.OutputDir, cfg.Voucher.PublicBaseURL, logger)

	httpClient := &http.Client{}
	email := notify.NewMailerSend(notify.MailerSendConfig{
		Endpoint:   cfg.Notification.MailerSendEndpoint,
		APIKey:     cfg.Notification.MailerSendAPIKey,
		Sender:     cfg.Notification.MailerSendSender,
		SenderName: cfg.Notification.MailerSendSenderName,
		Subject:    cfg.Notification.MailerSendSubject,
	}, httpClient)
	sms := notify.NewCellCast(notify.CellCastConfig{
		Endpoint: cfg.Notification.CellCastEndpoint,
		APIKey:   cfg.Notification.CellCastAPIKey,
		SenderID: cfg.Notification.CellCastSenderID,
	}, httpClient)
	dispatcher := notify.NewDispatcher(notify.RetryPolicy{
		MaxAttempts:    cfg.Notification.MaxAttempts,
		BackoffBase:    cfg.Notification.BackoffBase,
		AttemptTimeout: cfg.Notification.AttemptTimeout(),
	}, logger, notify.WithRecorder(metrics), notify.WithRateLimit(cfg.Notification.RatePerMinute))

	bus := events.NewInMemoryDispatcher()
	service.NewAuditService(bus, logger).RegisterHandlers()

	notifications := service.NewNotificationService(service.NotificationDependencies{
		Dispatcher:    dispatcher,
		Email:         email,
		SMS:           sms,
		Templates:     cfg.Templates,
		Renderer:      renderer,
		PhonePattern:  phonePattern,
		VoucherPrefix: cfg.Voucher.Prefix,
	}, logger)

	signup := service.NewSignupService(service.SignupDependencies{
		Customers:     customers,
		Allocator:     allocator,
		Notifications: notifications,
		Events:        bus,
		Clock:         func() time.Time { return time.Now().In(location) },
	}, logger)

	dailyRun := service.NewDailyRunService(service.DailyRunDependencies{
		Customers:     customers,
		Allocator:     allocator,
		Notifications: notifications,
		Events:        bus,
		Locker:        locker,
		LockTTL:       cfg.DailyRun.LockTTL(),
		Workers:       cfg.DailyRun.Workers,
		Metrics:       metrics,
	}, logger)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	lookup := service.NewLookupService(customers, tokens, cfg.Auth.StaffPasswordHash)

	return &Container{
		Config:        cfg,
		Logger:        logger,
		Metrics:       metrics,
		Postgres:      pg,
		Redis:         rdb,
		Location:      location,
		Customers:     customers,
		Allocator:     allocator,
		Events:        bus,
		Notifications: notifications,
		Signup:        signup,
		DailyRun:      dailyRun,
		Lookup:        lookup,
		Tokens:        tokens,
	}, nil
}

// Today returns the current calendar date in the configured timezone.
func (c *Container) Today() time.Time {
	return time.Now().In(c.Location)
}

// Close releases store connections.
func (c *Container) Close() {
	c.Redis.Close()
	c.Postgres.Close()
}
