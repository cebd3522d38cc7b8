package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/loyalty-service/internal/events"
)

// AuditService writes one structured audit line per lifecycle event. It
// replaces the spreadsheet log kept by the cafe.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger) *AuditService {
	return &AuditService{dispatcher: dispatcher, logger: logger.Named("audit")}
}

// RegisterHandlers subscribes to events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	for _, t := range []events.EventType{
		events.EventCustomerSignedUp,
		events.EventVoucherIssued,
		events.EventReminderSent,
		events.EventCustomerSkipped,
		events.EventDailyRunCompleted,
	} {
		a.dispatcher.Subscribe(t, a.handle)
	}
}

func (a *AuditService) handle(_ context.Context, event events.Event) error {
	a.logger.Info(string(event.Type),
		zap.String("event_id", event.ID),
		zap.String("customer_id", event.CustomerID),
		zap.Time("at", event.Timestamp),
		zap.Any("payload", event.Payload))
	return nil
}
