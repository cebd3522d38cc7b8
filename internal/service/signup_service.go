package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/loyalty-service/internal/domain"
	"github.com/spec-kit/loyalty-service/internal/events"
	"github.com/spec-kit/loyalty-service/internal/repository"
	apperrors "github.com/spec-kit/loyalty-service/pkg/util"
)

// VoucherAllocator issues voucher codes.
type VoucherAllocator interface {
	Allocate(ctx context.Context) (domain.VoucherCode, error)
}

// SignupInput describes a signup request.
type SignupInput struct {
	Name        string
	Email       string
	PhoneNumber string
	BirthDay    int
	BirthMonth  int
}

// SignupResult reports the created customer and welcome delivery outcome.
type SignupResult struct {
	Customer     *domain.Customer
	EmailSuccess bool
	SMSSuccess   bool
}

// SignupService registers new customers and sends the welcome voucher.
type SignupService struct {
	customers     repository.CustomerRepository
	allocator     VoucherAllocator
	notifications *NotificationService
	dispatcher    events.Dispatcher
	clock         func() time.Time
	logger        *zap.Logger
}

// SignupDependencies bundles collaborators for SignupService.
type SignupDependencies struct {
	Customers     repository.CustomerRepository
	Allocator     VoucherAllocator
	Notifications *NotificationService
	Events        events.Dispatcher
	Clock         func() time.Time
}

// NewSignupService builds the service.
func NewSignupService(deps SignupDependencies, logger *zap.Logger) *SignupService {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &SignupService{
		customers:     deps.Customers,
		allocator:     deps.Allocator,
		notifications: deps.Notifications,
		dispatcher:    deps.Events,
		clock:         clock,
		logger:        logger.Named("signup"),
	}
}

// Signup creates one customer, allocates the initial voucher and sends the
// welcome notification on both channels.
func (s *SignupService) Signup(ctx context.Context, in SignupInput) (*SignupResult, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.PhoneNumber = strings.TrimSpace(in.PhoneNumber)

	if err := s.validate(in); err != nil {
		return nil, err
	}

	if _, err := s.customers.GetByEmail(ctx, in.Email); err == nil {
		return nil, domain.ErrDuplicateCustomer
	} else if !errors.Is(err, domain.ErrCustomerNotFound) {
		return nil, &PersistenceError{Op: "find customer by email", Err: err}
	}

	code, err := s.allocator.Allocate(ctx)
	if err != nil {
		return nil, &PersistenceError{Op: "allocate voucher", Err: err}
	}

	customer := &domain.Customer{
		Name:        in.Name,
		Email:       in.Email,
		PhoneNumber: in.PhoneNumber,
		BirthDay:    in.BirthDay,
		BirthMonth:  time.Month(in.BirthMonth),
		SignupDate:  domain.DateOf(s.clock()),
		VoucherCode: code,
	}
	if err := s.customers.Create(ctx, customer); err != nil {
		if errors.Is(err, domain.ErrDuplicateCustomer) {
			return nil, err
		}
		return nil, &PersistenceError{Op: "create customer", Err: err}
	}
	s.logger.Info("customer registered", zap.String("customer_id", customer.ID), zap.String("voucher_code", code.String()))

	outcome := s.notifications.Notify(ctx, NotifyRequest{
		Recipient:     recipientOf(*customer),
		VoucherCode:   code,
		Template:      domain.TemplateWelcome,
		RenderVoucher: true,
	})

	customer.EmailSent = outcome.Email.Success
	customer.SMSSent = outcome.SMS.Success
	if err := s.customers.UpdateSentFlags(ctx, customer.ID, customer.EmailSent, customer.SMSSent); err != nil {
		return nil, &PersistenceError{Op: "update sent flags", Err: err}
	}

	s.publish(ctx, events.Event{
		Type:       events.EventCustomerSignedUp,
		CustomerID: customer.ID,
		Payload: events.CustomerSignedUpPayload{
			Name:        customer.Name,
			Email:       customer.Email,
			PhoneNumber: customer.PhoneNumber,
			BirthDay:    customer.BirthDay,
			BirthMonth:  int(customer.BirthMonth),
			SignupDate:  customer.SignupDate.Format(time.DateOnly),
			VoucherCode: code,
			EmailSent:   customer.EmailSent,
			SMSSent:     customer.SMSSent,
		},
	})

	return &SignupResult{
		Customer:     customer,
		EmailSuccess: outcome.Email.Success,
		SMSSuccess:   outcome.SMS.Success,
	}, nil
}

func (s *SignupService) validate(in SignupInput) error {
	details := map[string]any{}
	if in.Name == "" {
		details["name"] = "required"
	}
	if !domain.ValidEmail(in.Email) {
		details["email"] = "invalid email address"
	}
	if !s.notifications.ValidPhone(in.PhoneNumber) {
		details["phone_number"] = "invalid phone number"
	}
	if !domain.ValidBirthday(in.BirthDay, time.Month(in.BirthMonth)) {
		details["birthday"] = "birth_day and birth_month must form a calendar date"
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid signup request", details)
	}
	return nil
}

func (s *SignupService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed", zap.String("event", string(event.Type)), zap.Error(err))
	}
}
