package events

import (
	"time"

	"github.com/spec-kit/loyalty-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventCustomerSignedUp  EventType = "customer_signed_up"
	EventVoucherIssued     EventType = "voucher_issued"
	EventReminderSent      EventType = "reminder_sent"
	EventCustomerSkipped   EventType = "customer_skipped"
	EventDailyRunCompleted EventType = "daily_run_completed"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID         string      `json:"id"`
	Type       EventType   `json:"type"`
	CustomerID string      `json:"customer_id,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
	Payload    interface{} `json:"payload"`
}

// CustomerSignedUpPayload payload.
type CustomerSignedUpPayload struct {
	Name        string             `json:"name"`
	Email       string             `json:"email"`
	PhoneNumber string             `json:"phone_number"`
	BirthDay    int                `json:"birth_day"`
	BirthMonth  int                `json:"birth_month"`
	SignupDate  string             `json:"signup_date"`
	VoucherCode domain.VoucherCode `json:"voucher_code"`
	EmailSent   bool               `json:"email_sent"`
	SMSSent     bool               `json:"sms_sent"`
}

// VoucherIssuedPayload payload.
type VoucherIssuedPayload struct {
	OldCode domain.VoucherCode `json:"old_code"`
	NewCode domain.VoucherCode `json:"new_code"`
}

// ReminderSentPayload payload.
type ReminderSentPayload struct {
	Kind      domain.ReminderKind `json:"kind"`
	Template  domain.TemplateKey  `json:"template"`
	EmailSent bool                `json:"email_sent"`
	SMSSent   bool                `json:"sms_sent"`
}

// CustomerSkippedPayload payload.
type CustomerSkippedPayload struct {
	Reason string `json:"reason"`
}

// DailyRunCompletedPayload payload.
type DailyRunCompletedPayload struct {
	Date      string `json:"date"`
	Processed int    `json:"processed"`
	Skipped   int    `json:"skipped"`
	Failed    bool   `json:"failed"`
}
