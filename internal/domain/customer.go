package domain

import (
	"errors"
	"regexp"
	"time"
)

var (
	ErrCustomerNotFound  = errors.New("customer not found")
	ErrDuplicateCustomer = errors.New("customer email already registered")
)

var emailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)

// Customer is a loyalty member tracked across yearly birthday cycles.
type Customer struct {
	ID              string
	Name            string
	Email           string
	PhoneNumber     string
	BirthDay        int
	BirthMonth      time.Month
	SignupDate      time.Time
	VoucherCode     VoucherCode
	EmailSent       bool
	SMSSent         bool
	LastProcessedOn *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ProcessedOn reports whether the daily run already acted on this customer for day.
func (c Customer) ProcessedOn(day time.Time) bool {
	if c.LastProcessedOn == nil {
		return false
	}
	return SameDate(*c.LastProcessedOn, day)
}

// ValidEmail reports whether email looks deliverable.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// ValidBirthday reports whether day/month form a calendar date in some year.
// Feb 29 is accepted here; it only fails evaluation in non-leap years.
func ValidBirthday(day int, month time.Month) bool {
	if month < time.January || month > time.December || day < 1 {
		return false
	}
	// 2000 is a leap year, so every real day/month pair is constructible in it.
	_, ok := NewDate(2000, month, day)
	return ok
}
