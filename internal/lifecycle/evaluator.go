// Package lifecycle decides which birthday-cycle actions are due for a
// customer on a given calendar day. Evaluation is pure: it reads nothing
// but its arguments and has no side effects.
package lifecycle

import (
	"fmt"
	"time"

	"github.com/spec-kit/loyalty-service/internal/domain"
)

const (
	// VoucherRegenerationDelay is how many days after a birthday the voucher is reissued.
	VoucherRegenerationDelay = 8
	// TwoWeekReminderLead is the two-week reminder offset before the upcoming birthday.
	TwoWeekReminderLead = 14
	// OneMonthReminderLead is the one-month reminder offset before the upcoming birthday.
	OneMonthReminderLead = 30
)

// InvalidDateError reports a birthday that does not exist in the evaluation year.
type InvalidDateError struct {
	Year  int
	Month time.Month
	Day   int
}

func (e *InvalidDateError) Error() string {
	return fmt.Sprintf("birthday %02d-%02d does not exist in %d", int(e.Month), e.Day, e.Year)
}

// Evaluate computes the lifecycle decision for customer c on day today.
// Feb 29 birthdays fail with *InvalidDateError in non-leap years; callers
// skip the customer for that run rather than clamping the date.
func Evaluate(today time.Time, c domain.Customer) (domain.LifecycleDecision, error) {
	today = domain.DateOf(today)
	var decision domain.LifecycleDecision

	birthdayThisYear, ok := domain.NewDate(today.Year(), c.BirthMonth, c.BirthDay)
	if !ok {
		return decision, &InvalidDateError{Year: today.Year(), Month: c.BirthMonth, Day: c.BirthDay}
	}

	lastBirthday := birthdayThisYear
	if today.Before(birthdayThisYear) {
		lastBirthday = shiftYears(c, today.Year()-1, birthdayThisYear)
	}
	if today.Equal(domain.AddDays(lastBirthday, VoucherRegenerationDelay)) && today.After(lastBirthday) {
		decision.VoucherDue = true
	}

	firstBirthday := FirstBirthday(c.SignupDate, c.BirthMonth, c.BirthDay)
	firstBirthdayPassed := !today.Before(firstBirthday)

	upcomingBirthday := birthdayThisYear
	if !today.Before(birthdayThisYear) {
		upcomingBirthday = shiftYears(c, today.Year()+1, birthdayThisYear)
	}

	if today.Equal(domain.AddDays(upcomingBirthday, -TwoWeekReminderLead)) {
		selector := domain.SelectorBeforeFirstBirthday
		if firstBirthdayPassed {
			selector = domain.SelectorAfterFirstBirthday
		}
		decision.DueReminders = append(decision.DueReminders, domain.DueReminder{
			Kind:     domain.ReminderTwoWeekPre,
			Template: selector,
		})
	}

	if today.Equal(domain.AddDays(upcomingBirthday, -OneMonthReminderLead)) && firstBirthdayPassed {
		decision.DueReminders = append(decision.DueReminders, domain.DueReminder{
			Kind:     domain.ReminderOneMonthPost,
			Template: domain.SelectorDefault,
		})
	}

	return decision, nil
}

// FirstBirthday returns the earliest occurrence of month/day not before the
// signup date. A Feb 29 birthday resolves to the next leap year.
func FirstBirthday(signup time.Time, month time.Month, day int) time.Time {
	signup = domain.DateOf(signup)
	for year := signup.Year(); year <= signup.Year()+8; year++ {
		candidate, ok := domain.NewDate(year, month, day)
		if !ok {
			continue
		}
		if !candidate.Before(signup) {
			return candidate
		}
	}
	// Unreachable for validated birthdays.
	return signup
}

// shiftYears moves a birthday to another year. If the birthday does not exist
// there (Feb 29), the same-year occurrence is returned so that the derived
// window never lands on an unrelated day.
func shiftYears(c domain.Customer, year int, fallback time.Time) time.Time {
	if d, ok := domain.NewDate(year, c.BirthMonth, c.BirthDay); ok {
		return d
	}
	return fallback
}
