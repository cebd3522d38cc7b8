package domain

// ReminderKind enumerates the reminder windows of a lifecycle cycle.
type ReminderKind string

const (
	ReminderTwoWeekPre   ReminderKind = "two_week_pre"
	ReminderOneMonthPost ReminderKind = "one_month_post"
)

// TemplateSelector picks a template variant for a reminder.
type TemplateSelector string

const (
	SelectorBeforeFirstBirthday TemplateSelector = "before_first_birthday"
	SelectorAfterFirstBirthday  TemplateSelector = "after_first_birthday"
	SelectorDefault             TemplateSelector = "default"
)

// DueReminder is a reminder the evaluator decided must go out today.
type DueReminder struct {
	Kind     ReminderKind
	Template TemplateSelector
}

// LifecycleDecision is the set of actions due for one customer on one day.
type LifecycleDecision struct {
	VoucherDue     bool
	NewVoucherCode VoucherCode
	DueReminders   []DueReminder
}

// HasActions reports whether anything is due.
func (d LifecycleDecision) HasActions() bool {
	return d.VoucherDue || len(d.DueReminders) > 0
}
