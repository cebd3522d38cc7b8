package domain

// TemplateKey names a notification template independent of the channel.
type TemplateKey string

const (
	TemplateWelcome          TemplateKey = "welcome"
	TemplateTwoWeekFirst     TemplateKey = "two_week_pre_first"
	TemplateTwoWeekRecurring TemplateKey = "two_week_pre_recurring"
	TemplateOneMonth         TemplateKey = "one_month_post"

	// Optional ids used by the birthday webhook for customers past their
	// first year. When unset the webhook uses the daily-run template.
	TemplateWebhookTwoWeekNextYear  TemplateKey = "webhook_two_week_next_year"
	TemplateWebhookOneMonthNextYear TemplateKey = "webhook_one_month_next_year"
)

var templateFallbacks = map[TemplateKey]TemplateKey{
	TemplateWebhookTwoWeekNextYear:  TemplateTwoWeekRecurring,
	TemplateWebhookOneMonthNextYear: TemplateOneMonth,
}

// Fallback returns the required key to use when k is not configured.
func (k TemplateKey) Fallback() (TemplateKey, bool) {
	fallback, ok := templateFallbacks[k]
	return fallback, ok
}

// RequiredTemplateKeys lists the keys every deployment must configure.
var RequiredTemplateKeys = []TemplateKey{
	TemplateWelcome,
	TemplateTwoWeekFirst,
	TemplateTwoWeekRecurring,
	TemplateOneMonth,
}

// TemplateKeyFor maps a due reminder onto its template key.
func TemplateKeyFor(r DueReminder) TemplateKey {
	switch r.Kind {
	case ReminderOneMonthPost:
		return TemplateOneMonth
	default:
		if r.Template == SelectorAfterFirstBirthday {
			return TemplateTwoWeekRecurring
		}
		return TemplateTwoWeekFirst
	}
}

// TemplateKeyFromLegacyType maps the templateType values accepted by the
// birthday webhook. Unknown values fall back to the welcome template.
func TemplateKeyFromLegacyType(templateType string) TemplateKey {
	switch templateType {
	case "TEMPLATE_1ST_2WEEKS":
		return TemplateTwoWeekFirst
	case "TEMPLATE_2ND_2WEEKS":
		return TemplateWebhookTwoWeekNextYear
	case "TEMPLATE_1MONTH":
		return TemplateWebhookOneMonthNextYear
	default:
		return TemplateWelcome
	}
}
