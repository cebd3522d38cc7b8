package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDateRejectsNonexistentDays(t *testing.T) {
	_, ok := NewDate(2023, time.February, 29)
	assert.False(t, ok)

	d, ok := NewDate(2024, time.February, 29)
	require.True(t, ok)
	assert.Equal(t, "2024-02-29", d.Format(time.DateOnly))

	_, ok = NewDate(2024, time.April, 31)
	assert.False(t, ok)
}

func TestDateOfKeepsWallClockDate(t *testing.T) {
	sydney := time.FixedZone("AEDT", 11*60*60)
	instant := time.Date(2024, time.January, 1, 6, 30, 0, 0, sydney)

	d := DateOf(instant)
	assert.Equal(t, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), d)
	assert.True(t, SameDate(d, instant))
	assert.Equal(t, "2023-12-31", AddDays(d, -1).Format(time.DateOnly))
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-03-08")
	require.NoError(t, err)
	assert.Equal(t, time.March, d.Month())

	_, err = ParseDate("08/03/2024")
	assert.Error(t, err)
}

func TestVoucherCodeSuffix(t *testing.T) {
	code := NewVoucherCode("TWC", 1000)
	assert.Equal(t, "TWC-1000", code.String())

	n, ok := code.Suffix()
	require.True(t, ok)
	assert.EqualValues(t, 1000, n)

	for _, bad := range []VoucherCode{"", "TWC", "TWC-", "TWC-abc"} {
		_, ok := bad.Suffix()
		assert.False(t, ok, "code %q", bad)
	}

	n, ok = VoucherCode("MY-SHOP-42").Suffix()
	require.True(t, ok)
	assert.EqualValues(t, 42, n)
}

func TestValidBirthday(t *testing.T) {
	assert.True(t, ValidBirthday(29, time.February))
	assert.True(t, ValidBirthday(31, time.December))
	assert.False(t, ValidBirthday(30, time.February))
	assert.False(t, ValidBirthday(0, time.March))
	assert.False(t, ValidBirthday(1, time.Month(13)))
}

func TestCustomerProcessedOn(t *testing.T) {
	day, _ := NewDate(2024, time.January, 23)
	c := Customer{}
	assert.False(t, c.ProcessedOn(day))

	c.LastProcessedOn = &day
	assert.True(t, c.ProcessedOn(day))
	assert.False(t, c.ProcessedOn(AddDays(day, 1)))
}

func TestTemplateKeys(t *testing.T) {
	assert.Equal(t, TemplateTwoWeekFirst, TemplateKeyFor(DueReminder{Kind: ReminderTwoWeekPre, Template: SelectorBeforeFirstBirthday}))
	assert.Equal(t, TemplateTwoWeekRecurring, TemplateKeyFor(DueReminder{Kind: ReminderTwoWeekPre, Template: SelectorAfterFirstBirthday}))
	assert.Equal(t, TemplateOneMonth, TemplateKeyFor(DueReminder{Kind: ReminderOneMonthPost, Template: SelectorDefault}))

	assert.Equal(t, TemplateTwoWeekFirst, TemplateKeyFromLegacyType("TEMPLATE_1ST_2WEEKS"))
	assert.Equal(t, TemplateWebhookTwoWeekNextYear, TemplateKeyFromLegacyType("TEMPLATE_2ND_2WEEKS"))
	assert.Equal(t, TemplateWebhookOneMonthNextYear, TemplateKeyFromLegacyType("TEMPLATE_1MONTH"))
	assert.Equal(t, TemplateWelcome, TemplateKeyFromLegacyType("anything"))

	fallback, ok := TemplateWebhookTwoWeekNextYear.Fallback()
	assert.True(t, ok)
	assert.Equal(t, TemplateTwoWeekRecurring, fallback)
	fallback, ok = TemplateWebhookOneMonthNextYear.Fallback()
	assert.True(t, ok)
	assert.Equal(t, TemplateOneMonth, fallback)
	_, ok = TemplateWelcome.Fallback()
	assert.False(t, ok)
}

func TestVoucherCodeValid(t *testing.T) {
	assert.True(t, VoucherCode("TWC-1000").Valid("TWC"))
	assert.True(t, VoucherCode("CAFE-7").Valid("CAFE"))
	for _, bad := range []VoucherCode{
		"", "TWC", "TWC-", "TWC-12a", "TWC--1", "TWC-+1", "XYZ-1000",
		"../../../escaped", "TWC-1000/../x", "TWC-99999999999999999999",
	} {
		assert.False(t, bad.Valid("TWC"), "%q", bad)
	}
}
