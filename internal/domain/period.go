package domain

import "time"

// BillingInterval is the length of one subscription billing period.
type BillingInterval string

const (
	IntervalMonthly BillingInterval = "monthly"
	IntervalYearly  BillingInterval = "yearly"
)

// AddInterval extends t by one billing interval with end-of-month
// clamping: Jan 31 + monthly is Feb 29 in a leap year, not Mar 2. Plain
// AddDate would overflow into the next month.
func AddInterval(t time.Time, interval BillingInterval) time.Time {
	months := 1
	if interval == IntervalYearly {
		months = 12
	}
	return addMonthsClamped(t, months)
}

func addMonthsClamped(t time.Time, months int) time.Time {
	firstOfTarget := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location()).AddDate(0, months, 0)
	day := t.Day()
	if last := daysInMonth(firstOfTarget.Year(), firstOfTarget.Month()); day > last {
		day = last
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysInMonth(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
