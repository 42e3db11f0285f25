package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

type Frequency string

const (
	FreqDaily   Frequency = "DAILY"
	FreqWeekly  Frequency = "WEEKLY"
	FreqMonthly Frequency = "MONTHLY"
	FreqYearly  Frequency = "YEARLY"
)

type DayOfWeek string

const (
	Monday    DayOfWeek = "MO"
	Tuesday   DayOfWeek = "TU"
	Wednesday DayOfWeek = "WE"
	Thursday  DayOfWeek = "TH"
	Friday    DayOfWeek = "FR"
	Saturday  DayOfWeek = "SA"
	Sunday    DayOfWeek = "SU"
)

// Weekday maps a DayOfWeek to the stdlib weekday.
func (d DayOfWeek) Weekday() (time.Weekday, bool) {
	switch d {
	case Monday:
		return time.Monday, true
	case Tuesday:
		return time.Tuesday, true
	case Wednesday:
		return time.Wednesday, true
	case Thursday:
		return time.Thursday, true
	case Friday:
		return time.Friday, true
	case Saturday:
		return time.Saturday, true
	case Sunday:
		return time.Sunday, true
	}
	return 0, false
}

// RecurrencePattern describes how an event repeats. Interval 0 means the
// default of 1. Until is inclusive. Count and Until are both optional; the
// materializer caps the expansion regardless.
type RecurrencePattern struct {
	Frequency  Frequency   `json:"frequency"`
	Interval   int         `json:"interval,omitempty"`
	ByDay      []DayOfWeek `json:"by_day,omitempty"`
	ByMonthDay []int       `json:"by_month_day,omitempty"`
	ByMonth    []int       `json:"by_month,omitempty"`
	Until      *time.Time  `json:"until,omitempty"`
	Count      int         `json:"count,omitempty"`
}

// Validate collects every structural problem with the pattern. A pattern
// that passes validation is safe to hand to the materializer.
func (p *RecurrencePattern) Validate() []string {
	var issues []string

	switch p.Frequency {
	case FreqDaily, FreqWeekly, FreqMonthly, FreqYearly:
	default:
		issues = append(issues, fmt.Sprintf("unknown frequency %q", p.Frequency))
	}

	if p.Interval < 0 {
		issues = append(issues, fmt.Sprintf("interval must not be negative, got %d", p.Interval))
	}

	for _, d := range p.ByDay {
		if _, ok := d.Weekday(); !ok {
			issues = append(issues, fmt.Sprintf("unknown day of week %q", d))
		}
	}

	for _, d := range p.ByMonthDay {
		if d < 1 || d > 31 {
			issues = append(issues, fmt.Sprintf("day of month out of range 1..31: %d", d))
		}
	}

	for _, m := range p.ByMonth {
		if m < 1 || m > 12 {
			issues = append(issues, fmt.Sprintf("month out of range 1..12: %d", m))
		}
	}

	if p.Count < 0 {
		issues = append(issues, fmt.Sprintf("count must not be negative, got %d", p.Count))
	}

	return issues
}

// Equal compares two optional patterns by their serialized form, so field
// order and zero-value defaults compare the way they persist.
func (p *RecurrencePattern) Equal(other *RecurrencePattern) bool {
	if p == nil && other == nil {
		return true
	}
	if p == nil || other == nil {
		return false
	}
	a, _ := json.Marshal(p)
	b, _ := json.Marshal(other)
	return bytes.Equal(a, b)
}
