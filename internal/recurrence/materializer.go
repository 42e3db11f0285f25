// Package recurrence expands recurrence patterns into concrete occurrence
// start times.
package recurrence

import (
	"time"

	"github.com/yshvd/bookgo/internal/domain"
)

// MaxOccurrences is the hard cap on a single expansion. It bounds malformed
// or unbounded rules no matter what count/until say.
const MaxOccurrences = 183

// maxBarrenDays bounds how many in-period days the scan may examine without
// a hit before the rule is declared unsatisfiable (e.g. February 30th).
// Eight years covers the widest legitimate dry spell: a leap-day rule
// crossing a skipped century leap year.
const maxBarrenDays = 8 * 366

// Materialize returns the ordered start times satisfying the pattern,
// beginning at anchor inclusive. The anchor itself is emitted only when it
// satisfies the rule; otherwise the sequence starts at the first satisfying
// time after it. The result is deterministic, chronological and capped at
// MaxOccurrences. The pattern must have passed Validate.
//
// Days outside the interval grid are skipped wholesale, so sparse rules
// (a yearly rule with a large interval, say) still reach the cap.
func Materialize(p domain.RecurrencePattern, anchor time.Time) []time.Time {
	interval := p.Interval
	if interval < 1 {
		interval = 1
	}

	limit := MaxOccurrences
	if p.Count > 0 && p.Count < limit {
		limit = p.Count
	}

	m := matcher{pattern: p, interval: interval, anchor: anchor}

	out := make([]time.Time, 0, limit)
	day := time.Date(anchor.Year(), anchor.Month(), anchor.Day(), 0, 0, 0, 0, anchor.Location())

	for barren := 0; len(out) < limit && barren < maxBarrenDays; {
		if gap := m.periodGap(day); gap > 0 {
			day = m.nextPeriodStart(day, gap)
			continue
		}

		candidate := time.Date(
			day.Year(), day.Month(), day.Day(),
			anchor.Hour(), anchor.Minute(), anchor.Second(), anchor.Nanosecond(),
			anchor.Location(),
		)
		if p.Until != nil && candidate.After(*p.Until) {
			break
		}

		if m.matches(candidate) {
			out = append(out, candidate)
			barren = 0
		} else {
			barren++
		}

		day = day.AddDate(0, 0, 1)
	}

	return out
}

type matcher struct {
	pattern  domain.RecurrencePattern
	interval int
	anchor   time.Time
}

// periodGap reports how many periods ahead the next interval-selected
// period lies; zero means the day already sits inside one.
func (m matcher) periodGap(day time.Time) int {
	var n int
	switch m.pattern.Frequency {
	case domain.FreqWeekly:
		n = weeksBetween(m.anchor, day)
	case domain.FreqMonthly:
		n = monthsBetween(m.anchor, day)
	case domain.FreqYearly:
		n = day.Year() - m.anchor.Year()
	default:
		n = daysBetween(m.anchor, day)
	}
	if rem := n % m.interval; rem != 0 {
		return m.interval - rem
	}
	return 0
}

// nextPeriodStart jumps to the first calendar day of the period gap
// periods ahead. The result is always strictly after day.
func (m matcher) nextPeriodStart(day time.Time, gap int) time.Time {
	switch m.pattern.Frequency {
	case domain.FreqWeekly:
		monday := day.AddDate(0, 0, -((int(day.Weekday()) + 6) % 7))
		return monday.AddDate(0, 0, 7*gap)
	case domain.FreqMonthly:
		first := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, day.Location())
		return first.AddDate(0, gap, 0)
	case domain.FreqYearly:
		return time.Date(day.Year()+gap, time.January, 1, 0, 0, 0, 0, day.Location())
	default:
		return day.AddDate(0, 0, gap)
	}
}

// matches applies the filters to an in-period candidate.
func (m matcher) matches(t time.Time) bool {
	switch m.pattern.Frequency {
	case domain.FreqDaily:
		return m.matchesByDay(t, nil) && m.matchesByMonthDay(t, false) && m.matchesByMonth(t, false)
	case domain.FreqWeekly:
		// Without a by-day set the rule repeats on the anchor's weekday.
		fallback := m.anchor.Weekday()
		return m.matchesByDay(t, &fallback) && m.matchesByMonth(t, false)
	case domain.FreqMonthly:
		return m.matchesByMonthDay(t, true) && m.matchesByDay(t, nil) && m.matchesByMonth(t, false)
	case domain.FreqYearly:
		return m.matchesByMonth(t, true) && m.matchesByMonthDay(t, true) && m.matchesByDay(t, nil)
	}
	return false
}

// matchesByDay checks the weekday filter; when the filter is empty the
// optional fallback weekday applies, and with neither every day passes.
func (m matcher) matchesByDay(t time.Time, fallback *time.Weekday) bool {
	if len(m.pattern.ByDay) == 0 {
		return fallback == nil || t.Weekday() == *fallback
	}
	for _, d := range m.pattern.ByDay {
		if wd, ok := d.Weekday(); ok && t.Weekday() == wd {
			return true
		}
	}
	return false
}

// matchesByMonthDay checks the day-of-month filter; when the filter is
// empty and anchorFallback is set, the anchor's day of month applies.
func (m matcher) matchesByMonthDay(t time.Time, anchorFallback bool) bool {
	if len(m.pattern.ByMonthDay) == 0 {
		return !anchorFallback || t.Day() == m.anchor.Day()
	}
	for _, d := range m.pattern.ByMonthDay {
		if t.Day() == d {
			return true
		}
	}
	return false
}

func (m matcher) matchesByMonth(t time.Time, anchorFallback bool) bool {
	if len(m.pattern.ByMonth) == 0 {
		return !anchorFallback || t.Month() == m.anchor.Month()
	}
	for _, mo := range m.pattern.ByMonth {
		if int(t.Month()) == mo {
			return true
		}
	}
	return false
}

// civilDay numbers calendar dates so day/week arithmetic ignores DST and
// time of day.
func civilDay(t time.Time) int {
	u := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return int(u.Unix() / 86400)
}

func daysBetween(a, b time.Time) int {
	return civilDay(b) - civilDay(a)
}

// weeksBetween counts Monday-started weeks, matching the default week start
// of iCalendar recurrence rules.
func weeksBetween(a, b time.Time) int {
	return weekIndex(b) - weekIndex(a)
}

func weekIndex(t time.Time) int {
	day := civilDay(t)
	offset := (int(t.Weekday()) + 6) % 7 // Monday = 0
	return (day - offset) / 7
}

func monthsBetween(a, b time.Time) int {
	return (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
}
