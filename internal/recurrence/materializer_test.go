package recurrence

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/yshvd/bookgo/internal/domain"
)

func mustParse(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err, "parse %q", s)
	return ts
}

func TestMaterialize_DailyCount(t *testing.T) {
	anchor := mustParse(t, "2026-01-05T09:00:00Z")
	p := domain.RecurrencePattern{Frequency: domain.FreqDaily, Interval: 1, Count: 3}

	got := Materialize(p, anchor)

	require.Len(t, got, 3, "count should bound the expansion")
	require.Equal(t, anchor, got[0], "first date should be the anchor")
	require.Equal(t, anchor.AddDate(0, 0, 1), got[1])
	require.Equal(t, anchor.AddDate(0, 0, 2), got[2])
}

func TestMaterialize_DailyInterval(t *testing.T) {
	anchor := mustParse(t, "2026-01-05T09:00:00Z")
	p := domain.RecurrencePattern{Frequency: domain.FreqDaily, Interval: 3, Count: 4}

	got := Materialize(p, anchor)

	require.Len(t, got, 4)
	for i, ts := range got {
		require.Equal(t, anchor.AddDate(0, 0, i*3), ts, "every third day from the anchor")
	}
}

func TestMaterialize_DailyUntilInclusive(t *testing.T) {
	anchor := mustParse(t, "2026-01-05T09:00:00Z")
	until := mustParse(t, "2026-01-08T09:00:00Z")
	p := domain.RecurrencePattern{Frequency: domain.FreqDaily, Until: &until}

	got := Materialize(p, anchor)

	require.Len(t, got, 4, "until is inclusive")
	require.Equal(t, until, got[len(got)-1], "last date should be until itself")
}

func TestMaterialize_WeeklyAnchorWeekday(t *testing.T) {
	// 2026-01-05 is a Monday.
	anchor := mustParse(t, "2026-01-05T18:30:00Z")
	p := domain.RecurrencePattern{Frequency: domain.FreqWeekly, Count: 4}

	got := Materialize(p, anchor)

	require.Len(t, got, 4)
	for i, ts := range got {
		require.Equal(t, time.Monday, ts.Weekday(), "no by-day set falls back to the anchor weekday")
		require.Equal(t, anchor.AddDate(0, 0, i*7), ts)
	}
}

func TestMaterialize_WeeklyByDay(t *testing.T) {
	// Monday anchor, Tue+Thu rule.
	anchor := mustParse(t, "2026-01-05T10:00:00Z")
	p := domain.RecurrencePattern{
		Frequency: domain.FreqWeekly,
		ByDay:     []domain.DayOfWeek{domain.Tuesday, domain.Thursday},
		Count:     4,
	}

	got := Materialize(p, anchor)

	require.Len(t, got, 4)
	require.Equal(t, mustParse(t, "2026-01-06T10:00:00Z"), got[0], "first Tuesday after anchor")
	require.Equal(t, mustParse(t, "2026-01-08T10:00:00Z"), got[1], "then Thursday")
	require.Equal(t, mustParse(t, "2026-01-13T10:00:00Z"), got[2])
	require.Equal(t, mustParse(t, "2026-01-15T10:00:00Z"), got[3])
}

func TestMaterialize_WeeklyIntervalTwo(t *testing.T) {
	anchor := mustParse(t, "2026-01-05T10:00:00Z")
	p := domain.RecurrencePattern{Frequency: domain.FreqWeekly, Interval: 2, Count: 3}

	got := Materialize(p, anchor)

	require.Len(t, got, 3)
	require.Equal(t, anchor, got[0])
	require.Equal(t, anchor.AddDate(0, 0, 14), got[1], "every other week")
	require.Equal(t, anchor.AddDate(0, 0, 28), got[2])
}

func TestMaterialize_MonthlyAnchorDay(t *testing.T) {
	anchor := mustParse(t, "2026-01-15T12:00:00Z")
	p := domain.RecurrencePattern{Frequency: domain.FreqMonthly, Count: 3}

	got := Materialize(p, anchor)

	require.Len(t, got, 3)
	require.Equal(t, anchor, got[0])
	require.Equal(t, mustParse(t, "2026-02-15T12:00:00Z"), got[1])
	require.Equal(t, mustParse(t, "2026-03-15T12:00:00Z"), got[2])
}

func TestMaterialize_MonthlyByMonthDay(t *testing.T) {
	anchor := mustParse(t, "2026-01-01T08:00:00Z")
	p := domain.RecurrencePattern{
		Frequency:  domain.FreqMonthly,
		ByMonthDay: []int{1, 15},
		Count:      4,
	}

	got := Materialize(p, anchor)

	require.Len(t, got, 4)
	require.Equal(t, mustParse(t, "2026-01-01T08:00:00Z"), got[0])
	require.Equal(t, mustParse(t, "2026-01-15T08:00:00Z"), got[1])
	require.Equal(t, mustParse(t, "2026-02-01T08:00:00Z"), got[2])
	require.Equal(t, mustParse(t, "2026-02-15T08:00:00Z"), got[3])
}

func TestMaterialize_Monthly31stSkipsShortMonths(t *testing.T) {
	anchor := mustParse(t, "2026-01-31T08:00:00Z")
	p := domain.RecurrencePattern{Frequency: domain.FreqMonthly, Count: 3}

	got := Materialize(p, anchor)

	require.Len(t, got, 3)
	require.Equal(t, mustParse(t, "2026-01-31T08:00:00Z"), got[0])
	require.Equal(t, mustParse(t, "2026-03-31T08:00:00Z"), got[1], "February has no 31st")
	require.Equal(t, mustParse(t, "2026-05-31T08:00:00Z"), got[2], "April has no 31st")
}

func TestMaterialize_YearlyAnchorDate(t *testing.T) {
	anchor := mustParse(t, "2026-06-10T09:00:00Z")
	p := domain.RecurrencePattern{Frequency: domain.FreqYearly, Count: 3}

	got := Materialize(p, anchor)

	require.Len(t, got, 3)
	require.Equal(t, anchor, got[0])
	require.Equal(t, mustParse(t, "2027-06-10T09:00:00Z"), got[1])
	require.Equal(t, mustParse(t, "2028-06-10T09:00:00Z"), got[2])
}

func TestMaterialize_YearlyByMonth(t *testing.T) {
	anchor := mustParse(t, "2026-01-10T09:00:00Z")
	p := domain.RecurrencePattern{
		Frequency: domain.FreqYearly,
		ByMonth:   []int{3, 9},
		Count:     4,
	}

	got := Materialize(p, anchor)

	require.Len(t, got, 4)
	require.Equal(t, mustParse(t, "2026-03-10T09:00:00Z"), got[0])
	require.Equal(t, mustParse(t, "2026-09-10T09:00:00Z"), got[1])
	require.Equal(t, mustParse(t, "2027-03-10T09:00:00Z"), got[2])
	require.Equal(t, mustParse(t, "2027-09-10T09:00:00Z"), got[3])
}

func TestMaterialize_HardCap(t *testing.T) {
	anchor := mustParse(t, "2026-01-01T00:00:00Z")
	p := domain.RecurrencePattern{Frequency: domain.FreqDaily}

	got := Materialize(p, anchor)

	require.Len(t, got, MaxOccurrences, "unbounded daily rule stops at the cap")
}

func TestMaterialize_CountAboveCapStillCapped(t *testing.T) {
	anchor := mustParse(t, "2026-01-01T00:00:00Z")
	p := domain.RecurrencePattern{Frequency: domain.FreqDaily, Count: 10000}

	got := Materialize(p, anchor)

	require.Len(t, got, MaxOccurrences, "count cannot raise the cap")
}

func TestMaterialize_UnsatisfiableRuleTerminates(t *testing.T) {
	anchor := mustParse(t, "2026-01-01T00:00:00Z")
	p := domain.RecurrencePattern{
		Frequency:  domain.FreqMonthly,
		ByMonthDay: []int{30},
		ByMonth:    []int{2},
	}

	got := Materialize(p, anchor)

	require.Empty(t, got, "February 30th never exists")
}

func TestMaterialize_SparseYearlyIntervalReachesCap(t *testing.T) {
	anchor := mustParse(t, "2026-01-01T09:00:00Z")
	p := domain.RecurrencePattern{
		Frequency: domain.FreqYearly,
		Interval:  2,
		Count:     183,
	}

	got := Materialize(p, anchor)

	require.Len(t, got, 183, "a sparse rule still reaches its full count")
	require.Equal(t, anchor, got[0])
	require.Equal(t, mustParse(t, "2390-01-01T09:00:00Z"), got[182], "every other year, 182 steps out")
}

func TestMaterialize_LeapDayRuleSurvivesDrySpells(t *testing.T) {
	anchor := mustParse(t, "2024-02-29T12:00:00Z")
	p := domain.RecurrencePattern{
		Frequency:  domain.FreqDaily,
		ByMonth:    []int{2},
		ByMonthDay: []int{29},
		Count:      3,
	}

	got := Materialize(p, anchor)

	require.Len(t, got, 3)
	require.Equal(t, anchor, got[0])
	require.Equal(t, mustParse(t, "2028-02-29T12:00:00Z"), got[1], "four barren years between hits")
	require.Equal(t, mustParse(t, "2032-02-29T12:00:00Z"), got[2])
}

func TestMaterialize_PreservesClockTime(t *testing.T) {
	anchor := mustParse(t, "2026-01-05T17:45:30Z")
	p := domain.RecurrencePattern{Frequency: domain.FreqWeekly, Count: 5}

	for _, ts := range Materialize(p, anchor) {
		require.Equal(t, 17, ts.Hour(), "hour carries over from the anchor")
		require.Equal(t, 45, ts.Minute(), "minute carries over from the anchor")
		require.Equal(t, 30, ts.Second(), "second carries over from the anchor")
	}
}

func TestProperty_MaterializeBoundedAndOrdered(t *testing.T) {
	base := mustParse(t, "2026-01-01T00:00:00Z")

	rapid.Check(t, func(rt *rapid.T) {
		freq := rapid.SampledFrom([]domain.Frequency{
			domain.FreqDaily, domain.FreqWeekly, domain.FreqMonthly, domain.FreqYearly,
		}).Draw(rt, "freq")
		interval := rapid.IntRange(1, 5).Draw(rt, "interval")
		count := rapid.IntRange(0, 300).Draw(rt, "count")
		anchorOffset := rapid.IntRange(0, 365).Draw(rt, "anchorOffset")
		anchor := base.AddDate(0, 0, anchorOffset)

		p := domain.RecurrencePattern{Frequency: freq, Interval: interval, Count: count}

		got := Materialize(p, anchor)

		require.LessOrEqual(t, len(got), MaxOccurrences, "never more than the cap")
		if count > 0 {
			require.LessOrEqual(t, len(got), count, "never more than count")
		}
		require.True(t, sort.SliceIsSorted(got, func(i, j int) bool {
			return got[i].Before(got[j])
		}), "dates must be chronological")
		for _, ts := range got {
			require.False(t, ts.Before(anchor), "no date before the anchor")
		}
	})
}
