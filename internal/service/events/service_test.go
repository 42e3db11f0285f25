package events

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/yshvd/bookgo/internal/clock"
	"github.com/yshvd/bookgo/internal/domain"
	"github.com/yshvd/bookgo/internal/repository/memory"
)

var testNow = time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC) // a Monday

type fixture struct {
	store *memory.Store
	clock *clock.Fixed
	svc   *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	clk := clock.NewFixed(testNow)
	return &fixture{
		store: store,
		clock: clk,
		svc:   New(store, nil, nil, clk),
	}
}

func (f *fixture) occurrencesOf(t *testing.T, eventID uuid.UUID) []domain.Occurrence {
	t.Helper()
	occs, err := f.store.Occurrences().ListByEvent(context.Background(), eventID, false, 500, 0)
	require.NoError(t, err)
	return occs
}

func strPtr(s string) *string        { return &s }
func intPtr(v int) *int              { return &v }
func timePtr(t time.Time) *time.Time { return &t }

func TestCreateEvent_NonRecurring(t *testing.T) {
	f := newFixture(t)

	event, err := f.svc.CreateEvent(context.Background(), CreateEventInput{
		OrganizationID: uuid.New(),
		Title:          "One-off Talk",
		StartDate:      testNow.Add(24 * time.Hour),
		EndDate:        testNow.Add(26 * time.Hour),
	})
	require.NoError(t, err)
	require.False(t, event.IsRecurring())
	require.Empty(t, f.occurrencesOf(t, event.ID), "non-recurring events own no occurrence rows")
}

func TestCreateEvent_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	orgID := uuid.New()

	_, err := f.svc.CreateEvent(ctx, CreateEventInput{
		OrganizationID: orgID,
		Title:          "",
		StartDate:      testNow,
		EndDate:        testNow.Add(time.Hour),
	})
	require.Error(t, err, "title is required")

	_, err = f.svc.CreateEvent(ctx, CreateEventInput{
		OrganizationID: orgID,
		Title:          "Backwards",
		StartDate:      testNow.Add(time.Hour),
		EndDate:        testNow,
	})
	require.Error(t, err, "end must be after start")
}

func TestCreateEvent_InvalidPattern(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateEvent(context.Background(), CreateEventInput{
		OrganizationID: uuid.New(),
		Title:          "Broken",
		StartDate:      testNow,
		EndDate:        testNow.Add(time.Hour),
		RecurrencePattern: &domain.RecurrencePattern{
			Frequency:  "SOMETIMES",
			ByMonthDay: []int{0, 40},
		},
	})
	var invalid InvalidRecurrencePatternError
	require.ErrorAs(t, err, &invalid)
	require.Len(t, invalid.Issues, 3, "every issue is reported, not just the first")
}

func TestCreateEvent_MaterializesOccurrences(t *testing.T) {
	f := newFixture(t)

	start := time.Date(2026, 2, 2, 18, 0, 0, 0, time.UTC)
	event, err := f.svc.CreateEvent(context.Background(), CreateEventInput{
		OrganizationID: uuid.New(),
		Title:          "Weekly Standup",
		StartDate:      start,
		EndDate:        start.Add(90 * time.Minute),
		MaxCapacity:    25,
		RecurrencePattern: &domain.RecurrencePattern{
			Frequency: domain.FreqWeekly,
			Count:     4,
		},
	})
	require.NoError(t, err)

	occs := f.occurrencesOf(t, event.ID)
	require.Len(t, occs, 4)
	for i, occ := range occs {
		require.Equal(t, event.ID, occ.EventID)
		require.Equal(t, start.AddDate(0, 0, 7*i), occ.StartDate, "occurrence %d start", i)
		require.Equal(t, 90*time.Minute, occ.EndDate.Sub(occ.StartDate), "duration inherited from the event")
		require.NotNil(t, occ.MaxCapacity)
		require.Equal(t, 25, *occ.MaxCapacity, "capacity inherited from the event")
		require.Equal(t, 0, occ.RegisteredSeats)
	}
}

func TestCreateEvent_ZeroCapacityMeansUnlimited(t *testing.T) {
	f := newFixture(t)

	event, err := f.svc.CreateEvent(context.Background(), CreateEventInput{
		OrganizationID: uuid.New(),
		Title:          "Open Doors",
		StartDate:      testNow,
		EndDate:        testNow.Add(time.Hour),
		RecurrencePattern: &domain.RecurrencePattern{
			Frequency: domain.FreqDaily,
			Count:     2,
		},
	})
	require.NoError(t, err)

	for _, occ := range f.occurrencesOf(t, event.ID) {
		require.Nil(t, occ.MaxCapacity)
	}
}

func TestUpdateEvent_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.UpdateEvent(context.Background(), uuid.New(), domain.EventChanges{
		Title: strPtr("x"),
	})
	require.ErrorIs(t, err, ErrEventNotFound)
}

func TestUpdateEvent_PatternChangeRegenerates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	event, err := f.svc.CreateEvent(ctx, CreateEventInput{
		OrganizationID: uuid.New(),
		Title:          "Course",
		StartDate:      start,
		EndDate:        start.Add(2 * time.Hour),
		RecurrencePattern: &domain.RecurrencePattern{
			Frequency: domain.FreqWeekly,
			Count:     4,
		},
	})
	require.NoError(t, err)

	before := f.occurrencesOf(t, event.ID)
	require.Len(t, before, 4)
	oldIDs := make(map[uuid.UUID]bool, len(before))
	for _, occ := range before {
		oldIDs[occ.ID] = true
	}

	updated, err := f.svc.UpdateEvent(ctx, event.ID, domain.EventChanges{
		PatternProvided: true,
		RecurrencePattern: &domain.RecurrencePattern{
			Frequency: domain.FreqWeekly,
			Count:     2,
		},
	})
	require.NoError(t, err)
	require.Equal(t, 2, updated.RecurrencePattern.Count)

	after := f.occurrencesOf(t, event.ID)
	require.Len(t, after, 2, "old set replaced wholesale")
	for _, occ := range after {
		require.False(t, oldIDs[occ.ID], "regenerated occurrences carry fresh ids")
		require.Equal(t, event.ID, occ.EventID)
	}
}

func TestUpdateEvent_PatternRemovedDropsOccurrences(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	event, err := f.svc.CreateEvent(ctx, CreateEventInput{
		OrganizationID: uuid.New(),
		Title:          "Was Recurring",
		StartDate:      testNow,
		EndDate:        testNow.Add(time.Hour),
		RecurrencePattern: &domain.RecurrencePattern{
			Frequency: domain.FreqDaily,
			Count:     3,
		},
	})
	require.NoError(t, err)
	require.Len(t, f.occurrencesOf(t, event.ID), 3)

	updated, err := f.svc.UpdateEvent(ctx, event.ID, domain.EventChanges{
		PatternProvided: true,
	})
	require.NoError(t, err)
	require.False(t, updated.IsRecurring())
	require.Empty(t, f.occurrencesOf(t, event.ID))
}

func TestUpdateEvent_UnchangedPatternPropagatesToFuture(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// two occurrences already in the past, two upcoming
	start := testNow.AddDate(0, 0, -14)
	event, err := f.svc.CreateEvent(ctx, CreateEventInput{
		OrganizationID: uuid.New(),
		Title:          "Series",
		StartDate:      start,
		EndDate:        start.Add(time.Hour),
		RecurrencePattern: &domain.RecurrencePattern{
			Frequency: domain.FreqWeekly,
			Count:     4,
		},
	})
	require.NoError(t, err)

	_, err = f.svc.UpdateEvent(ctx, event.ID, domain.EventChanges{
		Location: strPtr("Room B"),
	})
	require.NoError(t, err)

	occs := f.occurrencesOf(t, event.ID)
	require.Len(t, occs, 4)
	for _, occ := range occs {
		if occ.StartDate.Before(testNow) {
			require.Nil(t, occ.Location, "past occurrences keep their history")
		} else {
			require.NotNil(t, occ.Location)
			require.Equal(t, "Room B", *occ.Location, "future occurrences follow the event")
		}
	}
}

func TestUpdateEvent_CapacityPropagatesToFuture(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	event, err := f.svc.CreateEvent(ctx, CreateEventInput{
		OrganizationID: uuid.New(),
		Title:          "Series",
		StartDate:      testNow.Add(24 * time.Hour),
		EndDate:        testNow.Add(25 * time.Hour),
		MaxCapacity:    10,
		RecurrencePattern: &domain.RecurrencePattern{
			Frequency: domain.FreqWeekly,
			Count:     3,
		},
	})
	require.NoError(t, err)

	_, err = f.svc.UpdateEvent(ctx, event.ID, domain.EventChanges{
		MaxCapacity: intPtr(40),
	})
	require.NoError(t, err)

	for _, occ := range f.occurrencesOf(t, event.ID) {
		require.NotNil(t, occ.MaxCapacity)
		require.Equal(t, 40, *occ.MaxCapacity)
	}
}

func TestUpdateEvent_DescriptionOnlyLeavesOccurrencesAlone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	event, err := f.svc.CreateEvent(ctx, CreateEventInput{
		OrganizationID: uuid.New(),
		Title:          "Series",
		StartDate:      testNow.Add(24 * time.Hour),
		EndDate:        testNow.Add(25 * time.Hour),
		RecurrencePattern: &domain.RecurrencePattern{
			Frequency: domain.FreqDaily,
			Count:     3,
		},
	})
	require.NoError(t, err)

	f.clock.Advance(time.Hour)

	updated, err := f.svc.UpdateEvent(ctx, event.ID, domain.EventChanges{
		Description: strPtr("now with an abstract"),
	})
	require.NoError(t, err)
	require.Equal(t, testNow.Add(time.Hour), updated.UpdatedAt)

	for _, occ := range f.occurrencesOf(t, event.ID) {
		require.Equal(t, testNow, occ.UpdatedAt, "a description-only update never touches occurrences")
	}
}

func TestUpdateEvent_NonRecurringTouchesNoOccurrences(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	event, err := f.svc.CreateEvent(ctx, CreateEventInput{
		OrganizationID: uuid.New(),
		Title:          "Single",
		StartDate:      testNow.Add(time.Hour),
		EndDate:        testNow.Add(2 * time.Hour),
	})
	require.NoError(t, err)

	updated, err := f.svc.UpdateEvent(ctx, event.ID, domain.EventChanges{
		Title:       strPtr("Single, renamed"),
		Description: strPtr("now with details"),
		EndDate:     timePtr(testNow.Add(3 * time.Hour)),
	})
	require.NoError(t, err)
	require.Equal(t, "Single, renamed", updated.Title)
	require.Equal(t, testNow.Add(3*time.Hour), updated.EndDate)
	require.Empty(t, f.occurrencesOf(t, event.ID))
}

func TestDeleteEvent_CascadesToOccurrences(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	event, err := f.svc.CreateEvent(ctx, CreateEventInput{
		OrganizationID: uuid.New(),
		Title:          "Doomed",
		StartDate:      testNow,
		EndDate:        testNow.Add(time.Hour),
		RecurrencePattern: &domain.RecurrencePattern{
			Frequency: domain.FreqDaily,
			Count:     3,
		},
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteEvent(ctx, event.ID))

	stored, err := f.store.Events().FindByID(ctx, event.ID)
	require.NoError(t, err)
	require.True(t, stored.IsDeleted(), "soft delete, the row survives")

	require.Empty(t, f.occurrencesOf(t, event.ID), "live listing hides cascaded occurrences")

	all, err := f.store.Occurrences().ListByEvent(ctx, event.ID, true, 500, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	for _, occ := range all {
		require.True(t, occ.IsDeleted())
	}
}

func TestDeleteEvent_AlreadyDeleted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	event, err := f.svc.CreateEvent(ctx, CreateEventInput{
		OrganizationID: uuid.New(),
		Title:          "Doomed",
		StartDate:      testNow,
		EndDate:        testNow.Add(time.Hour),
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteEvent(ctx, event.ID))
	require.ErrorIs(t, f.svc.DeleteEvent(ctx, event.ID), ErrEventNotFound)
}
