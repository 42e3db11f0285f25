package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestOccurrence_IncrementWithinCapacity(t *testing.T) {
	capacity := 10
	occ := &Occurrence{MaxCapacity: &capacity}

	require.NoError(t, occ.IncrementRegisteredSeats(4), "4 of 10 should fit")
	require.NoError(t, occ.IncrementRegisteredSeats(6), "exactly full should fit")
	require.Equal(t, 10, occ.RegisteredSeats)
}

func TestOccurrence_IncrementOverCapacity(t *testing.T) {
	capacity := 5
	occ := &Occurrence{MaxCapacity: &capacity, RegisteredSeats: 4}

	err := occ.IncrementRegisteredSeats(2)
	require.ErrorIs(t, err, ErrCapacityExceeded)
	require.Equal(t, 4, occ.RegisteredSeats, "failed increment must not change the counter")
}

func TestOccurrence_IncrementUnlimited(t *testing.T) {
	occ := &Occurrence{}

	require.NoError(t, occ.IncrementRegisteredSeats(1000), "no capacity means unlimited")
	require.Equal(t, 1000, occ.RegisteredSeats)
}

func TestOccurrence_DecrementBelowZero(t *testing.T) {
	occ := &Occurrence{RegisteredSeats: 3}

	err := occ.DecrementRegisteredSeats(4)
	require.ErrorIs(t, err, ErrSeatUnderflow)
	require.Equal(t, 3, occ.RegisteredSeats, "failed decrement must not change the counter")
}

func TestProperty_SeatCounterInvariant(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		capacity := rapid.IntRange(1, 20).Draw(rt, "capacity")
		occ := &Occurrence{MaxCapacity: &capacity}

		steps := rapid.IntRange(1, 50).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			count := rapid.IntRange(1, 5).Draw(rt, "count")
			if rapid.Bool().Draw(rt, "increment") {
				_ = occ.IncrementRegisteredSeats(count)
			} else {
				_ = occ.DecrementRegisteredSeats(count)
			}

			require.GreaterOrEqual(t, occ.RegisteredSeats, 0, "counter must never go negative")
			require.LessOrEqual(t, occ.RegisteredSeats, capacity, "counter must never exceed capacity")
		}
	})
}

func TestOccurrence_SoftDelete(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	occ := NewOccurrence(uuid.New(), uuid.New(), now, now.Add(time.Hour), now)

	require.False(t, occ.IsDeleted())
	occ.SoftDelete(now.Add(time.Minute))
	require.True(t, occ.IsDeleted())
	require.Equal(t, now.Add(time.Minute), occ.UpdatedAt)
}

func TestOccurrence_ApplyChanges(t *testing.T) {
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	occ := NewOccurrence(uuid.New(), uuid.New(), created, created.Add(time.Hour), created)

	title := "Renamed"
	capacity := 25
	newEnd := created.Add(2 * time.Hour)
	later := created.Add(time.Minute)

	occ.Apply(OccurrenceChanges{Title: &title, MaxCapacity: &capacity, EndDate: &newEnd}, later)

	require.Equal(t, "Renamed", *occ.Title)
	require.Equal(t, 25, *occ.MaxCapacity)
	require.Equal(t, newEnd, occ.EndDate)
	require.Nil(t, occ.Location, "unprovided fields stay untouched")
	require.Equal(t, later, occ.UpdatedAt)
}

func TestOccurrenceChanges_IsEmpty(t *testing.T) {
	require.True(t, OccurrenceChanges{}.IsEmpty())

	title := "x"
	require.False(t, OccurrenceChanges{Title: &title}.IsEmpty())
}
