package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestValidateSeatCount(t *testing.T) {
	require.Error(t, ValidateSeatCount(0), "below minimum")
	require.Error(t, ValidateSeatCount(11), "above maximum")
	require.Error(t, ValidateSeatCount(-1))
	require.NoError(t, ValidateSeatCount(1))
	require.NoError(t, ValidateSeatCount(10))
}

func TestNewRegistration(t *testing.T) {
	now := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	start := now.Add(24 * time.Hour)
	end := start.Add(2 * time.Hour)

	reg, err := NewRegistration(uuid.New(), uuid.New(), "user-1", 3, start, end, "Go Workshop", now)
	require.NoError(t, err)
	require.True(t, reg.IsActive())
	require.Equal(t, 3, reg.SeatCount)
	require.Equal(t, start, reg.OccurrenceStartDate, "window snapshot captured at creation")
	require.Equal(t, end, reg.OccurrenceEndDate)
	require.Equal(t, "Go Workshop", reg.EventTitle)

	_, err = NewRegistration(uuid.New(), uuid.New(), "user-1", 11, start, end, "Go Workshop", now)
	require.Error(t, err, "seat count out of bounds")
}

func TestRegistration_Lifecycle(t *testing.T) {
	now := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	reg, err := NewRegistration(uuid.New(), uuid.New(), "user-1", 5, now, now.Add(time.Hour), "Event", now)
	require.NoError(t, err)

	originalID := reg.ID

	// partial reduction keeps it active
	reg.UpdateSeatCount(3, now.Add(time.Minute))
	require.True(t, reg.IsActive())
	require.Equal(t, 3, reg.SeatCount)

	// cancellation flips status and marks deleted
	reg.Cancel(now.Add(2 * time.Minute))
	require.False(t, reg.IsActive())
	require.True(t, reg.IsDeleted())
	require.Equal(t, RegistrationCancelled, reg.Status)

	// reactivation reuses the id, clears deletion, resets seats
	reg.Reactivate(4, now.Add(3*time.Minute))
	require.True(t, reg.IsActive())
	require.False(t, reg.IsDeleted())
	require.Equal(t, 4, reg.SeatCount)
	require.Equal(t, originalID, reg.ID, "reactivation must not mint a new id")
}
