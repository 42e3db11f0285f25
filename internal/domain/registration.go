package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type RegistrationStatus string

const (
	RegistrationActive    RegistrationStatus = "active"
	RegistrationCancelled RegistrationStatus = "cancelled"
)

const (
	MinSeatCount = 1
	MaxSeatCount = 10
)

// Registration is one user's seat claim on one occurrence. The occurrence
// window and event title are snapshotted at creation time and not kept in
// sync afterwards.
type Registration struct {
	ID                  uuid.UUID          `json:"id"`
	OccurrenceID        uuid.UUID          `json:"occurrence_id"`
	OrganizationID      uuid.UUID          `json:"organization_id"`
	UserID              string             `json:"user_id"`
	SeatCount           int                `json:"seat_count"`
	Status              RegistrationStatus `json:"status"`
	OccurrenceStartDate time.Time          `json:"occurrence_start_date"`
	OccurrenceEndDate   time.Time          `json:"occurrence_end_date"`
	EventTitle          string             `json:"event_title"`
	DeletedAt           *time.Time         `json:"deleted_at,omitempty"`
	CreatedAt           time.Time          `json:"created_at"`
	UpdatedAt           time.Time          `json:"updated_at"`
}

// ValidateSeatCount checks the per-registration seat bounds.
func ValidateSeatCount(count int) error {
	if count < MinSeatCount || count > MaxSeatCount {
		return fmt.Errorf("seat count must be between %d and %d, got %d", MinSeatCount, MaxSeatCount, count)
	}
	return nil
}

func NewRegistration(
	occurrenceID, organizationID uuid.UUID,
	userID string,
	seatCount int,
	occurrenceStart, occurrenceEnd time.Time,
	eventTitle string,
	now time.Time,
) (*Registration, error) {
	if err := ValidateSeatCount(seatCount); err != nil {
		return nil, err
	}
	return &Registration{
		ID:                  uuid.New(),
		OccurrenceID:        occurrenceID,
		OrganizationID:      organizationID,
		UserID:              userID,
		SeatCount:           seatCount,
		Status:              RegistrationActive,
		OccurrenceStartDate: occurrenceStart,
		OccurrenceEndDate:   occurrenceEnd,
		EventTitle:          eventTitle,
		CreatedAt:           now,
		UpdatedAt:           now,
	}, nil
}

func (r *Registration) IsActive() bool  { return r.Status == RegistrationActive }
func (r *Registration) IsDeleted() bool { return r.DeletedAt != nil }

// Cancel flips the registration to cancelled and marks it deleted.
func (r *Registration) Cancel(now time.Time) {
	r.Status = RegistrationCancelled
	r.DeletedAt = &now
	r.UpdatedAt = now
}

// Reactivate flips a cancelled registration back to active in place,
// resetting the seat count to the new request.
func (r *Registration) Reactivate(seatCount int, now time.Time) {
	r.Status = RegistrationActive
	r.DeletedAt = nil
	r.SeatCount = seatCount
	r.UpdatedAt = now
}

// UpdateSeatCount reduces the claim without changing status.
func (r *Registration) UpdateSeatCount(seatCount int, now time.Time) {
	r.SeatCount = seatCount
	r.UpdatedAt = now
}
