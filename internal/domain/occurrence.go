package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrCapacityExceeded reports an increment that would push
	// RegisteredSeats past MaxCapacity.
	ErrCapacityExceeded = errors.New("occurrence capacity exceeded")

	// ErrSeatUnderflow reports a decrement that would push RegisteredSeats
	// below zero. Seat accounting was already broken before the call.
	ErrSeatUnderflow = errors.New("registered seats would drop below zero")
)

// Occurrence is one concrete dated instance of an Event and the unit that
// registrations attach to. Title, Location and MaxCapacity are optional
// per-occurrence overrides; an unset MaxCapacity means unlimited.
type Occurrence struct {
	ID              uuid.UUID  `json:"id"`
	EventID         uuid.UUID  `json:"event_id"`
	OrganizationID  uuid.UUID  `json:"organization_id"`
	StartDate       time.Time  `json:"start_date"`
	EndDate         time.Time  `json:"end_date"`
	Title           *string    `json:"title,omitempty"`
	Location        *string    `json:"location,omitempty"`
	MaxCapacity     *int       `json:"max_capacity,omitempty"`
	RegisteredSeats int        `json:"registered_seats"`
	DeletedAt       *time.Time `json:"deleted_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func NewOccurrence(eventID, organizationID uuid.UUID, start, end, now time.Time) *Occurrence {
	return &Occurrence{
		ID:             uuid.New(),
		EventID:        eventID,
		OrganizationID: organizationID,
		StartDate:      start,
		EndDate:        end,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func (o *Occurrence) IsDeleted() bool { return o.DeletedAt != nil }

func (o *Occurrence) SoftDelete(now time.Time) {
	o.DeletedAt = &now
	o.UpdatedAt = now
}

// IncrementRegisteredSeats reserves count seats, rejecting the change when
// it would exceed MaxCapacity.
func (o *Occurrence) IncrementRegisteredSeats(count int) error {
	if o.MaxCapacity != nil && o.RegisteredSeats+count > *o.MaxCapacity {
		return ErrCapacityExceeded
	}
	o.RegisteredSeats += count
	return nil
}

// DecrementRegisteredSeats releases count seats, rejecting the change when
// it would drop RegisteredSeats below zero.
func (o *Occurrence) DecrementRegisteredSeats(count int) error {
	if o.RegisteredSeats-count < 0 {
		return ErrSeatUnderflow
	}
	o.RegisteredSeats -= count
	return nil
}

// OccurrenceChanges carries the occurrence-relevant fields an event update
// propagates to future occurrences. Nil means the field did not change.
type OccurrenceChanges struct {
	Title       *string
	Location    *string
	MaxCapacity *int
	EndDate     *time.Time
}

func (ch OccurrenceChanges) IsEmpty() bool {
	return ch.Title == nil && ch.Location == nil && ch.MaxCapacity == nil && ch.EndDate == nil
}

// Apply writes the changed fields and advances UpdatedAt.
func (o *Occurrence) Apply(ch OccurrenceChanges, now time.Time) {
	if ch.Title != nil {
		o.Title = ch.Title
	}
	if ch.Location != nil {
		o.Location = ch.Location
	}
	if ch.MaxCapacity != nil {
		o.MaxCapacity = ch.MaxCapacity
	}
	if ch.EndDate != nil {
		o.EndDate = *ch.EndDate
	}
	o.UpdatedAt = now
}
