package registration

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrOccurrenceNotFound   = errors.New("occurrence not found")
	ErrEventCancelled       = errors.New("event is cancelled")
	ErrOccurrenceInPast     = errors.New("occurrence is in the past")
	ErrAlreadyRegistered    = errors.New("already registered for this occurrence")
	ErrConflictDetected     = errors.New("conflicting registration detected")
	ErrCapacityExceeded     = errors.New("occurrence capacity exceeded")
	ErrRegistrationNotFound = errors.New("registration not found")
	ErrRateLimited          = errors.New("rate limited")

	// ErrSeatAccounting marks a seat counter that was already inconsistent
	// before the request. It is a defect signal, not a user error.
	ErrSeatAccounting = errors.New("seat accounting invariant violated")
)

type OccurrenceNotFoundError struct {
	OccurrenceID uuid.UUID
}

func (e OccurrenceNotFoundError) Error() string {
	return fmt.Sprintf("occurrence not found: %s", e.OccurrenceID)
}

func (e OccurrenceNotFoundError) Unwrap() error { return ErrOccurrenceNotFound }

type RegistrationNotFoundError struct {
	RegistrationID uuid.UUID
}

func (e RegistrationNotFoundError) Error() string {
	return fmt.Sprintf("registration not found: %s", e.RegistrationID)
}

func (e RegistrationNotFoundError) Unwrap() error { return ErrRegistrationNotFound }

// ConflictDetectedError reports the first existing registration whose
// occurrence window overlaps the requested one.
type ConflictDetectedError struct {
	OccurrenceID uuid.UUID
	EventTitle   string
	StartDate    time.Time
	EndDate      time.Time
}

func (e ConflictDetectedError) Error() string {
	return fmt.Sprintf(
		"conflicts with registration for %q (%s) from %s to %s",
		e.EventTitle, e.OccurrenceID,
		e.StartDate.Format(time.RFC3339), e.EndDate.Format(time.RFC3339),
	)
}

func (e ConflictDetectedError) Unwrap() error { return ErrConflictDetected }
