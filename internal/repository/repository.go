// Package repository defines the persistence contracts the workflows depend
// on. Implementations must keep every operation usable both standalone and
// inside a transaction-bound Store handed out by RunTx.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yshvd/bookgo/internal/domain"
)

// Store bundles the repositories over one backing store. RunTx runs fn with
// a Store bound to a single serializable transaction; an error from fn
// rolls the whole transaction back.
type Store interface {
	Organizations() OrganizationRepository
	Events() EventRepository
	Occurrences() OccurrenceRepository
	Registrations() RegistrationRepository
	RunTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}

type OrganizationRepository interface {
	// FindByID returns the organization, including a soft-deleted one;
	// callers decide on visibility.
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Organization, error)
	FindBySlug(ctx context.Context, slug string) (*domain.Organization, error)
	// Save upserts by id. A slug collision among live organizations
	// surfaces as ErrConflict.
	Save(ctx context.Context, org *domain.Organization) error
}

type EventRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Event, error)
	Save(ctx context.Context, event *domain.Event) error
	// ListByOrganization pages live events by ascending id cursor.
	ListByOrganization(ctx context.Context, orgID uuid.UUID, page CursorPage) (*CursorResult[domain.Event], error)
}

type OccurrenceRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Occurrence, error)
	Save(ctx context.Context, occ *domain.Occurrence) error
	SaveMany(ctx context.Context, occs []*domain.Occurrence) error
	ListByEvent(ctx context.Context, eventID uuid.UUID, includeDeleted bool, limit, offset int) ([]domain.Occurrence, error)
	// DeleteByEvent hard-deletes every occurrence of the event; used when a
	// recurrence change rewrites the whole set.
	DeleteByEvent(ctx context.Context, eventID uuid.UUID) error
	// SoftDeleteByEvent cascades a soft delete to every live occurrence.
	SoftDeleteByEvent(ctx context.Context, eventID uuid.UUID, now time.Time) error
	// UpdateFutureByEvent applies the changes to live occurrences whose
	// start date is at or after from.
	UpdateFutureByEvent(ctx context.Context, eventID uuid.UUID, from time.Time, ch domain.OccurrenceChanges, now time.Time) error
	// ReserveSeats increments registered seats only if the result stays
	// within max capacity, returning ErrCapacityExceeded otherwise.
	ReserveSeats(ctx context.Context, id uuid.UUID, count int) error
	// ReleaseSeats decrements registered seats only if the result stays
	// non-negative, returning ErrSeatUnderflow otherwise.
	ReleaseSeats(ctx context.Context, id uuid.UUID, count int) error
}

type RegistrationRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Registration, error)
	// FindByUserAndOccurrence returns the registration for the pair
	// regardless of status; at most one exists because cancelled ones are
	// reactivated in place.
	FindByUserAndOccurrence(ctx context.Context, userID string, occurrenceID uuid.UUID) (*domain.Registration, error)
	// FindOverlapping returns the user's active registrations, across all
	// organizations, whose window strictly overlaps [start, end).
	FindOverlapping(ctx context.Context, userID string, start, end time.Time) ([]domain.Registration, error)
	// Save upserts by id. A second active registration for the same
	// (user, occurrence) pair surfaces as ErrConflict.
	Save(ctx context.Context, reg *domain.Registration) error
	ListByUserInOrganization(ctx context.Context, p ListRegistrationsParams) (*CursorResult[domain.Registration], error)
}

type ListRegistrationsParams struct {
	UserID           string
	OrganizationID   uuid.UUID
	IncludeCancelled bool
	Page             CursorPage
}

type CursorPage struct {
	First int
	After string
}

type CursorResult[T any] struct {
	Items       []T
	EndCursor   string
	HasNextPage bool
	TotalCount  int
}
