// Package registration implements the transactional registration workflow.
// Every register and cancel call runs inside one transaction spanning the
// occurrence read, the capacity and overlap checks, the seat write and the
// registration write, so partial seat accounting is never observable.
package registration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/yshvd/bookgo/internal/clock"
	"github.com/yshvd/bookgo/internal/domain"
	redisx "github.com/yshvd/bookgo/internal/redis"
	"github.com/yshvd/bookgo/internal/repository"
	redisrepo "github.com/yshvd/bookgo/internal/repository/redis"
	"github.com/yshvd/bookgo/internal/uow"
)

type Service struct {
	store   repository.Store
	uow     *uow.UoW
	cache   *redisrepo.Cache
	pubsub  *redisx.EventsPubSub
	limiter *redisrepo.SlidingWindowLimiter
	clock   clock.Clock
	log     *slog.Logger
}

func New(
	store repository.Store,
	cache *redisrepo.Cache,
	pubsub *redisx.EventsPubSub,
	limiter *redisrepo.SlidingWindowLimiter,
	clk clock.Clock,
	log *slog.Logger,
) *Service {
	if clk == nil {
		clk = clock.System{}
	}

	if log == nil {
		log = slog.Default()
	}

	return &Service{
		store:   store,
		uow:     uow.NewUoW(store),
		cache:   cache,
		pubsub:  pubsub,
		limiter: limiter,
		clock:   clk,
		log:     log,
	}
}

type RegisterInput struct {
	OccurrenceID uuid.UUID
	UserID       string
	SeatCount    int
	RateLimitKey string
}

// RegisterForOccurrence claims seats on an occurrence for a user.
//
// A cancelled registration for the same (user, occurrence) pair is
// reactivated in place with the new seat count instead of creating a new
// row. New registrations are rejected when the user already holds an
// active registration whose occurrence window overlaps this one, anywhere
// in the system.
//
// Returns:
//   - *domain.Registration: the created or reactivated registration.
//   - error: registration.ErrOccurrenceNotFound, ErrEventCancelled,
//     ErrOccurrenceInPast, ErrAlreadyRegistered, ErrCapacityExceeded, or a
//     registration.ConflictDetectedError.
func (s *Service) RegisterForOccurrence(ctx context.Context, in RegisterInput) (*domain.Registration, error) {
	const op = "service.registration.RegisterForOccurrence"

	if err := domain.ValidateSeatCount(in.SeatCount); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if s.limiter != nil && in.RateLimitKey != "" {
		ok, retry, err := s.limiter.Allow(ctx, in.RateLimitKey)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		if !ok {
			return nil, fmt.Errorf("%s:%w: retry in %s", op, ErrRateLimited, retry)
		}
	}

	var reg *domain.Registration

	err := s.uow.Do(ctx, func(
		ctx context.Context,
		tx repository.Store,
		after func(uow.AfterCommit),
	) error {
		occ, err := tx.Occurrences().FindByID(ctx, in.OccurrenceID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%s:%w", op, OccurrenceNotFoundError{OccurrenceID: in.OccurrenceID})
			}

			return fmt.Errorf("%s:%w", op, err)
		}

		if occ.IsDeleted() {
			return fmt.Errorf("%s:%w", op, ErrEventCancelled)
		}

		now := s.clock.Now()
		if !occ.EndDate.After(now) {
			return fmt.Errorf("%s:%w", op, ErrOccurrenceInPast)
		}

		// An occurrence's visibility follows its event's.
		event, err := tx.Events().FindByID(ctx, occ.EventID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%s:%w", op, ErrEventCancelled)
			}

			return fmt.Errorf("%s:%w", op, err)
		}

		if event.IsDeleted() {
			return fmt.Errorf("%s:%w", op, ErrEventCancelled)
		}

		existing, err := tx.Registrations().FindByUserAndOccurrence(ctx, in.UserID, occ.ID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%s:%w", op, err)
		}

		if existing != nil {
			if existing.IsActive() {
				return fmt.Errorf("%s:%w", op, ErrAlreadyRegistered)
			}

			if err := s.reserve(ctx, tx, occ.ID, in.SeatCount, op); err != nil {
				return err
			}

			existing.Reactivate(in.SeatCount, now)
			if err := tx.Registrations().Save(ctx, existing); err != nil {
				return fmt.Errorf("%s:%w", op, err)
			}

			reg = existing
		} else {
			overlaps, err := tx.Registrations().FindOverlapping(ctx, in.UserID, occ.StartDate, occ.EndDate)
			if err != nil {
				return fmt.Errorf("%s:%w", op, err)
			}

			if len(overlaps) > 0 {
				first := overlaps[0]
				return fmt.Errorf("%s:%w", op, ConflictDetectedError{
					OccurrenceID: first.OccurrenceID,
					EventTitle:   first.EventTitle,
					StartDate:    first.OccurrenceStartDate,
					EndDate:      first.OccurrenceEndDate,
				})
			}

			if err := s.reserve(ctx, tx, occ.ID, in.SeatCount, op); err != nil {
				return err
			}

			newReg, err := domain.NewRegistration(
				occ.ID, occ.OrganizationID,
				in.UserID, in.SeatCount,
				occ.StartDate, occ.EndDate,
				event.Title,
				now,
			)
			if err != nil {
				return fmt.Errorf("%s: %w", op, err)
			}

			if err := tx.Registrations().Save(ctx, newReg); err != nil {
				// The storage constraint closes the race two concurrent
				// first-time callers would otherwise win together.
				if errors.Is(err, repository.ErrConflict) {
					return fmt.Errorf("%s:%w", op, ErrAlreadyRegistered)
				}

				return fmt.Errorf("%s:%w", op, err)
			}

			reg = newReg
		}

		after(func(ctx context.Context) {
			s.notifyChanged(ctx, occ.OrganizationID, occ.EventID, in.UserID)
		})

		return nil
	})
	if err != nil {
		return nil, err
	}

	return reg, nil
}

// CancelRegistration releases seats back to the occurrence. A nil or zero
// newSeatCount cancels in full; a positive one reduces the claim to that
// count. Cancelling an already-cancelled registration, or reducing to a
// value at or above the current count, is a no-op.
//
// Returns:
//   - *domain.Registration: the registration after the operation.
//   - error: registration.ErrRegistrationNotFound, or ErrSeatAccounting if
//     the seat counter was already inconsistent.
func (s *Service) CancelRegistration(
	ctx context.Context,
	registrationID uuid.UUID,
	newSeatCount *int,
) (*domain.Registration, error) {
	const op = "service.registration.CancelRegistration"

	if newSeatCount != nil && *newSeatCount < 0 {
		return nil, fmt.Errorf("%s: new seat count must not be negative", op)
	}

	var reg *domain.Registration

	err := s.uow.Do(ctx, func(
		ctx context.Context,
		tx repository.Store,
		after func(uow.AfterCommit),
	) error {
		found, err := tx.Registrations().FindByID(ctx, registrationID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%s:%w", op, RegistrationNotFoundError{RegistrationID: registrationID})
			}

			return fmt.Errorf("%s:%w", op, err)
		}

		reg = found
		full := newSeatCount == nil || *newSeatCount == 0

		if full {
			if !reg.IsActive() {
				return nil
			}

			if err := s.release(ctx, tx, reg.OccurrenceID, reg.SeatCount, op); err != nil {
				return err
			}

			reg.Cancel(s.clock.Now())
		} else {
			if !reg.IsActive() || *newSeatCount >= reg.SeatCount {
				return nil
			}

			delta := reg.SeatCount - *newSeatCount
			if err := s.release(ctx, tx, reg.OccurrenceID, delta, op); err != nil {
				return err
			}

			reg.UpdateSeatCount(*newSeatCount, s.clock.Now())
		}

		if err := tx.Registrations().Save(ctx, reg); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		occ, err := tx.Occurrences().FindByID(ctx, reg.OccurrenceID)
		if err == nil {
			after(func(ctx context.Context) {
				s.notifyChanged(ctx, occ.OrganizationID, occ.EventID, reg.UserID)
			})
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return reg, nil
}

func (s *Service) reserve(ctx context.Context, tx repository.Store, occurrenceID uuid.UUID, count int, op string) error {
	if err := tx.Occurrences().ReserveSeats(ctx, occurrenceID, count); err != nil {
		if errors.Is(err, repository.ErrCapacityExceeded) {
			return fmt.Errorf("%s:%w", op, ErrCapacityExceeded)
		}

		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

func (s *Service) release(ctx context.Context, tx repository.Store, occurrenceID uuid.UUID, count int, op string) error {
	if err := tx.Occurrences().ReleaseSeats(ctx, occurrenceID, count); err != nil {
		if errors.Is(err, repository.ErrSeatUnderflow) {
			s.log.Error("seat counter below zero on release",
				slog.String("occurrence_id", occurrenceID.String()),
				slog.Int("count", count),
			)

			return fmt.Errorf("%s:%w", op, ErrSeatAccounting)
		}

		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

func (s *Service) notifyChanged(ctx context.Context, orgID, eventID uuid.UUID, userID string) {
	if s.cache != nil {
		_ = s.cache.InvalidateEvent(ctx, orgID, eventID)
		_ = s.cache.InvalidateUserRegistrations(ctx, orgID, userID)
	}
	if s.pubsub != nil {
		_ = s.pubsub.PublishEventChanged(ctx, orgID, eventID)
	}
}
