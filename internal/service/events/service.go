// Package events implements the event lifecycle workflow: creating events,
// materializing their occurrences, propagating updates and cascading
// deletions.
package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yshvd/bookgo/internal/clock"
	"github.com/yshvd/bookgo/internal/domain"
	"github.com/yshvd/bookgo/internal/recurrence"
	redisx "github.com/yshvd/bookgo/internal/redis"
	"github.com/yshvd/bookgo/internal/repository"
	redisrepo "github.com/yshvd/bookgo/internal/repository/redis"
	"github.com/yshvd/bookgo/internal/uow"
)

type Service struct {
	store  repository.Store
	uow    *uow.UoW
	cache  *redisrepo.Cache
	pubsub *redisx.EventsPubSub
	clock  clock.Clock
}

func New(
	store repository.Store,
	cache *redisrepo.Cache,
	pubsub *redisx.EventsPubSub,
	clk clock.Clock,
) *Service {
	if clk == nil {
		clk = clock.System{}
	}

	return &Service{
		store:  store,
		uow:    uow.NewUoW(store),
		cache:  cache,
		pubsub: pubsub,
		clock:  clk,
	}
}

type CreateEventInput struct {
	OrganizationID    uuid.UUID
	Title             string
	Description       string
	Location          *string
	StartDate         time.Time
	EndDate           time.Time
	MaxCapacity       int
	RecurrencePattern *domain.RecurrencePattern
}

// CreateEvent validates the recurrence pattern, persists the event and, for
// recurring events, materializes and persists every occurrence in the same
// transaction.
//
// Returns:
//   - *domain.Event: the created event.
//   - error: events.InvalidRecurrencePatternError on a malformed pattern.
func (s *Service) CreateEvent(ctx context.Context, in CreateEventInput) (*domain.Event, error) {
	const op = "service.events.CreateEvent"

	if in.Title == "" {
		return nil, fmt.Errorf("%s: title is required", op)
	}

	if !in.EndDate.After(in.StartDate) {
		return nil, fmt.Errorf("%s: end date must be after start date", op)
	}

	if in.RecurrencePattern != nil {
		if issues := in.RecurrencePattern.Validate(); len(issues) > 0 {
			return nil, fmt.Errorf("%s:%w", op, InvalidRecurrencePatternError{Issues: issues})
		}
	}

	now := s.clock.Now()
	event := domain.NewEvent(
		in.OrganizationID,
		in.Title, in.Description, in.Location,
		in.StartDate, in.EndDate,
		in.MaxCapacity,
		in.RecurrencePattern,
		now,
	)

	if !event.IsRecurring() {
		if err := s.store.Events().Save(ctx, event); err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}

		s.notifyChanged(ctx, event.OrganizationID, event.ID)

		return event, nil
	}

	occs := s.materializeOccurrences(event, now)

	err := s.uow.Do(ctx, func(
		ctx context.Context,
		tx repository.Store,
		after func(uow.AfterCommit),
	) error {
		if err := tx.Events().Save(ctx, event); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		if err := tx.Occurrences().SaveMany(ctx, occs); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		after(func(ctx context.Context) {
			s.notifyChanged(ctx, event.OrganizationID, event.ID)
		})

		return nil
	})
	if err != nil {
		return nil, err
	}

	return event, nil
}

// UpdateEvent applies the provided field changes. The occurrence set is
// handled one of three ways: a changed pattern rebuilds it wholesale, an
// unchanged pattern on a recurring event propagates changed fields to
// future occurrences only, and a non-recurring event touches nothing.
//
// Returns:
//   - *domain.Event: the updated event.
//   - error: events.ErrEventNotFound if the event is absent or deleted.
//   - error: events.InvalidRecurrencePatternError on a malformed pattern.
func (s *Service) UpdateEvent(
	ctx context.Context,
	eventID uuid.UUID,
	ch domain.EventChanges,
) (*domain.Event, error) {
	const op = "service.events.UpdateEvent"

	if ch.PatternProvided && ch.RecurrencePattern != nil {
		if issues := ch.RecurrencePattern.Validate(); len(issues) > 0 {
			return nil, fmt.Errorf("%s:%w", op, InvalidRecurrencePatternError{Issues: issues})
		}
	}

	var updated *domain.Event

	err := s.uow.Do(ctx, func(
		ctx context.Context,
		tx repository.Store,
		after func(uow.AfterCommit),
	) error {
		event, err := tx.Events().FindByID(ctx, eventID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%s:%w", op, EventNotFoundError{EventID: eventID})
			}

			return fmt.Errorf("%s:%w", op, err)
		}

		if event.IsDeleted() {
			return fmt.Errorf("%s:%w", op, EventNotFoundError{EventID: eventID})
		}

		now := s.clock.Now()
		oldPattern := event.RecurrencePattern
		event.Update(ch, now)

		switch {
		case !oldPattern.Equal(event.RecurrencePattern):
			// The old schedule is meaningless under the new rule, so the
			// whole occurrence set is rebuilt.
			if err := tx.Occurrences().DeleteByEvent(ctx, event.ID); err != nil {
				return fmt.Errorf("%s:%w", op, err)
			}

			if event.IsRecurring() {
				occs := s.materializeOccurrences(event, now)
				if err := tx.Occurrences().SaveMany(ctx, occs); err != nil {
					return fmt.Errorf("%s:%w", op, err)
				}
			}

		case event.IsRecurring():
			occCh := occurrenceChanges(ch)
			if !occCh.IsEmpty() {
				if err := tx.Occurrences().UpdateFutureByEvent(ctx, event.ID, now, occCh, now); err != nil {
					return fmt.Errorf("%s:%w", op, err)
				}
			}
		}

		if err := tx.Events().Save(ctx, event); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		updated = event

		after(func(ctx context.Context) {
			s.notifyChanged(ctx, event.OrganizationID, event.ID)
		})

		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// DeleteEvent soft-deletes the event and cascades the soft delete to every
// live occurrence in the same transaction. Deleting an already-deleted
// event reports not-found.
func (s *Service) DeleteEvent(ctx context.Context, eventID uuid.UUID) error {
	const op = "service.events.DeleteEvent"

	return s.uow.Do(ctx, func(
		ctx context.Context,
		tx repository.Store,
		after func(uow.AfterCommit),
	) error {
		event, err := tx.Events().FindByID(ctx, eventID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%s:%w", op, EventNotFoundError{EventID: eventID})
			}

			return fmt.Errorf("%s:%w", op, err)
		}

		if event.IsDeleted() {
			return fmt.Errorf("%s:%w", op, EventNotFoundError{EventID: eventID})
		}

		now := s.clock.Now()
		event.SoftDelete(now)

		if err := tx.Events().Save(ctx, event); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		if err := tx.Occurrences().SoftDeleteByEvent(ctx, event.ID, now); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		after(func(ctx context.Context) {
			s.notifyChanged(ctx, event.OrganizationID, event.ID)
		})

		return nil
	})
}

// materializeOccurrences expands the event's pattern into occurrences. Each
// occurrence inherits the template duration and, when the event is capped,
// the event's capacity.
func (s *Service) materializeOccurrences(event *domain.Event, now time.Time) []*domain.Occurrence {
	duration := event.EndDate.Sub(event.StartDate)
	starts := recurrence.Materialize(*event.RecurrencePattern, event.StartDate)

	occs := make([]*domain.Occurrence, 0, len(starts))
	for _, start := range starts {
		occ := domain.NewOccurrence(event.ID, event.OrganizationID, start, start.Add(duration), now)
		if event.MaxCapacity > 0 {
			capacity := event.MaxCapacity
			occ.MaxCapacity = &capacity
		}
		occs = append(occs, occ)
	}

	return occs
}

// occurrenceChanges picks the occurrence-relevant fields out of an event
// update. A provided location always propagates, whether or not the prior
// value was set.
func occurrenceChanges(ch domain.EventChanges) domain.OccurrenceChanges {
	out := domain.OccurrenceChanges{
		Title:    ch.Title,
		Location: ch.Location,
		EndDate:  ch.EndDate,
	}
	if ch.MaxCapacity != nil && *ch.MaxCapacity > 0 {
		out.MaxCapacity = ch.MaxCapacity
	}
	return out
}

func (s *Service) notifyChanged(ctx context.Context, orgID, eventID uuid.UUID) {
	if s.cache != nil {
		_ = s.cache.InvalidateEvent(ctx, orgID, eventID)
	}
	if s.pubsub != nil {
		_ = s.pubsub.PublishEventChanged(ctx, orgID, eventID)
	}
}
