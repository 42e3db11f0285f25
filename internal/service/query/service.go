package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yshvd/bookgo/internal/domain"
	redisx "github.com/yshvd/bookgo/internal/redis"
	"github.com/yshvd/bookgo/internal/repository"
	redisrepo "github.com/yshvd/bookgo/internal/repository/redis"
)

type Config struct {
	EventTTL               time.Duration
	OccurrencesTTL         time.Duration
	ListTTL                time.Duration
	DefaultOccurrencesPage int
	MaxOccurrencesPage     int
	DefaultListPage        int
	MaxListPage            int
}

// Service serves the read side. Every lookup goes through the cache; the
// write services evict on commit and the pubsub subscriber evicts on
// changes made by other instances.
type Service struct {
	store repository.Store
	cache *redisrepo.Cache
	cfg   Config
}

func New(store repository.Store, cache *redisrepo.Cache, cfg Config) *Service {
	if cfg.EventTTL <= 0 {
		cfg.EventTTL = 60 * time.Second
	}

	if cfg.OccurrencesTTL <= 0 {
		cfg.OccurrencesTTL = 30 * time.Second
	}

	if cfg.ListTTL <= 0 {
		cfg.ListTTL = 15 * time.Second
	}

	if cfg.DefaultOccurrencesPage <= 0 {
		cfg.DefaultOccurrencesPage = 100
	}

	if cfg.MaxOccurrencesPage <= 0 {
		cfg.MaxOccurrencesPage = 200
	}

	if cfg.DefaultListPage <= 0 {
		cfg.DefaultListPage = 20
	}

	if cfg.MaxListPage <= 0 {
		cfg.MaxListPage = 100
	}

	return &Service{
		store: store,
		cache: cache,
		cfg:   cfg,
	}
}

// GetEvent retrieves a live event by its ID through the cache.
//
// Returns:
//   - *domain.Event: the retrieved event.
//   - error: query.ErrEventNotFound if the event is absent or deleted.
func (s *Service) GetEvent(ctx context.Context, id uuid.UUID) (*domain.Event, error) {
	const op = "service.query.GetEvent"

	load := func(ctx context.Context) (domain.Event, error) {
		e, err := s.store.Events().FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return domain.Event{}, ErrEventNotFound
			}

			return domain.Event{}, err
		}

		if e.IsDeleted() {
			return domain.Event{}, ErrEventNotFound
		}

		return *e, nil
	}

	if s.cache == nil {
		event, err := load(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return &event, nil
	}

	event, err := redisrepo.GetOrSetJSON(ctx, s.cache, redisx.KeyEvent(id), s.cfg.EventTTL, load)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &event, nil
}

// ListOccurrences retrieves the live occurrences of an event in start-date
// order. The first page is served through the cache; offset pages go to
// the store directly.
//
// Returns:
//   - []domain.Occurrence: the occurrences.
//   - error: query.ErrEventNotFound if the event is absent or deleted.
func (s *Service) ListOccurrences(
	ctx context.Context,
	eventID uuid.UUID,
	limit, offset int,
) ([]domain.Occurrence, error) {
	const op = "service.query.ListOccurrences"

	if limit <= 0 {
		limit = s.cfg.DefaultOccurrencesPage
	}

	if limit > s.cfg.MaxOccurrencesPage {
		limit = s.cfg.MaxOccurrencesPage
	}

	if _, err := s.GetEvent(ctx, eventID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	load := func(ctx context.Context) ([]domain.Occurrence, error) {
		return s.store.Occurrences().ListByEvent(ctx, eventID, false, limit, offset)
	}

	if s.cache == nil || offset != 0 || limit != s.cfg.DefaultOccurrencesPage {
		occs, err := load(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return occs, nil
	}

	occs, err := redisrepo.GetOrSetJSON(
		ctx,
		s.cache,
		redisx.KeyEventOccurrences(eventID),
		s.cfg.OccurrencesTTL,
		load,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return occs, nil
}

// ListEvents retrieves a cursor page of an organization's live events.
func (s *Service) ListEvents(
	ctx context.Context,
	orgID uuid.UUID,
	first int,
	after string,
) (*repository.CursorResult[domain.Event], error) {
	const op = "service.query.ListEvents"

	first = s.clampPage(first)
	page := repository.CursorPage{First: first, After: after}

	load := func(ctx context.Context) (repository.CursorResult[domain.Event], error) {
		res, err := s.store.Events().ListByOrganization(ctx, orgID, page)
		if err != nil {
			return repository.CursorResult[domain.Event]{}, err
		}
		return *res, nil
	}

	if s.cache == nil {
		res, err := load(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return &res, nil
	}

	key := redisx.KeyOrgEvents(orgID, pageCursor(first, after))
	res, err := redisrepo.GetOrSetJSON(ctx, s.cache, key, s.cfg.ListTTL, load)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &res, nil
}

// ListRegistrations retrieves a cursor page of a user's registrations
// within one organization. Cancelled registrations are included only on
// request.
func (s *Service) ListRegistrations(
	ctx context.Context,
	orgID uuid.UUID,
	userID string,
	first int,
	after string,
	includeCancelled bool,
) (*repository.CursorResult[domain.Registration], error) {
	const op = "service.query.ListRegistrations"

	first = s.clampPage(first)
	params := repository.ListRegistrationsParams{
		OrganizationID:   orgID,
		UserID:           userID,
		IncludeCancelled: includeCancelled,
		Page:             repository.CursorPage{First: first, After: after},
	}

	load := func(ctx context.Context) (repository.CursorResult[domain.Registration], error) {
		res, err := s.store.Registrations().ListByUserInOrganization(ctx, params)
		if err != nil {
			return repository.CursorResult[domain.Registration]{}, err
		}
		return *res, nil
	}

	if s.cache == nil || includeCancelled {
		res, err := load(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return &res, nil
	}

	key := redisx.KeyUserRegistrations(orgID, userID, pageCursor(first, after))
	res, err := redisrepo.GetOrSetJSON(ctx, s.cache, key, s.cfg.ListTTL, load)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &res, nil
}

func (s *Service) clampPage(first int) int {
	if first <= 0 {
		return s.cfg.DefaultListPage
	}
	if first > s.cfg.MaxListPage {
		return s.cfg.MaxListPage
	}
	return first
}

func pageCursor(first int, after string) string {
	return fmt.Sprintf("%d:%s", first, after)
}
