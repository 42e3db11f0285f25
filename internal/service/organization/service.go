package organization

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/yshvd/bookgo/internal/clock"
	"github.com/yshvd/bookgo/internal/domain"
	"github.com/yshvd/bookgo/internal/repository"
)

type Service struct {
	store repository.Store
	clock clock.Clock
}

func New(store repository.Store, clk clock.Clock) *Service {
	if clk == nil {
		clk = clock.System{}
	}

	return &Service{store: store, clock: clk}
}

// Create registers a new organization under a normalized slug.
//
// Returns:
//   - *domain.Organization: the created organization.
//   - error: organization.ErrSlugTaken if the slug is already in use.
func (s *Service) Create(ctx context.Context, name, slug string) (*domain.Organization, error) {
	const op = "service.organization.Create"

	org, err := domain.NewOrganization(name, slug, s.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.store.Organizations().Save(ctx, org); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("%s: %w", op, ErrSlugTaken)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return org, nil
}

// Get retrieves an organization by id.
//
// Returns:
//   - *domain.Organization: the organization.
//   - error: organization.ErrOrganizationNotFound if absent or deleted.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Organization, error) {
	const op = "service.organization.Get"

	org, err := s.store.Organizations().FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrOrganizationNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if org.IsDeleted() {
		return nil, fmt.Errorf("%s: %w", op, ErrOrganizationNotFound)
	}

	return org, nil
}

// GetBySlug retrieves an organization by its slug.
//
// Returns:
//   - *domain.Organization: the organization.
//   - error: organization.ErrOrganizationNotFound if absent or deleted.
func (s *Service) GetBySlug(ctx context.Context, slug string) (*domain.Organization, error) {
	const op = "service.organization.GetBySlug"

	normalized, err := domain.NormalizeSlug(slug)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrOrganizationNotFound)
	}

	org, err := s.store.Organizations().FindBySlug(ctx, normalized)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrOrganizationNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return org, nil
}
