package postgres

import (
	"context"

	"github.com/google/uuid"

	"github.com/yshvd/bookgo/internal/domain"
)

type OrganizationRepo struct {
	db DB
}

func (r *OrganizationRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Organization, error) {
	const op = "postgres.OrganizationRepo.FindByID"

	var o domain.Organization
	err := r.db.QueryRow(ctx,
		`SELECT id, name, slug, deleted_at, created_at, updated_at
		 FROM organizations WHERE id = $1`,
		id,
	).Scan(&o.ID, &o.Name, &o.Slug, &o.DeletedAt, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &o, nil
}

func (r *OrganizationRepo) FindBySlug(ctx context.Context, slug string) (*domain.Organization, error) {
	const op = "postgres.OrganizationRepo.FindBySlug"

	var o domain.Organization
	err := r.db.QueryRow(ctx,
		`SELECT id, name, slug, deleted_at, created_at, updated_at
		 FROM organizations WHERE slug = $1 AND deleted_at IS NULL`,
		slug,
	).Scan(&o.ID, &o.Name, &o.Slug, &o.DeletedAt, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &o, nil
}

func (r *OrganizationRepo) Save(ctx context.Context, org *domain.Organization) error {
	const op = "postgres.OrganizationRepo.Save"

	_, err := r.db.Exec(ctx,
		`INSERT INTO organizations (id, name, slug, deleted_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE
		 SET name = EXCLUDED.name,
		     slug = EXCLUDED.slug,
		     deleted_at = EXCLUDED.deleted_at,
		     updated_at = EXCLUDED.updated_at`,
		org.ID, org.Name, org.Slug, org.DeletedAt, org.CreatedAt, org.UpdatedAt,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}
