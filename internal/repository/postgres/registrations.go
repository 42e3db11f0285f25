package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yshvd/bookgo/internal/domain"
	"github.com/yshvd/bookgo/internal/repository"
)

type RegistrationRepo struct {
	db DB
}

const registrationColumns = `id, occurrence_id, organization_id, user_id,
	seat_count, status, occurrence_starts_at, occurrence_ends_at, event_title,
	deleted_at, created_at, updated_at`

func scanRegistration(row interface{ Scan(dest ...any) error }) (*domain.Registration, error) {
	var r domain.Registration
	err := row.Scan(
		&r.ID, &r.OccurrenceID, &r.OrganizationID, &r.UserID,
		&r.SeatCount, &r.Status, &r.OccurrenceStartDate, &r.OccurrenceEndDate, &r.EventTitle,
		&r.DeletedAt, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (r *RegistrationRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Registration, error) {
	const op = "postgres.RegistrationRepo.FindByID"

	row := r.db.QueryRow(ctx,
		`SELECT `+registrationColumns+` FROM registrations WHERE id = $1`,
		id,
	)

	reg, err := scanRegistration(row)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return reg, nil
}

func (r *RegistrationRepo) FindByUserAndOccurrence(
	ctx context.Context,
	userID string,
	occurrenceID uuid.UUID,
) (*domain.Registration, error) {
	const op = "postgres.RegistrationRepo.FindByUserAndOccurrence"

	row := r.db.QueryRow(ctx,
		`SELECT `+registrationColumns+`
		 FROM registrations
		 WHERE user_id = $1 AND occurrence_id = $2
		 ORDER BY created_at DESC
		 LIMIT 1`,
		userID, occurrenceID,
	)

	reg, err := scanRegistration(row)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return reg, nil
}

// FindOverlapping scans the user's active registrations system-wide, not
// scoped to an organization. Strict inequalities keep back-to-back windows
// out of the result.
func (r *RegistrationRepo) FindOverlapping(
	ctx context.Context,
	userID string,
	start, end time.Time,
) ([]domain.Registration, error) {
	const op = "postgres.RegistrationRepo.FindOverlapping"

	rows, err := r.db.Query(ctx,
		`SELECT `+registrationColumns+`
		 FROM registrations
		 WHERE user_id = $1 AND status = 'active'
		   AND occurrence_starts_at < $3
		   AND occurrence_ends_at > $2
		 ORDER BY occurrence_starts_at`,
		userID, start, end,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var out []domain.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, *reg)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

// Save upserts by id. The partial unique index on active
// (user_id, occurrence_id) pairs turns a double-insert race into
// repository.ErrConflict.
func (r *RegistrationRepo) Save(ctx context.Context, reg *domain.Registration) error {
	const op = "postgres.RegistrationRepo.Save"

	_, err := r.db.Exec(ctx,
		`INSERT INTO registrations (id, occurrence_id, organization_id, user_id,
			seat_count, status, occurrence_starts_at, occurrence_ends_at, event_title,
			deleted_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 ON CONFLICT (id) DO UPDATE
		 SET seat_count = EXCLUDED.seat_count,
		     status = EXCLUDED.status,
		     deleted_at = EXCLUDED.deleted_at,
		     updated_at = EXCLUDED.updated_at`,
		reg.ID, reg.OccurrenceID, reg.OrganizationID, reg.UserID,
		reg.SeatCount, reg.Status, reg.OccurrenceStartDate, reg.OccurrenceEndDate, reg.EventTitle,
		reg.DeletedAt, reg.CreatedAt, reg.UpdatedAt,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *RegistrationRepo) ListByUserInOrganization(
	ctx context.Context,
	p repository.ListRegistrationsParams,
) (*repository.CursorResult[domain.Registration], error) {
	const op = "postgres.RegistrationRepo.ListByUserInOrganization"

	after := uuid.Nil
	if p.Page.After != "" {
		var err error
		after, err = decodeCursor(p.Page.After)
		if err != nil {
			return nil, fmt.Errorf("%s: bad cursor: %w", op, err)
		}
	}

	statusFilter := ` AND status = 'active'`
	if p.IncludeCancelled {
		statusFilter = ``
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+registrationColumns+`
		 FROM registrations
		 WHERE organization_id = $1 AND user_id = $2 AND id > $3`+statusFilter+`
		 ORDER BY id
		 LIMIT $4`,
		p.OrganizationID, p.UserID, after, p.Page.First+1,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var items []domain.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, wrapDBErr(op, err)
		}
		items = append(items, *reg)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	out := &repository.CursorResult[domain.Registration]{Items: items}
	if len(items) > p.Page.First {
		out.Items = items[:p.Page.First]
		out.HasNextPage = true
	}
	if n := len(out.Items); n > 0 {
		out.EndCursor = encodeCursor(out.Items[n-1].ID)
	}

	err = r.db.QueryRow(ctx,
		`SELECT count(*)
		 FROM registrations
		 WHERE organization_id = $1 AND user_id = $2`+statusFilter,
		p.OrganizationID, p.UserID,
	).Scan(&out.TotalCount)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}
