package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/yshvd/bookgo/internal/domain"
	"github.com/yshvd/bookgo/internal/repository"
)

type OccurrenceRepo struct {
	db DB
}

const occurrenceColumns = `id, event_id, organization_id, starts_at, ends_at,
	title, location, max_capacity, registered_seats,
	deleted_at, created_at, updated_at`

func scanOccurrence(row interface{ Scan(dest ...any) error }) (*domain.Occurrence, error) {
	var o domain.Occurrence
	err := row.Scan(
		&o.ID, &o.EventID, &o.OrganizationID, &o.StartDate, &o.EndDate,
		&o.Title, &o.Location, &o.MaxCapacity, &o.RegisteredSeats,
		&o.DeletedAt, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *OccurrenceRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Occurrence, error) {
	const op = "postgres.OccurrenceRepo.FindByID"

	row := r.db.QueryRow(ctx,
		`SELECT `+occurrenceColumns+` FROM occurrences WHERE id = $1`,
		id,
	)

	o, err := scanOccurrence(row)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return o, nil
}

func (r *OccurrenceRepo) Save(ctx context.Context, occ *domain.Occurrence) error {
	const op = "postgres.OccurrenceRepo.Save"

	_, err := r.db.Exec(ctx, upsertOccurrenceSQL, occurrenceArgs(occ)...)
	if err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *OccurrenceRepo) SaveMany(ctx context.Context, occs []*domain.Occurrence) error {
	const op = "postgres.OccurrenceRepo.SaveMany"

	if len(occs) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, o := range occs {
		batch.Queue(upsertOccurrenceSQL, occurrenceArgs(o)...)
	}
	if err := r.db.SendBatch(ctx, batch).Close(); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

const upsertOccurrenceSQL = `INSERT INTO occurrences (id, event_id, organization_id,
	starts_at, ends_at, title, location, max_capacity, registered_seats,
	deleted_at, created_at, updated_at)
 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
 ON CONFLICT (id) DO UPDATE
 SET starts_at = EXCLUDED.starts_at,
     ends_at = EXCLUDED.ends_at,
     title = EXCLUDED.title,
     location = EXCLUDED.location,
     max_capacity = EXCLUDED.max_capacity,
     registered_seats = EXCLUDED.registered_seats,
     deleted_at = EXCLUDED.deleted_at,
     updated_at = EXCLUDED.updated_at`

func occurrenceArgs(o *domain.Occurrence) []any {
	return []any{
		o.ID, o.EventID, o.OrganizationID, o.StartDate, o.EndDate,
		o.Title, o.Location, o.MaxCapacity, o.RegisteredSeats,
		o.DeletedAt, o.CreatedAt, o.UpdatedAt,
	}
}

func (r *OccurrenceRepo) ListByEvent(
	ctx context.Context,
	eventID uuid.UUID,
	includeDeleted bool,
	limit, offset int,
) ([]domain.Occurrence, error) {
	const op = "postgres.OccurrenceRepo.ListByEvent"

	sql := `SELECT ` + occurrenceColumns + `
		 FROM occurrences
		 WHERE event_id = $1`
	if !includeDeleted {
		sql += ` AND deleted_at IS NULL`
	}
	sql += ` ORDER BY starts_at LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, sql, eventID, limit, offset)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var out []domain.Occurrence
	for rows.Next() {
		o, err := scanOccurrence(rows)
		if err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

func (r *OccurrenceRepo) DeleteByEvent(ctx context.Context, eventID uuid.UUID) error {
	const op = "postgres.OccurrenceRepo.DeleteByEvent"

	_, err := r.db.Exec(ctx, `DELETE FROM occurrences WHERE event_id = $1`, eventID)
	if err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *OccurrenceRepo) SoftDeleteByEvent(ctx context.Context, eventID uuid.UUID, now time.Time) error {
	const op = "postgres.OccurrenceRepo.SoftDeleteByEvent"

	_, err := r.db.Exec(ctx,
		`UPDATE occurrences
		 SET deleted_at = $2, updated_at = $2
		 WHERE event_id = $1 AND deleted_at IS NULL`,
		eventID, now,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *OccurrenceRepo) UpdateFutureByEvent(
	ctx context.Context,
	eventID uuid.UUID,
	from time.Time,
	ch domain.OccurrenceChanges,
	now time.Time,
) error {
	const op = "postgres.OccurrenceRepo.UpdateFutureByEvent"

	// COALESCE keeps untouched columns; nil change args stay NULL.
	_, err := r.db.Exec(ctx,
		`UPDATE occurrences
		 SET title = COALESCE($3, title),
		     location = COALESCE($4, location),
		     max_capacity = COALESCE($5, max_capacity),
		     ends_at = COALESCE($6, ends_at),
		     updated_at = $7
		 WHERE event_id = $1 AND deleted_at IS NULL AND starts_at >= $2`,
		eventID, from, ch.Title, ch.Location, ch.MaxCapacity, ch.EndDate, now,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

// ReserveSeats is the conditional increment that closes the capacity race:
// the row only changes when the new total still fits.
func (r *OccurrenceRepo) ReserveSeats(ctx context.Context, id uuid.UUID, count int) error {
	const op = "postgres.OccurrenceRepo.ReserveSeats"

	tag, err := r.db.Exec(ctx,
		`UPDATE occurrences
		 SET registered_seats = registered_seats + $2
		 WHERE id = $1 AND deleted_at IS NULL
		   AND (max_capacity IS NULL OR registered_seats + $2 <= max_capacity)`,
		id, count,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		// Tell apart "full" from "gone".
		var exists bool
		err := r.db.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM occurrences WHERE id = $1 AND deleted_at IS NULL)`,
			id,
		).Scan(&exists)
		if err != nil {
			return wrapDBErr(op, err)
		}
		if !exists {
			return wrapDBErr(op, pgx.ErrNoRows)
		}
		return fmt.Errorf("%s: %w", op, repository.ErrCapacityExceeded)
	}

	return nil
}

// ReleaseSeats refuses to take the counter below zero; a zero-row update on
// a live occurrence means the accounting invariant was already broken.
func (r *OccurrenceRepo) ReleaseSeats(ctx context.Context, id uuid.UUID, count int) error {
	const op = "postgres.OccurrenceRepo.ReleaseSeats"

	tag, err := r.db.Exec(ctx,
		`UPDATE occurrences
		 SET registered_seats = registered_seats - $2
		 WHERE id = $1 AND registered_seats - $2 >= 0`,
		id, count,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		var exists bool
		err := r.db.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM occurrences WHERE id = $1)`,
			id,
		).Scan(&exists)
		if err != nil {
			return wrapDBErr(op, err)
		}
		if !exists {
			return wrapDBErr(op, pgx.ErrNoRows)
		}
		return fmt.Errorf("%s: %w", op, repository.ErrSeatUnderflow)
	}

	return nil
}
