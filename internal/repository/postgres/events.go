package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/yshvd/bookgo/internal/domain"
	"github.com/yshvd/bookgo/internal/repository"
)

type EventRepo struct {
	db DB
}

const eventColumns = `id, organization_id, title, description, location,
	starts_at, ends_at, max_capacity, recurrence_pattern,
	deleted_at, created_at, updated_at`

func scanEvent(row interface{ Scan(dest ...any) error }) (*domain.Event, error) {
	var e domain.Event
	var pattern []byte

	err := row.Scan(
		&e.ID, &e.OrganizationID, &e.Title, &e.Description, &e.Location,
		&e.StartDate, &e.EndDate, &e.MaxCapacity, &pattern,
		&e.DeletedAt, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if pattern != nil {
		var p domain.RecurrencePattern
		if err := json.Unmarshal(pattern, &p); err != nil {
			return nil, fmt.Errorf("decode recurrence pattern: %w", err)
		}
		e.RecurrencePattern = &p
	}

	return &e, nil
}

// FindByID returns the event even when soft-deleted; workflows decide on
// visibility.
func (r *EventRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Event, error) {
	const op = "postgres.EventRepo.FindByID"

	row := r.db.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1`,
		id,
	)

	e, err := scanEvent(row)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return e, nil
}

func (r *EventRepo) Save(ctx context.Context, event *domain.Event) error {
	const op = "postgres.EventRepo.Save"

	var pattern []byte
	if event.RecurrencePattern != nil {
		var err error
		pattern, err = json.Marshal(event.RecurrencePattern)
		if err != nil {
			return fmt.Errorf("%s: encode recurrence pattern: %w", op, err)
		}
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO events (id, organization_id, title, description, location,
			starts_at, ends_at, max_capacity, recurrence_pattern,
			deleted_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 ON CONFLICT (id) DO UPDATE
		 SET title = EXCLUDED.title,
		     description = EXCLUDED.description,
		     location = EXCLUDED.location,
		     starts_at = EXCLUDED.starts_at,
		     ends_at = EXCLUDED.ends_at,
		     max_capacity = EXCLUDED.max_capacity,
		     recurrence_pattern = EXCLUDED.recurrence_pattern,
		     deleted_at = EXCLUDED.deleted_at,
		     updated_at = EXCLUDED.updated_at`,
		event.ID, event.OrganizationID, event.Title, event.Description, event.Location,
		event.StartDate, event.EndDate, event.MaxCapacity, pattern,
		event.DeletedAt, event.CreatedAt, event.UpdatedAt,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *EventRepo) ListByOrganization(
	ctx context.Context,
	orgID uuid.UUID,
	page repository.CursorPage,
) (*repository.CursorResult[domain.Event], error) {
	const op = "postgres.EventRepo.ListByOrganization"

	after := uuid.Nil
	if page.After != "" {
		var err error
		after, err = decodeCursor(page.After)
		if err != nil {
			return nil, fmt.Errorf("%s: bad cursor: %w", op, err)
		}
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+eventColumns+`
		 FROM events
		 WHERE organization_id = $1 AND deleted_at IS NULL AND id > $2
		 ORDER BY id
		 LIMIT $3`,
		orgID, after, page.First+1,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var items []domain.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, wrapDBErr(op, err)
		}
		items = append(items, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	out := &repository.CursorResult[domain.Event]{Items: items}
	if len(items) > page.First {
		out.Items = items[:page.First]
		out.HasNextPage = true
	}
	if n := len(out.Items); n > 0 {
		out.EndCursor = encodeCursor(out.Items[n-1].ID)
	}

	err = r.db.QueryRow(ctx,
		`SELECT count(*) FROM events WHERE organization_id = $1 AND deleted_at IS NULL`,
		orgID,
	).Scan(&out.TotalCount)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}
