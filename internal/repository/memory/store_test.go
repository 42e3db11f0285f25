package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/yshvd/bookgo/internal/domain"
	"github.com/yshvd/bookgo/internal/repository"
)

var testNow = time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

func TestRunTx_RollbackRestoresState(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	org, err := domain.NewOrganization("Acme", "acme", testNow)
	require.NoError(t, err)
	require.NoError(t, s.Organizations().Save(ctx, org))

	boom := errors.New("boom")
	err = s.RunTx(ctx, func(ctx context.Context, tx repository.Store) error {
		event := domain.NewEvent(org.ID, "Partial", "", nil, testNow, testNow.Add(time.Hour), 0, nil, testNow)
		if err := tx.Events().Save(ctx, event); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	page, err := s.Events().ListByOrganization(ctx, org.ID, repository.CursorPage{First: 10})
	require.NoError(t, err)
	require.Empty(t, page.Items, "the write inside the failed transaction is gone")

	kept, err := s.Organizations().FindByID(ctx, org.ID)
	require.NoError(t, err)
	require.Equal(t, "acme", kept.Slug, "pre-transaction state survives the rollback")
}

func TestOrganizations_SlugConflict(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	first, err := domain.NewOrganization("First", "shared", testNow)
	require.NoError(t, err)
	require.NoError(t, s.Organizations().Save(ctx, first))

	second, err := domain.NewOrganization("Second", "shared", testNow)
	require.NoError(t, err)
	require.ErrorIs(t, s.Organizations().Save(ctx, second), repository.ErrConflict)
}

func TestEvents_CursorPagination(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	orgID := uuid.New()

	for i := 0; i < 5; i++ {
		event := domain.NewEvent(orgID, "E", "", nil, testNow, testNow.Add(time.Hour), 0, nil, testNow)
		require.NoError(t, s.Events().Save(ctx, event))
	}

	first, err := s.Events().ListByOrganization(ctx, orgID, repository.CursorPage{First: 2})
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	require.True(t, first.HasNextPage)
	require.Equal(t, 5, first.TotalCount)
	require.NotEmpty(t, first.EndCursor)

	seen := map[uuid.UUID]bool{first.Items[0].ID: true, first.Items[1].ID: true}

	rest, err := s.Events().ListByOrganization(ctx, orgID, repository.CursorPage{First: 10, After: first.EndCursor})
	require.NoError(t, err)
	require.Len(t, rest.Items, 3)
	require.False(t, rest.HasNextPage)
	for _, item := range rest.Items {
		require.False(t, seen[item.ID], "pages do not overlap")
	}
}

func TestOccurrences_ReserveAndRelease(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	capacity := 3
	occ := domain.NewOccurrence(uuid.New(), uuid.New(), testNow, testNow.Add(time.Hour), testNow)
	occ.MaxCapacity = &capacity
	require.NoError(t, s.Occurrences().Save(ctx, occ))

	require.NoError(t, s.Occurrences().ReserveSeats(ctx, occ.ID, 2))
	require.ErrorIs(t, s.Occurrences().ReserveSeats(ctx, occ.ID, 2), repository.ErrCapacityExceeded)

	stored, err := s.Occurrences().FindByID(ctx, occ.ID)
	require.NoError(t, err)
	require.Equal(t, 2, stored.RegisteredSeats, "the rejected reservation left the counter alone")

	require.ErrorIs(t, s.Occurrences().ReleaseSeats(ctx, occ.ID, 5), repository.ErrSeatUnderflow)
	require.NoError(t, s.Occurrences().ReleaseSeats(ctx, occ.ID, 2))
}

func TestRegistrations_OneActivePerUserAndOccurrence(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	occID, orgID := uuid.New(), uuid.New()
	first, err := domain.NewRegistration(occID, orgID, "user-1", 1, testNow, testNow.Add(time.Hour), "E", testNow)
	require.NoError(t, err)
	require.NoError(t, s.Registrations().Save(ctx, first))

	dup, err := domain.NewRegistration(occID, orgID, "user-1", 1, testNow, testNow.Add(time.Hour), "E", testNow)
	require.NoError(t, err)
	require.ErrorIs(t, s.Registrations().Save(ctx, dup), repository.ErrConflict)

	// cancelling the first frees the slot
	first.Cancel(testNow)
	require.NoError(t, s.Registrations().Save(ctx, first))
	require.NoError(t, s.Registrations().Save(ctx, dup))
}

func TestRegistrations_FindOverlappingIsStrict(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	start := testNow
	end := testNow.Add(2 * time.Hour)
	reg, err := domain.NewRegistration(uuid.New(), uuid.New(), "user-1", 1, start, end, "Busy", testNow)
	require.NoError(t, err)
	require.NoError(t, s.Registrations().Save(ctx, reg))

	hits, err := s.Registrations().FindOverlapping(ctx, "user-1", start.Add(time.Hour), end.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, hits, 1)

	// touching boundaries do not overlap
	hits, err = s.Registrations().FindOverlapping(ctx, "user-1", end, end.Add(time.Hour))
	require.NoError(t, err)
	require.Empty(t, hits)

	hits, err = s.Registrations().FindOverlapping(ctx, "user-1", start.Add(-time.Hour), start)
	require.NoError(t, err)
	require.Empty(t, hits)

	// other users are unaffected
	hits, err = s.Registrations().FindOverlapping(ctx, "user-2", start, end)
	require.NoError(t, err)
	require.Empty(t, hits)
}
