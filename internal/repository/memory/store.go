// Package memory implements the repository contracts on in-process maps.
// A single mutex serializes transactions, which gives the same observable
// guarantees the serializable postgres store provides, so workflow tests
// exercise the real concurrency rules without a database.
package memory

import (
	"context"
	"encoding/base64"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yshvd/bookgo/internal/domain"
	"github.com/yshvd/bookgo/internal/repository"
)

type data struct {
	organizations map[uuid.UUID]domain.Organization
	events        map[uuid.UUID]domain.Event
	occurrences   map[uuid.UUID]domain.Occurrence
	registrations map[uuid.UUID]domain.Registration
}

func newData() *data {
	return &data{
		organizations: make(map[uuid.UUID]domain.Organization),
		events:        make(map[uuid.UUID]domain.Event),
		occurrences:   make(map[uuid.UUID]domain.Occurrence),
		registrations: make(map[uuid.UUID]domain.Registration),
	}
}

func (d *data) clone() *data {
	c := newData()
	for k, v := range d.organizations {
		c.organizations[k] = cloneOrganization(v)
	}
	for k, v := range d.events {
		c.events[k] = cloneEvent(v)
	}
	for k, v := range d.occurrences {
		c.occurrences[k] = cloneOccurrence(v)
	}
	for k, v := range d.registrations {
		c.registrations[k] = cloneRegistration(v)
	}
	return c
}

// Store implements repository.Store in memory.
type Store struct {
	mu   sync.Mutex
	data *data
	inTx bool
}

func NewStore() *Store {
	return &Store{data: newData()}
}

// lock serializes standalone operations; a transaction-bound view already
// holds the store lock.
func (s *Store) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// RunTx serializes the whole transaction under the store mutex and rolls
// the data back to a snapshot when fn fails.
func (s *Store) RunTx(ctx context.Context, fn func(ctx context.Context, tx repository.Store) error) error {
	if s.inTx {
		return fn(ctx, s)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	tx := &Store{data: s.data, inTx: true}

	if err := fn(ctx, tx); err != nil {
		s.data.organizations = snapshot.organizations
		s.data.events = snapshot.events
		s.data.occurrences = snapshot.occurrences
		s.data.registrations = snapshot.registrations
		return err
	}

	return nil
}

func (s *Store) Organizations() repository.OrganizationRepository { return &organizationRepo{s: s} }
func (s *Store) Events() repository.EventRepository               { return &eventRepo{s: s} }
func (s *Store) Occurrences() repository.OccurrenceRepository     { return &occurrenceRepo{s: s} }
func (s *Store) Registrations() repository.RegistrationRepository { return &registrationRepo{s: s} }

// --- organizations ---

type organizationRepo struct {
	s *Store
}

func (r *organizationRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Organization, error) {
	defer r.s.lock()()

	o, ok := r.s.data.organizations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := cloneOrganization(o)
	return &out, nil
}

func (r *organizationRepo) FindBySlug(ctx context.Context, slug string) (*domain.Organization, error) {
	defer r.s.lock()()

	for _, o := range r.s.data.organizations {
		if o.Slug == slug && o.DeletedAt == nil {
			out := cloneOrganization(o)
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *organizationRepo) Save(ctx context.Context, org *domain.Organization) error {
	defer r.s.lock()()

	if org.DeletedAt == nil {
		for _, o := range r.s.data.organizations {
			if o.ID != org.ID && o.Slug == org.Slug && o.DeletedAt == nil {
				return repository.ErrConflict
			}
		}
	}
	r.s.data.organizations[org.ID] = cloneOrganization(*org)
	return nil
}

// --- events ---

type eventRepo struct {
	s *Store
}

func (r *eventRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Event, error) {
	defer r.s.lock()()

	e, ok := r.s.data.events[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := cloneEvent(e)
	return &out, nil
}

func (r *eventRepo) Save(ctx context.Context, event *domain.Event) error {
	defer r.s.lock()()

	r.s.data.events[event.ID] = cloneEvent(*event)
	return nil
}

func (r *eventRepo) ListByOrganization(
	ctx context.Context,
	orgID uuid.UUID,
	page repository.CursorPage,
) (*repository.CursorResult[domain.Event], error) {
	defer r.s.lock()()

	after, err := decodeCursor(page.After)
	if err != nil {
		return nil, err
	}

	var all []domain.Event
	for _, e := range r.s.data.events {
		if e.OrganizationID == orgID && e.DeletedAt == nil {
			all = append(all, cloneEvent(e))
		}
	}
	sort.Slice(all, func(i, j int) bool { return idLess(all[i].ID, all[j].ID) })

	out := &repository.CursorResult[domain.Event]{TotalCount: len(all)}
	for _, e := range all {
		if after != uuid.Nil && !idLess(after, e.ID) {
			continue
		}
		if len(out.Items) == page.First {
			out.HasNextPage = true
			break
		}
		out.Items = append(out.Items, e)
	}
	if n := len(out.Items); n > 0 {
		out.EndCursor = encodeCursor(out.Items[n-1].ID)
	}
	return out, nil
}

// --- occurrences ---

type occurrenceRepo struct {
	s *Store
}

func (r *occurrenceRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Occurrence, error) {
	defer r.s.lock()()

	o, ok := r.s.data.occurrences[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := cloneOccurrence(o)
	return &out, nil
}

func (r *occurrenceRepo) Save(ctx context.Context, occ *domain.Occurrence) error {
	defer r.s.lock()()

	r.s.data.occurrences[occ.ID] = cloneOccurrence(*occ)
	return nil
}

func (r *occurrenceRepo) SaveMany(ctx context.Context, occs []*domain.Occurrence) error {
	defer r.s.lock()()

	for _, o := range occs {
		r.s.data.occurrences[o.ID] = cloneOccurrence(*o)
	}
	return nil
}

func (r *occurrenceRepo) ListByEvent(
	ctx context.Context,
	eventID uuid.UUID,
	includeDeleted bool,
	limit, offset int,
) ([]domain.Occurrence, error) {
	defer r.s.lock()()

	var all []domain.Occurrence
	for _, o := range r.s.data.occurrences {
		if o.EventID != eventID {
			continue
		}
		if !includeDeleted && o.DeletedAt != nil {
			continue
		}
		all = append(all, cloneOccurrence(o))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].StartDate.Before(all[j].StartDate) })

	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r *occurrenceRepo) DeleteByEvent(ctx context.Context, eventID uuid.UUID) error {
	defer r.s.lock()()

	for id, o := range r.s.data.occurrences {
		if o.EventID == eventID {
			delete(r.s.data.occurrences, id)
		}
	}
	return nil
}

func (r *occurrenceRepo) SoftDeleteByEvent(ctx context.Context, eventID uuid.UUID, now time.Time) error {
	defer r.s.lock()()

	for id, o := range r.s.data.occurrences {
		if o.EventID == eventID && o.DeletedAt == nil {
			o.SoftDelete(now)
			r.s.data.occurrences[id] = o
		}
	}
	return nil
}

func (r *occurrenceRepo) UpdateFutureByEvent(
	ctx context.Context,
	eventID uuid.UUID,
	from time.Time,
	ch domain.OccurrenceChanges,
	now time.Time,
) error {
	defer r.s.lock()()

	for id, o := range r.s.data.occurrences {
		if o.EventID != eventID || o.DeletedAt != nil || o.StartDate.Before(from) {
			continue
		}
		c := cloneOccurrence(o)
		c.Apply(ch, now)
		r.s.data.occurrences[id] = c
	}
	return nil
}

func (r *occurrenceRepo) ReserveSeats(ctx context.Context, id uuid.UUID, count int) error {
	defer r.s.lock()()

	o, ok := r.s.data.occurrences[id]
	if !ok || o.DeletedAt != nil {
		return repository.ErrNotFound
	}
	if o.MaxCapacity != nil && o.RegisteredSeats+count > *o.MaxCapacity {
		return repository.ErrCapacityExceeded
	}
	o.RegisteredSeats += count
	r.s.data.occurrences[id] = o
	return nil
}

func (r *occurrenceRepo) ReleaseSeats(ctx context.Context, id uuid.UUID, count int) error {
	defer r.s.lock()()

	o, ok := r.s.data.occurrences[id]
	if !ok {
		return repository.ErrNotFound
	}
	if o.RegisteredSeats-count < 0 {
		return repository.ErrSeatUnderflow
	}
	o.RegisteredSeats -= count
	r.s.data.occurrences[id] = o
	return nil
}

// --- registrations ---

type registrationRepo struct {
	s *Store
}

func (r *registrationRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Registration, error) {
	defer r.s.lock()()

	reg, ok := r.s.data.registrations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := cloneRegistration(reg)
	return &out, nil
}

func (r *registrationRepo) FindByUserAndOccurrence(
	ctx context.Context,
	userID string,
	occurrenceID uuid.UUID,
) (*domain.Registration, error) {
	defer r.s.lock()()

	for _, reg := range r.s.data.registrations {
		if reg.UserID == userID && reg.OccurrenceID == occurrenceID {
			out := cloneRegistration(reg)
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *registrationRepo) FindOverlapping(
	ctx context.Context,
	userID string,
	start, end time.Time,
) ([]domain.Registration, error) {
	defer r.s.lock()()

	var out []domain.Registration
	for _, reg := range r.s.data.registrations {
		if reg.UserID != userID || reg.Status != domain.RegistrationActive {
			continue
		}
		if reg.OccurrenceStartDate.Before(end) && reg.OccurrenceEndDate.After(start) {
			out = append(out, cloneRegistration(reg))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].OccurrenceStartDate.Before(out[j].OccurrenceStartDate)
	})
	return out, nil
}

func (r *registrationRepo) Save(ctx context.Context, reg *domain.Registration) error {
	defer r.s.lock()()

	if reg.Status == domain.RegistrationActive {
		for _, other := range r.s.data.registrations {
			if other.ID != reg.ID &&
				other.UserID == reg.UserID &&
				other.OccurrenceID == reg.OccurrenceID &&
				other.Status == domain.RegistrationActive {
				return repository.ErrConflict
			}
		}
	}
	r.s.data.registrations[reg.ID] = cloneRegistration(*reg)
	return nil
}

func (r *registrationRepo) ListByUserInOrganization(
	ctx context.Context,
	p repository.ListRegistrationsParams,
) (*repository.CursorResult[domain.Registration], error) {
	defer r.s.lock()()

	after, err := decodeCursor(p.Page.After)
	if err != nil {
		return nil, err
	}

	var all []domain.Registration
	for _, reg := range r.s.data.registrations {
		if reg.OrganizationID != p.OrganizationID || reg.UserID != p.UserID {
			continue
		}
		if !p.IncludeCancelled && reg.Status != domain.RegistrationActive {
			continue
		}
		all = append(all, cloneRegistration(reg))
	}
	sort.Slice(all, func(i, j int) bool { return idLess(all[i].ID, all[j].ID) })

	out := &repository.CursorResult[domain.Registration]{TotalCount: len(all)}
	for _, reg := range all {
		if after != uuid.Nil && !idLess(after, reg.ID) {
			continue
		}
		if len(out.Items) == p.Page.First {
			out.HasNextPage = true
			break
		}
		out.Items = append(out.Items, reg)
	}
	if n := len(out.Items); n > 0 {
		out.EndCursor = encodeCursor(out.Items[n-1].ID)
	}
	return out, nil
}

// --- helpers ---

func idLess(a, b uuid.UUID) bool { return a.String() < b.String() }

func encodeCursor(id uuid.UUID) string {
	return base64.StdEncoding.EncodeToString([]byte(id.String()))
}

func decodeCursor(cursor string) (uuid.UUID, error) {
	if cursor == "" {
		return uuid.Nil, nil
	}
	raw, err := base64.StdEncoding.DecodeString(cursor)
	if err != nil {
		return uuid.Nil, fmt.Errorf("bad cursor: %w", err)
	}
	id, err := uuid.Parse(string(raw))
	if err != nil {
		return uuid.Nil, fmt.Errorf("bad cursor: %w", err)
	}
	return id, nil
}

func cloneOrganization(o domain.Organization) domain.Organization {
	o.DeletedAt = cloneTimePtr(o.DeletedAt)
	return o
}

func cloneEvent(e domain.Event) domain.Event {
	e.Location = cloneStrPtr(e.Location)
	e.DeletedAt = cloneTimePtr(e.DeletedAt)
	if e.RecurrencePattern != nil {
		p := *e.RecurrencePattern
		p.ByDay = append([]domain.DayOfWeek(nil), p.ByDay...)
		p.ByMonthDay = append([]int(nil), p.ByMonthDay...)
		p.ByMonth = append([]int(nil), p.ByMonth...)
		p.Until = cloneTimePtr(p.Until)
		e.RecurrencePattern = &p
	}
	return e
}

func cloneOccurrence(o domain.Occurrence) domain.Occurrence {
	o.Title = cloneStrPtr(o.Title)
	o.Location = cloneStrPtr(o.Location)
	o.MaxCapacity = cloneIntPtr(o.MaxCapacity)
	o.DeletedAt = cloneTimePtr(o.DeletedAt)
	return o
}

func cloneRegistration(r domain.Registration) domain.Registration {
	r.DeletedAt = cloneTimePtr(r.DeletedAt)
	return r
}

func cloneStrPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneIntPtr(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneTimePtr(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
