package maintenance

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// In-memory repositories backing the service and sweep tests. They mimic the
// storage contract: reads hand out copies, announcement/history inserts
// enforce the de-duplication keys, missing rows come back as KindNotFound.

type fakeScheduleRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*Schedule

	listErr    error
	statusOfFn func(id uuid.UUID) (Status, error)
}

func newFakeScheduleRepo() *fakeScheduleRepo {
	return &fakeScheduleRepo{items: map[uuid.UUID]*Schedule{}}
}

func cloneSchedule(s *Schedule) *Schedule {
	c := *s
	return &c
}

func (f *fakeScheduleRepo) Create(_ context.Context, s *Schedule) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[s.ID] = cloneSchedule(s)
	return nil
}

func (f *fakeScheduleRepo) Update(_ context.Context, s *Schedule) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[s.ID]; !ok {
		return notFoundf("schedule %s not found", s.ID)
	}
	f.items[s.ID] = cloneSchedule(s)
	return nil
}

func (f *fakeScheduleRepo) GetByID(_ context.Context, id uuid.UUID) (*Schedule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.items[id]
	if !ok {
		return nil, notFoundf("schedule %s not found", id)
	}
	return cloneSchedule(s), nil
}

func (f *fakeScheduleRepo) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[id]; !ok {
		return notFoundf("schedule %s not found", id)
	}
	delete(f.items, id)
	return nil
}

func (f *fakeScheduleRepo) StatusOf(_ context.Context, id uuid.UUID) (Status, error) {
	if f.statusOfFn != nil {
		return f.statusOfFn(id)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.items[id]
	if !ok {
		return "", notFoundf("schedule %s not found", id)
	}
	return s.Status, nil
}

func (f *fakeScheduleRepo) ListActiveForAsset(_ context.Context, assetID uuid.UUID, exclude *uuid.UUID) ([]*Schedule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*Schedule
	for _, s := range f.items {
		if s.AssetID != assetID || !s.Status.Active() {
			continue
		}
		if exclude != nil && s.ID == *exclude {
			continue
		}
		out = append(out, cloneSchedule(s))
	}
	return out, nil
}

func (f *fakeScheduleRepo) ListByStatus(_ context.Context, status Status) ([]*Schedule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*Schedule
	for _, s := range f.items {
		if s.Status == status {
			out = append(out, cloneSchedule(s))
		}
	}
	return out, nil
}

func (f *fakeScheduleRepo) DueForReminder(_ context.Context, today time.Time) ([]*Schedule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*Schedule
	for _, s := range f.items {
		if s.Status != StatusScheduled {
			continue
		}
		horizon := today.AddDate(0, 0, s.ReminderDays)
		if !s.Window.StartDate.Before(today) && !s.Window.StartDate.After(horizon) {
			out = append(out, cloneSchedule(s))
		}
	}
	return out, nil
}

func (f *fakeScheduleRepo) Search(_ context.Context, flt ScheduleFilter) ([]*Schedule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*Schedule
	for _, s := range f.items {
		if flt.AssetID != nil && s.AssetID != *flt.AssetID {
			continue
		}
		if flt.Status != "" && s.Status != flt.Status {
			continue
		}
		if flt.Status == "" && s.Status.Terminal() {
			continue
		}
		out = append(out, cloneSchedule(s))
	}
	return out, nil
}

type fakeAssetRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*Asset
}

func newFakeAssetRepo() *fakeAssetRepo {
	return &fakeAssetRepo{items: map[uuid.UUID]*Asset{}}
}

func (f *fakeAssetRepo) GetByID(_ context.Context, id uuid.UUID) (*Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.items[id]
	if !ok {
		return nil, notFoundf("asset %s not found", id)
	}
	c := *a
	return &c, nil
}

func (f *fakeAssetRepo) SetStatus(_ context.Context, id uuid.UUID, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.items[id]
	if !ok {
		return notFoundf("asset %s not found", id)
	}
	a.Status = status
	return nil
}

func (f *fakeAssetRepo) statusOf(id uuid.UUID) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items[id].Status
}

type fakeAmenityRepo struct {
	mu      sync.Mutex
	byAsset map[uuid.UUID]*Amenity
}

func newFakeAmenityRepo() *fakeAmenityRepo {
	return &fakeAmenityRepo{byAsset: map[uuid.UUID]*Amenity{}}
}

func (f *fakeAmenityRepo) GetByAssetID(_ context.Context, assetID uuid.UUID) (*Amenity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byAsset[assetID]
	if !ok {
		return nil, notFoundf("no amenity for asset %s", assetID)
	}
	c := *a
	return &c, nil
}

func (f *fakeAmenityRepo) SetStatus(_ context.Context, id uuid.UUID, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.byAsset {
		if a.ID == id {
			a.Status = status
			return nil
		}
	}
	return notFoundf("amenity %s not found", id)
}

type fakeBookingRepo struct {
	mu    sync.Mutex
	items []*Booking
}

func (f *fakeBookingRepo) ConfirmedPaidOverlapping(_ context.Context, amenityID uuid.UUID, start, end time.Time) ([]*Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*Booking
	for _, b := range f.items {
		if b.AmenityID != amenityID {
			continue
		}
		if b.StartDate.After(end) || b.EndDate.Before(start) {
			continue
		}
		c := *b
		out = append(out, &c)
	}
	return out, nil
}

type annKey struct {
	schedule uuid.UUID
	typ      string
	booking  uuid.UUID
	hasBk    bool
}

type fakeAnnouncementRepo struct {
	mu    sync.Mutex
	items []*Announcement

	insertErr error
}

func keyOf(a *Announcement) annKey {
	k := annKey{schedule: a.ScheduleID, typ: a.Type}
	if a.BookingID != nil {
		k.booking = *a.BookingID
		k.hasBk = true
	}
	return k
}

func (f *fakeAnnouncementRepo) Insert(_ context.Context, a *Announcement) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return false, f.insertErr
	}
	for _, ex := range f.items {
		if keyOf(ex) == keyOf(a) {
			return false, nil
		}
	}
	c := *a
	f.items = append(f.items, &c)
	return true, nil
}

func (f *fakeAnnouncementRepo) Exists(_ context.Context, scheduleID uuid.UUID, typ string, bookingID *uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	probe := &Announcement{ScheduleID: scheduleID, Type: typ, BookingID: bookingID}
	for _, ex := range f.items {
		if keyOf(ex) == keyOf(probe) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeAnnouncementRepo) OpenBySchedule(_ context.Context, scheduleID uuid.UUID, types ...string) ([]*Announcement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*Announcement
	for _, a := range f.items {
		if a.ScheduleID != scheduleID || a.Status != AnnouncementActive {
			continue
		}
		for _, t := range types {
			if a.Type == t {
				c := *a
				out = append(out, &c)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeAnnouncementRepo) Update(_ context.Context, a *Announcement) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, ex := range f.items {
		if ex.ID == a.ID {
			c := *a
			f.items[i] = &c
			return nil
		}
	}
	return notFoundf("announcement %s not found", a.ID)
}

func (f *fakeAnnouncementRepo) byType(typ string) []*Announcement {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*Announcement
	for _, a := range f.items {
		if a.Type == typ {
			c := *a
			out = append(out, &c)
		}
	}
	return out
}

type fakeHistoryRepo struct {
	mu    sync.Mutex
	items []*History

	insertErr error
}

func (f *fakeHistoryRepo) InsertOnce(_ context.Context, h *History) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return false, f.insertErr
	}
	for _, ex := range f.items {
		if ex.ScheduleID == h.ScheduleID {
			return false, nil
		}
	}
	c := *h
	f.items = append(f.items, &c)
	return true, nil
}

func (f *fakeHistoryRepo) ExistsForSchedule(_ context.Context, scheduleID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ex := range f.items {
		if ex.ScheduleID == scheduleID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeHistoryRepo) ListByAsset(_ context.Context, assetID uuid.UUID) ([]*History, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*History
	for _, h := range f.items {
		if h.AssetID == assetID {
			c := *h
			out = append(out, &c)
		}
	}
	return out, nil
}

func (f *fakeHistoryRepo) ListBySchedule(_ context.Context, scheduleID uuid.UUID) ([]*History, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*History
	for _, h := range f.items {
		if h.ScheduleID == scheduleID {
			c := *h
			out = append(out, &c)
		}
	}
	return out, nil
}

func (f *fakeHistoryRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

type fakeTenant struct {
	schedules     *fakeScheduleRepo
	assets        *fakeAssetRepo
	amenities     *fakeAmenityRepo
	bookings      *fakeBookingRepo
	announcements *fakeAnnouncementRepo
	histories     *fakeHistoryRepo
}

func newFakeTenant() *fakeTenant {
	return &fakeTenant{
		schedules:     newFakeScheduleRepo(),
		assets:        newFakeAssetRepo(),
		amenities:     newFakeAmenityRepo(),
		bookings:      &fakeBookingRepo{},
		announcements: &fakeAnnouncementRepo{},
		histories:     &fakeHistoryRepo{},
	}
}

func (t *fakeTenant) repos() Repos {
	return Repos{
		Schedules:     t.schedules,
		Assets:        t.assets,
		Amenities:     t.amenities,
		Bookings:      t.bookings,
		Announcements: t.announcements,
		Histories:     t.histories,
	}
}

type fakeStore struct {
	mu        sync.Mutex
	buildings []Building
	tenants   map[string]*fakeTenant

	buildingsErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{tenants: map[string]*fakeTenant{}}
}

func (s *fakeStore) addTenant(schema, name string) *fakeTenant {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := newFakeTenant()
	s.tenants[schema] = t
	s.buildings = append(s.buildings, Building{ID: uuid.New(), Name: name, Schema: schema})
	return t
}

func (s *fakeStore) Buildings(_ context.Context) ([]Building, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.buildingsErr != nil {
		return nil, s.buildingsErr
	}
	return append([]Building(nil), s.buildings...), nil
}

func (s *fakeStore) Tenant(schema string) Repos {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tenants[schema].repos()
}

// WithinTx mimics transactional repositories: the data of every tenant is
// snapshotted up front and restored when fn fails, so partial writes from a
// failed callback are never observable afterwards.
func (s *fakeStore) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	snaps := make(map[string]tenantSnapshot, len(s.tenants))
	for schema, tn := range s.tenants {
		snaps[schema] = tn.snapshot()
	}
	s.mu.Unlock()

	if err := fn(ctx); err != nil {
		s.mu.Lock()
		for schema, tn := range s.tenants {
			tn.restore(snaps[schema])
		}
		s.mu.Unlock()
		return err
	}
	return nil
}

// tenantSnapshot captures one tenant's data for rollback; injected error
// hooks are live configuration, not data, and are left alone.
type tenantSnapshot struct {
	schedules     map[uuid.UUID]*Schedule
	assets        map[uuid.UUID]*Asset
	amenities     map[uuid.UUID]*Amenity
	announcements []*Announcement
	histories     []*History
}

func (t *fakeTenant) snapshot() tenantSnapshot {
	snap := tenantSnapshot{
		schedules: map[uuid.UUID]*Schedule{},
		assets:    map[uuid.UUID]*Asset{},
		amenities: map[uuid.UUID]*Amenity{},
	}
	t.schedules.mu.Lock()
	for id, s := range t.schedules.items {
		snap.schedules[id] = cloneSchedule(s)
	}
	t.schedules.mu.Unlock()

	t.assets.mu.Lock()
	for id, a := range t.assets.items {
		c := *a
		snap.assets[id] = &c
	}
	t.assets.mu.Unlock()

	t.amenities.mu.Lock()
	for id, a := range t.amenities.byAsset {
		c := *a
		snap.amenities[id] = &c
	}
	t.amenities.mu.Unlock()

	t.announcements.mu.Lock()
	for _, a := range t.announcements.items {
		c := *a
		snap.announcements = append(snap.announcements, &c)
	}
	t.announcements.mu.Unlock()

	t.histories.mu.Lock()
	for _, h := range t.histories.items {
		c := *h
		snap.histories = append(snap.histories, &c)
	}
	t.histories.mu.Unlock()

	return snap
}

func (t *fakeTenant) restore(snap tenantSnapshot) {
	t.schedules.mu.Lock()
	t.schedules.items = snap.schedules
	t.schedules.mu.Unlock()

	t.assets.mu.Lock()
	t.assets.items = snap.assets
	t.assets.mu.Unlock()

	t.amenities.mu.Lock()
	t.amenities.byAsset = snap.amenities
	t.amenities.mu.Unlock()

	t.announcements.mu.Lock()
	t.announcements.items = snap.announcements
	t.announcements.mu.Unlock()

	t.histories.mu.Lock()
	t.histories.items = snap.histories
	t.histories.mu.Unlock()
}
