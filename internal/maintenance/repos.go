package maintenance

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ScheduleRepo persists maintenance schedules within one tenant schema.
// Lookups for missing rows return errors marked shared.KindNotFound.
type ScheduleRepo interface {
	Create(ctx context.Context, s *Schedule) error
	Update(ctx context.Context, s *Schedule) error
	GetByID(ctx context.Context, id uuid.UUID) (*Schedule, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// StatusOf reads the current status straight from durable storage. Sweeps
	// call it immediately before acting to tolerate concurrent user updates.
	StatusOf(ctx context.Context, id uuid.UUID) (Status, error)

	// ListActiveForAsset returns non-terminal (not DONE, not CANCELLED)
	// schedules for the asset, excluding the given schedule id when non-nil.
	ListActiveForAsset(ctx context.Context, assetID uuid.UUID, exclude *uuid.UUID) ([]*Schedule, error)

	ListByStatus(ctx context.Context, status Status) ([]*Schedule, error)

	// DueForReminder returns SCHEDULED schedules whose start date falls within
	// [today, today+reminderDays].
	DueForReminder(ctx context.Context, today time.Time) ([]*Schedule, error)

	Search(ctx context.Context, f ScheduleFilter) ([]*Schedule, error)
}

// ScheduleFilter narrows Search results. Zero values mean "no constraint";
// an empty Status defaults to non-terminal schedules only.
type ScheduleFilter struct {
	Term          string
	AssetID       *uuid.UUID
	Status        Status
	StartDateFrom *time.Time
	StartDateTo   *time.Time
}

// AssetRepo reads assets and writes their availability status.
type AssetRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Asset, error)
	SetStatus(ctx context.Context, id uuid.UUID, status string) error
}

// AmenityRepo resolves the amenity backed by an asset, if any.
type AmenityRepo interface {
	// GetByAssetID returns a KindNotFound error when the asset backs no amenity.
	GetByAssetID(ctx context.Context, assetID uuid.UUID) (*Amenity, error)
	SetStatus(ctx context.Context, id uuid.UUID, status string) error
}

// BookingRepo queries amenity reservations affected by maintenance windows.
type BookingRepo interface {
	// ConfirmedPaidOverlapping returns confirmed, paid bookings with a known
	// user whose date range intersects [start, end].
	ConfirmedPaidOverlapping(ctx context.Context, amenityID uuid.UUID, start, end time.Time) ([]*Booking, error)
}

// AnnouncementRepo persists notices. Insert is the critical-section write: it
// reports false without error when the (schedule, type, booking) key already
// exists, closing the duplicate race between concurrent writers.
type AnnouncementRepo interface {
	Insert(ctx context.Context, a *Announcement) (created bool, err error)
	Exists(ctx context.Context, scheduleID uuid.UUID, typ string, bookingID *uuid.UUID) (bool, error)

	// OpenBySchedule returns ACTIVE announcements of the given types tied to
	// the schedule.
	OpenBySchedule(ctx context.Context, scheduleID uuid.UUID, types ...string) ([]*Announcement, error)
	Update(ctx context.Context, a *Announcement) error
}

// HistoryRepo persists completion records. InsertOnce reports false without
// error when a row for the schedule already exists, regardless of which
// writer got there first.
type HistoryRepo interface {
	InsertOnce(ctx context.Context, h *History) (created bool, err error)
	ExistsForSchedule(ctx context.Context, scheduleID uuid.UUID) (bool, error)
	ListByAsset(ctx context.Context, assetID uuid.UUID) ([]*History, error)
	ListBySchedule(ctx context.Context, scheduleID uuid.UUID) ([]*History, error)
}

// Repos bundles the repositories of one tenant. A Repos value is already
// scoped to its schema; holding one never mutates process-wide state.
type Repos struct {
	Schedules     ScheduleRepo
	Assets        AssetRepo
	Amenities     AmenityRepo
	Bookings      BookingRepo
	Announcements AnnouncementRepo
	Histories     HistoryRepo
}

// Store is the tenant directory plus a factory for tenant-scoped repositories.
type Store interface {
	// Buildings lists all tenants.
	Buildings(ctx context.Context) ([]Building, error)

	// Tenant returns repositories scoped to the given schema. Each sweep
	// iteration takes a fresh bundle so one tenant's failure cannot leak
	// state into the next.
	Tenant(schema string) Repos

	// WithinTx runs fn atomically: every repository call made with the
	// callback's context commits or rolls back as one unit. The DONE
	// transition runs through this, so a schedule can never be durably DONE
	// without its completion record.
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
