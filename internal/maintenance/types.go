package maintenance

import (
	"time"

	"github.com/google/uuid"
)

// Asset and amenity availability states written by this engine. Only the
// maintenance engine flips an asset to or from AssetMaintenance.
const (
	AssetActive      = "ACTIVE"
	AssetMaintenance = "MAINTENANCE"
)

// AmenityCategoryCode marks assets that are resident-bookable amenities.
const AmenityCategoryCode = "AMENITY"

// Announcement types produced by the engine. The (schedule, type, booking)
// triple is the de-duplication key.
const (
	AnnouncementStaffReminder   = "MAINTENANCE_REMINDER"
	AnnouncementAmenityReminder = "AMENITY_MAINTENANCE_REMINDER"
	AnnouncementResidentNotice  = "ASSET_MAINTENANCE_NOTICE"
	AnnouncementCompletion      = "MAINTENANCE_COMPLETED"
)

// Announcement visibility scopes and statuses.
const (
	ScopeStaff    = "STAFF"
	ScopeResident = "RESIDENT"

	AnnouncementActive   = "ACTIVE"
	AnnouncementInactive = "INACTIVE"
)

// Classification of a completed schedule relative to its planned end.
type Classification string

const (
	CompletionEarly  Classification = "EARLY"
	CompletionOnTime Classification = "ON_TIME"
	CompletionLate   Classification = "LATE"
)

// Schedule is one maintenance window bound to one asset.
type Schedule struct {
	ID      uuid.UUID
	AssetID uuid.UUID
	Window  Window

	Status       Status
	ReminderDays int
	Description  string

	// Recurrence is informational; completing a schedule records the next due
	// date in history but never spawns a new schedule.
	RecurrenceType     string
	RecurrenceInterval int

	// Scheduled* freeze the originally planned window once the schedule
	// completes; Actual* record what really happened.
	ScheduledStart *time.Time
	ScheduledEnd   *time.Time
	ActualStart    *time.Time
	ActualEnd      *time.Time

	CompletionNotes string
	CompletedBy     *uuid.UUID
	CompletedAt     *time.Time

	CreatedBy *uuid.UUID
	CreatedAt time.Time
}

// Asset is the maintained facility item. Status is shared mutable state also
// read by the asset-management subsystem.
type Asset struct {
	ID                  uuid.UUID
	Code                string
	Name                string
	CategoryCode        string
	DefaultReminderDays int
	Status              string
}

// IsAmenity reports whether the asset backs a resident-bookable amenity.
func (a *Asset) IsAmenity() bool {
	return a != nil && a.CategoryCode == AmenityCategoryCode
}

// Amenity is the bookable face of an amenity-category asset.
type Amenity struct {
	ID      uuid.UUID
	AssetID uuid.UUID
	Name    string
	Status  string
}

// Booking is a confirmed, paid amenity reservation a maintenance window may
// collide with.
type Booking struct {
	ID        uuid.UUID
	AmenityID uuid.UUID
	UserID    *uuid.UUID
	StartDate time.Time
	EndDate   time.Time
}

// Announcement is a staff- or resident-facing notice tied to a schedule.
type Announcement struct {
	ID          uuid.UUID
	Title       string
	Content     string
	VisibleFrom time.Time
	VisibleTo   time.Time
	Scope       string
	Status      string
	Type        string
	ScheduleID  uuid.UUID
	BookingID   *uuid.UUID
	CreatedBy   *uuid.UUID
	CreatedAt   time.Time
}

// History is the permanent completion record, written at most once per
// schedule.
type History struct {
	ID         uuid.UUID
	AssetID    uuid.UUID
	ScheduleID uuid.UUID
	ActionDate time.Time
	Action     string
	Notes      string

	ScheduledStart *time.Time
	ScheduledEnd   *time.Time
	ActualStart    *time.Time
	ActualEnd      *time.Time

	CompletionStatus Classification
	DaysDifference   int
	NextDueDate      *time.Time
	PerformedBy      *uuid.UUID
	CreatedAt        time.Time
}

// Building is one tenant; Schema scopes every repository call for that tenant.
type Building struct {
	ID     uuid.UUID
	Name   string
	Schema string
}
