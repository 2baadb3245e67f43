// Package maintenance implements the asset/amenity maintenance-schedule
// engine: the schedule lifecycle state machine, window conflict detection,
// the create/update orchestrator, and the periodic tenant fan-out sweeps.
package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"buildingops/internal/shared"
)

// Options configures a Service.
type Options struct {
	Logger *slog.Logger

	// UTCOffsetHours is the fixed wall-clock offset all tenants share when
	// deciding "now" (start/complete due instants, past-date checks).
	UTCOffsetHours int

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Service drives maintenance schedules through their lifecycle. All methods
// take the tenant schema explicitly; the service holds no per-tenant state.
type Service struct {
	store Store
	log   *slog.Logger
	loc   *time.Location
	now   func() time.Time
}

// NewService creates the maintenance engine on top of a tenant-scoped store.
func NewService(store Store, opts Options) *Service {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	loc := time.FixedZone(fmt.Sprintf("UTC%+d", opts.UTCOffsetHours), opts.UTCOffsetHours*3600)
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, log: log, loc: loc, now: now}
}

// tenantNow returns the current wall-clock time in the shared tenant offset.
func (s *Service) tenantNow() time.Time {
	return s.now().In(s.loc)
}

// localize re-expresses a stored date or instant in the tenant offset while
// keeping its wall-clock components. Date columns come back as UTC midnight;
// comparing them against the tenant clock needs both sides in the same frame.
func (s *Service) localize(t time.Time) time.Time {
	y, m, d := t.Date()
	h, mi, sec := t.Clock()
	return time.Date(y, m, d, h, mi, sec, 0, s.loc)
}

func (s *Service) localizeWindow(w Window) Window {
	w.StartDate = s.localize(w.StartDate)
	w.EndDate = s.localize(w.EndDate)
	return w
}

// CreateInput describes a new maintenance window.
type CreateInput struct {
	AssetID   uuid.UUID
	StartDate time.Time
	EndDate   time.Time
	StartTime *TimeOfDay
	EndTime   *TimeOfDay

	ReminderDays       int
	Description        string
	RecurrenceType     string
	RecurrenceInterval int

	CreatedBy *uuid.UUID

	// System marks schedules provisioned automatically alongside a new asset;
	// those skip the past-date, occupancy and overlap checks.
	System bool
}

// CreateSchedule validates the window and persists it as SCHEDULED. When the
// window starts inside the reminder horizon a staff reminder plus resident
// notices go out immediately; notice failures are logged, never rolled back.
func (s *Service) CreateSchedule(ctx context.Context, tenant string, in CreateInput) (*Schedule, error) {
	r := s.store.Tenant(tenant)

	asset, err := r.Assets.GetByID(ctx, in.AssetID)
	if err != nil {
		return nil, err
	}

	w := Window{
		StartDate: s.localize(Date(in.StartDate)),
		EndDate:   s.localize(Date(in.EndDate)),
		StartTime: in.StartTime,
		EndTime:   in.EndTime,
	}
	if w.EndDate.Before(w.StartDate) {
		return nil, validationf("end date must be on or after start date")
	}

	now := s.tenantNow()
	today := Date(now)
	if !in.System {
		if w.StartDate.Before(today) {
			return nil, validationf("start date must not be in the past")
		}
		if w.StartDate.Equal(today) && w.StartTime != nil && At(today, *w.StartTime).Before(now) {
			return nil, validationf("start time must not be in the past; current time: %s", now.Format("15:04"))
		}
	}

	if err := validateTimePair(w); err != nil {
		return nil, err
	}

	if !in.System {
		active, err := r.Schedules.ListActiveForAsset(ctx, asset.ID, nil)
		if err != nil {
			return nil, shared.Wrap(err, "list active schedules")
		}
		if s.underMaintenance(active, now) {
			return nil, validationf("asset %s is currently under maintenance; complete or cancel the active schedule first", asset.Name)
		}
		if conflicts := s.overlapping(w, active); len(conflicts) > 0 {
			return nil, &ConflictError{Conflicts: conflicts}
		}
	}

	reminder := in.ReminderDays
	if reminder <= 0 && asset.DefaultReminderDays > 0 {
		reminder = asset.DefaultReminderDays
	}

	sched := &Schedule{
		ID:                 uuid.New(),
		AssetID:            asset.ID,
		Window:             w,
		Status:             StatusScheduled,
		ReminderDays:       reminder,
		Description:        in.Description,
		RecurrenceType:     in.RecurrenceType,
		RecurrenceInterval: in.RecurrenceInterval,
		CreatedBy:          in.CreatedBy,
		CreatedAt:          now,
	}
	if err := r.Schedules.Create(ctx, sched); err != nil {
		return nil, shared.Wrap(err, "create schedule")
	}

	if !w.StartDate.Before(today) && !w.StartDate.After(today.AddDate(0, 0, reminder)) {
		if err := s.emitReminder(ctx, r, sched, asset); err != nil {
			s.log.Error("immediate reminder failed", "schedule", sched.ID, "err", err)
		}
	}

	return sched, nil
}

// UpdateInput is a partial field set; nil pointers leave fields unchanged.
type UpdateInput struct {
	AssetID   *uuid.UUID
	StartDate *time.Time
	EndDate   *time.Time
	StartTime *TimeOfDay
	EndTime   *TimeOfDay

	ReminderDays       *int
	Description        *string
	RecurrenceType     *string
	RecurrenceInterval *int

	Status          *Status
	ActualEnd       *time.Time
	CompletionNotes string

	Actor uuid.UUID
}

// UpdateSchedule applies a partial update, enforcing the transition table and
// re-checking conflicts against the merged window. Transition side effects
// (asset status flips, completion history, announcement housekeeping) run
// after the schedule row is durably updated.
func (s *Service) UpdateSchedule(ctx context.Context, tenant string, id uuid.UUID, in UpdateInput) (*Schedule, error) {
	r := s.store.Tenant(tenant)

	sched, err := r.Schedules.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Status != nil && *in.Status != sched.Status {
		if err := CheckTransition(sched.Status, *in.Status); err != nil {
			return nil, err
		}
	}
	if in.AssetID != nil {
		if _, err := r.Assets.GetByID(ctx, *in.AssetID); err != nil {
			return nil, err
		}
	}

	w := s.localizeWindow(sched.Window)
	if in.StartDate != nil {
		w.StartDate = s.localize(Date(*in.StartDate))
	}
	if in.EndDate != nil {
		w.EndDate = s.localize(Date(*in.EndDate))
	}
	if in.StartTime != nil {
		w.StartTime = in.StartTime
	}
	if in.EndTime != nil {
		w.EndTime = in.EndTime
	}
	if w.EndDate.Before(w.StartDate) {
		return nil, validationf("end date must be on or after start date")
	}

	completing := in.Status != nil && *in.Status == StatusDone
	now := s.tenantNow()
	today := Date(now)

	// Past-date rule applies only when the start date actually moves, and
	// never while completing.
	if in.StartDate != nil && !w.StartDate.Equal(s.localize(sched.Window.StartDate)) && !completing {
		if w.StartDate.Before(today) {
			return nil, validationf("start date must not be in the past")
		}
	}

	assetID := sched.AssetID
	if in.AssetID != nil {
		assetID = *in.AssetID
	}
	windowChanged := in.AssetID != nil || in.StartDate != nil || in.EndDate != nil ||
		in.StartTime != nil || in.EndTime != nil
	if windowChanged {
		active, err := r.Schedules.ListActiveForAsset(ctx, assetID, &id)
		if err != nil {
			return nil, shared.Wrap(err, "list active schedules")
		}
		if conflicts := s.overlapping(w, active); len(conflicts) > 0 {
			return nil, &ConflictError{Conflicts: conflicts}
		}
	}

	if err := validateTimePair(w); err != nil {
		return nil, err
	}

	prevStatus := sched.Status
	oldAssetID := sched.AssetID
	changingAsset := in.AssetID != nil && *in.AssetID != oldAssetID

	// Moving an in-flight schedule to another asset hands the MAINTENANCE
	// status over: the old asset is restored unless a sibling still holds it.
	if changingAsset && prevStatus == StatusInProgress {
		if err := s.releaseAsset(ctx, r, oldAssetID, id); err != nil {
			return nil, err
		}
		if err := s.occupyAsset(ctx, r, *in.AssetID); err != nil {
			return nil, err
		}
	}

	sched.AssetID = assetID
	sched.Window = w
	if in.ReminderDays != nil {
		sched.ReminderDays = *in.ReminderDays
	}
	if in.Description != nil {
		sched.Description = *in.Description
	}
	if in.RecurrenceType != nil {
		sched.RecurrenceType = *in.RecurrenceType
	}
	if in.RecurrenceInterval != nil {
		sched.RecurrenceInterval = *in.RecurrenceInterval
	}

	newStatus := prevStatus
	if in.Status != nil {
		newStatus = *in.Status
	}
	switch {
	case prevStatus != StatusInProgress && newStatus == StatusInProgress:
		start := now
		sched.ActualStart = &start
		if err := s.occupyAsset(ctx, r, sched.AssetID); err != nil {
			return nil, err
		}
	case prevStatus == StatusInProgress && (newStatus == StatusScheduled || newStatus == StatusCancelled):
		if err := s.releaseAsset(ctx, r, sched.AssetID, id); err != nil {
			return nil, err
		}
	}
	sched.Status = newStatus

	toDone := prevStatus == StatusInProgress && newStatus == StatusDone
	if toDone {
		actualEnd := now
		if in.ActualEnd != nil {
			actualEnd = in.ActualEnd.In(s.loc)
		}
		completedAt := now
		sched.ActualEnd = &actualEnd
		sched.CompletedBy = &in.Actor
		sched.CompletedAt = &completedAt
		if in.CompletionNotes != "" {
			sched.CompletionNotes = in.CompletionNotes
		}
		freezeScheduledWindow(sched)
	}

	if toDone {
		// Status write, completion record and asset restore commit as one
		// unit: a schedule must never be durably DONE without its history row.
		asset, err := r.Assets.GetByID(ctx, sched.AssetID)
		if err != nil && !shared.IsNotFound(err) {
			return nil, err
		}
		actor := in.Actor
		err = s.store.WithinTx(ctx, func(ctx context.Context) error {
			if err := r.Schedules.Update(ctx, sched); err != nil {
				return shared.Wrap(err, "update schedule")
			}
			if _, err := s.recordCompletion(ctx, r, sched, asset, *sched.ActualEnd, &actor, in.CompletionNotes); err != nil {
				return err
			}
			return s.releaseAsset(ctx, r, sched.AssetID, id)
		})
		if err != nil {
			return nil, err
		}
		s.deactivateOpenAnnouncements(ctx, r, sched.ID, *sched.ActualEnd)
	} else if err := r.Schedules.Update(ctx, sched); err != nil {
		return nil, shared.Wrap(err, "update schedule")
	}

	timeChanged := in.StartDate != nil || in.EndDate != nil || in.StartTime != nil || in.EndTime != nil
	if timeChanged {
		s.refreshOpenAnnouncements(ctx, r, sched)
	}

	return sched, nil
}

// GetSchedule returns one schedule by id.
func (s *Service) GetSchedule(ctx context.Context, tenant string, id uuid.UUID) (*Schedule, error) {
	return s.store.Tenant(tenant).Schedules.GetByID(ctx, id)
}

// SearchSchedules lists schedules matching the filter; with no explicit
// status the terminal ones are excluded.
func (s *Service) SearchSchedules(ctx context.Context, tenant string, f ScheduleFilter) ([]*Schedule, error) {
	return s.store.Tenant(tenant).Schedules.Search(ctx, f)
}

// DeleteSchedule removes a schedule and its linked announcements.
func (s *Service) DeleteSchedule(ctx context.Context, tenant string, id uuid.UUID) error {
	return s.store.Tenant(tenant).Schedules.Delete(ctx, id)
}

// HistoriesBySchedule lists completion records for one schedule.
func (s *Service) HistoriesBySchedule(ctx context.Context, tenant string, scheduleID uuid.UUID) ([]*History, error) {
	return s.store.Tenant(tenant).Histories.ListBySchedule(ctx, scheduleID)
}

// HistoriesByAsset lists completion records for one asset.
func (s *Service) HistoriesByAsset(ctx context.Context, tenant string, assetID uuid.UUID) ([]*History, error) {
	return s.store.Tenant(tenant).Histories.ListByAsset(ctx, assetID)
}

// validateTimePair enforces the pairing rule: a window carries either both
// times or neither, and a same-day window must end after it starts.
func validateTimePair(w Window) error {
	if w.StartTime == nil && w.EndTime == nil {
		return nil
	}
	if w.StartTime == nil {
		return validationf("start time is required when end time is set")
	}
	if w.EndTime == nil {
		return validationf("end time is required when start time is set")
	}
	if Date(w.StartDate).Equal(Date(w.EndDate)) && !w.StartTime.Before(*w.EndTime) {
		return validationf("end time must be after start time on a same-day window")
	}
	return nil
}

// underMaintenance reports whether any active schedule's window contains now.
func (s *Service) underMaintenance(scheds []*Schedule, now time.Time) bool {
	for _, sc := range scheds {
		if sc.Status.Active() && s.localizeWindow(sc.Window).Contains(now) {
			return true
		}
	}
	return false
}

// overlapping collects the windows of existing schedules that conflict with w.
// w must already be in the tenant frame.
func (s *Service) overlapping(w Window, existing []*Schedule) []Window {
	var out []Window
	for _, sc := range existing {
		ew := s.localizeWindow(sc.Window)
		if w.Overlaps(ew) {
			out = append(out, ew)
		}
	}
	return out
}

// freezeScheduledWindow copies the planned window into the Scheduled* fields
// the first time the schedule completes.
func freezeScheduledWindow(sched *Schedule) {
	if sched.ScheduledStart == nil {
		d := sched.Window.StartDate
		sched.ScheduledStart = &d
	}
	if sched.ScheduledEnd == nil {
		d := sched.Window.EndDate
		sched.ScheduledEnd = &d
	}
}

// occupyAsset flips the asset (and its amenity, if any) to MAINTENANCE.
func (s *Service) occupyAsset(ctx context.Context, r Repos, assetID uuid.UUID) error {
	asset, err := r.Assets.GetByID(ctx, assetID)
	if err != nil {
		return err
	}
	if err := r.Assets.SetStatus(ctx, assetID, AssetMaintenance); err != nil {
		return shared.Wrap(err, "set asset status")
	}
	if !asset.IsAmenity() {
		return nil
	}
	am, err := r.Amenities.GetByAssetID(ctx, assetID)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil
		}
		return err
	}
	if am.Status != AssetMaintenance {
		if err := r.Amenities.SetStatus(ctx, am.ID, AssetMaintenance); err != nil {
			return shared.Wrap(err, "set amenity status")
		}
	}
	return nil
}

// releaseAsset restores the asset (and its amenity) to ACTIVE, unless a
// sibling schedule for the same asset is still IN_PROGRESS.
func (s *Service) releaseAsset(ctx context.Context, r Repos, assetID, exclude uuid.UUID) error {
	asset, err := r.Assets.GetByID(ctx, assetID)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil
		}
		return err
	}
	if asset.Status != AssetMaintenance {
		return nil
	}

	siblings, err := r.Schedules.ListByStatus(ctx, StatusInProgress)
	if err != nil {
		return shared.Wrap(err, "list in-progress schedules")
	}
	for _, sib := range siblings {
		if sib.AssetID == assetID && sib.ID != exclude {
			return nil // another window still holds the asset
		}
	}

	if err := r.Assets.SetStatus(ctx, assetID, AssetActive); err != nil {
		return shared.Wrap(err, "set asset status")
	}
	if !asset.IsAmenity() {
		return nil
	}
	am, err := r.Amenities.GetByAssetID(ctx, assetID)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil
		}
		return err
	}
	if am.Status == AssetMaintenance {
		if err := r.Amenities.SetStatus(ctx, am.ID, AssetActive); err != nil {
			return shared.Wrap(err, "set amenity status")
		}
	}
	return nil
}
