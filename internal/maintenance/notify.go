package maintenance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"buildingops/internal/shared"
)

// emitReminder publishes the staff reminder for an upcoming window, then the
// resident-facing notices: per-booking reminders for amenities, one generic
// notice otherwise. Duplicate suppression rides on the announcement key, so
// re-running this for the same schedule adds nothing.
func (s *Service) emitReminder(ctx context.Context, r Repos, sched *Schedule, asset *Asset) error {
	now := s.tenantNow()
	w := s.localizeWindow(sched.Window)

	staff := &Announcement{
		ID:    uuid.New(),
		Title: fmt.Sprintf("Upcoming maintenance: %s", asset.Name),
		Content: fmt.Sprintf("Maintenance for %s is scheduled from %s to %s. Prepare accordingly.",
			asset.Name, formatInstant(w.StartInstant()), formatInstant(w.EndInstant())),
		VisibleFrom: now,
		VisibleTo:   w.EndInstant(),
		Scope:       ScopeStaff,
		Status:      AnnouncementActive,
		Type:        AnnouncementStaffReminder,
		ScheduleID:  sched.ID,
		CreatedAt:   now,
	}
	var errs []error
	if _, err := r.Announcements.Insert(ctx, staff); err != nil {
		errs = append(errs, shared.Wrap(err, "staff reminder"))
	}

	if asset.IsAmenity() {
		if err := s.notifyAmenityBookings(ctx, r, sched, asset); err != nil {
			errs = append(errs, err)
		}
	} else {
		if err := s.notifyAssetResidents(ctx, r, sched, asset); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// notifyAmenityBookings fans one reminder out to every confirmed, paid booking
// whose dates intersect the window. Each (schedule, booking) pair is notified
// at most once across all sweep runs.
func (s *Service) notifyAmenityBookings(ctx context.Context, r Repos, sched *Schedule, asset *Asset) error {
	am, err := r.Amenities.GetByAssetID(ctx, asset.ID)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil
		}
		return shared.Wrap(err, "resolve amenity")
	}

	w := s.localizeWindow(sched.Window)
	bookings, err := r.Bookings.ConfirmedPaidOverlapping(ctx, am.ID, sched.Window.StartDate, sched.Window.EndDate)
	if err != nil {
		return shared.Wrap(err, "list affected bookings")
	}

	var errs []error
	for _, b := range bookings {
		if b.UserID == nil {
			continue
		}
		bookingID := b.ID
		exists, err := r.Announcements.Exists(ctx, sched.ID, AnnouncementAmenityReminder, &bookingID)
		if err != nil {
			errs = append(errs, shared.Wrap(err, "check booking reminder"))
			continue
		}
		if exists {
			continue
		}
		now := s.tenantNow()
		a := &Announcement{
			ID:    uuid.New(),
			Title: fmt.Sprintf("Maintenance affects your booking: %s", am.Name),
			Content: fmt.Sprintf("%s is under maintenance from %s to %s. Your booking on %s may be affected.",
				am.Name, formatInstant(w.StartInstant()), formatInstant(w.EndInstant()),
				b.StartDate.Format("02/01/2006")),
			VisibleFrom: now,
			VisibleTo:   w.EndInstant(),
			Scope:       ScopeResident,
			Status:      AnnouncementActive,
			Type:        AnnouncementAmenityReminder,
			ScheduleID:  sched.ID,
			BookingID:   &bookingID,
			CreatedAt:   now,
		}
		if _, err := r.Announcements.Insert(ctx, a); err != nil {
			errs = append(errs, shared.Wrap(err, "booking reminder"))
		}
	}
	return errors.Join(errs...)
}

// notifyAssetResidents publishes the single generic resident notice for a
// non-amenity asset.
func (s *Service) notifyAssetResidents(ctx context.Context, r Repos, sched *Schedule, asset *Asset) error {
	exists, err := r.Announcements.Exists(ctx, sched.ID, AnnouncementResidentNotice, nil)
	if err != nil {
		return shared.Wrap(err, "check resident notice")
	}
	if exists {
		return nil
	}
	now := s.tenantNow()
	w := s.localizeWindow(sched.Window)
	a := &Announcement{
		ID:    uuid.New(),
		Title: fmt.Sprintf("Scheduled maintenance: %s", asset.Name),
		Content: fmt.Sprintf("%s will be unavailable from %s to %s due to maintenance.",
			asset.Name, formatInstant(w.StartInstant()), formatInstant(w.EndInstant())),
		VisibleFrom: now,
		VisibleTo:   w.EndInstant(),
		Scope:       ScopeResident,
		Status:      AnnouncementActive,
		Type:        AnnouncementResidentNotice,
		ScheduleID:  sched.ID,
		CreatedAt:   now,
	}
	if _, err := r.Announcements.Insert(ctx, a); err != nil {
		return shared.Wrap(err, "resident notice")
	}
	return nil
}

// emitCompletionNotice tells residents the asset is back. Visible for 24 hours.
func (s *Service) emitCompletionNotice(ctx context.Context, r Repos, sched *Schedule, asset *Asset, actualEnd time.Time, class Classification) error {
	exists, err := r.Announcements.Exists(ctx, sched.ID, AnnouncementCompletion, nil)
	if err != nil {
		return shared.Wrap(err, "check completion notice")
	}
	if exists {
		return nil
	}

	assetName := "The asset"
	if asset != nil {
		assetName = asset.Name
	}
	content := fmt.Sprintf("Maintenance of %s finished on %s. The asset is available again.",
		assetName, formatInstant(actualEnd))
	if class == CompletionEarly {
		content = fmt.Sprintf("Maintenance of %s finished early, on %s. The asset is available again.",
			assetName, formatInstant(actualEnd))
	}

	a := &Announcement{
		ID:          uuid.New(),
		Title:       fmt.Sprintf("Maintenance completed: %s", assetName),
		Content:     content,
		VisibleFrom: actualEnd,
		VisibleTo:   actualEnd.Add(24 * time.Hour),
		Scope:       ScopeResident,
		Status:      AnnouncementActive,
		Type:        AnnouncementCompletion,
		ScheduleID:  sched.ID,
		CreatedAt:   actualEnd,
	}
	if _, err := r.Announcements.Insert(ctx, a); err != nil {
		return shared.Wrap(err, "completion notice")
	}
	return nil
}

// deactivateOpenAnnouncements closes the open resident notices of a finished
// schedule so residents stop seeing a warning about maintenance that already
// ended. Best effort: failures are logged.
func (s *Service) deactivateOpenAnnouncements(ctx context.Context, r Repos, scheduleID uuid.UUID, until time.Time) {
	anns, err := r.Announcements.OpenBySchedule(ctx, scheduleID,
		AnnouncementResidentNotice, AnnouncementAmenityReminder, AnnouncementStaffReminder)
	if err != nil {
		s.log.Error("list open announcements failed", "schedule", scheduleID, "err", err)
		return
	}
	for _, a := range anns {
		a.Status = AnnouncementInactive
		a.VisibleTo = until
		if err := r.Announcements.Update(ctx, a); err != nil {
			s.log.Error("deactivate announcement failed", "announcement", a.ID, "err", err)
		}
	}
	if len(anns) > 0 {
		s.log.Info("announcements deactivated", "schedule", scheduleID, "count", len(anns))
	}
}

// refreshOpenAnnouncements rewrites the open notices of a rescheduled window
// in place, keeping their de-duplication keys intact. Best effort.
func (s *Service) refreshOpenAnnouncements(ctx context.Context, r Repos, sched *Schedule) {
	anns, err := r.Announcements.OpenBySchedule(ctx, sched.ID,
		AnnouncementStaffReminder, AnnouncementAmenityReminder, AnnouncementResidentNotice)
	if err != nil {
		s.log.Error("list open announcements failed", "schedule", sched.ID, "err", err)
		return
	}
	if len(anns) == 0 {
		return
	}

	asset, err := r.Assets.GetByID(ctx, sched.AssetID)
	if err != nil {
		s.log.Error("load asset for announcement refresh failed", "asset", sched.AssetID, "err", err)
		return
	}
	w := s.localizeWindow(sched.Window)
	for _, a := range anns {
		a.Title = fmt.Sprintf("Updated maintenance schedule: %s", asset.Name)
		a.Content = fmt.Sprintf("Maintenance for %s now runs from %s to %s.",
			asset.Name, formatInstant(w.StartInstant()), formatInstant(w.EndInstant()))
		a.VisibleTo = w.EndInstant()
		if err := r.Announcements.Update(ctx, a); err != nil {
			s.log.Error("refresh announcement failed", "announcement", a.ID, "err", err)
		}
	}
}

func formatInstant(t time.Time) string {
	return t.Format("02/01/2006 15:04")
}
