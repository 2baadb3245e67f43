package maintenance

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"buildingops/internal/shared"
)

// Classify compares the actual end instant against the planned one and returns
// the completion class plus the signed day difference (rounded to the nearest
// whole day; negative means early).
func Classify(actualEnd, scheduledEnd time.Time) (Classification, int) {
	diff := actualEnd.Sub(scheduledEnd)
	days := int(math.Round(diff.Hours() / 24))
	switch {
	case diff < 0:
		return CompletionEarly, days
	case diff == 0:
		return CompletionOnTime, days
	default:
		return CompletionLate, days
	}
}

// NextDueDate projects the next occurrence from the completion date. DAILY and
// WEEKLY step from the action date; MONTHLY and YEARLY use calendar arithmetic.
// Unknown recurrence types return the action date unchanged.
func NextDueDate(actionDate time.Time, recurrenceType string, interval int) time.Time {
	switch strings.ToUpper(recurrenceType) {
	case "DAILY":
		return actionDate.AddDate(0, 0, interval)
	case "WEEKLY":
		return actionDate.AddDate(0, 0, interval*7)
	case "MONTHLY":
		return actionDate.AddDate(0, interval, 0)
	case "YEARLY":
		return actionDate.AddDate(interval, 0, 0)
	default:
		return actionDate
	}
}

// CompletionResult reports what recordCompletion did.
type CompletionResult struct {
	HistoryID uuid.UUID

	// Skipped is true when a history row for the schedule already existed, so
	// nothing was written.
	Skipped bool
}

// recordCompletion writes the at-most-once completion history row and, when it
// wins the write, publishes the completion notice. Both the user-driven DONE
// path and the auto-complete sweep funnel through here; whichever arrives
// second becomes a no-op.
func (s *Service) recordCompletion(ctx context.Context, r Repos, sched *Schedule, asset *Asset, actualEnd time.Time, actor *uuid.UUID, notes string) (CompletionResult, error) {
	exists, err := r.Histories.ExistsForSchedule(ctx, sched.ID)
	if err != nil {
		return CompletionResult{}, shared.Wrap(err, "check completion history")
	}
	if exists {
		return CompletionResult{Skipped: true}, nil
	}

	schedEndDate := sched.Window.EndDate
	if sched.ScheduledEnd != nil {
		schedEndDate = *sched.ScheduledEnd
	}
	scheduledEnd := At(s.localize(schedEndDate), EndOfDay)
	if sched.Window.EndTime != nil {
		scheduledEnd = At(s.localize(schedEndDate), *sched.Window.EndTime)
	}
	class, days := Classify(actualEnd, scheduledEnd)

	assetName := "asset"
	if asset != nil {
		assetName = asset.Name
	}
	if notes == "" {
		notes = sched.Description
	}

	schedStartDate := sched.Window.StartDate
	if sched.ScheduledStart != nil {
		schedStartDate = *sched.ScheduledStart
	}

	h := &History{
		ID:               uuid.New(),
		AssetID:          sched.AssetID,
		ScheduleID:       sched.ID,
		ActionDate:       actualEnd,
		Action:           "Completed maintenance: " + assetName,
		Notes:            notes,
		ScheduledStart:   &schedStartDate,
		ScheduledEnd:     &schedEndDate,
		ActualStart:      sched.ActualStart,
		ActualEnd:        &actualEnd,
		CompletionStatus: class,
		DaysDifference:   days,
		PerformedBy:      actor,
		CreatedAt:        actualEnd,
	}
	if sched.RecurrenceType != "" && sched.RecurrenceInterval > 0 {
		// Short cycles step from the end of the window, calendar cycles from
		// its start.
		base := schedEndDate
		switch strings.ToUpper(sched.RecurrenceType) {
		case "MONTHLY", "YEARLY":
			base = schedStartDate
		}
		nd := NextDueDate(Date(base), sched.RecurrenceType, sched.RecurrenceInterval)
		h.NextDueDate = &nd
	}

	created, err := r.Histories.InsertOnce(ctx, h)
	if err != nil {
		return CompletionResult{}, shared.Wrap(err, "insert completion history")
	}
	if !created {
		// A concurrent writer completed first.
		return CompletionResult{Skipped: true}, nil
	}

	if err := s.emitCompletionNotice(ctx, r, sched, asset, actualEnd, class); err != nil {
		s.log.Error("completion notice failed", "schedule", sched.ID, "err", err)
	}

	s.log.Info("maintenance completed",
		"schedule", sched.ID, "asset", sched.AssetID,
		"classification", class, "days_difference", days)
	return CompletionResult{HistoryID: h.ID}, nil
}
