package maintenance

import (
	"context"
	"time"

	"buildingops/internal/shared"
)

// The sweeps fan out over every tenant and act on due schedules. One tenant's
// failure never stops the fan-out, and one schedule's failure never stops its
// tenant's batch. Every action re-reads the durable status first, so a user
// update racing the sweep turns the sweep's step into a no-op.

// RunStartSweep moves due SCHEDULED windows to IN_PROGRESS and occupies their
// assets.
func (s *Service) RunStartSweep(ctx context.Context) error {
	return s.sweep(ctx, "start", s.startTenant)
}

// RunCompleteSweep finishes IN_PROGRESS windows whose end instant has passed:
// history, asset restore, announcement close-out.
func (s *Service) RunCompleteSweep(ctx context.Context) error {
	return s.sweep(ctx, "complete", s.completeTenant)
}

// RunReminderSweep publishes reminders for SCHEDULED windows entering their
// reminder horizon.
func (s *Service) RunReminderSweep(ctx context.Context) error {
	return s.sweep(ctx, "reminder", s.remindTenant)
}

func (s *Service) sweep(ctx context.Context, name string, fn func(context.Context, Repos, time.Time) error) error {
	buildings, err := s.store.Buildings(ctx)
	if err != nil {
		return shared.Wrap(err, "list buildings")
	}
	for _, b := range buildings {
		if err := ctx.Err(); err != nil {
			return err
		}
		r := s.store.Tenant(b.Schema)
		if err := fn(ctx, r, s.tenantNow()); err != nil {
			s.log.Error("tenant sweep failed", "sweep", name, "building", b.Name, "schema", b.Schema, "err", err)
		}
	}
	return nil
}

func (s *Service) startTenant(ctx context.Context, r Repos, now time.Time) error {
	scheds, err := r.Schedules.ListByStatus(ctx, StatusScheduled)
	if err != nil {
		return shared.Wrap(err, "list scheduled")
	}
	for _, sched := range scheds {
		if err := s.startOne(ctx, r, sched, now); err != nil {
			s.log.Error("start sweep: schedule skipped", "schedule", sched.ID, "err", err)
		}
	}
	return nil
}

func (s *Service) startOne(ctx context.Context, r Repos, sched *Schedule, now time.Time) error {
	if now.Before(s.localizeWindow(sched.Window).StartInstant()) {
		return nil
	}
	cur, err := r.Schedules.StatusOf(ctx, sched.ID)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil // deleted meanwhile
		}
		return err
	}
	if cur != StatusScheduled {
		return nil // a user moved it meanwhile
	}

	if err := s.occupyAsset(ctx, r, sched.AssetID); err != nil {
		return err
	}
	sched.Status = StatusInProgress
	start := now
	sched.ActualStart = &start
	if err := r.Schedules.Update(ctx, sched); err != nil {
		return shared.Wrap(err, "mark in progress")
	}
	s.log.Info("maintenance started", "schedule", sched.ID, "asset", sched.AssetID)
	return nil
}

func (s *Service) completeTenant(ctx context.Context, r Repos, now time.Time) error {
	scheds, err := r.Schedules.ListByStatus(ctx, StatusInProgress)
	if err != nil {
		return shared.Wrap(err, "list in progress")
	}
	for _, sched := range scheds {
		if err := s.completeOne(ctx, r, sched, now); err != nil {
			s.log.Error("complete sweep: schedule skipped", "schedule", sched.ID, "err", err)
		}
	}
	return nil
}

func (s *Service) completeOne(ctx context.Context, r Repos, sched *Schedule, now time.Time) error {
	if now.Before(s.localizeWindow(sched.Window).EndInstant()) {
		return nil
	}
	cur, err := r.Schedules.StatusOf(ctx, sched.ID)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil
		}
		return err
	}
	if cur != StatusInProgress {
		return nil
	}

	asset, err := r.Assets.GetByID(ctx, sched.AssetID)
	if err != nil {
		if !shared.IsNotFound(err) {
			return err
		}
		asset = nil // orphaned schedule still completes
	}

	freezeScheduledWindow(sched)
	sched.Status = StatusDone
	end := now
	sched.ActualEnd = &end
	sched.CompletedAt = &end

	// One transaction for the DONE write, the history row and the asset
	// restore: a failure rolls all three back and the schedule stays
	// IN_PROGRESS, so the next pass picks it up again.
	err = s.store.WithinTx(ctx, func(ctx context.Context) error {
		if err := r.Schedules.Update(ctx, sched); err != nil {
			return shared.Wrap(err, "mark done")
		}
		if _, err := s.recordCompletion(ctx, r, sched, asset, end, nil, ""); err != nil {
			return err
		}
		return s.releaseAsset(ctx, r, sched.AssetID, sched.ID)
	})
	if err != nil {
		return err
	}
	s.deactivateOpenAnnouncements(ctx, r, sched.ID, end)
	return nil
}

func (s *Service) remindTenant(ctx context.Context, r Repos, now time.Time) error {
	scheds, err := r.Schedules.DueForReminder(ctx, Date(now))
	if err != nil {
		return shared.Wrap(err, "list due for reminder")
	}
	for _, sched := range scheds {
		asset, err := r.Assets.GetByID(ctx, sched.AssetID)
		if err != nil {
			s.log.Error("reminder sweep: asset lookup failed", "schedule", sched.ID, "asset", sched.AssetID, "err", err)
			continue
		}
		if err := s.emitReminder(ctx, r, sched, asset); err != nil {
			s.log.Error("reminder sweep: emission failed", "schedule", sched.ID, "err", err)
		}
	}
	return nil
}
