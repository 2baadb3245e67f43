package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"buildingops/internal/maintenance"
	"buildingops/internal/shared"
)

type scheduleRepo struct {
	t *tenant
}

const scheduleColumns = `id, asset_id, start_date, end_date, start_time, end_time,
	status, reminder_days, description, recurrence_type, recurrence_interval,
	scheduled_start_date, scheduled_end_date, actual_start, actual_end,
	completion_notes, completed_by, completed_at, created_by, created_at`

func (r *scheduleRepo) Create(ctx context.Context, s *maintenance.Schedule) error {
	sql := fmt.Sprintf(`INSERT INTO %s (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`,
		r.t.table("maintenance_schedule"), scheduleColumns)
	_, err := r.t.q(ctx).Exec(ctx, sql,
		s.ID, s.AssetID, s.Window.StartDate, s.Window.EndDate,
		todToPg(s.Window.StartTime), todToPg(s.Window.EndTime),
		string(s.Status), s.ReminderDays, s.Description,
		s.RecurrenceType, s.RecurrenceInterval,
		s.ScheduledStart, s.ScheduledEnd, s.ActualStart, s.ActualEnd,
		s.CompletionNotes, s.CompletedBy, s.CompletedAt, s.CreatedBy, s.CreatedAt)
	if err != nil {
		return shared.Wrap(err, "insert schedule")
	}
	return nil
}

func (r *scheduleRepo) Update(ctx context.Context, s *maintenance.Schedule) error {
	sql := fmt.Sprintf(`UPDATE %s SET
		asset_id = $2, start_date = $3, end_date = $4, start_time = $5, end_time = $6,
		status = $7, reminder_days = $8, description = $9,
		recurrence_type = $10, recurrence_interval = $11,
		scheduled_start_date = $12, scheduled_end_date = $13,
		actual_start = $14, actual_end = $15,
		completion_notes = $16, completed_by = $17, completed_at = $18
		WHERE id = $1`, r.t.table("maintenance_schedule"))
	tag, err := r.t.q(ctx).Exec(ctx, sql,
		s.ID, s.AssetID, s.Window.StartDate, s.Window.EndDate,
		todToPg(s.Window.StartTime), todToPg(s.Window.EndTime),
		string(s.Status), s.ReminderDays, s.Description,
		s.RecurrenceType, s.RecurrenceInterval,
		s.ScheduledStart, s.ScheduledEnd, s.ActualStart, s.ActualEnd,
		s.CompletionNotes, s.CompletedBy, s.CompletedAt)
	if err != nil {
		return shared.Wrap(err, "update schedule")
	}
	if tag.RowsAffected() == 0 {
		return shared.MarkKind(fmt.Errorf("schedule %s not found", s.ID), shared.KindNotFound)
	}
	return nil
}

func (r *scheduleRepo) GetByID(ctx context.Context, id uuid.UUID) (*maintenance.Schedule, error) {
	sql := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`,
		scheduleColumns, r.t.table("maintenance_schedule"))
	s, err := scanSchedule(r.t.q(ctx).QueryRow(ctx, sql, id))
	if err != nil {
		return nil, notFound(err, "schedule %s not found", id)
	}
	return s, nil
}

func (r *scheduleRepo) Delete(ctx context.Context, id uuid.UUID) error {
	sql := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.t.table("maintenance_schedule"))
	tag, err := r.t.q(ctx).Exec(ctx, sql, id)
	if err != nil {
		return shared.Wrap(err, "delete schedule")
	}
	if tag.RowsAffected() == 0 {
		return shared.MarkKind(fmt.Errorf("schedule %s not found", id), shared.KindNotFound)
	}
	return nil
}

func (r *scheduleRepo) StatusOf(ctx context.Context, id uuid.UUID) (maintenance.Status, error) {
	sql := fmt.Sprintf(`SELECT status FROM %s WHERE id = $1`, r.t.table("maintenance_schedule"))
	var status string
	if err := r.t.q(ctx).QueryRow(ctx, sql, id).Scan(&status); err != nil {
		return "", notFound(err, "schedule %s not found", id)
	}
	return maintenance.Status(status), nil
}

func (r *scheduleRepo) ListActiveForAsset(ctx context.Context, assetID uuid.UUID, exclude *uuid.UUID) ([]*maintenance.Schedule, error) {
	sql := fmt.Sprintf(`SELECT %s FROM %s
		WHERE asset_id = $1
		  AND status IN ('SCHEDULED', 'IN_PROGRESS')
		  AND ($2::uuid IS NULL OR id <> $2)
		ORDER BY start_date`, scheduleColumns, r.t.table("maintenance_schedule"))
	rows, err := r.t.q(ctx).Query(ctx, sql, assetID, exclude)
	if err != nil {
		return nil, shared.Wrap(err, "list active schedules")
	}
	return scanSchedules(rows)
}

func (r *scheduleRepo) ListByStatus(ctx context.Context, status maintenance.Status) ([]*maintenance.Schedule, error) {
	sql := fmt.Sprintf(`SELECT %s FROM %s WHERE status = $1 ORDER BY start_date`,
		scheduleColumns, r.t.table("maintenance_schedule"))
	rows, err := r.t.q(ctx).Query(ctx, sql, string(status))
	if err != nil {
		return nil, shared.Wrap(err, "list schedules by status")
	}
	return scanSchedules(rows)
}

func (r *scheduleRepo) DueForReminder(ctx context.Context, today time.Time) ([]*maintenance.Schedule, error) {
	sql := fmt.Sprintf(`SELECT %s FROM %s
		WHERE status = 'SCHEDULED'
		  AND start_date >= $1::date
		  AND start_date <= $1::date + reminder_days
		ORDER BY start_date`, scheduleColumns, r.t.table("maintenance_schedule"))
	rows, err := r.t.q(ctx).Query(ctx, sql, today)
	if err != nil {
		return nil, shared.Wrap(err, "list schedules due for reminder")
	}
	return scanSchedules(rows)
}

func (r *scheduleRepo) Search(ctx context.Context, f maintenance.ScheduleFilter) ([]*maintenance.Schedule, error) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Status != "" {
		conds = append(conds, "status = "+arg(string(f.Status)))
	} else {
		conds = append(conds, "status IN ('SCHEDULED', 'IN_PROGRESS')")
	}
	if f.AssetID != nil {
		conds = append(conds, "asset_id = "+arg(*f.AssetID))
	}
	if f.Term != "" {
		conds = append(conds, "description ILIKE "+arg("%"+f.Term+"%"))
	}
	if f.StartDateFrom != nil {
		conds = append(conds, "start_date >= "+arg(*f.StartDateFrom))
	}
	if f.StartDateTo != nil {
		conds = append(conds, "start_date <= "+arg(*f.StartDateTo))
	}

	sql := fmt.Sprintf(`SELECT %s FROM %s WHERE %s ORDER BY start_date`,
		scheduleColumns, r.t.table("maintenance_schedule"), strings.Join(conds, " AND "))
	rows, err := r.t.q(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, shared.Wrap(err, "search schedules")
	}
	return scanSchedules(rows)
}

func scanSchedule(row pgx.Row) (*maintenance.Schedule, error) {
	var (
		s                  maintenance.Schedule
		status             string
		startTime, endTime pgtype.Time
	)
	err := row.Scan(
		&s.ID, &s.AssetID, &s.Window.StartDate, &s.Window.EndDate, &startTime, &endTime,
		&status, &s.ReminderDays, &s.Description, &s.RecurrenceType, &s.RecurrenceInterval,
		&s.ScheduledStart, &s.ScheduledEnd, &s.ActualStart, &s.ActualEnd,
		&s.CompletionNotes, &s.CompletedBy, &s.CompletedAt, &s.CreatedBy, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	s.Status = maintenance.Status(status)
	s.Window.StartTime = todFromPg(startTime)
	s.Window.EndTime = todFromPg(endTime)
	return &s, nil
}

func scanSchedules(rows pgx.Rows) ([]*maintenance.Schedule, error) {
	defer rows.Close()
	var out []*maintenance.Schedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, shared.Wrap(err, "scan schedule")
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.Wrap(err, "iterate schedules")
	}
	return out, nil
}

// todToPg converts an optional time of day into a nullable TIME value.
func todToPg(t *maintenance.TimeOfDay) pgtype.Time {
	if t == nil {
		return pgtype.Time{}
	}
	return pgtype.Time{Microseconds: t.Duration().Microseconds(), Valid: true}
}

func todFromPg(t pgtype.Time) *maintenance.TimeOfDay {
	if !t.Valid {
		return nil
	}
	sec := t.Microseconds / 1_000_000
	return &maintenance.TimeOfDay{
		Hour:   int(sec / 3600),
		Minute: int(sec / 60 % 60),
		Second: int(sec % 60),
	}
}
