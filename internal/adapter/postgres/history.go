package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"buildingops/internal/maintenance"
	"buildingops/internal/shared"
)

type historyRepo struct {
	t *tenant
}

const historyColumns = `id, asset_id, schedule_id, action_date, action, notes,
	scheduled_start_date, scheduled_end_date, actual_start, actual_end,
	completion_status, days_difference, next_due_date, performed_by, created_at`

// InsertOnce writes the completion record unless the schedule already has one.
// The unique index on schedule_id makes concurrent completions collapse into
// a single row; the loser gets created=false without an error.
func (r *historyRepo) InsertOnce(ctx context.Context, h *maintenance.History) (bool, error) {
	sql := fmt.Sprintf(`INSERT INTO %s (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (schedule_id) DO NOTHING`, r.t.table("maintenance_history"), historyColumns)
	tag, err := r.t.q(ctx).Exec(ctx, sql,
		h.ID, h.AssetID, h.ScheduleID, h.ActionDate, h.Action, h.Notes,
		h.ScheduledStart, h.ScheduledEnd, h.ActualStart, h.ActualEnd,
		string(h.CompletionStatus), h.DaysDifference, h.NextDueDate, h.PerformedBy, h.CreatedAt)
	if err != nil {
		return false, shared.Wrap(err, "insert history")
	}
	return tag.RowsAffected() == 1, nil
}

func (r *historyRepo) ExistsForSchedule(ctx context.Context, scheduleID uuid.UUID) (bool, error) {
	sql := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE schedule_id = $1)`,
		r.t.table("maintenance_history"))
	var exists bool
	if err := r.t.q(ctx).QueryRow(ctx, sql, scheduleID).Scan(&exists); err != nil {
		return false, shared.Wrap(err, "check history")
	}
	return exists, nil
}

func (r *historyRepo) ListByAsset(ctx context.Context, assetID uuid.UUID) ([]*maintenance.History, error) {
	sql := fmt.Sprintf(`SELECT %s FROM %s WHERE asset_id = $1 ORDER BY action_date DESC`,
		historyColumns, r.t.table("maintenance_history"))
	rows, err := r.t.q(ctx).Query(ctx, sql, assetID)
	if err != nil {
		return nil, shared.Wrap(err, "list histories by asset")
	}
	return scanHistories(rows)
}

func (r *historyRepo) ListBySchedule(ctx context.Context, scheduleID uuid.UUID) ([]*maintenance.History, error) {
	sql := fmt.Sprintf(`SELECT %s FROM %s WHERE schedule_id = $1 ORDER BY action_date DESC`,
		historyColumns, r.t.table("maintenance_history"))
	rows, err := r.t.q(ctx).Query(ctx, sql, scheduleID)
	if err != nil {
		return nil, shared.Wrap(err, "list histories by schedule")
	}
	return scanHistories(rows)
}

func scanHistories(rows pgx.Rows) ([]*maintenance.History, error) {
	defer rows.Close()
	var out []*maintenance.History
	for rows.Next() {
		var (
			h      maintenance.History
			status string
		)
		err := rows.Scan(&h.ID, &h.AssetID, &h.ScheduleID, &h.ActionDate, &h.Action, &h.Notes,
			&h.ScheduledStart, &h.ScheduledEnd, &h.ActualStart, &h.ActualEnd,
			&status, &h.DaysDifference, &h.NextDueDate, &h.PerformedBy, &h.CreatedAt)
		if err != nil {
			return nil, shared.Wrap(err, "scan history")
		}
		h.CompletionStatus = maintenance.Classification(status)
		out = append(out, &h)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.Wrap(err, "iterate histories")
	}
	return out, nil
}
