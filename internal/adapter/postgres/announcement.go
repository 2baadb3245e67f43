package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"buildingops/internal/maintenance"
	"buildingops/internal/shared"
)

type announcementRepo struct {
	t *tenant
}

const announcementColumns = `id, title, content, visible_from, visible_to,
	scope, status, type, schedule_id, booking_id, created_by, created_at`

// Insert writes the announcement unless one with the same
// (schedule, type, booking) key exists. The unique index decides the race;
// a losing writer gets created=false without an error.
func (r *announcementRepo) Insert(ctx context.Context, a *maintenance.Announcement) (bool, error) {
	sql := fmt.Sprintf(`INSERT INTO %s (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT DO NOTHING`, r.t.table("announcement"), announcementColumns)
	tag, err := r.t.q(ctx).Exec(ctx, sql,
		a.ID, a.Title, a.Content, a.VisibleFrom, a.VisibleTo,
		a.Scope, a.Status, a.Type, a.ScheduleID, a.BookingID, a.CreatedBy, a.CreatedAt)
	if err != nil {
		return false, shared.Wrap(err, "insert announcement")
	}
	return tag.RowsAffected() == 1, nil
}

func (r *announcementRepo) Exists(ctx context.Context, scheduleID uuid.UUID, typ string, bookingID *uuid.UUID) (bool, error) {
	sql := fmt.Sprintf(`SELECT EXISTS (
		SELECT 1 FROM %s
		WHERE schedule_id = $1 AND type = $2 AND booking_id IS NOT DISTINCT FROM $3
	)`, r.t.table("announcement"))
	var exists bool
	if err := r.t.q(ctx).QueryRow(ctx, sql, scheduleID, typ, bookingID).Scan(&exists); err != nil {
		return false, shared.Wrap(err, "check announcement")
	}
	return exists, nil
}

func (r *announcementRepo) OpenBySchedule(ctx context.Context, scheduleID uuid.UUID, types ...string) ([]*maintenance.Announcement, error) {
	sql := fmt.Sprintf(`SELECT %s FROM %s
		WHERE schedule_id = $1 AND status = 'ACTIVE' AND type = ANY($2)
		ORDER BY created_at`, announcementColumns, r.t.table("announcement"))
	rows, err := r.t.q(ctx).Query(ctx, sql, scheduleID, types)
	if err != nil {
		return nil, shared.Wrap(err, "list open announcements")
	}
	return scanAnnouncements(rows)
}

func (r *announcementRepo) Update(ctx context.Context, a *maintenance.Announcement) error {
	sql := fmt.Sprintf(`UPDATE %s SET
		title = $2, content = $3, visible_from = $4, visible_to = $5, status = $6
		WHERE id = $1`, r.t.table("announcement"))
	tag, err := r.t.q(ctx).Exec(ctx, sql,
		a.ID, a.Title, a.Content, a.VisibleFrom, a.VisibleTo, a.Status)
	if err != nil {
		return shared.Wrap(err, "update announcement")
	}
	if tag.RowsAffected() == 0 {
		return shared.MarkKind(fmt.Errorf("announcement %s not found", a.ID), shared.KindNotFound)
	}
	return nil
}

func scanAnnouncements(rows pgx.Rows) ([]*maintenance.Announcement, error) {
	defer rows.Close()
	var out []*maintenance.Announcement
	for rows.Next() {
		var a maintenance.Announcement
		err := rows.Scan(&a.ID, &a.Title, &a.Content, &a.VisibleFrom, &a.VisibleTo,
			&a.Scope, &a.Status, &a.Type, &a.ScheduleID, &a.BookingID, &a.CreatedBy, &a.CreatedAt)
		if err != nil {
			return nil, shared.Wrap(err, "scan announcement")
		}
		out = append(out, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.Wrap(err, "iterate announcements")
	}
	return out, nil
}
