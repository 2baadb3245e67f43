package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"buildingops/internal/maintenance"
	"buildingops/internal/shared"
)

type assetRepo struct {
	t *tenant
}

func (r *assetRepo) GetByID(ctx context.Context, id uuid.UUID) (*maintenance.Asset, error) {
	sql := fmt.Sprintf(`SELECT id, code, name, category_code, default_reminder_days, status
		FROM %s WHERE id = $1`, r.t.table("asset"))
	var a maintenance.Asset
	err := r.t.q(ctx).QueryRow(ctx, sql, id).
		Scan(&a.ID, &a.Code, &a.Name, &a.CategoryCode, &a.DefaultReminderDays, &a.Status)
	if err != nil {
		return nil, notFound(err, "asset %s not found", id)
	}
	return &a, nil
}

func (r *assetRepo) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	sql := fmt.Sprintf(`UPDATE %s SET status = $2 WHERE id = $1`, r.t.table("asset"))
	tag, err := r.t.q(ctx).Exec(ctx, sql, id, status)
	if err != nil {
		return shared.Wrap(err, "update asset status")
	}
	if tag.RowsAffected() == 0 {
		return shared.MarkKind(fmt.Errorf("asset %s not found", id), shared.KindNotFound)
	}
	return nil
}

type amenityRepo struct {
	t *tenant
}

func (r *amenityRepo) GetByAssetID(ctx context.Context, assetID uuid.UUID) (*maintenance.Amenity, error) {
	sql := fmt.Sprintf(`SELECT id, asset_id, name, status FROM %s WHERE asset_id = $1`,
		r.t.table("amenity"))
	var a maintenance.Amenity
	err := r.t.q(ctx).QueryRow(ctx, sql, assetID).
		Scan(&a.ID, &a.AssetID, &a.Name, &a.Status)
	if err != nil {
		return nil, notFound(err, "no amenity for asset %s", assetID)
	}
	return &a, nil
}

func (r *amenityRepo) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	sql := fmt.Sprintf(`UPDATE %s SET status = $2 WHERE id = $1`, r.t.table("amenity"))
	tag, err := r.t.q(ctx).Exec(ctx, sql, id, status)
	if err != nil {
		return shared.Wrap(err, "update amenity status")
	}
	if tag.RowsAffected() == 0 {
		return shared.MarkKind(fmt.Errorf("amenity %s not found", id), shared.KindNotFound)
	}
	return nil
}

type bookingRepo struct {
	t *tenant
}

func (r *bookingRepo) ConfirmedPaidOverlapping(ctx context.Context, amenityID uuid.UUID, start, end time.Time) ([]*maintenance.Booking, error) {
	sql := fmt.Sprintf(`SELECT id, amenity_id, user_id, start_date, end_date
		FROM %s
		WHERE amenity_id = $1
		  AND booking_status = 'CONFIRMED'
		  AND payment_status = 'PAID'
		  AND start_date <= $3::date
		  AND end_date >= $2::date
		ORDER BY start_date`, r.t.table("booking"))
	rows, err := r.t.q(ctx).Query(ctx, sql, amenityID, start, end)
	if err != nil {
		return nil, shared.Wrap(err, "list affected bookings")
	}
	defer rows.Close()

	var out []*maintenance.Booking
	for rows.Next() {
		var b maintenance.Booking
		if err := rows.Scan(&b.ID, &b.AmenityID, &b.UserID, &b.StartDate, &b.EndDate); err != nil {
			return nil, shared.Wrap(err, "scan booking")
		}
		out = append(out, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.Wrap(err, "iterate bookings")
	}
	return out, nil
}
