package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/carwash-booking/internal/model"
)

// UsageLogRepo stores self-service bay sessions.  Check-in and check-out
// are guarded in SQL so that the in_progress <=> check_out_time IS NULL
// invariant holds even when two attendants act on the same vehicle.
type UsageLogRepo struct {
	db *sql.DB
}

func NewUsageLogRepo(db *sql.DB) *UsageLogRepo { return &UsageLogRepo{db: db} }

const usageColumns = `id, subscription_id, user_id, vehicle_id, check_in_time, check_out_time, status,
	attendant_name, checkout_attendant_name, COALESCE(notes,'')`

func scanUsage(row interface{ Scan(...any) error }) (model.UsageLog, error) {
	var (
		l      model.UsageLog
		userID sql.NullInt64
		out    sql.NullTime
	)
	err := row.Scan(&l.ID, &l.SubscriptionID, &userID, &l.VehicleID, &l.CheckInTime, &out, &l.Status,
		&l.AttendantName, &l.CheckoutAttendantName, &l.Notes)
	if userID.Valid {
		v := uint64(userID.Int64)
		l.UserID = &v
	}
	if out.Valid {
		t := out.Time
		l.CheckOutTime = &t
	}
	return l, err
}

// CheckIn opens a session for a vehicle.  Within one transaction it locks
// the membership row, verifies it is an active self-service membership,
// verifies the vehicle is linked to it, locks the vehicle row, checks it
// has no open session, then inserts the in_progress log.  The generated id and the membership owner
// are written back into l.
func (r *UsageLogRepo) CheckIn(ctx context.Context, l *model.UsageLog) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer rollback(tx, &committed)

	var (
		kind, status string
		owner        sql.NullInt64
	)
	err = tx.QueryRowContext(ctx,
		"SELECT kind, status, user_id FROM subscriptions WHERE id = ? FOR UPDATE", l.SubscriptionID).
		Scan(&kind, &status, &owner)
	if err != nil {
		return notFound(err)
	}
	if kind != model.KindSelfService || !(model.Subscription{Status: status}).IsActive() {
		return ErrSubscriptionInactive
	}

	var linked int
	err = tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM subscription_vehicles WHERE subscription_id = ? AND vehicle_id = ?",
		l.SubscriptionID, l.VehicleID).Scan(&linked)
	if err != nil {
		return err
	}
	if linked == 0 {
		return ErrVehicleNotLinked
	}

	// A vehicle may sit on more than one membership, so the membership
	// lock alone does not serialize check-ins for it.
	var locked uint64
	err = tx.QueryRowContext(ctx, "SELECT id FROM vehicles WHERE id = ? FOR UPDATE", l.VehicleID).Scan(&locked)
	if err != nil {
		return notFound(err)
	}
	var open int
	err = tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM self_service_usage_logs WHERE vehicle_id = ? AND status = 'in_progress' FOR UPDATE",
		l.VehicleID).Scan(&open)
	if err != nil {
		return err
	}
	if open > 0 {
		return ErrVehicleBusy
	}

	if owner.Valid {
		v := uint64(owner.Int64)
		l.UserID = &v
	}
	l.Status = model.UsageInProgress
	l.CheckOutTime = nil
	res, err := tx.ExecContext(ctx,
		`INSERT INTO self_service_usage_logs (subscription_id, user_id, vehicle_id, check_in_time, status, attendant_name, notes)
		 VALUES (?,?,?,?,?,?,?)`,
		l.SubscriptionID, l.UserID, l.VehicleID, l.CheckInTime, l.Status, l.AttendantName, l.Notes)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	l.ID = uint64(id)
	return nil
}

// Close ends an in-progress session with the given terminal status
// (completed or cancelled).  ErrNotFound is returned for unknown ids and
// ErrConflict when the session is no longer in progress.
func (r *UsageLogRepo) Close(ctx context.Context, id uint64, status, attendant string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE self_service_usage_logs SET check_out_time = ?, status = ?, checkout_attendant_name = ?
		 WHERE id = ? AND status = 'in_progress'`,
		at, status, attendant, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return ErrConflict
}

// GetByID fetches a session.
func (r *UsageLogRepo) GetByID(ctx context.Context, id uint64) (model.UsageLog, error) {
	l, err := scanUsage(r.db.QueryRowContext(ctx, "SELECT "+usageColumns+" FROM self_service_usage_logs WHERE id = ?", id))
	return l, notFound(err)
}

// ListBySubscription returns the latest sessions of a membership.
func (r *UsageLogRepo) ListBySubscription(ctx context.Context, subscriptionID uint64, limit int) ([]model.UsageLog, error) {
	if limit <= 0 {
		limit = 50
	}
	return r.query(ctx,
		"SELECT "+usageColumns+" FROM self_service_usage_logs WHERE subscription_id = ? ORDER BY check_in_time DESC LIMIT ?",
		subscriptionID, limit)
}

// ListInProgress returns every open session, oldest first.
func (r *UsageLogRepo) ListInProgress(ctx context.Context) ([]model.UsageLog, error) {
	return r.query(ctx,
		"SELECT "+usageColumns+" FROM self_service_usage_logs WHERE status = 'in_progress' ORDER BY check_in_time")
}

func (r *UsageLogRepo) query(ctx context.Context, q string, args ...any) ([]model.UsageLog, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.UsageLog
	for rows.Next() {
		l, err := scanUsage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
