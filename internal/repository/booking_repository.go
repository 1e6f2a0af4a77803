package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/iliyamo/carwash-booking/internal/model"
)

// BookingRepo persists paid bookings.  Rows are only ever created by the
// payment webhook; the checkout_session_id unique key turns a redelivered
// webhook into a no-op.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = `id, user_id, vehicle_id, service_package_id, service_name, service_price, add_on_ids,
	appointment_date, appointment_time, total_price, total_duration, status, customer_name, customer_email,
	customer_phone, payment_intent_id, checkout_session_id, created_at, updated_at`

func scanBooking(row interface{ Scan(...any) error }) (model.Booking, error) {
	var (
		b         model.Booking
		userID    sql.NullInt64
		vehicleID sql.NullInt64
		addOns    []byte
		date      time.Time
	)
	err := row.Scan(&b.ID, &userID, &vehicleID, &b.ServicePackageID, &b.ServiceName, &b.ServicePrice, &addOns,
		&date, &b.AppointmentTime, &b.TotalPrice, &b.TotalDuration, &b.Status, &b.CustomerName, &b.CustomerEmail,
		&b.CustomerPhone, &b.PaymentIntentID, &b.CheckoutSessionID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return b, err
	}
	if userID.Valid {
		v := uint64(userID.Int64)
		b.UserID = &v
	}
	if vehicleID.Valid {
		v := uint64(vehicleID.Int64)
		b.VehicleID = &v
	}
	b.AppointmentDate = date.Format("2006-01-02")
	b.AddOnIDs = []uint64{}
	if len(addOns) > 0 {
		if err := json.Unmarshal(addOns, &b.AddOnIDs); err != nil {
			return b, err
		}
	}
	return b, nil
}

// CreatePaid writes the vehicle (when v is non-nil) and the booking in a
// single transaction.  When a booking for the same checkout session already
// exists nothing is written, the stored booking is loaded into b and
// created is false.
func (r *BookingRepo) CreatePaid(ctx context.Context, b *model.Booking, v *model.Vehicle) (created bool, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	committed := false
	defer rollback(tx, &committed)

	if v != nil {
		if err := insertVehicle(ctx, tx, v); err != nil {
			return false, err
		}
		b.VehicleID = &v.ID
	}
	addOns, err := json.Marshal(nonNilIDs(b.AddOnIDs))
	if err != nil {
		return false, err
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO bookings (user_id, vehicle_id, service_package_id, service_name, service_price, add_on_ids,
			appointment_date, appointment_time, total_price, total_duration, status, customer_name, customer_email,
			customer_phone, payment_intent_id, checkout_session_id)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		b.UserID, b.VehicleID, b.ServicePackageID, b.ServiceName, b.ServicePrice, addOns,
		b.AppointmentDate, b.AppointmentTime, b.TotalPrice, b.TotalDuration, b.Status, b.CustomerName, b.CustomerEmail,
		b.CustomerPhone, b.PaymentIntentID, b.CheckoutSessionID)
	if err != nil {
		if !isDuplicateKey(err) {
			return false, err
		}
		_ = tx.Rollback()
		committed = true
		existing, err := r.GetByCheckoutSession(ctx, b.CheckoutSessionID)
		if err != nil {
			return false, err
		}
		*b = existing
		return false, nil
	}
	id, err := res.LastInsertId()
	if err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	committed = true
	b.ID = uint64(id)
	return true, nil
}

func nonNilIDs(ids []uint64) []uint64 {
	if ids == nil {
		return []uint64{}
	}
	return ids
}

// GetByID fetches a booking.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (model.Booking, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx, "SELECT "+bookingColumns+" FROM bookings WHERE id = ?", id))
	return b, notFound(err)
}

// GetByCheckoutSession fetches the booking created for a checkout session.
func (r *BookingRepo) GetByCheckoutSession(ctx context.Context, sessionID string) (model.Booking, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx, "SELECT "+bookingColumns+" FROM bookings WHERE checkout_session_id = ?", sessionID))
	return b, notFound(err)
}

// BookingFilter narrows List.  Zero values are ignored.
type BookingFilter struct {
	Date   string
	Status string
	UserID uint64
	Limit  int
}

// List returns bookings ordered by appointment, newest first.
func (r *BookingRepo) List(ctx context.Context, f BookingFilter) ([]model.Booking, error) {
	var (
		where []string
		args  []any
	)
	if f.Date != "" {
		where = append(where, "appointment_date = ?")
		args = append(args, f.Date)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}
	if f.UserID != 0 {
		where = append(where, "user_id = ?")
		args = append(args, f.UserID)
	}
	q := "SELECT " + bookingColumns + " FROM bookings"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY appointment_date DESC, appointment_time DESC, id DESC"
	if f.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// UpdateStatus moves a booking from one status to another.  The update
// only applies while the row still has the expected status; a concurrent
// change yields ErrConflict.
func (r *BookingRepo) UpdateStatus(ctx context.Context, id uint64, from, to string) error {
	res, err := r.db.ExecContext(ctx, "UPDATE bookings SET status = ? WHERE id = ? AND status = ?", to, id, from)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrConflict
	}
	return nil
}

// CountBySlot returns how many non-cancelled bookings exist per
// appointment time on a date.
func (r *BookingRepo) CountBySlot(ctx context.Context, date string) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT appointment_time, COUNT(*) FROM bookings
		 WHERE appointment_date = ? AND status <> 'cancelled' GROUP BY appointment_time`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var (
			slot string
			n    int
		)
		if err := rows.Scan(&slot, &n); err != nil {
			return nil, err
		}
		out[slot] = n
	}
	return out, rows.Err()
}
