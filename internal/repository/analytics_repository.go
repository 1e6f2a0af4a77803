package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// AnalyticsRepo runs the read-only queries behind the admin dashboard.
type AnalyticsRepo struct {
	db *sql.DB
}

func NewAnalyticsRepo(db *sql.DB) *AnalyticsRepo { return &AnalyticsRepo{db: db} }

// Totals are all-time dashboard counters.
type Totals struct {
	Bookings            int64           `json:"bookings"`
	Revenue             decimal.Decimal `json:"revenue"`
	ActiveSubscriptions int64           `json:"active_subscriptions"`
	Profiles            int64           `json:"profiles"`
}

// Totals counts bookings (excluding cancelled), their revenue, active
// memberships and profiles.
func (r *AnalyticsRepo) Totals(ctx context.Context) (Totals, error) {
	var t Totals
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(SUM(total_price), 0) FROM bookings WHERE status <> 'cancelled'").
		Scan(&t.Bookings, &t.Revenue)
	if err != nil {
		return t, err
	}
	err = r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM subscriptions WHERE status IN ('active','trialing')").Scan(&t.ActiveSubscriptions)
	if err != nil {
		return t, err
	}
	err = r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM profiles").Scan(&t.Profiles)
	return t, err
}

// Point is one timestamped amount fed into date bucketing.
type Point struct {
	At     time.Time
	Amount decimal.Decimal
}

// BookingsSince returns the creation time and total of every
// non-cancelled booking created at or after since.
func (r *AnalyticsRepo) BookingsSince(ctx context.Context, since time.Time) ([]Point, error) {
	return r.points(ctx,
		"SELECT created_at, total_price FROM bookings WHERE created_at >= ? AND status <> 'cancelled' ORDER BY created_at", since)
}

// SubscriptionsSince returns the creation time and price of memberships
// created at or after since.
func (r *AnalyticsRepo) SubscriptionsSince(ctx context.Context, since time.Time) ([]Point, error) {
	return r.points(ctx,
		"SELECT created_at, price FROM subscriptions WHERE created_at >= ? ORDER BY created_at", since)
}

// ProfilesSince returns sign-up times at or after since.
func (r *AnalyticsRepo) ProfilesSince(ctx context.Context, since time.Time) ([]Point, error) {
	return r.points(ctx,
		"SELECT created_at, 0 FROM profiles WHERE created_at >= ? ORDER BY created_at", since)
}

func (r *AnalyticsRepo) points(ctx context.Context, q string, since time.Time) ([]Point, error) {
	rows, err := r.db.QueryContext(ctx, q, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Point
	for rows.Next() {
		var p Point
		if err := rows.Scan(&p.At, &p.Amount); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
