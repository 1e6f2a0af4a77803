package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/carwash-booking/internal/model"
)

// SubscriptionRepo mirrors provider memberships into the `subscriptions`
// table.
type SubscriptionRepo struct {
	db *sql.DB
}

func NewSubscriptionRepo(db *sql.DB) *SubscriptionRepo { return &SubscriptionRepo{db: db} }

const subscriptionColumns = `id, kind, user_id, plan_id, billing_cycle, stripe_customer_id, stripe_subscription_id,
	status, price, current_period_start, current_period_end, cancel_at_period_end, created_at, updated_at`

func scanSubscription(row interface{ Scan(...any) error }) (model.Subscription, error) {
	var (
		s           model.Subscription
		userID      sql.NullInt64
		periodStart sql.NullTime
		periodEnd   sql.NullTime
	)
	err := row.Scan(&s.ID, &s.Kind, &userID, &s.PlanID, &s.BillingCycle, &s.StripeCustomerID, &s.StripeSubscriptionID,
		&s.Status, &s.Price, &periodStart, &periodEnd, &s.CancelAtPeriodEnd, &s.CreatedAt, &s.UpdatedAt)
	if userID.Valid {
		v := uint64(userID.Int64)
		s.UserID = &v
	}
	if periodStart.Valid {
		t := periodStart.Time
		s.CurrentPeriodStart = &t
	}
	if periodEnd.Valid {
		t := periodEnd.Time
		s.CurrentPeriodEnd = &t
	}
	return s, err
}

// upsertSubscriptionSQL keys on (kind, stripe_customer_id).  The
// LAST_INSERT_ID(id) assignment makes LastInsertId return the existing row
// id on the update path.
const upsertSubscriptionSQL = `INSERT INTO subscriptions (kind, user_id, plan_id, billing_cycle, stripe_customer_id,
	stripe_subscription_id, status, price, current_period_start, current_period_end, cancel_at_period_end)
 VALUES (?,?,?,?,?,?,?,?,?,?,?)
 ON DUPLICATE KEY UPDATE id = LAST_INSERT_ID(id), user_id = COALESCE(VALUES(user_id), user_id),
	plan_id = VALUES(plan_id), billing_cycle = VALUES(billing_cycle),
	stripe_subscription_id = VALUES(stripe_subscription_id), status = VALUES(status), price = VALUES(price),
	current_period_start = VALUES(current_period_start), current_period_end = VALUES(current_period_end),
	cancel_at_period_end = VALUES(cancel_at_period_end)`

// Upsert inserts or refreshes the membership of a provider customer and,
// when vehicleID is non-nil, links that vehicle in the same transaction.
// The stored row id is written back into s.
func (r *SubscriptionRepo) Upsert(ctx context.Context, s *model.Subscription, vehicleID *uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer rollback(tx, &committed)

	res, err := tx.ExecContext(ctx, upsertSubscriptionSQL,
		s.Kind, s.UserID, s.PlanID, s.BillingCycle, s.StripeCustomerID,
		s.StripeSubscriptionID, s.Status, s.Price, s.CurrentPeriodStart, s.CurrentPeriodEnd, s.CancelAtPeriodEnd)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	if vehicleID != nil {
		if err := linkVehicle(ctx, tx, s.ID, *vehicleID); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// SyncFromProvider refreshes the lifecycle fields of every row mirroring
// the given provider subscription.  It returns the number of rows touched.
func (r *SubscriptionRepo) SyncFromProvider(ctx context.Context, stripeSubscriptionID, status string, start, end *time.Time, cancelAtPeriodEnd bool) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE subscriptions SET status = ?, current_period_start = ?, current_period_end = ?, cancel_at_period_end = ?
		 WHERE stripe_subscription_id = ?`,
		status, start, end, cancelAtPeriodEnd, stripeSubscriptionID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// GetByID fetches a membership.
func (r *SubscriptionRepo) GetByID(ctx context.Context, id uint64) (model.Subscription, error) {
	s, err := scanSubscription(r.db.QueryRowContext(ctx, "SELECT "+subscriptionColumns+" FROM subscriptions WHERE id = ?", id))
	return s, notFound(err)
}

// ListByUser returns a user's memberships, newest first.
func (r *SubscriptionRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Subscription, error) {
	return r.query(ctx, "SELECT "+subscriptionColumns+" FROM subscriptions WHERE user_id = ? ORDER BY id DESC", userID)
}

// ListByKind returns memberships of one kind, newest first.
func (r *SubscriptionRepo) ListByKind(ctx context.Context, kind string) ([]model.Subscription, error) {
	return r.query(ctx, "SELECT "+subscriptionColumns+" FROM subscriptions WHERE kind = ? ORDER BY id DESC", kind)
}

func (r *SubscriptionRepo) query(ctx context.Context, q string, args ...any) ([]model.Subscription, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Subscription
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
