package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Subscription is a recurring membership mirrored from the payment
// provider.  Rows are upserted on (Kind, StripeCustomerID), which makes the
// webhook write replay-safe.
type Subscription struct {
	ID                   uint64          `json:"id"`
	Kind                 string          `json:"kind"`
	UserID               *uint64         `json:"user_id,omitempty"`
	PlanID               uint64          `json:"plan_id"`
	BillingCycle         string          `json:"billing_cycle"`
	StripeCustomerID     string          `json:"stripe_customer_id"`
	StripeSubscriptionID string          `json:"stripe_subscription_id"`
	Status               string          `json:"status"`
	Price                decimal.Decimal `json:"price"`
	CurrentPeriodStart   *time.Time      `json:"current_period_start,omitempty"`
	CurrentPeriodEnd     *time.Time      `json:"current_period_end,omitempty"`
	CancelAtPeriodEnd    bool            `json:"cancel_at_period_end"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// IsActive reports whether the membership currently grants access.
func (s Subscription) IsActive() bool {
	return s.Status == "active" || s.Status == "trialing"
}
