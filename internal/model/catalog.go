package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ServicePackage is a wash package offered in the booking wizard.  Category
// is matched against the vehicle body type ("all" matches every body type).
type ServicePackage struct {
	ID          uint64          `json:"id"`
	Slug        string          `json:"slug"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	DurationMin int             `json:"duration_min"`
	Category    string          `json:"category"`
	Active      bool            `json:"active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// AddOn is an optional extra that can be attached to a package.
type AddOn struct {
	ID          uint64          `json:"id"`
	Slug        string          `json:"slug"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	DurationMin int             `json:"duration_min"`
	Category    string          `json:"category"`
	Active      bool            `json:"active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// CategoryAll marks catalog entries offered for every body type.
const CategoryAll = "all"

// Matches reports whether a catalog category applies to the body type.
func Matches(category, bodyType string) bool {
	return bodyType == "" || category == "" || category == CategoryAll || category == bodyType
}

// Subscription kinds.  Plans are attended wash memberships, self_service
// grants access to the unattended bay and is tracked with usage logs.
const (
	KindPlan        = "plan"
	KindSelfService = "self_service"
)

// Billing cycles accepted at checkout.
const (
	CycleMonthly = "monthly"
	CycleYearly  = "yearly"
)

// Plan is a recurring membership product with one Stripe price per cycle.
type Plan struct {
	ID                 uint64          `json:"id"`
	Kind               string          `json:"kind"`
	Name               string          `json:"name"`
	Description        string          `json:"description"`
	PriceMonthly       decimal.Decimal `json:"price_monthly"`
	PriceYearly        decimal.Decimal `json:"price_yearly"`
	StripePriceMonthly string          `json:"-"`
	StripePriceYearly  string          `json:"-"`
	Active             bool            `json:"active"`
}

// StripePrice returns the provider price id for the billing cycle.
func (p Plan) StripePrice(cycle string) string {
	if cycle == CycleYearly {
		return p.StripePriceYearly
	}
	return p.StripePriceMonthly
}
