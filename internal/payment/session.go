package payment

import (
	"encoding/json"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v76"
)

// CompletedSession is a checkout.session.completed object reduced to what
// reconciliation reads.
type CompletedSession struct {
	ID              string
	Mode            string
	Metadata        map[string]string
	CustomerID      string
	SubscriptionID  string
	PaymentIntentID string
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	AmountTotal     decimal.Decimal
}

// ParseCompletedSession decodes the session object of a
// checkout.session.completed event.  Expandable references arrive as bare
// ids and are read as such.
func ParseCompletedSession(raw json.RawMessage) (CompletedSession, error) {
	var s stripe.CheckoutSession
	if err := json.Unmarshal(raw, &s); err != nil || s.ID == "" {
		return CompletedSession{}, ErrMalformed
	}
	out := CompletedSession{
		ID:          s.ID,
		Mode:        string(s.Mode),
		Metadata:    s.Metadata,
		AmountTotal: FromMinorUnits(s.AmountTotal),
	}
	if out.Metadata == nil {
		out.Metadata = map[string]string{}
	}
	if s.Customer != nil {
		out.CustomerID = s.Customer.ID
	}
	if s.Subscription != nil {
		out.SubscriptionID = s.Subscription.ID
	}
	if s.PaymentIntent != nil {
		out.PaymentIntentID = s.PaymentIntent.ID
	}
	if d := s.CustomerDetails; d != nil {
		out.CustomerName = d.Name
		out.CustomerEmail = d.Email
		out.CustomerPhone = d.Phone
	}
	if out.CustomerEmail == "" {
		out.CustomerEmail = s.CustomerEmail
	}
	return out, nil
}

// ToMinorUnits converts a currency amount to cents.
func ToMinorUnits(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}

// FromMinorUnits converts cents to a currency amount.
func FromMinorUnits(n int64) decimal.Decimal {
	return decimal.New(n, -2)
}
