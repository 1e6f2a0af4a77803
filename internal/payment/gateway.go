// Package payment wraps the Stripe API behind a small Gateway interface so
// that the checkout and webhook services can be exercised without network
// access.
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

// Checkout modes.
const (
	ModePayment      = "payment"
	ModeSubscription = "subscription"
)

// Event types the reconciler acts on.
const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
)

// MaxMetadataValue is the provider's limit on a single metadata value.
const MaxMetadataValue = 500

var (
	// ErrSignature marks a webhook whose signature header is missing or
	// does not verify against the endpoint secret.
	ErrSignature = errors.New("webhook signature verification failed")
	// ErrMalformed marks a correctly signed payload that cannot be decoded.
	ErrMalformed = errors.New("malformed webhook payload")
)

// LineItem is one row of a checkout session.  Either PriceID (a recurring
// catalog price) or Name plus UnitAmount (ad hoc, minor units) is set.
type LineItem struct {
	Name       string
	UnitAmount int64
	PriceID    string
	Quantity   int64
}

// CheckoutRequest describes a hosted checkout session.
type CheckoutRequest struct {
	Mode           string
	LineItems      []LineItem
	CustomerEmail  string
	Metadata       map[string]string
	Coupon         string
	SuccessURL     string
	CancelURL      string
	IdempotencyKey string
}

// Session is the part of a created checkout session the caller needs.
type Session struct {
	ID  string
	URL string
}

// Subscription is a provider subscription reduced to the fields mirrored
// in the subscriptions table.
type Subscription struct {
	ID                string
	CustomerID        string
	Status            string
	PeriodStart       *time.Time
	PeriodEnd         *time.Time
	CancelAtPeriodEnd bool
	UnitAmount        decimal.Decimal
	Metadata          map[string]string
}

// Event is a verified webhook event.  Object holds the raw JSON of
// data.object.
type Event struct {
	ID     string
	Type   string
	Object json.RawMessage
}

// Gateway is the subset of the payment provider the service uses.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (Session, error)
	GetSubscription(ctx context.Context, id string) (Subscription, error)
	ConstructEvent(payload []byte, signature string) (Event, error)
}

// StripeGateway implements Gateway with stripe-go.
type StripeGateway struct {
	api           *client.API
	webhookSecret string
	currency      string
}

// NewStripeGateway builds a gateway with its own API client instead of the
// package-level stripe.Key.
func NewStripeGateway(secretKey, webhookSecret, currency string) *StripeGateway {
	api := &client.API{}
	api.Init(secretKey, nil)
	if currency == "" {
		currency = "usd"
	}
	return &StripeGateway{api: api, webhookSecret: webhookSecret, currency: currency}
}

// CreateCheckoutSession creates a hosted checkout session.
func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (Session, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(req.Mode),
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
	}
	params.Context = ctx
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	for _, li := range req.LineItems {
		item := &stripe.CheckoutSessionLineItemParams{Quantity: stripe.Int64(max(li.Quantity, 1))}
		if li.PriceID != "" {
			item.Price = stripe.String(li.PriceID)
		} else {
			item.PriceData = &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(g.currency),
				UnitAmount:  stripe.Int64(li.UnitAmount),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{Name: stripe.String(li.Name)},
			}
		}
		params.LineItems = append(params.LineItems, item)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	if req.Mode == ModeSubscription {
		// Copy metadata onto the subscription so later lifecycle events
		// carry it too.
		params.SubscriptionData = &stripe.CheckoutSessionSubscriptionDataParams{Metadata: req.Metadata}
	}
	if req.Coupon != "" {
		params.Discounts = []*stripe.CheckoutSessionDiscountParams{{Coupon: stripe.String(req.Coupon)}}
	}
	s, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return Session{}, err
	}
	return Session{ID: s.ID, URL: s.URL}, nil
}

// GetSubscription retrieves a subscription by id.
func (g *StripeGateway) GetSubscription(ctx context.Context, id string) (Subscription, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx
	s, err := g.api.Subscriptions.Get(id, params)
	if err != nil {
		return Subscription{}, err
	}
	return fromStripeSubscription(s), nil
}

// ConstructEvent verifies the Stripe-Signature header and decodes the
// event envelope.  Signature problems yield ErrSignature, decoding problems
// of a verified payload yield ErrMalformed.
func (g *StripeGateway) ConstructEvent(payload []byte, signature string) (Event, error) {
	if signature == "" {
		return Event{}, ErrSignature
	}
	ev, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		if isSignatureError(err) {
			return Event{}, errors.Join(ErrSignature, err)
		}
		return Event{}, errors.Join(ErrMalformed, err)
	}
	if ev.Data == nil || len(ev.Data.Raw) == 0 {
		return Event{}, ErrMalformed
	}
	return Event{ID: ev.ID, Type: string(ev.Type), Object: ev.Data.Raw}, nil
}

func isSignatureError(err error) bool {
	return errors.Is(err, webhook.ErrNotSigned) ||
		errors.Is(err, webhook.ErrInvalidHeader) ||
		errors.Is(err, webhook.ErrNoValidSignature) ||
		errors.Is(err, webhook.ErrTooOld)
}

func fromStripeSubscription(s *stripe.Subscription) Subscription {
	out := Subscription{
		ID:                s.ID,
		Status:            string(s.Status),
		PeriodStart:       unixPtr(s.CurrentPeriodStart),
		PeriodEnd:         unixPtr(s.CurrentPeriodEnd),
		CancelAtPeriodEnd: s.CancelAtPeriodEnd,
		Metadata:          s.Metadata,
	}
	if s.Customer != nil {
		out.CustomerID = s.Customer.ID
	}
	if s.Items != nil && len(s.Items.Data) > 0 && s.Items.Data[0].Price != nil {
		out.UnitAmount = FromMinorUnits(s.Items.Data[0].Price.UnitAmount)
	}
	return out
}

// ParseSubscription decodes a subscription object from a lifecycle event.
func ParseSubscription(raw json.RawMessage) (Subscription, error) {
	var s stripe.Subscription
	if err := json.Unmarshal(raw, &s); err != nil || s.ID == "" {
		return Subscription{}, ErrMalformed
	}
	return fromStripeSubscription(&s), nil
}

func unixPtr(sec int64) *time.Time {
	if sec == 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}
