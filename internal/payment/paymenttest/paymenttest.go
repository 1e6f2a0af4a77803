// Package paymenttest provides a fake payment.Gateway and webhook signing
// helpers for tests.
package paymenttest

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/iliyamo/carwash-booking/internal/payment"
)

// Sign returns a Stripe-Signature header value for payload.
func Sign(payload []byte, secret string, at time.Time) string {
	ts := at.Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", ts)
	mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

// EventJSON wraps object into a webhook event envelope.
func EventJSON(id, typ string, object any) []byte {
	b, err := json.Marshal(map[string]any{
		"id":          id,
		"object":      "event",
		"type":        typ,
		"api_version": "2023-10-16",
		"data":        map[string]any{"object": object},
	})
	if err != nil {
		panic(err)
	}
	return b
}

// Gateway is an in-memory payment.Gateway.  Webhook verification runs the
// real signature check against Secret.
type Gateway struct {
	Secret        string
	Subscriptions map[string]payment.Subscription
	CheckoutErr   error
	SubscribeErr  error

	mu       sync.Mutex
	Requests []payment.CheckoutRequest
}

func NewGateway(secret string) *Gateway {
	return &Gateway{Secret: secret, Subscriptions: map[string]payment.Subscription{}}
}

func (g *Gateway) CreateCheckoutSession(_ context.Context, req payment.CheckoutRequest) (payment.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.CheckoutErr != nil {
		return payment.Session{}, g.CheckoutErr
	}
	g.Requests = append(g.Requests, req)
	id := fmt.Sprintf("cs_test_%d", len(g.Requests))
	return payment.Session{ID: id, URL: "https://checkout.stripe.test/" + id}, nil
}

func (g *Gateway) GetSubscription(_ context.Context, id string) (payment.Subscription, error) {
	if g.SubscribeErr != nil {
		return payment.Subscription{}, g.SubscribeErr
	}
	s, ok := g.Subscriptions[id]
	if !ok {
		return payment.Subscription{}, fmt.Errorf("no such subscription: %s", id)
	}
	return s, nil
}

func (g *Gateway) ConstructEvent(payload []byte, signature string) (payment.Event, error) {
	return payment.NewStripeGateway("sk_test_fake", g.Secret, "usd").ConstructEvent(payload, signature)
}

// LastRequest returns the most recent checkout request.
func (g *Gateway) LastRequest() payment.CheckoutRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.Requests) == 0 {
		return payment.CheckoutRequest{}
	}
	return g.Requests[len(g.Requests)-1]
}
