package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/iliyamo/carwash-booking/internal/payment"
	"github.com/iliyamo/carwash-booking/internal/service"
)

type stubProcessor struct {
	err     error
	gotBody string
	gotSig  string
}

func (p *stubProcessor) Handle(_ context.Context, payload []byte, sig string) (service.WebhookResult, error) {
	p.gotBody, p.gotSig = string(payload), sig
	return service.WebhookResult{EventID: "evt_1", Type: "checkout.session.completed"}, p.err
}

func TestWebhookStatusCodes(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"processed", nil, http.StatusOK},
		{"bad signature", fmt.Errorf("verify: %w", payment.ErrSignature), http.StatusBadRequest},
		{"malformed event", payment.ErrMalformed, http.StatusNotFound},
		{"store failure", errors.New("deadlock"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := &stubProcessor{err: tc.err}
			e := newEcho()
			e.POST("/api/webhook", (&WebhookHandler{Processor: p, Log: zap.NewNop()}).Stripe)

			rec := do(e, http.MethodPost, "/api/webhook", `{"id":"evt_1"}`, "Stripe-Signature", "t=1,v1=abc")
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, `{"id":"evt_1"}`, p.gotBody)
			assert.Equal(t, "t=1,v1=abc", p.gotSig)
		})
	}
}
