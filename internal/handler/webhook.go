package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/carwash-booking/internal/middleware"
	"github.com/iliyamo/carwash-booking/internal/payment"
	"github.com/iliyamo/carwash-booking/internal/service"
)

// maxWebhookBody bounds the payload read before signature verification.
const maxWebhookBody = 1 << 20

// WebhookProcessor verifies and applies a provider event.
type WebhookProcessor interface {
	Handle(ctx context.Context, payload []byte, signature string) (service.WebhookResult, error)
}

// WebhookHandler receives payment provider callbacks.  The provider only
// looks at the status code: 400 for a bad signature, 404 for a signed but
// unreadable event, 500 to request a retry, 200 otherwise.
type WebhookHandler struct {
	Processor WebhookProcessor
	Log       *zap.Logger
}

func (h *WebhookHandler) Stripe(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return c.String(http.StatusBadRequest, "unreadable body")
	}
	sig := c.Request().Header.Get("Stripe-Signature")
	res, err := h.Processor.Handle(c.Request().Context(), body, sig)
	if err != nil {
		log := h.Log.With(zap.String("request_id", middleware.RequestID(c)), zap.Error(err))
		switch {
		case errors.Is(err, payment.ErrSignature):
			log.Warn("webhook signature rejected")
			return c.String(http.StatusBadRequest, "Webhook Error: invalid signature")
		case errors.Is(err, payment.ErrMalformed):
			log.Warn("webhook payload rejected", zap.String("event_id", res.EventID))
			return c.String(http.StatusNotFound, "Webhook Error: malformed event")
		default:
			log.Error("webhook processing failed", zap.String("event_id", res.EventID), zap.String("type", res.Type))
			return c.String(http.StatusInternalServerError, "Webhook Error: processing failed")
		}
	}
	return c.String(http.StatusOK, "ok")
}
