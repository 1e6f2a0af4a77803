package handler

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/carwash-booking/internal/apperr"
	"github.com/iliyamo/carwash-booking/internal/model"
	"github.com/iliyamo/carwash-booking/internal/service"
)

// BookingHandler drives the booking wizard: slots, drafts, quotes and
// hosted checkout for bookings and memberships.
type BookingHandler struct {
	Slots    *service.SlotService
	Pricer   *service.Pricer
	Drafts   *service.DraftStore // nil when Redis is down
	Checkout *service.CheckoutService
	Profiles ProfileStore
	Log      *zap.Logger
}

// AvailableSlots returns the availability of a date.
func (h *BookingHandler) AvailableSlots(c echo.Context) error {
	date := c.QueryParam("date")
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return fail(c, h.Log, apperr.Validation("date must be YYYY-MM-DD"))
	}
	slots, err := h.Slots.Availability(c.Request().Context(), date)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, slots)
}

type quoteReq struct {
	ServiceID uint64   `json:"service_id" validate:"required"`
	AddOnIDs  []uint64 `json:"add_on_ids" validate:"max=10"`
}

// Quote prices a selection.
func (h *BookingHandler) Quote(c echo.Context) error {
	var req quoteReq
	if err := bind(c, &req); err != nil {
		return fail(c, h.Log, err)
	}
	q, err := h.Pricer.Quote(c.Request().Context(), req.ServiceID, req.AddOnIDs)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, q)
}

type draftResp struct {
	Token string                 `json:"token"`
	Draft service.BookingRequest `json:"draft"`
	Quote *service.Quote         `json:"quote,omitempty"`
}

// checkDraft validates the fields a partial draft already carries.
func (h *BookingHandler) checkDraft(c echo.Context) func(service.BookingRequest) error {
	return func(d service.BookingRequest) error {
		v, _ := c.Echo().Validator.(*Validator)
		if d.Date != "" {
			if _, err := time.Parse("2006-01-02", d.Date); err != nil {
				return apperr.Validation("appointment_date must be YYYY-MM-DD")
			}
		}
		if d.Time != "" {
			if _, err := time.Parse("15:04", d.Time); err != nil {
				return apperr.Validation("appointment_time must be HH:MM")
			}
		}
		if d.CustomerEmail != "" && v != nil {
			if err := v.v.Var(d.CustomerEmail, "email"); err != nil {
				return apperr.Validation("customer_email must be a valid email")
			}
		}
		if d.Vehicle != nil && v != nil {
			if err := v.Validate(d.Vehicle); err != nil {
				return err
			}
		}
		if len(d.AddOnIDs) > 10 {
			return apperr.Validation("at most 10 add-ons")
		}
		return nil
	}
}

func draftsUnavailable(c echo.Context) error {
	return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "drafts are unavailable"})
}

// quoteDraft prices a draft once a service is chosen.  Pricing errors are
// left for checkout to report.
func (h *BookingHandler) quoteDraft(ctx context.Context, d service.BookingRequest) *service.Quote {
	if d.ServiceID == 0 {
		return nil
	}
	q, err := h.Pricer.Quote(ctx, d.ServiceID, d.AddOnIDs)
	if err != nil {
		return nil
	}
	return &q
}

// CreateDraft starts a wizard session from an optional partial selection.
func (h *BookingHandler) CreateDraft(c echo.Context) error {
	if h.Drafts == nil {
		return draftsUnavailable(c)
	}
	var d service.BookingRequest
	if err := c.Bind(&d); err != nil {
		return fail(c, h.Log, apperr.Validation("invalid request body"))
	}
	if err := h.checkDraft(c)(d); err != nil {
		return fail(c, h.Log, err)
	}
	token, err := h.Drafts.Create(c.Request().Context(), d)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, draftResp{Token: token, Draft: d, Quote: h.quoteDraft(c.Request().Context(), d)})
}

// GetDraft returns the stored selection with its current quote.
func (h *BookingHandler) GetDraft(c echo.Context) error {
	if h.Drafts == nil {
		return draftsUnavailable(c)
	}
	token := c.Param("token")
	d, err := h.Drafts.Get(c.Request().Context(), token)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, draftResp{Token: token, Draft: d, Quote: h.quoteDraft(c.Request().Context(), d)})
}

// PatchDraft merges a partial JSON update into a draft.
func (h *BookingHandler) PatchDraft(c echo.Context) error {
	if h.Drafts == nil {
		return draftsUnavailable(c)
	}
	patch, err := io.ReadAll(io.LimitReader(c.Request().Body, 64<<10))
	if err != nil || len(patch) == 0 {
		return fail(c, h.Log, apperr.Validation("invalid request body"))
	}
	token := c.Param("token")
	d, err := h.Drafts.Merge(c.Request().Context(), token, patch, h.checkDraft(c))
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, draftResp{Token: token, Draft: d, Quote: h.quoteDraft(c.Request().Context(), d)})
}

func (h *BookingHandler) DeleteDraft(c echo.Context) error {
	if h.Drafts == nil {
		return draftsUnavailable(c)
	}
	if err := h.Drafts.Delete(c.Request().Context(), c.Param("token")); err != nil {
		return fail(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type checkoutReq struct {
	DraftToken string `json:"draft_token"`
	service.BookingRequest
}

// CheckoutBooking starts a payment-mode checkout from a posted selection
// or a stored draft.  Nothing is persisted until the payment webhook.
func (h *BookingHandler) CheckoutBooking(c echo.Context) error {
	var req checkoutReq
	if err := c.Bind(&req); err != nil {
		return fail(c, h.Log, apperr.Validation("invalid request body"))
	}
	sel := req.BookingRequest
	if req.DraftToken != "" {
		if h.Drafts == nil {
			return draftsUnavailable(c)
		}
		d, err := h.Drafts.Get(c.Request().Context(), req.DraftToken)
		if err != nil {
			return fail(c, h.Log, err)
		}
		sel = d
	}
	if err := c.Validate(&sel); err != nil {
		return fail(c, h.Log, err)
	}
	sel.UserID = optionalUser(c)
	res, err := h.Checkout.StartBooking(c.Request().Context(), sel)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, res)
}

// CheckoutPlan starts a subscription checkout for an attended plan.
func (h *BookingHandler) CheckoutPlan(c echo.Context) error {
	return h.checkoutMembership(c, model.KindPlan)
}

// CheckoutSelfService starts a per-vehicle self-service membership.
func (h *BookingHandler) CheckoutSelfService(c echo.Context) error {
	return h.checkoutMembership(c, model.KindSelfService)
}

func (h *BookingHandler) checkoutMembership(c echo.Context, kind string) error {
	uid, err := currentUser(c)
	if err != nil {
		return fail(c, h.Log, err)
	}
	var req service.MembershipRequest
	if err := bind(c, &req); err != nil {
		return fail(c, h.Log, err)
	}
	p, err := h.Profiles.GetByID(c.Request().Context(), uid)
	if err != nil {
		return fail(c, h.Log, apperr.Unauthorized("profile not found"))
	}
	req.UserID, req.Email = uid, p.Email
	res, err := h.Checkout.StartMembership(c.Request().Context(), kind, req)
	if err != nil {
		return fail(c, h.Log, err)
	}
	h.Log.Info("membership checkout started", zap.String("kind", kind), zap.Uint64("user_id", uid))
	return c.JSON(http.StatusOK, res)
}
