package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/carwash-booking/internal/apperr"
	"github.com/iliyamo/carwash-booking/internal/model"
	"github.com/iliyamo/carwash-booking/internal/payment"
)

// VehicleReader loads vehicles for ownership checks.
type VehicleReader interface {
	GetByID(ctx context.Context, id uint64) (model.Vehicle, error)
}

// CheckoutConfig holds redirect URLs and discount settings.
type CheckoutConfig struct {
	BaseURL          string
	FlockCoupon      string
	FlockMinVehicles int
	Timeout          time.Duration
}

// CheckoutService starts hosted checkouts.  It never writes to the store:
// bookings and memberships only come into existence when the provider
// reports a completed payment.
type CheckoutService struct {
	pricer   *Pricer
	catalog  CatalogStore
	slots    *SlotService
	vehicles VehicleReader
	gateway  payment.Gateway
	cfg      CheckoutConfig
	log      *zap.Logger
}

func NewCheckoutService(catalog CatalogStore, slots *SlotService, vehicles VehicleReader, gateway payment.Gateway, cfg CheckoutConfig, log *zap.Logger) *CheckoutService {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.FlockMinVehicles < 2 {
		cfg.FlockMinVehicles = 2
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &CheckoutService{
		pricer: NewPricer(catalog), catalog: catalog, slots: slots, vehicles: vehicles,
		gateway: gateway, cfg: cfg, log: log,
	}
}

// CheckoutResult is returned to the browser for the redirect.
type CheckoutResult struct {
	URL       string `json:"url"`
	SessionID string `json:"session_id"`
	Quote     *Quote `json:"quote,omitempty"`
}

// StartBooking prices a one-time booking against the catalog and creates
// a payment-mode checkout session carrying the selection in metadata.
// Client supplied totals must match the server quote.
func (s *CheckoutService) StartBooking(ctx context.Context, req BookingRequest) (CheckoutResult, error) {
	if req.Vehicle == nil && req.VehicleID == nil {
		return CheckoutResult{}, apperr.Validation("vehicle is required")
	}
	if req.VehicleID != nil {
		v, err := s.vehicles.GetByID(ctx, *req.VehicleID)
		if err != nil {
			return CheckoutResult{}, storeErr(err, "vehicle")
		}
		if v.UserID != nil && (req.UserID == nil || *v.UserID != *req.UserID) {
			return CheckoutResult{}, apperr.NotFound("vehicle not found")
		}
	}
	q, err := s.pricer.Quote(ctx, req.ServiceID, req.AddOnIDs)
	if err != nil {
		return CheckoutResult{}, err
	}
	if req.TotalPrice != nil && !req.TotalPrice.Equal(q.TotalPrice) {
		return CheckoutResult{}, apperr.Validationf("total price changed to %s, please review your booking", q.TotalPrice.StringFixed(2))
	}
	if req.TotalDuration != nil && *req.TotalDuration != q.TotalDuration {
		return CheckoutResult{}, apperr.Validation("total duration changed, please review your booking")
	}
	if err := s.slots.Bookable(ctx, req.Date, req.Time); err != nil {
		return CheckoutResult{}, err
	}
	meta, err := encodeBookingMeta(req, q)
	if err != nil {
		return CheckoutResult{}, err
	}

	items := []payment.LineItem{{Name: q.Service.Name, UnitAmount: payment.ToMinorUnits(q.Service.Price), Quantity: 1}}
	for _, a := range q.AddOns {
		items = append(items, payment.LineItem{Name: a.Name, UnitAmount: payment.ToMinorUnits(a.Price), Quantity: 1})
	}
	sess, err := s.create(ctx, payment.CheckoutRequest{
		Mode:          payment.ModePayment,
		LineItems:     items,
		CustomerEmail: strings.TrimSpace(req.CustomerEmail),
		Metadata:      map[string]string{"booking": meta},
		SuccessURL:    s.cfg.BaseURL + "/booking/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:     s.cfg.BaseURL + "/booking/confirmation",
	})
	if err != nil {
		return CheckoutResult{}, err
	}
	return CheckoutResult{URL: sess.URL, SessionID: sess.ID, Quote: &q}, nil
}

// MembershipRequest starts a plan or self-service membership.
type MembershipRequest struct {
	UserID       uint64  `json:"-"`
	Email        string  `json:"-"`
	PlanID       uint64  `json:"plan_id" validate:"required"`
	BillingCycle string  `json:"billing_cycle" validate:"required,oneof=monthly yearly"`
	VehicleID    *uint64 `json:"vehicle_id,omitempty"`
	VehicleCount int     `json:"vehicle_count,omitempty" validate:"omitempty,min=1,max=50"`
}

// StartMembership creates a subscription-mode checkout for a plan of the
// given kind.  Self-service memberships are billed per vehicle; the flock
// coupon applies from the configured vehicle count upwards.
func (s *CheckoutService) StartMembership(ctx context.Context, kind string, req MembershipRequest) (CheckoutResult, error) {
	plan, err := s.catalog.GetPlan(ctx, req.PlanID)
	if err != nil {
		return CheckoutResult{}, storeErr(err, "plan")
	}
	if !plan.Active || plan.Kind != kind {
		return CheckoutResult{}, apperr.Validation("plan is not available for this membership")
	}
	price := plan.StripePrice(req.BillingCycle)
	if price == "" {
		return CheckoutResult{}, apperr.Validationf("plan has no %s price", req.BillingCycle)
	}
	if req.VehicleID != nil {
		v, err := s.vehicles.GetByID(ctx, *req.VehicleID)
		if err != nil {
			return CheckoutResult{}, storeErr(err, "vehicle")
		}
		if v.UserID == nil || *v.UserID != req.UserID {
			return CheckoutResult{}, apperr.NotFound("vehicle not found")
		}
	}

	qty := int64(1)
	if kind == model.KindSelfService && req.VehicleCount > 1 {
		qty = int64(req.VehicleCount)
	}
	md := map[string]string{
		"kind":          kind,
		"plan_id":       strconv.FormatUint(plan.ID, 10),
		"billing_cycle": req.BillingCycle,
		"user_id":       strconv.FormatUint(req.UserID, 10),
		"vehicle_count": strconv.FormatInt(qty, 10),
	}
	if req.VehicleID != nil {
		md["vehicle_id"] = strconv.FormatUint(*req.VehicleID, 10)
	}
	cr := payment.CheckoutRequest{
		Mode:          payment.ModeSubscription,
		LineItems:     []payment.LineItem{{PriceID: price, Quantity: qty}},
		CustomerEmail: req.Email,
		Metadata:      md,
		SuccessURL:    s.cfg.BaseURL + "/membership/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:     s.cfg.BaseURL + "/membership",
	}
	if kind == model.KindSelfService && s.cfg.FlockCoupon != "" && int(qty) >= s.cfg.FlockMinVehicles {
		cr.Coupon = s.cfg.FlockCoupon
	}
	sess, err := s.create(ctx, cr)
	if err != nil {
		return CheckoutResult{}, err
	}
	return CheckoutResult{URL: sess.URL, SessionID: sess.ID}, nil
}

func (s *CheckoutService) create(ctx context.Context, req payment.CheckoutRequest) (payment.Session, error) {
	req.IdempotencyKey = uuid.NewString()
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()
	sess, err := s.gateway.CreateCheckoutSession(ctx, req)
	if err != nil {
		s.log.Error("checkout session failed", zap.String("mode", req.Mode), zap.Error(err))
		return payment.Session{}, apperr.External("Checkout session failed", err)
	}
	s.log.Info("checkout session created", zap.String("mode", req.Mode), zap.String("session_id", sess.ID))
	return sess, nil
}
