package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/iliyamo/carwash-booking/internal/apperr"
	"github.com/iliyamo/carwash-booking/internal/model"
	"github.com/iliyamo/carwash-booking/internal/payment"
	"github.com/iliyamo/carwash-booking/internal/queue"
)

const providerStripe = "stripe"

// BookingWriter persists paid bookings idempotently.
type BookingWriter interface {
	CreatePaid(ctx context.Context, b *model.Booking, v *model.Vehicle) (bool, error)
}

// SubscriptionWriter mirrors provider memberships.
type SubscriptionWriter interface {
	Upsert(ctx context.Context, s *model.Subscription, vehicleID *uint64) error
	SyncFromProvider(ctx context.Context, stripeSubscriptionID, status string, start, end *time.Time, cancelAtPeriodEnd bool) (int64, error)
}

// EventLog remembers processed webhook events.
type EventLog interface {
	Processed(ctx context.Context, provider, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, provider, eventID, eventType string) error
}

// Notifier queues an email.
type Notifier interface {
	Notify(ctx context.Context, ev queue.NotificationEvent) error
}

// ChangePublisher announces booking changes to connected customers.
type ChangePublisher interface {
	Publish(ctx context.Context, op string, b model.Booking) error
}

// Webhook actions reported in WebhookResult.
const (
	ActionBookingCreated       = "booking_created"
	ActionBookingDuplicate     = "booking_duplicate"
	ActionSubscriptionUpserted = "subscription_upserted"
	ActionSubscriptionSynced   = "subscription_synced"
	ActionAlreadyProcessed     = "already_processed"
	ActionIgnored              = "ignored"
)

// WebhookResult describes what a delivery did.
type WebhookResult struct {
	EventID string
	Type    string
	Action  string
}

// Reconciler applies verified payment events to the store.  It is the
// only writer of bookings and subscriptions.
//
// Errors wrapping payment.ErrSignature mean the delivery was not
// authentic and nothing was written; errors wrapping payment.ErrMalformed
// mean the signed payload could not be interpreted.  Every other error is
// retryable: all writes are idempotent, so a redelivery is safe.
type Reconciler struct {
	gateway  payment.Gateway
	bookings BookingWriter
	subs     SubscriptionWriter
	events   EventLog
	catalog  CatalogStore
	notifier Notifier
	feed     ChangePublisher
	timeout  time.Duration
	log      *zap.Logger
}

// ReconcilerDeps groups the collaborators of a Reconciler.  Notifier and
// Feed are optional.
type ReconcilerDeps struct {
	Gateway       payment.Gateway
	Bookings      BookingWriter
	Subscriptions SubscriptionWriter
	Events        EventLog
	Catalog       CatalogStore
	Notifier      Notifier
	Feed          ChangePublisher
	Timeout       time.Duration
	Log           *zap.Logger
}

func NewReconciler(d ReconcilerDeps) *Reconciler {
	if d.Timeout <= 0 {
		d.Timeout = 10 * time.Second
	}
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	return &Reconciler{
		gateway: d.Gateway, bookings: d.Bookings, subs: d.Subscriptions, events: d.Events,
		catalog: d.Catalog, notifier: d.Notifier, feed: d.Feed, timeout: d.Timeout, log: d.Log,
	}
}

// Handle verifies and applies one webhook delivery.
func (r *Reconciler) Handle(ctx context.Context, payload []byte, signature string) (WebhookResult, error) {
	ev, err := r.gateway.ConstructEvent(payload, signature)
	if err != nil {
		return WebhookResult{}, err
	}
	res := WebhookResult{EventID: ev.ID, Type: ev.Type}
	log := r.log.With(zap.String("event_id", ev.ID), zap.String("event_type", ev.Type))

	if done, err := r.events.Processed(ctx, providerStripe, ev.ID); err != nil {
		log.Warn("webhook dedupe lookup failed", zap.Error(err))
	} else if done {
		res.Action = ActionAlreadyProcessed
		return res, nil
	}

	switch ev.Type {
	case payment.EventCheckoutCompleted:
		s, err := payment.ParseCompletedSession(ev.Object)
		if err != nil {
			return res, err
		}
		switch {
		case s.Metadata["booking"] != "":
			res.Action, err = r.reconcileBooking(ctx, s, log)
		case s.Mode == payment.ModeSubscription:
			res.Action, err = r.reconcileSubscription(ctx, s, log)
		default:
			res.Action = ActionIgnored
		}
		if err != nil {
			return res, err
		}
	case payment.EventSubscriptionUpdated, payment.EventSubscriptionDeleted:
		sub, err := payment.ParseSubscription(ev.Object)
		if err != nil {
			return res, err
		}
		n, err := r.subs.SyncFromProvider(ctx, sub.ID, sub.Status, sub.PeriodStart, sub.PeriodEnd, sub.CancelAtPeriodEnd)
		if err != nil {
			return res, apperr.Persistence("could not update subscription", err)
		}
		if n == 0 {
			log.Info("subscription event for unknown subscription", zap.String("subscription_id", sub.ID))
		}
		res.Action = ActionSubscriptionSynced
	default:
		res.Action = ActionIgnored
		return res, nil
	}

	if err := r.events.MarkProcessed(ctx, providerStripe, ev.ID, ev.Type); err != nil {
		log.Warn("could not record processed webhook", zap.Error(err))
	}
	log.Info("webhook processed", zap.String("action", res.Action))
	return res, nil
}

func malformed(err error) error { return errors.Join(payment.ErrMalformed, err) }

func (r *Reconciler) reconcileBooking(ctx context.Context, s payment.CompletedSession, log *zap.Logger) (string, error) {
	m, err := decodeBookingMeta(s.Metadata["booking"])
	if err != nil {
		return "", malformed(err)
	}
	price, err := decimal.NewFromString(m.Price)
	if err != nil {
		return "", malformed(err)
	}
	total, err := decimal.NewFromString(m.Total)
	if err != nil {
		return "", malformed(err)
	}
	b := model.Booking{
		UserID:            m.UserID,
		VehicleID:         m.VehicleID,
		ServicePackageID:  m.ServiceID,
		ServiceName:       m.ServiceName,
		ServicePrice:      price,
		AddOnIDs:          m.AddOnIDs,
		AppointmentDate:   m.Date,
		AppointmentTime:   m.Time,
		TotalPrice:        total,
		TotalDuration:     m.Duration,
		Status:            model.BookingPending,
		CustomerName:      firstNonEmpty(m.Name, s.CustomerName),
		CustomerEmail:     firstNonEmpty(m.Email, s.CustomerEmail),
		CustomerPhone:     firstNonEmpty(m.Phone, s.CustomerPhone),
		PaymentIntentID:   s.PaymentIntentID,
		CheckoutSessionID: s.ID,
	}
	created, err := r.bookings.CreatePaid(ctx, &b, m.vehicle())
	if err != nil {
		return "", apperr.Persistence("could not record booking", err)
	}
	if !created {
		log.Info("booking already recorded for session", zap.String("session_id", s.ID), zap.Uint64("booking_id", b.ID))
		return ActionBookingDuplicate, nil
	}
	log.Info("booking created", zap.Uint64("booking_id", b.ID), zap.String("session_id", s.ID))

	if r.feed != nil {
		if err := r.feed.Publish(ctx, OpInsert, b); err != nil {
			log.Warn("booking feed publish failed", zap.Error(err))
		}
	}
	if b.CustomerEmail != "" && r.notifier != nil {
		n := queue.NewNotification(queue.KindBookingConfirmation, b.CustomerEmail, b.CustomerName)
		n.Booking = &b
		if err := r.notifier.Notify(ctx, n); err != nil {
			log.Error("booking confirmation not sent", zap.Uint64("booking_id", b.ID), zap.Error(err))
		}
	}
	return ActionBookingCreated, nil
}

func (r *Reconciler) reconcileSubscription(ctx context.Context, s payment.CompletedSession, log *zap.Logger) (string, error) {
	md := s.Metadata
	kind := firstNonEmpty(md["kind"], model.KindPlan)
	if kind != model.KindPlan && kind != model.KindSelfService {
		return "", malformed(errors.New("unknown subscription kind " + kind))
	}
	planID, err := strconv.ParseUint(md["plan_id"], 10, 64)
	if err != nil {
		return "", malformed(err)
	}
	userID, err := optionalID(md["user_id"])
	if err != nil {
		return "", malformed(err)
	}
	vehicleID, err := optionalID(md["vehicle_id"])
	if err != nil {
		return "", malformed(err)
	}
	if s.SubscriptionID == "" {
		return "", malformed(errors.New("session has no subscription"))
	}

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	sub, err := r.gateway.GetSubscription(callCtx, s.SubscriptionID)
	cancel()
	if err != nil {
		return "", apperr.External("could not retrieve subscription", err)
	}
	customerID := firstNonEmpty(s.CustomerID, sub.CustomerID)
	if customerID == "" {
		return "", malformed(errors.New("session has no customer"))
	}
	row := model.Subscription{
		Kind:                 kind,
		UserID:               userID,
		PlanID:               planID,
		BillingCycle:         firstNonEmpty(md["billing_cycle"], model.CycleMonthly),
		StripeCustomerID:     customerID,
		StripeSubscriptionID: sub.ID,
		Status:               sub.Status,
		Price:                sub.UnitAmount,
		CurrentPeriodStart:   sub.PeriodStart,
		CurrentPeriodEnd:     sub.PeriodEnd,
		CancelAtPeriodEnd:    sub.CancelAtPeriodEnd,
	}
	if err := r.subs.Upsert(ctx, &row, vehicleID); err != nil {
		return "", apperr.Persistence("could not record subscription", err)
	}
	log.Info("subscription upserted", zap.Uint64("subscription_id", row.ID), zap.String("customer_id", customerID))

	if s.CustomerEmail != "" && r.notifier != nil {
		planName := "your membership"
		if p, err := r.catalog.GetPlan(ctx, planID); err == nil {
			planName = p.Name
		}
		n := queue.NewNotification(queue.KindMembershipWelcome, s.CustomerEmail, s.CustomerName)
		n.Membership = &queue.Membership{
			Kind: kind, PlanName: planName, BillingCycle: row.BillingCycle,
			Price: row.Price.StringFixed(2), PeriodEnd: row.CurrentPeriodEnd,
		}
		if err := r.notifier.Notify(ctx, n); err != nil {
			log.Error("membership welcome not sent", zap.Uint64("subscription_id", row.ID), zap.Error(err))
		}
	}
	return ActionSubscriptionUpserted, nil
}

func optionalID(s string) (*uint64, error) {
	if s == "" {
		return nil, nil
	}
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
