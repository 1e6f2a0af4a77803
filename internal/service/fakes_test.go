package service

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/carwash-booking/internal/model"
	"github.com/iliyamo/carwash-booking/internal/queue"
	"github.com/iliyamo/carwash-booking/internal/repository"
)

type fakeCatalog struct {
	services map[uint64]model.ServicePackage
	addOns   map[uint64]model.AddOn
	plans    map[uint64]model.Plan
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		services: map[uint64]model.ServicePackage{
			1: {ID: 1, Slug: "basic-wash", Name: "Basic Wash", Price: decimal.NewFromInt(20), DurationMin: 20, Category: "all", Active: true},
			2: {ID: 2, Slug: "retired", Name: "Retired Wash", Price: decimal.NewFromInt(15), DurationMin: 15, Active: false},
		},
		addOns: map[uint64]model.AddOn{
			10: {ID: 10, Slug: "wax", Name: "Wax", Price: decimal.NewFromInt(10), DurationMin: 10, Active: true},
			11: {ID: 11, Slug: "tire-shine", Name: "Tire Shine", Price: decimal.RequireFromString("4.50"), DurationMin: 5, Active: true},
		},
		plans: map[uint64]model.Plan{
			100: {ID: 100, Kind: model.KindPlan, Name: "Unlimited Basic", PriceMonthly: decimal.NewFromInt(30), StripePriceMonthly: "price_plan_m", StripePriceYearly: "price_plan_y", Active: true},
			200: {ID: 200, Kind: model.KindSelfService, Name: "Self-Service Bay", PriceMonthly: decimal.NewFromInt(35), StripePriceMonthly: "price_ss_m", Active: true},
		},
	}
}

func (c *fakeCatalog) GetService(_ context.Context, id uint64) (model.ServicePackage, error) {
	s, ok := c.services[id]
	if !ok {
		return s, repository.ErrNotFound
	}
	return s, nil
}

func (c *fakeCatalog) GetAddOns(_ context.Context, ids []uint64) ([]model.AddOn, error) {
	var out []model.AddOn
	for _, id := range ids {
		if a, ok := c.addOns[id]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func (c *fakeCatalog) GetPlan(_ context.Context, id uint64) (model.Plan, error) {
	p, ok := c.plans[id]
	if !ok {
		return p, repository.ErrNotFound
	}
	return p, nil
}

type fakeSlotCounter map[string]int

func (f fakeSlotCounter) CountBySlot(context.Context, string) (map[string]int, error) { return f, nil }

type fakeVehicles map[uint64]model.Vehicle

func (f fakeVehicles) GetByID(_ context.Context, id uint64) (model.Vehicle, error) {
	v, ok := f[id]
	if !ok {
		return v, repository.ErrNotFound
	}
	return v, nil
}

func (f fakeVehicles) ListBySubscription(context.Context, uint64) ([]model.Vehicle, error) {
	var out []model.Vehicle
	for _, v := range f {
		out = append(out, v)
	}
	return out, nil
}

// fakeBookingStore mimics the unique checkout_session_id key.
type fakeBookingStore struct {
	mu       sync.Mutex
	rows     []model.Booking
	vehicles []model.Vehicle
	err      error
}

func (s *fakeBookingStore) CreatePaid(_ context.Context, b *model.Booking, v *model.Vehicle) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	for _, r := range s.rows {
		if r.CheckoutSessionID == b.CheckoutSessionID {
			*b = r
			return false, nil
		}
	}
	if v != nil {
		v.ID = uint64(len(s.vehicles) + 1)
		s.vehicles = append(s.vehicles, *v)
		b.VehicleID = &v.ID
	}
	b.ID = uint64(len(s.rows) + 1)
	s.rows = append(s.rows, *b)
	return true, nil
}

func (s *fakeBookingStore) GetByID(_ context.Context, id uint64) (model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rows {
		if r.ID == id {
			return r, nil
		}
	}
	return model.Booking{}, repository.ErrNotFound
}

func (s *fakeBookingStore) List(_ context.Context, f repository.BookingFilter) ([]model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Booking
	for _, r := range s.rows {
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *fakeBookingStore) UpdateStatus(_ context.Context, id uint64, from, to string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.rows {
		if r.ID == id {
			if r.Status != from {
				return repository.ErrConflict
			}
			s.rows[i].Status = to
			return nil
		}
	}
	return repository.ErrConflict
}

// fakeSubscriptionStore keys rows on (kind, customer) like the unique index.
type fakeSubscriptionStore struct {
	mu    sync.Mutex
	rows  []model.Subscription
	links map[[2]uint64]bool
	err   error
}

func newFakeSubscriptionStore() *fakeSubscriptionStore {
	return &fakeSubscriptionStore{links: map[[2]uint64]bool{}}
}

func (s *fakeSubscriptionStore) Upsert(_ context.Context, sub *model.Subscription, vehicleID *uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	idx := -1
	for i, r := range s.rows {
		if r.Kind == sub.Kind && r.StripeCustomerID == sub.StripeCustomerID {
			idx = i
		}
	}
	if idx < 0 {
		sub.ID = uint64(len(s.rows) + 1)
		s.rows = append(s.rows, *sub)
	} else {
		sub.ID = s.rows[idx].ID
		s.rows[idx] = *sub
	}
	if vehicleID != nil {
		s.links[[2]uint64{sub.ID, *vehicleID}] = true
	}
	return nil
}

func (s *fakeSubscriptionStore) SyncFromProvider(_ context.Context, id, status string, start, end *time.Time, cancel bool) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for i, r := range s.rows {
		if r.StripeSubscriptionID == id {
			s.rows[i].Status = status
			s.rows[i].CurrentPeriodStart = start
			s.rows[i].CurrentPeriodEnd = end
			s.rows[i].CancelAtPeriodEnd = cancel
			n++
		}
	}
	return n, nil
}

type fakeEventLog struct {
	mu   sync.Mutex
	seen map[string]string
}

func newFakeEventLog() *fakeEventLog { return &fakeEventLog{seen: map[string]string{}} }

func (l *fakeEventLog) Processed(_ context.Context, provider, id string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.seen[provider+":"+id]
	return ok, nil
}

func (l *fakeEventLog) MarkProcessed(_ context.Context, provider, id, typ string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seen[provider+":"+id] = typ
	return nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []queue.NotificationEvent
}

func (n *fakeNotifier) Notify(_ context.Context, ev queue.NotificationEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return nil
}

type fakeFeed struct {
	changes []BookingChange
}

func (f *fakeFeed) Publish(_ context.Context, op string, b model.Booking) error {
	f.changes = append(f.changes, BookingChange{Seq: int64(len(f.changes) + 1), Op: op, Booking: b})
	return nil
}

func ptr[T any](v T) *T { return &v }
