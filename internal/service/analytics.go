package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/carwash-booking/internal/repository"
)

// AnalyticsStore is the read side behind the admin dashboard.
type AnalyticsStore interface {
	Totals(ctx context.Context) (repository.Totals, error)
	BookingsSince(ctx context.Context, since time.Time) ([]repository.Point, error)
	SubscriptionsSince(ctx context.Context, since time.Time) ([]repository.Point, error)
	ProfilesSince(ctx context.Context, since time.Time) ([]repository.Point, error)
}

// Bucket is one column of a dashboard chart.
type Bucket struct {
	Label         string          `json:"label"`
	Bookings      int             `json:"bookings"`
	Revenue       decimal.Decimal `json:"revenue"`
	Subscriptions int             `json:"subscriptions"`
	Signups       int             `json:"signups"`
}

// Dashboard is the analytics payload.
type Dashboard struct {
	Totals  repository.Totals `json:"totals"`
	Daily   []Bucket          `json:"daily"`
	Monthly []Bucket          `json:"monthly"`
}

// Analytics aggregates dashboard figures.  SQL returns raw rows; grouping
// happens here so day boundaries follow the business time zone.
type Analytics struct {
	store AnalyticsStore
	loc   *time.Location
	now   func() time.Time
}

func NewAnalytics(store AnalyticsStore, loc *time.Location) *Analytics {
	if loc == nil {
		loc = time.UTC
	}
	return &Analytics{store: store, loc: loc, now: time.Now}
}

const (
	dailyBuckets   = 7
	monthlyBuckets = 7
)

// Dashboard returns totals plus the last 7 days and the last 7 months,
// oldest bucket first and the current day/month last.
func (a *Analytics) Dashboard(ctx context.Context) (Dashboard, error) {
	now := a.now().In(a.loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, a.loc)
	firstDay := today.AddDate(0, 0, -(dailyBuckets - 1))
	thisMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, a.loc)
	firstMonth := thisMonth.AddDate(0, -(monthlyBuckets - 1), 0)

	totals, err := a.store.Totals(ctx)
	if err != nil {
		return Dashboard{}, storeErr(err, "analytics")
	}
	// firstMonth always precedes firstDay, one query per series covers both.
	since := firstMonth.UTC()
	bookings, err := a.store.BookingsSince(ctx, since)
	if err != nil {
		return Dashboard{}, storeErr(err, "analytics")
	}
	subs, err := a.store.SubscriptionsSince(ctx, since)
	if err != nil {
		return Dashboard{}, storeErr(err, "analytics")
	}
	profiles, err := a.store.ProfilesSince(ctx, since)
	if err != nil {
		return Dashboard{}, storeErr(err, "analytics")
	}

	daily := make([]Bucket, dailyBuckets)
	for i := range daily {
		daily[i] = Bucket{Label: firstDay.AddDate(0, 0, i).Format("Mon"), Revenue: decimal.Zero}
	}
	monthly := make([]Bucket, monthlyBuckets)
	for i := range monthly {
		monthly[i] = Bucket{Label: firstMonth.AddDate(0, i, 0).Format("Jan 2006"), Revenue: decimal.Zero}
	}

	dayIdx := func(t time.Time) int {
		t = t.In(a.loc)
		d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, a.loc)
		if d.Before(firstDay) || d.After(today) {
			return -1
		}
		// Whole calendar days; AddDate keeps DST shifts out of the arithmetic.
		for i := 0; i < dailyBuckets; i++ {
			if firstDay.AddDate(0, 0, i).Equal(d) {
				return i
			}
		}
		return -1
	}
	monthIdx := func(t time.Time) int {
		t = t.In(a.loc)
		i := (t.Year()-firstMonth.Year())*12 + int(t.Month()) - int(firstMonth.Month())
		if i < 0 || i >= monthlyBuckets {
			return -1
		}
		return i
	}

	for _, p := range bookings {
		if i := dayIdx(p.At); i >= 0 {
			daily[i].Bookings++
			daily[i].Revenue = daily[i].Revenue.Add(p.Amount)
		}
		if i := monthIdx(p.At); i >= 0 {
			monthly[i].Bookings++
			monthly[i].Revenue = monthly[i].Revenue.Add(p.Amount)
		}
	}
	for _, p := range subs {
		if i := dayIdx(p.At); i >= 0 {
			daily[i].Subscriptions++
		}
		if i := monthIdx(p.At); i >= 0 {
			monthly[i].Subscriptions++
		}
	}
	for _, p := range profiles {
		if i := dayIdx(p.At); i >= 0 {
			daily[i].Signups++
		}
		if i := monthIdx(p.At); i >= 0 {
			monthly[i].Signups++
		}
	}
	return Dashboard{Totals: totals, Daily: daily, Monthly: monthly}, nil
}
