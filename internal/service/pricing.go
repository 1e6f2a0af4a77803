package service

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/carwash-booking/internal/apperr"
	"github.com/iliyamo/carwash-booking/internal/model"
)

// CatalogStore is the catalog read surface used by pricing and checkout.
type CatalogStore interface {
	GetService(ctx context.Context, id uint64) (model.ServicePackage, error)
	GetAddOns(ctx context.Context, ids []uint64) ([]model.AddOn, error)
	GetPlan(ctx context.Context, id uint64) (model.Plan, error)
}

// Quote is the server-computed price of a selection.
type Quote struct {
	Service       model.ServicePackage `json:"service"`
	AddOns        []model.AddOn        `json:"add_ons"`
	TotalPrice    decimal.Decimal      `json:"total_price"`
	TotalDuration int                  `json:"total_duration"`
}

// QuoteFor sums the price and duration of a package and its add-ons.
func QuoteFor(svc model.ServicePackage, addOns []model.AddOn) Quote {
	q := Quote{Service: svc, AddOns: addOns, TotalPrice: svc.Price, TotalDuration: svc.DurationMin}
	if q.AddOns == nil {
		q.AddOns = []model.AddOn{}
	}
	for _, a := range addOns {
		q.TotalPrice = q.TotalPrice.Add(a.Price)
		q.TotalDuration += a.DurationMin
	}
	return q
}

// Pricer quotes selections against the live catalog.
type Pricer struct {
	catalog CatalogStore
}

func NewPricer(catalog CatalogStore) *Pricer { return &Pricer{catalog: catalog} }

// Quote loads the package and add-ons and prices them.  Unknown or
// inactive ids are validation errors; duplicate add-on ids count once.
func (p *Pricer) Quote(ctx context.Context, serviceID uint64, addOnIDs []uint64) (Quote, error) {
	if serviceID == 0 {
		return Quote{}, apperr.Validation("service_id is required")
	}
	svc, err := p.catalog.GetService(ctx, serviceID)
	if err != nil {
		if apperr.KindOf(storeErr(err, "service")) == apperr.KindNotFound {
			return Quote{}, apperr.Validationf("unknown service %d", serviceID)
		}
		return Quote{}, storeErr(err, "service")
	}
	if !svc.Active {
		return Quote{}, apperr.Validationf("service %q is no longer offered", svc.Name)
	}
	ids := dedupe(addOnIDs)
	var addOns []model.AddOn
	if len(ids) > 0 {
		addOns, err = p.catalog.GetAddOns(ctx, ids)
		if err != nil {
			return Quote{}, storeErr(err, "add-on")
		}
		if len(addOns) != len(ids) {
			return Quote{}, apperr.Validation("unknown add-on selected")
		}
		for _, a := range addOns {
			if !a.Active {
				return Quote{}, apperr.Validationf("add-on %q is no longer offered", a.Name)
			}
		}
	}
	return QuoteFor(svc, addOns), nil
}

func dedupe(ids []uint64) []uint64 {
	seen := make(map[uint64]bool, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
