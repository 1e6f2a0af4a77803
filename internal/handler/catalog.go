package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/iliyamo/carwash-booking/internal/apperr"
	"github.com/iliyamo/carwash-booking/internal/middleware"
	"github.com/iliyamo/carwash-booking/internal/model"
	"github.com/iliyamo/carwash-booking/internal/repository"
)

// CatalogRepository is the catalog persistence used by the handlers.
type CatalogRepository interface {
	ListServices(ctx context.Context, activeOnly bool) ([]model.ServicePackage, error)
	GetService(ctx context.Context, id uint64) (model.ServicePackage, error)
	CreateService(ctx context.Context, p *model.ServicePackage) error
	UpdateService(ctx context.Context, p model.ServicePackage) error
	DeactivateService(ctx context.Context, id uint64) error
	ListAddOns(ctx context.Context, activeOnly bool) ([]model.AddOn, error)
	CreateAddOn(ctx context.Context, a *model.AddOn) error
	UpdateAddOn(ctx context.Context, a model.AddOn) error
	DeactivateAddOn(ctx context.Context, id uint64) error
	ListPlans(ctx context.Context, kind string) ([]model.Plan, error)
}

// CatalogHandler serves the public catalog and its admin CRUD.  Writes
// purge the cached public responses.
type CatalogHandler struct {
	Repo        CatalogRepository
	Redis       *redis.Client
	CachePrefix string
	Log         *zap.Logger
}

type catalogItemReq struct {
	Slug        string          `json:"slug" validate:"required,max=64"`
	Name        string          `json:"name" validate:"required,max=120"`
	Description string          `json:"description" validate:"max=1000"`
	Price       decimal.Decimal `json:"price"`
	DurationMin int             `json:"duration_min" validate:"min=0,max=600"`
	Category    string          `json:"category" validate:"max=40"`
	Active      *bool           `json:"active"`
}

func (r catalogItemReq) toPackage() (model.ServicePackage, error) {
	if r.Price.IsNegative() {
		return model.ServicePackage{}, apperr.Validation("price must not be negative")
	}
	cat := strings.ToLower(strings.TrimSpace(r.Category))
	if cat == "" {
		cat = model.CategoryAll
	}
	active := true
	if r.Active != nil {
		active = *r.Active
	}
	return model.ServicePackage{
		Slug:        strings.TrimSpace(r.Slug),
		Name:        strings.TrimSpace(r.Name),
		Description: r.Description,
		Price:       r.Price.Round(2),
		DurationMin: r.DurationMin,
		Category:    cat,
		Active:      active,
	}, nil
}

func catalogErr(err error, what string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperr.NotFound(what + " not found")
	case errors.Is(err, repository.ErrConflict):
		return apperr.Conflict(what + " slug already exists")
	}
	return apperr.Persistence("catalog unavailable", err)
}

func (h *CatalogHandler) purge(c echo.Context) {
	if err := middleware.PurgeCache(c.Request().Context(), h.Redis, h.CachePrefix); err != nil {
		h.Log.Warn("catalog cache purge failed", zap.Error(err))
	}
}

// Services lists active packages for a body type.
func (h *CatalogHandler) Services(c echo.Context) error {
	all, err := h.Repo.ListServices(c.Request().Context(), true)
	if err != nil {
		return fail(c, h.Log, catalogErr(err, "service"))
	}
	body := strings.ToLower(c.QueryParam("body_type"))
	out := make([]model.ServicePackage, 0, len(all))
	for _, s := range all {
		if model.Matches(s.Category, body) {
			out = append(out, s)
		}
	}
	return c.JSON(http.StatusOK, out)
}

// AddOns lists active add-ons for a body type.
func (h *CatalogHandler) AddOns(c echo.Context) error {
	all, err := h.Repo.ListAddOns(c.Request().Context(), true)
	if err != nil {
		return fail(c, h.Log, catalogErr(err, "add-on"))
	}
	body := strings.ToLower(c.QueryParam("body_type"))
	out := make([]model.AddOn, 0, len(all))
	for _, a := range all {
		if model.Matches(a.Category, body) {
			out = append(out, a)
		}
	}
	return c.JSON(http.StatusOK, out)
}

// Plans lists active membership plans, optionally of one kind.
func (h *CatalogHandler) Plans(c echo.Context) error {
	kind := c.QueryParam("kind")
	if kind != "" && kind != model.KindPlan && kind != model.KindSelfService {
		return fail(c, h.Log, apperr.Validationf("unknown plan kind %q", kind))
	}
	out, err := h.Repo.ListPlans(c.Request().Context(), kind)
	if err != nil {
		return fail(c, h.Log, catalogErr(err, "plan"))
	}
	if out == nil {
		out = []model.Plan{}
	}
	return c.JSON(http.StatusOK, out)
}

// AdminServices lists every package, inactive included.
func (h *CatalogHandler) AdminServices(c echo.Context) error {
	out, err := h.Repo.ListServices(c.Request().Context(), false)
	if err != nil {
		return fail(c, h.Log, catalogErr(err, "service"))
	}
	if out == nil {
		out = []model.ServicePackage{}
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CatalogHandler) CreateService(c echo.Context) error {
	var req catalogItemReq
	if err := bind(c, &req); err != nil {
		return fail(c, h.Log, err)
	}
	p, err := req.toPackage()
	if err != nil {
		return fail(c, h.Log, err)
	}
	if err := h.Repo.CreateService(c.Request().Context(), &p); err != nil {
		return fail(c, h.Log, catalogErr(err, "service"))
	}
	h.purge(c)
	return c.JSON(http.StatusCreated, p)
}

func (h *CatalogHandler) UpdateService(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	var req catalogItemReq
	if err := bind(c, &req); err != nil {
		return fail(c, h.Log, err)
	}
	p, err := req.toPackage()
	if err != nil {
		return fail(c, h.Log, err)
	}
	p.ID = id
	if err := h.Repo.UpdateService(c.Request().Context(), p); err != nil {
		return fail(c, h.Log, catalogErr(err, "service"))
	}
	h.purge(c)
	return c.JSON(http.StatusOK, p)
}

// DeleteService deactivates a package.  Rows stay for booking history.
func (h *CatalogHandler) DeleteService(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	if err := h.Repo.DeactivateService(c.Request().Context(), id); err != nil {
		return fail(c, h.Log, catalogErr(err, "service"))
	}
	h.purge(c)
	return c.NoContent(http.StatusNoContent)
}

func (h *CatalogHandler) AdminAddOns(c echo.Context) error {
	out, err := h.Repo.ListAddOns(c.Request().Context(), false)
	if err != nil {
		return fail(c, h.Log, catalogErr(err, "add-on"))
	}
	if out == nil {
		out = []model.AddOn{}
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CatalogHandler) CreateAddOn(c echo.Context) error {
	var req catalogItemReq
	if err := bind(c, &req); err != nil {
		return fail(c, h.Log, err)
	}
	p, err := req.toPackage()
	if err != nil {
		return fail(c, h.Log, err)
	}
	a := model.AddOn(p)
	if err := h.Repo.CreateAddOn(c.Request().Context(), &a); err != nil {
		return fail(c, h.Log, catalogErr(err, "add-on"))
	}
	h.purge(c)
	return c.JSON(http.StatusCreated, a)
}

func (h *CatalogHandler) UpdateAddOn(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	var req catalogItemReq
	if err := bind(c, &req); err != nil {
		return fail(c, h.Log, err)
	}
	p, err := req.toPackage()
	if err != nil {
		return fail(c, h.Log, err)
	}
	a := model.AddOn(p)
	a.ID = id
	if err := h.Repo.UpdateAddOn(c.Request().Context(), a); err != nil {
		return fail(c, h.Log, catalogErr(err, "add-on"))
	}
	h.purge(c)
	return c.JSON(http.StatusOK, a)
}

func (h *CatalogHandler) DeleteAddOn(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	if err := h.Repo.DeactivateAddOn(c.Request().Context(), id); err != nil {
		return fail(c, h.Log, catalogErr(err, "add-on"))
	}
	h.purge(c)
	return c.NoContent(http.StatusNoContent)
}
