package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/carwash-booking/internal/apperr"
	"github.com/iliyamo/carwash-booking/internal/middleware"
	"github.com/iliyamo/carwash-booking/internal/model"
	"github.com/iliyamo/carwash-booking/internal/repository"
	"github.com/iliyamo/carwash-booking/internal/service"
)

// MembershipDirectory looks memberships up for the attendant console.
type MembershipDirectory interface {
	ListByKind(ctx context.Context, kind string) ([]model.Subscription, error)
	GetByID(ctx context.Context, id uint64) (model.Subscription, error)
}

// VehicleLinker attaches vehicles to memberships.
type VehicleLinker interface {
	GetByID(ctx context.Context, id uint64) (model.Vehicle, error)
	Link(ctx context.Context, subscriptionID, vehicleID uint64) error
	Unlink(ctx context.Context, subscriptionID, vehicleID uint64) error
}

// SelfServiceHandler is the attendant console of the self-service bay.
type SelfServiceHandler struct {
	Tracker     *service.UsageTracker
	Memberships MembershipDirectory
	Links       VehicleLinker
	Log         *zap.Logger
}

// ListMemberships lists self-service memberships.
func (h *SelfServiceHandler) ListMemberships(c echo.Context) error {
	out, err := h.Memberships.ListByKind(c.Request().Context(), model.KindSelfService)
	if err != nil {
		return fail(c, h.Log, apperr.Persistence("memberships unavailable", err))
	}
	if out == nil {
		out = []model.Subscription{}
	}
	return c.JSON(http.StatusOK, out)
}

// InBay lists every open session.
func (h *SelfServiceHandler) InBay(c echo.Context) error {
	out, err := h.Tracker.InBay(c.Request().Context())
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *SelfServiceHandler) Vehicles(c echo.Context) error {
	sub, err := paramID(c, "subscription_id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	out, err := h.Tracker.Vehicles(c.Request().Context(), sub)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, out)
}

type linkReq struct {
	VehicleID uint64 `json:"vehicle_id" validate:"required"`
}

// LinkVehicle registers one of the owner's vehicles on a self-service
// membership.
func (h *SelfServiceHandler) LinkVehicle(c echo.Context) error {
	sub, err := paramID(c, "subscription_id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	var req linkReq
	if err := bind(c, &req); err != nil {
		return fail(c, h.Log, err)
	}
	ctx := c.Request().Context()
	m, err := h.Memberships.GetByID(ctx, sub)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && m.Kind != model.KindSelfService) {
		return fail(c, h.Log, apperr.NotFound("self-service membership not found"))
	}
	if err != nil {
		return fail(c, h.Log, apperr.Persistence("membership unavailable", err))
	}
	v, err := h.Links.GetByID(ctx, req.VehicleID)
	if errors.Is(err, repository.ErrNotFound) {
		return fail(c, h.Log, apperr.NotFound("vehicle not found"))
	}
	if err != nil {
		return fail(c, h.Log, apperr.Persistence("vehicle unavailable", err))
	}
	if m.UserID == nil || v.UserID == nil || *m.UserID != *v.UserID {
		return fail(c, h.Log, apperr.Validation("vehicle does not belong to the membership owner"))
	}
	if err := h.Links.Link(ctx, sub, req.VehicleID); err != nil {
		return fail(c, h.Log, apperr.Persistence("could not link vehicle", err))
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *SelfServiceHandler) UnlinkVehicle(c echo.Context) error {
	sub, err := paramID(c, "subscription_id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	vid, err := paramID(c, "vehicle_id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	if err := h.Links.Unlink(c.Request().Context(), sub, vid); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(c, h.Log, apperr.NotFound("vehicle is not linked"))
		}
		return fail(c, h.Log, apperr.Persistence("could not unlink vehicle", err))
	}
	return c.NoContent(http.StatusNoContent)
}

// Logs returns the recent sessions of a membership.
func (h *SelfServiceHandler) Logs(c echo.Context) error {
	sub, err := paramID(c, "subscription_id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	limit := 50
	if l, err := strconv.Atoi(c.QueryParam("limit")); err == nil && l > 0 && l <= 500 {
		limit = l
	}
	out, err := h.Tracker.Logs(c.Request().Context(), sub, limit)
	if err != nil {
		return fail(c, h.Log, err)
	}
	if out == nil {
		out = []model.UsageLog{}
	}
	return c.JSON(http.StatusOK, out)
}

type checkInReq struct {
	VehicleID uint64 `json:"vehicle_id" validate:"required"`
	Notes     string `json:"notes" validate:"max=500"`
}

// CheckIn opens a session under the acting attendant's name.
func (h *SelfServiceHandler) CheckIn(c echo.Context) error {
	sub, err := paramID(c, "subscription_id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	var req checkInReq
	if err := bind(c, &req); err != nil {
		return fail(c, h.Log, err)
	}
	l, err := h.Tracker.CheckIn(c.Request().Context(), sub, req.VehicleID, middleware.Name(c), strings.TrimSpace(req.Notes))
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, l)
}

func (h *SelfServiceHandler) CheckOut(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	l, err := h.Tracker.CheckOut(c.Request().Context(), id, middleware.Name(c))
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, l)
}

func (h *SelfServiceHandler) Cancel(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	l, err := h.Tracker.Cancel(c.Request().Context(), id, middleware.Name(c))
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, l)
}
