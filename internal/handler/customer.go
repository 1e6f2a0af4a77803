package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/carwash-booking/internal/apperr"
	"github.com/iliyamo/carwash-booking/internal/model"
	"github.com/iliyamo/carwash-booking/internal/repository"
	"github.com/iliyamo/carwash-booking/internal/service"
)

// SubscriptionLister lists a user's memberships.
type SubscriptionLister interface {
	ListByUser(ctx context.Context, userID uint64) ([]model.Subscription, error)
}

// VehicleLister lists a user's vehicles.
type VehicleLister interface {
	ListByUser(ctx context.Context, userID uint64) ([]model.Vehicle, error)
}

// ChangeFeed streams booking changes of one user.
type ChangeFeed interface {
	LastSeq(ctx context.Context, userID uint64) (int64, error)
	Subscribe(ctx context.Context, userID uint64) (<-chan service.BookingChange, error)
}

// CustomerHandler serves the signed-in customer's own data.
type CustomerHandler struct {
	Bookings      *service.BookingService
	Subscriptions SubscriptionLister
	Vehicles      VehicleLister
	Reviews       *service.ReviewService
	Feed          ChangeFeed // nil when Redis is down
	Heartbeat     time.Duration
	Log           *zap.Logger
}

func (h *CustomerHandler) MyBookings(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return fail(c, h.Log, err)
	}
	out, err := h.Bookings.List(c.Request().Context(), repository.BookingFilter{UserID: uid, Status: c.QueryParam("status")})
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CustomerHandler) MySubscriptions(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return fail(c, h.Log, err)
	}
	out, err := h.Subscriptions.ListByUser(c.Request().Context(), uid)
	if err != nil {
		return fail(c, h.Log, apperr.Persistence("memberships unavailable", err))
	}
	if out == nil {
		out = []model.Subscription{}
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CustomerHandler) MyVehicles(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return fail(c, h.Log, err)
	}
	out, err := h.Vehicles.ListByUser(c.Request().Context(), uid)
	if err != nil {
		return fail(c, h.Log, apperr.Persistence("vehicles unavailable", err))
	}
	if out == nil {
		out = []model.Vehicle{}
	}
	return c.JSON(http.StatusOK, out)
}

type reviewReq struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=2000"`
}

// Review rates one of the caller's completed bookings.
func (h *CustomerHandler) Review(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return fail(c, h.Log, err)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	var req reviewReq
	if err := bind(c, &req); err != nil {
		return fail(c, h.Log, err)
	}
	rv, err := h.Reviews.Submit(c.Request().Context(), uid, id, req.Rating, req.Comment)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, rv)
}

// RecentReviews is public.
func (h *CustomerHandler) RecentReviews(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	out, err := h.Reviews.Recent(c.Request().Context(), limit)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, out)
}

// Stream pushes the caller's booking changes as server-sent events.  The
// first event carries the current sequence number; every later event
// carries seq as its id so clients can spot gaps and reload.
func (h *CustomerHandler) Stream(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return fail(c, h.Log, err)
	}
	if h.Feed == nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "live updates are unavailable"})
	}
	ctx := c.Request().Context()
	changes, err := h.Feed.Subscribe(ctx, uid)
	if err != nil {
		return fail(c, h.Log, apperr.Persistence("live updates are unavailable", err))
	}
	seq, err := h.Feed.LastSeq(ctx, uid)
	if err != nil {
		return fail(c, h.Log, apperr.Persistence("live updates are unavailable", err))
	}

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set(echo.HeaderCacheControl, "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if err := writeEvent(w, "hello", seq, echo.Map{"seq": seq}); err != nil {
		return nil
	}

	beat := h.Heartbeat
	if beat <= 0 {
		beat = 25 * time.Second
	}
	ticker := time.NewTicker(beat)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ch, ok := <-changes:
			if !ok {
				return nil
			}
			if err := writeEvent(w, "booking", ch.Seq, ch); err != nil {
				return nil
			}
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return nil
			}
			w.Flush()
		}
	}
}

func writeEvent(w *echo.Response, name string, id int64, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", id, name, data); err != nil {
		return err
	}
	w.Flush()
	return nil
}
