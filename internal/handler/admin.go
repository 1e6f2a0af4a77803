package handler

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/carwash-booking/internal/apperr"
	"github.com/iliyamo/carwash-booking/internal/export"
	"github.com/iliyamo/carwash-booking/internal/notify"
	"github.com/iliyamo/carwash-booking/internal/repository"
	"github.com/iliyamo/carwash-booking/internal/service"
)

// AdminHandler serves booking management, analytics and broadcasts.
type AdminHandler struct {
	Bookings   *service.BookingService
	Analytics  *service.Analytics
	Newsletter *service.Newsletter
	Log        *zap.Logger
}

func bookingFilter(c echo.Context) (repository.BookingFilter, error) {
	f := repository.BookingFilter{Date: c.QueryParam("date"), Status: c.QueryParam("status")}
	if l := c.QueryParam("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 1 {
			return f, apperr.Validation("limit must be a positive number")
		}
		f.Limit = n
	}
	return f, nil
}

// ListBookings filters bookings by date and status.
func (h *AdminHandler) ListBookings(c echo.Context) error {
	f, err := bookingFilter(c)
	if err != nil {
		return fail(c, h.Log, err)
	}
	out, err := h.Bookings.List(c.Request().Context(), f)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminHandler) GetBooking(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	b, err := h.Bookings.Get(c.Request().Context(), id)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, b)
}

type statusReq struct {
	Status string `json:"status" validate:"required,oneof=pending confirmed completed cancelled"`
}

// SetBookingStatus applies an admin status transition.
func (h *AdminHandler) SetBookingStatus(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	var req statusReq
	if err := bind(c, &req); err != nil {
		return fail(c, h.Log, err)
	}
	b, err := h.Bookings.SetStatus(c.Request().Context(), id, req.Status)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, b)
}

// RequestTip emails the customer a tip link for the booking.
func (h *AdminHandler) RequestTip(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	if err := h.Bookings.RequestTip(c.Request().Context(), id); err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusAccepted, echo.Map{"success": true})
}

// ExportBookings streams the filtered bookings as a PDF or Excel file.
func (h *AdminHandler) ExportBookings(c echo.Context) error {
	format := c.QueryParam("type")
	if format == "" {
		format = export.FormatPDF
	}
	if format != export.FormatPDF && format != export.FormatExcel {
		return fail(c, h.Log, apperr.Validation("type must be pdf or excel"))
	}
	f, err := bookingFilter(c)
	if err != nil {
		return fail(c, h.Log, err)
	}
	rows, err := h.Bookings.List(c.Request().Context(), f)
	if err != nil {
		return fail(c, h.Log, err)
	}
	title := "Bookings"
	if f.Date != "" {
		title += " " + f.Date
	}
	var buf bytes.Buffer
	if err := export.Write(&buf, format, title, rows); err != nil {
		return fail(c, h.Log, err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+export.FileName(format, f.Date)+`"`)
	return c.Blob(http.StatusOK, export.ContentType(format), buf.Bytes())
}

// Dashboard returns analytics totals with daily and monthly series.
func (h *AdminHandler) Dashboard(c echo.Context) error {
	d, err := h.Analytics.Dashboard(c.Request().Context())
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, d)
}

// Broadcast emails every subscribed profile in throttled batches.
func (h *AdminHandler) Broadcast(c echo.Context) error {
	var req notify.Broadcast
	if err := bind(c, &req); err != nil {
		return fail(c, h.Log, err)
	}
	report, err := h.Newsletter.Send(c.Request().Context(), req)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "sentTo": report.SentTo, "failed": report.Failed})
}
