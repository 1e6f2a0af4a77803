package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/carwash-booking/internal/handler"
	"github.com/iliyamo/carwash-booking/internal/middleware"
)

// registerBooking mounts the wizard and checkout routes.  Guests may book
// one-time washes; memberships need an account.
func registerBooking(e *echo.Echo, h *handler.BookingHandler, o Options) {
	optional := middleware.OptionalJWT(o.JWTSecret)

	b := e.Group("/v1/booking", o.RateLimit, optional)
	b.GET("/slots", h.AvailableSlots)
	b.POST("/quote", h.Quote)
	b.POST("/drafts", h.CreateDraft)
	b.GET("/drafts/:token", h.GetDraft)
	b.PATCH("/drafts/:token", h.PatchDraft)
	b.DELETE("/drafts/:token", h.DeleteDraft)

	api := e.Group("/api/checkout_sessions", o.RateLimit)
	api.POST("", h.CheckoutBooking, optional)
	api.POST("/plan", h.CheckoutPlan, middleware.JWTAuth(o.JWTSecret))
	api.POST("/self_service", h.CheckoutSelfService, middleware.JWTAuth(o.JWTSecret))
}
