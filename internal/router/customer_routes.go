package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/carwash-booking/internal/handler"
	"github.com/iliyamo/carwash-booking/internal/middleware"
)

// registerCustomer mounts the signed-in customer's routes under /v1/my.
// Staff and admins can use them for their own accounts too.
func registerCustomer(e *echo.Echo, h *handler.CustomerHandler, o Options) {
	e.GET("/v1/reviews", h.RecentReviews, o.RateLimit, o.Cache)

	g := e.Group("/v1/my", middleware.JWTAuth(o.JWTSecret))
	g.GET("/bookings", h.MyBookings)
	// The stream is long lived and stays outside the rate limiter.
	g.GET("/bookings/stream", h.Stream)
	g.POST("/bookings/:id/review", h.Review, o.RateLimit)
	g.GET("/subscriptions", h.MySubscriptions)
	g.GET("/vehicles", h.MyVehicles)
}
