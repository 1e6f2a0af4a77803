package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/carwash-booking/internal/middleware"
	"github.com/iliyamo/carwash-booking/internal/model"
)

// registerAdmin mounts staff and admin routes.  Bay attendants (STAFF)
// reach the self-service console only.
func registerAdmin(e *echo.Echo, h Handlers, o Options) {
	auth := middleware.JWTAuth(o.JWTSecret)
	admin := middleware.RequireRole(model.RoleAdmin)

	ss := e.Group("/v1/admin/self-service", auth, middleware.RequireRole(model.RoleAdmin, model.RoleStaff))
	ss.GET("/memberships", h.SelfService.ListMemberships)
	ss.GET("/in-bay", h.SelfService.InBay)
	ss.GET("/:subscription_id/vehicles", h.SelfService.Vehicles)
	ss.POST("/:subscription_id/vehicles", h.SelfService.LinkVehicle)
	ss.DELETE("/:subscription_id/vehicles/:vehicle_id", h.SelfService.UnlinkVehicle)
	ss.GET("/:subscription_id/logs", h.SelfService.Logs)
	ss.POST("/:subscription_id/check-in", h.SelfService.CheckIn)
	ss.POST("/logs/:id/check-out", h.SelfService.CheckOut)
	ss.POST("/logs/:id/cancel", h.SelfService.Cancel)

	g := e.Group("/v1/admin", auth, admin)
	g.GET("/services", h.Catalog.AdminServices)
	g.POST("/services", h.Catalog.CreateService)
	g.PUT("/services/:id", h.Catalog.UpdateService)
	g.DELETE("/services/:id", h.Catalog.DeleteService)
	g.GET("/addons", h.Catalog.AdminAddOns)
	g.POST("/addons", h.Catalog.CreateAddOn)
	g.PUT("/addons/:id", h.Catalog.UpdateAddOn)
	g.DELETE("/addons/:id", h.Catalog.DeleteAddOn)

	g.GET("/bookings", h.Admin.ListBookings)
	g.GET("/bookings/:id", h.Admin.GetBooking)
	g.PATCH("/bookings/:id/status", h.Admin.SetBookingStatus)
	g.POST("/bookings/:id/tip-request", h.Admin.RequestTip)
	g.GET("/analytics", h.Admin.Dashboard)
	g.POST("/broadcast", h.Admin.Broadcast)

	// Paths kept for the existing dashboard front end.
	e.GET("/api/bookings/export", h.Admin.ExportBookings, auth, admin)
	e.POST("/api/broadcast", h.Admin.Broadcast, auth, admin)
}
