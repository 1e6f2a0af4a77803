// Package router wires handlers and middleware onto echo routes.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/carwash-booking/internal/handler"
	"github.com/iliyamo/carwash-booking/internal/middleware"
)

// Handlers bundles everything the routes need.
type Handlers struct {
	Auth        *handler.AuthHandler
	Catalog     *handler.CatalogHandler
	Booking     *handler.BookingHandler
	Webhook     *handler.WebhookHandler
	Admin       *handler.AdminHandler
	SelfService *handler.SelfServiceHandler
	Customer    *handler.CustomerHandler
	Readiness   *handler.Readiness
}

// Options carries the middleware shared across groups.
type Options struct {
	JWTSecret string
	RateLimit echo.MiddlewareFunc
	Cache     echo.MiddlewareFunc
}

// Register mounts every route.
func Register(e *echo.Echo, h Handlers, o Options) {
	if o.RateLimit == nil {
		o.RateLimit = func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	if o.Cache == nil {
		o.Cache = func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}

	e.GET("/healthz", handler.Health)
	if h.Readiness != nil {
		e.GET("/readyz", h.Readiness.Ready)
	}

	// The provider signs the raw body; nothing may read it before the handler.
	e.POST("/api/webhook", h.Webhook.Stripe)

	registerAuth(e, h.Auth, o)
	registerCatalog(e, h.Catalog, o)
	registerBooking(e, h.Booking, o)
	registerCustomer(e, h.Customer, o)
	registerAdmin(e, h, o)
}

func registerAuth(e *echo.Echo, a *handler.AuthHandler, o Options) {
	g := e.Group("/v1/auth", o.RateLimit)
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout, middleware.OptionalJWT(o.JWTSecret))

	me := e.Group("/v1", middleware.JWTAuth(o.JWTSecret))
	me.GET("/me", a.Me)
	me.PUT("/me/newsletter", a.SetNewsletter)
}

func registerCatalog(e *echo.Echo, h *handler.CatalogHandler, o Options) {
	g := e.Group("/v1/catalog", o.RateLimit, o.Cache)
	g.GET("/services", h.Services)
	g.GET("/addons", h.AddOns)
	g.GET("/plans", h.Plans)
}
