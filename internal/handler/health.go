package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// Health is the liveness check.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// Readiness checks the database and, when configured, Redis.
type Readiness struct {
	DB    *sql.DB
	Redis *redis.Client
}

func (h *Readiness) Ready(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()
	checks := echo.Map{"database": "ok"}
	status := http.StatusOK
	if err := h.DB.PingContext(ctx); err != nil {
		checks["database"] = err.Error()
		status = http.StatusServiceUnavailable
	}
	if h.Redis == nil {
		checks["redis"] = "disabled"
	} else if err := h.Redis.Ping(ctx).Err(); err != nil {
		checks["redis"] = err.Error()
		status = http.StatusServiceUnavailable
	} else {
		checks["redis"] = "ok"
	}
	return c.JSON(status, checks)
}
