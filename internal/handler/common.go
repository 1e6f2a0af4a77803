// Package handler holds the echo handlers.  Handlers bind and validate
// input, call one service method and translate apperr kinds to HTTP.
package handler

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/carwash-booking/internal/apperr"
	"github.com/iliyamo/carwash-booking/internal/middleware"
)

// Validator adapts go-playground/validator to echo.  Field names in
// messages use the json tag so they match the request body.
type Validator struct {
	v *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{v: v}
}

func (v *Validator) Validate(i any) error {
	err := v.v.Struct(i)
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		msgs := make([]string, 0, len(ve))
		for _, fe := range ve {
			msgs = append(msgs, fieldMessage(fe))
		}
		return apperr.Validation(strings.Join(msgs, "; "))
	}
	return err
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return fe.Field() + " must be a valid email"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param())
	case "datetime":
		return fmt.Sprintf("%s must match %s", fe.Field(), fe.Param())
	case "min", "max", "gte", "lte":
		return fmt.Sprintf("%s fails %s=%s", fe.Field(), fe.Tag(), fe.Param())
	}
	return fe.Field() + " is invalid"
}

// bind decodes the body into dst and validates it.
func bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return apperr.Validation("invalid request body")
	}
	return c.Validate(dst)
}

// fail writes err as {"error", "request_id"} with the status of its kind.
func fail(c echo.Context, log *zap.Logger, err error) error {
	status := http.StatusInternalServerError
	msg := "internal error"
	var ae *apperr.Error
	if errors.As(err, &ae) {
		msg = ae.Msg
		switch ae.Kind {
		case apperr.KindValidation:
			status = http.StatusBadRequest
		case apperr.KindUnauthorized:
			status = http.StatusUnauthorized
		case apperr.KindNotFound:
			status = http.StatusNotFound
		case apperr.KindConflict:
			status = http.StatusConflict
		case apperr.KindExternalService:
			status = http.StatusBadGateway
		case apperr.KindPersistence, apperr.KindInternal:
			status = http.StatusInternalServerError
		}
	}
	rid := middleware.RequestID(c)
	if status >= 500 && log != nil {
		log.Error("request failed", zap.String("request_id", rid), zap.String("path", c.Path()), zap.Error(err))
	}
	return c.JSON(status, echo.Map{"error": msg, "request_id": rid})
}

// paramID parses a positive numeric path parameter.
func paramID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Validationf("invalid %s", name)
	}
	return id, nil
}

// currentUser returns the authenticated profile id or an Unauthorized
// error.  Routes using it sit behind JWTAuth.
func currentUser(c echo.Context) (uint64, error) {
	id, ok := middleware.UserID(c)
	if !ok {
		return 0, apperr.Unauthorized("login required")
	}
	return id, nil
}

// optionalUser returns the profile id for authenticated callers and nil
// for guests.
func optionalUser(c echo.Context) *uint64 {
	if id, ok := middleware.UserID(c); ok {
		return &id
	}
	return nil
}
