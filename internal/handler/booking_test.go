package handler

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/carwash-booking/internal/middleware"
	"github.com/iliyamo/carwash-booking/internal/payment"
	"github.com/iliyamo/carwash-booking/internal/payment/paymenttest"
	"github.com/iliyamo/carwash-booking/internal/service"
)

func newBookingServer(t *testing.T, withRedis bool) (*echo.Echo, *paymenttest.Gateway) {
	t.Helper()
	catalog := newMemCatalog()
	gw := paymenttest.NewGateway("whsec_test")
	slots := service.NewSlotService(noBookings{}, time.UTC, false, 1)
	h := &BookingHandler{
		Slots:  slots,
		Pricer: service.NewPricer(catalog),
		Checkout: service.NewCheckoutService(catalog, slots, noVehicles{}, gw,
			service.CheckoutConfig{BaseURL: "https://wash.test/"}, zap.NewNop()),
		Profiles: newMemProfiles(),
		Log:      zap.NewNop(),
	}
	if withRedis {
		mr := miniredis.RunT(t)
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = rdb.Close() })
		h.Drafts = service.NewDraftStore(rdb, time.Minute)
	}

	e := newEcho()
	opt := middleware.OptionalJWT(testSecret)
	e.GET("/v1/booking/slots", h.AvailableSlots)
	e.POST("/v1/booking/quote", h.Quote)
	e.POST("/v1/booking/drafts", h.CreateDraft, opt)
	e.GET("/v1/booking/drafts/:token", h.GetDraft, opt)
	e.PATCH("/v1/booking/drafts/:token", h.PatchDraft, opt)
	e.DELETE("/v1/booking/drafts/:token", h.DeleteDraft, opt)
	e.POST("/api/checkout_sessions", h.CheckoutBooking, opt)
	e.POST("/api/checkout_sessions/plan", h.CheckoutPlan, middleware.JWTAuth(testSecret))
	return e, gw
}

func nextWeek() string { return time.Now().UTC().AddDate(0, 0, 7).Format("2006-01-02") }

const vehicleJSON = `{"year":2021,"make":"Honda","model":"Civic","body_type":"sedan"}`

func TestAvailableSlots(t *testing.T) {
	e, _ := newBookingServer(t, false)

	rec := do(e, http.MethodGet, "/v1/booking/slots?date="+nextWeek(), "")
	require.Equal(t, http.StatusOK, rec.Code)
	slots := decode[[]service.Slot](t, rec)
	require.Len(t, slots, len(service.Slots()))
	assert.Equal(t, "08:00", slots[0].Time)
	assert.False(t, slots[0].Disabled)

	rec = do(e, http.MethodGet, "/v1/booking/slots?date=tomorrow", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQuote(t *testing.T) {
	e, _ := newBookingServer(t, false)
	rec := do(e, http.MethodPost, "/v1/booking/quote", `{"service_id":1,"add_on_ids":[10]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	q := decode[service.Quote](t, rec)
	assert.Equal(t, "40", q.TotalPrice.String())
	assert.Equal(t, 35, q.TotalDuration)

	rec = do(e, http.MethodPost, "/v1/booking/quote", `{"add_on_ids":[10]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckoutBookingAsGuest(t *testing.T) {
	e, gw := newBookingServer(t, false)
	body := fmt.Sprintf(`{"service_id":1,"add_on_ids":[10],"appointment_date":%q,"appointment_time":"10:00",
		"total_price":40,"customer_email":"guest@example.com","vehicle":%s}`, nextWeek(), vehicleJSON)

	rec := do(e, http.MethodPost, "/api/checkout_sessions", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[service.CheckoutResult](t, rec)
	assert.Equal(t, "cs_test_1", res.SessionID)
	assert.Contains(t, res.URL, "cs_test_1")

	req := gw.LastRequest()
	assert.Equal(t, payment.ModePayment, req.Mode)
	assert.Len(t, req.LineItems, 2)
	assert.Equal(t, "guest@example.com", req.CustomerEmail)
	assert.NotEmpty(t, req.Metadata["booking"])
	assert.LessOrEqual(t, len(req.Metadata["booking"]), 500)
	assert.Equal(t, "https://wash.test/booking/success?session_id={CHECKOUT_SESSION_ID}", req.SuccessURL)
}

func TestCheckoutBookingRejections(t *testing.T) {
	past := time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02")
	cases := []struct {
		name string
		body string
	}{
		{"missing vehicle", fmt.Sprintf(`{"service_id":1,"appointment_date":%q,"appointment_time":"10:00"}`, nextWeek())},
		{"past date", fmt.Sprintf(`{"service_id":1,"appointment_date":%q,"appointment_time":"10:00","vehicle":%s}`, past, vehicleJSON)},
		{"off grid time", fmt.Sprintf(`{"service_id":1,"appointment_date":%q,"appointment_time":"10:15","vehicle":%s}`, nextWeek(), vehicleJSON)},
		{"stale total", fmt.Sprintf(`{"service_id":1,"appointment_date":%q,"appointment_time":"10:00","total_price":99,"vehicle":%s}`, nextWeek(), vehicleJSON)},
		{"bad email", fmt.Sprintf(`{"service_id":1,"appointment_date":%q,"appointment_time":"10:00","customer_email":"x","vehicle":%s}`, nextWeek(), vehicleJSON)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e, gw := newBookingServer(t, false)
			rec := do(e, http.MethodPost, "/api/checkout_sessions", tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.Empty(t, gw.Requests)
		})
	}
}

func TestCheckoutBookingUnknownService(t *testing.T) {
	e, _ := newBookingServer(t, false)
	body := fmt.Sprintf(`{"service_id":9,"appointment_date":%q,"appointment_time":"10:00","vehicle":%s}`, nextWeek(), vehicleJSON)
	rec := do(e, http.MethodPost, "/api/checkout_sessions", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "unknown service 9", decode[errBody](t, rec).Error)
}

func TestDraftLifecycle(t *testing.T) {
	e, gw := newBookingServer(t, true)

	rec := do(e, http.MethodPost, "/v1/booking/drafts", `{"vehicle":`+vehicleJSON+`}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[draftResp](t, rec)
	require.NotEmpty(t, created.Token)
	assert.Nil(t, created.Quote)

	path := "/v1/booking/drafts/" + created.Token
	rec = do(e, http.MethodPatch, path, `{"service_id":1,"add_on_ids":[10]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	patched := decode[draftResp](t, rec)
	require.NotNil(t, patched.Quote)
	assert.Equal(t, "40", patched.Quote.TotalPrice.String())
	require.NotNil(t, patched.Draft.Vehicle)
	assert.Equal(t, "Civic", patched.Draft.Vehicle.Model)

	rec = do(e, http.MethodPatch, path, `{"appointment_date":"next tuesday"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodPatch, path, fmt.Sprintf(`{"appointment_date":%q,"appointment_time":"11:30"}`, nextWeek()))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(e, http.MethodGet, path, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "11:30", decode[draftResp](t, rec).Draft.Time)

	rec = do(e, http.MethodPost, "/api/checkout_sessions", `{"draft_token":"`+created.Token+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, gw.LastRequest().LineItems, 2)

	rec = do(e, http.MethodDelete, path, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(e, http.MethodGet, path, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDraftsWithoutRedis(t *testing.T) {
	e, _ := newBookingServer(t, false)
	rec := do(e, http.MethodPost, "/v1/booking/drafts", `{}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCheckoutPlanRequiresLogin(t *testing.T) {
	e, _ := newBookingServer(t, false)
	rec := do(e, http.MethodPost, "/api/checkout_sessions/plan", `{"plan_id":100,"billing_cycle":"monthly"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(e, http.MethodPost, "/api/checkout_sessions/plan", `{"plan_id":100,"billing_cycle":"monthly"}`, bearerFor(t, 99, "CUSTOMER")...)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "token for a profile that no longer exists")
}
