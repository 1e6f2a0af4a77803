package handler

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/carwash-booking/internal/middleware"
	"github.com/iliyamo/carwash-booking/internal/model"
	"github.com/iliyamo/carwash-booking/internal/repository"
	"github.com/iliyamo/carwash-booking/internal/service"
)

// bay holds memberships, vehicles, links and sessions in memory and keeps
// the same guards the SQL store enforces.
type bay struct {
	mu       sync.Mutex
	subs     map[uint64]model.Subscription
	vehicles map[uint64]model.Vehicle
	links    map[uint64]map[uint64]bool
	logs     map[uint64]model.UsageLog
}

func ownedBy(v uint64) *uint64 { return &v }

func newBay() *bay {
	return &bay{
		subs: map[uint64]model.Subscription{
			3: {ID: 3, Kind: model.KindSelfService, UserID: ownedBy(12), Status: "active"},
			4: {ID: 4, Kind: model.KindPlan, UserID: ownedBy(12), Status: "active"},
			5: {ID: 5, Kind: model.KindSelfService, UserID: ownedBy(12), Status: "canceled"},
		},
		vehicles: map[uint64]model.Vehicle{
			9:  {ID: 9, UserID: ownedBy(12), Year: 2021, Make: "Honda", Model: "Civic", BodyType: "sedan"},
			10: {ID: 10, UserID: ownedBy(12), Year: 2019, Make: "Ford", Model: "Ranger", BodyType: "truck"},
			11: {ID: 11, UserID: ownedBy(99), Year: 2020, Make: "Kia", Model: "Soul", BodyType: "hatchback"},
		},
		links: map[uint64]map[uint64]bool{3: {9: true}, 5: {9: true}},
		logs:  map[uint64]model.UsageLog{},
	}
}

type bayUsage struct{ *bay }

func (b bayUsage) CheckIn(_ context.Context, l *model.UsageLog) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.subs[l.SubscriptionID]
	if !ok {
		return repository.ErrNotFound
	}
	if s.Kind != model.KindSelfService || !s.IsActive() {
		return repository.ErrSubscriptionInactive
	}
	if !b.links[l.SubscriptionID][l.VehicleID] {
		return repository.ErrVehicleNotLinked
	}
	for _, x := range b.logs {
		if x.VehicleID == l.VehicleID && x.Status == model.UsageInProgress {
			return repository.ErrVehicleBusy
		}
	}
	l.ID = uint64(len(b.logs) + 1)
	l.UserID = s.UserID
	l.Status = model.UsageInProgress
	b.logs[l.ID] = *l
	return nil
}

func (b bayUsage) Close(_ context.Context, id uint64, status, attendant string, at time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	l, ok := b.logs[id]
	if !ok {
		return repository.ErrNotFound
	}
	if l.Status != model.UsageInProgress {
		return repository.ErrConflict
	}
	l.Status, l.CheckoutAttendantName, l.CheckOutTime = status, attendant, &at
	b.logs[id] = l
	return nil
}

func (b bayUsage) GetByID(_ context.Context, id uint64) (model.UsageLog, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	l, ok := b.logs[id]
	if !ok {
		return l, repository.ErrNotFound
	}
	return l, nil
}

func (b bayUsage) ListBySubscription(_ context.Context, sub uint64, limit int) ([]model.UsageLog, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []model.UsageLog
	for _, l := range b.logs {
		if l.SubscriptionID == sub && len(out) < limit {
			out = append(out, l)
		}
	}
	return out, nil
}

func (b bayUsage) ListInProgress(context.Context) ([]model.UsageLog, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []model.UsageLog
	for _, l := range b.logs {
		if l.Status == model.UsageInProgress {
			out = append(out, l)
		}
	}
	return out, nil
}

type bayVehicles struct{ *bay }

func (b bayVehicles) GetByID(_ context.Context, id uint64) (model.Vehicle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.vehicles[id]
	if !ok {
		return v, repository.ErrNotFound
	}
	return v, nil
}

func (b bayVehicles) Link(_ context.Context, sub, vehicle uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.links[sub] == nil {
		b.links[sub] = map[uint64]bool{}
	}
	b.links[sub][vehicle] = true
	return nil
}

func (b bayVehicles) Unlink(_ context.Context, sub, vehicle uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.links[sub][vehicle] {
		return repository.ErrNotFound
	}
	delete(b.links[sub], vehicle)
	return nil
}

func (b bayVehicles) ListBySubscription(_ context.Context, sub uint64) ([]model.Vehicle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []model.Vehicle
	for id := range b.links[sub] {
		out = append(out, b.vehicles[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (b bayVehicles) ListByUser(_ context.Context, user uint64) ([]model.Vehicle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []model.Vehicle
	for _, v := range b.vehicles {
		if v.UserID != nil && *v.UserID == user {
			out = append(out, v)
		}
	}
	return out, nil
}

type bayMemberships struct{ *bay }

func (b bayMemberships) GetByID(_ context.Context, id uint64) (model.Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.subs[id]
	if !ok {
		return s, repository.ErrNotFound
	}
	return s, nil
}

func (b bayMemberships) ListByKind(_ context.Context, kind string) ([]model.Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []model.Subscription
	for _, s := range b.subs {
		if s.Kind == kind {
			out = append(out, s)
		}
	}
	return out, nil
}

func (b bayMemberships) ListByUser(_ context.Context, user uint64) ([]model.Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []model.Subscription
	for _, s := range b.subs {
		if s.UserID != nil && *s.UserID == user {
			out = append(out, s)
		}
	}
	return out, nil
}

func newSelfServiceServer(t *testing.T) (*echo.Echo, *bay) {
	t.Helper()
	st := newBay()
	h := &SelfServiceHandler{
		Tracker:     service.NewUsageTracker(bayUsage{st}, bayVehicles{st}, zap.NewNop()),
		Memberships: bayMemberships{st},
		Links:       bayVehicles{st},
		Log:         zap.NewNop(),
	}
	e := newEcho()
	ss := e.Group("/v1/admin/self-service", middleware.JWTAuth(testSecret), middleware.RequireRole(model.RoleAdmin, model.RoleStaff))
	ss.GET("/memberships", h.ListMemberships)
	ss.GET("/in-bay", h.InBay)
	ss.GET("/:subscription_id/vehicles", h.Vehicles)
	ss.POST("/:subscription_id/vehicles", h.LinkVehicle)
	ss.DELETE("/:subscription_id/vehicles/:vehicle_id", h.UnlinkVehicle)
	ss.GET("/:subscription_id/logs", h.Logs)
	ss.POST("/:subscription_id/check-in", h.CheckIn)
	ss.POST("/logs/:id/check-out", h.CheckOut)
	ss.POST("/logs/:id/cancel", h.Cancel)
	return e, st
}

const bayPath = "/v1/admin/self-service"

func TestListMemberships(t *testing.T) {
	e, _ := newSelfServiceServer(t)

	rec := do(e, http.MethodGet, bayPath+"/memberships", "", bearerFor(t, 2, model.RoleStaff)...)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[[]model.Subscription](t, rec)
	require.Len(t, got, 2)
	for _, s := range got {
		assert.Equal(t, model.KindSelfService, s.Kind)
	}

	rec = do(e, http.MethodGet, bayPath+"/memberships", "", bearerFor(t, 12, model.RoleCustomer)...)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = do(e, http.MethodGet, bayPath+"/memberships", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCheckInAndOut(t *testing.T) {
	e, _ := newSelfServiceServer(t)
	staff := bearerFor(t, 2, model.RoleStaff)

	rec := do(e, http.MethodPost, bayPath+"/3/check-in", `{"vehicle_id":9,"notes":"  wheels only "}`, staff...)
	require.Equal(t, http.StatusCreated, rec.Code)
	in := decode[model.UsageLog](t, rec)
	assert.Equal(t, model.UsageInProgress, in.Status)
	assert.Equal(t, "Tester", in.AttendantName)
	assert.Equal(t, "wheels only", in.Notes)
	assert.Nil(t, in.CheckOutTime)

	rec = do(e, http.MethodPost, bayPath+"/3/check-in", `{"vehicle_id":9}`, staff...)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(e, http.MethodGet, bayPath+"/in-bay", "", staff...)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.UsageLog](t, rec), 1)

	out := fmt.Sprintf("%s/logs/%d/check-out", bayPath, in.ID)
	rec = do(e, http.MethodPost, out, "", staff...)
	require.Equal(t, http.StatusOK, rec.Code)
	done := decode[model.UsageLog](t, rec)
	assert.Equal(t, model.UsageCompleted, done.Status)
	require.NotNil(t, done.CheckOutTime)
	assert.Equal(t, "Tester", done.CheckoutAttendantName)
	assert.NotEmpty(t, done.Duration)

	rec = do(e, http.MethodPost, out, "", staff...)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "session is not in progress", decode[errBody](t, rec).Error)
	rec = do(e, http.MethodPost, fmt.Sprintf("%s/logs/%d/cancel", bayPath, in.ID), "", staff...)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(e, http.MethodPost, bayPath+"/logs/99/check-out", "", staff...)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(e, http.MethodGet, bayPath+"/3/logs", "", staff...)
	require.Equal(t, http.StatusOK, rec.Code)
	logs := decode[[]model.UsageLog](t, rec)
	require.Len(t, logs, 1)
	assert.Equal(t, model.UsageCompleted, logs[0].Status)
}

func TestCheckInRejected(t *testing.T) {
	e, _ := newSelfServiceServer(t)
	staff := bearerFor(t, 2, model.RoleStaff)

	rec := do(e, http.MethodPost, bayPath+"/3/check-in", `{"vehicle_id":10}`, staff...)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "vehicle is not registered on this membership", decode[errBody](t, rec).Error)

	rec = do(e, http.MethodPost, bayPath+"/3/check-in", `{}`, staff...)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodPost, bayPath+"/5/check-in", `{"vehicle_id":9}`, staff...)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(e, http.MethodPost, bayPath+"/50/check-in", `{"vehicle_id":9}`, staff...)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCancelSession(t *testing.T) {
	e, st := newSelfServiceServer(t)
	staff := bearerFor(t, 2, model.RoleAdmin)

	rec := do(e, http.MethodPost, bayPath+"/3/check-in", `{"vehicle_id":9}`, staff...)
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode[model.UsageLog](t, rec).ID

	rec = do(e, http.MethodPost, fmt.Sprintf("%s/logs/%d/cancel", bayPath, id), "", staff...)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.UsageCancelled, decode[model.UsageLog](t, rec).Status)
	assert.NotNil(t, st.logs[id].CheckOutTime)

	rec = do(e, http.MethodPost, bayPath+"/3/check-in", `{"vehicle_id":9}`, staff...)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestLinkVehicle(t *testing.T) {
	e, st := newSelfServiceServer(t)
	staff := bearerFor(t, 2, model.RoleStaff)

	rec := do(e, http.MethodPost, bayPath+"/3/vehicles", `{"vehicle_id":10}`, staff...)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(e, http.MethodGet, bayPath+"/3/vehicles", "", staff...)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.Vehicle](t, rec), 2)

	cases := []struct {
		name, path, body string
		want             int
		msg              string
	}{
		{"unknown membership", "/50/vehicles", `{"vehicle_id":10}`, http.StatusNotFound, "self-service membership not found"},
		{"plan membership", "/4/vehicles", `{"vehicle_id":10}`, http.StatusNotFound, "self-service membership not found"},
		{"unknown vehicle", "/3/vehicles", `{"vehicle_id":77}`, http.StatusNotFound, "vehicle not found"},
		{"someone else's vehicle", "/3/vehicles", `{"vehicle_id":11}`, http.StatusBadRequest, "vehicle does not belong to the membership owner"},
		{"missing vehicle", "/3/vehicles", `{}`, http.StatusBadRequest, ""},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			rec := do(e, http.MethodPost, bayPath+c.path, c.body, staff...)
			require.Equal(t, c.want, rec.Code)
			if c.msg != "" {
				assert.Equal(t, c.msg, decode[errBody](t, rec).Error)
			}
		})
	}
	assert.False(t, st.links[3][11])
	assert.False(t, st.links[3][77])
}

func TestUnlinkVehicle(t *testing.T) {
	e, _ := newSelfServiceServer(t)
	staff := bearerFor(t, 2, model.RoleStaff)

	rec := do(e, http.MethodDelete, bayPath+"/3/vehicles/9", "", staff...)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(e, http.MethodDelete, bayPath+"/3/vehicles/9", "", staff...)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(e, http.MethodPost, bayPath+"/3/check-in", `{"vehicle_id":9}`, staff...)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
