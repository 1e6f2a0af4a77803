package handler

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/carwash-booking/internal/model"
	"github.com/iliyamo/carwash-booking/internal/repository"
	"github.com/iliyamo/carwash-booking/internal/utils"
)

const testSecret = "handler-test-secret"

func newEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

// do sends a JSON request through e and returns the recorder.
func do(e *echo.Echo, method, path, body string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func bearerFor(t *testing.T, id uint64, role string) []string {
	t.Helper()
	tok, err := utils.NewAccessToken(testSecret, id, role, "Tester", 15)
	require.NoError(t, err)
	return []string{echo.HeaderAuthorization, "Bearer " + tok.Token}
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type errBody struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id"`
}

type memProfiles struct {
	mu   sync.Mutex
	rows map[uint64]model.Profile
}

func newMemProfiles() *memProfiles { return &memProfiles{rows: map[uint64]model.Profile{}} }

func (m *memProfiles) Create(_ context.Context, p model.Profile, password string, cost int) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.Email == p.Email {
			return 0, repository.ErrEmailExists
		}
	}
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	p.ID = uint64(len(m.rows) + 1)
	p.PasswordHash = hash
	m.rows[p.ID] = p
	return p.ID, nil
}

func (m *memProfiles) GetByEmail(_ context.Context, email string) (model.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.Email == strings.ToLower(email) {
			return r, nil
		}
	}
	return model.Profile{}, repository.ErrNotFound
}

func (m *memProfiles) GetByID(_ context.Context, id uint64) (model.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[id]
	if !ok {
		return p, repository.ErrNotFound
	}
	return p, nil
}

func (m *memProfiles) SetSubscribed(_ context.Context, id uint64, subscribed bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.Subscribed = subscribed
	m.rows[id] = p
	return nil
}

type memTokens struct {
	mu      sync.Mutex
	owner   map[string]uint64
	revoked map[string]bool
}

func newMemTokens() *memTokens {
	return &memTokens{owner: map[string]uint64{}, revoked: map[string]bool{}}
}

func (m *memTokens) StoreRefresh(_ context.Context, userID uint64, hash string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.owner[hash] = userID
	return nil
}

func (m *memTokens) ValidateRefresh(_ context.Context, hash string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	uid, ok := m.owner[hash]
	if !ok || m.revoked[hash] {
		return 0, repository.ErrNotFound
	}
	return uid, nil
}

func (m *memTokens) RevokeByHash(_ context.Context, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[hash] = true
	return nil
}

func (m *memTokens) RevokeAllForUser(_ context.Context, userID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for h, uid := range m.owner {
		if uid == userID {
			m.revoked[h] = true
		}
	}
	return nil
}

type memCatalog struct {
	services map[uint64]model.ServicePackage
	addOns   map[uint64]model.AddOn
	plans    map[uint64]model.Plan
}

func newMemCatalog() *memCatalog {
	return &memCatalog{
		services: map[uint64]model.ServicePackage{
			1: {ID: 1, Slug: "express", Name: "Express Wash", Price: decimal.NewFromInt(25), DurationMin: 20, Category: "all", Active: true},
		},
		addOns: map[uint64]model.AddOn{
			10: {ID: 10, Slug: "wax", Name: "Hand Wax", Price: decimal.NewFromInt(15), DurationMin: 15, Category: "all", Active: true},
		},
		plans: map[uint64]model.Plan{
			100: {ID: 100, Kind: model.KindPlan, Name: "Unlimited", PriceMonthly: decimal.NewFromInt(30), StripePriceMonthly: "price_m", Active: true},
		},
	}
}

func (c *memCatalog) GetService(_ context.Context, id uint64) (model.ServicePackage, error) {
	s, ok := c.services[id]
	if !ok {
		return s, repository.ErrNotFound
	}
	return s, nil
}

func (c *memCatalog) GetAddOns(_ context.Context, ids []uint64) ([]model.AddOn, error) {
	var out []model.AddOn
	for _, id := range ids {
		if a, ok := c.addOns[id]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func (c *memCatalog) GetPlan(_ context.Context, id uint64) (model.Plan, error) {
	p, ok := c.plans[id]
	if !ok {
		return p, repository.ErrNotFound
	}
	return p, nil
}

type noBookings struct{}

func (noBookings) CountBySlot(context.Context, string) (map[string]int, error) {
	return map[string]int{}, nil
}

type noVehicles struct{}

func (noVehicles) GetByID(context.Context, uint64) (model.Vehicle, error) {
	return model.Vehicle{}, repository.ErrNotFound
}
