package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/carwash-booking/internal/apperr"
	"github.com/iliyamo/carwash-booking/internal/config"
	"github.com/iliyamo/carwash-booking/internal/model"
	"github.com/iliyamo/carwash-booking/internal/repository"
	"github.com/iliyamo/carwash-booking/internal/utils"
)

// ProfileStore is the profile surface used by auth and customer routes.
type ProfileStore interface {
	Create(ctx context.Context, p model.Profile, password string, cost int) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.Profile, error)
	GetByID(ctx context.Context, id uint64) (model.Profile, error)
	SetSubscribed(ctx context.Context, id uint64, subscribed bool) error
}

// TokenStore persists refresh token hashes.
type TokenStore interface {
	StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID uint64) error
}

// AuthHandler issues and rotates tokens.
type AuthHandler struct {
	Cfg      config.Config
	Profiles ProfileStore
	Tokens   TokenStore
	Log      *zap.Logger
}

func NewAuthHandler(cfg config.Config, p ProfileStore, t TokenStore, log *zap.Logger) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Profiles: p, Tokens: t, Log: log}
}

type registerReq struct {
	Email      string `json:"email" validate:"required,email,max=254"`
	Password   string `json:"password" validate:"required,min=8,max=72"`
	FullName   string `json:"full_name" validate:"max=120"`
	Phone      string `json:"phone" validate:"max=40"`
	Subscribed bool   `json:"subscribed"`
}

type loginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type authResp struct {
	User    model.Profile `json:"user"`
	Access  tokenPart     `json:"access"`
	Refresh tokenPart     `json:"refresh"`
}

// Register creates a customer profile and signs it in.  Staff and admin
// roles are granted out of band.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := bind(c, &req); err != nil {
		return fail(c, h.Log, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p := model.Profile{
		Email:      strings.ToLower(strings.TrimSpace(req.Email)),
		FullName:   strings.TrimSpace(req.FullName),
		Phone:      strings.TrimSpace(req.Phone),
		Role:       model.RoleCustomer,
		Subscribed: req.Subscribed,
	}
	id, err := h.Profiles.Create(ctx, p, req.Password, h.Cfg.BcryptCost)
	switch {
	case errors.Is(err, repository.ErrEmailExists):
		return fail(c, h.Log, apperr.Conflict("email already exists"))
	case errors.Is(err, utils.ErrWeakPassword):
		return fail(c, h.Log, apperr.Validation(err.Error()))
	case err != nil:
		return fail(c, h.Log, apperr.Persistence("create profile failed", err))
	}
	p.ID = id
	return h.issue(ctx, c, http.StatusCreated, p)
}

// Login verifies credentials and returns a new token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bind(c, &req); err != nil {
		return fail(c, h.Log, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p, err := h.Profiles.GetByEmail(ctx, req.Email)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fail(c, h.Log, apperr.Persistence("query failed", err))
	}
	if err != nil || !utils.VerifyPassword(p.PasswordHash, req.Password) {
		return fail(c, h.Log, apperr.Unauthorized("invalid credentials"))
	}
	return h.issue(ctx, c, http.StatusOK, p)
}

// Refresh rotates a refresh token: the presented one is revoked and a new
// pair is issued.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := bind(c, &req); err != nil {
		return fail(c, h.Log, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))
	uid, err := h.Tokens.ValidateRefresh(ctx, hash)
	if err != nil {
		return fail(c, h.Log, apperr.Unauthorized("invalid refresh token"))
	}
	if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
		return fail(c, h.Log, apperr.Persistence("revoke failed", err))
	}
	p, err := h.Profiles.GetByID(ctx, uid)
	if err != nil {
		return fail(c, h.Log, apperr.Unauthorized("invalid refresh token"))
	}
	return h.issue(ctx, c, http.StatusOK, p)
}

// Logout revokes the presented refresh token, or every token of the
// authenticated caller when no body is sent.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	_ = c.Bind(&req)
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if raw := strings.TrimSpace(req.RefreshToken); raw != "" {
		if err := h.Tokens.RevokeByHash(ctx, utils.HashRefreshRaw(raw)); err != nil {
			return fail(c, h.Log, apperr.Persistence("revoke failed", err))
		}
		return c.NoContent(http.StatusNoContent)
	}
	uid, err := currentUser(c)
	if err != nil {
		return fail(c, h.Log, apperr.Validation("refresh_token or bearer token required"))
	}
	if err := h.Tokens.RevokeAllForUser(ctx, uid); err != nil {
		return fail(c, h.Log, apperr.Persistence("revoke failed", err))
	}
	return c.NoContent(http.StatusNoContent)
}

// Me returns the caller's profile.
func (h *AuthHandler) Me(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return fail(c, h.Log, err)
	}
	p, err := h.Profiles.GetByID(c.Request().Context(), uid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(c, h.Log, apperr.NotFound("profile not found"))
		}
		return fail(c, h.Log, apperr.Persistence("load profile failed", err))
	}
	return c.JSON(http.StatusOK, p)
}

type newsletterReq struct {
	Subscribed bool `json:"subscribed"`
}

// SetNewsletter records the caller's broadcast consent.
func (h *AuthHandler) SetNewsletter(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return fail(c, h.Log, err)
	}
	var req newsletterReq
	if err := bind(c, &req); err != nil {
		return fail(c, h.Log, err)
	}
	if err := h.Profiles.SetSubscribed(c.Request().Context(), uid, req.Subscribed); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(c, h.Log, apperr.NotFound("profile not found"))
		}
		return fail(c, h.Log, apperr.Persistence("update profile failed", err))
	}
	return c.JSON(http.StatusOK, echo.Map{"subscribed": req.Subscribed})
}

func (h *AuthHandler) issue(ctx context.Context, c echo.Context, status int, p model.Profile) error {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, p.ID, p.Role, p.FullName, h.Cfg.AccessTTLMin)
	if err != nil {
		return fail(c, h.Log, err)
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return fail(c, h.Log, err)
	}
	if err := h.Tokens.StoreRefresh(ctx, p.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return fail(c, h.Log, apperr.Persistence("save refresh failed", err))
	}
	return c.JSON(status, authResp{
		User:    p,
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp},
	})
}
