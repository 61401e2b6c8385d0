package handlers

import (
	"context"
	"errors"

	"github.com/fasthttp/router"
	"github.com/storelab/commerce-gateway/internal/auth"
	"github.com/storelab/commerce-gateway/internal/model"
	"github.com/storelab/commerce-gateway/internal/services"
	xhttp "github.com/storelab/commerce-gateway/pkg/http"
)

type AuthService interface {
	Signup(ctx context.Context, p model.SignupRequest) (*model.User, error)
	Login(ctx context.Context, p model.LoginRequest) (string, *model.User, error)
	RequestReset(ctx context.Context, email string) (string, error)
	ResetPassword(ctx context.Context, p model.ResetPasswordRequest) error
	Profile(ctx context.Context, userID int64) (*model.User, error)
}

type AuthHandler struct {
	svc AuthService
}

// RegisterAuthRoutes registers the unauthenticated endpoints.
func RegisterAuthRoutes(e *router.Group, h *AuthHandler) {
	e.POST("/auth/signup", h.Signup)
	e.POST("/auth/login", h.Login)
	e.POST("/auth/request-reset", h.RequestReset)
	e.POST("/auth/reset-password", h.ResetPassword)
}

// RegisterProfileRoutes registers the endpoints that need a verified bearer
// token.
func RegisterProfileRoutes(e *router.Group, h *AuthHandler, mws ...xhttp.MiddlewareFunc) {
	e.GET("/auth/profile", wrap(h.Profile, mws...))
	e.POST("/auth/logout", wrap(h.Logout, mws...))
}

func NewAuthHandler(authService AuthService) *AuthHandler {
	return &AuthHandler{
		svc: authService,
	}
}

type loginResponse struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

type requestResetBody struct {
	Email string `json:"email"`
}

/* --------------------------------- Routes ----------------------------------- */

func (h *AuthHandler) Signup(ctx *xhttp.RequestCtx) {
	var req model.SignupRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	user, err := h.svc.Signup(ctx, req)
	if err != nil {
		if errors.Is(err, services.ErrEmailTaken) {
			writeError(ctx, xhttp.StatusConflict, err.Error())
			return
		}
		writeError(ctx, xhttp.StatusBadRequest, err.Error())
		return
	}

	writeJSON(ctx, xhttp.StatusCreated, "user created", user)
}

func (h *AuthHandler) Login(ctx *xhttp.RequestCtx) {
	var req model.LoginRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	token, user, err := h.svc.Login(ctx, req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			writeError(ctx, xhttp.StatusUnauthorized, err.Error())
			return
		}
		writeError(ctx, xhttp.StatusBadRequest, err.Error())
		return
	}

	writeJSON(ctx, xhttp.StatusOK, "login successful", loginResponse{Token: token, User: user})
}

// RequestReset always answers with the same body regardless of whether the
// email is registered, so the endpoint cannot be used to enumerate accounts.
// The token itself never leaves the service's delivery sink.
func (h *AuthHandler) RequestReset(ctx *xhttp.RequestCtx) {
	var req requestResetBody
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.Email == "" {
		writeError(ctx, xhttp.StatusBadRequest, "email is required")
		return
	}

	if _, err := h.svc.RequestReset(ctx, req.Email); err != nil {
		writeError(ctx, xhttp.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(ctx, xhttp.StatusOK, "if the email exists, a reset token has been issued", nil)
}

func (h *AuthHandler) ResetPassword(ctx *xhttp.RequestCtx) {
	var req model.ResetPasswordRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	if err := h.svc.ResetPassword(ctx, req); err != nil {
		if errors.Is(err, services.ErrResetInvalid) {
			writeError(ctx, xhttp.StatusUnauthorized, err.Error())
			return
		}
		writeError(ctx, xhttp.StatusBadRequest, err.Error())
		return
	}

	writeJSON(ctx, xhttp.StatusOK, "password updated", nil)
}

func (h *AuthHandler) Profile(ctx *xhttp.RequestCtx) {
	principal := auth.PrincipalFrom(ctx)
	if principal == nil {
		writeError(ctx, xhttp.StatusUnauthorized, "missing bearer token")
		return
	}

	user, err := h.svc.Profile(ctx, principal.UserID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			writeError(ctx, xhttp.StatusNotFound, err.Error())
			return
		}
		writeError(ctx, xhttp.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(ctx, xhttp.StatusOK, "profile", user)
}

// Logout is stateless: tokens expire on their own and the client discards
// its copy. The endpoint exists so clients have an explicit end-of-session
// call.
func (h *AuthHandler) Logout(ctx *xhttp.RequestCtx) {
	writeJSON(ctx, xhttp.StatusOK, "logged out", nil)
}
