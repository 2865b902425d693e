// AngelaMos | 2026
// handler.go

package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/storefront/internal/config"
	"github.com/carterperez-dev/storefront/internal/core"
	"github.com/carterperez-dev/storefront/internal/identity"
	"github.com/carterperez-dev/storefront/internal/middleware"
	"github.com/carterperez-dev/storefront/internal/rbac"
	"github.com/carterperez-dev/storefront/internal/user"
)

const (
	resetRequestedMessage = "If an account with this email exists, a password reset link has been sent"
	resendMessage         = "If an account with this email exists, a verification email has been sent"
)

type Provider interface {
	SignUp(ctx context.Context, in identity.SignUpInput) (*identity.AuthResult, error)
	SignIn(
		ctx context.Context,
		email, password string,
		client identity.ClientInfo,
	) (*identity.AuthResult, error)
	SignOut(ctx context.Context, headers http.Header) error
	SignOutEverywhere(ctx context.Context, userID string) error
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, password string) error
	VerifyEmail(ctx context.Context, token string) (*user.User, error)
	SendVerificationEmail(ctx context.Context, email string) error
}

type Handler struct {
	provider  Provider
	cookie    config.SessionConfig
	validator *validator.Validate
	logger    *slog.Logger
}

func NewHandler(
	provider Provider,
	cookie config.SessionConfig,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		provider:  provider,
		cookie:    cookie,
		validator: core.NewValidator(),
		logger:    logger,
	}
}

// RegisterRoutes mounts the credential endpoints. emailLimit wraps the
// routes that send mail.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	emailLimit func(http.Handler) http.Handler,
) {
	r.Post("/register", h.Register)
	r.Post("/login", h.Login)
	r.Post("/password-reset", h.ResetPassword)
	r.Post("/verify-email", h.VerifyEmail)

	r.Group(func(r chi.Router) {
		r.Use(emailLimit)
		r.Post("/password-reset/request", h.RequestPasswordReset)
		r.Post("/resend-verification", h.ResendVerification)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireCustomer)
		r.Post("/logout", h.Logout)
		r.Post("/logout-all", h.LogoutAll)
	})
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.ValidationError(w, err)
		return
	}

	res, err := h.provider.SignUp(r.Context(), identity.SignUpInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Role:     rbac.Role(req.Role),
		Client:   clientInfo(r),
	})
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrEmailExists):
			core.JSONError(w, core.NewAppError(
				core.ErrDuplicateKey,
				"User with this email already exists",
				http.StatusConflict,
				"DUPLICATE",
			))
		case errors.Is(err, identity.ErrRoleNotSelectable):
			core.BadRequest(w, "role cannot be chosen at registration")
		default:
			core.InternalServerError(w, err)
		}
		return
	}

	h.setSessionCookie(w, res.Token, res.Session.ExpiresAt)
	core.Created(w, "Registration successful", toAuthResponse(res))
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.ValidationError(w, err)
		return
	}

	res, err := h.provider.SignIn(r.Context(), req.Email, req.Password, clientInfo(r))
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			core.Unauthorized(w, "Invalid email or password")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	h.setSessionCookie(w, res.Token, res.Session.ExpiresAt)
	core.OK(w, "Login successful", toAuthResponse(res))
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.provider.SignOut(r.Context(), r.Header); err != nil {
		core.InternalServerError(w, err)
		return
	}

	h.clearSessionCookie(w)
	core.OK(w, "Logged out", nil)
}

func (h *Handler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	if err := h.provider.SignOutEverywhere(r.Context(), userID); err != nil {
		core.InternalServerError(w, err)
		return
	}

	h.clearSessionCookie(w)
	core.OK(w, "Logged out of all sessions", nil)
}

// RequestPasswordReset answers identically whether or not the address is
// registered. Provider failures are only logged.
func (h *Handler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req EmailRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.ValidationError(w, err)
		return
	}

	if err := h.provider.RequestPasswordReset(r.Context(), req.Email); err != nil {
		h.logger.ErrorContext(r.Context(), "password reset request failed",
			"request_id", middleware.GetRequestID(r.Context()),
			"error", err,
		)
	}

	core.OK(w, resetRequestedMessage, nil)
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.ValidationError(w, err)
		return
	}

	if err := h.provider.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		if isTokenError(err) {
			core.JSONError(w, core.TokenInvalidError("Invalid or expired reset token"))
			return
		}
		core.InternalServerError(w, err)
		return
	}

	h.clearSessionCookie(w)
	core.OK(w, "Password reset successful", nil)
}

func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req VerifyEmailRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.ValidationError(w, err)
		return
	}

	u, err := h.provider.VerifyEmail(r.Context(), req.Token)
	if err != nil {
		if isTokenError(err) {
			core.JSONError(w, core.TokenInvalidError("Invalid or expired verification token"))
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, "Email verified successfully", user.ToUserResponse(u))
}

func (h *Handler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var req EmailRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.ValidationError(w, err)
		return
	}

	if err := h.provider.SendVerificationEmail(r.Context(), req.Email); err != nil {
		h.logger.ErrorContext(r.Context(), "resend verification failed",
			"request_id", middleware.GetRequestID(r.Context()),
			"error", err,
		)
	}

	core.OK(w, resendMessage, nil)
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.CookieName,
		Value:    token,
		Path:     "/",
		Domain:   h.cookie.Domain,
		Expires:  expiresAt,
		MaxAge:   int(time.Until(expiresAt).Seconds()),
		Secure:   h.cookie.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.CookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.cookie.Domain,
		MaxAge:   -1,
		Secure:   h.cookie.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func isTokenError(err error) bool {
	return errors.Is(err, core.ErrTokenInvalid) ||
		errors.Is(err, core.ErrTokenExpired)
}

func toAuthResponse(res *identity.AuthResult) AuthResponse {
	return AuthResponse{
		User: user.ToUserResponse(res.User),
		Session: SessionResponse{
			ID:        res.Session.ID,
			ExpiresAt: res.Session.ExpiresAt,
			Token:     res.Token,
		},
	}
}

func clientInfo(r *http.Request) identity.ClientInfo {
	return identity.ClientInfo{
		UserAgent: r.UserAgent(),
		IPAddress: middleware.ClientIP(r),
	}
}
