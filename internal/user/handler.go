// AngelaMos | 2026
// handler.go

package user

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/storefront/internal/core"
	"github.com/carterperez-dev/storefront/internal/middleware"
	"github.com/carterperez-dev/storefront/internal/rbac"
)

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: core.NewValidator(),
	}
}

// RegisterRoutes mounts the profile and role administration endpoints. The
// router must already run middleware.Authenticator.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequireCustomer).Get("/profile", h.GetProfile)
	r.With(middleware.RequireAdmin).Get("/users", h.ListUsers)
	r.With(middleware.RequireCustomer).Put("/roles/update", h.UpdateRole)
}

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	user, err := h.service.GetProfile(r.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrNotFound):
			core.NotFound(w, "user")
		case errors.Is(err, core.ErrUnauthorized):
			core.Unauthorized(w, "")
		default:
			core.InternalServerError(w, err)
		}
		return
	}

	core.OK(w, "Profile retrieved successfully", ToUserResponse(user))
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	params := ListUsersParams{
		Page:     parseIntQuery(r, "page", 1),
		PageSize: parseIntQuery(r, "page_size", 20),
		Search:   r.URL.Query().Get("search"),
	}

	if raw := r.URL.Query().Get("role"); raw != "" {
		role, err := rbac.ParseRole(raw)
		if err != nil {
			core.BadRequest(w, "unknown role filter")
			return
		}
		params.Role = role
	}
	params.Normalize()

	users, total, err := h.service.ListUsers(r.Context(), params)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.Paginated(
		w,
		"Users retrieved successfully",
		ToUserResponseList(users),
		params.Page,
		params.PageSize,
		total,
	)
}

func (h *Handler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	actor := middleware.IdentityFrom(r.Context())
	if actor == nil {
		core.Unauthorized(w, "")
		return
	}

	var req UpdateRoleRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.ValidationError(w, err)
		return
	}

	user, err := h.service.UpdateRole(
		r.Context(),
		*actor,
		req.UserID,
		rbac.Role(req.Role),
	)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrInvalidInput):
			core.BadRequest(w, "invalid role")
		case errors.Is(err, core.ErrNotFound):
			core.NotFound(w, "user")
		case errors.Is(err, ErrRoleNotGrantable):
			core.Forbidden(w, "Cannot grant a role above your own")
		case errors.Is(err, core.ErrForbidden):
			core.Forbidden(w, "Insufficient permissions to modify this user's role")
		case errors.Is(err, core.ErrConflict):
			core.JSONError(w, core.ConflictError(
				"user role changed concurrently, retry the request",
			))
		default:
			core.InternalServerError(w, err)
		}
		return
	}

	core.OK(w, "Role updated successfully", ToUserResponse(user))
}

func parseIntQuery(r *http.Request, key string, defaultVal int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}

	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}

	return parsed
}
