package users

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/accesshub/accesshub/internal/authz"
	"github.com/accesshub/accesshub/internal/platform/httpx"
	"github.com/accesshub/accesshub/internal/rbac"
)

// Handler manages user management endpoints. Role assignment delegates to
// the rbac mutation coordinator.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    *rbac.Service
	authz   authz.Middleware
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbacService *rbac.Service, mw authz.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbacService, authz: mw}
}

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequireAuth)
		r.Get("/", h.listUsers)
		r.Get("/{id}/roles", h.getUserRoles)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.Require(rbac.PermManageRoles))
		r.Post("/{id}/roles", h.setUserRoles)
	})
}

type setRolesRequest struct {
	RoleIDs []int64 `json:"roleIds"`
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.fail(w, "list users", err)
		return
	}
	httpx.JSON(w, http.StatusOK, users)
}

func (h *Handler) getUserRoles(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	roles, err := h.rbac.GetUserRoles(r.Context(), id)
	if err != nil {
		h.fail(w, "get user roles", err)
		return
	}
	httpx.JSON(w, http.StatusOK, roles)
}

func (h *Handler) setUserRoles(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req setRolesRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	roles, err := h.rbac.SetUserRoles(r.Context(), id, req.RoleIDs)
	if err != nil {
		h.fail(w, "set user roles", err)
		return
	}
	httpx.JSON(w, http.StatusOK, roles)
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid id", httpx.ErrValidation)
	}
	return id, nil
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if h.logger != nil {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
