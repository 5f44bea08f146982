package rbac

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/accesshub/accesshub/internal/authz"
	"github.com/accesshub/accesshub/internal/platform/httpx"
)

// PermManageRoles gates every RBAC mutation endpoint.
const PermManageRoles = "can_manage_roles"

// Handler exposes role and permission management endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	authz    authz.Middleware
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, mw authz.Middleware) *Handler {
	return &Handler{logger: logger, service: service, authz: mw, validate: validator.New()}
}

// MountRoutes registers role and permission routes. Reads require
// authentication; mutations additionally require PermManageRoles.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/permissions", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(h.authz.RequireAuth)
			r.Get("/", h.listPermissions)
		})
		r.Group(func(r chi.Router) {
			r.Use(h.authz.Require(PermManageRoles))
			r.Post("/", h.createPermission)
			r.Put("/{id}", h.updatePermission)
			r.Delete("/{id}", h.deletePermission)
		})
	})
	r.Route("/roles", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(h.authz.RequireAuth)
			r.Get("/", h.listRoles)
			r.Get("/{id}", h.getRole)
			r.Get("/{id}/permissions", h.getRolePermissions)
		})
		r.Group(func(r chi.Router) {
			r.Use(h.authz.Require(PermManageRoles))
			r.Post("/", h.createRole)
			r.Put("/{id}", h.updateRole)
			r.Delete("/{id}", h.deleteRole)
			r.Post("/{id}/permissions", h.setRolePermissions)
		})
	})
}

type upsertRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
}

type setPermissionsRequest struct {
	PermissionIDs []int64 `json:"permissionIds"`
}

func (h *Handler) decodeUpsert(r *http.Request) (*upsertRequest, error) {
	var req upsertRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		return nil, err
	}
	if err := h.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", httpx.ErrValidation, err)
	}
	return &req, nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid id", httpx.ErrValidation)
	}
	return id, nil
}

func (h *Handler) listPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := h.service.ListPermissions(r.Context())
	if err != nil {
		h.fail(w, r, "list permissions", err)
		return
	}
	httpx.JSON(w, http.StatusOK, perms)
}

func (h *Handler) createPermission(w http.ResponseWriter, r *http.Request) {
	req, err := h.decodeUpsert(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	perm, err := h.service.CreatePermission(r.Context(), req.Name, req.Description)
	if err != nil {
		h.fail(w, r, "create permission", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, perm)
}

func (h *Handler) updatePermission(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	req, err := h.decodeUpsert(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	perm, err := h.service.UpdatePermission(r.Context(), id, req.Name, req.Description)
	if err != nil {
		h.fail(w, r, "update permission", err)
		return
	}
	httpx.JSON(w, http.StatusOK, perm)
}

func (h *Handler) deletePermission(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.DeletePermission(r.Context(), id); err != nil {
		h.fail(w, r, "delete permission", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "Permission deleted successfully"})
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.ListRoles(r.Context())
	if err != nil {
		h.fail(w, r, "list roles", err)
		return
	}
	httpx.JSON(w, http.StatusOK, roles)
}

func (h *Handler) getRole(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	role, err := h.service.GetRole(r.Context(), id)
	if err != nil {
		h.fail(w, r, "get role", err)
		return
	}
	httpx.JSON(w, http.StatusOK, role)
}

func (h *Handler) createRole(w http.ResponseWriter, r *http.Request) {
	req, err := h.decodeUpsert(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	role, err := h.service.CreateRole(r.Context(), req.Name, req.Description)
	if err != nil {
		h.fail(w, r, "create role", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, role)
}

func (h *Handler) updateRole(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	req, err := h.decodeUpsert(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	role, err := h.service.UpdateRole(r.Context(), id, req.Name, req.Description)
	if err != nil {
		h.fail(w, r, "update role", err)
		return
	}
	httpx.JSON(w, http.StatusOK, role)
}

func (h *Handler) deleteRole(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.DeleteRole(r.Context(), id); err != nil {
		h.fail(w, r, "delete role", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "Role deleted successfully"})
}

func (h *Handler) getRolePermissions(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	perms, err := h.service.GetRolePermissions(r.Context(), id)
	if err != nil {
		h.fail(w, r, "get role permissions", err)
		return
	}
	httpx.JSON(w, http.StatusOK, perms)
}

func (h *Handler) setRolePermissions(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req setPermissionsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	role, err := h.service.SetRolePermissions(r.Context(), id, req.PermissionIDs)
	if err != nil {
		h.fail(w, r, "set role permissions", err)
		return
	}
	httpx.JSON(w, http.StatusOK, role)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	if h.logger != nil {
		h.logger.Error(op, slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
