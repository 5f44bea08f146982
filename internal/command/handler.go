package command

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/accesshub/accesshub/internal/authz"
	"github.com/accesshub/accesshub/internal/platform/httpx"
	"github.com/accesshub/accesshub/internal/rbac"
)

// Handler exposes the natural-language command endpoint.
type Handler struct {
	logger   *slog.Logger
	executor *Executor
	authz    authz.Middleware
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, executor *Executor, mw authz.Middleware) *Handler {
	return &Handler{logger: logger, executor: executor, authz: mw}
}

// MountRoutes registers the command route. Commands mutate RBAC state, so
// the manage permission gates them.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.authz.Require(rbac.PermManageRoles))
		r.Post("/", h.handleCommand)
	})
}

type commandRequest struct {
	Command string `json:"command"`
}

type commandResponse struct {
	Success bool    `json:"success"`
	Message string  `json:"message"`
	Result  *Result `json:"result"`
}

func (h *Handler) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	intent, err := Parse(req.Command)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.executor.Execute(r.Context(), intent)
	if err != nil {
		if h.logger != nil {
			h.logger.Error("execute command", slog.String("command", req.Command), slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, commandResponse{
		Success: true,
		Message: "Successfully executed: " + req.Command,
		Result:  result,
	})
}
