package dashboard

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/accesshub/accesshub/internal/authz"
	"github.com/accesshub/accesshub/internal/platform/httpx"
)

// Handler serves dashboard statistics.
type Handler struct {
	logger *slog.Logger
	repo   RepositoryPort
	authz  authz.Middleware
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, repo RepositoryPort, mw authz.Middleware) *Handler {
	return &Handler{logger: logger, repo: repo, authz: mw}
}

// MountRoutes registers dashboard routes. Stats are visible to any
// authenticated subject.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequireAuth)
		r.Get("/stats", h.handleStats)
	})
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.repo.Counts(r.Context())
	if err != nil {
		if h.logger != nil {
			h.logger.Error("load dashboard stats", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, stats)
}
