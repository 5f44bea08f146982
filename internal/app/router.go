package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/accesshub/accesshub/internal/auth"
	"github.com/accesshub/accesshub/internal/command"
	"github.com/accesshub/accesshub/internal/dashboard"
	"github.com/accesshub/accesshub/internal/observability"
	"github.com/accesshub/accesshub/internal/rbac"
	"github.com/accesshub/accesshub/internal/users"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	AuthHandler      *auth.Handler
	RBACHandler      *rbac.Handler
	UsersHandler     *users.Handler
	CommandHandler   *command.Handler
	DashboardHandler *dashboard.Handler
	Pool             *pgxpool.Pool
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", params.AuthHandler.MountRoutes)
		params.RBACHandler.MountRoutes(r)
		r.Route("/users", params.UsersHandler.MountRoutes)
		r.Route("/command", params.CommandHandler.MountRoutes)
		r.Route("/dashboard", params.DashboardHandler.MountRoutes)
	})

	return r
}
