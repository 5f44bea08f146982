package auth

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/accesshub/accesshub/internal/authz"
	"github.com/accesshub/accesshub/internal/identity"
	"github.com/accesshub/accesshub/internal/platform/httpx"
	"github.com/accesshub/accesshub/internal/platform/ratelimit"
)

// Handler wires HTTP endpoints for signup, login and the profile view.
type Handler struct {
	logger        *slog.Logger
	service       *Service
	authz         authz.Middleware
	validate      *validator.Validate
	loginLimiter  *ratelimit.Limiter
	signupLimiter *ratelimit.Limiter
}

// NewHandler constructs a Handler instance. Limiters may be nil, which
// disables per-endpoint throttling (tests).
func NewHandler(logger *slog.Logger, service *Service, mw authz.Middleware, loginLimiter, signupLimiter *ratelimit.Limiter) *Handler {
	return &Handler{
		logger:        logger,
		service:       service,
		authz:         mw,
		validate:      validator.New(),
		loginLimiter:  loginLimiter,
		signupLimiter: signupLimiter,
	}
}

// MountRoutes registers auth routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/signup", h.handleSignup)
	r.Post("/login", h.handleLogin)
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequireAuth)
		r.Get("/me", h.handleMe)
	})
}

type credentialsRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type safeUser struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

type sessionResponse struct {
	Token       string             `json:"token"`
	User        *identity.Identity `json:"user"`
	Permissions []string           `json:"permissions"`
}

func (h *Handler) handleSignup(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, h.signupLimiter) {
		return
	}
	req, err := h.decodeCredentials(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	user, err := h.service.Signup(r.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(w, "signup", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"message": "User created successfully",
		"user":    safeUser{ID: user.ID, Email: user.Email, CreatedAt: user.CreatedAt},
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, h.loginLimiter) {
		return
	}
	req, err := h.decodeCredentials(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	token, ident, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(w, "login", err)
		return
	}
	httpx.JSON(w, http.StatusOK, sessionResponse{
		Token:       token,
		User:        ident,
		Permissions: ident.EffectivePermissions().Names(),
	})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	ident := authz.IdentityFromContext(r.Context())
	if ident == nil {
		httpx.RespondError(w, httpx.ErrUnauthenticated)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"user":        ident,
		"permissions": ident.EffectivePermissions().Names(),
	})
}

func (h *Handler) decodeCredentials(r *http.Request) (*credentialsRequest, error) {
	var req credentialsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		return nil, err
	}
	if err := h.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", httpx.ErrValidation, err)
	}
	return &req, nil
}

// allow applies the fixed-window limiter keyed by client IP. Limiter
// failures do not block the request; throttling is abuse mitigation, not
// authorization.
func (h *Handler) allow(w http.ResponseWriter, r *http.Request, limiter *ratelimit.Limiter) bool {
	if limiter == nil {
		return true
	}
	allowed, retryAfter, err := limiter.Allow(r.Context(), clientIP(r))
	if err != nil {
		if h.logger != nil {
			h.logger.Warn("rate limit check", slog.Any("error", err))
		}
		return true
	}
	if !allowed {
		seconds := int(retryAfter.Round(time.Second).Seconds())
		if seconds < 1 {
			seconds = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
		httpx.Problem(w, http.StatusTooManyRequests, "Too Many Requests", "try again later")
		return false
	}
	return true
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if h.logger != nil {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
