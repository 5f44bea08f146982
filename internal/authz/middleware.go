package authz

import (
	"net/http"
	"strings"

	"github.com/accesshub/accesshub/internal/platform/httpx"
)

// Middleware wires the guard into chi handler chains. Observe, when set,
// receives the outcome of every decision ("allowed" or the deny reason).
type Middleware struct {
	Guard   *Guard
	Observe func(outcome string)
}

// RequireAuth ensures the request carries a valid bearer token and stores
// the resolved identity in the request context.
func (m Middleware) RequireAuth(next http.Handler) http.Handler {
	return m.require("")(next)
}

// Require ensures the caller is authenticated and holds the permission.
func (m Middleware) Require(permission string) func(http.Handler) http.Handler {
	return m.require(permission)
}

func (m Middleware) require(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision := m.Guard.Authorize(r.Context(), BearerToken(r), permission)
			if m.Observe != nil {
				m.Observe(decisionOutcome(decision))
			}
			if !decision.Allowed {
				switch decision.Reason {
				case ReasonForbidden:
					httpx.Problem(w, http.StatusForbidden, "Forbidden", "missing permission "+permission)
				case ReasonUnavailable:
					httpx.Problem(w, http.StatusServiceUnavailable, "Service Unavailable", "")
				default:
					httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
				}
				return
			}
			ctx := ContextWithIdentity(r.Context(), decision.Identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func decisionOutcome(d Decision) string {
	if d.Allowed {
		return "allowed"
	}
	return string(d.Reason)
}

// BearerToken extracts the token from the Authorization header, or "".
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
