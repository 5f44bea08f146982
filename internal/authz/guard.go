// Package authz implements the authorization guard: the single gate every
// protected operation passes through. Decisions are derived fresh on every
// call, so a permission revoked mid-session takes effect on the very next
// request bearing the same token.
package authz

import (
	"context"
	"errors"
	"log/slog"

	"github.com/accesshub/accesshub/internal/identity"
)

// Reason classifies why a request was denied.
type Reason string

const (
	// ReasonUnauthenticated covers invalid credentials and deleted subjects.
	ReasonUnauthenticated Reason = "unauthenticated"
	// ReasonForbidden means the identity resolved but lacks the permission.
	ReasonForbidden Reason = "forbidden"
	// ReasonUnavailable means the decision could not be derived; the guard
	// fails closed.
	ReasonUnavailable Reason = "unavailable"
)

// Decision is the outcome of an authorization check.
type Decision struct {
	Allowed  bool
	Reason   Reason
	Identity *identity.Identity
}

// Verifier validates a bearer token and extracts the subject ID.
type Verifier interface {
	Verify(token string) (int64, error)
}

// Guard authorizes requests. It is stateless per call: each decision
// verifies the credential and re-reads the subject's permission graph.
type Guard struct {
	verifier Verifier
	resolver identity.ResolverPort
	logger   *slog.Logger
}

// NewGuard constructs a Guard.
func NewGuard(verifier Verifier, resolver identity.ResolverPort, logger *slog.Logger) *Guard {
	return &Guard{verifier: verifier, resolver: resolver, logger: logger}
}

// Authorize verifies the token, resolves the subject and checks the
// required permission. An empty permission only requires authentication.
// Authentication failure and missing permission are distinguished in the
// decision even when callers collapse both to a generic rejection.
func (g *Guard) Authorize(ctx context.Context, token, permission string) Decision {
	subject, err := g.verifier.Verify(token)
	if err != nil {
		return Decision{Reason: ReasonUnauthenticated}
	}

	ident, err := g.resolver.Resolve(ctx, subject)
	if err != nil {
		if errors.Is(err, identity.ErrSubjectNotFound) {
			return Decision{Reason: ReasonUnauthenticated}
		}
		if g.logger != nil {
			g.logger.Error("authz resolve", slog.Int64("subject", subject), slog.Any("error", err))
		}
		return Decision{Reason: ReasonUnavailable}
	}

	if permission != "" && !ident.EffectivePermissions().Has(permission) {
		return Decision{Reason: ReasonForbidden, Identity: ident}
	}
	return Decision{Allowed: true, Identity: ident}
}
