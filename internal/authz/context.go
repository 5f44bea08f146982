package authz

import (
	"context"

	"github.com/accesshub/accesshub/internal/identity"
)

type identityContextKey struct{}

// ContextWithIdentity stores the resolved identity in ctx.
func ContextWithIdentity(ctx context.Context, ident *identity.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, ident)
}

// IdentityFromContext extracts the resolved identity, or nil.
func IdentityFromContext(ctx context.Context) *identity.Identity {
	ident, _ := ctx.Value(identityContextKey{}).(*identity.Identity)
	return ident
}
