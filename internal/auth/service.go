package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/accesshub/accesshub/internal/identity"
	"github.com/accesshub/accesshub/internal/platform/httpx"
)

// ErrBadLogin is returned for unknown email and wrong password alike so
// the response shape never reveals which one failed.
var ErrBadLogin = fmt.Errorf("auth: invalid email or password: %w", httpx.ErrUnauthenticated)

// Service wraps signup and login business rules.
type Service struct {
	repo       Repository
	resolver   identity.ResolverPort
	tokens     *Tokens
	bcryptCost int
}

// NewService constructs a Service.
func NewService(repo Repository, resolver identity.ResolverPort, tokens *Tokens, bcryptCost int) *Service {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{repo: repo, resolver: resolver, tokens: tokens, bcryptCost: bcryptCost}
}

// Signup creates a new account with a hashed password.
func (s *Service) Signup(ctx context.Context, email, password string) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("auth: hash password: %w", err)
	}
	return s.repo.CreateUser(ctx, email, string(hash))
}

// Login validates credentials, mints a token and resolves the caller's
// identity graph for the response payload.
func (s *Service) Login(ctx context.Context, email, password string) (string, *identity.Identity, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			return "", nil, ErrBadLogin
		}
		return "", nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrBadLogin
	}
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return "", nil, err
	}
	ident, err := s.resolver.Resolve(ctx, user.ID)
	if err != nil {
		return "", nil, err
	}
	return token, ident, nil
}
