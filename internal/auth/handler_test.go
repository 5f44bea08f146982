package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/accesshub/accesshub/internal/auth"
	"github.com/accesshub/accesshub/internal/authz"
	"github.com/accesshub/accesshub/internal/identity"
	"github.com/accesshub/accesshub/internal/platform/httpx"
	"github.com/accesshub/accesshub/internal/platform/ratelimit"
	_ "github.com/accesshub/accesshub/testing"
)

type memRepo struct {
	usersByEmail map[string]*auth.User
	nextID       int64
}

func newMemRepo() *memRepo {
	return &memRepo{usersByEmail: make(map[string]*auth.User), nextID: 1}
}

func (m *memRepo) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	user, ok := m.usersByEmail[email]
	if !ok {
		return nil, httpx.ErrNotFound
	}
	return user, nil
}

func (m *memRepo) CreateUser(ctx context.Context, email, passwordHash string) (*auth.User, error) {
	if _, ok := m.usersByEmail[email]; ok {
		return nil, auth.ErrEmailTaken
	}
	user := &auth.User{ID: m.nextID, Email: email, PasswordHash: passwordHash, CreatedAt: time.Now()}
	m.nextID++
	m.usersByEmail[email] = user
	return user, nil
}

type memResolver struct {
	identities map[int64]*identity.Identity
}

func (m *memResolver) Resolve(ctx context.Context, subjectID int64) (*identity.Identity, error) {
	ident, ok := m.identities[subjectID]
	if !ok {
		return nil, identity.ErrSubjectNotFound
	}
	return ident, nil
}

type fixture struct {
	router   chi.Router
	repo     *memRepo
	resolver *memResolver
	tokens   *auth.Tokens
}

func newFixture(t *testing.T, loginLimiter, signupLimiter *ratelimit.Limiter) *fixture {
	t.Helper()
	repo := newMemRepo()
	resolver := &memResolver{identities: make(map[int64]*identity.Identity)}
	tokens := auth.NewTokens("testsecret", time.Hour)
	service := auth.NewService(repo, resolver, tokens, bcrypt.MinCost)
	mw := authz.Middleware{Guard: authz.NewGuard(tokens, resolver, nil)}
	handler := auth.NewHandler(nil, service, mw, loginLimiter, signupLimiter)

	router := chi.NewRouter()
	router.Route("/api/auth", handler.MountRoutes)
	return &fixture{router: router, repo: repo, resolver: resolver, tokens: tokens}
}

func postJSON(t *testing.T, router http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	return res
}

func TestSignupCreatesUser(t *testing.T) {
	fx := newFixture(t, nil, nil)

	res := postJSON(t, fx.router, "/api/auth/signup", `{"email":"new@example.com","password":"hunter22"}`)
	require.Equal(t, http.StatusCreated, res.Code)

	var payload struct {
		User struct {
			ID    int64  `json:"id"`
			Email string `json:"email"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &payload))
	assert.Equal(t, "new@example.com", payload.User.Email)
	assert.NotContains(t, res.Body.String(), "password")
}

func TestSignupValidation(t *testing.T) {
	fx := newFixture(t, nil, nil)

	cases := []string{
		`{"email":"not-an-email","password":"hunter22"}`,
		`{"email":"a@b.co","password":"short"}`,
		`{"email":"a@b.co"}`,
		`not json`,
	}
	for _, body := range cases {
		res := postJSON(t, fx.router, "/api/auth/signup", body)
		assert.Equal(t, http.StatusBadRequest, res.Code, "body %s", body)
	}
}

func TestSignupConflict(t *testing.T) {
	fx := newFixture(t, nil, nil)

	res := postJSON(t, fx.router, "/api/auth/signup", `{"email":"dup@example.com","password":"hunter22"}`)
	require.Equal(t, http.StatusCreated, res.Code)

	res = postJSON(t, fx.router, "/api/auth/signup", `{"email":"dup@example.com","password":"hunter22"}`)
	assert.Equal(t, http.StatusConflict, res.Code)
}

func TestLoginReturnsTokenAndPermissions(t *testing.T) {
	fx := newFixture(t, nil, nil)
	res := postJSON(t, fx.router, "/api/auth/signup", `{"email":"user@example.com","password":"hunter22"}`)
	require.Equal(t, http.StatusCreated, res.Code)
	fx.resolver.identities[1] = &identity.Identity{
		UserID: 1,
		Email:  "user@example.com",
		Roles: []identity.Role{{ID: 1, Name: "Viewer", Permissions: []identity.Permission{
			{ID: 1, Name: "can_view_dashboard"},
		}}},
	}

	res = postJSON(t, fx.router, "/api/auth/login", `{"email":"user@example.com","password":"hunter22"}`)
	require.Equal(t, http.StatusOK, res.Code)

	var payload struct {
		Token       string   `json:"token"`
		Permissions []string `json:"permissions"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &payload))
	subject, err := fx.tokens.Verify(payload.Token)
	require.NoError(t, err)
	assert.Equal(t, int64(1), subject)
	assert.Equal(t, []string{"can_view_dashboard"}, payload.Permissions)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	fx := newFixture(t, nil, nil)
	res := postJSON(t, fx.router, "/api/auth/signup", `{"email":"user@example.com","password":"hunter22"}`)
	require.Equal(t, http.StatusCreated, res.Code)

	res = postJSON(t, fx.router, "/api/auth/login", `{"email":"user@example.com","password":"wrongpass"}`)
	assert.Equal(t, http.StatusUnauthorized, res.Code)

	res = postJSON(t, fx.router, "/api/auth/login", `{"email":"ghost@example.com","password":"hunter22"}`)
	assert.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestLoginRateLimited(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	limiter := ratelimit.New(client, "login", 2, time.Minute)
	fx := newFixture(t, limiter, nil)

	body := `{"email":"user@example.com","password":"hunter22"}`
	for i := 0; i < 2; i++ {
		res := postJSON(t, fx.router, "/api/auth/login", body)
		assert.NotEqual(t, http.StatusTooManyRequests, res.Code)
	}

	res := postJSON(t, fx.router, "/api/auth/login", body)
	assert.Equal(t, http.StatusTooManyRequests, res.Code)
	assert.NotEmpty(t, res.Header().Get("Retry-After"))
}

func TestMeRequiresAuth(t *testing.T) {
	fx := newFixture(t, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	res := httptest.NewRecorder()
	fx.router.ServeHTTP(res, req)
	assert.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestMeReturnsIdentity(t *testing.T) {
	fx := newFixture(t, nil, nil)
	fx.resolver.identities[7] = &identity.Identity{
		UserID: 7,
		Email:  "me@example.com",
		Roles: []identity.Role{{ID: 1, Name: "Administrator", Permissions: []identity.Permission{
			{ID: 1, Name: "can_manage_roles"},
		}}},
	}
	token, err := fx.tokens.Issue(7)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	res := httptest.NewRecorder()
	fx.router.ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	var payload struct {
		User struct {
			Email string `json:"email"`
		} `json:"user"`
		Permissions []string `json:"permissions"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &payload))
	assert.Equal(t, "me@example.com", payload.User.Email)
	assert.Equal(t, []string{"can_manage_roles"}, payload.Permissions)
}
