package dashboard_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/accesshub/accesshub/internal/auth"
	"github.com/accesshub/accesshub/internal/authz"
	"github.com/accesshub/accesshub/internal/dashboard"
	"github.com/accesshub/accesshub/internal/identity"
)

type stubRepo struct {
	stats dashboard.Stats
	err   error
}

func (s *stubRepo) Counts(context.Context) (dashboard.Stats, error) {
	return s.stats, s.err
}

type stubResolver struct {
	ident *identity.Identity
}

func (s *stubResolver) Resolve(context.Context, int64) (*identity.Identity, error) {
	if s.ident == nil {
		return nil, identity.ErrSubjectNotFound
	}
	return s.ident, nil
}

func newRouter(t *testing.T, repo *stubRepo) (chi.Router, string) {
	t.Helper()
	tokens := auth.NewTokens("testsecret", time.Hour)
	resolver := &stubResolver{ident: &identity.Identity{UserID: 7, Email: "ops@example.com"}}
	mw := authz.Middleware{Guard: authz.NewGuard(tokens, resolver, nil)}
	handler := dashboard.NewHandler(nil, repo, mw)

	router := chi.NewRouter()
	router.Route("/api/dashboard", handler.MountRoutes)

	token, err := tokens.Issue(7)
	require.NoError(t, err)
	return router, token
}

func TestStatsReturnsCounts(t *testing.T) {
	repo := &stubRepo{stats: dashboard.Stats{Users: 3, Roles: 2, Permissions: 8, Grants: 11}}
	router, token := newRouter(t, repo)

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard/stats", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	var got dashboard.Stats
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &got))
	assert.Equal(t, repo.stats, got)
}

func TestStatsRequiresAuth(t *testing.T) {
	router, _ := newRouter(t, &stubRepo{})

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard/stats", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	assert.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestStatsRepositoryFailure(t *testing.T) {
	router, token := newRouter(t, &stubRepo{err: errors.New("connection reset")})

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard/stats", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	assert.Equal(t, http.StatusInternalServerError, res.Code)
	assert.NotContains(t, res.Body.String(), "connection reset")
}
