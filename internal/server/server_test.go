package server_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HashWarlock/ai16z-dev-rewards-poc/internal/config"
	"github.com/HashWarlock/ai16z-dev-rewards-poc/internal/server"
)

func slogDiscard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() config.Config {
	return config.Config{
		Port:          5000,
		DBPath:        ":memory:",
		SessionSecret: "test-secret-at-least-16-chars",
		GitHub: config.OAuthProvider{
			ClientID:     "client-id",
			ClientSecret: "client-secret",
		},
	}
}

func newTestServer(t *testing.T) *server.Server {
	t.Helper()

	logger := slogDiscard()
	srv, err := server.New(testConfig(), logger)
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })
	return srv
}

func TestNewRequiresAProvider(t *testing.T) {
	cfg := testConfig()
	cfg.GitHub = config.OAuthProvider{}

	_, err := server.New(cfg, slogDiscard())
	assert.Error(t, err)
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	srv := newTestServer(t)

	for _, tc := range []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/user"},
		{http.MethodPost, "/api/wallet"},
	} {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", tc.method, tc.path)
	}
}

func TestDisabledProviderHasNoRoutes(t *testing.T) {
	srv := newTestServer(t) // GitHub only

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/auth/discord", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/auth/github", nil))
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
}

func TestLogoutRoute(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}
