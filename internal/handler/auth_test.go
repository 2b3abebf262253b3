package handler_test

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minjae-dev/study-planner-api/internal/auth"
	"github.com/minjae-dev/study-planner-api/internal/config"
	"github.com/minjae-dev/study-planner-api/internal/handler"
	"github.com/minjae-dev/study-planner-api/internal/model"
	"github.com/minjae-dev/study-planner-api/internal/repository/sqlite"
	"github.com/minjae-dev/study-planner-api/internal/service"
)

// testEnv wires an AuthHandler against a real in-memory database, so these
// tests exercise handler, service, and repository together. Only the
// Google exchange itself is out of reach — those paths are covered up to
// the point where the provider would be called.
type testEnv struct {
	handler *handler.AuthHandler
	tokens  *auth.TokenService
	db      *sqlite.DB
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenService(
		"test-access-secret-16ch!",
		"test-refresh-secret-16c!",
		15*time.Minute,
		7*24*time.Hour,
	)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	authSvc := service.NewAuthService(db.Users(), db.OAuthAccounts(), tokens, logger)
	google := auth.NewGoogleProvider("test-client-id", "test-client-secret", "http://localhost:8080/auth/google/callback")

	cfg := &config.Config{
		AppEnv:      "development",
		FrontendURL: "http://localhost:3000",
		AccessTTL:   15 * time.Minute,
		RefreshTTL:  7 * 24 * time.Hour,
	}

	return &testEnv{
		handler: handler.NewAuthHandler(google, authSvc, cfg, logger),
		tokens:  tokens,
		db:      db,
	}
}

func (e *testEnv) createUser(t *testing.T, email string) *model.User {
	t.Helper()
	user := &model.User{Email: email, Nickname: "tester", EmailVerified: true}
	require.NoError(t, e.db.Users().Create(t.Context(), user))
	return user
}

// cookieByName finds a Set-Cookie value in a recorded response.
func cookieByName(rr *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// =========================================================================
// GOOGLE LOGIN / CALLBACK TESTS
// =========================================================================

func TestHandleGoogleLogin_RedirectsWithState(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/auth/google", nil)
	rr := httptest.NewRecorder()
	env.handler.HandleGoogleLogin(rr, req)

	assert.Equal(t, http.StatusTemporaryRedirect, rr.Code)

	state := cookieByName(rr, "oauth_state")
	require.NotNil(t, state, "state cookie must be set")
	assert.NotEmpty(t, state.Value)
	assert.True(t, state.HttpOnly)

	// The redirect must carry the same state we stored in the cookie.
	location := rr.Header().Get("Location")
	assert.Contains(t, location, "accounts.google.com")
	assert.Contains(t, location, "state="+state.Value)
}

func TestHandleGoogleCallback_MissingStateCookie(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=x&state=y", nil)
	rr := httptest.NewRecorder()
	env.handler.HandleGoogleCallback(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandleGoogleCallback_StateMismatch(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=x&state=evil", nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "legit"})
	rr := httptest.NewRecorder()
	env.handler.HandleGoogleCallback(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandleGoogleCallback_UserDenied(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?state=s&error=access_denied", nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "s"})
	rr := httptest.NewRecorder()
	env.handler.HandleGoogleCallback(rr, req)

	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "http://localhost:3000/login?error=oauth_failed", rr.Header().Get("Location"))
}

func TestHandleGoogleCallback_MissingCode(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?state=s", nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "s"})
	rr := httptest.NewRecorder()
	env.handler.HandleGoogleCallback(rr, req)

	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Contains(t, rr.Header().Get("Location"), "error=oauth_failed")
}

// =========================================================================
// REFRESH TESTS
// =========================================================================

func TestHandleRefresh_IssuesNewAccessCookie(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "student@example.com")

	refresh, err := env.tokens.Issue(auth.TokenKindRefresh, user.ID, user.Email)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: auth.RefreshTokenCookie, Value: refresh})
	rr := httptest.NewRecorder()
	env.handler.HandleRefresh(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, "body: %s", rr.Body.String())

	var body map[string]bool
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.True(t, body["success"])

	access := cookieByName(rr, auth.AccessTokenCookie)
	require.NotNil(t, access, "access cookie must be set")
	assert.True(t, access.HttpOnly)

	claims, err := env.tokens.Verify(auth.TokenKindAccess, access.Value)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)

	// The refresh cookie is not rotated.
	assert.Nil(t, cookieByName(rr, auth.RefreshTokenCookie))
}

func TestHandleRefresh_NoCookie(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	rr := httptest.NewRecorder()
	env.handler.HandleRefresh(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestHandleRefresh_AccessTokenRejected(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "student@example.com")

	// An access token smuggled into the refresh cookie must not work.
	access, err := env.tokens.Issue(auth.TokenKindAccess, user.ID, user.Email)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: auth.RefreshTokenCookie, Value: access})
	rr := httptest.NewRecorder()
	env.handler.HandleRefresh(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestHandleRefresh_DeletedUser(t *testing.T) {
	env := newTestEnv(t)

	// Valid refresh token for a user that never made it into storage.
	refresh, err := env.tokens.Issue(auth.TokenKindRefresh, "ghost-user", "ghost@example.com")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: auth.RefreshTokenCookie, Value: refresh})
	rr := httptest.NewRecorder()
	env.handler.HandleRefresh(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

// =========================================================================
// LOGOUT / ME TESTS
// =========================================================================

func TestHandleLogout_ClearsBothCookies(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	rr := httptest.NewRecorder()
	env.handler.HandleLogout(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	for _, name := range []string{auth.AccessTokenCookie, auth.RefreshTokenCookie} {
		c := cookieByName(rr, name)
		require.NotNil(t, c, "cookie %s must be cleared", name)
		assert.Less(t, c.MaxAge, 0, "cookie %s must have negative MaxAge", name)
		assert.Empty(t, c.Value)
	}
}

func TestHandleMe_ReturnsProfile(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "student@example.com")

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	ctx := auth.ContextWithIdentity(req.Context(), auth.Identity{UserID: user.ID, Email: user.Email})
	rr := httptest.NewRecorder()
	env.handler.HandleMe(rr, req.WithContext(ctx))

	require.Equal(t, http.StatusOK, rr.Code)

	var got model.User
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, "student@example.com", got.Email)
}

func TestHandleMe_DeletedUser(t *testing.T) {
	env := newTestEnv(t)

	// Identity from a still-valid token, but the user row is gone.
	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	ctx := auth.ContextWithIdentity(req.Context(), auth.Identity{UserID: "ghost", Email: "ghost@example.com"})
	rr := httptest.NewRecorder()
	env.handler.HandleMe(rr, req.WithContext(ctx))

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandleMe_NoIdentity(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	rr := httptest.NewRecorder()
	env.handler.HandleMe(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.True(t, strings.Contains(rr.Body.String(), "unauthorized"))
}
