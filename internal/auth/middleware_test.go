package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// protectedHandler records whether it ran and what identity it saw.
type protectedHandler struct {
	called   bool
	identity Identity
	ok       bool
}

func (h *protectedHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.called = true
	h.identity, h.ok = IdentityFromContext(r.Context())
	w.WriteHeader(http.StatusOK)
}

func doGateRequest(t *testing.T, ts *TokenService, mutate func(*http.Request)) (*httptest.ResponseRecorder, *protectedHandler) {
	t.Helper()
	inner := &protectedHandler{}
	gate := RequireAuth(ts)(inner)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	if mutate != nil {
		mutate(req)
	}
	rr := httptest.NewRecorder()
	gate.ServeHTTP(rr, req)
	return rr, inner
}

func TestRequireAuth_ValidCookie(t *testing.T) {
	ts := newTestTokenService(t)
	token, _ := ts.Issue(TokenKindAccess, "user-123", "a@x.com")

	rr, inner := doGateRequest(t, ts, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: "accessToken", Value: token})
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body = %s", rr.Code, rr.Body.String())
	}
	if !inner.called {
		t.Fatal("protected handler was not called")
	}
	if !inner.ok || inner.identity.UserID != "user-123" || inner.identity.Email != "a@x.com" {
		t.Errorf("identity = %+v (ok=%v), want user-123/a@x.com", inner.identity, inner.ok)
	}
}

func TestRequireAuth_ValidBearerHeader(t *testing.T) {
	ts := newTestTokenService(t)
	token, _ := ts.Issue(TokenKindAccess, "user-456", "b@x.com")

	rr, inner := doGateRequest(t, ts, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if inner.identity.UserID != "user-456" {
		t.Errorf("UserID = %q, want %q", inner.identity.UserID, "user-456")
	}
}

func TestRequireAuth_CookieBeatsHeader(t *testing.T) {
	ts := newTestTokenService(t)
	cookieToken, _ := ts.Issue(TokenKindAccess, "cookie-user", "c@x.com")
	headerToken, _ := ts.Issue(TokenKindAccess, "header-user", "h@x.com")

	_, inner := doGateRequest(t, ts, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: "accessToken", Value: cookieToken})
		r.Header.Set("Authorization", "Bearer "+headerToken)
	})

	if inner.identity.UserID != "cookie-user" {
		t.Errorf("UserID = %q, want the cookie's user", inner.identity.UserID)
	}
}

func TestRequireAuth_NoToken(t *testing.T) {
	ts := newTestTokenService(t)

	rr, inner := doGateRequest(t, ts, nil)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}
	if inner.called {
		t.Error("protected handler should not run without a token")
	}
	if got := rr.Body.String(); got != `{"error":"No token provided"}` {
		t.Errorf("body = %s", got)
	}
}

func TestRequireAuth_ExpiredToken(t *testing.T) {
	ts := newTestTokenService(t)
	token, _ := ts.IssueWithTTL(TokenKindAccess, "user-123", "a@x.com", -time.Minute)

	rr, inner := doGateRequest(t, ts, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: "accessToken", Value: token})
	})

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}
	if inner.called {
		t.Error("protected handler should not run with an expired token")
	}
	if got := rr.Body.String(); got != `{"error":"Invalid token"}` {
		t.Errorf("body = %s", got)
	}
}

func TestRequireAuth_RefreshTokenRejected(t *testing.T) {
	ts := newTestTokenService(t)
	// A long-lived refresh token must not open the gate.
	token, _ := ts.Issue(TokenKindRefresh, "user-123", "a@x.com")

	rr, _ := doGateRequest(t, ts, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: "accessToken", Value: token})
	})

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}
}

func TestRequireAuth_GarbageToken(t *testing.T) {
	ts := newTestTokenService(t)

	rr, _ := doGateRequest(t, ts, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer not.a.jwt")
	})

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}
}

func TestIdentityFromContext_Anonymous(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, ok := IdentityFromContext(req.Context()); ok {
		t.Error("IdentityFromContext() should report false on a bare context")
	}
}
