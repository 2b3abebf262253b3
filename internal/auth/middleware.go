package auth

import (
	"context"
	"net/http"
	"strings"
)

// Identity is what a verified access token asserts about the caller.
// It is built purely from the signed claims — the gate does NOT re-check
// that the user row still exists. That keeps every protected request free
// of a storage round-trip; the refresh path, which is rare and mints new
// credentials, is the one that re-checks storage. A deleted user's access
// token therefore keeps working until it expires (at most 15 minutes).
type Identity struct {
	UserID string
	Email  string
}

// contextKey is an unexported type for this package's context keys, so no
// other package can read or shadow the identity value.
type contextKey string

const identityKey contextKey = "identity"

// Cookie names shared by the login callback (which sets them) and the gate
// and refresh endpoint (which read them). Header auth exists for
// non-browser clients.
const (
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"
)

// ExtractToken pulls the bearer token out of a request: the accessToken
// cookie if present, else the Authorization: Bearer header. Cookie wins —
// browsers always send it, and a stale header shouldn't override it.
// Returns "" when neither carries a token.
func ExtractToken(r *http.Request) string {
	if cookie, err := r.Cookie(AccessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return strings.TrimSpace(header[len("Bearer "):])
	}
	return ""
}

// RequireAuth is the middleware that gates protected routes.
//
// It extracts the bearer token, verifies it as kind access, and stores the
// resulting Identity in the request context. Missing or failing tokens get
// a 401; the response body never says WHICH check failed (expired vs
// tampered vs wrong kind) — that distinction stays in server logs. The gate
// never attempts a refresh; refreshing is an explicit client action against
// POST /auth/refresh.
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ExtractToken(r)
			if token == "" {
				writeUnauthorized(w, "No token provided")
				return
			}

			claims, err := tokens.Verify(TokenKindAccess, token)
			if err != nil {
				writeUnauthorized(w, "Invalid token")
				return
			}

			identity := Identity{UserID: claims.UserID, Email: claims.Email}
			next.ServeHTTP(w, r.WithContext(ContextWithIdentity(r.Context(), identity)))
		})
	}
}

// ContextWithIdentity returns a context carrying the given identity. The
// gate calls this after verification; handler tests use it to simulate an
// authenticated request.
func ContextWithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// IdentityFromContext retrieves the authenticated identity set by
// RequireAuth. Returns (zero, false) on unauthenticated requests.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey).(Identity)
	return identity, ok && identity.UserID != ""
}

// writeUnauthorized writes the flat {"error": message} 401 body the
// frontend expects.
func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"` + message + `"}`))
}
