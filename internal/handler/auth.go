package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/rs/xid"

	"github.com/minjae-dev/study-planner-api/internal/auth"
	"github.com/minjae-dev/study-planner-api/internal/config"
	"github.com/minjae-dev/study-planner-api/internal/service"
)

// stateCookie holds the CSRF state between the login redirect and the
// provider's callback.
const stateCookie = "oauth_state"

// AuthHandler manages the Google OAuth login flow and session management.
//
// HANDLER RESPONSIBILITIES:
//   - HandleGoogleLogin    → redirect the browser to Google's consent page
//   - HandleGoogleCallback → receive the code, resolve the user, set cookies
//   - HandleRefresh        → trade the refresh cookie for a new access cookie
//   - HandleLogout         → clear both token cookies
//   - HandleMe             → return the logged-in user's profile
type AuthHandler struct {
	google      *auth.GoogleProvider
	auth        *service.AuthService
	frontendURL string
	// secure controls the cookies' Secure flag: true behind HTTPS in
	// production, false for local HTTP development.
	secure     bool
	accessTTL  time.Duration
	refreshTTL time.Duration
	logger     *slog.Logger
}

// NewAuthHandler creates an AuthHandler. Cookie policy (Secure flag, TTLs,
// redirect target) comes from config; everything else is injected.
func NewAuthHandler(
	google *auth.GoogleProvider,
	authSvc *service.AuthService,
	cfg *config.Config,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		google:      google,
		auth:        authSvc,
		frontendURL: cfg.FrontendURL,
		secure:      cfg.IsProduction(),
		accessTTL:   cfg.AccessTTL,
		refreshTTL:  cfg.RefreshTTL,
		logger:      logger,
	}
}

// HandleGoogleLogin redirects the user to Google's consent page.
//
// HTTP: GET /auth/google
//
// CSRF PROTECTION VIA STATE:
// We generate a random state string and store it in a short-lived cookie.
// When Google calls back, HandleGoogleCallback verifies the state matches.
// This proves the callback was initiated by this server, not a CSRF attacker.
func (h *AuthHandler) HandleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10 minutes — long enough to approve the consent screen
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.google.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGoogleCallback completes the OAuth login flow.
//
// HTTP: GET /auth/google/callback?code=xxx&state=yyy
//
// FLOW:
//  1. Validate the state parameter (CSRF check)
//  2. Exchange the code for a Google profile
//  3. Resolve the profile to a local user (find-or-create)
//  4. Issue the access/refresh pair as HttpOnly cookies
//  5. Redirect to the frontend dashboard
//
// Any failure after the CSRF check redirects the browser back to the
// frontend login page with ?error=oauth_failed — the user is mid-redirect
// in a browser, so a JSON error body would just be a dead end.
func (h *AuthHandler) HandleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" {
		h.logger.Warn("auth callback: missing state cookie")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}
	if r.URL.Query().Get("state") != cookie.Value {
		h.logger.Warn("auth callback: state mismatch")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}

	// The state cookie is single-use.
	http.SetCookie(w, &http.Cookie{
		Name:   stateCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	// Google reports denial through the error parameter.
	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("auth callback: user denied authorization",
			slog.String("error", errParam),
		)
		h.redirectLoginError(w, r)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		h.redirectLoginError(w, r)
		return
	}

	profile, err := h.google.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: google exchange failed", slog.String("error", err.Error()))
		h.redirectLoginError(w, r)
		return
	}

	user, err := h.auth.ResolveIdentity(r.Context(), profile)
	if err != nil {
		h.logger.Error("auth callback: identity resolution failed", slog.String("error", err.Error()))
		h.redirectLoginError(w, r)
		return
	}

	pair, err := h.auth.CompleteLogin(r.Context(), user)
	if err != nil {
		h.logger.Error("auth callback: login completion failed",
			slog.String("userID", user.ID),
			slog.String("error", err.Error()),
		)
		h.redirectLoginError(w, r)
		return
	}

	h.setSessionCookie(w, auth.AccessTokenCookie, pair.AccessToken, h.accessTTL)
	h.setSessionCookie(w, auth.RefreshTokenCookie, pair.RefreshToken, h.refreshTTL)

	http.Redirect(w, r, h.frontendURL+"/dashboard", http.StatusSeeOther)
}

// HandleRefresh trades a valid refresh cookie for a new access cookie.
//
// HTTP: POST /auth/refresh
//
// The refresh token comes ONLY from its cookie — there is no header
// fallback here, unlike access tokens. The response sets the new access
// cookie and returns a small success body; the refresh cookie is left
// untouched and stays valid until its natural expiry.
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(auth.RefreshTokenCookie)
	if err != nil || cookie.Value == "" {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "No refresh token provided",
		})
		return
	}

	access, err := h.auth.Refresh(r.Context(), cookie.Value)
	if err != nil {
		writeError(w, err)
		return
	}

	h.setSessionCookie(w, auth.AccessTokenCookie, access, h.accessTTL)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// HandleLogout clears both token cookies, effectively logging the user out.
//
// HTTP: POST /auth/logout
//
// Sessions are stateless, so "logout" just means deleting the client-side
// cookies. The tokens remain technically valid until they expire, but
// without the cookies the browser can't send them.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.clearSessionCookie(w, auth.AccessTokenCookie)
	h.clearSessionCookie(w, auth.RefreshTokenCookie)

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// HandleMe returns the currently authenticated user's profile.
//
// HTTP: GET /auth/me
// Auth: Required (RequireAuth middleware sets the identity in context)
//
// The gate only checked the token signature; this is where a deleted user
// shows up, as a 404 from the user lookup.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		// Should never happen on a RequireAuth-protected route, but be safe.
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "Not authenticated",
		})
		return
	}

	user, err := h.auth.GetUserByID(r.Context(), identity.UserID)
	if err != nil {
		h.logger.Warn("HandleMe: user lookup failed", slog.String("userID", identity.UserID))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// redirectLoginError sends the browser back to the frontend login page.
func (h *AuthHandler) redirectLoginError(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.frontendURL+"/login?error=oauth_failed", http.StatusSeeOther)
}

// setSessionCookie sets an HttpOnly token cookie with a TTL-matched MaxAge.
func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, name, value string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearSessionCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1, // tells the browser to delete the cookie immediately
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
