// Package auth provides token issuance/verification, the Google OAuth
// client, and the authentication middleware.
//
// SESSION MODEL:
// The server holds no session state. A login issues two signed JWTs:
//
//	accessToken  — short-lived (15 min), sent on every API call
//	refreshToken — long-lived (7 days), used only by POST /auth/refresh
//	               to mint a fresh access token without re-authenticating
//
// Both live in HttpOnly cookies; the browser carries them, the server only
// verifies signatures. Trust is re-derived from the token on every request.
//
// WHY TWO SECRETS?
// Access and refresh tokens are signed with DISTINCT secrets. The payload
// carries a "type" claim, but with a single shared secret that claim would
// be the only thing separating a 15-minute credential from a 7-day one, and
// any verifier that forgot to check it would accept a leaked access token
// on the refresh path. Separate secrets make the distinction structural: a
// token only verifies at all under the secret of its kind. The embedded
// type claim is still cross-checked afterwards as a second, defensive layer.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenKind distinguishes the two token flavours the codec issues.
type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

// Verification failures. Callers (middleware, refresh handler) can tell
// these apart with errors.Is even though the HTTP boundary collapses all of
// them into a generic 401.
var (
	// ErrTokenExpired means the signature was fine but the token's exp is
	// in the past.
	ErrTokenExpired = errors.New("auth: token expired")

	// ErrTokenInvalid covers bad signatures, malformed strings, wrong
	// algorithms — anything that means "this was not minted by us with
	// this secret".
	ErrTokenInvalid = errors.New("auth: invalid token")

	// ErrWrongTokenKind means the token verified under the requested
	// kind's secret but its embedded type claim declares the other kind.
	ErrWrongTokenKind = errors.New("auth: wrong token kind")
)

const issuer = "study-planner-api"

// TokenClaims is the signed payload. The JSON field names match what the
// frontend already decodes ("userId", "email", "type").
type TokenClaims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Kind   string `json:"type"`
	jwt.RegisteredClaims
}

// TokenService signs and verifies access and refresh tokens.
//
// It holds one HMAC secret and one default TTL per kind. The clock is a
// field so tests can pin "now" and probe expiry boundaries exactly; in
// production it is time.Now.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// NewTokenService creates a TokenService.
//
// A missing or weak secret is a fatal startup condition, not something to
// limp along with — every token minted under an empty secret would be
// forgeable. config.Validate catches this earlier; the check here guards
// direct constructions (tests, future tooling).
func NewTokenService(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) (*TokenService, error) {
	if len(accessSecret) < 16 {
		return nil, errors.New("auth: access secret must be at least 16 characters")
	}
	if len(refreshSecret) < 16 {
		return nil, errors.New("auth: refresh secret must be at least 16 characters")
	}
	if accessSecret == refreshSecret {
		return nil, errors.New("auth: access and refresh secrets must differ")
	}
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &TokenService{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}, nil
}

// AccessTTL returns the configured access-token lifetime. Handlers use it
// to set matching cookie expiries.
func (s *TokenService) AccessTTL() time.Duration { return s.accessTTL }

// RefreshTTL returns the configured refresh-token lifetime.
func (s *TokenService) RefreshTTL() time.Duration { return s.refreshTTL }

// Issue signs a token of the given kind with that kind's secret and
// default TTL.
func (s *TokenService) Issue(kind TokenKind, userID, email string) (string, error) {
	ttl := s.accessTTL
	if kind == TokenKindRefresh {
		ttl = s.refreshTTL
	}
	return s.IssueWithTTL(kind, userID, email, ttl)
}

// IssueWithTTL signs a token with an explicit lifetime. Exported for tests
// that need already-expired or nearly-expired tokens; production code goes
// through Issue.
func (s *TokenService) IssueWithTTL(kind TokenKind, userID, email string, ttl time.Duration) (string, error) {
	secret, err := s.secretFor(kind)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(userID) == "" {
		return "", errors.New("auth: user ID must not be empty")
	}

	now := s.now()
	claims := TokenClaims{
		UserID: userID,
		Email:  email,
		Kind:   string(kind),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing %s token: %w", kind, err)
	}
	return signed, nil
}

// Verify parses and checks a token of the given kind.
//
// ORDER OF CHECKS:
//  1. Signature + expiry, under the secret matching `kind`. This is where
//     trust comes from — a refresh token fed here as kind "access" dies at
//     this step because it was signed with the other secret.
//  2. The embedded type claim must equal `kind`. Defensive cross-check:
//     if the two secrets were ever misconfigured to the same value, this
//     still refuses kind confusion.
//
// Errors: ErrTokenExpired, ErrTokenInvalid, ErrWrongTokenKind.
func (s *TokenService) Verify(kind TokenKind, tokenStr string) (*TokenClaims, error) {
	secret, err := s.secretFor(kind)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(tokenStr) == "" {
		return nil, ErrTokenInvalid
	}

	var claims TokenClaims
	_, err = jwt.ParseWithClaims(
		tokenStr,
		&claims,
		func(token *jwt.Token) (any, error) {
			// Pin the algorithm — never let the token pick its own.
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	if claims.Kind != string(kind) {
		return nil, ErrWrongTokenKind
	}
	if claims.UserID == "" || claims.UserID != claims.Subject {
		return nil, ErrTokenInvalid
	}

	return &claims, nil
}

func (s *TokenService) secretFor(kind TokenKind) ([]byte, error) {
	switch kind {
	case TokenKindAccess:
		return s.accessSecret, nil
	case TokenKindRefresh:
		return s.refreshSecret, nil
	default:
		return nil, fmt.Errorf("auth: unknown token kind %q", kind)
	}
}
