// Package service contains the business logic layer of the application.
//
// AuthService owns the session lifecycle. It sits between the HTTP handlers
// and the repositories/token codec:
//
//	AuthHandler (HTTP) → AuthService (rules) → UserRepository / OAuthAccountRepository
//	                   ↘ auth.TokenService (JWT)
//
// Its three jobs, in login order:
//   - ResolveIdentity: map a provider-asserted identity onto a local User,
//     creating the user and the provider link on first login
//   - CompleteLogin: mint the access/refresh token pair and stamp last-login
//   - Refresh: trade a valid refresh token for a fresh access token
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/minjae-dev/study-planner-api/internal/apperror"
	"github.com/minjae-dev/study-planner-api/internal/auth"
	"github.com/minjae-dev/study-planner-api/internal/model"
	"github.com/minjae-dev/study-planner-api/internal/repository"
)

// AuthService handles the authentication business logic.
type AuthService struct {
	users    repository.UserRepository
	accounts repository.OAuthAccountRepository
	tokens   *auth.TokenService
	logger   *slog.Logger
	now      func() time.Time
}

// NewAuthService creates an AuthService with all required dependencies.
func NewAuthService(
	users repository.UserRepository,
	accounts repository.OAuthAccountRepository,
	tokens *auth.TokenService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:    users,
		accounts: accounts,
		tokens:   tokens,
		logger:   logger,
		now:      time.Now,
	}
}

// TokenPair is what a completed login hands to the transport layer. The
// handler decides where the strings go (HttpOnly cookies); the service
// never touches HTTP.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// ResolveIdentity finds or creates the local User for an external identity
// assertion.
//
// ORDER MATTERS, and it is idempotent:
//  1. Link lookup by (provider, providerId). Found → return its user, no
//     writes. This is every repeat login.
//  2. User lookup by email. Found → an account that signed in through
//     another provider (or was seeded) gets the new provider linked to it
//     instead of a duplicate user.
//  3. Otherwise create the user. Nickname defaults to the provider's
//     display name, falling back to the email's local part. EmailVerified
//     is true — the provider asserted the address.
//  4. Create the link, storing the raw provider snapshot.
//
// CONCURRENT FIRST LOGINS:
// Two simultaneous first logins for the same identity race between steps 1
// and 4. There is no application-level lock; the UNIQUE(provider,
// provider_id) constraint decides the winner, and the loser recovers by
// re-reading the link and returning the winner's user. The same recovery
// applies to the email-unique constraint in step 3.
func (s *AuthService) ResolveIdentity(ctx context.Context, profile *auth.Profile) (*model.User, error) {
	if profile == nil {
		return nil, fmt.Errorf("service/auth: profile must not be nil")
	}
	if strings.TrimSpace(profile.Email) == "" {
		// No email, no account. Nothing has been written at this point.
		return nil, apperror.ValidationFailed("email", "identity provider returned no email")
	}

	// Step 1: existing-link fast path.
	account, err := s.accounts.GetByProviderID(ctx, profile.Provider, profile.ID)
	if err == nil {
		user, err := s.users.GetByID(ctx, account.UserID)
		if err != nil {
			return nil, fmt.Errorf("service/auth: loading linked user %s: %w", account.UserID, err)
		}
		return user, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/auth: looking up oauth account (%s/%s): %w", profile.Provider, profile.ID, err)
	}

	// Step 2: match by email.
	user, err := s.users.GetByEmail(ctx, profile.Email)
	switch {
	case err == nil:
		// Existing account — link the new provider to it below.
	case errors.Is(err, apperror.ErrNotFound):
		// Step 3: first login ever — create the user.
		user = &model.User{
			Email:         profile.Email,
			Nickname:      nicknameFor(profile),
			DisplayName:   profile.Name,
			ProfileImage:  profile.Picture,
			EmailVerified: true,
		}
		if err := s.users.Create(ctx, user); err != nil {
			if errors.Is(err, apperror.ErrConflict) {
				// A concurrent login created the user between our read
				// and write. Take theirs.
				user, err = s.users.GetByEmail(ctx, profile.Email)
				if err != nil {
					return nil, fmt.Errorf("service/auth: re-reading user after conflict: %w", err)
				}
			} else {
				return nil, fmt.Errorf("service/auth: creating user (email=%s): %w", profile.Email, err)
			}
		} else {
			s.logger.Info("user created from oauth login",
				slog.String("userID", user.ID),
				slog.String("provider", string(profile.Provider)),
			)
		}
	default:
		return nil, fmt.Errorf("service/auth: looking up user by email: %w", err)
	}

	// Step 4: create the provider link, snapshot included.
	link := &model.OAuthAccount{
		Provider:     profile.Provider,
		ProviderID:   profile.ID,
		ProviderData: string(profile.Raw),
		UserID:       user.ID,
	}
	if err := s.accounts.Create(ctx, link); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			// Lost the race on the link itself. The winner's link is
			// authoritative; return its user, not ours.
			s.logger.Info("oauth link creation raced, using existing link",
				slog.String("provider", string(profile.Provider)),
				slog.String("providerID", profile.ID),
			)
			winner, err := s.accounts.GetByProviderID(ctx, profile.Provider, profile.ID)
			if err != nil {
				return nil, fmt.Errorf("service/auth: re-reading oauth account after conflict: %w", err)
			}
			user, err = s.users.GetByID(ctx, winner.UserID)
			if err != nil {
				return nil, fmt.Errorf("service/auth: loading winner's user: %w", err)
			}
			return user, nil
		}
		return nil, fmt.Errorf("service/auth: linking oauth account (%s/%s): %w", profile.Provider, profile.ID, err)
	}

	return user, nil
}

// CompleteLogin mints the access/refresh pair for a resolved user and
// stamps their last-login time.
//
// The last-login write is best-effort: the user HAS authenticated, and a
// failed timestamp must not take the login down with it. Log and move on.
func (s *AuthService) CompleteLogin(ctx context.Context, user *model.User) (TokenPair, error) {
	if user == nil || user.ID == "" {
		return TokenPair{}, fmt.Errorf("service/auth: user must not be nil")
	}

	access, err := s.tokens.Issue(auth.TokenKindAccess, user.ID, user.Email)
	if err != nil {
		return TokenPair{}, fmt.Errorf("service/auth: issuing access token for user %s: %w", user.ID, err)
	}
	refresh, err := s.tokens.Issue(auth.TokenKindRefresh, user.ID, user.Email)
	if err != nil {
		return TokenPair{}, fmt.Errorf("service/auth: issuing refresh token for user %s: %w", user.ID, err)
	}

	if err := s.users.TouchLastLogin(ctx, user.ID, s.now()); err != nil {
		s.logger.Warn("failed to update last login",
			slog.String("userID", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.Info("login completed", slog.String("userID", user.ID))

	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh validates a refresh token and mints a new access token.
//
// Unlike the auth gate, this path DOES hit storage: refresh is infrequent
// and higher-trust, so the user's continued existence is re-checked. A
// signed, unexpired refresh token whose subject was deleted fails with
// apperror.ErrNotFound — token validity alone is not enough here.
//
// The refresh token itself is not rotated; it stays valid until its natural
// expiry.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.tokens.Verify(auth.TokenKindRefresh, refreshToken)
	if err != nil {
		// Keep the precise reason for the logs; the boundary collapses
		// everything into a 401.
		s.logger.Info("refresh token rejected", slog.String("reason", err.Error()))
		return "", apperror.Unauthorized("Invalid refresh token")
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			s.logger.Warn("refresh for deleted user", slog.String("userID", claims.UserID))
			return "", err
		}
		return "", fmt.Errorf("service/auth: loading user %s for refresh: %w", claims.UserID, err)
	}

	// Mint from the re-loaded record, not the old claims — the email may
	// have changed since the refresh token was issued.
	access, err := s.tokens.Issue(auth.TokenKindAccess, user.ID, user.Email)
	if err != nil {
		return "", fmt.Errorf("service/auth: issuing access token for user %s: %w", user.ID, err)
	}
	return access, nil
}

// GetUserByID returns the user for the given internal ID. Used by /auth/me
// after the gate has validated the access token.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, fmt.Errorf("service/auth: user ID must not be empty")
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// nicknameFor picks the default nickname for a new user: the provider's
// display name, or the local part of the email when the provider sent none.
func nicknameFor(profile *auth.Profile) string {
	if name := strings.TrimSpace(profile.Name); name != "" {
		return name
	}
	local, _, _ := strings.Cut(profile.Email, "@")
	return local
}
