// Package model defines the data structures used throughout the application.
package model

import "time"

// Provider identifies an external identity provider.
//
// Stored as uppercase strings in the database ("GOOGLE"), matching how most
// OAuth link tables name their provider column values. Adding a new provider
// means adding a constant here plus a provider client in internal/auth.
type Provider string

// ProviderGoogle is the only provider wired up today.
const ProviderGoogle Provider = "GOOGLE"

// User represents a registered account.
//
// Users are created through OAuth login — there is no signup form. The email
// is asserted by the identity provider, which is why EmailVerified is set
// true at creation: we trust the provider's verification, not our own.
//
// WHY LastLoginAt *time.Time (and not time.Time)?
// A user row that exists but has never completed a login (fixtures, future
// admin tooling) has no last-login. A nil pointer models "never" honestly;
// a zero time.Time would serialize as year 1 and confuse every consumer.
type User struct {
	ID            string     `json:"id"            db:"id"`
	Email         string     `json:"email"         db:"email"`          // unique, provider-asserted
	Nickname      string     `json:"nickname"      db:"nickname"`       // defaults to display name or email local part
	DisplayName   string     `json:"displayName"   db:"display_name"`   // may be empty
	ProfileImage  string     `json:"profileImage"  db:"profile_image"`  // avatar URL, may be empty
	EmailVerified bool       `json:"emailVerified" db:"email_verified"`
	LastLoginAt   *time.Time `json:"lastLoginAt"   db:"last_login_at"`
	CreatedAt     time.Time  `json:"createdAt"     db:"created_at"`
	UpdatedAt     time.Time  `json:"updatedAt"     db:"updated_at"`
}

// OAuthAccount links a local User to an identity asserted by an external
// provider.
//
// The pair (Provider, ProviderID) is unique — at most one link per external
// identity. A User may own several links, one per provider, all resolving to
// the same account. ProviderData holds the raw profile JSON the provider
// returned at link time; nothing reads it at runtime, it exists for audit
// and debugging (e.g. "what name did Google assert when this account was
// linked?").
type OAuthAccount struct {
	ID           string    `json:"id"         db:"id"`
	Provider     Provider  `json:"provider"   db:"provider"`
	ProviderID   string    `json:"providerId" db:"provider_id"`
	ProviderData string    `json:"-"          db:"provider_data"` // raw provider profile snapshot (JSON)
	UserID       string    `json:"userId"     db:"user_id"`
	CreatedAt    time.Time `json:"createdAt"  db:"created_at"`
}
