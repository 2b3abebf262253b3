// Package repository declares the storage interfaces the service layer
// depends on. Concrete implementations live in subpackages (sqlite);
// services only ever see these interfaces, tests substitute fakes.
package repository

import (
	"context"
	"time"

	"github.com/minjae-dev/study-planner-api/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// TouchLastLogin stamps the user's last-login time. Callers treat
	// failures as best-effort: a missed stamp never blocks a login.
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
}

type OAuthAccountRepository interface {
	// Create inserts a provider link. Inserting a second link for the same
	// (provider, providerID) pair returns an error matching
	// apperror.ErrConflict — the storage-level unique constraint is the
	// only protection against concurrent first-logins.
	Create(ctx context.Context, account *model.OAuthAccount) error
	GetByProviderID(ctx context.Context, provider model.Provider, providerID string) (*model.OAuthAccount, error)
}

type SubjectRepository interface {
	Create(ctx context.Context, subject *model.Subject) error
	GetByID(ctx context.Context, id string) (*model.Subject, error)
	ListByUser(ctx context.Context, userID string, opts ListOptions) ([]model.Subject, error)
	Update(ctx context.Context, subject *model.Subject) error
	Delete(ctx context.Context, id string) error
}

type StudySessionRepository interface {
	Create(ctx context.Context, session *model.StudySession) error
	ListBySubject(ctx context.Context, subjectID string, opts ListOptions) ([]model.StudySession, error)
}

// Stats are the row counts the health endpoints report.
type Stats struct {
	Users         int64 `json:"users"`
	Subjects      int64 `json:"subjects"`
	StudySessions int64 `json:"sessions"`
}

type StatsRepository interface {
	Counts(ctx context.Context) (Stats, error)
	// Ping verifies the database answers a trivial query.
	Ping(ctx context.Context) error
	// Version reports the storage engine version for diagnostics.
	Version(ctx context.Context) (string, error)
}
