package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/minjae-dev/study-planner-api/internal/apperror"
	"github.com/minjae-dev/study-planner-api/internal/model"
)

// OAuthAccountDB implements repository.OAuthAccountRepository.
type OAuthAccountDB struct {
	conn *sql.DB
}

// Create inserts a provider link.
//
// A UNIQUE(provider, provider_id) violation comes back as
// apperror.ErrConflict, NOT as a generic error: the identity resolver
// depends on telling "someone else just linked this identity" apart from
// "the database is broken". The first is recovered by re-reading, the
// second aborts the login.
func (o *OAuthAccountDB) Create(ctx context.Context, account *model.OAuthAccount) error {
	account.ID = xid.New().String()
	account.CreatedAt = time.Now()

	_, err := o.conn.ExecContext(ctx,
		`INSERT INTO oauth_accounts (id, provider, provider_id, provider_data, user_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		account.ID,
		string(account.Provider),
		account.ProviderID,
		account.ProviderData,
		account.UserID,
		account.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("oauth account", fmt.Sprintf("%s/%s", account.Provider, account.ProviderID))
		}
		return fmt.Errorf("sqlite: inserting oauth account (%s/%s): %w", account.Provider, account.ProviderID, err)
	}

	return nil
}

// GetByProviderID retrieves the link for an external identity.
// Returns apperror.ErrNotFound if the identity has never logged in here.
func (o *OAuthAccountDB) GetByProviderID(ctx context.Context, provider model.Provider, providerID string) (*model.OAuthAccount, error) {
	var account model.OAuthAccount
	var providerStr string

	err := o.conn.QueryRowContext(ctx,
		`SELECT id, provider, provider_id, provider_data, user_id, created_at
		 FROM oauth_accounts
		 WHERE provider = ? AND provider_id = ?`,
		string(provider), providerID,
	).Scan(
		&account.ID,
		&providerStr,
		&account.ProviderID,
		&account.ProviderData,
		&account.UserID,
		&account.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("oauth account", fmt.Sprintf("%s/%s", provider, providerID))
		}
		return nil, fmt.Errorf("sqlite: getting oauth account (%s/%s): %w", provider, providerID, err)
	}

	account.Provider = model.Provider(providerStr)
	return &account, nil
}
