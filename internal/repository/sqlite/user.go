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

// UserDB implements repository.UserRepository.
type UserDB struct {
	conn *sql.DB
}

// Create inserts a new user. The ID and timestamps are generated here and
// written back through the pointer, so the caller's struct is the full
// record afterwards.
//
// The UNIQUE constraint on email surfaces as apperror.ErrConflict — the
// identity resolver looks users up by email before creating, so hitting
// this means two logins raced.
func (u *UserDB) Create(ctx context.Context, user *model.User) error {
	user.ID = xid.New().String()
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := u.conn.ExecContext(ctx,
		`INSERT INTO users (id, email, nickname, display_name, profile_image, email_verified, last_login_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Email,
		user.Nickname,
		user.DisplayName,
		user.ProfileImage,
		user.EmailVerified,
		user.LastLoginAt,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", user.Email)
		}
		return fmt.Errorf("sqlite: inserting user (email=%s): %w", user.Email, err)
	}

	return nil
}

const userColumns = `id, email, nickname, display_name, profile_image, email_verified, last_login_at, created_at, updated_at`

// scanUser reads one user row. last_login_at is nullable, so it goes
// through sql.NullTime.
func scanUser(row *sql.Row) (*model.User, error) {
	var user model.User
	var lastLogin sql.NullTime

	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Nickname,
		&user.DisplayName,
		&user.ProfileImage,
		&user.EmailVerified,
		&lastLogin,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if lastLogin.Valid {
		user.LastLoginAt = &lastLogin.Time
	}
	return &user, nil
}

// GetByID retrieves a user by internal ID.
// Returns apperror.ErrNotFound if no such user exists.
func (u *UserDB) GetByID(ctx context.Context, id string) (*model.User, error) {
	row := u.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)

	user, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return user, nil
}

// GetByEmail retrieves a user by email.
// Returns apperror.ErrNotFound if no such user exists.
func (u *UserDB) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	row := u.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email)

	user, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", email)
		}
		return nil, fmt.Errorf("sqlite: getting user by email %s: %w", email, err)
	}
	return user, nil
}

// TouchLastLogin stamps the user's last-login time.
func (u *UserDB) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	result, err := u.conn.ExecContext(ctx,
		`UPDATE users SET last_login_at = ?, updated_at = ? WHERE id = ?`,
		at, at, id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: touching last login for user %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("user", id)
	}
	return nil
}
