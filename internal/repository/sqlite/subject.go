package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/minjae-dev/study-planner-api/internal/apperror"
	"github.com/minjae-dev/study-planner-api/internal/model"
	"github.com/minjae-dev/study-planner-api/internal/repository"
)

// SubjectDB implements repository.SubjectRepository.
type SubjectDB struct {
	conn *sql.DB
}

// Create inserts a new subject, generating its ID and timestamps.
func (s *SubjectDB) Create(ctx context.Context, subject *model.Subject) error {
	subject.ID = xid.New().String()
	now := time.Now()
	subject.CreatedAt = now
	subject.UpdatedAt = now

	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO subjects (id, user_id, name, color, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		subject.ID,
		subject.UserID,
		subject.Name,
		subject.Color,
		subject.CreatedAt,
		subject.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating subject: %w", err)
	}

	return nil
}

// GetByID retrieves a single subject by its ID.
// Returns apperror.ErrNotFound if the subject doesn't exist.
func (s *SubjectDB) GetByID(ctx context.Context, id string) (*model.Subject, error) {
	var subject model.Subject

	err := s.conn.QueryRowContext(ctx,
		`SELECT id, user_id, name, color, created_at, updated_at
		 FROM subjects
		 WHERE id = ?`,
		id,
	).Scan(
		&subject.ID,
		&subject.UserID,
		&subject.Name,
		&subject.Color,
		&subject.CreatedAt,
		&subject.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("subject", id)
		}
		return nil, fmt.Errorf("sqlite: getting subject %s: %w", id, err)
	}

	return &subject, nil
}

// ListByUser retrieves a user's subjects, newest first, with pagination.
func (s *SubjectDB) ListByUser(ctx context.Context, userID string, opts repository.ListOptions) ([]model.Subject, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, user_id, name, color, created_at, updated_at
		 FROM subjects
		 WHERE user_id = ?
		 ORDER BY created_at DESC
		 LIMIT ? OFFSET ?`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing subjects: %w", err)
	}
	defer rows.Close()

	subjects := make([]model.Subject, 0, limit)
	for rows.Next() {
		var subj model.Subject
		if err := rows.Scan(
			&subj.ID, &subj.UserID, &subj.Name, &subj.Color,
			&subj.CreatedAt, &subj.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning subject row: %w", err)
		}
		subjects = append(subjects, subj)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating subjects: %w", err)
	}

	return subjects, nil
}

// Update modifies an existing subject's name and color.
// Returns apperror.ErrNotFound if the subject doesn't exist.
func (s *SubjectDB) Update(ctx context.Context, subject *model.Subject) error {
	subject.UpdatedAt = time.Now()

	result, err := s.conn.ExecContext(ctx,
		`UPDATE subjects
		 SET name = ?, color = ?, updated_at = ?
		 WHERE id = ?`,
		subject.Name,
		subject.Color,
		subject.UpdatedAt,
		subject.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating subject %s: %w", subject.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("subject", subject.ID)
	}

	return nil
}

// Delete removes a subject. Sessions cascade via the foreign key.
// Returns apperror.ErrNotFound if the subject doesn't exist.
func (s *SubjectDB) Delete(ctx context.Context, id string) error {
	result, err := s.conn.ExecContext(ctx,
		`DELETE FROM subjects WHERE id = ?`,
		id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting subject %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("subject", id)
	}

	return nil
}
