package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/minjae-dev/study-planner-api/internal/model"
	"github.com/minjae-dev/study-planner-api/internal/repository"
)

// StudySessionDB implements repository.StudySessionRepository.
type StudySessionDB struct {
	conn *sql.DB
}

// Create records a study session. Sessions are append-only — there is no
// Update or Delete.
func (s *StudySessionDB) Create(ctx context.Context, session *model.StudySession) error {
	session.ID = xid.New().String()
	session.CreatedAt = time.Now()
	if session.StartedAt.IsZero() {
		session.StartedAt = session.CreatedAt
	}

	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO study_sessions (id, subject_id, user_id, duration_minutes, note, started_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		session.ID,
		session.SubjectID,
		session.UserID,
		session.DurationMinutes,
		session.Note,
		session.StartedAt,
		session.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating study session: %w", err)
	}

	return nil
}

// ListBySubject retrieves a subject's sessions, most recent first.
func (s *StudySessionDB) ListBySubject(ctx context.Context, subjectID string, opts repository.ListOptions) ([]model.StudySession, error) {
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
		`SELECT id, subject_id, user_id, duration_minutes, note, started_at, created_at
		 FROM study_sessions
		 WHERE subject_id = ?
		 ORDER BY started_at DESC
		 LIMIT ? OFFSET ?`,
		subjectID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing study sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]model.StudySession, 0, limit)
	for rows.Next() {
		var sess model.StudySession
		if err := rows.Scan(
			&sess.ID, &sess.SubjectID, &sess.UserID,
			&sess.DurationMinutes, &sess.Note,
			&sess.StartedAt, &sess.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning study session row: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating study sessions: %w", err)
	}

	return sessions, nil
}
