package service

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/minjae-dev/study-planner-api/internal/apperror"
	"github.com/minjae-dev/study-planner-api/internal/model"
	"github.com/minjae-dev/study-planner-api/internal/repository"
)

// Validation constants.
const (
	MaxSubjectNameLength = 100
	MaxNoteLength        = 1000
	MaxSessionMinutes    = 24 * 60 // a session cannot span more than a day
	DefaultListLimit     = 20
	MaxListLimit         = 100
)

// hexColorPattern matches CSS hex colors like #1a2b3c.
var hexColorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// StudyService handles business logic for subjects and study sessions.
//
// Every operation takes the authenticated user's ID and enforces ownership:
// reading or writing another user's subject fails with apperror.ErrForbidden.
// The repositories know nothing about ownership — the rule lives here.
type StudyService struct {
	subjects repository.SubjectRepository
	sessions repository.StudySessionRepository
	logger   *slog.Logger
}

// NewStudyService creates a StudyService.
func NewStudyService(
	subjects repository.SubjectRepository,
	sessions repository.StudySessionRepository,
	logger *slog.Logger,
) *StudyService {
	return &StudyService{
		subjects: subjects,
		sessions: sessions,
		logger:   logger,
	}
}

// CreateSubject validates and saves a new subject for the given user.
func (s *StudyService) CreateSubject(ctx context.Context, userID, name, color string) (*model.Subject, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.ValidationFailed("name", "subject name is required")
	}
	if len(name) > MaxSubjectNameLength {
		return nil, apperror.ValidationFailed("name",
			fmt.Sprintf("subject name must be %d characters or less", MaxSubjectNameLength))
	}
	color = strings.TrimSpace(color)
	if color != "" && !hexColorPattern.MatchString(color) {
		return nil, apperror.ValidationFailed("color", "color must be a hex value like #4f46e5")
	}

	subject := &model.Subject{
		UserID: userID,
		Name:   name,
		Color:  color,
	}
	if err := s.subjects.Create(ctx, subject); err != nil {
		s.logger.Error("failed to create subject",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating subject: %w", err)
	}

	s.logger.Info("subject created",
		slog.String("id", subject.ID),
		slog.String("userID", userID),
	)
	return subject, nil
}

// GetSubject retrieves a subject, enforcing ownership.
func (s *StudyService) GetSubject(ctx context.Context, userID, id string) (*model.Subject, error) {
	subject, err := s.ownedSubject(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return subject, nil
}

// ListSubjects returns the user's subjects with pagination.
func (s *StudyService) ListSubjects(ctx context.Context, userID string, limit, offset int) ([]model.Subject, error) {
	limit, offset = clampPage(limit, offset)

	subjects, err := s.subjects.ListByUser(ctx, userID, repository.ListOptions{
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		s.logger.Error("failed to list subjects", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing subjects: %w", err)
	}
	return subjects, nil
}

// UpdateSubject modifies an owned subject. Empty name means "don't change";
// color is always applied so it can be cleared.
func (s *StudyService) UpdateSubject(ctx context.Context, userID, id, name, color string) (*model.Subject, error) {
	subject, err := s.ownedSubject(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if name = strings.TrimSpace(name); name != "" {
		if len(name) > MaxSubjectNameLength {
			return nil, apperror.ValidationFailed("name",
				fmt.Sprintf("subject name must be %d characters or less", MaxSubjectNameLength))
		}
		subject.Name = name
	}
	color = strings.TrimSpace(color)
	if color != "" && !hexColorPattern.MatchString(color) {
		return nil, apperror.ValidationFailed("color", "color must be a hex value like #4f46e5")
	}
	subject.Color = color

	if err := s.subjects.Update(ctx, subject); err != nil {
		s.logger.Error("failed to update subject",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("updating subject: %w", err)
	}

	s.logger.Info("subject updated", slog.String("id", subject.ID))
	return subject, nil
}

// DeleteSubject removes an owned subject. Its study sessions go with it
// (the schema cascades the delete).
func (s *StudyService) DeleteSubject(ctx context.Context, userID, id string) error {
	if _, err := s.ownedSubject(ctx, userID, id); err != nil {
		return err
	}
	if err := s.subjects.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("subject deleted", slog.String("id", id))
	return nil
}

// LogSession records a completed study session against an owned subject.
// A zero startedAt means "now". Sessions are append-only; there is no
// update or delete.
func (s *StudyService) LogSession(ctx context.Context, userID, subjectID string, minutes int, note string, startedAt time.Time) (*model.StudySession, error) {
	if minutes <= 0 {
		return nil, apperror.ValidationFailed("durationMinutes", "duration must be positive")
	}
	if minutes > MaxSessionMinutes {
		return nil, apperror.ValidationFailed("durationMinutes",
			fmt.Sprintf("duration must be %d minutes or less", MaxSessionMinutes))
	}
	note = strings.TrimSpace(note)
	if len(note) > MaxNoteLength {
		return nil, apperror.ValidationFailed("note",
			fmt.Sprintf("note must be %d characters or less", MaxNoteLength))
	}

	if _, err := s.ownedSubject(ctx, userID, subjectID); err != nil {
		return nil, err
	}

	session := &model.StudySession{
		SubjectID:       subjectID,
		UserID:          userID,
		DurationMinutes: minutes,
		Note:            note,
		StartedAt:       startedAt,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		s.logger.Error("failed to log study session",
			slog.String("subjectID", subjectID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("logging study session: %w", err)
	}

	s.logger.Info("study session logged",
		slog.String("id", session.ID),
		slog.String("subjectID", subjectID),
		slog.Int("minutes", minutes),
	)
	return session, nil
}

// ListSessions returns an owned subject's sessions, newest first.
func (s *StudyService) ListSessions(ctx context.Context, userID, subjectID string, limit, offset int) ([]model.StudySession, error) {
	if _, err := s.ownedSubject(ctx, userID, subjectID); err != nil {
		return nil, err
	}

	limit, offset = clampPage(limit, offset)
	sessions, err := s.sessions.ListBySubject(ctx, subjectID, repository.ListOptions{
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		s.logger.Error("failed to list study sessions", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing study sessions: %w", err)
	}
	return sessions, nil
}

// ownedSubject loads a subject and checks it belongs to the caller.
// Another user's subject returns ErrForbidden, not ErrNotFound — the
// resource exists, the caller just may not touch it.
func (s *StudyService) ownedSubject(ctx context.Context, userID, id string) (*model.Subject, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "subject ID is required")
	}
	subject, err := s.subjects.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if subject.UserID != userID {
		return nil, apperror.Forbidden("you do not own this subject")
	}
	return subject, nil
}

// clampPage normalizes pagination parameters to a sane range.
func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
