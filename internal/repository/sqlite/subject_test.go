package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/minjae-dev/study-planner-api/internal/apperror"
	"github.com/minjae-dev/study-planner-api/internal/model"
	"github.com/minjae-dev/study-planner-api/internal/repository"
)

// createTestSubject creates a subject for the given user.
func createTestSubject(t *testing.T, s *SubjectDB, userID, name string) *model.Subject {
	t.Helper()
	subject := &model.Subject{UserID: userID, Name: name, Color: "#3366ff"}
	if err := s.Create(context.Background(), subject); err != nil {
		t.Fatalf("failed to create test subject: %v", err)
	}
	return subject
}

func TestSubjectCreateAndGet(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	user := createTestUser(t, db.Users(), "alice@example.com", "Alice")
	created := createTestSubject(t, db.Subjects(), user.ID, "Linear Algebra")

	got, err := db.Subjects().GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Name != "Linear Algebra" {
		t.Errorf("Name = %q, want %q", got.Name, "Linear Algebra")
	}
	if got.UserID != user.ID {
		t.Errorf("UserID = %q, want %q", got.UserID, user.ID)
	}
}

func TestSubjectGetByID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.Subjects().GetByID(context.Background(), "no-such-id")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("error = %v, want apperror.ErrNotFound", err)
	}
}

func TestSubjectListByUser(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	alice := createTestUser(t, db.Users(), "alice@example.com", "Alice")
	bob := createTestUser(t, db.Users(), "bob@example.com", "Bob")

	createTestSubject(t, db.Subjects(), alice.ID, "Algebra")
	createTestSubject(t, db.Subjects(), alice.ID, "History")
	createTestSubject(t, db.Subjects(), bob.ID, "Chemistry")

	subjects, err := db.Subjects().ListByUser(ctx, alice.ID, repository.ListOptions{})
	if err != nil {
		t.Fatalf("ListByUser() error = %v", err)
	}
	if len(subjects) != 2 {
		t.Fatalf("ListByUser() returned %d subjects, want 2", len(subjects))
	}
	for _, subj := range subjects {
		if subj.UserID != alice.ID {
			t.Errorf("subject %q belongs to %q, want only alice's", subj.Name, subj.UserID)
		}
	}
}

func TestSubjectUpdate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	user := createTestUser(t, db.Users(), "alice@example.com", "Alice")
	subject := createTestSubject(t, db.Subjects(), user.ID, "Algebra")

	subject.Name = "Abstract Algebra"
	subject.Color = "#ff0000"
	if err := db.Subjects().Update(ctx, subject); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, _ := db.Subjects().GetByID(ctx, subject.ID)
	if got.Name != "Abstract Algebra" {
		t.Errorf("Name = %q, want the updated name", got.Name)
	}
	if got.Color != "#ff0000" {
		t.Errorf("Color = %q, want the updated color", got.Color)
	}
}

func TestSubjectUpdate_NotFound(t *testing.T) {
	db := newTestDB(t)

	ghost := &model.Subject{ID: "no-such-id", Name: "Ghost"}
	if err := db.Subjects().Update(context.Background(), ghost); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("error = %v, want apperror.ErrNotFound", err)
	}
}

func TestSubjectDelete(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	user := createTestUser(t, db.Users(), "alice@example.com", "Alice")
	subject := createTestSubject(t, db.Subjects(), user.ID, "Algebra")

	if err := db.Subjects().Delete(ctx, subject.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if _, err := db.Subjects().GetByID(ctx, subject.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID() after delete: error = %v, want apperror.ErrNotFound", err)
	}
}

func TestSubjectDelete_CascadesSessions(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	user := createTestUser(t, db.Users(), "alice@example.com", "Alice")
	subject := createTestSubject(t, db.Subjects(), user.ID, "Algebra")

	session := &model.StudySession{
		SubjectID:       subject.ID,
		UserID:          user.ID,
		DurationMinutes: 45,
		StartedAt:       time.Now(),
	}
	if err := db.StudySessions().Create(ctx, session); err != nil {
		t.Fatalf("creating session: %v", err)
	}

	if err := db.Subjects().Delete(ctx, subject.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	sessions, err := db.StudySessions().ListBySubject(ctx, subject.ID, repository.ListOptions{})
	if err != nil {
		t.Fatalf("ListBySubject() error = %v", err)
	}
	if len(sessions) != 0 {
		t.Errorf("sessions should cascade on subject delete, got %d", len(sessions))
	}
}
