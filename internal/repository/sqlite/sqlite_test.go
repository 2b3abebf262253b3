package sqlite

import (
	"context"
	"testing"

	"github.com/minjae-dev/study-planner-api/internal/model"
)

// newTestDB creates an in-memory database with the full schema. Each test
// gets its own — no shared state between tests.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create in-memory database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// createTestUser creates a user and fails the test if it errors.
func createTestUser(t *testing.T, u *UserDB, email, nickname string) *model.User {
	t.Helper()
	user := &model.User{
		Email:         email,
		Nickname:      nickname,
		EmailVerified: true,
	}
	if err := u.Create(context.Background(), user); err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

func TestPing(t *testing.T) {
	db := newTestDB(t)
	if err := db.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}

func TestVersion(t *testing.T) {
	db := newTestDB(t)
	version, err := db.Version(context.Background())
	if err != nil {
		t.Fatalf("Version() error = %v", err)
	}
	if version == "" {
		t.Error("Version() returned empty string")
	}
}

func TestCounts_EmptyDatabase(t *testing.T) {
	db := newTestDB(t)

	stats, err := db.Counts(context.Background())
	if err != nil {
		t.Fatalf("Counts() error = %v", err)
	}
	if stats.Users != 0 || stats.Subjects != 0 || stats.StudySessions != 0 {
		t.Errorf("Counts() on empty database = %+v, want all zeros", stats)
	}
}

func TestCounts_WithRows(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	user := createTestUser(t, db.Users(), "count@example.com", "counter")

	subject := &model.Subject{UserID: user.ID, Name: "Algebra"}
	if err := db.Subjects().Create(ctx, subject); err != nil {
		t.Fatalf("creating subject: %v", err)
	}

	stats, err := db.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts() error = %v", err)
	}
	if stats.Users != 1 {
		t.Errorf("Users = %d, want 1", stats.Users)
	}
	if stats.Subjects != 1 {
		t.Errorf("Subjects = %d, want 1", stats.Subjects)
	}
}
