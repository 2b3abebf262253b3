package model

import "time"

// Subject is something a user studies — "Linear Algebra", "TOEIC", etc.
// Every subject belongs to exactly one user; there is no sharing.
type Subject struct {
	ID        string    `json:"id"        db:"id"`
	UserID    string    `json:"userId"    db:"user_id"`
	Name      string    `json:"name"      db:"name"`
	Color     string    `json:"color"     db:"color"` // hex color for the frontend calendar, may be empty
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// StudySession records one sitting of study time against a subject.
//
// Sessions are append-only: the app records them and aggregates them, it
// never edits them. DurationMinutes rather than a start/end pair because
// users log sessions after the fact ("studied 90 minutes this morning").
type StudySession struct {
	ID              string    `json:"id"              db:"id"`
	SubjectID       string    `json:"subjectId"       db:"subject_id"`
	UserID          string    `json:"userId"          db:"user_id"`
	DurationMinutes int       `json:"durationMinutes" db:"duration_minutes"`
	Note            string    `json:"note"            db:"note"` // may be empty
	StartedAt       time.Time `json:"startedAt"       db:"started_at"`
	CreatedAt       time.Time `json:"createdAt"       db:"created_at"`
}
