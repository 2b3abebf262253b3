package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/minjae-dev/study-planner-api/internal/auth"
	"github.com/minjae-dev/study-planner-api/internal/model"
	"github.com/minjae-dev/study-planner-api/internal/service"
)

// StudyHandler manages CRUD operations for subjects and study sessions.
//
// Every route in here sits behind RequireAuth, so the identity is always in
// the request context. The handler parses HTTP, the StudyService enforces
// validation and ownership.
type StudyHandler struct {
	study  *service.StudyService
	logger *slog.Logger
}

// NewStudyHandler creates a StudyHandler.
func NewStudyHandler(study *service.StudyService, logger *slog.Logger) *StudyHandler {
	return &StudyHandler{study: study, logger: logger}
}

// subjectRequest is the request body for creating or updating a subject.
type subjectRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// sessionRequest is the request body for logging a study session.
// StartedAt is optional; omitted means the session just ended.
type sessionRequest struct {
	DurationMinutes int        `json:"durationMinutes"`
	Note            string     `json:"note"`
	StartedAt       *time.Time `json:"startedAt"`
}

// HandleCreateSubject saves a new subject for the logged-in user.
//
// HTTP: POST /api/subjects
// REQUEST BODY: {"name": "Mathematics", "color": "#4f46e5"}
func (h *StudyHandler) HandleCreateSubject(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "Not authenticated"})
		return
	}

	var req subjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid subject JSON", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "Invalid JSON body"})
		return
	}

	subject, err := h.study.CreateSubject(r.Context(), identity.UserID, req.Name, req.Color)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, subject)
}

// HandleListSubjects returns the logged-in user's subjects.
//
// HTTP: GET /api/subjects?limit=20&offset=0
func (h *StudyHandler) HandleListSubjects(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "Not authenticated"})
		return
	}

	limit, offset := paginationParams(r)
	subjects, err := h.study.ListSubjects(r.Context(), identity.UserID, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	if subjects == nil {
		subjects = []model.Subject{}
	}
	writeJSON(w, http.StatusOK, subjects)
}

// HandleGetSubject returns one subject.
//
// HTTP: GET /api/subjects/{id}
func (h *StudyHandler) HandleGetSubject(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "Not authenticated"})
		return
	}

	subject, err := h.study.GetSubject(r.Context(), identity.UserID, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, subject)
}

// HandleUpdateSubject modifies a subject.
//
// HTTP: PUT /api/subjects/{id}
func (h *StudyHandler) HandleUpdateSubject(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "Not authenticated"})
		return
	}

	var req subjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "Invalid JSON body"})
		return
	}

	subject, err := h.study.UpdateSubject(r.Context(), identity.UserID, r.PathValue("id"), req.Name, req.Color)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, subject)
}

// HandleDeleteSubject removes a subject and its sessions.
//
// HTTP: DELETE /api/subjects/{id}
func (h *StudyHandler) HandleDeleteSubject(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "Not authenticated"})
		return
	}

	if err := h.study.DeleteSubject(r.Context(), identity.UserID, r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleLogSession records a study session against a subject.
//
// HTTP: POST /api/subjects/{id}/sessions
// REQUEST BODY: {"durationMinutes": 45, "note": "chapter 3"}
func (h *StudyHandler) HandleLogSession(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "Not authenticated"})
		return
	}

	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "Invalid JSON body"})
		return
	}

	var startedAt time.Time
	if req.StartedAt != nil {
		startedAt = *req.StartedAt
	}
	session, err := h.study.LogSession(r.Context(), identity.UserID, r.PathValue("id"), req.DurationMinutes, req.Note, startedAt)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

// HandleListSessions returns a subject's sessions, newest first.
//
// HTTP: GET /api/subjects/{id}/sessions?limit=20&offset=0
func (h *StudyHandler) HandleListSessions(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "Not authenticated"})
		return
	}

	limit, offset := paginationParams(r)
	sessions, err := h.study.ListSessions(r.Context(), identity.UserID, r.PathValue("id"), limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	if sessions == nil {
		sessions = []model.StudySession{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

// paginationParams parses limit/offset query parameters. Bad or missing
// values fall back to zero; the service clamps them to a sane range.
func paginationParams(r *http.Request) (limit, offset int) {
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	return limit, offset
}
