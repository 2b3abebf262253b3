package handler

import "net/http"

// IndexHandler serves the API root: a small JSON directory of the
// available endpoints, handy when poking the server with curl.
type IndexHandler struct{}

// NewIndexHandler creates an IndexHandler.
func NewIndexHandler() *IndexHandler {
	return &IndexHandler{}
}

// HandleIndex describes the API surface.
//
// HTTP: GET /
func (h *IndexHandler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"name": "study-planner-api",
		"endpoints": map[string]string{
			"GET /health":                      "liveness probe",
			"GET /health/db":                   "database probe",
			"GET /auth/google":                 "start Google login",
			"GET /auth/me":                     "current user (auth)",
			"POST /auth/refresh":               "refresh access token",
			"POST /auth/logout":                "clear session cookies",
			"GET /api/subjects":                "list subjects (auth)",
			"POST /api/subjects":               "create subject (auth)",
			"GET /api/subjects/{id}":           "get subject (auth)",
			"PUT /api/subjects/{id}":           "update subject (auth)",
			"DELETE /api/subjects/{id}":        "delete subject (auth)",
			"GET /api/subjects/{id}/sessions":  "list study sessions (auth)",
			"POST /api/subjects/{id}/sessions": "log study session (auth)",
		},
	})
}
