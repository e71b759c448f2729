package handlers

import (
	"log"
	"net/http"

	"github.com/attendly/attendly/internal/config"
	"github.com/attendly/attendly/internal/database"
)

// CoursesHandler serves the course catalog
type CoursesHandler struct {
	config   *config.Config
	students database.StudentReader
}

// NewCoursesHandler creates a new courses handler
func NewCoursesHandler(cfg *config.Config, students database.StudentReader) *CoursesHandler {
	return &CoursesHandler{config: cfg, students: students}
}

// CourseResponse represents a course in API responses
type CourseResponse struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// List handles GET /api/v1/courses. It merges the embedded catalog with any
// course codes found on enrolled students, so imported legacy codes missing
// from the catalog still show up.
func (h *CoursesHandler) List(w http.ResponseWriter, r *http.Request) {
	enrolled, err := h.students.Courses(r.Context())
	if err != nil {
		log.Printf("Failed to list enrolled courses: %v", err)
		respondError(w, http.StatusServiceUnavailable, ErrCodeStorageUnavailable, "storage unavailable")
		return
	}

	seen := make(map[string]struct{})
	var out []CourseResponse
	for _, c := range h.config.Courses.Courses {
		seen[c.Code] = struct{}{}
		out = append(out, CourseResponse{Code: c.Code, Name: c.Name})
	}
	for _, code := range enrolled {
		if code == "" {
			continue
		}
		if _, ok := seen[code]; !ok {
			out = append(out, CourseResponse{Code: code, Name: code})
		}
	}

	respondJSON(w, http.StatusOK, out)
}
