package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/attendly/attendly/internal/config"
	"github.com/attendly/attendly/internal/database"
)

// StudentsHandler handles student enrollment and management
type StudentsHandler struct {
	config   *config.Config
	students database.StudentWriter
}

// NewStudentsHandler creates a new students handler
func NewStudentsHandler(cfg *config.Config, students database.StudentWriter) *StudentsHandler {
	return &StudentsHandler{config: cfg, students: students}
}

// EnrollRequest represents a student enrollment request
type EnrollRequest struct {
	StudentNumber string            `json:"studentNumber"`
	Name          string            `json:"name"`
	Email         string            `json:"email"`
	Course        string            `json:"course"`
	Descriptor    []json.RawMessage `json:"face_descriptor"`
}

// UpdateStudentRequest carries the editable student attributes.
// The descriptor is immutable after enrollment; re-enroll to replace it.
type UpdateStudentRequest struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Course string `json:"course"`
}

// StudentResponse represents a student in API responses
type StudentResponse struct {
	UID           string    `json:"uid"`
	StudentNumber string    `json:"studentNumber"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Course        string    `json:"course"`
	CourseName    string    `json:"courseName"`
	CreatedAt     time.Time `json:"createdAt"`
}

func (h *StudentsHandler) studentResponse(s *database.Student) StudentResponse {
	return StudentResponse{
		UID:           s.UID,
		StudentNumber: s.StudentNumber,
		Name:          s.Name,
		Email:         s.Email,
		Course:        s.Course,
		CourseName:    h.config.CourseName(s.Course),
		CreatedAt:     s.CreatedAt,
	}
}

// parseDescriptor validates and converts a JSON descriptor into an embedding.
// Each element must be a JSON number; the descriptor must match the
// configured dimension exactly.
func parseDescriptor(raw []json.RawMessage, dim int) ([]float32, string, error) {
	if len(raw) == 0 {
		return nil, ErrCodeInvalidDescriptorFormat, fmt.Errorf("descriptor is required")
	}
	embedding := make([]float32, len(raw))
	for i, el := range raw {
		var v float64
		if err := json.Unmarshal(el, &v); err != nil {
			return nil, ErrCodeInvalidDescriptorFormat, fmt.Errorf("descriptor element %d is not a number", i)
		}
		embedding[i] = float32(v)
	}
	if len(embedding) != dim {
		return nil, ErrCodeInvalidDescriptorLength, fmt.Errorf("descriptor must have %d values, got %d", dim, len(embedding))
	}
	return embedding, "", nil
}

// Enroll handles POST /api/v1/students
func (h *StudentsHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	var req EnrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidRequest, errInvalidRequestBody)
		return
	}

	if req.StudentNumber == "" || req.Name == "" {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "studentNumber and name are required")
		return
	}

	embedding, code, err := parseDescriptor(req.Descriptor, h.config.Matcher.EmbeddingDim)
	if err != nil {
		respondError(w, http.StatusBadRequest, code, err.Error())
		return
	}

	student := &database.Student{
		UID:           uuid.NewString(),
		StudentNumber: req.StudentNumber,
		Name:          req.Name,
		Email:         req.Email,
		Course:        req.Course,
		Embedding:     embedding,
	}

	if err := h.students.Create(r.Context(), student); err != nil {
		if errors.Is(err, database.ErrAlreadyExists) {
			respondError(w, http.StatusConflict, ErrCodeDuplicateStudent, "student number or email already enrolled")
			return
		}
		log.Printf("Failed to enroll student %s: %v", sanitizeForLog(req.StudentNumber), err)
		respondError(w, http.StatusServiceUnavailable, ErrCodeStorageUnavailable, "storage unavailable")
		return
	}

	respondJSON(w, http.StatusCreated, h.studentResponse(student))
}

// List handles GET /api/v1/students
func (h *StudentsHandler) List(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	course := r.URL.Query().Get("course")

	students, err := h.students.List(r.Context(), name, course)
	if err != nil {
		log.Printf("Failed to list students: %v", err)
		respondError(w, http.StatusServiceUnavailable, ErrCodeStorageUnavailable, "storage unavailable")
		return
	}

	out := make([]StudentResponse, 0, len(students))
	for i := range students {
		out = append(out, h.studentResponse(&students[i]))
	}
	respondJSON(w, http.StatusOK, out)
}

// Get handles GET /api/v1/students/{uid}
func (h *StudentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")

	student, err := h.students.Get(r.Context(), uid)
	if err != nil {
		log.Printf("Failed to get student %s: %v", sanitizeForLog(uid), err)
		respondError(w, http.StatusServiceUnavailable, ErrCodeStorageUnavailable, "storage unavailable")
		return
	}
	if student == nil {
		respondError(w, http.StatusNotFound, ErrCodeStudentNotFound, "student not found")
		return
	}

	respondJSON(w, http.StatusOK, h.studentResponse(student))
}

// Update handles PUT /api/v1/students/{uid}
func (h *StudentsHandler) Update(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")

	var req UpdateStudentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidRequest, errInvalidRequestBody)
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "name is required")
		return
	}

	student := &database.Student{
		UID:    uid,
		Name:   req.Name,
		Email:  req.Email,
		Course: req.Course,
	}
	if err := h.students.Update(r.Context(), student); err != nil {
		switch {
		case errors.Is(err, database.ErrNotFound):
			respondError(w, http.StatusNotFound, ErrCodeStudentNotFound, "student not found")
		case errors.Is(err, database.ErrAlreadyExists):
			respondError(w, http.StatusConflict, ErrCodeDuplicateStudent, "email already in use")
		default:
			log.Printf("Failed to update student %s: %v", sanitizeForLog(uid), err)
			respondError(w, http.StatusServiceUnavailable, ErrCodeStorageUnavailable, "storage unavailable")
		}
		return
	}

	updated, err := h.students.Get(r.Context(), uid)
	if err != nil || updated == nil {
		log.Printf("Failed to reload student %s after update: %v", sanitizeForLog(uid), err)
		respondError(w, http.StatusServiceUnavailable, ErrCodeStorageUnavailable, "storage unavailable")
		return
	}
	respondJSON(w, http.StatusOK, h.studentResponse(updated))
}

// Delete handles DELETE /api/v1/students/{uid}
func (h *StudentsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")

	if err := h.students.Delete(r.Context(), uid); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, http.StatusNotFound, ErrCodeStudentNotFound, "student not found")
			return
		}
		log.Printf("Failed to delete student %s: %v", sanitizeForLog(uid), err)
		respondError(w, http.StatusServiceUnavailable, ErrCodeStorageUnavailable, "storage unavailable")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
