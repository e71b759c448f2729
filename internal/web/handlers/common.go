package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
)

// Machine-readable error codes returned in the "error" field. Kiosk and
// dashboard clients branch on these, so they are part of the API contract.
const (
	ErrCodeMissingStudentID        = "MISSING_STUDENT_ID"
	ErrCodeStudentNotFound         = "STUDENT_NOT_FOUND"
	ErrCodeDuplicateAttendance     = "DUPLICATE_ATTENDANCE"
	ErrCodeInvalidDescriptorFormat = "INVALID_DESCRIPTOR_FORMAT"
	ErrCodeInvalidDescriptorLength = "INVALID_DESCRIPTOR_LENGTH"
	ErrCodeNoStudents              = "NO_STUDENTS"
	ErrCodeNoMatch                 = "NO_MATCH"
	ErrCodeDuplicateStudent        = "DUPLICATE_STUDENT"
	ErrCodeInvalidRequest          = "INVALID_REQUEST"
	ErrCodeStorageUnavailable      = "STORAGE_UNAVAILABLE"
)

// errInvalidRequestBody is a shared message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response with a machine-readable code.
func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, map[string]string{
		"error":   code,
		"message": message,
	})
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
