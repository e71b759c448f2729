package handlers

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/attendly/attendly/internal/attendance"
	"github.com/attendly/attendly/internal/config"
	"github.com/attendly/attendly/internal/database"
	"github.com/attendly/attendly/internal/matcher"
)

// AttendanceHandler handles recognition and attendance marking
type AttendanceHandler struct {
	config   *config.Config
	students database.StudentReader
	ledger   *attendance.Ledger

	// now is swappable in tests
	now func() time.Time
}

// NewAttendanceHandler creates a new attendance handler
func NewAttendanceHandler(cfg *config.Config, students database.StudentReader, ledger *attendance.Ledger) *AttendanceHandler {
	return &AttendanceHandler{
		config:   cfg,
		students: students,
		ledger:   ledger,
		now:      time.Now,
	}
}

// RecognizeRequest represents a face recognition request from a kiosk
type RecognizeRequest struct {
	Descriptor []json.RawMessage `json:"face_descriptor"`
	Mark       bool              `json:"mark"`
}

// RecognizeResponse represents the recognition outcome. A no-match is a
// normal 200 with recognized false and the NO_MATCH code in the body.
type RecognizeResponse struct {
	Recognized    bool             `json:"recognized"`
	Error         string           `json:"error,omitempty"`
	Message       string           `json:"message,omitempty"`
	Student       *StudentResponse `json:"student,omitempty"`
	Score         float64          `json:"score,omitempty"`
	Distance      float64          `json:"distance,omitempty"`
	Attendance    *AttendanceDTO   `json:"attendance,omitempty"`
	AlreadyMarked *AttendanceDTO   `json:"alreadyMarked,omitempty"`
}

func noMatchResponse() RecognizeResponse {
	return RecognizeResponse{
		Recognized: false,
		Error:      ErrCodeNoMatch,
		Message:    "no matching student found",
	}
}

// MarkRequest represents a manual attendance marking request
type MarkRequest struct {
	StudentID string `json:"studentId"`
}

// AttendanceDTO represents an attendance record in API responses
type AttendanceDTO struct {
	ID            int64     `json:"id"`
	StudentUID    string    `json:"studentUid"`
	StudentNumber string    `json:"studentNumber,omitempty"`
	StudentName   string    `json:"studentName,omitempty"`
	Course        string    `json:"course,omitempty"`
	Day           string    `json:"day"`
	TimeIn        time.Time `json:"timeIn"`
	Status        string    `json:"status"`
}

func attendanceDTO(rec *database.AttendanceRecord) *AttendanceDTO {
	return &AttendanceDTO{
		ID:            rec.ID,
		StudentUID:    rec.StudentUID,
		StudentNumber: rec.StudentNumber,
		StudentName:   rec.StudentName,
		Course:        rec.Course,
		Day:           rec.Day,
		TimeIn:        rec.TimeIn,
		Status:        rec.Status,
	}
}

// ReportResponse represents an attendance report
type ReportResponse struct {
	Records []AttendanceDTO    `json:"records"`
	Summary attendance.Summary `json:"summary"`
}

// Recognize handles POST /api/v1/attendance/recognize. It matches the
// submitted descriptor against the enrolled gallery and, when mark is set,
// records presence for the matched student in the same request.
func (h *AttendanceHandler) Recognize(w http.ResponseWriter, r *http.Request) {
	var req RecognizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidRequest, errInvalidRequestBody)
		return
	}

	query, code, err := parseDescriptor(req.Descriptor, h.config.Matcher.EmbeddingDim)
	if err != nil {
		respondError(w, http.StatusBadRequest, code, err.Error())
		return
	}

	students, err := h.students.Gallery(r.Context())
	if err != nil {
		log.Printf("Failed to load gallery: %v", err)
		respondError(w, http.StatusServiceUnavailable, ErrCodeStorageUnavailable, "storage unavailable")
		return
	}

	gallery := matcher.Gallery{Dim: h.config.Matcher.EmbeddingDim}
	for _, s := range students {
		gallery.Candidates = append(gallery.Candidates, matcher.Candidate{
			StudentUID: s.UID,
			Embedding:  s.Embedding,
		})
	}

	result, err := matcher.Match(query, gallery, h.config.Matcher.Threshold)
	if err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidDescriptorLength, err.Error())
		return
	}

	switch result.Outcome {
	case matcher.RejectedEmptyGallery:
		respondError(w, http.StatusNotFound, ErrCodeNoStudents, "no students enrolled")
		return
	case matcher.RejectedNoMatch:
		respondJSON(w, http.StatusOK, noMatchResponse())
		return
	}

	student, err := h.students.Get(r.Context(), result.StudentUID)
	if err != nil {
		log.Printf("Failed to load matched student %s: %v", sanitizeForLog(result.StudentUID), err)
		respondError(w, http.StatusServiceUnavailable, ErrCodeStorageUnavailable, "storage unavailable")
		return
	}
	if student == nil {
		// The student was deleted between the gallery load and the lookup.
		respondJSON(w, http.StatusOK, noMatchResponse())
		return
	}

	studentResp := StudentResponse{
		UID:           student.UID,
		StudentNumber: student.StudentNumber,
		Name:          student.Name,
		Email:         student.Email,
		Course:        student.Course,
		CourseName:    h.config.CourseName(student.Course),
		CreatedAt:     student.CreatedAt,
	}
	resp := RecognizeResponse{
		Recognized: true,
		Student:    &studentResp,
		Score:      result.Score,
		Distance:   result.Distance,
	}

	if req.Mark {
		rec, err := h.ledger.RecordPresence(r.Context(), student.UID, h.now())
		var dup *database.DuplicateAttendanceError
		switch {
		case err == nil:
			resp.Attendance = attendanceDTO(rec)
		case errors.As(err, &dup):
			resp.AlreadyMarked = attendanceDTO(&dup.Existing)
		default:
			log.Printf("Failed to mark attendance for %s: %v", sanitizeForLog(student.UID), err)
			respondError(w, http.StatusServiceUnavailable, ErrCodeStorageUnavailable, "storage unavailable")
			return
		}
	}

	respondJSON(w, http.StatusOK, resp)
}

// Mark handles POST /api/v1/attendance/mark
func (h *AttendanceHandler) Mark(w http.ResponseWriter, r *http.Request) {
	var req MarkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidRequest, errInvalidRequestBody)
		return
	}
	if req.StudentID == "" {
		respondError(w, http.StatusBadRequest, ErrCodeMissingStudentID, "studentId is required")
		return
	}

	rec, err := h.ledger.RecordPresence(r.Context(), req.StudentID, h.now())
	if err != nil {
		var dup *database.DuplicateAttendanceError
		switch {
		case errors.As(err, &dup):
			respondJSON(w, http.StatusConflict, map[string]any{
				"error":    ErrCodeDuplicateAttendance,
				"message":  "attendance already recorded for today",
				"existing": attendanceDTO(&dup.Existing),
			})
		case errors.Is(err, database.ErrNotFound):
			respondError(w, http.StatusNotFound, ErrCodeStudentNotFound, "student not found")
		default:
			log.Printf("Failed to mark attendance for %s: %v", sanitizeForLog(req.StudentID), err)
			respondError(w, http.StatusServiceUnavailable, ErrCodeStorageUnavailable, "storage unavailable")
		}
		return
	}

	respondJSON(w, http.StatusCreated, attendanceDTO(rec))
}

// reportRange parses start/end query parameters, defaulting to the last 30
// days ending today.
func (h *AttendanceHandler) reportRange(r *http.Request) (string, string, error) {
	now := h.now()
	start := r.URL.Query().Get("start")
	end := r.URL.Query().Get("end")
	if start == "" {
		start = database.DayOf(now.AddDate(0, 0, -29))
	}
	if end == "" {
		end = database.DayOf(now)
	}
	for _, day := range []string{start, end} {
		if _, err := time.Parse(database.DayLayout, day); err != nil {
			return "", "", fmt.Errorf("invalid day %q, expected YYYY-MM-DD", day)
		}
	}
	return start, end, nil
}

// Report handles GET /api/v1/attendance/report
func (h *AttendanceHandler) Report(w http.ResponseWriter, r *http.Request) {
	start, end, err := h.reportRange(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}

	records, summary, err := h.ledger.Report(r.Context(), start, end, r.URL.Query().Get("course"))
	if err != nil {
		log.Printf("Failed to build report: %v", err)
		respondError(w, http.StatusServiceUnavailable, ErrCodeStorageUnavailable, "storage unavailable")
		return
	}

	out := make([]AttendanceDTO, 0, len(records))
	for i := range records {
		out = append(out, *attendanceDTO(&records[i]))
	}
	respondJSON(w, http.StatusOK, ReportResponse{Records: out, Summary: summary})
}

// Export handles GET /api/v1/attendance/export, streaming the report as CSV.
func (h *AttendanceHandler) Export(w http.ResponseWriter, r *http.Request) {
	start, end, err := h.reportRange(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}

	records, _, err := h.ledger.Report(r.Context(), start, end, r.URL.Query().Get("course"))
	if err != nil {
		log.Printf("Failed to export report: %v", err)
		respondError(w, http.StatusServiceUnavailable, ErrCodeStorageUnavailable, "storage unavailable")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=attendance_%s_%s.csv", start, end))

	cw := csv.NewWriter(w)
	cw.Write([]string{"Date", "Student ID", "Name", "Course", "Time In", "Status"})
	for _, rec := range records {
		cw.Write([]string{
			rec.Day,
			rec.StudentNumber,
			rec.StudentName,
			rec.Course,
			rec.TimeIn.Local().Format("15:04:05"),
			rec.Status,
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		// Headers are already sent, the export is truncated.
		log.Printf("Failed to stream CSV export: %v", err)
	}
}
